package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/splitdl/internal/config"
	"github.com/tanq16/splitdl/internal/output"
	"github.com/tanq16/splitdl/internal/scheduler"
	"github.com/tanq16/splitdl/internal/utils"
)

var (
	outputPath string
	configPath string
	headers    []string
	settings   *config.Config
	logCloser  io.Closer
)

var SplitdlVersion = "dev"

var rootCmd = &cobra.Command{
	Use:   "splitdl [URL] --output OUTPUT_PATH",
	Short: "splitdl downloads one file over parallel byte-range requests",
	Long: `splitdl discovers the size of a remote file, splits it into contiguous byte ranges,
fetches the ranges concurrently with per-range retry, and reassembles them in order.

Supported sources: http(s)://, s3://BUCKET/KEY, file:///PATH

Examples:
  splitdl https://example.com/file.zip -o file.zip -p 8
  splitdl s3://mybucket/data.bin -o data.bin --aws-profile prod`,
	Version:           SplitdlVersion,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		url := utils.DefaultSourceURL
		if len(args) > 0 {
			url = args[0]
		}
		output.PrintInfo(fmt.Sprintf("File URL provided: %s", url))
		if outputPath == "" {
			output.PrintError("Output file must be specified with --output")
			os.Exit(1)
		}
		if _, err := utils.ParseLocator(url); err != nil {
			output.PrintError(err.Error())
			os.Exit(1)
		}
		job := newJob(url, outputPath, settings.Connections)
		if err := runJobs([]utils.SplitJob{job}, 1); err != nil {
			output.PrintError("File download failed!")
			os.Exit(1)
		}
		output.PrintSuccess("File downloaded successfully!")
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	settings = cfg
	logCloser, err = utils.InitLogger(cfg.Debug, cfg.LogFile)
	return err
}

func newJob(url, outputPath string, connections int) utils.SplitJob {
	return utils.SplitJob{
		URL:              url,
		OutputPath:       outputPath,
		Connections:      connections,
		Retry:            settings.RetryConfig(),
		HTTPClientConfig: settings.HTTPClientConfig(headers),
		AWSProfile:       settings.AWSProfile,
	}
}

func runJobs(jobs []utils.SplitJob, workers int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return scheduler.Run(ctx, jobs, workers, os.Stdout)
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default $HOME/.splitdl.yaml if present)")
	flags.IntP("connections", "p", utils.DefaultParallelism, "Number of parallel range requests per download")
	flags.IntP("workers", "w", utils.DefaultWorkers, "Number of downloads to run in parallel (batch)")
	flags.Int("attempts", utils.DefaultChunkAttempts, "Attempts per chunk before the download fails")
	flags.Int("probe-attempts", utils.DefaultProbeAttempts, "Attempts to discover the file size")
	flags.Duration("retry-delay", utils.DefaultRetryDelay, "Base delay between attempts (grows linearly)")
	flags.Bool("fail-fast", false, "Cancel remaining chunks as soon as one chunk fails")
	flags.DurationP("timeout", "t", 3*time.Minute, "Connection timeout (eg. 5s, 10m)")
	flags.DurationP("keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	flags.StringP("user-agent", "a", utils.ToolUserAgent, "User agent ('randomize' picks a browser agent)")
	flags.String("proxy", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	flags.String("proxy-username", "", "Proxy username (if not provided in proxy URL)")
	flags.String("proxy-password", "", "Proxy password (if not provided in proxy URL)")
	flags.StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	flags.String("bearer-token", "", "OAuth2 bearer token sent with HTTP requests")
	flags.String("aws-profile", "default", "AWS profile to use for s3:// sources")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("log-file", "", "Write logs to this file instead of stderr")

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCleanCmd())
}
