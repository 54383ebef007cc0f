package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/splitdl/internal/output"
	"github.com/tanq16/splitdl/internal/utils"
	"gopkg.in/yaml.v3"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Process multiple downloads from a YAML file",
		Long: `Process multiple downloads from a YAML list of entries.

Example file:
  - link: https://example.com/a.iso
    op: a.iso
    connections: 8
  - link: s3://bucket/b.bin`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				output.PrintError(fmt.Sprintf("Error reading YAML file: %v", err))
				os.Exit(1)
			}
			entries, err := parseBatch(data)
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			jobs := buildJobsFromBatch(entries, settings.Connections, settings.Workers)
			if err := runJobs(jobs, settings.Workers); err != nil {
				output.PrintError("Encountered failed operation(s)")
				os.Exit(1)
			}
		},
	}
	return cmd
}

func parseBatch(data []byte) ([]utils.DownloadEntry, error) {
	var entries []utils.DownloadEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("error parsing YAML file: %w", err)
	}
	valid := entries[:0]
	for _, entry := range entries {
		if entry.URL == "" {
			output.PrintDetail("Empty link found, skipping...")
			continue
		}
		valid = append(valid, entry)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid jobs found in the batch file")
	}
	return valid, nil
}

// buildJobsFromBatch caps the total connection count across parallel jobs and
// gives duplicate output paths distinct names.
func buildJobsFromBatch(entries []utils.DownloadEntry, connections, workers int) []utils.SplitJob {
	if workers*connections > utils.MaxTotalConnections {
		connections = max(utils.MaxTotalConnections/workers, 1)
	}
	seen := make(map[string]bool)
	var jobs []utils.SplitJob
	for _, entry := range entries {
		outputPath := entry.OutputPath
		if outputPath == "" {
			if loc, err := utils.ParseLocator(entry.URL); err == nil {
				outputPath = loc.Name()
			}
		}
		base := outputPath
		for i := 1; seen[outputPath]; i++ {
			outputPath = utils.NumberedPath(base, i)
		}
		seen[outputPath] = true
		jobConnections := connections
		if entry.Connections > 0 {
			jobConnections = entry.Connections
		}
		jobs = append(jobs, newJob(entry.URL, outputPath, jobConnections))
	}
	return jobs
}
