package scheduler

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	blobstore "github.com/tanq16/splitdl/internal/downloaders/blob"
	splithttp "github.com/tanq16/splitdl/internal/downloaders/http"
	"github.com/tanq16/splitdl/internal/downloaders/s3"
	"github.com/tanq16/splitdl/internal/engine"
	"github.com/tanq16/splitdl/internal/output"
	"github.com/tanq16/splitdl/internal/utils"
)

type sourceOpener func(ctx context.Context, loc *utils.Locator, job *utils.SplitJob) (utils.Source, error)

// sourceRegistry maps locator schemes to their transport backends
var sourceRegistry = map[string]sourceOpener{
	"http":  openHTTP,
	"https": openHTTP,
	"s3":    openS3,
	"file":  openBlob,
}

func openHTTP(ctx context.Context, loc *utils.Locator, job *utils.SplitJob) (utils.Source, error) {
	return splithttp.New(loc, job.HTTPClientConfig, job.Connections)
}

func openS3(ctx context.Context, loc *utils.Locator, job *utils.SplitJob) (utils.Source, error) {
	return s3.New(ctx, loc, job.AWSProfile)
}

func openBlob(ctx context.Context, loc *utils.Locator, job *utils.SplitJob) (utils.Source, error) {
	return blobstore.Open(ctx, loc)
}

// Run executes the jobs on numWorkers workers, rendering progress to out.
// It returns an error when any job failed.
func Run(ctx context.Context, jobs []utils.SplitJob, numWorkers int, out io.Writer) error {
	outputMgr := output.NewManager(out)
	outputMgr.StartDisplay()
	defer outputMgr.StopDisplay()

	jobCh := make(chan utils.SplitJob, len(jobs))
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0
	for i := range max(numWorkers, 1) {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobCh {
				if err := processJob(ctx, job, outputMgr); err != nil {
					log.Error().Str("op", "scheduler").Int("worker", workerID).Str("job", job.ID).Err(err).Msg("Job failed")
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}(i + 1)
	}
	wg.Wait()

	if failed > 0 {
		return fmt.Errorf("%d of %d download(s) failed", failed, len(jobs))
	}
	return nil
}

func processJob(ctx context.Context, job utils.SplitJob, outputMgr *output.Manager) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	funcID := outputMgr.RegisterFunction(job.URL)
	outputMgr.SetMessage(funcID, fmt.Sprintf("Probing %s", job.URL))

	err := runJob(ctx, &job, outputMgr, funcID)
	if err != nil {
		outputMgr.ReportError(funcID, err)
		msg := fmt.Sprintf("Download failed for %s", job.OutputPath)
		if engine.IsChunkFailure(err) {
			msg += " (no file written)"
		}
		outputMgr.SetMessage(funcID, msg)
		return err
	}
	outputMgr.Complete(funcID, fmt.Sprintf("Downloaded %s", job.OutputPath))
	return nil
}

func runJob(ctx context.Context, job *utils.SplitJob, outputMgr *output.Manager, funcID int) error {
	loc, err := utils.ParseLocator(job.URL)
	if err != nil {
		return err
	}
	open, exists := sourceRegistry[loc.Scheme]
	if !exists {
		return fmt.Errorf("%w: %s", utils.ErrUnsupportedScheme, loc.Scheme)
	}
	if job.OutputPath == "" {
		job.OutputPath = loc.Name()
	}
	src, err := open(ctx, loc, job)
	if err != nil {
		return err
	}
	defer src.Close()

	job.SizeFunc = func(size int64) {
		outputMgr.SetMessage(funcID, fmt.Sprintf("Downloading %s (%s)", job.OutputPath, utils.FormatBytes(uint64(size))))
	}
	job.ProgressFunc = func(downloaded, total int64) {
		outputMgr.AddProgressBarToStream(funcID, downloaded, total)
	}
	log.Debug().Str("op", "scheduler").Str("job", job.ID).Str("url", job.URL).Str("output", job.OutputPath).Int("connections", job.Connections).Msg("Starting job")
	return engine.Run(ctx, src, job)
}
