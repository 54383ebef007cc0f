package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitdl/internal/utils"
)

type Options struct {
	Retry RetryPolicy
	// FailFast cancels in-flight siblings once one chunk has definitively
	// failed. Without it every chunk runs to a terminal state before the
	// failure is reported.
	FailFast     bool
	ProgressFunc func(downloaded, total int64)
}

// Download fetches every chunk of the plan concurrently, one goroutine per
// chunk, and waits for all of them. Only a fully successful plan is handed to
// WriteFile; otherwise the first failing chunk is reported as a *ChunkError
// and nothing is written to outputPath.
func Download(ctx context.Context, fetcher utils.RangeFetcher, plan *utils.DownloadPlan, outputPath string, opts Options) error {
	if err := FetchAll(ctx, fetcher, plan, opts); err != nil {
		return err
	}
	return WriteFile(outputPath, plan)
}

// FetchAll is the fetch half of Download: it fills every chunk's data or
// returns the first failure.
func FetchAll(ctx context.Context, fetcher utils.RangeFetcher, plan *utils.DownloadPlan, opts Options) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	startTime := time.Now()
	results := make([]utils.FetchResult, len(plan.Chunks))
	progressCh := make(chan int64, len(plan.Chunks))
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		var totalDownloaded int64
		for bytes := range progressCh {
			totalDownloaded += bytes
			if opts.ProgressFunc != nil {
				opts.ProgressFunc(totalDownloaded, plan.FileSize)
			}
		}
	}()

	var wg sync.WaitGroup
	var triggerOnce sync.Once
	trigger := -1
	for i := range plan.Chunks {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			chunk := &plan.Chunks[idx]
			result := FetchChunk(runCtx, fetcher, chunk, opts.Retry)
			results[idx] = result
			if result.OK() {
				progressCh <- int64(len(result.Data))
				log.Debug().Str("op", "engine/orchestrator").Int("chunk", chunk.ID).Int("attempts", result.Attempts).Msgf("Chunk [%d-%d] complete", chunk.Start, chunk.End)
				return
			}
			if opts.FailFast {
				triggerOnce.Do(func() {
					trigger = idx
					log.Debug().Str("op", "engine/orchestrator").Int("chunk", chunk.ID).Msg("Cancelling remaining chunks")
					cancel()
				})
			}
		}(i)
	}
	wg.Wait()
	close(progressCh)
	<-progressDone

	if failed := firstFailure(results, trigger); failed >= 0 {
		chunk := plan.Chunks[failed]
		err := &utils.ChunkError{
			ChunkID:  chunk.ID,
			Start:    chunk.Start,
			End:      chunk.End,
			Attempts: results[failed].Attempts,
			Err:      results[failed].Err,
		}
		log.Error().Str("op", "engine/orchestrator").Err(err).Msg("Download failed")
		return err
	}
	log.Info().Str("op", "engine/orchestrator").Int("chunks", len(plan.Chunks)).Dur("elapsed", time.Since(startTime)).Msg("All chunks fetched")
	return nil
}

// firstFailure returns the chunk that triggered fail-fast cancellation when
// there is one, else the lowest failed index in plan order, else -1.
func firstFailure(results []utils.FetchResult, trigger int) int {
	if trigger >= 0 {
		return trigger
	}
	for i, r := range results {
		if !r.OK() {
			return i
		}
	}
	return -1
}

// IsChunkFailure reports whether err came from a chunk rather than from a
// precondition or the output file.
func IsChunkFailure(err error) bool {
	var ce *utils.ChunkError
	return errors.As(err, &ce)
}
