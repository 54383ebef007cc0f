package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitdl/internal/utils"
)

// Run is the whole pipeline for one job: size probe, range plan, concurrent
// fetch and assembly into job.OutputPath.
func Run(ctx context.Context, src utils.Source, job *utils.SplitJob) error {
	if job.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	info, err := ProbeSize(ctx, src, ProbeOptions{
		MaxAttempts: job.Retry.ProbeAttempts,
		RetryDelay:  job.Retry.RetryDelay,
	})
	if err != nil {
		return err
	}
	if job.SizeFunc != nil {
		job.SizeFunc(info.Size)
	}
	log.Info().Str("op", "engine/run").Str("job", job.ID).Msgf("File size: %d bytes / %.2f MB", info.Size, float64(info.Size)/1024/1024)

	parallelism := job.Connections
	if !info.RangesSupported && parallelism > 1 {
		log.Warn().Str("op", "engine/run").Str("job", job.ID).Msg("Range requests not supported, using a single whole-file fetch")
		parallelism = 1
	}
	plan, err := Plan(parallelism, info.Size)
	if err != nil {
		return err
	}
	log.Debug().Str("op", "engine/run").Str("job", job.ID).Int("chunks", len(plan.Chunks)).Msg("Range plan ready")

	err = Download(ctx, src, plan, job.OutputPath, Options{
		Retry: RetryPolicy{
			MaxAttempts: job.Retry.ChunkAttempts,
			RetryDelay:  job.Retry.RetryDelay,
		},
		FailFast:     job.Retry.FailFast,
		ProgressFunc: job.ProgressFunc,
	})
	for i := range plan.Chunks {
		plan.Chunks[i].Data = nil
	}
	return err
}
