package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitdl/internal/utils"
)

type ProbeOptions struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// ProbeSize asks for the size with the cheap metadata method first and falls
// back to a body request, repeating the pair up to MaxAttempts times.
func ProbeSize(ctx context.Context, prober utils.SizeProber, opts ProbeOptions) (utils.ResourceInfo, error) {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			log.Warn().Str("op", "engine/size-probe").Msgf("Size probe attempt %d failed, retrying", attempt-1)
			if err := sleepCtx(ctx, opts.RetryDelay); err != nil {
				return utils.ResourceInfo{}, fmt.Errorf("%w: %w", utils.ErrSizeUnknown, err)
			}
		}
		for _, method := range []utils.ProbeMethod{utils.ProbeMetadata, utils.ProbeBody} {
			info, err := prober.ProbeSize(ctx, method)
			if err == nil && info.Size > 0 {
				log.Debug().Str("op", "engine/size-probe").Int64("size", info.Size).Bool("ranges", info.RangesSupported).Msgf("Size found via %s request", method)
				return info, nil
			}
			if err == nil {
				err = errors.New("no usable content length")
			}
			lastErr = fmt.Errorf("%s probe: %w", method, err)
			log.Debug().Str("op", "engine/size-probe").Err(lastErr).Int("attempt", attempt).Msg("Probe method failed")
			if ctx.Err() != nil {
				return utils.ResourceInfo{}, fmt.Errorf("%w: %w", utils.ErrSizeUnknown, ctx.Err())
			}
		}
	}
	return utils.ResourceInfo{}, fmt.Errorf("%w after %d attempts: %w", utils.ErrSizeUnknown, opts.MaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
