package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitdl/internal/utils"
)

type RetryPolicy struct {
	MaxAttempts int
	RetryDelay  time.Duration // linear: attempt n waits (n-1)*RetryDelay
}

// FetchChunk runs up to MaxAttempts fetches for one chunk and records the
// terminal state on it. The caller must not touch the chunk until it returns.
func FetchChunk(ctx context.Context, fetcher utils.RangeFetcher, chunk *utils.Chunk, policy RetryPolicy) utils.FetchResult {
	result := fetchWithRetry(ctx, fetcher, chunk, policy)
	chunk.Attempts = result.Attempts
	if result.OK() {
		chunk.Data = result.Data
		chunk.State = utils.ChunkSucceeded
	} else {
		chunk.State = utils.ChunkFailed
	}
	return result
}

func fetchWithRetry(ctx context.Context, fetcher utils.RangeFetcher, chunk *utils.Chunk, policy RetryPolicy) utils.FetchResult {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	chunk.State = utils.ChunkAttempting
	result := utils.FetchResult{ChunkID: chunk.ID}
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, time.Duration(attempt-1)*policy.RetryDelay); err != nil {
				lastErr = err
				break
			}
		}
		result.Attempts = attempt
		data, err := fetcher.FetchRange(ctx, chunk.Start, chunk.End)
		if err == nil {
			err = checkLength(chunk, data)
		}
		if err == nil {
			result.Data = data
			return result
		}
		lastErr = err
		if !utils.IsRetriable(err) {
			log.Debug().Str("op", "engine/chunk-worker").Err(err).Int("chunk", chunk.ID).Msg("Fatal chunk error, not retrying")
			result.Err = err
			return result
		}
		log.Warn().Str("op", "engine/chunk-worker").Err(err).Msgf("Chunk [%d-%d] failed (attempt %d/%d)", chunk.Start, chunk.End, attempt, policy.MaxAttempts)
	}
	// cancelled while backing off
	if !utils.IsRetriable(lastErr) {
		result.Err = lastErr
		return result
	}
	result.Err = fmt.Errorf("%w: %w", utils.ErrChunkExhausted, lastErr)
	return result
}

func checkLength(chunk *utils.Chunk, data []byte) error {
	if len(data) == 0 {
		return utils.Transient(fmt.Errorf("empty body for range %d-%d", chunk.Start, chunk.End))
	}
	if int64(len(data)) != chunk.Len() {
		return utils.Transient(fmt.Errorf("size mismatch: expected %d bytes, got %d", chunk.Len(), len(data)))
	}
	return nil
}
