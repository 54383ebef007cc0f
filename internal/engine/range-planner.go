package engine

import (
	"fmt"

	"github.com/tanq16/splitdl/internal/utils"
)

// Plan splits [0, fileSize) into contiguous inclusive ranges. The last chunk
// absorbs the integer-division remainder. When parallelism exceeds fileSize
// the chunk count is clamped so every chunk holds at least one byte.
func Plan(parallelism int, fileSize int64) (*utils.DownloadPlan, error) {
	if parallelism < 1 {
		return nil, fmt.Errorf("%w: parallelism must be at least 1, got %d", utils.ErrInvalidPlan, parallelism)
	}
	if fileSize < 1 {
		return nil, fmt.Errorf("%w: file size must be at least 1, got %d", utils.ErrInvalidPlan, fileSize)
	}
	count := int64(parallelism)
	if count > fileSize {
		count = fileSize
	}
	chunkSize := fileSize / count
	plan := &utils.DownloadPlan{
		FileSize:    fileSize,
		Parallelism: parallelism,
		Chunks:      make([]utils.Chunk, count),
	}
	for i := range count {
		start := i * chunkSize
		end := start + chunkSize - 1
		if i == count-1 {
			end = fileSize - 1
		}
		plan.Chunks[i] = utils.Chunk{ID: int(i), Start: start, End: end}
	}
	return plan, nil
}
