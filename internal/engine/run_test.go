package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/splitdl/internal/utils"
)

type fakeSource struct {
	*scriptedProber
	*memFetcher
	closed bool
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func newFakeSource(data []byte, ranges bool) *fakeSource {
	info := utils.ResourceInfo{Size: int64(len(data)), RangesSupported: ranges}
	return &fakeSource{
		scriptedProber: &scriptedProber{metadata: []probeStep{{info: info}}},
		memFetcher:     newMemFetcher(data),
	}
}

func testJob(t *testing.T, connections int) *utils.SplitJob {
	return &utils.SplitJob{
		ID:          "test",
		OutputPath:  filepath.Join(t.TempDir(), "out.bin"),
		Connections: connections,
		Retry:       utils.RetryConfig{ChunkAttempts: 2, ProbeAttempts: 2},
	}
}

func TestRunDownloadsWithRanges(t *testing.T) {
	data := testData(10_000)
	src := newFakeSource(data, true)
	job := testJob(t, 4)
	var reportedSize, lastProgress int64
	job.SizeFunc = func(size int64) { reportedSize = size }
	job.ProgressFunc = func(downloaded, total int64) { lastProgress = downloaded }

	require.NoError(t, Run(context.Background(), src, job))
	got, err := os.ReadFile(job.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, int64(len(data)), reportedSize)
	assert.Equal(t, int64(len(data)), lastProgress)
	for _, start := range []int64{0, 2500, 5000, 7500} {
		assert.Equal(t, 1, src.callsFor(start))
	}
}

func TestRunFallsBackToSingleFetch(t *testing.T) {
	data := testData(5000)
	src := newFakeSource(data, false)
	job := testJob(t, 8)

	require.NoError(t, Run(context.Background(), src, job))
	got, err := os.ReadFile(job.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, 1, src.callsFor(0))
	assert.Len(t, src.memFetcher.calls, 1)
}

func TestRunRequiresOutputPath(t *testing.T) {
	job := testJob(t, 2)
	job.OutputPath = ""
	src := newFakeSource(testData(10), true)
	assert.Error(t, Run(context.Background(), src, job))
	assert.Empty(t, src.scriptedProber.calls, "nothing is probed")
}

func TestRunStopsWhenSizeUnknown(t *testing.T) {
	src := newFakeSource(nil, true)
	src.scriptedProber.metadata = []probeStep{{err: utils.Transient(errors.New("timeout"))}}
	src.scriptedProber.body = []probeStep{{err: utils.Transient(errors.New("timeout"))}}
	job := testJob(t, 4)

	err := Run(context.Background(), src, job)
	assert.ErrorIs(t, err, utils.ErrSizeUnknown)
	assert.Empty(t, src.memFetcher.calls, "no chunk is fetched")
	_, statErr := os.Stat(job.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}
