package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tanq16/splitdl/internal/utils"
)

// memFetcher serves ranges of data, optionally failing or delaying per chunk start.
type memFetcher struct {
	data   []byte
	mu     sync.Mutex
	calls  map[int64]int
	fail   func(start int64, call int) error
	delay  func(start int64) time.Duration
	onDone func(start int64)
}

func newMemFetcher(data []byte) *memFetcher {
	return &memFetcher{data: data, calls: make(map[int64]int)}
}

func (f *memFetcher) FetchRange(ctx context.Context, start, end int64) ([]byte, error) {
	f.mu.Lock()
	f.calls[start]++
	call := f.calls[start]
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(start)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail != nil {
		if err := f.fail(start, call); err != nil {
			return nil, err
		}
	}
	if f.onDone != nil {
		defer f.onDone(start)
	}
	out := make([]byte, end-start+1)
	copy(out, f.data[start:end+1])
	return out, nil
}

func (f *memFetcher) callsFor(start int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[start]
}

var errFlaky = errors.New("connection reset")

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte((i * 7) % 251)
	}
	return data
}

type probeStep struct {
	info utils.ResourceInfo
	err  error
}

// scriptedProber replays responses per method and records the call order.
type scriptedProber struct {
	mu       sync.Mutex
	metadata []probeStep
	body     []probeStep
	calls    []utils.ProbeMethod
}

func (p *scriptedProber) ProbeSize(ctx context.Context, method utils.ProbeMethod) (utils.ResourceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, method)
	steps := &p.metadata
	if method == utils.ProbeBody {
		steps = &p.body
	}
	if len(*steps) == 0 {
		return utils.ResourceInfo{}, utils.Transient(errors.New("no response"))
	}
	step := (*steps)[0]
	if len(*steps) > 1 {
		*steps = (*steps)[1:]
	}
	return step.info, step.err
}
