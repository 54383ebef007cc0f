package utils

import (
	"context"
	"io"
	"time"
)

// ProbeMethod selects how a SizeProber asks the remote side for the resource size.
type ProbeMethod int

const (
	ProbeMetadata ProbeMethod = iota // HEAD or equivalent, no body
	ProbeBody                        // GET or equivalent, body discarded
)

func (m ProbeMethod) String() string {
	if m == ProbeBody {
		return "body"
	}
	return "metadata"
}

type ResourceInfo struct {
	Size            int64
	RangesSupported bool
}

// SizeProber performs a single size lookup with the given method. Retry and
// method fallback are the caller's job.
type SizeProber interface {
	ProbeSize(ctx context.Context, method ProbeMethod) (ResourceInfo, error)
}

// RangeFetcher returns the bytes [start, end] (end inclusive) of a resource.
// One call is one attempt; failures should be *FetchError so retry decisions
// can be made on them.
type RangeFetcher interface {
	FetchRange(ctx context.Context, start, end int64) ([]byte, error)
}

// Source is what every transport backend provides for one resource.
type Source interface {
	SizeProber
	RangeFetcher
	io.Closer
}

type ChunkState int

const (
	ChunkPending ChunkState = iota
	ChunkAttempting
	ChunkSucceeded
	ChunkFailed
)

func (s ChunkState) String() string {
	switch s {
	case ChunkAttempting:
		return "attempting"
	case ChunkSucceeded:
		return "succeeded"
	case ChunkFailed:
		return "failed"
	default:
		return "pending"
	}
}

type Chunk struct {
	ID       int
	Start    int64
	End      int64
	Data     []byte
	State    ChunkState
	Attempts int
}

func (c *Chunk) Len() int64 {
	return c.End - c.Start + 1
}

type DownloadPlan struct {
	FileSize    int64
	Parallelism int
	Chunks      []Chunk
}

type FetchResult struct {
	ChunkID  int
	Data     []byte
	Attempts int
	Err      error
}

func (r FetchResult) OK() bool {
	return r.Err == nil
}

type HTTPClientConfig struct {
	Timeout        time.Duration
	KATimeout      time.Duration
	ProxyURL       string
	ProxyUsername  string
	ProxyPassword  string
	UserAgent      string
	Headers        map[string]string
	BearerToken    string
	HighThreadMode bool // advanced socket options for high concurrency
}

type RetryConfig struct {
	ChunkAttempts int
	ProbeAttempts int
	RetryDelay    time.Duration
	FailFast      bool
}

type SplitJob struct {
	ID               string
	URL              string
	OutputPath       string
	Connections      int
	ProgressFunc     func(downloaded, total int64)
	SizeFunc         func(size int64)
	Retry            RetryConfig
	HTTPClientConfig HTTPClientConfig
	AWSProfile       string
}

type DownloadEntry struct {
	OutputPath  string `yaml:"op,omitempty"`
	URL         string `yaml:"link"`
	Connections int    `yaml:"connections,omitempty"`
}
