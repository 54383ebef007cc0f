package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/splitdl/internal/engine"
	"github.com/tanq16/splitdl/internal/utils"
)

type fakeObjectAPI struct {
	data    []byte
	headErr error
	mu      sync.Mutex
	ranges  []string
}

func (f *fakeObjectAPI) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(f.data)))}, nil
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body := f.data
	if params.Range != nil {
		f.mu.Lock()
		f.ranges = append(f.ranges, *params.Range)
		f.mu.Unlock()
		var start, end int64
		if _, err := fmt.Sscanf(*params.Range, "bytes=%d-%d", &start, &end); err != nil {
			return nil, err
		}
		body = f.data[start : end+1]
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func responseError(status int, code string) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      &smithy.GenericAPIError{Code: code, Message: "test"},
		},
		RequestID: "req-1",
	}
}

func TestParseS3Locator(t *testing.T) {
	loc, err := utils.ParseLocator("s3://my-bucket/path/to/some%20object.tar")
	require.NoError(t, err)
	bucket, key, err := parseS3Locator(loc)
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "path/to/some object.tar", key)

	for _, raw := range []string{"s3://bucket", "s3://bucket/", "s3://bucket/dir/"} {
		loc, err := utils.ParseLocator(raw)
		require.NoError(t, err)
		_, _, err = parseS3Locator(loc)
		assert.ErrorIs(t, err, utils.ErrInvalidLocator, raw)
	}
}

func TestProbeSize(t *testing.T) {
	api := &fakeObjectAPI{data: make([]byte, 777)}
	src := newWithClient("b", "k", api)

	for _, method := range []utils.ProbeMethod{utils.ProbeMetadata, utils.ProbeBody} {
		info, err := src.ProbeSize(context.Background(), method)
		require.NoError(t, err)
		assert.Equal(t, int64(777), info.Size)
		assert.True(t, info.RangesSupported)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retriable bool
		status    int
	}{
		{"not found", responseError(404, "NotFound"), false, 404},
		{"access denied", responseError(403, "AccessDenied"), false, 403},
		{"slow down", responseError(503, "SlowDown"), true, 503},
		{"internal", responseError(500, "InternalError"), true, 500},
		{"network", errors.New("dial tcp: connection refused"), true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.Equal(t, tt.retriable, utils.IsRetriable(err))
			var fe *utils.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.status, fe.Status)
		})
	}
	assert.Contains(t, classify(responseError(404, "NoSuchKey")).Error(), "NoSuchKey")
}

func TestProbeSizeHeadFailure(t *testing.T) {
	src := newWithClient("b", "k", &fakeObjectAPI{headErr: responseError(403, "AccessDenied")})
	_, err := src.ProbeSize(context.Background(), utils.ProbeMetadata)
	assert.False(t, utils.IsRetriable(err))
}

func TestEndToEnd(t *testing.T) {
	data := make([]byte, 1<<20+3)
	for i := range data {
		data[i] = byte(i % 253)
	}
	api := &fakeObjectAPI{data: data}
	job := &utils.SplitJob{
		OutputPath:  filepath.Join(t.TempDir(), "object.bin"),
		Connections: 4,
		Retry:       utils.RetryConfig{ChunkAttempts: 2, ProbeAttempts: 2},
	}

	require.NoError(t, engine.Run(context.Background(), newWithClient("b", "k", api), job))
	got, err := os.ReadFile(job.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Len(t, api.ranges, 4)
}

func httptestClient(t *testing.T, handler http.Handler) *s3.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: aws.AnonymousCredentials{},
	}
	return newS3Client(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(srv.URL)
		o.UsePathStyle = true
	})
}

func TestClientDoesNotRetry(t *testing.T) {
	var requests atomic.Int32
	client := httptestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	src := newWithClient("bucket", "key", client)

	_, err := src.FetchRange(context.Background(), 0, 9)
	require.Error(t, err)
	assert.True(t, utils.IsRetriable(err))
	assert.Equal(t, int32(1), requests.Load(), "one request per FetchRange call")

	requests.Store(0)
	_, err = src.ProbeSize(context.Background(), utils.ProbeMetadata)
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load(), "one request per probe call")

	requests.Store(0)
	chunk := &utils.Chunk{ID: 0, Start: 0, End: 9}
	result := engine.FetchChunk(context.Background(), src, chunk, engine.RetryPolicy{MaxAttempts: 3})
	assert.ErrorIs(t, result.Err, utils.ErrChunkExhausted)
	assert.Equal(t, int32(3), requests.Load(), "attempts map one to one onto requests")
}

func TestClientRangedGet(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i % 241)
	}
	client := httptestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "key", time.Time{}, bytes.NewReader(data))
	}))
	src := newWithClient("bucket", "key", client)

	info, err := src.ProbeSize(context.Background(), utils.ProbeMetadata)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), info.Size)

	got, err := src.FetchRange(context.Background(), 100, 1099)
	require.NoError(t, err)
	assert.Equal(t, data[100:1100], got)
}
