package splithttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tanq16/splitdl/internal/utils"
)

// FetchRange issues one ranged GET. A 200 reply is accepted only for a
// request starting at 0 whose body is exactly the requested length, which is
// the whole-file case for servers without range support.
func (s *Source) FetchRange(ctx context.Context, start, end int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, utils.Fatal(fmt.Errorf("error creating request: %w", err))
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	req.Header.Set("Connection", "keep-alive")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, utils.Transient(err)
	}
	defer resp.Body.Close()

	want := end - start + 1
	switch resp.StatusCode {
	case http.StatusPartialContent:
		gotStart, gotEnd, _, err := ParseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return nil, utils.Transient(err)
		}
		if gotStart != start || gotEnd != end {
			return nil, utils.Transient(fmt.Errorf("server sent range %d-%d, asked for %d-%d", gotStart, gotEnd, start, end))
		}
	case http.StatusOK:
		if start != 0 || (resp.ContentLength >= 0 && resp.ContentLength != want) {
			return nil, utils.Fatal(utils.ErrRangeNotSupported)
		}
	default:
		return nil, statusError(resp.StatusCode)
	}

	// one extra byte so an oversized body shows up as a size mismatch
	data, err := io.ReadAll(io.LimitReader(resp.Body, want+1))
	if err != nil {
		return nil, utils.Transient(fmt.Errorf("error reading response body: %w", err))
	}
	if resp.StatusCode == http.StatusOK && int64(len(data)) > want {
		return nil, utils.Fatal(utils.ErrRangeNotSupported)
	}
	return data, nil
}

// ParseContentRange parses "bytes start-end/total". Total is -1 for "*".
func ParseContentRange(header string) (start, end, total int64, err error) {
	if header == "" {
		return 0, 0, 0, fmt.Errorf("missing Content-Range header")
	}
	value := strings.TrimPrefix(header, "bytes ")
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	rangeParts := strings.Split(parts[0], "-")
	if len(rangeParts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	if start, err = strconv.ParseInt(rangeParts[0], 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}
	if end, err = strconv.ParseInt(rangeParts[1], 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}
	if parts[1] == "*" {
		return start, end, -1, nil
	}
	if total, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
	}
	return start, end, total, nil
}
