package splithttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitdl/internal/utils"
)

// Source reads one http(s) resource. All chunk fetches share the client's
// connection pool.
type Source struct {
	url    string
	client *utils.SplitHTTPClient
}

func New(loc *utils.Locator, cfg utils.HTTPClientConfig, connections int) (*Source, error) {
	if loc.Scheme != "http" && loc.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", utils.ErrUnsupportedScheme, loc.Scheme)
	}
	cfg.HighThreadMode = connections > 5
	return &Source{
		url:    loc.URL(),
		client: utils.NewSplitHTTPClient(cfg),
	}, nil
}

func (s *Source) Close() error {
	s.client.Close()
	return nil
}

func (s *Source) ProbeSize(ctx context.Context, method utils.ProbeMethod) (utils.ResourceInfo, error) {
	verb := http.MethodHead
	if method == utils.ProbeBody {
		verb = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, verb, s.url, nil)
	if err != nil {
		return utils.ResourceInfo{}, utils.Fatal(fmt.Errorf("error creating request: %w", err))
	}
	req.Header.Set("Accept", "*/*")
	resp, err := s.client.Do(req)
	if err != nil {
		return utils.ResourceInfo{}, utils.Transient(err)
	}
	// the GET body is never read, closing drops it
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return utils.ResourceInfo{}, statusError(resp.StatusCode)
	}
	info := utils.ResourceInfo{
		RangesSupported: resp.Header.Get("Accept-Ranges") == "bytes",
	}
	if resp.ContentLength < 0 {
		return info, errors.New("server didn't provide Content-Length header")
	}
	info.Size = resp.ContentLength
	log.Debug().Str("op", "http/initial").Str("method", verb).Int64("size", info.Size).Msg("Probe response")
	return info, nil
}

func statusError(code int) error {
	return &utils.FetchError{
		Retriable: utils.RetriableStatus(code),
		Status:    code,
		Err:       fmt.Errorf("unexpected status code: %d", code),
	}
}
