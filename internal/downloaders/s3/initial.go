package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitdl/internal/utils"
)

type objectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source reads one S3 object. Objects always support ranged GETs.
type Source struct {
	bucket string
	key    string
	client objectAPI
}

func New(ctx context.Context, loc *utils.Locator, profile string) (*Source, error) {
	bucket, key, err := parseS3Locator(loc)
	if err != nil {
		return nil, err
	}
	var opts []func(*config.LoadOptions) error
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	log.Debug().Str("op", "s3/initial").Msgf("Client ready for s3://%s/%s", bucket, key)
	return newWithClient(bucket, key, newS3Client(cfg)), nil
}

// newS3Client disables SDK retries; every call is a single attempt and the
// engine decides whether to try again.
func newS3Client(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
	noRetry := func(o *s3.Options) {
		o.Retryer = aws.NopRetryer{}
	}
	return s3.NewFromConfig(cfg, append([]func(*s3.Options){noRetry}, optFns...)...)
}

func newWithClient(bucket, key string, client objectAPI) *Source {
	return &Source{bucket: bucket, key: key, client: client}
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *Source) Close() error {
	return nil
}

func parseS3Locator(loc *utils.Locator) (string, string, error) {
	if loc.Scheme != "s3" {
		return "", "", fmt.Errorf("%w: %s", utils.ErrUnsupportedScheme, loc.Scheme)
	}
	key, err := url.PathUnescape(strings.TrimPrefix(loc.Target, "/"))
	if err != nil || loc.Host == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("%w: s3 locator needs bucket and object key, got %q", utils.ErrInvalidLocator, loc.Raw)
	}
	return loc.Host, key, nil
}
