package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/splitdl/internal/utils"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
)

// Source reads one object from a gocloud.dev bucket.
type Source struct {
	bucket *blob.Bucket
	key    string
	owned  bool // bucket was opened here and is closed with the source
}

// Open resolves file:///dir/name into the bucket file:///dir and key name.
func Open(ctx context.Context, loc *utils.Locator) (*Source, error) {
	if loc.Scheme != "file" {
		return nil, fmt.Errorf("%w: %s", utils.ErrUnsupportedScheme, loc.Scheme)
	}
	dir, escaped := path.Split(loc.Target)
	key, err := url.PathUnescape(escaped)
	if err != nil || key == "" {
		return nil, fmt.Errorf("%w: %q names a directory", utils.ErrInvalidLocator, loc.Raw)
	}
	bucketURL := "file://" + dir
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("error opening bucket %s: %w", bucketURL, err)
	}
	log.Debug().Str("op", "blob/initial").Str("bucket", bucketURL).Str("key", key).Msg("Bucket opened")
	return &Source{bucket: bucket, key: key, owned: true}, nil
}

// New wraps a bucket the caller keeps ownership of.
func New(bucket *blob.Bucket, key string) *Source {
	return &Source{bucket: bucket, key: key}
}

func (s *Source) Close() error {
	if s.owned {
		return s.bucket.Close()
	}
	return nil
}
