package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/tanq16/splitdl/internal/utils"
	"gocloud.dev/gcerrors"
)

func (s *Source) ProbeSize(ctx context.Context, method utils.ProbeMethod) (utils.ResourceInfo, error) {
	if method == utils.ProbeMetadata {
		attrs, err := s.bucket.Attributes(ctx, s.key)
		if err != nil {
			return utils.ResourceInfo{}, classify(err)
		}
		return utils.ResourceInfo{Size: attrs.Size, RangesSupported: true}, nil
	}
	r, err := s.bucket.NewReader(ctx, s.key, nil)
	if err != nil {
		return utils.ResourceInfo{}, classify(err)
	}
	defer r.Close()
	return utils.ResourceInfo{Size: r.Size(), RangesSupported: true}, nil
}

func (s *Source) FetchRange(ctx context.Context, start, end int64) ([]byte, error) {
	r, err := s.bucket.NewRangeReader(ctx, s.key, start, end-start+1, nil)
	if err != nil {
		return nil, classify(err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, classify(fmt.Errorf("error reading object: %w", err))
	}
	return data, nil
}

func classify(err error) error {
	switch gcerrors.Code(err) {
	case gcerrors.NotFound, gcerrors.PermissionDenied, gcerrors.InvalidArgument, gcerrors.Unimplemented:
		return utils.Fatal(err)
	default:
		return utils.Transient(err)
	}
}
