package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/tanq16/splitdl/internal/utils"
)

func (s *Source) ProbeSize(ctx context.Context, method utils.ProbeMethod) (utils.ResourceInfo, error) {
	var size *int64
	if method == utils.ProbeMetadata {
		out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
		})
		if err != nil {
			return utils.ResourceInfo{}, classify(err)
		}
		size = out.ContentLength
	} else {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
		})
		if err != nil {
			return utils.ResourceInfo{}, classify(err)
		}
		out.Body.Close()
		size = out.ContentLength
	}
	if size == nil {
		return utils.ResourceInfo{}, errors.New("object has no content length")
	}
	return utils.ResourceInfo{Size: *size, RangesSupported: true}, nil
}

func (s *Source) FetchRange(ctx context.Context, start, end int64) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		return nil, classify(err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(io.LimitReader(out.Body, end-start+2))
	if err != nil {
		return nil, utils.Transient(fmt.Errorf("error reading object: %w", err))
	}
	return data, nil
}

// classify maps SDK failures onto transient/fatal by HTTP status. Errors that
// never reached the service (dial, timeout) are transient.
func classify(err error) error {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			err = fmt.Errorf("%s: %w", apiErr.ErrorCode(), err)
		}
		return &utils.FetchError{Retriable: utils.RetriableStatus(code), Status: code, Err: err}
	}
	return utils.Transient(err)
}
