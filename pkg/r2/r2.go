// Package r2 implements Object interface for Cloudflare R2.
package r2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"

	"github.com/Fwea-Go/remix-exp/pkg/object"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Config holds R2 connection details.
type Config struct {
	AccountID        string
	AccessKey        string
	SecretAccessKey  string
	Bucket           string
	Region           string
	EndpointOverride string
	// PageSize caps keys per ListObjectsV2 call; 0 uses the service default.
	PageSize int32
}

// Storage implements object.ObjectStorage for Cloudflare R2.
type Storage struct {
	client   *s3.Client
	bucket   string
	pageSize int32
}

// Init bootstraps the R2 client using static credentials.
func (s *Storage) Init(ctx context.Context, param any) error {
	cfg, ok := param.(Config)
	if !ok {
		if p, ok := param.(*Config); ok && p != nil {
			cfg = *p
		} else {
			return fmt.Errorf("r2: unexpected config type %T", param)
		}
	}

	if cfg.AccountID == "" && cfg.EndpointOverride == "" {
		return errors.New("r2: AccountID or EndpointOverride required")
	}
	if cfg.AccessKey == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return errors.New("r2: AccessKey, SecretAccessKey, and Bucket are required")
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return fmt.Errorf("r2: load config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		base := cfg.EndpointOverride
		if base == "" {
			base = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
		}
		o.BaseEndpoint = aws.String(base)
		o.UsePathStyle = cfg.EndpointOverride != ""
	})

	s.client = client
	s.bucket = cfg.Bucket
	s.pageSize = cfg.PageSize
	return nil
}

// Close cleans up resources; no-op for R2.
func (s *Storage) Close(_ context.Context) error {
	return nil
}

// ListPage returns one ListObjectsV2 page. The continuation token is passed
// through as the cursor.
func (s *Storage) ListPage(ctx context.Context, prefix, cursor string) (object.Page, error) {
	if err := s.ensureClient(); err != nil {
		return object.Page{}, err
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	if cursor != "" {
		input.ContinuationToken = aws.String(cursor)
	}
	if s.pageSize > 0 {
		input.MaxKeys = aws.Int32(s.pageSize)
	}

	resp, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return object.Page{}, mapError(err)
	}

	page := object.Page{Keys: make([]string, 0, len(resp.Contents))}
	for _, c := range resp.Contents {
		page.Keys = append(page.Keys, aws.ToString(c.Key))
	}
	if aws.ToBool(resp.IsTruncated) {
		page.Cursor = aws.ToString(resp.NextContinuationToken)
	}
	return page, nil
}

// Put uploads the full object body.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, sizeHint int64, opts object.PutOptions) (object.Object, error) {
	if err := s.ensureClient(); err != nil {
		return object.Object{}, err
	}

	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     r,
		Metadata: cloneMeta(opts.Meta),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}
	if sizeHint >= 0 {
		input.ContentLength = aws.Int64(sizeHint)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return object.Object{}, mapError(err)
	}

	return s.Stat(ctx, key)
}

// MultipartPut streams large uploads in parts.
func (s *Storage) MultipartPut(ctx context.Context, key string, r io.Reader, partSize int64, opts object.PutOptions) (object.Object, error) {
	if err := s.ensureClient(); err != nil {
		return object.Object{}, err
	}

	create := &s3.CreateMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Metadata: cloneMeta(opts.Meta),
	}
	if opts.ContentType != "" {
		create.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		create.CacheControl = aws.String(opts.CacheControl)
	}
	createResp, err := s.client.CreateMultipartUpload(ctx, create)
	if err != nil {
		return object.Object{}, mapError(err)
	}

	uploadID := aws.ToString(createResp.UploadId)
	abort := func() {
		_, _ = s.client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(key),
			UploadId: aws.String(uploadID),
		})
	}

	var completedParts []types.CompletedPart
	buf := make([]byte, partSize)
	partNum := int32(1)

	for {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			partResp, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
				Bucket:     aws.String(s.bucket),
				Key:        aws.String(key),
				UploadId:   aws.String(uploadID),
				PartNumber: aws.Int32(partNum),
				Body:       bytes.NewReader(buf[:n]),
			})
			if err != nil {
				abort()
				return object.Object{}, mapError(err)
			}

			completedParts = append(completedParts, types.CompletedPart{
				ETag:       partResp.ETag,
				PartNumber: aws.Int32(partNum),
			})
			partNum++
		}

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			abort()
			return object.Object{}, fmt.Errorf("r2: read multipart chunk: %w", readErr)
		}
	}

	if _, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	}); err != nil {
		abort()
		return object.Object{}, mapError(err)
	}

	return s.Stat(ctx, key)
}

// Get fetches metadata plus a streaming reader. For ranged reads the applied
// range and total size come from the Content-Range response header.
func (s *Storage) Get(ctx context.Context, key string, rng *object.Range) (object.Object, io.ReadCloser, error) {
	if err := s.ensureClient(); err != nil {
		return object.Object{}, nil, err
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if rng != nil {
		input.Range = aws.String(rangeHeader(*rng))
	}

	resp, err := s.client.GetObject(ctx, input)
	if err != nil {
		return object.Object{}, nil, mapError(err)
	}

	obj := object.Object{
		Key:          key,
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         aws.ToString(resp.ETag),
		ContentType:  aws.ToString(resp.ContentType),
		CacheControl: aws.ToString(resp.CacheControl),
		LastModified: aws.ToTime(resp.LastModified),
		CustomMeta:   cloneMeta(resp.Metadata),
	}
	if cr := aws.ToString(resp.ContentRange); cr != "" {
		applied, total, ok := parseContentRange(cr)
		if !ok {
			resp.Body.Close()
			return object.Object{}, nil, fmt.Errorf("r2: malformed Content-Range %q", cr)
		}
		obj.Range = &applied
		obj.Size = total
	}
	return obj, resp.Body, nil
}

// Stat returns metadata only.
func (s *Storage) Stat(ctx context.Context, key string) (object.Object, error) {
	if err := s.ensureClient(); err != nil {
		return object.Object{}, err
	}

	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return object.Object{}, mapError(err)
	}

	return object.Object{
		Key:          key,
		Size:         aws.ToInt64(resp.ContentLength),
		ETag:         aws.ToString(resp.ETag),
		ContentType:  aws.ToString(resp.ContentType),
		CacheControl: aws.ToString(resp.CacheControl),
		LastModified: aws.ToTime(resp.LastModified),
		CustomMeta:   cloneMeta(resp.Metadata),
	}, nil
}

// Delete removes an object.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.ensureClient(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return mapError(err)
}

func (s *Storage) ensureClient() error {
	if s.client == nil {
		return errors.New("r2: client not initialized")
	}
	return nil
}

func cloneMeta(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	maps.Copy(out, in)
	return out
}

func rangeHeader(rng object.Range) string {
	if rng.End >= 0 {
		return fmt.Sprintf("bytes=%d-%d", rng.Start, rng.End)
	}
	return fmt.Sprintf("bytes=%d-", rng.Start)
}

// parseContentRange parses "bytes <start>-<end>/<total>".
func parseContentRange(v string) (object.Range, int64, bool) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(v), "bytes ")
	if !ok {
		return object.Range{}, 0, false
	}
	span, totalStr, ok := strings.Cut(spec, "/")
	if !ok {
		return object.Range{}, 0, false
	}
	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return object.Range{}, 0, false
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return object.Range{}, 0, false
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < start {
		return object.Range{}, 0, false
	}
	total, err := strconv.ParseInt(totalStr, 10, 64)
	if err != nil {
		return object.Range{}, 0, false
	}
	return object.Range{Start: start, End: end}, total, true
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return object.ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch strings.ToLower(apiErr.ErrorCode()) {
		case "nosuchkey", "notfound", "404":
			return object.ErrNotFound
		case "invalidrange":
			return object.ErrInvalidRange
		case "nosuchbucket":
			return fmt.Errorf("%w: %w", object.ErrUnavailable, err)
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch code := respErr.HTTPStatusCode(); {
		case code == http.StatusNotFound:
			return object.ErrNotFound
		case code == http.StatusRequestedRangeNotSatisfiable:
			return object.ErrInvalidRange
		case code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %w", object.ErrUnavailable, err)
		}
		return err
	}
	if apiErr != nil {
		return err
	}

	// No HTTP response at all: the endpoint could not be reached.
	return fmt.Errorf("%w: %w", object.ErrUnavailable, err)
}

// Ensure Storage implements ObjectStorage interface.
var _ object.ObjectStorage = (*Storage)(nil)
