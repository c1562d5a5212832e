// Package s3 provides an AWS S3 (or compatible API) backed implementation of
// the core.BlobStore interface. Blob keys map directly to object keys under a
// configurable prefix; entry-scoped deletion uses ListObjectsV2 with the
// entry's key prefix followed by a batched DeleteObjects call.
//
// Like the filesystem store, configuration gaps degrade rather than fail: a
// missing bucket turns the store into a no-op so the rest of the system keeps
// running with artifacts marked unavailable.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/genfan/core"
	"github.com/hupe1980/genfan/logging"
)

// Config holds the explicit settings for the S3 backed store. Keeping the
// surface narrow and explicit (bucket, prefix, region, endpoint, credentials)
// makes S3-compatible services (MinIO, R2) first-class targets.
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // optional custom endpoint for S3-compatible APIs
	AccessKeyID     string // optional static credentials; default chain otherwise
	SecretAccessKey string
	UsePathStyle    bool
}

// Options configures construction beyond Config.
type Options struct {
	// Logger receives degradation and cleanup warnings. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Store implements core.BlobStore on top of an S3 bucket.
type Store struct {
	client   *awss3.Client
	bucket   string
	prefix   string
	logger   logging.Logger
	disabled bool
}

// New creates an S3 blob store. A missing bucket disables the store rather
// than erroring; client construction failures are returned.
func New(ctx context.Context, cfg Config, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Store{bucket: strings.TrimSpace(cfg.Bucket), prefix: cfg.Prefix, logger: opts.Logger}
	if s.bucket == "" {
		opts.Logger.Warn("s3 bucket not configured; blob store disabled")
		s.disabled = true
		return s, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, &core.StorageError{Op: "load aws config", Err: err}
	}

	s.client = awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return s, nil
}

// NewFromClient wraps an existing S3 client, mainly for tests against fakes
// or pre-configured clients.
func NewFromClient(client *awss3.Client, bucket, prefix string, optFns ...func(o *Options)) *Store {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, bucket: bucket, prefix: prefix, logger: opts.Logger, disabled: bucket == ""}
}

// Disabled reports whether the store degraded to no-op mode.
func (s *Store) Disabled() bool { return s.disabled }

func (s *Store) objectKey(key string) string { return s.prefix + key }

// Write uploads the blob under the canonical key. A disabled store returns
// ("", nil); upload failures are logged and surfaced as *core.StorageError.
func (s *Store) Write(ctx context.Context, entryID, instanceID, ext string, data []byte) (string, error) {
	if s.disabled {
		return "", nil
	}
	key := core.BlobKey(entryID, instanceID, ext)
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		s.logger.Warn("blob upload failed", "key", key, "error", err)
		return "", &core.StorageError{Op: "write blob", Err: err}
	}
	return key, nil
}

// Read downloads the blob bytes, returning core.ErrBlobNotFound for a
// missing key and (nil, nil) on a disabled store.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if s.disabled {
		return nil, nil
	}
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, core.ErrBlobNotFound
		}
		return nil, &core.StorageError{Op: "read blob", Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &core.StorageError{Op: "read blob", Err: err}
	}
	return data, nil
}

// DeleteByEntryPrefix lists every object under the entry's key prefix and
// deletes them in batches. Blobs of other entries are never touched.
func (s *Store) DeleteByEntryPrefix(ctx context.Context, entryID string) error {
	return s.deleteByPrefix(ctx, s.objectKey(core.EntryPrefix(entryID)))
}

// Clear removes every blob under the store prefix. Idempotent.
func (s *Store) Clear(ctx context.Context) error {
	return s.deleteByPrefix(ctx, s.prefix)
}

func (s *Store) deleteByPrefix(ctx context.Context, prefix string) error {
	if s.disabled {
		return nil
	}
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return &core.StorageError{Op: "list blobs", Err: err}
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = s.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			s.logger.Warn("blob batch delete failed", "prefix", prefix, "error", err)
			return &core.StorageError{Op: "delete blobs", Err: err}
		}
	}
	return nil
}

// Stats reports blob count and total byte size under the store prefix.
func (s *Store) Stats(ctx context.Context) (core.BlobStats, error) {
	if s.disabled {
		return core.BlobStats{}, nil
	}
	var stats core.BlobStats
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return core.BlobStats{}, &core.StorageError{Op: "stat blobs", Err: err}
		}
		for _, obj := range page.Contents {
			stats.Count++
			if obj.Size != nil {
				stats.TotalBytes += *obj.Size
			}
		}
	}
	return stats, nil
}

// interface compliance
var _ core.BlobStore = (*Store)(nil)
