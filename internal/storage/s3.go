package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/entityinstall/audio-gateway/internal/resilience"
)

// s3API is the subset of the S3 client the store uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store persists audio segments as S3 objects. Transient network failures
// are retried here; the session core treats Put/Get as single calls.
type S3Store struct {
	client s3API
	bucket string
	retry  *resilience.RetryConfig
}

// NewS3Store creates a store backed by the given bucket.
func NewS3Store(client s3API, bucket string, retry *resilience.RetryConfig) *S3Store {
	return &S3Store{client: client, bucket: bucket, retry: retry}
}

// Put uploads a named object, carrying client identity and capture time as
// object metadata.
func (s *S3Store) Put(ctx context.Context, name string, data []byte, meta *Metadata) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		ContentType: aws.String("audio/wav"),
	}
	if meta != nil {
		input.Metadata = map[string]string{
			"client-id": meta.ClientID,
			"timestamp": meta.Timestamp.UTC().Format(time.RFC3339),
		}
	}

	err := resilience.Retry(func() error {
		input.Body = bytes.NewReader(data)
		_, err := s.client.PutObject(ctx, input)
		return err
	}, s.retry, resilience.IsRetryableNetworkError)
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	return nil
}

// Get downloads a named object. Missing objects map to ErrNotFound.
func (s *S3Store) Get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := resilience.Retry(func() error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(name),
		})
		if err != nil {
			var noKey *types.NoSuchKey
			if errors.As(err, &noKey) {
				return ErrNotFound
			}
			return err
		}
		defer out.Body.Close()
		data, err = io.ReadAll(out.Body)
		return err
	}, s.retry, resilience.IsRetryableNetworkError)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return data, nil
}

// Ping probes the bucket for readiness checks.
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}
