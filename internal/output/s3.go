// internal/output/s3.go
package output

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/si0411/tourextract/internal/tour"
)

// S3Writer uploads the canonical JSON document to a bucket.
type S3Writer struct {
	client *s3.Client
	bucket string
	key    string
}

// S3Options locates the uploaded object.
type S3Options struct {
	Bucket string
	Key    string
	Region string
	// Endpoint targets an S3-compatible store; path-style addressing is used.
	Endpoint string
}

// NewS3Writer loads credentials from the default AWS chain.
func NewS3Writer(ctx context.Context, opts S3Options) (*S3Writer, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Writer(cfg, opts)
}

func newS3Writer(cfg aws.Config, opts S3Options) (*S3Writer, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	if opts.Key == "" {
		return nil, fmt.Errorf("S3 key is required")
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Writer{client: client, bucket: opts.Bucket, key: opts.Key}, nil
}

// defaultS3Key names the object after the local dataset file.
func defaultS3Key(file string) string {
	return filepath.Base(file)
}

// Name implements Writer.
func (w *S3Writer) Name() string { return "s3" }

// Write implements Writer.
func (w *S3Writer) Write(ctx context.Context, ds *tour.Dataset) error {
	var buf bytes.Buffer
	if err := ds.Encode(&buf); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(w.key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", w.bucket, w.key, err)
	}
	return nil
}

// Close implements Writer.
func (w *S3Writer) Close() error { return nil }
