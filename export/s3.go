package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Writer persists encoded export data to an S3-compatible bucket, spec
// §4.10's "persist data to ... a remote store". Grounded on
// evalgo-org-eve/storage/s3aws.go's config.LoadDefaultConfig + region/
// credentials setup, trimmed from that package's multi-cloud LakeFS/MinIO/
// Hetzner surface down to the plain-PutObject write path this exporter
// needs.
type S3Writer struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Writer loads AWS config from the environment (region, credentials)
// the standard SDK way and scopes every write under bucket/prefix.
func NewS3Writer(ctx context.Context, bucket, prefix string) (*S3Writer, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Writer{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (w *S3Writer) Write(ctx context.Context, loadTestName string, opts Options, data []byte) error {
	key := opts.Path
	if key == "" {
		key = loadTestName + ".out"
	}
	if w.prefix != "" {
		key = w.prefix + "/" + key
	}

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put export object %s/%s: %w", w.bucket, key, err)
	}
	return nil
}
