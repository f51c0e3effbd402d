// Package rawstore reads raw MIME objects written by the mail receiving
// service into S3.
package rawstore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter abstracts the S3 GetObject call for dependency inversion.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store fetches raw email objects by bucket and key.
type Store struct {
	client ObjectGetter
}

// New creates a Store backed by the given S3 client.
func New(client ObjectGetter) *Store {
	return &Store{client: client}
}

// Fetch reads the full raw object. The object is immutable once written,
// so a plain read is sufficient; any failure is the caller's to handle.
func (s *Store) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}
