// Package artifact uploads build outputs to an S3-compatible object store.
// Keys are namespaced by project id under a fixed root prefix so concurrent
// builds for different projects never collide.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/Shantanu1075/Deplo-From-Repo-To-Reality/pkg/config"
)

const defaultContentType = "application/octet-stream"

// Store wraps the S3 client with project-scoped key handling.
type Store struct {
	client     *s3.Client
	bucket     string
	rootPrefix string
}

// New builds an S3-compatible client from artifact configuration.
func New(cfg config.ArtifactConfig) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("artifact store endpoint and bucket are required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	client := s3.NewFromConfig(aws.Config{
		Region:      region,
		Credentials: aws.NewCredentialsCache(creds),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return &Store{client: client, bucket: cfg.Bucket, rootPrefix: cfg.RootPrefix}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	_, createErr := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if createErr != nil {
		var apiErr smithy.APIError
		if errors.As(createErr, &apiErr) {
			switch apiErr.ErrorCode() {
			case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
				return nil
			}
		}
		return fmt.Errorf("create bucket %s: %w", s.bucket, createErr)
	}
	return nil
}

// Key computes the object key for a project-relative artifact path.
func (s *Store) Key(projectID, relPath string) string {
	return path.Join(s.rootPrefix, projectID, filepath.ToSlash(relPath))
}

// Put streams one artifact to the store, tagged with a content type derived
// from the file extension.
func (s *Store) Put(ctx context.Context, projectID, relPath string, body io.Reader) error {
	key := s.Key(projectID, relPath)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ContentType(relPath)),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// ContentType infers a MIME type from the file extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}
