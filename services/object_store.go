package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"student-records-manager/config"
	"student-records-manager/models"
)

// ObjectStore is the gateway to remote binary storage. The storage key of a
// returned attachment doubles as the deletion handle.
type ObjectStore interface {
	Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader, folder string) (models.Attachment, error)
	Delete(ctx context.Context, key string) error
	BulkDelete(ctx context.Context, keys []string) BulkDeleteResult
}

type BulkDeleteResult struct {
	Deleted []string
	Failed  []FailedDelete
}

type FailedDelete struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

type S3Store struct {
	client *s3.Client
	bucket string
	region string
}

func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	ctx := context.TODO()

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// Custom endpoint (e.g. MinIO)
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

// Upload stores the file under a generated key and returns its attachment
// reference. Nothing is persisted here; that is the caller's job.
func (s *S3Store) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader, folder string) (models.Attachment, error) {
	ext := filepath.Ext(header.Filename)
	key := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentType:   aws.String(header.Header.Get("Content-Type")),
		ContentLength: aws.Int64(header.Size),
	})
	if err != nil {
		return models.Attachment{}, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return models.Attachment{
		URL:        fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
		StorageKey: key,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// BulkDelete removes up to 1000 objects in one call. It never returns an
// error; per-key failures are reported in the result.
func (s *S3Store) BulkDelete(ctx context.Context, keys []string) BulkDeleteResult {
	result := BulkDeleteResult{}
	if len(keys) == 0 {
		return result
	}

	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(false),
		},
	})
	if err != nil {
		for _, key := range keys {
			result.Failed = append(result.Failed, FailedDelete{Key: key, Reason: err.Error()})
		}
		return result
	}

	for _, deleted := range out.Deleted {
		result.Deleted = append(result.Deleted, aws.ToString(deleted.Key))
	}
	for _, failed := range out.Errors {
		result.Failed = append(result.Failed, FailedDelete{
			Key:    aws.ToString(failed.Key),
			Reason: aws.ToString(failed.Message),
		})
	}
	return result
}
