// Package s3store keeps user assets in an S3 compatible object storage.
// Works against MinIO as well as AWS itself, the endpoint is configurable.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/amorozov/userhub/internal/models"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

type Store struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("s3store: endpoint and bucket are required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3store.LoadConfigErr: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		// MinIO serves buckets by path, not by subdomain
		o.UsePathStyle = true
	})

	return &Store{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
	}, nil
}

// storageKey builds unique object keys grouped by slot and date.
func storageKey(slot models.AssetSlot, name string) string {
	d := time.Now()
	return fmt.Sprintf("%s/%d/%d/%d/%v%s", slot, d.Year(), d.Month(), d.Day(), uuid.New(), filepath.Ext(name))
}

func (s *Store) Upload(ctx context.Context, file models.StagedFile) (models.AssetRef, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return models.AssetRef{}, fmt.Errorf("s3store.OpenErr: %w", err)
	}
	defer f.Close()

	key := storageKey(file.Slot, file.Path)
	contentType := mime.TypeByExtension(filepath.Ext(file.Path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return models.AssetRef{}, fmt.Errorf("s3store.PutObjectErr: %w", err)
	}

	return models.AssetRef{
		URL:      fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key),
		RemoteID: key,
	}, nil
}

func (s *Store) Delete(ctx context.Context, remoteID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(remoteID),
	})
	if err != nil {
		return fmt.Errorf("s3store.DeleteObjectErr: %w", err)
	}
	return nil
}
