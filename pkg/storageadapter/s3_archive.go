package storageadapter

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchivalSink is an optional cold-storage target a snapshot's serialized
// state is mirrored into, addressed by content hash. Unlike the primary
// Store, a sink is never read from during VerifyChain: it exists purely
// for long-term retention outside the operational database.
type ArchivalSink interface {
	Archive(ctx context.Context, key string, data []byte) (location string, err error)
}

// S3Archive implements ArchivalSink against AWS S3.
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3ArchiveConfig configures an S3Archive.
type S3ArchiveConfig struct {
	Bucket   string
	Region   string
	Endpoint string // optional custom endpoint, for MinIO/LocalStack
	Prefix   string
}

// NewS3Archive loads AWS config from the environment/IAM role chain and
// returns an S3-backed ArchivalSink.
func NewS3Archive(ctx context.Context, cfg S3ArchiveConfig) (*S3Archive, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("storageadapter: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archive{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Archive uploads data under a key derived from the content hash,
// returning the s3:// location it was written to.
func (a *S3Archive) Archive(ctx context.Context, key string, data []byte) (string, error) {
	objectKey := a.prefix + key + ".snapshot"
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("storageadapter: s3 archive put failed for %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, objectKey), nil
}

var _ ArchivalSink = (*S3Archive)(nil)
