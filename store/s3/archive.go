package s3store

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goliatone/go-esign/core"
	glog "github.com/goliatone/go-logger/glog"
)

const contentTypeXML = "application/xml"

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Timeout         time.Duration
}

// ObjectPutter is the slice of the S3 API the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive writes notification payloads as S3 objects. The storage key is the
// object key, so a redelivered notification replaces the same object.
type Archive struct {
	client  ObjectPutter
	bucket  string
	timeout time.Duration
	logger  core.Logger
}

// New builds an S3 client from static credentials. A non empty Endpoint
// selects path style addressing for MinIO compatible servers.
func New(ctx context.Context, cfg Config, logger core.Logger) (*Archive, error) {
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3store: bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Timeout, logger)
}

func NewWithClient(client ObjectPutter, bucket string, timeout time.Duration, logger core.Logger) (*Archive, error) {
	if client == nil {
		return nil, fmt.Errorf("s3store: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3store: bucket is required")
	}
	if timeout <= 0 {
		timeout = core.DefaultRequestTimeout
	}
	return &Archive{
		client:  client,
		bucket:  bucket,
		timeout: timeout,
		logger:  glog.Ensure(logger),
	}, nil
}

func (a *Archive) Put(ctx context.Context, key string, payload []byte) bool {
	if a == nil || a.client == nil {
		return false
	}
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		a.logger.Error("s3 archive rejected empty key", "bucket", a.bucket)
		return false
	}
	putCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err := a.client.PutObject(putCtx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String(contentTypeXML),
	})
	if err != nil {
		a.logger.Error("s3 archive put failed", "bucket", a.bucket, "storage_key", key, "error", err)
		return false
	}
	return true
}

func (a *Archive) Bucket() string {
	if a == nil {
		return ""
	}
	return a.bucket
}
