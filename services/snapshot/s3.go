package snapshot

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sjsage522/metaworker/logger"
	"sjsage522/metaworker/pkg/errors"
)

// S3Options configure an S3 or MinIO bucket
type S3Options struct {
	Bucket   string
	Endpoint string // e.g. http://localhost:9000, empty for AWS
	Region   string
	User     string
	Password string
}

// S3Storage keeps snapshots in an S3-compatible bucket
type S3Storage struct {
	client *s3.Client
	bucket string
}

func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.User != "" {
		creds := credentials.NewStaticCredentialsProvider(opts.User, opts.Password, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.NewConfiguration("load s3 configuration", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			// Required for MinIO
			o.UsePathStyle = true
		}
	})
	return &S3Storage{client: client, bucket: opts.Bucket}, nil
}

func (s *S3Storage) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.NewCache("snapshot", "upload s3://"+s.bucket+"/"+key, err)
	}
	logger.ForCache().Info().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(data)).Msg("Uploaded snapshot to S3")
	return nil
}

func (s *S3Storage) Load(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewCache("snapshot", "download s3://"+s.bucket+"/"+key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.NewCache("snapshot", "read s3://"+s.bucket+"/"+key, err)
	}
	return data, nil
}
