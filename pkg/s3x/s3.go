package s3x

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultRegion is used when none is configured; S3-compatible servers mostly ignore it.
const DefaultRegion = "us-east-1"

var ErrNoBucket = errors.New("s3: bucket is required")

type S3Config struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UsePathStyle    bool
	DisableSSL      bool // skip TLS verification, for self-signed endpoints
}

type S3Client struct {
	client *s3.Client
	bucket string
}

// NewS3Client initializes the S3 client and remembers the bucket name
func NewS3Client(ctx context.Context, s3Config *S3Config) (*S3Client, error) {
	if s3Config.Bucket == "" {
		return nil, ErrNoBucket
	}
	region := s3Config.Region
	if region == "" {
		region = DefaultRegion
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		// https://github.com/aws/aws-sdk-go-v2/issues/1295
		config.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					//nolint:gosec
					InsecureSkipVerify: s3Config.DisableSSL,
				},
			},
		}),
	}
	// without static keys the default chain (env, shared config, IMDS) applies
	if s3Config.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3Config.AccessKeyID, s3Config.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s3Config.EndpointURL != "" {
			o.BaseEndpoint = aws.String(s3Config.EndpointURL)
		}
		o.UsePathStyle = s3Config.UsePathStyle
	})

	return &S3Client{
		client: client,
		bucket: s3Config.Bucket,
	}, nil
}

func (c *S3Client) Client() *s3.Client {
	return c.client
}

func (c *S3Client) Bucket() string {
	return c.bucket
}
