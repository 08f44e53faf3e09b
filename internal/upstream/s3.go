// Package upstream resolves file identities to direct download URLs on the
// backing object store.
package upstream

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/panshare/sharedav/internal/metrics"
)

// Config holds the S3/MinIO connection settings for the content store.
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool

	// URLTTL is how long presigned download URLs stay valid.
	URLTTL time.Duration
}

// S3Resolver presigns download URLs for content-addressed objects. Objects
// are keyed by etag under a two-character fan-out prefix.
type S3Resolver struct {
	presign *s3.PresignClient
	bucket  string
	urlTTL  time.Duration
}

// New builds the resolver.
func New(ctx context.Context, cfg Config) (*S3Resolver, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				HostnameImmutable: true,
			}, nil
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3Resolver{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		urlTTL:  ttl,
	}, nil
}

// objectKey maps an etag onto its storage key.
func objectKey(etag string) string {
	if len(etag) < 2 {
		return etag
	}
	return etag[:2] + "/" + etag
}

// ResolveURL presigns a GET for the object behind etag. The response carries
// a Content-Disposition naming the original file so downloads keep it.
func (r *S3Resolver) ResolveURL(ctx context.Context, name, etag string, size int64) (string, error) {
	start := time.Now()

	disposition := fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name))
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(r.bucket),
		Key:                        aws.String(objectKey(etag)),
		ResponseContentDisposition: aws.String(disposition),
	}, s3.WithPresignExpires(r.urlTTL))
	if err != nil {
		metrics.RecordURLResolve("failure", time.Since(start))
		return "", fmt.Errorf("presign object %s: %w", objectKey(etag), err)
	}

	metrics.RecordURLResolve("success", time.Since(start))
	return req.URL, nil
}
