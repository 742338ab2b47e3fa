package coupon

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectGetter is the part of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Loader struct {
	client ObjectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader builds an S3 client from the default AWS credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().Str("bucket", bucket).Str("region", region).Msg("S3 coupon loader initialised")

	return NewS3LoaderFromClient(s3.NewFromConfig(cfg), bucket, logger), nil
}

// NewS3LoaderFromClient wraps an existing S3 client.
func NewS3LoaderFromClient(client ObjectGetter, bucket string, logger zerolog.Logger) Loader {
	return &s3Loader{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("component", "coupon-s3-loader").Logger(),
	}
}

func (l *s3Loader) Load(ctx context.Context, key string) (CouponSet, error) {
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", l.bucket, key, err)
	}
	defer out.Body.Close()

	set, err := readGzipSet(ctx, out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3://%s/%s: %w", l.bucket, key, err)
	}

	l.logger.Info().Str("bucket", l.bucket).Str("key", key).Int("coupons_loaded", set.Size()).Msg("coupon object loaded")
	return set, nil
}

type fallbackLoader struct {
	primary  Loader
	fallback Loader
	prefix   string
	logger   zerolog.Logger
}

// NewFallbackLoader tries primary with prefix+source and, on failure or when
// primary is nil, falls back to loading source with fallback.
func NewFallbackLoader(primary, fallback Loader, prefix string, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		primary:  primary,
		fallback: fallback,
		prefix:   prefix,
		logger:   logger.With().Str("component", "coupon-fallback-loader").Logger(),
	}
}

func (l *fallbackLoader) Load(ctx context.Context, source string) (CouponSet, error) {
	if l.primary != nil {
		key := l.prefix + source
		set, err := l.primary.Load(ctx, key)
		if err == nil {
			return set, nil
		}
		l.logger.Warn().Err(err).Str("key", key).Str("fallback", source).Msg("primary coupon source failed, falling back")
	}

	return l.fallback.Load(ctx, source)
}
