// Package avatars stores profile pictures in S3 compatible object storage,
// or inline as data URLs when no bucket is configured.
package avatars

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const MaxBytes = 2 << 20

var (
	ErrTooLarge        = errors.New("avatar exceeds 2 MiB")
	ErrUnsupportedType = errors.New("avatar must be a png, jpeg or webp image")
	ErrEmpty           = errors.New("avatar is empty")
)

// Store persists an avatar and returns the URL to show it from.
type Store interface {
	Put(ctx context.Context, userID string, data []byte) (string, error)
}

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

// Sniff validates data and returns its content type.
func Sniff(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxBytes {
		return "", ErrTooLarge
	}
	ct := http.DetectContentType(data)
	if _, ok := extensions[ct]; !ok {
		return "", ErrUnsupportedType
	}
	return ct, nil
}

// DataURLStore keeps the image inside the profile row.
type DataURLStore struct{}

func (DataURLStore) Put(_ context.Context, _ string, data []byte) (string, error) {
	ct, err := Sniff(data)
	if err != nil {
		return "", err
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client    S3API
	bucket    string
	publicURL string
	now       func() time.Time
}

func NewS3Store(client S3API, bucket, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

func (s *S3Store) Put(ctx context.Context, userID string, data []byte) (string, error) {
	ct, err := Sniff(data)
	if err != nil {
		return "", err
	}
	key := path.Join("avatars", userID, fmt.Sprintf("%d.%s", s.now().Unix(), extensions[ct]))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(ct),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String("public, max-age=86400"),
	})
	if err != nil {
		return "", fmt.Errorf("avatars: s3 put %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PublicURL       string
	AccessKeyID     string
	SecretAccessKey string
}

// New returns an S3Store when a bucket is configured and a DataURLStore
// otherwise.
func New(ctx context.Context, cfg S3Config) (Store, error) {
	if cfg.Bucket == "" {
		return DataURLStore{}, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, awsCfg.Region)
		}
	}
	return NewS3Store(client, cfg.Bucket, publicURL), nil
}
