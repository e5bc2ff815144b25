package s3

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/hermes-wiki/pkg/content"
)

// objectAPI is the subset of the S3 client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ content.Store = (*Store)(nil)

// Store implements content.Store on top of an S3 bucket.
type Store struct {
	client objectAPI
	cfg    *Config
	logger hclog.Logger
}

// NewStore creates a new S3 content store.
func NewStore(cfg *Config, logger hclog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid S3 configuration: %w", err)
	}
	cfg.SetDefaults()

	awsCfg, err := createAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoint for MinIO or other S3-compatible services
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newStore(client, cfg, logger), nil
}

func newStore(client objectAPI, cfg *Config, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{
		client: client,
		cfg:    cfg,
		logger: logger.Named("s3-content"),
	}
}

// createAWSConfig creates AWS SDK configuration from S3 config.
func createAWSConfig(cfg *Config) (aws.Config, error) {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify,
			},
		},
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
		config.WithRetryMaxAttempts(cfg.RetryMaxAttempts),
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	return config.LoadDefaultConfig(context.Background(), opts...)
}

// Name returns the store name.
func (s *Store) Name() string {
	return "s3"
}

// FetchContent returns the content of the object at path.
func (s *Store) FetchContent(ctx context.Context, p string) ([]byte, error) {
	key := s.objectKey(p)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err, key)
	}
	defer out.Body.Close()

	limit := s.cfg.maxObjectSize()
	if out.ContentLength != nil && *out.ContentLength > limit {
		return nil, content.ErrTooLarge
	}

	body, err := io.ReadAll(io.LimitReader(out.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	if int64(len(body)) > limit {
		return nil, content.ErrTooLarge
	}
	return body, nil
}

// List returns the entries directly under path.
func (s *Store) List(ctx context.Context, p string) ([]content.Entry, error) {
	prefix := s.objectKey(p) + "/"

	var (
		entries []content.Entry
		token   *string
	)
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.cfg.Bucket),
			Prefix:            aws.String(prefix),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, mapError(err, prefix)
		}

		for _, cp := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			entries = append(entries, content.Entry{Name: name, Type: content.EntryTypeDir})
		}
		for _, obj := range out.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue
			}
			entries = append(entries, content.Entry{
				Name: name,
				Type: content.EntryTypeFile,
				Size: aws.ToInt64(obj.Size),
			})
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	if len(entries) > 0 {
		return entries, nil
	}

	// S3 has no directories; an empty listing is either a file or nothing.
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.objectKey(p)),
	})
	if err == nil {
		return nil, content.ErrNotADirectory
	}
	if mapped := mapError(err, s.objectKey(p)); !errors.Is(mapped, content.ErrNotFound) {
		return nil, mapped
	}
	return nil, content.ErrNotFound
}

// objectKey maps a store path onto the bucket key space.
func (s *Store) objectKey(p string) string {
	p = strings.Trim(p, "/")
	if s.cfg.Prefix == "" {
		return p
	}
	return path.Join(s.cfg.Prefix, p)
}

func mapError(err error, key string) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return content.ErrNotFound
	}
	return fmt.Errorf("s3 request for %s failed: %w", key, err)
}
