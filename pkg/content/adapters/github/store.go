package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	gh "github.com/google/go-github/v80/github"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	"github.com/hashicorp-forge/hermes-wiki/pkg/content"
)

// errorCodeTooLarge is the error code GitHub reports for blobs the contents
// API refuses to serve.
const errorCodeTooLarge = "too_large"

var _ content.Store = (*Store)(nil)

// Store implements content.Store on top of a GitHub repository.
type Store struct {
	client  *gh.Client
	cfg     *Config
	logger  hclog.Logger
	backoff func() backoff.BackOff
}

// NewStore creates a new GitHub content store.
func NewStore(cfg *Config, logger hclog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid github configuration: %w", err)
	}
	cfg.SetDefaults()

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	httpClient := &http.Client{Timeout: cfg.requestTimeout()}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = cfg.requestTimeout()
	}

	client := gh.NewClient(httpClient)
	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
	}

	return &Store{
		client:  client,
		cfg:     cfg,
		logger:  logger.Named("github-content"),
		backoff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "github"
}

// FetchContent returns the decoded content of the file at path.
func (s *Store) FetchContent(ctx context.Context, path string) ([]byte, error) {
	file, _, err := s.getContents(ctx, path)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, content.ErrNotFound
	}

	// Files between 1MB and 100MB come back without inline content.
	if file.GetEncoding() == "none" {
		return nil, content.ErrTooLarge
	}

	decoded, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", path, err)
	}
	return []byte(decoded), nil
}

// List returns the entries of the directory at path.
func (s *Store) List(ctx context.Context, path string) ([]content.Entry, error) {
	file, dir, err := s.getContents(ctx, path)
	if err != nil {
		return nil, err
	}
	if file != nil {
		return nil, content.ErrNotADirectory
	}

	entries := make([]content.Entry, 0, len(dir))
	for _, item := range dir {
		entryType := content.EntryTypeFile
		if item.GetType() == "dir" {
			entryType = content.EntryTypeDir
		}
		entries = append(entries, content.Entry{
			Name: item.GetName(),
			Type: entryType,
			Size: int64(item.GetSize()),
		})
	}
	return entries, nil
}

// getContents calls the contents API, retrying transient failures.
func (s *Store) getContents(ctx context.Context, path string) (*gh.RepositoryContent, []*gh.RepositoryContent, error) {
	type result struct {
		file *gh.RepositoryContent
		dir  []*gh.RepositoryContent
	}

	var opts *gh.RepositoryContentGetOptions
	if s.cfg.Ref != "" {
		opts = &gh.RepositoryContentGetOptions{Ref: s.cfg.Ref}
	}

	attempt := 0
	op := func() (result, error) {
		attempt++
		file, dir, _, err := s.client.Repositories.GetContents(
			ctx, s.cfg.Owner, s.cfg.Repository, path, opts)
		if err != nil {
			mapped, retryable := mapError(err)
			if !retryable {
				return result{}, backoff.Permanent(mapped)
			}
			s.logger.Debug("retrying github request",
				"path", path,
				"attempt", attempt,
				"error", err,
			)
			return result{}, mapped
		}
		return result{file: file, dir: dir}, nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(s.backoff(), uint64(s.cfg.MaxRetries)),
		ctx,
	)
	res, err := backoff.RetryWithData(op, b)
	if err != nil {
		if !content.IsMissing(err) {
			s.logger.Error("github request failed", "path", path, "error", err)
		}
		return nil, nil, err
	}
	return res.file, res.dir, nil
}

// mapError converts go-github errors into content errors and reports
// whether the failure is worth retrying.
func mapError(err error) (error, bool) {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		for _, e := range ghErr.Errors {
			if e.Code == errorCodeTooLarge {
				return content.ErrTooLarge, false
			}
		}

		status := 0
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
		switch {
		case status == http.StatusNotFound:
			return content.ErrNotFound, false
		case status >= http.StatusInternalServerError:
			return fmt.Errorf("github: %w", err), true
		default:
			return fmt.Errorf("github: %w", err), false
		}
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("github: %w", err), false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	// Transport failures.
	return fmt.Errorf("github: %w", err), true
}
