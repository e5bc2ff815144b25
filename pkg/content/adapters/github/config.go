// Package github provides a content.Store backed by the GitHub contents API.
package github

import (
	"fmt"
	"time"
)

// Config contains configuration for the GitHub content store.
type Config struct {
	Owner      string `hcl:"owner"`                // Repository owner (e.g. "ppy")
	Repository string `hcl:"repository"`           // Repository name (e.g. "osu-wiki")
	Ref        string `hcl:"ref,optional"`         // Branch, tag or commit (default: repository default branch)
	Token      string `hcl:"token,optional"`       // Optional access token
	BaseURL    string `hcl:"base_url,optional"`    // GitHub Enterprise API URL
	MaxRetries int    `hcl:"max_retries,optional"` // Retries for transient failures (default: 3)

	// RequestTimeoutSeconds bounds a single API request (default: 30).
	RequestTimeoutSeconds int `hcl:"request_timeout_seconds,optional"`
}

// Validate validates the GitHub configuration.
func (c *Config) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if c.Repository == "" {
		return fmt.Errorf("repository is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}

// SetDefaults sets default values for optional configuration fields.
func (c *Config) SetDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = 30
	}
}

func (c *Config) requestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
