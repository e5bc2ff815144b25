// Package s3 provides a content.Store backed by an S3-compatible bucket
// holding a checkout of the wiki tree.
package s3

import (
	"fmt"
	"strings"
)

// Config contains configuration for the S3 content store.
type Config struct {
	// S3 Connection Settings
	Endpoint  string `hcl:"endpoint,optional"`   // S3 endpoint URL (e.g., MinIO endpoint); empty uses AWS
	Region    string `hcl:"region"`              // AWS region (e.g., "us-west-2")
	Bucket    string `hcl:"bucket"`              // S3 bucket name
	Prefix    string `hcl:"prefix,optional"`     // Optional prefix the wiki tree lives under
	AccessKey string `hcl:"access_key,optional"` // Access key ID
	SecretKey string `hcl:"secret_key,optional"` // Secret access key

	// Limits
	MaxObjectSizeMB       int `hcl:"max_object_size_mb,optional"`      // Larger objects are reported as too large (default: 1)
	RetryMaxAttempts      int `hcl:"retry_max_attempts,optional"`      // Max retry attempts (default: 3)
	RequestTimeoutSeconds int `hcl:"request_timeout_seconds,optional"` // Request timeout (default: 30)

	// TLS/SSL Settings
	InsecureSkipVerify bool `hcl:"insecure_skip_verify,optional"` // Skip SSL certificate verification (for testing only)
}

// Validate validates the S3 configuration.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("access_key and secret_key must be set together")
	}
	return nil
}

// SetDefaults sets default values for optional configuration fields.
func (c *Config) SetDefaults() {
	if c.MaxObjectSizeMB == 0 {
		c.MaxObjectSizeMB = 1
	}
	if c.RetryMaxAttempts == 0 {
		c.RetryMaxAttempts = 3
	}
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = 30
	}
	c.Prefix = strings.Trim(c.Prefix, "/")
}

func (c *Config) maxObjectSize() int64 {
	return int64(c.MaxObjectSizeMB) * 1024 * 1024
}
