// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads and validates the repolens YAML configuration.
//
// The whole credential set, including the public token pool, lives here and
// is injected into the components that need it. Nothing in the service reads
// tokens from process-global state.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file omits a value.
const (
	DefaultAddr         = ":8080"
	DefaultMaxDepth     = 4
	DefaultWorkers      = 10
	DefaultCacheTTL     = time.Hour
	DefaultGitHubAPIURL = "https://api.github.com"
)

// Duration wraps time.Duration with YAML string parsing ("1h", "90s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the root configuration for the repolens service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	GitHub     GitHubConfig     `yaml:"github"`
	Structure  StructureConfig  `yaml:"structure"`
	Store      StoreConfig      `yaml:"store"`
	GraphStore GraphStoreConfig `yaml:"graph_store"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Notify     NotifyConfig     `yaml:"notify"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`

	// DemoRepos lists repositories whose ready template projects may be
	// duplicated for new users instead of re-parsed.
	DemoRepos []string `yaml:"demo_repos"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// GitHubConfig holds the credential set for both authentication tiers.
type GitHubConfig struct {
	// AppID is the GitHub App identifier used for the installation tier.
	AppID int64 `yaml:"app_id"`

	// PrivateKeyPath points to the PEM-encoded RSA key of the app.
	PrivateKeyPath string `yaml:"private_key_path"`

	// APIBaseURL is the GitHub REST endpoint. Overridable for tests.
	APIBaseURL string `yaml:"api_base_url"`

	// TokenPool is the pool of public personal access tokens used by the
	// fallback tier. One is drawn at random per client.
	TokenPool []string `yaml:"token_pool"`
}

// StructureConfig bounds the structure traversal.
type StructureConfig struct {
	MaxDepth int      `yaml:"max_depth"`
	Workers  int      `yaml:"workers"`
	CacheTTL Duration `yaml:"cache_ttl"`
}

// StoreConfig locates the SQLite project store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// GraphStoreConfig selects the graph duplication backend.
// Tagged union: Type determines which other fields are relevant.
type GraphStoreConfig struct {
	Type string `yaml:"type"` // "memory" or "s3"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `yaml:"s3_bucket,omitempty"`
	S3Prefix string `yaml:"s3_prefix,omitempty"`
	S3Region string `yaml:"s3_region,omitempty"`
}

// DispatcherConfig selects the background job queue.
type DispatcherConfig struct {
	Type     string `yaml:"type"` // "http" or "noop"
	Endpoint string `yaml:"endpoint,omitempty"`
}

// NotifyConfig selects the completion email transport.
type NotifyConfig struct {
	Type     string `yaml:"type"` // "http" or "noop"
	Endpoint string `yaml:"endpoint,omitempty"`
	From     string `yaml:"from,omitempty"`
}

// AnalyticsConfig selects the event capture transport.
type AnalyticsConfig struct {
	Type     string `yaml:"type"` // "http" or "noop"
	Endpoint string `yaml:"endpoint,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// Load reads, parses, defaults and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.GitHub.APIBaseURL == "" {
		c.GitHub.APIBaseURL = DefaultGitHubAPIURL
	}
	if c.Structure.MaxDepth <= 0 {
		c.Structure.MaxDepth = DefaultMaxDepth
	}
	if c.Structure.Workers <= 0 {
		c.Structure.Workers = DefaultWorkers
	}
	if c.Structure.CacheTTL <= 0 {
		c.Structure.CacheTTL = Duration(DefaultCacheTTL)
	}
	if c.GraphStore.Type == "" {
		c.GraphStore.Type = "memory"
	}
	if c.Dispatcher.Type == "" {
		c.Dispatcher.Type = "noop"
	}
	if c.Notify.Type == "" {
		c.Notify.Type = "noop"
	}
	if c.Analytics.Type == "" {
		c.Analytics.Type = "noop"
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if len(c.GitHub.TokenPool) == 0 {
		return fmt.Errorf("github.token_pool is empty: the public fallback tier needs at least one token")
	}
	if c.GitHub.AppID != 0 && c.GitHub.PrivateKeyPath == "" {
		return fmt.Errorf("github.private_key_path is required when github.app_id is set")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	switch c.GraphStore.Type {
	case "memory":
	case "s3":
		if c.GraphStore.S3Bucket == "" {
			return fmt.Errorf("graph_store.s3_bucket is required for type s3")
		}
	default:
		return fmt.Errorf("unknown graph_store.type: %s", c.GraphStore.Type)
	}
	switch c.Dispatcher.Type {
	case "noop":
	case "http":
		if c.Dispatcher.Endpoint == "" {
			return fmt.Errorf("dispatcher.endpoint is required for type http")
		}
	default:
		return fmt.Errorf("unknown dispatcher.type: %s", c.Dispatcher.Type)
	}
	switch c.Notify.Type {
	case "noop":
	case "http":
		if c.Notify.Endpoint == "" {
			return fmt.Errorf("notify.endpoint is required for type http")
		}
	default:
		return fmt.Errorf("unknown notify.type: %s", c.Notify.Type)
	}
	switch c.Analytics.Type {
	case "noop":
	case "http":
		if c.Analytics.Endpoint == "" {
			return fmt.Errorf("analytics.endpoint is required for type http")
		}
	default:
		return fmt.Errorf("unknown analytics.type: %s", c.Analytics.Type)
	}
	return nil
}

// IsDemoRepo reports whether repoName belongs to the demo template set.
func (c *Config) IsDemoRepo(repoName string) bool {
	for _, r := range c.DemoRepos {
		if r == repoName {
			return true
		}
	}
	return false
}
