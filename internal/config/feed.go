package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trending-watch/internal/domain/entity"
	"trending-watch/internal/infra/feed"
	"trending-watch/internal/infra/oauth"
	pkgconfig "trending-watch/internal/pkg/config"
)

// Feed endpoint defaults.
const (
	DefaultFeedURL          = "wss://gql-realtime.reddit.com/query"
	DefaultFeedOrigin       = "https://www.reddit.com"
	DefaultHandshakeTimeout = 15 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultTokenTimeout     = 30 * time.Second
)

// FeedConfig describes where and how to subscribe.
type FeedConfig struct {
	URL      string       `yaml:"url"`
	Origin   string       `yaml:"origin"`
	TokenURL string       `yaml:"token_url"`
	Channel  feed.Channel `yaml:"channel"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	TokenTimeout     time.Duration `yaml:"token_timeout"`
}

// feedFile is the layout of the optional FEED_CONFIG_PATH file.
type feedFile struct {
	Feed FeedConfig `yaml:"feed"`
}

// DefaultFeedConfig returns the production endpoints and channel.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		URL:              DefaultFeedURL,
		Origin:           DefaultFeedOrigin,
		TokenURL:         oauth.DefaultTokenURL,
		Channel:          feed.DefaultChannel(),
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		TokenTimeout:     DefaultTokenTimeout,
	}
}

// LoadFeedConfig builds the feed configuration in three layers: defaults, then
// the YAML file named by FEED_CONFIG_PATH (if any), then FEED_URL, FEED_ORIGIN
// and TOKEN_URL from the environment.
//
// Example file:
//
//	feed:
//	  url: wss://gql-realtime.reddit.com/query
//	  channel:
//	    team_owner: DEV_PLATFORM
//	    category: DEV_PLATFORM_APP_EVENTS
//	    tag: wsbapp:771348a3-fe17-45f7-9e5d-4741f9b38b5b:LIVE_FEED
func LoadFeedConfig() (*FeedConfig, error) {
	cfg := DefaultFeedConfig()

	if path := pkgconfig.LoadEnvString("FEED_CONFIG_PATH", ""); path != "" {
		if err := overlayFeedFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.URL = pkgconfig.LoadEnvString("FEED_URL", cfg.URL)
	cfg.Origin = pkgconfig.LoadEnvString("FEED_ORIGIN", cfg.Origin)
	cfg.TokenURL = pkgconfig.LoadEnvString("TOKEN_URL", cfg.TokenURL)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feed configuration: %w", err)
	}
	return &cfg, nil
}

// overlayFeedFile decodes path on top of cfg; fields absent from the file keep
// their current values.
func overlayFeedFile(cfg *FeedConfig, path string) error {
	// #nosec G304 -- path comes from the operator's environment, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read feed config file: %w", err)
	}

	file := feedFile{Feed: *cfg}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse feed config file: %w", err)
	}
	*cfg = file.Feed
	return nil
}

// Validate checks endpoints, channel and timeouts.
func (c *FeedConfig) Validate() error {
	if err := entity.ValidateEndpoint(c.URL, "wss", "ws"); err != nil {
		return fmt.Errorf("feed url: %w", err)
	}
	if err := entity.ValidateEndpoint(c.TokenURL, "https", "http"); err != nil {
		return fmt.Errorf("token url: %w", err)
	}
	if err := c.Channel.Validate(); err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"handshake_timeout", c.HandshakeTimeout},
		{"write_timeout", c.WriteTimeout},
		{"token_timeout", c.TokenTimeout},
	}
	for _, t := range timeouts {
		if err := pkgconfig.ValidatePositiveDuration(t.value); err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
	}
	return nil
}
