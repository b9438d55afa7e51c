// Package config loads the watcher's process configuration: OAuth and session
// credentials, the feed endpoint, and the notification channels.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	pkgconfig "trending-watch/internal/pkg/config"
)

// DefaultUserAgent is sent on the token exchange and the websocket handshake.
const DefaultUserAgent = "trending-watch/1.0"

// ErrMissingCredentials is returned when a required credential is unset.
var ErrMissingCredentials = errors.New("missing required credentials")

// CredentialsConfig holds the secrets used to authenticate against the feed.
type CredentialsConfig struct {
	// ClientID and ClientSecret identify the installed app (HTTP basic auth on
	// the token endpoint).
	ClientID     string
	ClientSecret string

	// RefreshToken is exchanged for a bearer token before every session.
	RefreshToken string

	// RedditSession and LOID are optional browser cookies sent with the
	// websocket handshake.
	RedditSession string
	LOID          string

	UserAgent string
}

// LoadCredentialsConfig reads credentials from the environment.
//
// Environment variables:
//   - CLIENT_ID, CLIENT_SECRET, REFRESH_TOKEN: required
//   - REDDIT_SESSION, LOID: optional session cookies
//   - USER_AGENT: default DefaultUserAgent
//
// Unlike the fail-open worker settings, missing credentials are fatal: the
// watcher cannot do anything without them.
func LoadCredentialsConfig() (*CredentialsConfig, error) {
	cfg := &CredentialsConfig{
		ClientID:      strings.TrimSpace(pkgconfig.LoadEnvString("CLIENT_ID", "")),
		ClientSecret:  strings.TrimSpace(pkgconfig.LoadEnvString("CLIENT_SECRET", "")),
		RefreshToken:  strings.TrimSpace(pkgconfig.LoadEnvString("REFRESH_TOKEN", "")),
		RedditSession: pkgconfig.LoadEnvString("REDDIT_SESSION", ""),
		LOID:          pkgconfig.LoadEnvString("LOID", ""),
		UserAgent:     pkgconfig.LoadEnvString("USER_AGENT", DefaultUserAgent),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing required variable at once.
func (c *CredentialsConfig) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "CLIENT_SECRET")
	}
	if c.RefreshToken == "" {
		missing = append(missing, "REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// HasSessionCookies reports whether any session cookie is configured.
func (c *CredentialsConfig) HasSessionCookies() bool {
	return c.RedditSession != "" || c.LOID != ""
}

// LogValue implements slog.LogValuer; secrets never reach the log.
func (c *CredentialsConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("client_id", c.ClientID),
		slog.String("client_secret", redact(c.ClientSecret)),
		slog.String("refresh_token", redact(c.RefreshToken)),
		slog.Bool("session_cookies", c.HasSessionCookies()),
		slog.String("user_agent", c.UserAgent),
	)
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[REDACTED]"
}
