package entity

import (
	"log/slog"
	"time"
)

// Credential is a short-lived bearer token and its validity window.
// It is created by the token source and owned by the feed session that requested it.
type Credential struct {
	Token            string
	ExpiresInSeconds int
	IssuedAt         time.Time
}

// TTL returns the validity window of the credential.
func (c Credential) TTL() time.Duration {
	return time.Duration(c.ExpiresInSeconds) * time.Second
}

// ExpiresAt returns the absolute expiry time.
func (c Credential) ExpiresAt() time.Time {
	return c.IssuedAt.Add(c.TTL())
}

// Validate checks that the credential can be used to open a session.
func (c Credential) Validate() error {
	if c.Token == "" {
		return &ValidationError{Field: "access_token", Message: "access token is empty"}
	}
	if c.ExpiresInSeconds <= 0 {
		return &ValidationError{Field: "expires_in", Message: "expires_in must be positive"}
	}
	return nil
}

// LogValue keeps the bearer token out of structured logs.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("token", "[REDACTED]"),
		slog.Int("expires_in", c.ExpiresInSeconds),
		slog.Time("expires_at", c.ExpiresAt()),
	)
}
