package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentialEnv(t *testing.T, values map[string]string) {
	t.Helper()
	for _, key := range []string{"CLIENT_ID", "CLIENT_SECRET", "REFRESH_TOKEN", "REDDIT_SESSION", "LOID", "USER_AGENT"} {
		t.Setenv(key, values[key])
	}
}

func TestLoadCredentialsConfig(t *testing.T) {
	setCredentialEnv(t, map[string]string{
		"CLIENT_ID":      "client",
		"CLIENT_SECRET":  "secret",
		"REFRESH_TOKEN":  " refresh ",
		"REDDIT_SESSION": "sess",
	})

	cfg, err := LoadCredentialsConfig()

	require.NoError(t, err)
	assert.Equal(t, "client", cfg.ClientID)
	assert.Equal(t, "secret", cfg.ClientSecret)
	assert.Equal(t, "refresh", cfg.RefreshToken)
	assert.Equal(t, "sess", cfg.RedditSession)
	assert.Empty(t, cfg.LOID)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.True(t, cfg.HasSessionCookies())
}

func TestLoadCredentialsConfig_Missing(t *testing.T) {
	setCredentialEnv(t, map[string]string{"CLIENT_ID": "client"})

	cfg, err := LoadCredentialsConfig()

	assert.Nil(t, cfg)
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Contains(t, err.Error(), "CLIENT_SECRET, REFRESH_TOKEN")
	assert.NotContains(t, err.Error(), "CLIENT_ID")
}

func TestCredentialsConfig_LogValueRedactsSecrets(t *testing.T) {
	cfg := &CredentialsConfig{ClientID: "client", ClientSecret: "s3cr3t", RefreshToken: "r3fr3sh", UserAgent: "ua"}

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("loaded", slog.Any("credentials", cfg))

	out := buf.String()
	assert.NotContains(t, out, "s3cr3t")
	assert.NotContains(t, out, "r3fr3sh")
	assert.Contains(t, out, `"client_id":"client"`)
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, `"session_cookies":false`)
}
