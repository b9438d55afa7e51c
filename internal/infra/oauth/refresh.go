// Package oauth exchanges a long-lived refresh token for a short-lived bearer
// credential at an OAuth2 token endpoint.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"trending-watch/internal/domain/entity"
	"trending-watch/internal/observability/tracing"
	"trending-watch/internal/resilience/circuitbreaker"
)

const (
	// DefaultTokenURL is Reddit's OAuth2 token endpoint.
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	defaultTimeout  = 30 * time.Second
	maxErrorExcerpt = 200
)

// Config holds the client identity and refresh credential.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	UserAgent    string

	// Timeout bounds one exchange (default 30s).
	Timeout time.Duration
}

// Validate checks that every field needed for the exchange is present.
func (c Config) Validate() error {
	var missing []string
	if c.TokenURL == "" {
		missing = append(missing, "token URL")
	}
	if c.ClientID == "" {
		missing = append(missing, "client id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if c.RefreshToken == "" {
		missing = append(missing, "refresh token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return entity.ValidateEndpoint(c.TokenURL, "https", "http")
}

// Option customizes a RefreshTokenSource.
type Option func(*RefreshTokenSource)

// WithHTTPClient replaces the HTTP client used for the exchange.
func WithHTTPClient(client *http.Client) Option {
	return func(s *RefreshTokenSource) { s.httpClient = client }
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *RefreshTokenSource) { s.tracer = tracing.TracerFrom(tp) }
}

// WithBreakerConfig replaces circuitbreaker.TokenEndpointConfig.
func WithBreakerConfig(cfg circuitbreaker.Config) Option {
	return func(s *RefreshTokenSource) { s.breaker = circuitbreaker.New(cfg) }
}

// WithClock overrides time.Now for the credential's IssuedAt.
func WithClock(now func() time.Time) Option {
	return func(s *RefreshTokenSource) { s.now = now }
}

// RefreshTokenSource performs the refresh_token grant through golang.org/x/oauth2.
// It holds no state beyond its configuration and the circuit breaker; every
// Acquire is one HTTP exchange.
type RefreshTokenSource struct {
	cfg        Config
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	tracer     trace.Tracer
	now        func() time.Time
}

// NewRefreshTokenSource validates cfg and builds a token source.
func NewRefreshTokenSource(cfg Config, opts ...Option) (*RefreshTokenSource, error) {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &RefreshTokenSource{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    circuitbreaker.New(circuitbreaker.TokenEndpointConfig()),
		tracer:     tracing.GetTracer(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Acquire exchanges the refresh token for a new credential.
// There is no retry here; every failure is returned as *AuthError.
func (s *RefreshTokenSource) Acquire(ctx context.Context) (cred *entity.Credential, err error) {
	ctx, span := s.tracer.Start(ctx, "oauth.acquire",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("oauth.token_url", s.cfg.TokenURL)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	cred, err = circuitbreaker.Execute(s.breaker, func() (*entity.Credential, error) {
		return s.exchange(ctx)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, &AuthError{Message: "token endpoint circuit open", Err: err}
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("oauth.expires_in", cred.ExpiresInSeconds))
	return cred, nil
}

// userAgentTransport sets the User-Agent header the token endpoint requires.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// client returns the HTTP client the oauth2 package uses for the exchange.
func (s *RefreshTokenSource) client() *http.Client {
	if s.cfg.UserAgent == "" {
		return s.httpClient
	}
	base := s.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c := *s.httpClient
	c.Transport = &userAgentTransport{base: base, userAgent: s.cfg.UserAgent}
	return &c
}

func (s *RefreshTokenSource) exchange(ctx context.Context) (*entity.Credential, error) {
	conf := &oauth2.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  s.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client())

	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: s.cfg.RefreshToken}).Token()
	if err != nil {
		return nil, classify(ctx, err)
	}

	cred := &entity.Credential{
		Token:            tok.AccessToken,
		ExpiresInSeconds: expiresIn(tok, s.now()),
		IssuedAt:         s.now(),
	}
	if err := cred.Validate(); err != nil {
		return nil, &AuthError{Message: "unusable credential", Err: err}
	}
	return cred, nil
}

// classify turns an oauth2 failure into an *AuthError. A cancelled context is
// kept in the chain so the circuit breaker does not count it.
func classify(ctx context.Context, err error) *AuthError {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		authErr := &AuthError{Message: excerpt(rErr.Body), Err: err}
		if rErr.Response != nil {
			authErr.StatusCode = rErr.Response.StatusCode
		}
		if rErr.ErrorCode != "" {
			authErr.Message = "endpoint returned error " + rErr.ErrorCode
		}
		return authErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return &AuthError{Message: "exchange", Err: err}
}

// expiresIn reads expires_in, falling back to the computed expiry when the
// endpoint answered form-encoded.
func expiresIn(tok *oauth2.Token, now time.Time) int {
	if tok.ExpiresIn != 0 {
		return int(tok.ExpiresIn)
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return int(tok.Expiry.Sub(now).Round(time.Second).Seconds())
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorExcerpt {
		return s[:maxErrorExcerpt] + "..."
	}
	return s
}
