package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"trending-watch/internal/domain/entity"
	"trending-watch/internal/infra/feed"
	"trending-watch/internal/observability/tracing"
	"trending-watch/internal/resilience/retry"
)

// DefaultReconnectDelay is the pause between two sessions.
const DefaultReconnectDelay = 5 * time.Second

// CredentialSource exchanges the configured refresh token for a new credential.
type CredentialSource interface {
	Acquire(ctx context.Context) (*entity.Credential, error)
}

// SupervisorConfig configures the reconnect loop.
type SupervisorConfig struct {
	Channel       feed.Channel
	RenewalMargin time.Duration

	// Backoff is the delay policy between sessions.
	// The zero value means a fixed DefaultReconnectDelay.
	Backoff retry.BackoffConfig
}

// SupervisorOption customizes a Supervisor.
type SupervisorOption func(*Supervisor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) { s.logger = logger }
}

// WithReadinessHook registers fn to be told when a session becomes subscribed
// (true) and when it ends (false).
func WithReadinessHook(fn func(ready bool)) SupervisorOption {
	return func(s *Supervisor) { s.readiness = fn }
}

// WithTracerProvider sets the provider session spans are created from.
func WithTracerProvider(tp trace.TracerProvider) SupervisorOption {
	return func(s *Supervisor) { s.tracer = tracing.TracerFrom(tp) }
}

// Supervisor runs sessions one at a time until its context ends:
// acquire a credential, run a session to completion, wait, repeat.
// A failed acquisition is retried after the same wait; nothing but context
// cancellation stops the loop.
type Supervisor struct {
	source   CredentialSource
	dial     DialFunc
	seen     *SeenSet
	notifier Notifier
	cfg      SupervisorConfig

	logger    *slog.Logger
	tracer    trace.Tracer
	readiness func(bool)
	backoff   *retry.Backoff
	sessions  atomic.Int64

	sleep     func(ctx context.Context, d time.Duration) error
	newID     func() string
	afterFunc func(time.Duration, func()) stopper
}

// NewSupervisor creates a Supervisor. seen must be the process-wide SeenSet;
// it is handed to every session and never replaced.
func NewSupervisor(source CredentialSource, dial DialFunc, seen *SeenSet, notifier Notifier, cfg SupervisorConfig, opts ...SupervisorOption) *Supervisor {
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = retry.FixedBackoff(DefaultReconnectDelay)
	}
	if cfg.RenewalMargin <= 0 {
		cfg.RenewalMargin = DefaultRenewalMargin
	}

	s := &Supervisor{
		source:   source,
		dial:     dial,
		seen:     seen,
		notifier: notifier,
		cfg:      cfg,
		logger:   slog.Default(),
		tracer:   tracing.GetTracer(),
		backoff:  retry.NewBackoff(cfg.Backoff),
		sleep:    retry.Sleep,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sessions returns how many sessions were started.
func (s *Supervisor) Sessions() int64 {
	return s.sessions.Load()
}

// Run loops until ctx is done and then returns ctx.Err().
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("supervisor started",
		slog.String("tag", s.cfg.Channel.Tag),
		slog.Duration("renewal_margin", s.cfg.RenewalMargin))

	for {
		s.runOnce(ctx)
		if err := ctx.Err(); err != nil {
			s.logger.Info("supervisor stopped", slog.Int64("sessions", s.Sessions()))
			return err
		}

		delay := s.backoff.Next()
		s.logger.Info("reconnecting after delay",
			slog.Duration("delay", delay),
			slog.Int("attempt", s.backoff.Attempts()))
		if err := s.sleep(ctx, delay); err != nil {
			s.logger.Info("supervisor stopped", slog.Int64("sessions", s.Sessions()))
			return err
		}
	}
}

// runOnce acquires a credential and runs one session with it.
func (s *Supervisor) runOnce(ctx context.Context) {
	cred, err := s.source.Acquire(ctx)
	if err != nil {
		RecordCredentialAcquisition(false)
		if ctx.Err() == nil {
			s.logger.Error("credential acquisition failed", slog.Any("error", err))
		}
		return
	}
	RecordCredentialAcquisition(true)

	s.sessions.Add(1)
	session := NewSession(SessionConfig{
		ID:            s.newID(),
		Credential:    cred,
		Channel:       s.cfg.Channel,
		RenewalMargin: s.cfg.RenewalMargin,
		Dial:          s.dial,
		Seen:          s.seen,
		Notifier:      s.notifier,
		Logger:        s.logger,
		Tracer:        s.tracer,
		OnSubscribed:  func() { s.setReady(true) },
		afterFunc:     s.afterFunc,
	})

	err = session.Run(ctx)
	s.setReady(false)

	var closed *SessionClosedError
	if errors.As(err, &closed) && closed.Subscribed {
		s.backoff.Reset()
	}
}

func (s *Supervisor) setReady(ready bool) {
	if s.readiness != nil {
		s.readiness(ready)
	}
}
