// Package watch keeps a subscription to the realtime feed alive and turns newly
// trending tickers into notifications.
//
// A Session owns one connection and runs the graphql-transport-ws handshake:
//
//	CONNECTING --open/connection_init--> AWAITING_ACK --connection_ack/subscribe--> SUBSCRIBED
//
// Any state moves to CLOSED on transport failure, server close, context
// cancellation or credential renewal. The Supervisor runs sessions one after
// another, forever, each with a freshly acquired credential.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trending-watch/internal/domain/entity"
	"trending-watch/internal/infra/feed"
	"trending-watch/internal/observability/logging"
	"trending-watch/internal/observability/tracing"
)

// DefaultRenewalMargin is how long before expiry a session closes itself.
const DefaultRenewalMargin = 60 * time.Second

// Transport is an open feed connection.
// Close must unblock a pending ReadFrame and be safe to call more than once.
type Transport interface {
	ReadFrame() ([]byte, error)
	Send(env feed.Envelope) error
	Close() error
}

// DialFunc opens a Transport.
type DialFunc func(ctx context.Context) (Transport, error)

// stopper is the part of *time.Timer a session needs.
type stopper interface {
	Stop() bool
}

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// SessionConfig holds the collaborators of one session.
type SessionConfig struct {
	// ID tags log entries and spans.
	ID string

	// Credential is owned by the session and discarded when it ends.
	Credential *entity.Credential

	Channel       feed.Channel
	RenewalMargin time.Duration

	Dial     DialFunc
	Seen     *SeenSet
	Notifier Notifier
	Logger   *slog.Logger
	Tracer   trace.Tracer

	// OnSubscribed, if set, runs once when the subscribe request was sent.
	OnSubscribed func()

	afterFunc func(time.Duration, func()) stopper
}

// Session is one connection attempt and its handshake state machine.
// A Session is single use: Run may be called once.
type Session struct {
	cfg    SessionConfig
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	conn       Transport
	renewal    stopper
	subscribed bool

	closeOnce sync.Once
	reason    CloseReason
	code      int
	closeErr  error
	startedAt time.Time
}

// NewSession creates a session in StateConnecting.
func NewSession(cfg SessionConfig) *Session {
	if cfg.RenewalMargin <= 0 {
		cfg.RenewalMargin = DefaultRenewalMargin
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = tracing.GetTracer()
	}
	if cfg.afterFunc == nil {
		cfg.afterFunc = realAfterFunc
	}
	return &Session{
		cfg:    cfg,
		logger: logging.WithSessionID(cfg.Logger, cfg.ID),
		state:  StateConnecting,
	}
}

// RenewalDelay returns when a session holding a credential valid for ttl closes
// itself: margin before expiry, but never earlier than half the ttl. The delay
// grows with ttl.
func RenewalDelay(ttl, margin time.Duration) time.Duration {
	return max(ttl-margin, ttl/2)
}

// State returns the current handshake state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run dials, drives the handshake and processes frames until the session ends.
// It always returns a *SessionClosedError.
func (s *Session) Run(ctx context.Context) error {
	ctx, span := s.cfg.Tracer.Start(ctx, "watch.session",
		trace.WithAttributes(attribute.String("session.id", s.cfg.ID)))
	defer span.End()
	ctx = logging.WithLogger(ctx, s.logger)

	s.startedAt = time.Now()
	RecordSessionStarted()

	delay := RenewalDelay(s.cfg.Credential.TTL(), s.cfg.RenewalMargin)
	s.mu.Lock()
	s.renewal = s.cfg.afterFunc(delay, func() {
		s.logger.Info("credential renewal due, closing session")
		s.close(ReasonRenewal, nil)
	})
	s.mu.Unlock()

	stopWatch := context.AfterFunc(ctx, func() {
		s.close(ReasonCanceled, context.Cause(ctx))
	})
	defer stopWatch()

	s.logger.Info("session starting",
		slog.Any("credential", s.cfg.Credential),
		slog.Duration("renewal_in", delay))

	conn, err := s.cfg.Dial(ctx)
	if err != nil {
		s.close(ReasonDialFailed, err)
		return s.finish(span)
	}
	if !s.attach(conn) {
		_ = conn.Close()
		return s.finish(span)
	}

	if !s.transition(StateConnecting, StateAwaitingAck) {
		return s.finish(span)
	}
	if err := s.send(feed.ConnectionInit(s.cfg.Credential.Token)); err != nil {
		return s.finish(span)
	}

	for {
		data, err := conn.ReadFrame()
		if err != nil {
			s.close(ReasonTransportError, err)
			break
		}
		s.handleFrame(ctx, data)
	}

	return s.finish(span)
}

// attach stores conn unless the session was closed while dialing.
func (s *Session) attach(conn Transport) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	s.conn = conn
	return true
}

// transition moves from -> to and reports whether the session was in from.
// Every edge of the state machine goes through here, so an edge can be taken
// at most once per session.
func (s *Session) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

func (s *Session) handleFrame(ctx context.Context, data []byte) {
	env, err := feed.DecodeEnvelope(data)
	if err != nil {
		RecordFrame("malformed")
		s.logger.Warn("dropping malformed frame", slog.Any("error", err))
		return
	}
	RecordFrame(env.Type)

	switch env.Type {
	case feed.TypePing:
		_ = s.send(feed.Pong())
	case feed.TypeConnectionAck:
		s.handleAck()
	case feed.TypeNext:
		s.handleNext(ctx, env)
	case feed.TypeError:
		s.logger.Warn("feed reported an error",
			slog.String("id", env.ID),
			slog.String("payload", string(env.Payload)))
	case feed.TypeComplete:
		s.logger.Info("feed completed the subscription", slog.String("id", env.ID))
	default:
		s.logger.Debug("ignoring frame", slog.String("type", env.Type))
	}
}

func (s *Session) handleAck() {
	if !s.transition(StateAwaitingAck, StateSubscribed) {
		s.logger.Warn("ignoring unexpected connection_ack", slog.String("state", s.State().String()))
		return
	}
	if err := s.send(feed.Subscribe(s.cfg.Channel)); err != nil {
		return
	}

	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()
	SetSubscribed(true)

	s.logger.Info("subscribed to feed", slog.String("tag", s.cfg.Channel.Tag))
	if s.cfg.OnSubscribed != nil {
		s.cfg.OnSubscribed()
	}
}

func (s *Session) handleNext(ctx context.Context, env feed.Envelope) {
	if state := s.State(); state != StateSubscribed {
		s.logger.Warn("dropping data frame before subscription", slog.String("state", state.String()))
		return
	}

	tickers, err := feed.ParseTrendingTickers(env.Payload)
	if err != nil {
		RecordPayloadParseError()
		s.logger.Warn("dropping malformed data frame", slog.Any("error", err))
		return
	}

	s.emit(ctx, tickers)
}

// emit notifies each ticker not seen before, in list order.
func (s *Session) emit(ctx context.Context, tickers []entity.Ticker) {
	fresh := 0
	for _, ticker := range tickers {
		if err := ticker.Validate(); err != nil {
			s.logger.Warn("skipping invalid ticker", slog.String("ticker", ticker.String()), slog.Any("error", err))
			continue
		}
		if !s.cfg.Seen.Add(ticker) {
			continue
		}
		fresh++
		SetSeenSetSize(s.cfg.Seen.Len())
		s.logger.Info("new trending ticker", slog.String("ticker", ticker.String()))

		if err := s.cfg.Notifier.NotifyTicker(ctx, ticker); err != nil {
			RecordNotifyError()
			s.logger.Error("notification failed",
				slog.String("ticker", ticker.String()),
				slog.Any("error", err))
		}
	}

	RecordTickers(len(tickers), fresh)
	if fresh == 0 {
		s.logger.Info("no new tickers", slog.Int("received", len(tickers)))
	}
}

// send writes env; a failed write ends the session.
func (s *Session) send(env feed.Envelope) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if err := conn.Send(env); err != nil {
		s.logger.Warn("send failed", slog.String("type", env.Type), slog.Any("error", err))
		s.close(ReasonTransportError, err)
		return err
	}
	return nil
}

// close is the only way a session ends. The first call wins; later calls,
// from the renewal timer, the context watcher or the read loop, do nothing.
// The renewal timer is stopped before the connection is closed.
func (s *Session) close(reason CloseReason, err error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.renewal != nil {
			s.renewal.Stop()
		}
		if reason == ReasonTransportError {
			var terr *feed.TransportError
			if errors.As(err, &terr) && terr.PeerClosed() {
				reason = ReasonServerClosed
				s.code = terr.Code
			}
		}
		s.state = StateClosed
		s.reason = reason
		s.closeErr = err
		conn := s.conn
		subscribed := s.subscribed
		s.mu.Unlock()

		if conn != nil {
			if cerr := conn.Close(); cerr != nil {
				s.logger.Debug("closing transport", slog.Any("error", cerr))
			}
		}
		if subscribed {
			SetSubscribed(false)
		}
	})
}

func (s *Session) finish(span trace.Span) error {
	s.mu.Lock()
	result := &SessionClosedError{
		Reason:     s.reason,
		Code:       s.code,
		Subscribed: s.subscribed,
		Err:        s.closeErr,
	}
	s.mu.Unlock()

	lifetime := time.Since(s.startedAt)
	RecordSessionClosed(result.Reason, lifetime)
	span.SetAttributes(
		attribute.String("session.close_reason", string(result.Reason)),
		attribute.Bool("session.subscribed", result.Subscribed),
	)

	level := slog.LevelInfo
	if result.Reason == ReasonTransportError || result.Reason == ReasonDialFailed {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "session closed",
		slog.String("reason", string(result.Reason)),
		slog.Int("code", result.Code),
		slog.Bool("subscribed", result.Subscribed),
		slog.Duration("lifetime", lifetime),
		slog.Any("error", result.Err))

	return result
}
