package notify

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"trending-watch/internal/domain/entity"
	"trending-watch/internal/observability/logging"
)

// Defaults for the per-channel circuit breaker and worker pool.
const (
	DefaultBreakerThreshold = 5                // consecutive failures before opening
	DefaultBreakerTimeout   = 5 * time.Minute  // how long an open breaker rejects sends
	workerPoolTimeout       = 5 * time.Second  // wait for a free worker slot
	notificationTimeout     = 30 * time.Second // bound for one channel send
)

// Service dispatches ticker alerts to multiple channels without blocking the
// caller. It satisfies watch.Notifier.
type Service interface {
	// NotifyTicker schedules ticker for delivery on every enabled channel and
	// returns immediately. Delivery failures are logged and counted, never
	// returned.
	//
	// Returns:
	//   - ErrInvalidTicker: ticker failed validation, nothing was scheduled
	//   - ErrServiceClosed: Shutdown was already called
	NotifyTicker(ctx context.Context, ticker entity.Ticker) error

	// GetChannelHealth returns the breaker state of every channel.
	GetChannelHealth() []ChannelHealthStatus

	// Shutdown stops accepting work, cancels in-flight sends and waits for
	// them until ctx is done.
	Shutdown(ctx context.Context) error
}

// ChannelHealthStatus represents the health status of a notification channel.
type ChannelHealthStatus struct {
	Name               string     `json:"name"`
	Enabled            bool       `json:"enabled"`
	CircuitBreakerOpen bool       `json:"circuit_breaker_open"`
	DisabledUntil      *time.Time `json:"disabled_until,omitempty"`
}

// Option customizes the service.
type Option func(*service)

// WithBreaker overrides the failure threshold and open duration.
func WithBreaker(threshold int, timeout time.Duration) Option {
	return func(s *service) {
		if threshold > 0 {
			s.breakerThreshold = threshold
		}
		if timeout > 0 {
			s.breakerTimeout = timeout
		}
	}
}

// WithSendTimeout overrides the per-send timeout.
func WithSendTimeout(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

type service struct {
	channels      []Channel
	workerPool    chan struct{}
	channelHealth map[string]*channelHealth // read-only after construction
	wg            sync.WaitGroup

	mu             sync.Mutex // guards closed and wg.Add against Shutdown
	closed         bool
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc

	breakerThreshold int
	breakerTimeout   time.Duration
	sendTimeout      time.Duration
	now              func() time.Time
}

type channelHealth struct {
	mu                  sync.Mutex
	consecutiveFailures int
	disabledUntil       time.Time
}

// NewService creates a notification service over channels with at most
// maxConcurrent sends in flight.
func NewService(channels []Channel, maxConcurrent int, opts ...Option) Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	svc := &service{
		channels:         channels,
		workerPool:       make(chan struct{}, maxConcurrent),
		channelHealth:    make(map[string]*channelHealth, len(channels)),
		shutdownCtx:      shutdownCtx,
		shutdownCancel:   shutdownCancel,
		breakerThreshold: DefaultBreakerThreshold,
		breakerTimeout:   DefaultBreakerTimeout,
		sendTimeout:      notificationTimeout,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}

	enabled := 0
	for _, ch := range channels {
		svc.channelHealth[ch.Name()] = &channelHealth{}
		if ch.IsEnabled() {
			enabled++
		}
	}
	SetChannelsEnabled(enabled)

	return svc
}

// NotifyTicker implements Service.NotifyTicker.
func (s *service) NotifyTicker(ctx context.Context, ticker entity.Ticker) error {
	if err := ticker.Validate(); err != nil {
		return invalidTicker(err)
	}

	logger := logging.FromContext(ctx).With(
		slog.String("request_id", uuid.New().String()),
		slog.String("ticker", ticker.String()))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServiceClosed
	}

	dispatched := 0
	for _, ch := range s.channels {
		if !ch.IsEnabled() {
			continue
		}
		dispatched++
		s.wg.Add(1)
		go s.notifyChannel(logger, ch, ticker)
	}

	if dispatched == 0 {
		logger.Debug("No notification channels enabled")
		return nil
	}
	logger.Info("Dispatching ticker notification", slog.Int("enabled_channels", dispatched))
	return nil
}

// notifyChannel sends to a single channel; it runs in its own goroutine.
func (s *service) notifyChannel(logger *slog.Logger, channel Channel, ticker entity.Ticker) {
	defer s.wg.Done()

	incrementActiveGoroutines()
	defer decrementActiveGoroutines()

	logger = logger.With(slog.String("channel", channel.Name()))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in notification channel",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	timer := time.NewTimer(workerPoolTimeout)
	defer timer.Stop()
	select {
	case s.workerPool <- struct{}{}:
		defer func() { <-s.workerPool }()
	case <-timer.C:
		logger.Warn("Notification dropped: worker pool full")
		RecordDropped(channel.Name(), "pool_full")
		return
	case <-s.shutdownCtx.Done():
		RecordDropped(channel.Name(), "shutdown")
		return
	}

	health := s.channelHealth[channel.Name()]
	if until, open := s.breakerOpen(health); open {
		logger.Warn("Channel temporarily disabled due to circuit breaker",
			slog.Time("disabled_until", until))
		RecordDropped(channel.Name(), "circuit_open")
		return
	}

	ctx, cancel := context.WithTimeout(s.shutdownCtx, s.sendTimeout)
	defer cancel()

	RecordDispatch(channel.Name())
	start := time.Now()
	err := channel.Send(ctx, ticker)
	duration := time.Since(start)
	RecordResult(channel.Name(), err, duration)

	if s.recordOutcome(health, err) {
		logger.Error("Circuit breaker opened for channel",
			slog.Int("consecutive_failures", s.breakerThreshold),
			slog.Duration("open_for", s.breakerTimeout))
		RecordCircuitBreakerOpen(channel.Name())
	}

	if err != nil {
		logger.Warn("Channel notification failed",
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
		return
	}
	logger.Info("Channel notification sent successfully",
		slog.Duration("send_duration", duration))
}

func (s *service) breakerOpen(h *channelHealth) (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disabledUntil, s.now().Before(h.disabledUntil)
}

// recordOutcome updates the failure streak and reports whether this failure
// tripped the breaker.
func (s *service) recordOutcome(h *channelHealth, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err == nil {
		h.consecutiveFailures = 0
		return false
	}
	h.consecutiveFailures++
	if h.consecutiveFailures < s.breakerThreshold {
		return false
	}
	h.consecutiveFailures = 0
	h.disabledUntil = s.now().Add(s.breakerTimeout)
	return true
}

// GetChannelHealth implements Service.GetChannelHealth.
func (s *service) GetChannelHealth() []ChannelHealthStatus {
	statuses := make([]ChannelHealthStatus, 0, len(s.channels))
	for _, ch := range s.channels {
		status := ChannelHealthStatus{Name: ch.Name(), Enabled: ch.IsEnabled()}
		if until, open := s.breakerOpen(s.channelHealth[ch.Name()]); open {
			status.CircuitBreakerOpen = true
			status.DisabledUntil = &until
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Shutdown implements Service.Shutdown.
func (s *service) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down notification service")

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.shutdownCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Notification service shutdown complete")
		return nil
	case <-ctx.Done():
		slog.Warn("Notification service shutdown timeout")
		return ctx.Err()
	}
}
