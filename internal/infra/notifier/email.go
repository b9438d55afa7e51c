package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"trending-watch/internal/domain/entity"
	"trending-watch/internal/resilience/retry"
)

// Gmail submission endpoint, used when no host is configured.
const (
	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 587
)

// EmailConfig contains configuration for SMTP notifications.
type EmailConfig struct {
	// Enabled indicates whether email notifications are enabled
	Enabled bool

	// Host and Port of the SMTP submission server
	Host string
	Port int

	// Username is the sender account; it is also the From address unless From is set
	Username string

	// Password is the account's app password. Empty disables AUTH.
	Password string

	From string

	// To lists every recipient; one message is sent to all of them
	To []string

	// Timeout bounds one SMTP conversation
	Timeout time.Duration

	// TLSPolicy defaults to mandatory STARTTLS
	TLSPolicy mail.TLSPolicy
}

// EmailNotifier sends ticker alerts as plain-text email over SMTP.
type EmailNotifier struct {
	config      EmailConfig
	rateLimiter *RateLimiter
	retryConfig retry.Config
	now         func() time.Time
}

// NewEmailNotifier creates a new EmailNotifier, filling in the Gmail defaults
// for an empty host or port. Messages are limited to one per second.
func NewEmailNotifier(config EmailConfig) *EmailNotifier {
	if config.Host == "" {
		config.Host = DefaultSMTPHost
	}
	if config.Port == 0 {
		config.Port = DefaultSMTPPort
	}
	if config.From == "" {
		config.From = config.Username
	}
	return &EmailNotifier{
		config:      config,
		rateLimiter: NewRateLimiter(1.0, 1),
		retryConfig: retry.EmailConfig(),
		now:         time.Now,
	}
}

// NotifyTicker implements Notifier.
func (e *EmailNotifier) NotifyTicker(ctx context.Context, ticker entity.Ticker) error {
	ctx, requestID := withRequestID(ctx)
	logger := slog.With(
		slog.String("request_id", requestID),
		slog.String("ticker", ticker.String()))

	if len(e.config.To) == 0 {
		return fmt.Errorf("email notification: no recipients configured")
	}

	logger.Info("Starting email notification", slog.Int("recipients", len(e.config.To)))

	if err := e.rateLimiter.Allow(ctx); err != nil {
		logger.Error("Rate limiter error", slog.Any("error", err))
		return fmt.Errorf("rate limiter error: %w", err)
	}

	msg, err := e.buildMessage(ticker)
	if err != nil {
		return fmt.Errorf("email notification: %w", err)
	}
	err = retry.WithBackoff(ctx, e.retryConfig, func() error {
		return e.sendMail(ctx, msg)
	})
	if err != nil {
		logger.Error("Email notification failed", slog.Any("error", err))
		return fmt.Errorf("email notification: %w", err)
	}

	logger.Info("Email notification successful")
	return nil
}

// buildMessage renders the alert as a plain-text message.
func (e *EmailNotifier) buildMessage(ticker entity.Ticker) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithEncoding(mail.NoEncoding))
	if err := msg.From(e.config.From); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(e.config.To...); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(Subject(ticker))
	msg.SetDateWithValue(e.now())
	msg.SetMessageIDWithValue(uuid.New().String() + "@trending-watch")
	msg.SetBodyString(mail.TypeTextPlain, Body(ticker))
	return msg, nil
}

// newClient builds a client for one delivery. AUTH PLAIN is only used
// when a password is configured.
func (e *EmailNotifier) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(e.config.Port),
		mail.WithTLSPolicy(e.config.TLSPolicy),
		mail.WithTLSConfig(&tls.Config{ServerName: e.config.Host, MinVersion: tls.VersionTLS12}),
	}
	if e.config.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(e.config.Timeout))
	}
	if e.config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.config.Username),
			mail.WithPassword(e.config.Password))
	}
	return mail.NewClient(e.config.Host, opts...)
}

// sendMail runs one SMTP conversation. Server replies surface as
// *mail.SendError, whose IsTemp decides whether retry.WithBackoff tries again.
func (e *EmailNotifier) sendMail(ctx context.Context, msg *mail.Msg) error {
	client, err := e.newClient()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send to %s: %w", net.JoinHostPort(e.config.Host, strconv.Itoa(e.config.Port)), err)
	}
	return nil
}
