package notify

import (
	"context"
	"sync"

	"trending-watch/internal/domain/entity"
)

// mockChannel records every Send and answers with sendFunc, or nil.
type mockChannel struct {
	name     string
	enabled  bool
	sendFunc func(ctx context.Context, ticker entity.Ticker) error

	mu      sync.Mutex
	tickers []entity.Ticker
}

func (m *mockChannel) Name() string    { return m.name }
func (m *mockChannel) IsEnabled() bool { return m.enabled }

func (m *mockChannel) Send(ctx context.Context, ticker entity.Ticker) error {
	m.mu.Lock()
	m.tickers = append(m.tickers, ticker)
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(ctx, ticker)
	}
	return nil
}

func (m *mockChannel) sent() []entity.Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.Ticker(nil), m.tickers...)
}

func (m *mockChannel) sendCount() int {
	return len(m.sent())
}

// recordingNotifier is an infra notifier double.
type recordingNotifier struct {
	mu      sync.Mutex
	tickers []entity.Ticker
	err     error
}

func (n *recordingNotifier) NotifyTicker(ctx context.Context, ticker entity.Ticker) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tickers = append(n.tickers, ticker)
	return n.err
}
