package watch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"trending-watch/internal/infra/feed"
)

// Prometheus metrics for the feed watcher
var (
	// sessionsStartedTotal counts sessions handed a credential
	sessionsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_sessions_started_total",
			Help: "Total number of feed sessions started",
		},
	)

	// sessionsClosedTotal counts ended sessions by close reason
	sessionsClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_sessions_closed_total",
			Help: "Total number of feed sessions closed",
		},
		[]string{"reason"}, // reason: renewal|server_closed|transport_error|dial_failed|canceled
	)

	// sessionDuration tracks how long sessions stay open
	sessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watch_session_duration_seconds",
			Help:    "Feed session lifetime in seconds",
			Buckets: []float64{1, 10, 60, 600, 3600, 21600, 86400},
		},
	)

	// sessionSubscribed is 1 while a session is subscribed
	sessionSubscribed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watch_session_subscribed",
			Help: "Whether a feed session is currently subscribed (1) or not (0)",
		},
	)

	// framesReceivedTotal counts inbound frames by protocol type
	framesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_frames_received_total",
			Help: "Total number of inbound feed frames",
		},
		[]string{"type"}, // protocol type, "other" or "malformed"
	)

	// payloadParseErrorsTotal counts next frames whose nested payload did not parse
	payloadParseErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_payload_parse_errors_total",
			Help: "Total number of data frames dropped because the payload did not parse",
		},
	)

	// tickersReceivedTotal counts ticker ids in data frames, duplicates included
	tickersReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_tickers_received_total",
			Help: "Total number of ticker ids received in data frames",
		},
	)

	// tickersNewTotal counts tickers seen for the first time
	tickersNewTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_tickers_new_total",
			Help: "Total number of tickers seen for the first time",
		},
	)

	// seenSetSize tracks the size of the SeenSet
	seenSetSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watch_seen_set_size",
			Help: "Number of distinct tickers seen since start",
		},
	)

	// notifyErrorsTotal counts notifier errors returned to the session
	notifyErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watch_notify_errors_total",
			Help: "Total number of notifier errors",
		},
	)

	// credentialAcquisitionsTotal counts token exchanges by result
	credentialAcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watch_credential_acquisitions_total",
			Help: "Total number of credential acquisitions",
		},
		[]string{"result"}, // result: success|failure
	)
)

var knownFrameTypes = map[string]bool{
	feed.TypeConnectionAck: true,
	feed.TypePing:          true,
	feed.TypePong:          true,
	feed.TypeNext:          true,
	feed.TypeError:         true,
	feed.TypeComplete:      true,
}

// RecordFrame counts one inbound frame. Unknown types share the "other" label.
func RecordFrame(frameType string) {
	if !knownFrameTypes[frameType] && frameType != "malformed" {
		frameType = "other"
	}
	framesReceivedTotal.WithLabelValues(frameType).Inc()
}

// RecordPayloadParseError counts a next frame whose payload was dropped. The
// frame itself is already counted by RecordFrame.
func RecordPayloadParseError() {
	payloadParseErrorsTotal.Inc()
}

// RecordSessionStarted counts a started session.
func RecordSessionStarted() {
	sessionsStartedTotal.Inc()
}

// RecordSessionClosed counts a closed session and observes its lifetime.
func RecordSessionClosed(reason CloseReason, lifetime time.Duration) {
	sessionsClosedTotal.WithLabelValues(string(reason)).Inc()
	sessionDuration.Observe(lifetime.Seconds())
}

// SetSubscribed flips the subscribed gauge.
func SetSubscribed(subscribed bool) {
	if subscribed {
		sessionSubscribed.Set(1)
		return
	}
	sessionSubscribed.Set(0)
}

// RecordTickers counts the ids of one data frame and how many were new.
func RecordTickers(received, fresh int) {
	tickersReceivedTotal.Add(float64(received))
	tickersNewTotal.Add(float64(fresh))
}

// SetSeenSetSize publishes the SeenSet size.
func SetSeenSetSize(n int) {
	seenSetSize.Set(float64(n))
}

// RecordNotifyError counts a notifier error.
func RecordNotifyError() {
	notifyErrorsTotal.Inc()
}

// RecordCredentialAcquisition counts a token exchange.
func RecordCredentialAcquisition(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	credentialAcquisitionsTotal.WithLabelValues(result).Inc()
}
