// Package entity defines the core domain values of the watcher: the trending
// ticker symbols observed on the feed and the short-lived credential used to
// authenticate a feed session.
package entity

import (
	"strings"
	"unicode/utf8"
)

// maxTickerLength bounds the size of a single item id taken from the feed.
const maxTickerLength = 32

// Ticker is the identifier of one feed item (a trending stock symbol such as "GME").
// Tickers are compared by plain string equality; no case folding is applied.
type Ticker string

// String returns the ticker symbol.
func (t Ticker) String() string {
	return string(t)
}

// Validate reports whether the ticker can be recorded and notified.
// Empty, whitespace-only and oversized ids are rejected.
func (t Ticker) Validate() error {
	if strings.TrimSpace(string(t)) == "" {
		return &ValidationError{Field: "ticker", Message: "ticker is required"}
	}
	if utf8.RuneCountInString(string(t)) > maxTickerLength {
		return &ValidationError{Field: "ticker", Message: "ticker is too long"}
	}
	return nil
}

// TickersFromStrings converts raw ids into Tickers, preserving order.
func TickersFromStrings(ids []string) []Ticker {
	out := make([]Ticker, 0, len(ids))
	for _, id := range ids {
		out = append(out, Ticker(id))
	}
	return out
}
