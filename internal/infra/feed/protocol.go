// Package feed implements the graphql-transport-ws protocol spoken by the
// realtime push endpoint, and the websocket transport it runs on.
//
// The package is transport plumbing only: it builds outbound envelopes, decodes
// inbound ones and extracts the trending ticker list from data frames. The
// session state machine that decides what to send when lives in
// internal/usecase/watch.
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"trending-watch/internal/domain/entity"
)

// Subprotocol is the websocket subprotocol negotiated on connect.
const Subprotocol = "graphql-transport-ws"

// Message types of the graphql-transport-ws protocol.
const (
	TypeConnectionInit = "connection_init"
	TypeConnectionAck  = "connection_ack"
	TypePing           = "ping"
	TypePong           = "pong"
	TypeSubscribe      = "subscribe"
	TypeNext           = "next"
	TypeError          = "error"
	TypeComplete       = "complete"
)

const (
	// SubscriptionID is the id of the single subscription a session opens.
	SubscriptionID = "1"

	// OperationName is the GraphQL operation used to subscribe.
	OperationName = "SubscribeSubscription"

	// SubscribeQuery selects the dev platform app payload of each broadcast.
	SubscribeQuery = "subscription SubscribeSubscription($input: SubscribeInput!) { subscribe(input: $input) { id ... on BasicMessage { data { ... on DevPlatformAppMessageData { payload } } } } }"
)

// Channel identifies the feed topic a subscription listens to.
type Channel struct {
	TeamOwner string `json:"teamOwner" yaml:"team_owner"`
	Category  string `json:"category" yaml:"category"`
	Tag       string `json:"tag" yaml:"tag"`
}

// DefaultChannel is the WSB app live feed.
func DefaultChannel() Channel {
	return Channel{
		TeamOwner: "DEV_PLATFORM",
		Category:  "DEV_PLATFORM_APP_EVENTS",
		Tag:       "wsbapp:771348a3-fe17-45f7-9e5d-4741f9b38b5b:LIVE_FEED",
	}
}

// Validate reports whether every field of the channel is set.
func (c Channel) Validate() error {
	switch {
	case c.TeamOwner == "":
		return &entity.ValidationError{Field: "channel.teamOwner", Message: "is required"}
	case c.Category == "":
		return &entity.ValidationError{Field: "channel.category", Message: "is required"}
	case c.Tag == "":
		return &entity.ValidationError{Field: "channel.tag", Message: "is required"}
	}
	return nil
}

// Envelope is one protocol message in either direction.
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type initPayload struct {
	Authorization string `json:"Authorization"`
}

type subscribePayload struct {
	OperationName string             `json:"operationName"`
	Query         string             `json:"query"`
	Variables     subscribeVariables `json:"variables"`
}

type subscribeVariables struct {
	Input subscribeInput `json:"input"`
}

type subscribeInput struct {
	Channel Channel `json:"channel"`
}

// ConnectionInit builds the init message carrying the bearer token.
func ConnectionInit(token string) Envelope {
	return Envelope{
		Type:    TypeConnectionInit,
		Payload: mustMarshal(initPayload{Authorization: "Bearer " + token}),
	}
}

// Pong builds the reply to a server ping.
func Pong() Envelope {
	return Envelope{Type: TypePong}
}

// Subscribe builds the subscribe request for channel, always with id "1".
func Subscribe(channel Channel) Envelope {
	return Envelope{
		ID:   SubscriptionID,
		Type: TypeSubscribe,
		Payload: mustMarshal(subscribePayload{
			OperationName: OperationName,
			Query:         SubscribeQuery,
			Variables:     subscribeVariables{Input: subscribeInput{Channel: channel}},
		}),
	}
}

// mustMarshal encodes values whose shape is fixed at compile time.
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("feed: marshal %T: %v", v, err))
	}
	return data
}

// DecodeEnvelope parses one inbound frame.
// A frame that is not a JSON object with a non-empty type is a *ProtocolParseError.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, &ProtocolParseError{Stage: "envelope", Frame: truncateFrame(data), Err: err}
	}
	if env.Type == "" {
		return Envelope{}, &ProtocolParseError{Stage: "envelope", Frame: truncateFrame(data), Err: errMissingType}
	}
	return env, nil
}

// nextPayload mirrors payload.data.subscribe.data.payload.msg of a next frame.
type nextPayload struct {
	Data struct {
		Subscribe struct {
			Data struct {
				Payload struct {
					Msg *string `json:"msg"`
				} `json:"payload"`
			} `json:"data"`
		} `json:"subscribe"`
	} `json:"data"`
}

// appMessage mirrors the JSON document carried as a string in msg.
type appMessage struct {
	Data struct {
		AppData struct {
			TrendingTickersDaily []string `json:"trendingTickersDaily"`
		} `json:"appData"`
	} `json:"data"`
}

// ParseTrendingTickers extracts the trending ticker list from the payload of a
// next frame. The payload nests a second JSON document as a string; both layers
// are decoded here. A message without a ticker list yields an empty slice.
func ParseTrendingTickers(payload json.RawMessage) ([]entity.Ticker, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, &ProtocolParseError{Stage: "next", Err: errMissingPayload}
	}

	var outer nextPayload
	if err := json.Unmarshal(payload, &outer); err != nil {
		return nil, &ProtocolParseError{Stage: "next", Frame: truncateFrame(payload), Err: err}
	}

	msg := outer.Data.Subscribe.Data.Payload.Msg
	if msg == nil {
		return nil, &ProtocolParseError{Stage: "next", Frame: truncateFrame(payload), Err: errMissingMsg}
	}

	var inner appMessage
	if err := json.Unmarshal([]byte(*msg), &inner); err != nil {
		return nil, &ProtocolParseError{Stage: "msg", Frame: truncateFrame([]byte(*msg)), Err: err}
	}

	return entity.TickersFromStrings(inner.Data.AppData.TrendingTickersDaily), nil
}

const maxFrameExcerpt = 256

func truncateFrame(data []byte) string {
	if len(data) <= maxFrameExcerpt {
		return string(data)
	}
	return string(data[:maxFrameExcerpt]) + "..."
}
