// Package msg defines the interface for different message brokers and the messages published by the services.
package msg

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
)

// Exchanges declared by the brokers.
const (
	MAIL  = "mail"  // mail notifications, routed by kind (ie. mail.reset)
	CHAIN = "chain" // mirror events, routed as chain.block.<num>
)

// Mail is a notification to be sent by the mailer.
type Mail struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// BlockEvent is published by the mirror for every block written.
type BlockEvent struct {
	Chain        string `json:"chain"`
	BlockNum     uint64 `json:"block_num"`
	BlockID      string `json:"block_id"`
	Transactions int    `json:"transactions"`
	Actions      int    `json:"actions"`
}

// BlockKey returns the routing key of the event of block num.
func BlockKey(num uint64) string {
	return "chain.block." + strconv.FormatUint(num, 10)
}

// MsgBroker publishes JSON messages to topic exchanges.
type MsgBroker interface {
	Setup() error
	Close() error
	Publish(ctx context.Context, exchange, key string, v interface{}) error
}

// LogBroker is used when no broker is configured: messages are only logged.
type LogBroker struct {
	Log *slog.Logger
}

// Setup does nothing.
func (LogBroker) Setup() error { return nil }

// Close does nothing.
func (LogBroker) Close() error { return nil }

// Publish logs the message.
func (b LogBroker) Publish(ctx context.Context, exchange, key string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	log := b.Log
	if log == nil {
		log = slog.Default()
	}

	log.InfoContext(ctx, "message not sent, no broker", "exchange", exchange, "key", key, "body", string(body))

	return nil
}
