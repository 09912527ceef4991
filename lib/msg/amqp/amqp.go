// Package amqp implements the message broker interface for AMQP compliant brokers (ie RabbitMQ)
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/streadway/amqp"

	"github.com/tarancss/eosapi/lib/msg"
)

// Amqp implements a connection to a broker and a channel for reuse.
type Amqp struct {
	conn *amqp.Connection
	mu   sync.Mutex // guards ch, AMQP channels are not safe for concurrent publishing
	ch   *amqp.Channel
	log  *slog.Logger
}

var _ msg.MsgBroker = (*Amqp)(nil)

// New instantiates a new amqp broker.
func New(uri string, log *slog.Logger) (*Amqp, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to message broker: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	log.Info("connected to message broker")

	return &Amqp{conn: conn, log: log}, nil
}

// Connect is New retried until the broker accepts the connection or wait elapses, as brokers started along with
// the services (ie. docker compose) take a while to be ready.
func Connect(ctx context.Context, uri string, wait time.Duration, log *slog.Logger) (*Amqp, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = wait

	return backoff.RetryNotifyWithData(func() (*Amqp, error) {
		return New(uri, log)
	}, backoff.WithContext(bo, ctx), func(err error, d time.Duration) {
		if log != nil {
			log.Warn("message broker not ready", "retry", d, "err", err)
		}
	})
}

// Setup declares the message broker exchanges:
//
// - mail: the api service publishes mail notifications to this exchange
//
// - chain: the mirror service publishes block events to this exchange
func (r *Amqp) Setup() error {
	// obtain a one-use channel
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()

	for _, x := range []string{msg.MAIL, msg.CHAIN} {
		if err = channel.ExchangeDeclare(x, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("cannot declare exchange %s: %w", x, err)
		}
	}

	return nil
}

// Close terminates gracefully the connection to the AMQP message broker
func (r *Amqp) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			r.log.Warn("error closing amqp channel", "err", err)
		}

		r.ch = nil
	}

	return r.conn.Close()
}

// Publish sends v as JSON to exchange with the routing key.
func (r *Amqp) Publish(ctx context.Context, exchange, key string, v interface{}) error {
	p, err := publishing(key, v)
	if err != nil {
		return err
	}

	if err = ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// obtain channel if not present
	if r.ch == nil {
		if r.ch, err = r.conn.Channel(); err != nil {
			return fmt.Errorf("cannot open amqp channel: %w", err)
		}
	}

	if err = r.ch.Publish(exchange, key, false, false, p); err != nil {
		// a failed channel is closed by the server, open a new one next time
		r.ch = nil
		r.log.Error("error publishing to message broker", "exchange", exchange, "key", key, "err", err)

		return fmt.Errorf("cannot publish %s to %s: %w", key, exchange, err)
	}

	return nil
}

func publishing(key string, v interface{}) (amqp.Publishing, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("cannot encode message %s: %w", key, err)
	}

	return amqp.Publishing{
		Headers:      amqp.Table{"x-msg-name": key},
		Body:         body,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
	}, nil
}
