package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"expenses/internal/log"
	"expenses/internal/notify"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// Client publishes and consumes change announcements on a fanout exchange.
// Every consumer gets its own exclusive, auto-deleted queue, so each
// running process sees every announcement.
type Client struct {
	url          string
	exchangeName string
	origin       string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

// NewClient connects to url and declares the exchange. origin is stamped
// on every published message.
func NewClient(url, exchangeName, origin string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		origin:       origin,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareExchange(channel, c.exchangeName); err != nil {
		channel.Close()
		conn.Close()
		return err
	}

	c.conn = conn
	c.channel = channel
	return nil
}

// staleLocked names the part of the publishing link that must be reopened:
// "connection", "channel", or "" when both are usable.
func (c *Client) staleLocked() string {
	switch {
	case c.conn == nil || c.conn.IsClosed():
		return "connection"
	case c.channel == nil || c.channel.IsClosed():
		return "channel"
	default:
		return ""
	}
}

// ensureLocked reopens the connection or only the channel, whichever went
// away. A channel closes on its own after a channel-level exception.
func (c *Client) ensureLocked() error {
	switch c.staleLocked() {
	case "connection":
		if c.conn != nil {
			c.conn.Close()
		}
		return c.connectLocked()
	case "channel":
		ch, err := c.conn.Channel()
		if err != nil {
			return fmt.Errorf("reopen channel: %w", err)
		}
		if err := declareExchange(ch, c.exchangeName); err != nil {
			ch.Close()
			return err
		}
		c.channel = ch
		slog.Info("Reopened AMQP channel",
			log.FieldComponent, log.ComponentAMQP,
			"exchange", c.exchangeName)
	}
	return nil
}

func declareExchange(ch *amqp091.Channel, name string) error {
	err := ch.ExchangeDeclare(
		name,     // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// Origin returns the instance id stamped on published messages.
func (c *Client) Origin() string { return c.origin }

// PublishChange announces e to every other process.
func (c *Client) PublishChange(ctx context.Context, e notify.Event) error {
	if c.isCircuitOpen() {
		return errors.New("circuit breaker is open, AMQP publish skipped")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := NewChangeMessage(c.origin, e)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	if err := c.ensureLocked(); err != nil {
		c.mu.Unlock()
		c.recordFailure()
		return fmt.Errorf("reconnect: %w", err)
	}
	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		"",             // routing key (ignored by fanout)
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   msg.Timestamp,
			Body:        body,
		},
	)
	c.mu.Unlock()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published change message",
		log.FieldComponent, log.ComponentAMQP,
		log.FieldEventKind, string(msg.Kind),
		"exchange", c.exchangeName)
	return nil
}

// ConsumeChanges delivers every announcement on the exchange to handler
// until ctx is done, reconnecting with exponential backoff when the broker
// goes away. Messages that fail to decode or handle are dropped.
// subscribed, when not nil, runs after every successful (re)subscription;
// announcements sent while disconnected are lost.
func (c *Client) ConsumeChanges(ctx context.Context, handler func(context.Context, *ChangeMessage) error, subscribed func(context.Context)) error {
	attempt := 0
	for {
		connected, err := c.consumeOnce(ctx, handler, subscribed)
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption",
				log.FieldComponent, log.ComponentAMQP,
				"reason", ctx.Err())
			return nil
		}
		if connected {
			attempt = 0
		}
		if err != nil && !isConnectionError(err) {
			slog.ErrorContext(ctx, "Consumer stopped",
				log.FieldComponent, log.ComponentAMQP,
				log.FieldError, err)
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP consumer disconnected, retrying",
			log.FieldComponent, log.ComponentAMQP,
			"retry_in", wait,
			log.FieldError, err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
		attempt++
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *ChangeMessage) error, subscribed func(context.Context)) (bool, error) {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return false, fmt.Errorf("dial AMQP: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return false, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := declareExchange(ch, c.exchangeName); err != nil {
		return false, err
	}

	q, err := ch.QueueDeclare(
		"",    // name (server generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return false, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", c.exchangeName, false, nil); err != nil {
		return false, fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return false, fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming change messages",
		log.FieldComponent, log.ComponentAMQP,
		"exchange", c.exchangeName,
		"queue", q.Name)
	if subscribed != nil {
		subscribed(ctx)
	}

	closed := conn.NotifyClose(make(chan *amqp091.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return true, amqpErr
			}
			return true, amqp091.ErrClosed
		case delivery, ok := <-msgs:
			if !ok {
				return true, errors.New("message channel closed")
			}
			c.handle(ctx, delivery, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, handler func(context.Context, *ChangeMessage) error) {
	msg, err := ChangeMessageFromJSON(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldError, err)
		d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldEventKind, string(msg.Kind),
			log.FieldOrigin, msg.Origin,
			log.FieldError, err)
		d.Nack(false, false)
		return
	}
	d.Ack(false)
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		last := c.lastFailure
		c.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
		slog.Warn("AMQP circuit breaker opened",
			log.FieldComponent, log.ComponentAMQP,
			"failures", n)
	}
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
