// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

// Package notify delivers operational events (backup.failed,
// restore.completed, group.completed) to a set of sinks.
//
// Events are published on an in-process watermill gochannel. Each sink is a
// router handler subscribed to the events topic, so a slow or failing sink
// never blocks the publisher or the other sinks:
//
//	Notify ──> gochannel ──> Router ──┬─> log sink
//	                                 ├─> metrics sink
//	                                 └─> webhook sink (circuit breaker)
//
// Publication is fire-and-forget. Events buffered when the process exits
// are lost.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/volumevault/internal/logging"
)

const (
	// TopicEvents carries every notification
	TopicEvents = "volumevault.events"

	// TopicDeadLetter receives events a sink rejected after all retries.
	// Nothing subscribes to it; the gochannel drops it once logged.
	TopicDeadLetter = "volumevault.events.dead"

	metadataEventType = "event_type"
)

// Notifier is the publishing side used by the backup, restore and group
// components.
type Notifier interface {
	Notify(ctx context.Context, eventType EventType, payload interface{})
}

// Config holds bus configuration.
type Config struct {
	// BufferSize is the per-subscriber output channel buffer
	BufferSize int64

	// CloseTimeout bounds how long the router waits for handlers at shutdown
	CloseTimeout time.Duration

	// Retry policy applied to each sink delivery
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:           256,
		CloseTimeout:         10 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 500 * time.Millisecond,
	}
}

// Bus is the watermill-backed Notifier.
type Bus struct {
	cfg     Config
	pubsub  *gochannel.GoChannel
	wmLog   watermill.LoggerAdapter
	logger  zerolog.Logger
	mu      sync.RWMutex
	sinks   []Sink
	ready   chan struct{}
	readyMu sync.Once
}

// NewBus creates a bus. Sinks must be added before Serve.
func NewBus(cfg Config, logger zerolog.Logger) *Bus {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = def.CloseTimeout
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = def.RetryInitialInterval
	}
	if cfg.RetryMaxRetries < 0 {
		cfg.RetryMaxRetries = 0
	}

	wmLog := NewWatermillLogger(logger.Level(zerolog.WarnLevel))
	return &Bus{
		cfg: cfg,
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.BufferSize,
		}, wmLog),
		wmLog:  wmLog,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// AddSink registers a sink.
func (b *Bus) AddSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Ready is closed once the router is subscribed and delivering.
func (b *Bus) Ready() <-chan struct{} {
	return b.ready
}

// Notify publishes an event. Marshal or publish failures are logged and
// otherwise ignored.
func (b *Bus) Notify(ctx context.Context, eventType EventType, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to encode notification payload")
		return
	}

	evt := Event{
		ID:            watermill.NewUUID(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		Payload:       raw,
	}
	body, err := json.Marshal(evt)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to encode notification")
		return
	}

	msg := message.NewMessage(evt.ID, body)
	msg.Metadata.Set(metadataEventType, string(eventType))

	if err := b.pubsub.Publish(TopicEvents, msg); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish notification")
	}
}

// Serve runs the delivery router until ctx is canceled. It implements
// suture.Service; each call builds a fresh router over the same gochannel.
func (b *Bus) Serve(ctx context.Context) error {
	router, err := b.newRouter()
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-router.Running():
			b.readyMu.Do(func() { close(b.ready) })
		case <-ctx.Done():
		}
	}()

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("notification router: %w", err)
	}
	return ctx.Err()
}

func (b *Bus) newRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: b.cfg.CloseTimeout}, b.wmLog)
	if err != nil {
		return nil, fmt.Errorf("create notification router: %w", err)
	}

	// Outermost first: dead-letter after retries, retry, then recover panics.
	poison, err := middleware.PoisonQueue(b.pubsub, TopicDeadLetter)
	if err != nil {
		return nil, fmt.Errorf("create dead-letter middleware: %w", err)
	}
	router.AddMiddleware(
		poison,
		middleware.Retry{
			MaxRetries:      b.cfg.RetryMaxRetries,
			InitialInterval: b.cfg.RetryInitialInterval,
			MaxInterval:     10 * b.cfg.RetryInitialInterval,
			Multiplier:      2,
			Logger:          b.wmLog,
		}.Middleware,
		middleware.Recoverer,
	)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sink := range b.sinks {
		router.AddNoPublisherHandler("notify-"+sink.Name(), TopicEvents, b.pubsub, b.deliver(sink))
	}
	return router, nil
}

// deliver adapts a sink to a watermill handler.
func (b *Bus) deliver(sink Sink) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var evt Event
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			// Undecodable events cannot succeed on retry.
			b.logger.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable notification")
			return nil
		}

		err := sink.Handle(msg.Context(), evt)
		recordDelivery(evt.Type, sink.Name(), err)
		if err != nil {
			b.logger.Warn().Err(err).
				Str("sink", sink.Name()).
				Str("event_type", string(evt.Type)).
				Str("event_id", evt.ID).
				Msg("Notification delivery failed")
		}
		return err
	}
}

// Close closes the underlying gochannel.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// String implements fmt.Stringer for supervisor logs.
func (b *Bus) String() string {
	return "notifier"
}

// Discard is a Notifier that drops everything. Useful in tests.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(context.Context, EventType, interface{}) {}
