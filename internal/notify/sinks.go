// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/volumevault/internal/metrics"
)

// Sink receives delivered events. Handle returning an error causes a retry.
type Sink interface {
	Name() string
	Handle(ctx context.Context, evt Event) error
}

func recordDelivery(eventType EventType, sink string, err error) {
	metrics.RecordNotification(string(eventType), sink, err)
}

// LogSink writes events to the structured log. Failure events are logged at
// warn level.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Handle(_ context.Context, evt Event) error {
	event := s.logger.Info()
	if evt.Type == EventBackupFailed {
		event = s.logger.Warn()
	}
	event.
		Str("event_type", string(evt.Type)).
		Str("event_id", evt.ID).
		Str("correlation_id", evt.CorrelationID).
		RawJSON("payload", evt.Payload).
		Msg("Notification")
	return nil
}

// MetricsSink counts events by type.
type MetricsSink struct{}

func (MetricsSink) Name() string { return "metrics" }

func (MetricsSink) Handle(_ context.Context, evt Event) error {
	metrics.RecordEvent(string(evt.Type))
	return nil
}

// WebhookConfig configures the webhook sink.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration

	// Consecutive failures that open the breaker
	FailureThreshold uint32

	// How long the breaker stays open before probing again
	OpenTimeout time.Duration
}

// WebhookSink POSTs each event as JSON to a fixed URL.
type WebhookSink struct {
	cfg     WebhookConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  zerolog.Logger
}

// ErrWebhookStatus marks a non-2xx webhook response.
var ErrWebhookStatus = errors.New("webhook returned non-success status")

// NewWebhookSink creates a webhook sink guarded by a circuit breaker.
func NewWebhookSink(cfg WebhookConfig, logger zerolog.Logger) *WebhookSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}

	s := &WebhookSink{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, breakerStateValue(to))
			s.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Webhook circuit breaker state changed")
		},
	})
	metrics.SetCircuitBreakerState("webhook", 0)
	return s
}

func breakerStateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

// State returns the breaker state.
func (s *WebhookSink) State() gobreaker.State {
	return s.breaker.State()
}

func (s *WebhookSink) Handle(ctx context.Context, evt Event) error {
	_, err := s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(ctx, evt)
	})
	return err
}

func (s *WebhookSink) post(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VolumeVault-Event", string(evt.Type))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d", ErrWebhookStatus, resp.StatusCode)
	}
	return nil
}
