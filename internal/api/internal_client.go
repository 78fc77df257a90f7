// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/middleware"
	"github.com/tomtom215/volumevault/internal/models"
	"github.com/tomtom215/volumevault/internal/tasks"
	"github.com/tomtom215/volumevault/internal/validation"
)

// DefaultInternalTimeout bounds one dispatch request. Trigger endpoints
// answer once the in-progress record exists, so this stays short.
const DefaultInternalTimeout = 10 * time.Second

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// ErrUnauthorized is returned when the API rejects the internal token.
var ErrUnauthorized = errors.New("internal scheduler token rejected")

// InternalClient dispatches scheduled work through the HTTP trigger surface
// using the internal scheduler token. It implements scheduler.Dispatcher.
type InternalClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewInternalClient creates a client for the API at baseURL, for example
// http://127.0.0.1:3857.
func NewInternalClient(baseURL, token string, timeout time.Duration) (*InternalClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid internal API URL %q: %w", baseURL, models.ErrConfiguration)
	}
	if token == "" {
		return nil, fmt.Errorf("internal scheduler token is not set: %w", models.ErrConfiguration)
	}
	if timeout <= 0 {
		timeout = DefaultInternalTimeout
	}
	return &InternalClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// TriggerBackup calls POST /api/v1/backups/trigger.
func (c *InternalClient) TriggerBackup(ctx context.Context, volumeID string) error {
	body, err := json.Marshal(TriggerRequest{VolumeID: volumeID})
	if err != nil {
		return fmt.Errorf("encode trigger request: %w", err)
	}
	return c.post(ctx, "/api/v1/backups/trigger", body)
}

// TriggerGroupRun calls POST /api/v1/schedule-groups/{id}/run.
func (c *InternalClient) TriggerGroupRun(ctx context.Context, groupID string) error {
	return c.post(ctx, "/api/v1/schedule-groups/"+url.PathEscape(groupID)+"/run", nil)
}

func (c *InternalClient) post(ctx context.Context, path string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build internal request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.InternalTokenHeader, c.token)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("internal API request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeRemoteError(resp)
}

// decodeRemoteError turns an error envelope back into the matching sentinel.
func decodeRemoteError(resp *http.Response) error {
	var envelope models.APIResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error == nil {
		return fmt.Errorf("internal API returned status %d", resp.StatusCode)
	}

	msg := envelope.Error.Message
	if sentinel := sentinelForCode(envelope.Error.Code); sentinel != nil {
		return fmt.Errorf("internal API: %s: %w", msg, sentinel)
	}
	return fmt.Errorf("internal API returned %d %s: %s", resp.StatusCode, envelope.Error.Code, msg)
}

func sentinelForCode(code string) error {
	switch code {
	case ErrCodeNotFound:
		return models.ErrNotFound
	case ErrCodePrecondition:
		return models.ErrPrecondition
	case ErrCodeAlreadyRunning:
		return models.ErrAlreadyRunning
	case ErrCodeConfiguration:
		return models.ErrConfiguration
	case ErrCodeStorageUnavailable:
		return models.ErrStorageUnavailable
	case validation.Code, ErrCodeBadRequest:
		return models.ErrInvalidInput
	case ErrCodeShuttingDown:
		return tasks.ErrClosed
	case ErrCodeUnauthorized:
		return ErrUnauthorized
	}
	return nil
}
