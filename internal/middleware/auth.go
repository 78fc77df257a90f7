// VolumeVault - Scheduled Volume Backup Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/volumevault

package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/volumevault/internal/logging"
	"github.com/tomtom215/volumevault/internal/models"
)

// InternalTokenHeader carries the scheduler's token on trigger calls.
const InternalTokenHeader = "X-Internal-Scheduler-Token"

// Principal identifies who authenticated a request.
type Principal string

const (
	PrincipalOperator  Principal = "operator"
	PrincipalScheduler Principal = "scheduler"
)

type principalKey struct{}

// PrincipalFromContext returns the authenticated principal, or "" when the
// request was not authenticated.
func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

// TokenAuth checks static bearer and internal scheduler tokens.
//
// Operators send "Authorization: Bearer <api token>" and may call every
// protected endpoint. The scheduler sends X-Internal-Scheduler-Token, which
// RequireTrigger accepts and RequireOperator does not. An empty token never
// matches.
type TokenAuth struct {
	apiToken      []byte
	internalToken []byte
}

// NewTokenAuth creates a token checker.
func NewTokenAuth(apiToken, internalToken string) *TokenAuth {
	return &TokenAuth{apiToken: []byte(apiToken), internalToken: []byte(internalToken)}
}

func tokenMatches(want []byte, got string) bool {
	if len(want) == 0 || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare(want, []byte(got)) == 1
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func (a *TokenAuth) operator(r *http.Request) bool {
	return tokenMatches(a.apiToken, bearerToken(r))
}

func (a *TokenAuth) scheduler(r *http.Request) bool {
	return tokenMatches(a.internalToken, r.Header.Get(InternalTokenHeader))
}

// RequireOperator admits requests with a valid bearer token.
func (a *TokenAuth) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.operator(r) {
			a.reject(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, PrincipalOperator)))
	})
}

// RequireTrigger admits requests with a valid bearer token or a valid
// internal scheduler token.
func (a *TokenAuth) RequireTrigger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p Principal
		switch {
		case a.operator(r):
			p = PrincipalOperator
		case a.scheduler(r):
			p = PrincipalScheduler
		default:
			a.reject(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func (a *TokenAuth) reject(w http.ResponseWriter, r *http.Request) {
	logging.Ctx(r.Context()).Warn().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote_addr", r.RemoteAddr).
		Msg("Rejected unauthenticated request")

	w.Header().Set("WWW-Authenticate", `Bearer realm="volumevault"`)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: "UNAUTHORIZED", Message: "Missing or invalid credentials"},
	})
}
