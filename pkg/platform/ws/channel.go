// Package ws populates the correlation scope for websocket message traffic.
// Frames are not HTTP requests, so the channel gets its own population pass
// mirroring the HTTP ingress: bearer token from the frame's native headers,
// then configured business headers.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"auditrelay/pkg/correlation"
	"auditrelay/pkg/jwtclaims"
)

// Frame is a STOMP-style message: a command, native headers, and a payload.
type Frame struct {
	Command string              `json:"command"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    json.RawMessage     `json:"body,omitempty"`
}

// Header returns the first native header value for name, matched
// case-insensitively, or "" when absent.
func (f *Frame) Header(name string) string {
	for k, vs := range f.Headers {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

// SetHeader replaces the native header values for name.
func (f *Frame) SetHeader(name string, values ...string) {
	if f.Headers == nil {
		f.Headers = make(map[string][]string)
	}
	f.Headers[name] = values
}

// ChannelInterceptor is the messaging counterpart of the HTTP ingress
// middleware.
type ChannelInterceptor struct {
	keys   []string
	logger *slog.Logger
}

// NewChannelInterceptor builds an interceptor for the configured business
// keys.
func NewChannelInterceptor(keys []string, logger *slog.Logger) *ChannelInterceptor {
	return &ChannelInterceptor{keys: keys, logger: logger}
}

// PreSend resets the correlation scope and repopulates it from the frame:
// identity first (bearer token, machine-to-machine callers get none), then
// the configured business headers. Failures degrade to partial population
// and never reject the frame. The returned context carries the scope.
func (ci *ChannelInterceptor) PreSend(ctx context.Context, frame *Frame) context.Context {
	scope := correlation.FromContext(ctx)
	if scope == nil {
		scope = correlation.NewScope()
		ctx = correlation.WithScope(ctx, scope)
	} else {
		scope.Clear()
	}
	if frame == nil {
		return ctx
	}

	if token := frame.Header("Authorization"); jwtclaims.HasBearer(token) {
		ci.resolveIdentity(scope, token)
	}
	for _, key := range ci.keys {
		if v := frame.Header(correlation.HeaderName(key)); v != "" {
			scope.Put(key, v)
		}
	}
	return ctx
}

func (ci *ChannelInterceptor) resolveIdentity(scope *correlation.Scope, token string) {
	claims, err := jwtclaims.Read(token)
	if err != nil {
		ci.logger.Error("failed to decode bearer token from frame headers", "error", err)
		return
	}
	if claims.IsM2M() {
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		ci.logger.Error("failed to resolve user id from frame token", "error", err)
		return
	}
	scope.PutUUID(correlation.KeyUserID, userID)
}
