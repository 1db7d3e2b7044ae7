// Package correlation holds the per-request store of business correlation
// identifiers (projectId, userId, executionRequestId, ...) and the helpers
// that move those identifiers across carrier boundaries.
//
// A Scope is an explicit, mutable key→value store owned by exactly one
// logical unit of execution: one HTTP request, one websocket frame, or one
// decorated background task. It is installed into a context.Context by the
// ingress middleware (or by Task for pool-dispatched work) and read back by
// outbound propagators and the audit pipeline.
//
// Usage in middleware (install a scope):
//
//	ctx = correlation.WithScope(ctx, correlation.NewScope())
//
// Usage in services (read/write values):
//
//	correlation.Put(ctx, "projectId", projectID)
//	projectID := correlation.Get(ctx, "projectId")
//
// Ownership contract: a Scope is never shared between concurrently active
// units of execution, so access is unsynchronized. Crossing a goroutine
// boundary must go through Task, which copies the entries instead of sharing
// the store.
package correlation

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Reserved keys with fixed semantics. Everything else is a configurable
// business key supplied by deployment configuration.
const (
	KeyUserID     = "userId"
	KeyProjectID  = "projectId"
	KeyUserAction = "userAction"
)

type scopeKey struct{}

// Scope is the mutable store backing one unit of execution.
// The zero value is not usable; construct with NewScope.
type Scope struct {
	values map[string]string
}

// NewScope returns an empty store.
func NewScope() *Scope {
	return &Scope{values: make(map[string]string)}
}

// WithScope installs a scope into the context.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the scope installed in ctx, or nil when no ingress
// layer has installed one.
func FromContext(ctx context.Context) *Scope {
	if s, ok := ctx.Value(scopeKey{}).(*Scope); ok {
		return s
	}
	return nil
}

// Put stores value under key, but only when value is non-blank. Blank values
// are never stored, so absence of a key always means "no value was supplied".
// Reports whether the store occurred.
func (s *Scope) Put(key, value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	s.values[key] = value
	return true
}

// PutUUID stores a UUID value under key, skipping the nil UUID.
func (s *Scope) PutUUID(key string, id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	return s.Put(key, id.String())
}

// Get returns the value stored under key, or "" when absent.
func (s *Scope) Get(key string) string {
	return s.values[key]
}

// Has reports whether key is present.
func (s *Scope) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Remove deletes key from the store.
func (s *Scope) Remove(key string) {
	delete(s.values, key)
}

// Snapshot returns a copy of all current entries. Mutating the returned map
// does not affect the scope.
func (s *Scope) Snapshot() map[string]string {
	snap := make(map[string]string, len(s.values))
	for k, v := range s.values {
		snap[k] = v
	}
	return snap
}

// Restore replaces the entire store with a copy of the given snapshot.
// A nil snapshot restores to empty.
func (s *Scope) Restore(snapshot map[string]string) {
	s.values = make(map[string]string, len(snapshot))
	for k, v := range snapshot {
		s.values[k] = v
	}
}

// Clear removes all entries. The scope stays usable.
func (s *Scope) Clear() {
	s.values = make(map[string]string)
}

// Len returns the number of stored entries.
func (s *Scope) Len() int {
	return len(s.values)
}

// Put stores value in the scope carried by ctx. Returns false when the value
// is blank or when ctx carries no scope, so callers outside an ingress
// pipeline degrade to a no-op instead of panicking.
func Put(ctx context.Context, key, value string) bool {
	if s := FromContext(ctx); s != nil {
		return s.Put(key, value)
	}
	return false
}

// PutUUID stores a UUID value in the scope carried by ctx.
func PutUUID(ctx context.Context, key string, id uuid.UUID) bool {
	if s := FromContext(ctx); s != nil {
		return s.PutUUID(key, id)
	}
	return false
}

// Get returns the value stored under key in the scope carried by ctx,
// or "" when absent.
func Get(ctx context.Context, key string) string {
	if s := FromContext(ctx); s != nil {
		return s.Get(key)
	}
	return ""
}

// Has reports whether the scope carried by ctx holds key.
func Has(ctx context.Context, key string) bool {
	if s := FromContext(ctx); s != nil {
		return s.Has(key)
	}
	return false
}

// Remove deletes key from the scope carried by ctx.
func Remove(ctx context.Context, key string) {
	if s := FromContext(ctx); s != nil {
		s.Remove(key)
	}
}

// Snapshot copies the entries of the scope carried by ctx. Returns an empty
// map when ctx carries no scope.
func Snapshot(ctx context.Context) map[string]string {
	if s := FromContext(ctx); s != nil {
		return s.Snapshot()
	}
	return map[string]string{}
}
