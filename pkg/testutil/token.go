// Package testutil provides shared helpers for tests.
package testutil

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

// BearerToken builds an Authorization header value carrying an unsigned JWT
// with the given payload. The claims reader never verifies signatures, so an
// empty signature segment suffices.
func BearerToken(t *testing.T, payload map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	enc := base64.RawURLEncoding
	return "Bearer " + enc.EncodeToString(header) + "." + enc.EncodeToString(body) + "."
}

// UserToken is BearerToken for a human-user principal with the standard
// identity claims.
func UserToken(t *testing.T, userID, sessionID, username string) string {
	t.Helper()
	return BearerToken(t, map[string]any{
		"sub":           userID,
		"session_state": sessionID,
		"name":          username,
	})
}

// M2MToken is BearerToken for a service-to-service principal.
func M2MToken(t *testing.T, clientID string) string {
	t.Helper()
	return BearerToken(t, map[string]any{
		"sub":           "2cabae38-420a-4c23-8c83-88b210e397cd",
		"session_state": "6288b3f8-2e02-42a1-8619-920cc596b6f4",
		"clientId":      clientID,
	})
}
