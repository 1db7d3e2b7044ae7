// Package jwtclaims reads identity claims out of bearer tokens without
// verifying signatures. The fleet's gateway already authenticated the caller;
// here the token is only a carrier for sessionId/username/userId and for the
// machine-to-machine classification that gates identity propagation and audit
// emission. Any syntactically valid JWT is trusted.
package jwtclaims

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claim names as issued by the identity provider.
const (
	claimSessionID = "session_state"
	claimUsername  = "name"
	claimUserID    = "sub"
	claimClientID  = "clientId"
)

var (
	// ErrBlankToken is returned when no token was supplied where one is required.
	ErrBlankToken = errors.New("blank authorization token")
	// ErrTokenParse is returned for a malformed token or claims payload.
	ErrTokenParse = errors.New("cannot parse authorization token")
	// ErrIdentity is returned when the token parses but a required identity
	// claim is missing or malformed.
	ErrIdentity = errors.New("cannot resolve identity claims")
)

// parser decodes payloads without signature verification; see package doc.
var parser = jwt.NewParser()

// Claims is the decoded payload of one token. Decode once per token with Read
// and derive every field from the same map instead of re-parsing per field.
type Claims map[string]any

// Read decodes the payload of an Authorization header value shaped as
// "<scheme> <token>". It fails with ErrBlankToken for an empty header and
// ErrTokenParse when the token segment is not a decodable JWT.
func Read(authHeader string) (Claims, error) {
	if strings.TrimSpace(authHeader) == "" {
		return nil, ErrBlankToken
	}
	parts := strings.Fields(authHeader)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: expected '<scheme> <token>'", ErrTokenParse)
	}
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(parts[1], claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenParse, err)
	}
	return Claims(claims), nil
}

// HasBearer reports whether the header value carries a Bearer-scheme token.
func HasBearer(authHeader string) bool {
	return len(authHeader) >= 7 && strings.EqualFold(authHeader[:7], "Bearer ")
}

// IsM2M reports whether the token represents a service-to-service caller.
// A token is machine-to-machine iff the clientId claim is present and
// non-blank.
func (c Claims) IsM2M() bool {
	return strings.TrimSpace(c.stringClaim(claimClientID)) != ""
}

// Username returns the name claim, or "" when absent.
func (c Claims) Username() string {
	return c.stringClaim(claimUsername)
}

// SessionID returns the session id claim. Absent yields uuid.Nil with no
// error; a present but non-UUID value is an ErrIdentity.
func (c Claims) SessionID() (uuid.UUID, error) {
	return c.uuidClaim(claimSessionID)
}

// UserID returns the subject claim. Absent yields uuid.Nil with no error;
// a present but non-UUID value is an ErrIdentity.
func (c Claims) UserID() (uuid.UUID, error) {
	return c.uuidClaim(claimUserID)
}

func (c Claims) stringClaim(key string) string {
	if v, ok := c[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func (c Claims) uuidClaim(key string) (uuid.UUID, error) {
	raw := c.stringClaim(key)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: claim %q is not a UUID: %v", ErrIdentity, key, err)
	}
	return id, nil
}

// IsM2MToken classifies an Authorization header value without the caller
// holding decoded claims.
func IsM2MToken(authHeader string) (bool, error) {
	claims, err := Read(authHeader)
	if err != nil {
		return false, err
	}
	return claims.IsM2M(), nil
}

// UserIDFromToken returns the subject UUID of the token in the header value.
// A missing subject is an ErrIdentity: callers using this accessor need the
// user id to do their job, so absence must surface.
func UserIDFromToken(authHeader string) (uuid.UUID, error) {
	claims, err := Read(authHeader)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: subject claim absent", ErrIdentity)
	}
	return id, nil
}

// UserIDFromNonM2MToken returns the subject UUID only for human-user tokens.
// For a machine-to-machine token it returns uuid.Nil with no error even
// though the subject claim is present.
func UserIDFromNonM2MToken(authHeader string) (uuid.UUID, error) {
	claims, err := Read(authHeader)
	if err != nil {
		return uuid.Nil, err
	}
	if claims.IsM2M() {
		return uuid.Nil, nil
	}
	return claims.UserID()
}
