// Package identity is the signed-in user, read once from the session token
// and passed to every component that needs to know who "me" is.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoToken = errors.New("identity: no session token")

// Identity is the local user. The token is presented to the server as is.
type Identity struct {
	UserID    string
	Username  string
	Token     string
	ExpiresAt time.Time
}

// Claims accepts the id claim names chat servers commonly issue.
type Claims struct {
	ID       string `json:"id,omitempty"`
	MongoID  string `json:"_id,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// FromToken reads the identity claims without verifying the signature.
// The client does not hold the signing key; the server verifies on every
// request.
func FromToken(token string) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return Identity{}, ErrNoToken
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Identity{}, fmt.Errorf("identity: parse token: %w", err)
	}

	id := firstNonEmpty(claims.ID, claims.MongoID, claims.UserID, claims.Subject)
	if id == "" {
		return Identity{}, errors.New("identity: token carries no user id")
	}
	ident := Identity{
		UserID:   id,
		Username: firstNonEmpty(claims.Username, claims.Name),
		Token:    token,
	}
	if claims.ExpiresAt != nil {
		ident.ExpiresAt = claims.ExpiresAt.Time
	}
	return ident, nil
}

// Expired reports whether the token's exp has passed at now.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// DisplayName falls back to the user id when the token has no name.
func (i Identity) DisplayName() string {
	if i.Username != "" {
		return i.Username
	}
	return i.UserID
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
