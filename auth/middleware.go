// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

type contextKey struct{}

// userKey is the context key the current user is stored under.
var userKey contextKey

// FromContext returns the user attached to the context, or
// UnauthenticatedUser when none is present.
func FromContext(ctx context.Context) User {
	if u, ok := ctx.Value(userKey).(User); ok {
		return u
	}
	return UnauthenticatedUser{}
}

// WithUser attaches a user to the context.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// ParseBearer extracts the identity from an Authorization header value.
// The token's signature is not verified here: requests reach this process
// through a gatekeeper that already validated them, so only the claims are
// read.
func ParseBearer(header string) (User, error) {
	const prefix = "Bearer "
	if header == "" {
		return UnauthenticatedUser{}, nil
	}
	if !strings.HasPrefix(header, prefix) {
		return nil, fmt.Errorf("authorization header is not a bearer token")
	}

	token, err := jwt.ParseInsecure([]byte(strings.TrimPrefix(header, prefix)))
	if err != nil {
		return nil, fmt.Errorf("parse bearer token: %w", err)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return UnauthenticatedUser{}, nil
	}
	return &TokenUser{Subject: subject}, nil
}

// Middleware resolves the caller identity for each request and stores it
// on the request context. A malformed token is rejected; a missing one
// passes through as unauthenticated.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := ParseBearer(r.Header.Get("Authorization"))
		if err != nil {
			http.Error(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
