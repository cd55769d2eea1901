// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth provides the request identity boundary for the coordinator.
// Verification is delegated to the fronting gatekeeper; this package only
// extracts the already verified identity so handlers and logs can attribute
// requests.
package auth

// User represents an authenticated or unauthenticated caller.
type User interface {
	// IsAuthenticated returns true if the user is authenticated.
	IsAuthenticated() bool

	// UserName returns the username of the user. For unauthenticated users,
	// this returns an empty string.
	UserName() string
}

// UnauthenticatedUser represents an unauthenticated caller. It is safe to
// use as a zero value and is immutable.
type UnauthenticatedUser struct{}

var _ User = UnauthenticatedUser{}

// IsAuthenticated always returns false for unauthenticated users.
func (u UnauthenticatedUser) IsAuthenticated() bool {
	return false
}

// UserName always returns an empty string for unauthenticated users.
func (u UnauthenticatedUser) UserName() string {
	return ""
}

// TokenUser is a caller identified by a bearer token subject.
type TokenUser struct {
	Subject string
}

var _ User = (*TokenUser)(nil)

// IsAuthenticated returns true when a subject is present.
func (u *TokenUser) IsAuthenticated() bool {
	return u.Subject != ""
}

// UserName returns the token subject.
func (u *TokenUser) UserName() string {
	return u.Subject
}
