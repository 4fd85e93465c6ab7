// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package auth

// SessionCookieName is the name of the session cookie across issue, rotate,
// and clear.
const SessionCookieName = "permitgate_session"

// SessionCookie carries the attributes the HTTP layer needs to set or clear
// the session cookie. No Max-Age is emitted for live cookies: session
// lifetime is server-enforced via the stored expiry.
type SessionCookie struct {
	Name     string
	Value    string
	Path     string
	Secure   bool
	HTTPOnly bool

	// Clear indicates the cookie should be expired immediately (logout or
	// invalid session).
	Clear bool
}

// NewSessionCookie returns the cookie attributes for a session id. secure
// should be true in production deployments.
func NewSessionCookie(sessionID string, secure bool) SessionCookie {
	return SessionCookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Secure:   secure,
		HTTPOnly: true,
	}
}

// BlankSessionCookie returns an expired blank cookie that removes the session
// cookie from the client.
func BlankSessionCookie(secure bool) SessionCookie {
	return SessionCookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Secure:   secure,
		HTTPOnly: true,
		Clear:    true,
	}
}
