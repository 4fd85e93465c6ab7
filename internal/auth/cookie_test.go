// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionCookie(t *testing.T) {
	c := NewSessionCookie("abc123", true)

	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "abc123", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.Secure)
	assert.True(t, c.HTTPOnly)
	assert.False(t, c.Clear)

	insecure := NewSessionCookie("abc123", false)
	assert.False(t, insecure.Secure, "local development runs without TLS")
}

func TestBlankSessionCookie(t *testing.T) {
	c := BlankSessionCookie(true)

	assert.Equal(t, SessionCookieName, c.Name)
	assert.Empty(t, c.Value)
	assert.True(t, c.Clear)
	assert.True(t, c.HTTPOnly)
}
