// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/permitgate/permitgate/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error means the client is gone
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// setSessionCookie translates the domain cookie description into an
// http.Cookie. A Clear cookie is expired immediately; live cookies carry no
// Max-Age because lifetime is enforced server-side.
func setSessionCookie(w http.ResponseWriter, c auth.SessionCookie) {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		SameSite: http.SameSiteLaxMode,
	}
	if c.Clear {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}
