// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PermitGate Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/permitgate/permitgate/internal/auth"
	"github.com/permitgate/permitgate/internal/observability"
	"github.com/permitgate/permitgate/pkg/errutil"
)

// Handler implements the authentication API endpoints.
type Handler struct {
	gateway       *auth.Gateway
	sessions      *auth.SessionStore
	metrics       *observability.Metrics
	secureCookies bool
	logger        *slog.Logger
}

// NewHandler creates a Handler. metrics may be nil, in which case no metrics
// are recorded.
func NewHandler(gateway *auth.Gateway, sessions *auth.SessionStore, metrics *observability.Metrics, secureCookies bool, logger *slog.Logger) (*Handler, error) {
	if gateway == nil {
		return nil, oops.Code("HTTP_HANDLER_INVALID").Errorf("gateway is required")
	}
	if sessions == nil {
		return nil, oops.Code("HTTP_HANDLER_INVALID").Errorf("session store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		gateway:       gateway,
		sessions:      sessions,
		metrics:       metrics,
		secureCookies: secureCookies,
		logger:        logger,
	}, nil
}

// Routes builds the API route table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", h.handleRegister)
	mux.HandleFunc("POST /api/login", h.handleLogin)
	mux.HandleFunc("POST /api/logout", h.handleLogout)
	mux.HandleFunc("GET /api/session", h.handleSession)
	return mux
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Outcome  auth.LoginOutcome `json:"outcome"`
	Redirect string            `json:"redirect,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.gateway.Login(r.Context(), req.Email, req.Password)
	h.countLogin(result.Outcome)

	switch result.Outcome {
	case auth.LoginSuccess:
		setSessionCookie(w, auth.NewSessionCookie(result.Session.ID, h.secureCookies))
		writeJSON(w, http.StatusOK, loginResponse{
			Outcome:  result.Outcome,
			Redirect: result.RedirectPath,
		})
	case auth.LoginInvalidCredentials:
		writeJSON(w, http.StatusUnauthorized, loginResponse{Outcome: result.Outcome})
	case auth.LoginAccountDeactivated, auth.LoginPendingApproval:
		writeJSON(w, http.StatusForbidden, loginResponse{Outcome: result.Outcome})
	default:
		writeJSON(w, http.StatusInternalServerError, loginResponse{Outcome: auth.LoginInternalError})
	}
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	RoleApplication string `json:"roleApplication"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	AgreeTerms      bool   `json:"agreeTerms"`
}

type registerResponse struct {
	Outcome     auth.RegisterOutcome `json:"outcome"`
	FieldErrors map[string]string    `json:"fieldErrors,omitempty"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.gateway.Register(r.Context(), auth.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		RoleApplication: auth.Role(req.RoleApplication),
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		AgreeTerms:      req.AgreeTerms,
	})
	h.countRegister(result.Outcome)

	switch result.Outcome {
	case auth.RegisterSuccess:
		// No session: the account waits for approval.
		writeJSON(w, http.StatusCreated, registerResponse{Outcome: result.Outcome})
	case auth.RegisterValidationError:
		writeJSON(w, http.StatusBadRequest, registerResponse{
			Outcome:     result.Outcome,
			FieldErrors: result.FieldErrors,
		})
	case auth.RegisterUsernameTaken, auth.RegisterEmailTaken:
		writeJSON(w, http.StatusConflict, registerResponse{Outcome: result.Outcome})
	default:
		writeJSON(w, http.StatusInternalServerError, registerResponse{Outcome: auth.RegisterInternalError})
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if err := h.gateway.Logout(r.Context(), cookie.Value); err != nil {
			errutil.LogError(h.logger, "logout failed", err)
			writeError(w, http.StatusInternalServerError, "logout failed")
			return
		}
	}

	// The cookie is cleared whether or not a session existed.
	setSessionCookie(w, auth.BlankSessionCookie(h.secureCookies))
	w.WriteHeader(http.StatusNoContent)
}

type sessionUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
}

type sessionResponse struct {
	User     sessionUser `json:"user"`
	Redirect string      `json:"redirect"`
}

// handleSession reports the authenticated user for the presented cookie. A
// session past its rotation threshold is transparently rotated, and the new
// cookie is set on the response.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	user, _, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		User: sessionUser{
			ID:        user.ID.String(),
			Username:  user.Username,
			Email:     user.Email,
			Role:      user.Role,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		},
		Redirect: auth.LandingRoute(user.Role),
	})
}

// authenticate resolves the session cookie to a user. On failure it writes a
// 401 with a cleared cookie and returns ok=false. On a rotated session the
// replacement cookie is set.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (*auth.User, *auth.Session, bool) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		h.denyUnauthenticated(w)
		return nil, nil, false
	}

	user, session, err := h.sessions.Validate(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			errutil.LogError(h.logger, "session validation failed", err)
			writeError(w, http.StatusInternalServerError, "session validation failed")
			return nil, nil, false
		}
		h.denyUnauthenticated(w)
		return nil, nil, false
	}

	if session.Fresh {
		setSessionCookie(w, auth.NewSessionCookie(session.ID, h.secureCookies))
		if h.metrics != nil {
			h.metrics.SessionRotations.Inc()
		}
	}

	return user, session, true
}

// denyUnauthenticated clears the session cookie and writes a 401 carrying the
// default landing route.
func (h *Handler) denyUnauthenticated(w http.ResponseWriter) {
	setSessionCookie(w, auth.BlankSessionCookie(h.secureCookies))
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":    "authentication required",
		"redirect": auth.DefaultLandingRoute,
	})
}

func (h *Handler) countLogin(outcome auth.LoginOutcome) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(string(outcome)).Inc()
	}
}

func (h *Handler) countRegister(outcome auth.RegisterOutcome) {
	if h.metrics != nil {
		h.metrics.RegistrationsTotal.WithLabelValues(string(outcome)).Inc()
	}
}
