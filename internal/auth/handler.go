package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inkwell-cms/inkwell/internal/platform/httpx"
	"github.com/inkwell-cms/inkwell/internal/shared"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "inkwell_session"

// LoginRecorder counts login outcomes for monitoring.
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// Handler wires JSON endpoints for authentication flows.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	validator    *validator.Validate
	secureCookie bool
	metrics      LoginRecorder
}

// NewHandler constructs a Handler instance. secureCookie should be true in
// production so the cookie is only sent over TLS.
func NewHandler(logger *slog.Logger, service *Service, secureCookie bool) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		validator:    validator.New(),
		secureCookie: secureCookie,
	}
}

// WithLoginMetrics attaches a login-outcome recorder.
func (h *Handler) WithLoginMetrics(rec LoginRecorder) *Handler {
	h.metrics = rec
	return h
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/refresh", h.handleRefresh)
	r.Group(func(r chi.Router) {
		r.Use(h.RequireUser)
		r.Get("/me", h.handleMe)
		r.Put("/password", h.handleChangePassword)
	})
}

type registerRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "email, password and name are required")
		return
	}
	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		h.logger.Info("register rejected", slog.String("reason", shared.UserSafeMessage(err)))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "email and password are required")
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password, ClientMeta{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordLogin("failure")
		}
		httpx.RespondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordLogin("success")
	}
	h.setSessionCookie(w, result.Token)
	httpx.JSON(w, http.StatusOK, result.User)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			h.logger.Warn("logout", slog.Any("error", err))
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	ok, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !ok {
		h.clearSessionCookie(w)
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	h.setSessionCookie(w, token)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, user.View())
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "old_password and new_password are required")
		return
	}
	if err := h.service.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie writes the session cookie with the attributes the core
// contract requires: HttpOnly, Secure in production, SameSite=Lax, expiry
// matching the session TTL.
func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	ttl := h.service.SessionTTL()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken extracts the token from the request cookie.
func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
