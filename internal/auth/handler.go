package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/anchorage-labs/anchorage/internal/platform/httpx"
	"github.com/anchorage-labs/anchorage/internal/shared"
	"github.com/anchorage-labs/anchorage/internal/users"
)

// MetricsRecorder counts authentication outcomes. A nil recorder disables
// counting.
type MetricsRecorder interface {
	RecordLogin(outcome string)
	RecordRevocation()
}

// PermissionSource resolves the permission codes granted to a principal.
// A nil source leaves permissions out of the profile response.
type PermissionSource interface {
	ResolveCodes(ctx context.Context, principalID string) ([]string, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	metrics     MetricsRecorder
	permissions PermissionSource
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, metrics MetricsRecorder, permissions PermissionSource) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		metrics:     metrics,
		permissions: permissions,
		validator:   validator.New(),
	}
}

// MountRoutes registers the public auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
}

// MountProtectedRoutes registers routes that require an authenticated
// principal.
func (h *Handler) MountProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.handleLogout)
	r.Post("/me/password", h.handleChangePassword)
	r.Get("/me", h.handleCurrentUser)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	session, err := h.service.Login(r.Context(), req.Username, req.Password)
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
	httpx.JSON(w, http.StatusOK, session)
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	RealName string `json:"realName" validate:"max=128"`
	Phone    string `json:"phone" validate:"max=32"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrValidation, validationDetail(err)))
		return
	}
	user, err := h.service.Register(r.Context(), users.CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		RealName: req.RealName,
		Phone:    req.Phone,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordRevocation()
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type changePasswordRequest struct {
	Current string `json:"current" validate:"required"`
	Next    string `json:"next" validate:"required,min=6"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := shared.ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrValidation, validationDetail(err)))
		return
	}
	if err := h.service.ChangePassword(r.Context(), claims.PrincipalID, req.Current, req.Next); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := shared.ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	profile, err := h.service.CurrentUser(r.Context(), claims.PrincipalID)
	if err != nil {
		h.logger.Error("load profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if h.permissions != nil {
		codes, err := h.permissions.ResolveCodes(r.Context(), claims.PrincipalID)
		if err != nil {
			h.logger.Error("resolve permissions", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		profile.Permissions = codes
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func validationDetail(err error) string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return "invalid request"
	}
	return fmt.Sprintf("field %s failed on %s", fieldErrs[0].Field(), fieldErrs[0].Tag())
}
