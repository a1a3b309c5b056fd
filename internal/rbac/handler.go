package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anchorage-labs/anchorage/internal/platform/httpx"
	"github.com/anchorage-labs/anchorage/internal/shared"
)

// Handler exposes the current principal's resolved permissions and menus.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers authorization introspection routes. The routes sit
// behind the authentication middleware; claims are always present.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me/permissions", h.listPermissions)
	r.Get("/me/menus", h.listMenus)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	claims, ok := shared.ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	perms, err := h.service.Resolve(r.Context(), claims.PrincipalID)
	if err != nil {
		h.logger.Error("resolve permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": perms})
}

func (h *Handler) listMenus(w http.ResponseWriter, r *http.Request) {
	claims, ok := shared.ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	menus, err := h.service.Menus(r.Context(), claims.PrincipalID)
	if err != nil {
		h.logger.Error("build menus", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": menus})
}
