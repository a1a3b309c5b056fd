package permissions

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/anchorage-labs/anchorage/internal/platform/httpx"
	"github.com/anchorage-labs/anchorage/internal/shared"
)

// Guard supplies the authorization middleware without binding this package
// to the resolver.
type Guard interface {
	RequireAny(codes ...string) func(http.Handler) http.Handler
	RequireAll(codes ...string) func(http.Handler) http.Handler
}

// Handler manages permission catalog endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     Guard
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers permission catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny("permission.view", "permission.edit"))
		r.Get("/permissions", h.list)
		r.Get("/permissions/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll("permission.edit"))
		r.Post("/permissions", h.create)
		r.Put("/permissions/{id}", h.update)
		r.Delete("/permissions/{id}", h.delete)
	})
}

type createRequest struct {
	Name      string `json:"name" validate:"required,max=128"`
	Code      string `json:"code" validate:"max=128"`
	Kind      string `json:"kind" validate:"required,oneof=menu button api"`
	ParentID  string `json:"parentId"`
	Path      string `json:"path" validate:"max=255"`
	Component string `json:"component" validate:"max=255"`
	Icon      string `json:"icon" validate:"max=128"`
	Sort      int    `json:"sort"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	p, err := h.service.Create(r.Context(), CreateInput{
		Name:      req.Name,
		Code:      req.Code,
		Kind:      Kind(req.Kind),
		ParentID:  req.ParentID,
		Path:      req.Path,
		Component: req.Component,
		Icon:      req.Icon,
		Sort:      req.Sort,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

type updateRequest struct {
	Name      *string `json:"name"`
	Code      *string `json:"code"`
	Kind      *string `json:"kind"`
	ParentID  *string `json:"parentId"`
	Path      *string `json:"path"`
	Component *string `json:"component"`
	Icon      *string `json:"icon"`
	Sort      *int    `json:"sort"`
	Status    *string `json:"status"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	input := UpdateInput{
		Name:      req.Name,
		Code:      req.Code,
		ParentID:  req.ParentID,
		Path:      req.Path,
		Component: req.Component,
		Icon:      req.Icon,
		Sort:      req.Sort,
	}
	if req.Kind != nil {
		kind := Kind(*req.Kind)
		input.Kind = &kind
	}
	if req.Status != nil {
		status := Status(*req.Status)
		input.Status = &status
	}
	if err := h.service.Update(r.Context(), chi.URLParam(r, "id"), input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Kind:     Kind(q.Get("kind")),
		Status:   Status(q.Get("status")),
		ParentID: q.Get("parentId"),
	}
	records, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": records})
}
