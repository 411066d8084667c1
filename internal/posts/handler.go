package posts

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inkwell-cms/inkwell/internal/auth"
	"github.com/inkwell-cms/inkwell/internal/platform/httpx"
	"github.com/inkwell-cms/inkwell/internal/shared"
)

// Guard supplies the session and permission middleware this handler mounts
// its routes behind.
type Guard interface {
	RequireUser(http.Handler) http.Handler
	RequirePermission(action string) func(http.Handler) http.Handler
}

// Handler wires JSON endpoints for post management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     Guard
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers post routes. Every route sits behind the session
// gate; mutations additionally require the matching role permission.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireUser)
	r.With(h.guard.RequirePermission(auth.ActionRead)).Get("/", h.list)
	r.With(h.guard.RequirePermission(auth.ActionRead)).Get("/{id}", h.get)
	r.With(h.guard.RequirePermission(auth.ActionRead)).Get("/slug/{slug}", h.getBySlug)
	r.With(h.guard.RequirePermission(auth.ActionCreate)).Post("/", h.create)
	r.With(h.guard.RequirePermission(auth.ActionUpdate)).Put("/{id}", h.update)
	r.With(h.guard.RequirePermission(auth.ActionPublish)).Post("/{id}/publish", h.publish)
	r.With(h.guard.RequirePermission(auth.ActionDelete)).Delete("/{id}", h.trash)
}

type postRequest struct {
	Title           string  `json:"title" validate:"required"`
	Body            string  `json:"body" validate:"required"`
	Excerpt         string  `json:"excerpt"`
	CategoryID      *int64  `json:"category_id"`
	FeaturedMediaID *int64  `json:"featured_media_id"`
	TagIDs          []int64 `json:"tag_ids"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	filter := ListFilter{
		Status:  Status(r.URL.Query().Get("status")),
		Page:    page,
		PerPage: perPage,
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("category_id"), 10, 64); err == nil {
		filter.CategoryID = v
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("tag_id"), 10, 64); err == nil {
		filter.TagID = v
	}
	items, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list posts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Post{}
	}
	httpx.List(w, items, pagination)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	post, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) getBySlug(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "title and body are required")
		return
	}
	post, err := h.service.Create(r.Context(), principal.UserID, CreateInput{
		Title:           req.Title,
		Body:            req.Body,
		Excerpt:         req.Excerpt,
		CategoryID:      req.CategoryID,
		FeaturedMediaID: req.FeaturedMediaID,
		TagIDs:          req.TagIDs,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, post)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "title and body are required")
		return
	}
	post, err := h.service.Update(r.Context(), id, UpdateInput{
		Title:           req.Title,
		Body:            req.Body,
		Excerpt:         req.Excerpt,
		CategoryID:      req.CategoryID,
		FeaturedMediaID: req.FeaturedMediaID,
		TagIDs:          req.TagIDs,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	post, err := h.service.Publish(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) trash(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	if err := h.service.Trash(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
