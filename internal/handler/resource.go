package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/artist-manager/internal/model"
	"github.com/sakif/artist-manager/internal/resource"
)

// Service is the CRUD surface one ResourceHandler drives.
// *service.ResourceService satisfies it.
type Service interface {
	Descriptor() *resource.Descriptor
	List(ctx context.Context) ([]model.Record, error)
	Get(ctx context.Context, id int64) (model.Record, error)
	Create(ctx context.Context, payload map[string]any) (model.Record, error)
	Update(ctx context.Context, id int64, payload map[string]any) (model.Record, error)
	Delete(ctx context.Context, id int64) error
}

// ResourceHandler serves list/get/create/update/delete for the single
// resource its service is bound to.
type ResourceHandler struct {
	svc    Service
	desc   *resource.Descriptor
	logger *slog.Logger
}

func NewResourceHandler(svc Service, logger *slog.Logger) *ResourceHandler {
	d := svc.Descriptor()
	return &ResourceHandler{
		svc:    svc,
		desc:   d,
		logger: logger.With(slog.String("resource", d.Path)),
	}
}

// Routes returns the resource's sub-router, meant to be mounted at
// /api/v1/{path}. Every by-id route runs behind Lookup, attached per route
// so chi rejects an unsupported method before the store is queried.
func (h *ResourceHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)

	byID := r.With(Lookup(h.desc, h.svc, h.logger))
	byID.Get("/{id}", h.HandleGet)
	byID.Patch("/{id}", h.HandleUpdate)
	byID.Delete("/{id}", h.HandleDelete)
	return r
}

// HandleList handles GET /api/v1/{path}.
func (h *ResourceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleGet handles GET /api/v1/{path}/{id}.
func (h *ResourceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resolved(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Record)
}

// HandleCreate handles POST /api/v1/{path}.
func (h *ResourceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	record, err := h.svc.Create(r.Context(), payload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// HandleUpdate handles PATCH /api/v1/{path}/{id}.
func (h *ResourceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resolved(w, r)
	if !ok {
		return
	}

	payload, err := decodePayload(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	record, err := h.svc.Update(r.Context(), res.ID, payload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HandleDelete handles DELETE /api/v1/{path}/{id}.
func (h *ResourceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resolved(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), res.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: h.desc.Name + " deleted successfully.",
	})
}

func (h *ResourceHandler) resolved(w http.ResponseWriter, r *http.Request) (Resolved, bool) {
	res, ok := ResolvedFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, errors.New("handler: by-id route reached without lookup"))
	}
	return res, ok
}
