// Package httptransport exposes the reconciliation engine over HTTP. Handlers
// decode, delegate and encode; every decision lives in the service layer.
package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"registrar/internal/entity"
	"registrar/internal/registry/apply"
	"registrar/internal/registry/models"
	"registrar/internal/registry/service"
	"registrar/pkg/domain"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/httputil"
	"registrar/pkg/platform/sentinel"
	"registrar/pkg/requestcontext"
)

// EnrichService is what the handlers need from the enrichment service.
type EnrichService interface {
	Enrich(ctx context.Context, req service.EnrichRequest) (*service.EnrichResult, error)
	Apply(ctx context.Context, entityID domain.EntityID, proposals []models.Proposal, snapshotID *domain.SnapshotID) (apply.Result, error)
	Snapshots(ctx context.Context, entityID domain.EntityID) ([]models.Snapshot, error)
	Status() []service.SourceStatus
}

// Handler wires the enrichment endpoints to the service.
type Handler struct {
	service  EnrichService
	entities entity.Store
	logger   *slog.Logger
}

func NewHandler(svc EnrichService, entities entity.Store, logger *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("enrich service is required")
	}
	if entities == nil {
		return nil, errors.New("entity store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: svc, entities: entities, logger: logger}, nil
}

// Register mounts the authenticated endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/entities", h.HandleCreateEntity)
	r.Get("/entities/{id}", h.HandleGetEntity)
	r.Post("/entities/{id}/enrich", h.HandleEnrich)
	r.Post("/entities/{id}/proposals/apply", h.HandleApply)
	r.Get("/entities/{id}/snapshots", h.HandleSnapshots)
	r.Get("/registry/status", h.HandleStatus)
}

// HandleCreateEntity handles POST /entities.
func (h *Handler) HandleCreateEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateEntityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	e := req.ToEntity()
	if err := h.entities.Create(ctx, e); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			err = dErrors.Wrap(dErrors.CodeConflict, "entity or identifier already exists", err)
		}
		h.logger.ErrorContext(ctx, "entity creation failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "entity created",
		"request_id", requestID, "entity_id", e.ID.String(), "type", e.Type)
	httputil.WriteJSON(w, http.StatusCreated, FromEntity(e))
}

// HandleGetEntity handles GET /entities/{id}.
func (h *Handler) HandleGetEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, ok := h.pathEntityID(w, r)
	if !ok {
		return
	}

	e, err := h.entities.Get(ctx, entityID)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "entity %s not found", entityID.String()))
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntity(e))
}

// HandleEnrich handles POST /entities/{id}/enrich. The apply_all query
// parameter commits every applyable proposal in the same run.
func (h *Handler) HandleEnrich(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	entityID, ok := h.pathEntityID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EnrichRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	applyAll, _ := strconv.ParseBool(r.URL.Query().Get("apply_all"))

	result, err := h.service.Enrich(ctx, service.EnrichRequest{
		EntityID:          entityID,
		Source:            models.Source(req.Source),
		LookupKey:         req.LookupKey,
		ApplyAll:          applyAll,
		SurfaceMismatches: req.SurfaceMismatches,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "enrichment failed",
			"request_id", requestID, "entity_id", entityID.String(),
			"source", req.Source, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromEnrichResult(result))
}

// HandleApply handles POST /entities/{id}/proposals/apply.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	entityID, ok := h.pathEntityID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApplyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Apply(ctx, entityID, req.ToProposals(), req.ParsedSnapshotID())
	if err != nil {
		h.logger.ErrorContext(ctx, "proposal apply failed",
			"request_id", requestID, "entity_id", entityID.String(), "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "proposals applied",
		"request_id", requestID, "entity_id", entityID.String(),
		"created", result.Created, "updated", result.Updated, "skipped", result.Skipped)
	httputil.WriteJSON(w, http.StatusOK, FromApplyResult(result))
}

// HandleSnapshots handles GET /entities/{id}/snapshots.
func (h *Handler) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, ok := h.pathEntityID(w, r)
	if !ok {
		return
	}

	snapshots, err := h.service.Snapshots(ctx, entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]SnapshotDTO, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, FromSnapshot(s))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"snapshots": out})
}

// HandleStatus handles GET /registry/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sources": h.service.Status()})
}

func (h *Handler) pathEntityID(w http.ResponseWriter, r *http.Request) (domain.EntityID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := domain.ParseEntityID(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "invalid entity id %q", raw))
		return domain.EntityID{}, false
	}
	return id, true
}
