package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credentialwatch/internal/provider/models"
	"credentialwatch/internal/provider/service"
	"credentialwatch/internal/registry"
	id "credentialwatch/pkg/domain"
	"credentialwatch/pkg/platform/httputil"
	"credentialwatch/pkg/requestcontext"
)

// Service defines the interface for provider operations.
type Service interface {
	Sync(ctx context.Context, npi string) (*models.Provider, error)
	GetSnapshot(ctx context.Context, providerID *id.ProviderID, npi string) (*service.Snapshot, error)
	SearchRegistry(ctx context.Context, req registry.SearchRequest) ([]registry.Record, error)
}

// Handler wires provider endpoints to the sync engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a provider handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts provider endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/providers/sync", h.HandleSync)
	r.Post("/providers/snapshot", h.HandleSnapshot)
	r.Post("/registry/search", h.HandleRegistrySearch)
}

// HandleSync handles POST /providers/sync requests.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SyncRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	provider, err := h.service.Sync(ctx, req.NPI)
	if err != nil {
		h.logger.ErrorContext(ctx, "provider sync failed",
			"request_id", requestID,
			"npi", req.NPI,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "provider synced",
		"request_id", requestID,
		"provider_id", provider.ID,
		"npi", req.NPI,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, provider)
}

// HandleSnapshot handles POST /providers/snapshot requests.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SnapshotRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	snapshot, err := h.service.GetSnapshot(ctx, req.ParsedProviderID(), req.NPI)
	if err != nil {
		h.logger.ErrorContext(ctx, "provider snapshot failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

// HandleRegistrySearch handles POST /registry/search requests.
func (h *Handler) HandleRegistrySearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegistrySearchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	records, err := h.service.SearchRegistry(ctx, registry.SearchRequest{
		Query:    req.Query,
		State:    req.State,
		Taxonomy: req.Taxonomy,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "registry search failed",
			"request_id", requestID,
			"query", req.Query,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registry searched",
		"request_id", requestID,
		"query", req.Query,
		"results", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, RegistrySearchResponse{Results: records})
}
