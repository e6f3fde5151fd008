package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"credentialwatch/internal/credential/models"
	"credentialwatch/internal/credential/service"
	"credentialwatch/internal/risk"
	"credentialwatch/pkg/platform/httputil"
	"credentialwatch/pkg/requestcontext"
)

// Service defines the interface for credential operations.
type Service interface {
	AddOrUpdate(ctx context.Context, input service.AddOrUpdateInput) (*models.Credential, error)
	FindExpiring(ctx context.Context, windowDays int, filters risk.Filters) ([]risk.Candidate, error)
}

// Handler wires credential endpoints to the credential service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a credential handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts credential endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credentials/add_or_update", h.HandleAddOrUpdate)
	r.Post("/credentials/expiring", h.HandleExpiring)
}

// HandleAddOrUpdate handles POST /credentials/add_or_update requests.
func (h *Handler) HandleAddOrUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AddOrUpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	credential, err := h.service.AddOrUpdate(ctx, req.ToInput())
	if err != nil {
		h.logger.ErrorContext(ctx, "credential upsert failed",
			"request_id", requestID,
			"provider_id", req.ProviderID,
			"type", req.Type,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential upserted",
		"request_id", requestID,
		"credential_id", credential.ID,
		"provider_id", req.ProviderID,
		"type", req.Type,
		"status", credential.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, credential)
}

// HandleExpiring handles POST /credentials/expiring requests.
func (h *Handler) HandleExpiring(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ExpiringRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	candidates, err := h.service.FindExpiring(ctx, req.WindowDays, risk.Filters{
		Dept:             req.Dept,
		LocationContains: req.Location,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "expiring query failed",
			"request_id", requestID,
			"window_days", req.WindowDays,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "expiring credentials listed",
		"request_id", requestID,
		"window_days", req.WindowDays,
		"matches", len(candidates),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, ExpiringResponse{Results: candidates})
}
