package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credentialwatch/internal/alert/models"
	"credentialwatch/internal/alert/service"
	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
	"credentialwatch/pkg/platform/httputil"
	"credentialwatch/pkg/requestcontext"
)

// Service defines the interface for alert lifecycle operations.
type Service interface {
	Create(ctx context.Context, input service.CreateInput) (*models.Alert, error)
	ListOpen(ctx context.Context, filter service.ListFilter) ([]*models.Alert, error)
	Resolve(ctx context.Context, alertID id.AlertID, note *string) (*models.Alert, error)
	Summarize(ctx context.Context, windowDays *int) (map[models.Severity]int, error)
}

// Handler wires alert endpoints to the lifecycle manager.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an alert handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts alert endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/alerts", h.HandleCreate)
	r.Get("/alerts/open", h.HandleListOpen)
	r.Post("/alerts/summary", h.HandleSummary)
	r.Post("/alerts/{alertID}/resolve", h.HandleResolve)
}

// HandleCreate handles POST /alerts requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	alert, err := h.service.Create(ctx, req.ToInput())
	if err != nil {
		h.logger.ErrorContext(ctx, "alert creation failed",
			"request_id", requestID,
			"provider_id", req.ProviderID,
			"severity", req.Severity,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "alert created",
		"request_id", requestID,
		"alert_id", alert.ID,
		"provider_id", req.ProviderID,
		"severity", alert.Severity,
	)
	httputil.WriteJSON(w, http.StatusCreated, alert)
}

// HandleListOpen handles GET /alerts/open requests. Filters come from the
// provider_id and severity query parameters.
func (h *Handler) HandleListOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var filter service.ListFilter
	if raw := r.URL.Query().Get("provider_id"); raw != "" {
		providerID, err := id.ParseProviderID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.ProviderID = &providerID
	}
	filter.Severity = models.Severity(r.URL.Query().Get("severity"))

	alerts, err := h.service.ListOpen(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "alert listing failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListOpenResponse{Alerts: alerts})
}

// HandleResolve handles POST /alerts/{alertID}/resolve requests. The body is
// optional; when present it may carry a resolution_note.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	alertID, err := id.ParseAlertID(chi.URLParam(r, "alertID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	alert, err := h.service.Resolve(ctx, alertID, req.ResolutionNote)
	if err != nil {
		h.logger.ErrorContext(ctx, "alert resolution failed",
			"request_id", requestID,
			"alert_id", alertID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "alert resolved",
		"request_id", requestID,
		"alert_id", alertID,
	)
	httputil.WriteJSON(w, http.StatusOK, alert)
}

// HandleSummary handles POST /alerts/summary requests.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SummaryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	counts, err := h.service.Summarize(ctx, req.WindowDays)
	if err != nil {
		h.logger.ErrorContext(ctx, "alert summary failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SummaryResponse{Counts: counts})
}
