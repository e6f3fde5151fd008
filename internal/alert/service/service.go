// Package service implements the alert lifecycle: creation with optional
// open-alert deduplication, listing, single-shot resolution, and summaries.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	alertmetrics "credentialwatch/internal/alert/metrics"
	"credentialwatch/internal/alert/models"
	alertstore "credentialwatch/internal/alert/store"
	credstore "credentialwatch/internal/credential/store"
	provstore "credentialwatch/internal/provider/store"
	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
	"credentialwatch/pkg/platform/sentinel"
	"credentialwatch/pkg/requestcontext"
)

// EventPublisher receives alert lifecycle transitions. Publishing is
// best-effort: the store stays the source of truth and a publish failure is
// logged, not surfaced.
type EventPublisher interface {
	PublishAlertCreated(ctx context.Context, alert *models.Alert) error
	PublishAlertResolved(ctx context.Context, alert *models.Alert) error
}

// CreateInput carries one alert creation request.
type CreateInput struct {
	ProviderID   id.ProviderID
	CredentialID *id.CredentialID
	Severity     models.Severity
	WindowDays   int
	Message      string
	Channel      string
}

// ListFilter narrows open-alert listings.
type ListFilter struct {
	ProviderID *id.ProviderID
	Severity   models.Severity
}

// Service orchestrates the alert lifecycle.
type Service struct {
	alerts      alertstore.Store
	providers   provstore.Store
	credentials credstore.Store
	publisher   EventPublisher
	logger      *slog.Logger
	metrics     *alertmetrics.Metrics
	dedupe      bool
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithPublisher wires an event publisher for lifecycle transitions.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics wires prometheus metrics.
func WithMetrics(m *alertmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDedupe toggles open-alert deduplication: at most one open alert per
// (provider, credential, severity) tuple. On by default.
func WithDedupe(enabled bool) Option {
	return func(s *Service) { s.dedupe = enabled }
}

func New(alerts alertstore.Store, providers provstore.Store, credentials credstore.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		alerts:      alerts,
		providers:   providers,
		credentials: credentials,
		logger:      logger,
		dedupe:      true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create records a new alert after verifying its provider (and credential,
// when referenced) exist. With dedupe enabled, an equivalent open alert is
// returned instead of creating a second one.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Alert, error) {
	if _, err := s.providers.FindByID(ctx, input.ProviderID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "provider not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provider")
	}
	if input.CredentialID != nil {
		if _, err := s.credentials.FindByID(ctx, *input.CredentialID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
		}
	}

	if s.dedupe {
		existing, err := s.alerts.FindOpenDuplicate(ctx, input.ProviderID, input.CredentialID, input.Severity)
		switch {
		case err == nil:
			if s.metrics != nil {
				s.metrics.RecordDeduplicated()
			}
			return existing, nil
		case errors.Is(err, sentinel.ErrNotFound):
			// No duplicate; proceed.
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to probe for duplicate alert")
		}
	}

	now := requestcontext.Now(ctx)
	alert, err := models.NewAlert(id.NewAlertID(), input.ProviderID, input.CredentialID, input.Severity, input.WindowDays, input.Message, input.Channel, now)
	if err != nil {
		return nil, err
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create alert")
	}

	if s.metrics != nil {
		s.metrics.RecordCreated(string(alert.Severity))
	}
	s.publishCreated(ctx, alert)
	return alert, nil
}

// ListOpen returns open alerts in creation order, optionally narrowed by
// provider and severity.
func (s *Service) ListOpen(ctx context.Context, filter ListFilter) ([]*models.Alert, error) {
	alerts, err := s.alerts.ListOpen(ctx, alertstore.OpenFilter{
		ProviderID: filter.ProviderID,
		Severity:   filter.Severity,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list alerts")
	}
	return alerts, nil
}

// Resolve transitions an alert to RESOLVED exactly once, storing the note.
// A second resolve is rejected with a conflict: resolved alerts are
// immutable. The store holds the record lock across validate and mutate, so
// two racing resolves cannot both succeed.
func (s *Service) Resolve(ctx context.Context, alertID id.AlertID, note *string) (*models.Alert, error) {
	now := requestcontext.Now(ctx)
	alert, err := s.alerts.Execute(ctx, alertID,
		func(a *models.Alert) error {
			return a.CanResolve()
		},
		func(a *models.Alert) {
			a.ApplyResolution(note, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "alert not found")
		}
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve alert")
	}

	if s.metrics != nil {
		s.metrics.RecordResolved()
	}
	s.publishResolved(ctx, alert)
	return alert, nil
}

// Summarize counts open alerts by severity. With a window, only alerts
// created within the trailing windowDays count. Severities with zero open
// alerts are absent from the map; callers must treat missing as zero.
func (s *Service) Summarize(ctx context.Context, windowDays *int) (map[models.Severity]int, error) {
	if windowDays != nil && *windowDays < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "window_days cannot be negative")
	}
	var cutoff *time.Time
	if windowDays != nil {
		t := requestcontext.Now(ctx).AddDate(0, 0, -*windowDays)
		cutoff = &t
	}
	counts, err := s.alerts.CountOpenBySeverity(ctx, cutoff)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to summarize alerts")
	}
	return counts, nil
}

func (s *Service) publishCreated(ctx context.Context, alert *models.Alert) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAlertCreated(ctx, alert); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish alert.created",
			"alert_id", alert.ID,
			"error", err.Error(),
		)
	}
}

func (s *Service) publishResolved(ctx context.Context, alert *models.Alert) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAlertResolved(ctx, alert); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish alert.resolved",
			"alert_id", alert.ID,
			"error", err.Error(),
		)
	}
}
