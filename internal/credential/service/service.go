// Package service implements credential writes (upsert by natural key) and
// the expiring-credential query surface.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	credmetrics "credentialwatch/internal/credential/metrics"
	"credentialwatch/internal/credential/models"
	credstore "credentialwatch/internal/credential/store"
	provstore "credentialwatch/internal/provider/store"
	"credentialwatch/internal/risk"
	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
	"credentialwatch/pkg/platform/sentinel"
	"credentialwatch/pkg/requestcontext"
)

// AddOrUpdateInput carries one credential submission. IssueDate, LastVerifiedAt,
// and Metadata only apply on first creation; resubmissions overwrite issuer,
// expiry, and the derived status.
type AddOrUpdateInput struct {
	ProviderID     id.ProviderID
	Type           string
	Issuer         string
	Number         string
	ExpiryDate     *time.Time
	IssueDate      *time.Time
	LastVerifiedAt *time.Time
	Metadata       map[string]any
}

// Service orchestrates credential writes and expiry queries.
type Service struct {
	credentials credstore.Store
	providers   provstore.Store
	evaluator   *risk.Evaluator
	logger      *slog.Logger
	metrics     *credmetrics.Metrics
}

func New(credentials credstore.Store, providers provstore.Store, evaluator *risk.Evaluator, logger *slog.Logger, metrics *credmetrics.Metrics) *Service {
	return &Service{
		credentials: credentials,
		providers:   providers,
		evaluator:   evaluator,
		logger:      logger,
		metrics:     metrics,
	}
}

// AddOrUpdate upserts a credential by its (provider, type, number) key: a
// first submission creates the record, a resubmission with a matching key
// updates it in place. Status is recomputed from the expiry date on every
// write. The write is a read-construct-upsert of an immutable value, so a
// failed write never leaves a half-updated record.
func (s *Service) AddOrUpdate(ctx context.Context, input AddOrUpdateInput) (*models.Credential, error) {
	if _, err := s.providers.FindByID(ctx, input.ProviderID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "provider not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provider")
	}

	now := requestcontext.Now(ctx)
	key := models.Key{ProviderID: input.ProviderID, Type: input.Type, Number: input.Number}

	existing, err := s.credentials.FindByKey(ctx, key)
	switch {
	case err == nil:
		updated := *existing
		updated.ApplyUpdate(input.Issuer, input.ExpiryDate, now)
		if input.LastVerifiedAt != nil {
			updated.LastVerifiedAt = input.LastVerifiedAt
		}
		if err := s.credentials.Upsert(ctx, &updated); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update credential")
		}
		s.recordUpsert("updated")
		return &updated, nil

	case errors.Is(err, sentinel.ErrNotFound):
		credential, err := models.NewCredential(id.NewCredentialID(), input.ProviderID, input.Type, input.Issuer, input.Number, input.ExpiryDate, now)
		if err != nil {
			return nil, err
		}
		credential.IssueDate = input.IssueDate
		credential.LastVerifiedAt = input.LastVerifiedAt
		credential.Metadata = input.Metadata
		if err := s.credentials.Upsert(ctx, credential); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// Lost a race with a concurrent first submission of the
				// same key; last-write-wins via the update path.
				return s.AddOrUpdate(ctx, input)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create credential")
		}
		s.recordUpsert("created")
		return credential, nil

	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up credential")
	}
}

// GetCredential returns one credential by ID.
func (s *Service) GetCredential(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	credential, err := s.credentials.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return credential, nil
}

// FindExpiring returns at-risk credentials inside the window, most urgent
// first. See risk.Evaluator.FindExpiring for the selection contract.
func (s *Service) FindExpiring(ctx context.Context, windowDays int, filters risk.Filters) ([]risk.Candidate, error) {
	start := time.Now()
	candidates, err := s.evaluator.FindExpiring(ctx, windowDays, filters)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveExpiringQuery(start)
	}
	return candidates, nil
}

func (s *Service) recordUpsert(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordUpsert(outcome)
	}
}
