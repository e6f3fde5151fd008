// Package service implements the credential sync engine: it merges national
// registry data into local provider records.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	credmodels "credentialwatch/internal/credential/models"
	credstore "credentialwatch/internal/credential/store"
	provmetrics "credentialwatch/internal/provider/metrics"
	"credentialwatch/internal/provider/models"
	provstore "credentialwatch/internal/provider/store"
	"credentialwatch/internal/registry"
	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
	"credentialwatch/pkg/platform/sentinel"
	"credentialwatch/pkg/requestcontext"
)

// Service orchestrates provider sync and snapshots.
type Service struct {
	providers   provstore.Store
	credentials credstore.Store
	registry    registry.Lookup
	logger      *slog.Logger
	metrics     *provmetrics.Metrics
	tracer      trace.Tracer
}

func New(providers provstore.Store, credentials credstore.Store, reg registry.Lookup, logger *slog.Logger, metrics *provmetrics.Metrics) *Service {
	return &Service{
		providers:   providers,
		credentials: credentials,
		registry:    reg,
		logger:      logger,
		metrics:     metrics,
		tracer:      otel.Tracer("credentialwatch/provider"),
	}
}

// Sync resolves the NPI against the registry and upserts the local provider
// record. The registry is authoritative for name, location, and specialty.
// The upsert only happens after a successful lookup, so a cancelled or failed
// lookup leaves no partial write. Concurrent syncs of the same NPI are
// last-write-wins at the store layer.
func (s *Service) Sync(ctx context.Context, npi string) (*models.Provider, error) {
	start := time.Now()
	if !registry.IsValidNPI(npi) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "npi must be a 10-digit number")
	}

	lookupCtx, span := s.tracer.Start(ctx, "registry.lookup",
		trace.WithAttributes(attribute.String("npi", npi)))
	record, err := s.registry.Lookup(lookupCtx, npi)
	span.End()
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			s.recordRegistryFailure("not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "npi not found in registry")
		case errors.Is(err, sentinel.ErrUnavailable):
			s.recordRegistryFailure("unavailable")
			s.logger.ErrorContext(ctx, "registry lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"npi", npi,
				"error", err.Error(),
			)
			return nil, dErrors.New(dErrors.CodeUnavailable, "registry lookup failed")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
		}
	}

	now := requestcontext.Now(ctx)
	location := LocationOf(SelectAddress(record.Addresses))
	specialty := PrimarySpecialty(record.Taxonomies)

	outcome := "updated"
	provider, err := s.providers.FindByNPI(ctx, npi)
	switch {
	case err == nil:
		provider.ApplyRegistryData(record.FullName, location, specialty, now)
	case errors.Is(err, sentinel.ErrNotFound):
		outcome = "created"
		provider, err = models.NewProvider(id.NewProviderID(), npi, record.FullName, now)
		if err != nil {
			return nil, err
		}
		provider.ApplyRegistryData(record.FullName, location, specialty, now)
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provider")
	}

	if err := s.providers.Upsert(ctx, provider); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "another provider already holds this npi")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save provider")
	}

	if s.metrics != nil {
		s.metrics.RecordSync(outcome, start)
	}
	return provider, nil
}

// Snapshot is a provider together with all of its credentials.
type Snapshot struct {
	Provider    *models.Provider         `json:"provider"`
	Credentials []*credmodels.Credential `json:"credentials"`
}

// GetSnapshot returns a provider and its credentials, selected by internal ID
// or NPI. At least one selector is required; the internal ID wins when both
// are given.
func (s *Service) GetSnapshot(ctx context.Context, providerID *id.ProviderID, npi string) (*Snapshot, error) {
	var (
		provider *models.Provider
		err      error
	)
	switch {
	case providerID != nil:
		provider, err = s.providers.FindByID(ctx, *providerID)
	case npi != "":
		provider, err = s.providers.FindByNPI(ctx, npi)
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "must provide provider_id or npi")
	}
	if err != nil {
		return nil, wrapProviderErr(err)
	}

	credentials, err := s.credentials.ListByProvider(ctx, provider.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credentials")
	}
	return &Snapshot{Provider: provider, Credentials: credentials}, nil
}

// SearchRegistry runs a free-form query against the national registry. The
// query heuristic lives in the registry client; this layer only translates
// infrastructure failures into domain errors.
func (s *Service) SearchRegistry(ctx context.Context, req registry.SearchRequest) ([]registry.Record, error) {
	records, err := s.registry.Search(ctx, req)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			s.recordRegistryFailure("unavailable")
			return nil, dErrors.New(dErrors.CodeUnavailable, "registry search failed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "registry search failed")
	}
	return records, nil
}

// GetProvider returns one provider by internal ID.
func (s *Service) GetProvider(ctx context.Context, providerID id.ProviderID) (*models.Provider, error) {
	provider, err := s.providers.FindByID(ctx, providerID)
	if err != nil {
		return nil, wrapProviderErr(err)
	}
	return provider, nil
}

func (s *Service) recordRegistryFailure(kind string) {
	if s.metrics != nil {
		s.metrics.RecordRegistryFailure(kind)
	}
}

func wrapProviderErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "provider not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load provider")
}
