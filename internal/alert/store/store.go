// Package store persists alert records. Implementations return
// pkg/platform/sentinel errors; services translate them into domain errors.
package store

import (
	"context"
	"time"

	"credentialwatch/internal/alert/models"
	id "credentialwatch/pkg/domain"
)

// OpenFilter narrows a listing of open alerts. Zero-value fields are ignored.
type OpenFilter struct {
	ProviderID *id.ProviderID
	Severity   models.Severity
}

type Store interface {
	// Create inserts a new alert.
	Create(ctx context.Context, alert *models.Alert) error
	// FindByID returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, alertID id.AlertID) (*models.Alert, error)
	// Execute atomically loads the alert, runs validate, and persists the
	// result of mutate while holding the record lock (mutex in memory,
	// SELECT ... FOR UPDATE in PostgreSQL). This is what makes
	// double-resolve rejection race-free.
	Execute(ctx context.Context, alertID id.AlertID, validate func(*models.Alert) error, mutate func(*models.Alert)) (*models.Alert, error)
	// ListOpen returns open alerts in creation order (oldest first).
	ListOpen(ctx context.Context, filter OpenFilter) ([]*models.Alert, error)
	// FindOpenDuplicate returns an open alert matching the dedup tuple
	// (provider, credential, severity), or sentinel.ErrNotFound.
	FindOpenDuplicate(ctx context.Context, providerID id.ProviderID, credentialID *id.CredentialID, severity models.Severity) (*models.Alert, error)
	// CountOpenBySeverity counts open alerts grouped by severity. A non-nil
	// createdAfter additionally restricts to alerts created at or after it.
	// Severities with no open alerts are absent from the map.
	CountOpenBySeverity(ctx context.Context, createdAfter *time.Time) (map[models.Severity]int, error)
}
