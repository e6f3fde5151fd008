// Package store persists credential records. Implementations return
// pkg/platform/sentinel errors; services translate them into domain errors.
package store

import (
	"context"
	"time"

	"credentialwatch/internal/credential/models"
	id "credentialwatch/pkg/domain"
)

// Query narrows a credential scan. Zero-value fields are ignored. When
// ExpiryOnOrBefore is set, credentials without an expiry date never match:
// they have no expiry lifecycle and are out of scope for risk evaluation.
type Query struct {
	ProviderID       *id.ProviderID
	Status           models.Status
	ExpiryOnOrBefore *time.Time
}

type Store interface {
	// Upsert writes the credential, inserting or replacing by ID. The
	// (provider_id, type, number) key is unique; the store returns
	// sentinel.ErrConflict if a different record already holds it.
	Upsert(ctx context.Context, credential *models.Credential) error
	// FindByID returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error)
	// FindByKey looks up by the natural key; sentinel.ErrNotFound when absent.
	FindByKey(ctx context.Context, key models.Key) (*models.Credential, error)
	// ListByProvider returns all credentials of one provider, oldest first.
	ListByProvider(ctx context.Context, providerID id.ProviderID) ([]*models.Credential, error)
	// Search returns credentials matching the query, in no guaranteed order;
	// callers that need determinism sort the result themselves.
	Search(ctx context.Context, q Query) ([]*models.Credential, error)
}
