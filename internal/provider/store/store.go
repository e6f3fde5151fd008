// Package store persists provider records. Implementations return
// pkg/platform/sentinel errors; services translate them into domain errors.
package store

import (
	"context"

	"credentialwatch/internal/provider/models"
	id "credentialwatch/pkg/domain"
)

// Store is interface-driven to keep the sync engine testable and to allow
// swapping in-memory and PostgreSQL persistence without rewiring business
// code.
type Store interface {
	// Upsert writes the provider, inserting or replacing by ID. The store
	// enforces NPI uniqueness and returns sentinel.ErrConflict on a clash.
	Upsert(ctx context.Context, provider *models.Provider) error
	// FindByID returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, providerID id.ProviderID) (*models.Provider, error)
	// FindByNPI returns sentinel.ErrNotFound when absent.
	FindByNPI(ctx context.Context, npi string) (*models.Provider, error)
}
