package models

import (
	"time"

	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
)

// Provider is the aggregate root for a credentialed individual or organization.
//
// Invariants:
//   - FullName is non-empty
//   - NPI, when present, is unique across providers (enforced by the store)
//   - Providers are never hard-deleted; Active=false marks them dormant
//
// Re-sync overwrites FullName, Location, and PrimarySpecialty from the
// registry; Dept is local-only and survives syncs.
type Provider struct {
	ID               id.ProviderID `json:"id"`
	NPI              string        `json:"npi,omitempty"`
	FullName         string        `json:"full_name"`
	Dept             string        `json:"dept,omitempty"`
	Location         string        `json:"location,omitempty"`
	PrimarySpecialty string        `json:"primary_specialty,omitempty"`
	Active           bool          `json:"is_active"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewProvider constructs an active provider, validating its invariants.
func NewProvider(providerID id.ProviderID, npi, fullName string, now time.Time) (*Provider, error) {
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "provider name cannot be empty")
	}
	return &Provider{
		ID:        providerID,
		NPI:       npi,
		FullName:  fullName,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyRegistryData overwrites the registry-authoritative fields. Empty
// location or specialty values are skipped so a registry response without an
// address does not erase what a previous sync established.
func (p *Provider) ApplyRegistryData(fullName, location, specialty string, now time.Time) {
	p.FullName = fullName
	if location != "" {
		p.Location = location
	}
	if specialty != "" {
		p.PrimarySpecialty = specialty
	}
	p.UpdatedAt = now
}
