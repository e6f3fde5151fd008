package handler

import (
	"strings"

	"credentialwatch/internal/registry"
	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
)

// SyncRequest is the HTTP request body for POST /providers/sync.
type SyncRequest struct {
	NPI string `json:"npi"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SyncRequest) Validate() error {
	r.NPI = strings.TrimSpace(r.NPI)
	if r.NPI == "" {
		return dErrors.New(dErrors.CodeValidation, "npi is required")
	}
	if !registry.IsValidNPI(r.NPI) {
		return dErrors.New(dErrors.CodeBadRequest, "npi must be a 10-digit number")
	}
	return nil
}

// SnapshotRequest is the HTTP request body for POST /providers/snapshot.
// Exactly one of provider_id or npi selects the provider; provider_id wins
// when both are given.
type SnapshotRequest struct {
	ProviderID string `json:"provider_id"`
	NPI        string `json:"npi"`

	parsedProviderID *id.ProviderID
}

// Validate validates and parses the request.
func (r *SnapshotRequest) Validate() error {
	r.ProviderID = strings.TrimSpace(r.ProviderID)
	r.NPI = strings.TrimSpace(r.NPI)
	if r.ProviderID == "" && r.NPI == "" {
		return dErrors.New(dErrors.CodeBadRequest, "must provide provider_id or npi")
	}
	if r.ProviderID != "" {
		providerID, err := id.ParseProviderID(r.ProviderID)
		if err != nil {
			return err
		}
		r.parsedProviderID = &providerID
	}
	return nil
}

// ParsedProviderID returns the validated provider ID, or nil when the request
// selects by NPI.
func (r *SnapshotRequest) ParsedProviderID() *id.ProviderID {
	return r.parsedProviderID
}

// RegistrySearchRequest is the HTTP request body for POST /registry/search.
type RegistrySearchRequest struct {
	Query    string `json:"query"`
	State    string `json:"state"`
	Taxonomy string `json:"taxonomy"`
}

// Validate validates the request.
func (r *RegistrySearchRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return dErrors.New(dErrors.CodeValidation, "query is required")
	}
	return nil
}
