package handler

import "credentialwatch/internal/registry"

// RegistrySearchResponse is the HTTP response body for POST /registry/search.
type RegistrySearchResponse struct {
	Results []registry.Record `json:"results"`
}
