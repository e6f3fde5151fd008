package handler

import "credentialwatch/internal/risk"

// ExpiringResponse is the HTTP response body for POST /credentials/expiring.
// Results are ordered by days to expiry ascending.
type ExpiringResponse struct {
	Results []risk.Candidate `json:"results"`
}
