package handler

import "credentialwatch/internal/alert/models"

// ListOpenResponse is the HTTP response body for GET /alerts/open. Alerts
// are in creation order, oldest first.
type ListOpenResponse struct {
	Alerts []*models.Alert `json:"alerts"`
}

// SummaryResponse is the HTTP response body for POST /alerts/summary. The
// map is sparse: severities with no open alerts are absent.
type SummaryResponse struct {
	Counts map[models.Severity]int `json:"counts"`
}
