package handler

import (
	"strings"

	"credentialwatch/internal/alert/models"
	"credentialwatch/internal/alert/service"
	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
)

// CreateRequest is the HTTP request body for POST /alerts.
type CreateRequest struct {
	ProviderID   string `json:"provider_id"`
	CredentialID string `json:"credential_id"`
	Severity     string `json:"severity"`
	WindowDays   int    `json:"window_days"`
	Message      string `json:"message"`
	Channel      string `json:"channel"`

	// Parsed values (populated by Validate)
	parsedProviderID   id.ProviderID
	parsedCredentialID *id.CredentialID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateRequest) Validate() error {
	r.ProviderID = strings.TrimSpace(r.ProviderID)
	if r.ProviderID == "" {
		return dErrors.New(dErrors.CodeValidation, "provider_id is required")
	}
	providerID, err := id.ParseProviderID(r.ProviderID)
	if err != nil {
		return err
	}
	r.parsedProviderID = providerID

	r.CredentialID = strings.TrimSpace(r.CredentialID)
	if r.CredentialID != "" {
		credentialID, err := id.ParseCredentialID(r.CredentialID)
		if err != nil {
			return err
		}
		r.parsedCredentialID = &credentialID
	}

	r.Severity = strings.TrimSpace(r.Severity)
	if r.Severity == "" {
		return dErrors.New(dErrors.CodeValidation, "severity is required")
	}
	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		return dErrors.New(dErrors.CodeValidation, "message is required")
	}
	if r.WindowDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "window_days cannot be negative")
	}
	return nil
}

// ToInput converts the validated request into a service input.
func (r *CreateRequest) ToInput() service.CreateInput {
	return service.CreateInput{
		ProviderID:   r.parsedProviderID,
		CredentialID: r.parsedCredentialID,
		Severity:     models.Severity(r.Severity),
		WindowDays:   r.WindowDays,
		Message:      r.Message,
		Channel:      strings.TrimSpace(r.Channel),
	}
}

// ResolveRequest is the HTTP request body for POST /alerts/{id}/resolve.
// An empty body resolves without a note.
type ResolveRequest struct {
	ResolutionNote *string `json:"resolution_note"`
}

// SummaryRequest is the HTTP request body for POST /alerts/summary.
type SummaryRequest struct {
	WindowDays *int `json:"window_days"`
}

// Validate validates the request.
func (r *SummaryRequest) Validate() error {
	if r.WindowDays != nil && *r.WindowDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "window_days cannot be negative")
	}
	return nil
}
