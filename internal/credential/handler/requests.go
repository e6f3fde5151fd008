package handler

import (
	"strings"
	"time"

	"credentialwatch/internal/credential/service"
	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
)

// dateLayout is the wire format for pure dates (expiry, issue).
const dateLayout = "2006-01-02"

// AddOrUpdateRequest is the HTTP request body for POST /credentials/add_or_update.
type AddOrUpdateRequest struct {
	ProviderID     string         `json:"provider_id"`
	Type           string         `json:"type"`
	Issuer         string         `json:"issuer"`
	Number         string         `json:"number"`
	ExpiryDate     string         `json:"expiry_date"`
	IssueDate      string         `json:"issue_date"`
	LastVerifiedAt string         `json:"last_verified_at"`
	Metadata       map[string]any `json:"metadata"`

	// Parsed values (populated by Validate)
	parsedProviderID     id.ProviderID
	parsedExpiryDate     *time.Time
	parsedIssueDate      *time.Time
	parsedLastVerifiedAt *time.Time
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *AddOrUpdateRequest) Validate() error {
	r.ProviderID = strings.TrimSpace(r.ProviderID)
	if r.ProviderID == "" {
		return dErrors.New(dErrors.CodeValidation, "provider_id is required")
	}
	providerID, err := id.ParseProviderID(r.ProviderID)
	if err != nil {
		return err
	}
	r.parsedProviderID = providerID

	r.Type = strings.TrimSpace(r.Type)
	if r.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	r.Number = strings.TrimSpace(r.Number)
	if r.Number == "" {
		return dErrors.New(dErrors.CodeValidation, "number is required")
	}

	if r.parsedExpiryDate, err = parseDate(r.ExpiryDate, "expiry_date"); err != nil {
		return err
	}
	if r.parsedIssueDate, err = parseDate(r.IssueDate, "issue_date"); err != nil {
		return err
	}
	if strings.TrimSpace(r.LastVerifiedAt) != "" {
		t, err := time.Parse(time.RFC3339, r.LastVerifiedAt)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "last_verified_at must be an RFC 3339 timestamp")
		}
		r.parsedLastVerifiedAt = &t
	}
	return nil
}

// ToInput converts the validated request into a service input.
func (r *AddOrUpdateRequest) ToInput() service.AddOrUpdateInput {
	return service.AddOrUpdateInput{
		ProviderID:     r.parsedProviderID,
		Type:           r.Type,
		Issuer:         strings.TrimSpace(r.Issuer),
		Number:         r.Number,
		ExpiryDate:     r.parsedExpiryDate,
		IssueDate:      r.parsedIssueDate,
		LastVerifiedAt: r.parsedLastVerifiedAt,
		Metadata:       r.Metadata,
	}
}

func parseDate(s, field string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeValidation, "%s must be a YYYY-MM-DD date", field)
	}
	return &t, nil
}

// ExpiringRequest is the HTTP request body for POST /credentials/expiring.
type ExpiringRequest struct {
	WindowDays int    `json:"window_days"`
	Dept       string `json:"dept"`
	Location   string `json:"location"`
}

// Validate validates the request.
func (r *ExpiringRequest) Validate() error {
	if r.WindowDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "window_days cannot be negative")
	}
	return nil
}
