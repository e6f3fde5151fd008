package models

import (
	"time"

	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
)

// Severity indicates alert urgency. The set is open-ended; these are the
// values the scanner emits.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// DefaultChannel is recorded when a caller does not name one. Delivery is
// out of scope; the channel is metadata for downstream dispatchers.
const DefaultChannel = "ui"

// Alert flags that a credential (or a provider generally) needs attention.
//
// State machine: OPEN --resolve(note)--> RESOLVED. RESOLVED is terminal; the
// resolution fields are set exactly once and a second resolve is rejected.
// An alert is open iff ResolvedAt is nil.
//
// Alerts weak-reference their provider and credential by ID. Providers are
// never deleted in this design, so no cascade policy applies; resolved
// alerts are kept forever as history.
type Alert struct {
	ID             id.AlertID       `json:"id"`
	ProviderID     id.ProviderID    `json:"provider_id"`
	CredentialID   *id.CredentialID `json:"credential_id,omitempty"`
	Severity       Severity         `json:"severity"`
	WindowDays     int              `json:"window_days"`
	Message        string           `json:"message"`
	Channel        string           `json:"channel"`
	CreatedAt      time.Time        `json:"created_at"`
	ResolvedAt     *time.Time       `json:"resolved_at,omitempty"`
	ResolutionNote *string          `json:"resolution_note,omitempty"`
}

// NewAlert constructs an open alert, validating its invariants.
func NewAlert(alertID id.AlertID, providerID id.ProviderID, credentialID *id.CredentialID, severity Severity, windowDays int, message, channel string, now time.Time) (*Alert, error) {
	if severity == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "alert severity is required")
	}
	if message == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "alert message is required")
	}
	if windowDays < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "window_days cannot be negative")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Alert{
		ID:           alertID,
		ProviderID:   providerID,
		CredentialID: credentialID,
		Severity:     severity,
		WindowDays:   windowDays,
		Message:      message,
		Channel:      channel,
		CreatedAt:    now,
	}, nil
}

// IsOpen reports whether the alert has not been resolved yet.
func (a *Alert) IsOpen() bool {
	return a.ResolvedAt == nil
}

// CanResolve checks the OPEN -> RESOLVED transition. Resolved alerts are
// immutable, so a second resolve is a conflict, never an overwrite.
func (a *Alert) CanResolve() error {
	if !a.IsOpen() {
		return dErrors.New(dErrors.CodeConflict, "alert is already resolved")
	}
	return nil
}

// ApplyResolution sets the resolution fields. Call CanResolve first.
func (a *Alert) ApplyResolution(note *string, now time.Time) {
	a.ResolvedAt = &now
	a.ResolutionNote = note
}

// Resolve validates and applies resolution in one call.
func (a *Alert) Resolve(note *string, now time.Time) error {
	if err := a.CanResolve(); err != nil {
		return err
	}
	a.ApplyResolution(note, now)
	return nil
}
