// Package domain defines typed identifiers shared across feature packages.
//
// Each entity gets its own UUID-backed type so the compiler rejects a
// ProviderID where a CredentialID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "credentialwatch/pkg/domain-errors"
)

type (
	// ProviderID identifies a credentialed provider record.
	ProviderID uuid.UUID
	// CredentialID identifies a single license or certification.
	CredentialID uuid.UUID
	// AlertID identifies an alert record.
	AlertID uuid.UUID
)

func (id ProviderID) String() string   { return uuid.UUID(id).String() }
func (id CredentialID) String() string { return uuid.UUID(id).String() }
func (id AlertID) String() string      { return uuid.UUID(id).String() }

func (id ProviderID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AlertID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// NewProviderID returns a fresh random provider ID.
func NewProviderID() ProviderID { return ProviderID(uuid.New()) }

// NewCredentialID returns a fresh random credential ID.
func NewCredentialID() CredentialID { return CredentialID(uuid.New()) }

// NewAlertID returns a fresh random alert ID.
func NewAlertID() AlertID { return AlertID(uuid.New()) }

// ParseProviderID parses s into a ProviderID, rejecting empty and nil UUIDs.
func ParseProviderID(s string) (ProviderID, error) {
	u, err := parseUUID(s, "provider id")
	return ProviderID(u), err
}

// ParseCredentialID parses s into a CredentialID, rejecting empty and nil UUIDs.
func ParseCredentialID(s string) (CredentialID, error) {
	u, err := parseUUID(s, "credential id")
	return CredentialID(u), err
}

// ParseAlertID parses s into an AlertID, rejecting empty and nil UUIDs.
func ParseAlertID(s string) (AlertID, error) {
	u, err := parseUUID(s, "alert id")
	return AlertID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s is required", label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s is not a valid UUID", label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s must not be the nil UUID", label)
	}
	return u, nil
}
