package models

import (
	"time"

	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
)

// Status is the lifecycle state of a credential.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	// StatusPending is never derived automatically; it must be set
	// explicitly by an operator workflow.
	StatusPending Status = "pending"
)

// Credential is a single license or certification held by a provider.
//
// Invariants:
//   - Uniqueness key is (ProviderID, Type, Number); a resubmission with a
//     matching key updates the existing record in place
//   - Status is recomputed on every write that touches ExpiryDate: past
//     expiry derives StatusExpired, otherwise StatusActive
//   - Status is only a write-time snapshot; it can go stale between writes,
//     which is exactly why expiry queries include past-due actives
type Credential struct {
	ID             id.CredentialID `json:"id"`
	ProviderID     id.ProviderID   `json:"provider_id"`
	Type           string          `json:"type"`
	Issuer         string          `json:"issuer"`
	Number         string          `json:"number"`
	Status         Status          `json:"status"`
	IssueDate      *time.Time      `json:"issue_date,omitempty"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	LastVerifiedAt *time.Time      `json:"last_verified_at,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Key is the natural uniqueness key of a credential.
type Key struct {
	ProviderID id.ProviderID
	Type       string
	Number     string
}

// Key returns the credential's natural key.
func (c *Credential) Key() Key {
	return Key{ProviderID: c.ProviderID, Type: c.Type, Number: c.Number}
}

// NewCredential constructs a credential with its status derived from the
// expiry date as of now.
func NewCredential(credentialID id.CredentialID, providerID id.ProviderID, credType, issuer, number string, expiry *time.Time, now time.Time) (*Credential, error) {
	if credType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "credential type is required")
	}
	if number == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "credential number is required")
	}
	return &Credential{
		ID:         credentialID,
		ProviderID: providerID,
		Type:       credType,
		Issuer:     issuer,
		Number:     number,
		Status:     DeriveStatus(expiry, now),
		ExpiryDate: expiry,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ApplyUpdate overwrites the mutable fields on resubmission of the same key
// and recomputes the status snapshot.
func (c *Credential) ApplyUpdate(issuer string, expiry *time.Time, now time.Time) {
	c.Issuer = issuer
	c.ExpiryDate = expiry
	c.Status = DeriveStatus(expiry, now)
	c.UpdatedAt = now
}

// DeriveStatus derives the write-time status from the expiry date. A missing
// expiry means the credential cannot expire, so it stays active. Comparison
// is by civil date: a credential expiring today is not yet expired.
func DeriveStatus(expiry *time.Time, asOf time.Time) Status {
	if expiry == nil {
		return StatusActive
	}
	if DateOf(*expiry).Before(DateOf(asOf)) {
		return StatusExpired
	}
	return StatusActive
}

// DateOf truncates t to midnight UTC, the civil date used for all expiry
// arithmetic.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
