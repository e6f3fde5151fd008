package store

import (
	"context"
	"sort"
	"sync"

	"credentialwatch/internal/credential/models"
	id "credentialwatch/pkg/domain"
	"credentialwatch/pkg/platform/sentinel"
)

// InMemory keeps credentials in a map keyed by ID with a secondary index on
// the natural key. Values are copied in and out so callers never alias store
// state.
type InMemory struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]models.Credential
	byKey       map[models.Key]id.CredentialID
}

func NewInMemory() *InMemory {
	return &InMemory{
		credentials: make(map[id.CredentialID]models.Credential),
		byKey:       make(map[models.Key]id.CredentialID),
	}
}

func (s *InMemory) Upsert(_ context.Context, credential *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := credential.Key()
	if existingID, ok := s.byKey[key]; ok && existingID != credential.ID {
		return sentinel.ErrConflict
	}
	if prev, ok := s.credentials[credential.ID]; ok {
		delete(s.byKey, prev.Key())
	}
	s.credentials[credential.ID] = cloneCredential(credential)
	s.byKey[key] = credential.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.credentials[credentialID]; ok {
		out := cloneCredential(&c)
		return &out, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByKey(_ context.Context, key models.Key) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credentialID, ok := s.byKey[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := s.credentials[credentialID]
	out := cloneCredential(&c)
	return &out, nil
}

func (s *InMemory) ListByProvider(_ context.Context, providerID id.ProviderID) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Credential
	for _, c := range s.credentials {
		if c.ProviderID == providerID {
			clone := cloneCredential(&c)
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Search(_ context.Context, q Query) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Credential
	for _, c := range s.credentials {
		if q.ProviderID != nil && c.ProviderID != *q.ProviderID {
			continue
		}
		if q.Status != "" && c.Status != q.Status {
			continue
		}
		if q.ExpiryOnOrBefore != nil {
			if c.ExpiryDate == nil {
				continue
			}
			if models.DateOf(*c.ExpiryDate).After(models.DateOf(*q.ExpiryOnOrBefore)) {
				continue
			}
		}
		clone := cloneCredential(&c)
		out = append(out, &clone)
	}
	return out, nil
}

// cloneCredential deep-copies the credential, value copy covers everything
// except the metadata map.
func cloneCredential(c *models.Credential) models.Credential {
	out := *c
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
