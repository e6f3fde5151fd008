package store

import (
	"context"
	"sync"

	"credentialwatch/internal/provider/models"
	id "credentialwatch/pkg/domain"
	"credentialwatch/pkg/platform/sentinel"
)

// InMemory keeps providers in a map. It favors clarity over performance and
// backs unit tests and dev mode. Values are copied on the way in and out so
// callers never alias store state.
type InMemory struct {
	mu        sync.RWMutex
	providers map[id.ProviderID]models.Provider
}

func NewInMemory() *InMemory {
	return &InMemory{providers: make(map[id.ProviderID]models.Provider)}
}

func (s *InMemory) Upsert(_ context.Context, provider *models.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if provider.NPI != "" {
		for _, existing := range s.providers {
			if existing.NPI == provider.NPI && existing.ID != provider.ID {
				return sentinel.ErrConflict
			}
		}
	}
	s.providers[provider.ID] = *provider
	return nil
}

func (s *InMemory) FindByID(_ context.Context, providerID id.ProviderID) (*models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.providers[providerID]; ok {
		return &p, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByNPI(_ context.Context, npi string) (*models.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if npi == "" {
		return nil, sentinel.ErrNotFound
	}
	for _, p := range s.providers {
		if p.NPI == npi {
			found := p
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
