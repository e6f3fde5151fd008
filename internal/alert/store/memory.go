package store

import (
	"context"
	"sync"
	"time"

	"credentialwatch/internal/alert/models"
	id "credentialwatch/pkg/domain"
	"credentialwatch/pkg/platform/sentinel"
)

// InMemory keeps alerts in a map plus an insertion-order slice so ListOpen
// returns creation order without re-sorting. Values are copied in and out.
type InMemory struct {
	mu     sync.RWMutex
	alerts map[id.AlertID]*models.Alert
	order  []id.AlertID
}

func NewInMemory() *InMemory {
	return &InMemory{alerts: make(map[id.AlertID]*models.Alert)}
}

func (s *InMemory) Create(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; ok {
		return sentinel.ErrConflict
	}
	clone := cloneAlert(alert)
	s.alerts[alert.ID] = &clone
	s.order = append(s.order, alert.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, alertID id.AlertID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.alerts[alertID]; ok {
		clone := cloneAlert(a)
		return &clone, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Execute(_ context.Context, alertID id.AlertID, validate func(*models.Alert) error, mutate func(*models.Alert)) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.alerts[alertID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := cloneAlert(stored)
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.alerts[alertID] = &working
	result := cloneAlert(&working)
	return &result, nil
}

func (s *InMemory) ListOpen(_ context.Context, filter OpenFilter) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Alert
	for _, alertID := range s.order {
		a := s.alerts[alertID]
		if !a.IsOpen() {
			continue
		}
		if filter.ProviderID != nil && a.ProviderID != *filter.ProviderID {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		clone := cloneAlert(a)
		out = append(out, &clone)
	}
	return out, nil
}

func (s *InMemory) FindOpenDuplicate(_ context.Context, providerID id.ProviderID, credentialID *id.CredentialID, severity models.Severity) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, alertID := range s.order {
		a := s.alerts[alertID]
		if !a.IsOpen() || a.ProviderID != providerID || a.Severity != severity {
			continue
		}
		if !sameCredentialRef(a.CredentialID, credentialID) {
			continue
		}
		clone := cloneAlert(a)
		return &clone, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) CountOpenBySeverity(_ context.Context, createdAfter *time.Time) (map[models.Severity]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.Severity]int)
	for _, a := range s.alerts {
		if !a.IsOpen() {
			continue
		}
		if createdAfter != nil && a.CreatedAt.Before(*createdAfter) {
			continue
		}
		counts[a.Severity]++
	}
	return counts, nil
}

func sameCredentialRef(a, b *id.CredentialID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneAlert(a *models.Alert) models.Alert {
	out := *a
	if a.CredentialID != nil {
		c := *a.CredentialID
		out.CredentialID = &c
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		out.ResolvedAt = &t
	}
	if a.ResolutionNote != nil {
		n := *a.ResolutionNote
		out.ResolutionNote = &n
	}
	return out
}
