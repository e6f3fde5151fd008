package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credmodels "credentialwatch/internal/credential/models"
	credstore "credentialwatch/internal/credential/store"
	provmodels "credentialwatch/internal/provider/models"
	provstore "credentialwatch/internal/provider/store"
	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
	"credentialwatch/pkg/requestcontext"
)

var scanNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func TestScore_TierBoundary(t *testing.T) {
	tests := []struct {
		name string
		days int
		want float64
	}{
		{"well inside urgent", 5, 1.0},
		{"day before threshold", 29, 1.0},
		{"at threshold", 30, 0.5},
		{"just past threshold", 31, 0.5},
		{"already expired", -3, 1.0},
		{"expires today", 0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.days))
		})
	}
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	early := time.Date(2026, 3, 16, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(late, early))

	assert.Equal(t, 0, DaysBetween(scanNow, scanNow))
	assert.Equal(t, -2, DaysBetween(scanNow, scanNow.AddDate(0, 0, -2)))
}

func TestEvaluate_NoExpiryDate(t *testing.T) {
	credential := &credmodels.Credential{Type: "license", Number: "X1"}
	_, err := Evaluate(credential, scanNow)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
}

type fixture struct {
	evaluator   *Evaluator
	providers   *provstore.InMemory
	credentials *credstore.InMemory
	ctx         context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	providers := provstore.NewInMemory()
	credentials := credstore.NewInMemory()
	return &fixture{
		evaluator:   NewEvaluator(credentials, providers),
		providers:   providers,
		credentials: credentials,
		ctx:         requestcontext.WithTime(context.Background(), scanNow),
	}
}

func (f *fixture) addProvider(t *testing.T, name, dept, location string) id.ProviderID {
	t.Helper()
	provider, err := provmodels.NewProvider(id.NewProviderID(), "", name, scanNow)
	require.NoError(t, err)
	provider.Dept = dept
	provider.Location = location
	require.NoError(t, f.providers.Upsert(f.ctx, provider))
	return provider.ID
}

func (f *fixture) addCredential(t *testing.T, providerID id.ProviderID, number string, daysOut int) *credmodels.Credential {
	t.Helper()
	expiry := scanNow.AddDate(0, 0, daysOut)
	credential, err := credmodels.NewCredential(id.NewCredentialID(), providerID, "license", "state board", number, &expiry, scanNow)
	require.NoError(t, err)
	require.NoError(t, f.credentials.Upsert(f.ctx, credential))
	return credential
}

func TestFindExpiring_WindowBoundary(t *testing.T) {
	f := newFixture(t)
	providerID := f.addProvider(t, "Dr. Amara Osei", "cardiology", "Portland, OR")

	f.addCredential(t, providerID, "IN-10", 10)
	f.addCredential(t, providerID, "ON-30", 30)
	f.addCredential(t, providerID, "OUT-31", 31)

	candidates, err := f.evaluator.FindExpiring(f.ctx, 30, Filters{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "IN-10", candidates[0].Credential.Number)
	assert.Equal(t, "ON-30", candidates[1].Credential.Number)
}

func TestFindExpiring_ScoresPerTier(t *testing.T) {
	f := newFixture(t)
	providerID := f.addProvider(t, "Dr. Amara Osei", "", "")

	f.addCredential(t, providerID, "URGENT", 10)
	f.addCredential(t, providerID, "WATCHED", 100)

	candidates, err := f.evaluator.FindExpiring(f.ctx, 120, Filters{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, 10, candidates[0].DaysToExpiry)
	assert.Equal(t, 1.0, candidates[0].RiskScore)
	assert.Equal(t, 100, candidates[1].DaysToExpiry)
	assert.Equal(t, 0.5, candidates[1].RiskScore)
}

func TestFindExpiring_IncludesPastDueActives(t *testing.T) {
	f := newFixture(t)
	providerID := f.addProvider(t, "Dr. Amara Osei", "", "")

	// Stored as active even though the expiry has passed: status is only
	// recomputed on write, and the scan must still surface it.
	expiry := scanNow.AddDate(0, 0, -5)
	stale, err := credmodels.NewCredential(id.NewCredentialID(), providerID, "license", "", "STALE", &expiry, scanNow.AddDate(0, 0, -30))
	require.NoError(t, err)
	stale.Status = credmodels.StatusActive
	require.NoError(t, f.credentials.Upsert(f.ctx, stale))

	candidates, err := f.evaluator.FindExpiring(f.ctx, 30, Filters{})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, -5, candidates[0].DaysToExpiry)
	assert.Equal(t, 1.0, candidates[0].RiskScore)
}

func TestFindExpiring_SkipsExpiredStatus(t *testing.T) {
	f := newFixture(t)
	providerID := f.addProvider(t, "Dr. Amara Osei", "", "")

	expiry := scanNow.AddDate(0, 0, 5)
	credential, err := credmodels.NewCredential(id.NewCredentialID(), providerID, "license", "", "MARKED", &expiry, scanNow)
	require.NoError(t, err)
	credential.Status = credmodels.StatusExpired
	require.NoError(t, f.credentials.Upsert(f.ctx, credential))

	candidates, err := f.evaluator.FindExpiring(f.ctx, 30, Filters{})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFindExpiring_Filters(t *testing.T) {
	f := newFixture(t)
	cardiology := f.addProvider(t, "Dr. Amara Osei", "cardiology", "Portland, OR")
	radiology := f.addProvider(t, "Dr. Lena Fischer", "radiology", "Seattle, WA")
	f.addCredential(t, cardiology, "CARD-1", 10)
	f.addCredential(t, radiology, "RAD-1", 10)

	t.Run("dept exact match", func(t *testing.T) {
		candidates, err := f.evaluator.FindExpiring(f.ctx, 30, Filters{Dept: "cardiology"})
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "CARD-1", candidates[0].Credential.Number)
	})

	t.Run("dept is case sensitive", func(t *testing.T) {
		candidates, err := f.evaluator.FindExpiring(f.ctx, 30, Filters{Dept: "Cardiology"})
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("location substring", func(t *testing.T) {
		candidates, err := f.evaluator.FindExpiring(f.ctx, 30, Filters{LocationContains: "Seattle"})
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "RAD-1", candidates[0].Credential.Number)
	})

	t.Run("location substring is case sensitive", func(t *testing.T) {
		candidates, err := f.evaluator.FindExpiring(f.ctx, 30, Filters{LocationContains: "seattle"})
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("both filters combine", func(t *testing.T) {
		candidates, err := f.evaluator.FindExpiring(f.ctx, 30, Filters{Dept: "cardiology", LocationContains: "Seattle"})
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})
}

func TestFindExpiring_OrderedMostUrgentFirst(t *testing.T) {
	f := newFixture(t)
	providerID := f.addProvider(t, "Dr. Amara Osei", "", "")
	f.addCredential(t, providerID, "LATER", 20)
	f.addCredential(t, providerID, "SOON", 3)
	f.addCredential(t, providerID, "MID", 11)

	candidates, err := f.evaluator.FindExpiring(f.ctx, 30, Filters{})
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, "SOON", candidates[0].Credential.Number)
	assert.Equal(t, "MID", candidates[1].Credential.Number)
	assert.Equal(t, "LATER", candidates[2].Credential.Number)
}

func TestFindExpiring_NegativeWindow(t *testing.T) {
	f := newFixture(t)
	_, err := f.evaluator.FindExpiring(f.ctx, -1, Filters{})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
}
