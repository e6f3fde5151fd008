package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credentialwatch/internal/credential/models"
	credstore "credentialwatch/internal/credential/store"
	provmodels "credentialwatch/internal/provider/models"
	provstore "credentialwatch/internal/provider/store"
	"credentialwatch/internal/risk"
	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
	"credentialwatch/pkg/requestcontext"
)

var testNow = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	service    *Service
	providerID id.ProviderID
	ctx        context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := requestcontext.WithTime(context.Background(), testNow)

	providers := provstore.NewInMemory()
	provider, err := provmodels.NewProvider(id.NewProviderID(), "1234567890", "Dr. Amara Osei", testNow)
	require.NoError(t, err)
	require.NoError(t, providers.Upsert(ctx, provider))

	credentials := credstore.NewInMemory()
	evaluator := risk.NewEvaluator(credentials, providers)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	return &fixture{
		service:    New(credentials, providers, evaluator, logger, nil),
		providerID: provider.ID,
		ctx:        ctx,
	}
}

func (f *fixture) input(daysOut int) AddOrUpdateInput {
	expiry := testNow.AddDate(0, 0, daysOut)
	return AddOrUpdateInput{
		ProviderID: f.providerID,
		Type:       "license",
		Issuer:     "state board",
		Number:     "L-100",
		ExpiryDate: &expiry,
	}
}

func TestAddOrUpdate_CreatesOnFirstSubmission(t *testing.T) {
	f := newFixture(t)

	credential, err := f.service.AddOrUpdate(f.ctx, f.input(90))
	require.NoError(t, err)
	assert.False(t, credential.ID.IsNil())
	assert.Equal(t, models.StatusActive, credential.Status)
	assert.Equal(t, testNow, credential.CreatedAt)
}

func TestAddOrUpdate_UpdatesInPlaceOnSameKey(t *testing.T) {
	f := newFixture(t)

	first, err := f.service.AddOrUpdate(f.ctx, f.input(90))
	require.NoError(t, err)

	laterCtx := requestcontext.WithTime(context.Background(), testNow.Add(time.Hour))
	resubmit := f.input(120)
	resubmit.Issuer = "new board"
	second, err := f.service.AddOrUpdate(laterCtx, resubmit)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "same key must update, not create")
	assert.Equal(t, "new board", second.Issuer)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestAddOrUpdate_DifferentNumberCreatesNewRecord(t *testing.T) {
	f := newFixture(t)

	first, err := f.service.AddOrUpdate(f.ctx, f.input(90))
	require.NoError(t, err)

	other := f.input(90)
	other.Number = "L-200"
	second, err := f.service.AddOrUpdate(f.ctx, other)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestAddOrUpdate_DerivesStatusAtWrite(t *testing.T) {
	f := newFixture(t)

	expired, err := f.service.AddOrUpdate(f.ctx, f.input(-1))
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, expired.Status)

	// Renewal flips it back to active.
	renewed, err := f.service.AddOrUpdate(f.ctx, f.input(365))
	require.NoError(t, err)
	assert.Equal(t, expired.ID, renewed.ID)
	assert.Equal(t, models.StatusActive, renewed.Status)
}

func TestAddOrUpdate_NoExpiryStaysActive(t *testing.T) {
	f := newFixture(t)

	input := f.input(0)
	input.ExpiryDate = nil
	credential, err := f.service.AddOrUpdate(f.ctx, input)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, credential.Status)
}

func TestAddOrUpdate_UnknownProvider(t *testing.T) {
	f := newFixture(t)

	input := f.input(90)
	input.ProviderID = id.NewProviderID()
	_, err := f.service.AddOrUpdate(f.ctx, input)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestAddOrUpdate_CarriesOptionalFields(t *testing.T) {
	f := newFixture(t)

	issued := testNow.AddDate(-1, 0, 0)
	verified := testNow.Add(-time.Hour)
	input := f.input(90)
	input.IssueDate = &issued
	input.LastVerifiedAt = &verified
	input.Metadata = map[string]any{"board": "OR"}

	credential, err := f.service.AddOrUpdate(f.ctx, input)
	require.NoError(t, err)
	require.NotNil(t, credential.IssueDate)
	assert.Equal(t, issued, *credential.IssueDate)
	require.NotNil(t, credential.LastVerifiedAt)
	assert.Equal(t, "OR", credential.Metadata["board"])
}

func TestGetCredential_Unknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.GetCredential(f.ctx, id.NewCredentialID())
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestFindExpiring_DelegatesToEvaluator(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.AddOrUpdate(f.ctx, f.input(10))
	require.NoError(t, err)

	candidates, err := f.service.FindExpiring(f.ctx, 30, risk.Filters{})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 10, candidates[0].DaysToExpiry)
	assert.Equal(t, 1.0, candidates[0].RiskScore)
}
