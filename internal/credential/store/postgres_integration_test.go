//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"credentialwatch/internal/credential/models"
	"credentialwatch/internal/credential/store"
	provmodels "credentialwatch/internal/provider/models"
	provstore "credentialwatch/internal/provider/store"
	id "credentialwatch/pkg/domain"
	"credentialwatch/pkg/platform/sentinel"
	"credentialwatch/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	postgres   *containers.PostgresContainer
	store      *store.Postgres
	providerID id.ProviderID
	now        time.Time
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresSuite) SetupTest() {
	ctx := context.Background()
	s.now = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	s.Require().NoError(s.postgres.TruncateTables(ctx, "alerts", "credentials", "providers"))

	provider, err := provmodels.NewProvider(id.NewProviderID(), "1234567890", "Dr. Amara Osei", s.now)
	s.Require().NoError(err)
	s.Require().NoError(provstore.NewPostgres(s.postgres.DB).Upsert(ctx, provider))
	s.providerID = provider.ID
}

func (s *PostgresSuite) newCredential(number string, daysOut int) *models.Credential {
	expiry := s.now.AddDate(0, 0, daysOut)
	credential, err := models.NewCredential(id.NewCredentialID(), s.providerID, "license", "state board", number, &expiry, s.now)
	s.Require().NoError(err)
	return credential
}

func (s *PostgresSuite) TestUpsertRoundTrip() {
	ctx := context.Background()
	credential := s.newCredential("L-1", 90)
	credential.Metadata = map[string]any{"board": "OR"}
	s.Require().NoError(s.store.Upsert(ctx, credential))

	found, err := s.store.FindByID(ctx, credential.ID)
	s.Require().NoError(err)
	s.Equal("L-1", found.Number)
	s.Equal(models.StatusActive, found.Status)
	s.Equal("OR", found.Metadata["board"])
	s.Require().NotNil(found.ExpiryDate)
	// DATE column round-trips as civil date.
	s.True(found.ExpiryDate.Equal(models.DateOf(s.now.AddDate(0, 0, 90))))
}

func (s *PostgresSuite) TestFindByKey() {
	ctx := context.Background()
	credential := s.newCredential("L-1", 90)
	s.Require().NoError(s.store.Upsert(ctx, credential))

	found, err := s.store.FindByKey(ctx, models.Key{ProviderID: s.providerID, Type: "license", Number: "L-1"})
	s.Require().NoError(err)
	s.Equal(credential.ID, found.ID)

	_, err = s.store.FindByKey(ctx, models.Key{ProviderID: s.providerID, Type: "license", Number: "L-2"})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestDuplicateKeyConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, s.newCredential("L-1", 90)))

	err := s.store.Upsert(ctx, s.newCredential("L-1", 120))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresSuite) TestListByProvider() {
	ctx := context.Background()
	first := s.newCredential("L-1", 90)
	s.Require().NoError(s.store.Upsert(ctx, first))
	second := s.newCredential("L-2", 120)
	second.CreatedAt = s.now.Add(time.Minute)
	s.Require().NoError(s.store.Upsert(ctx, second))

	credentials, err := s.store.ListByProvider(ctx, s.providerID)
	s.Require().NoError(err)
	s.Require().Len(credentials, 2)
	s.Equal("L-1", credentials[0].Number)
	s.Equal("L-2", credentials[1].Number)
}

func (s *PostgresSuite) TestSearchByStatusAndExpiry() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, s.newCredential("IN", 10)))
	s.Require().NoError(s.store.Upsert(ctx, s.newCredential("ON", 30)))
	s.Require().NoError(s.store.Upsert(ctx, s.newCredential("OUT", 31)))

	expired := s.newCredential("EXPIRED", 5)
	expired.Status = models.StatusExpired
	s.Require().NoError(s.store.Upsert(ctx, expired))

	target := s.now.AddDate(0, 0, 30)
	matches, err := s.store.Search(ctx, store.Query{
		Status:           models.StatusActive,
		ExpiryOnOrBefore: &target,
	})
	s.Require().NoError(err)
	s.Require().Len(matches, 2)

	numbers := []string{matches[0].Number, matches[1].Number}
	s.ElementsMatch([]string{"IN", "ON"}, numbers)
}

func (s *PostgresSuite) TestSearchSkipsNullExpiry() {
	ctx := context.Background()
	noExpiry, err := models.NewCredential(id.NewCredentialID(), s.providerID, "license", "", "PERMANENT", nil, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Upsert(ctx, noExpiry))

	target := s.now.AddDate(0, 0, 365)
	matches, err := s.store.Search(ctx, store.Query{
		Status:           models.StatusActive,
		ExpiryOnOrBefore: &target,
	})
	s.Require().NoError(err)
	s.Empty(matches)
}
