//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"credentialwatch/internal/alert/models"
	"credentialwatch/internal/alert/store"
	provmodels "credentialwatch/internal/provider/models"
	provstore "credentialwatch/internal/provider/store"
	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
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

func (s *PostgresSuite) newAlert(severity models.Severity, createdAt time.Time) *models.Alert {
	alert, err := models.NewAlert(id.NewAlertID(), s.providerID, nil, severity, 30, "credential about to expire", "", createdAt)
	s.Require().NoError(err)
	return alert
}

func (s *PostgresSuite) TestCreateAndFind() {
	ctx := context.Background()
	alert := s.newAlert(models.SeverityWarning, s.now)
	s.Require().NoError(s.store.Create(ctx, alert))

	found, err := s.store.FindByID(ctx, alert.ID)
	s.Require().NoError(err)
	s.Equal(alert.ID, found.ID)
	s.True(found.IsOpen())
	s.Equal("ui", found.Channel)

	_, err = s.store.FindByID(ctx, id.NewAlertID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestExecute_ResolvesOnce() {
	ctx := context.Background()
	alert := s.newAlert(models.SeverityWarning, s.now)
	s.Require().NoError(s.store.Create(ctx, alert))

	note := "renewed"
	resolved, err := s.store.Execute(ctx, alert.ID,
		func(a *models.Alert) error { return a.CanResolve() },
		func(a *models.Alert) {
			resolvedAt := s.now.Add(time.Hour)
			a.ApplyResolution(&note, resolvedAt)
		},
	)
	s.Require().NoError(err)
	s.False(resolved.IsOpen())

	_, err = s.store.Execute(ctx, alert.ID,
		func(a *models.Alert) error { return a.CanResolve() },
		func(a *models.Alert) { a.ApplyResolution(nil, s.now) },
	)
	s.Require().Error(err)
	s.Equal(dErrors.CodeConflict, dErrors.CodeOf(err))
}

func (s *PostgresSuite) TestExecute_ConcurrentResolveSingleWinner() {
	ctx := context.Background()
	alert := s.newAlert(models.SeverityCritical, s.now)
	s.Require().NoError(s.store.Create(ctx, alert))

	const goroutines = 10
	var wg sync.WaitGroup
	var successes atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, alert.ID,
				func(a *models.Alert) error { return a.CanResolve() },
				func(a *models.Alert) { a.ApplyResolution(nil, s.now) },
			)
			if err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), successes.Load())
}

func (s *PostgresSuite) TestListOpen_OrderAndFilters() {
	ctx := context.Background()
	first := s.newAlert(models.SeverityWarning, s.now)
	second := s.newAlert(models.SeverityCritical, s.now.Add(time.Minute))
	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))

	all, err := s.store.ListOpen(ctx, store.OpenFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(first.ID, all[0].ID)

	critical, err := s.store.ListOpen(ctx, store.OpenFilter{Severity: models.SeverityCritical})
	s.Require().NoError(err)
	s.Require().Len(critical, 1)
	s.Equal(second.ID, critical[0].ID)
}

func (s *PostgresSuite) TestFindOpenDuplicate_NullCredentialTuple() {
	ctx := context.Background()
	alert := s.newAlert(models.SeverityWarning, s.now)
	s.Require().NoError(s.store.Create(ctx, alert))

	found, err := s.store.FindOpenDuplicate(ctx, s.providerID, nil, models.SeverityWarning)
	s.Require().NoError(err)
	s.Equal(alert.ID, found.ID)

	other := id.NewCredentialID()
	_, err = s.store.FindOpenDuplicate(ctx, s.providerID, &other, models.SeverityWarning)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestCountOpenBySeverity_Window() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newAlert(models.SeverityWarning, s.now.AddDate(0, 0, -10))))
	s.Require().NoError(s.store.Create(ctx, s.newAlert(models.SeverityCritical, s.now)))

	counts, err := s.store.CountOpenBySeverity(ctx, nil)
	s.Require().NoError(err)
	s.Equal(map[models.Severity]int{
		models.SeverityWarning:  1,
		models.SeverityCritical: 1,
	}, counts)

	cutoff := s.now.AddDate(0, 0, -5)
	windowed, err := s.store.CountOpenBySeverity(ctx, &cutoff)
	s.Require().NoError(err)
	s.Equal(map[models.Severity]int{models.SeverityCritical: 1}, windowed)
}
