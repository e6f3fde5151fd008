package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"credentialwatch/internal/alert/models"
	"credentialwatch/internal/alert/service"
	alertstore "credentialwatch/internal/alert/store"
	credmodels "credentialwatch/internal/credential/models"
	credstore "credentialwatch/internal/credential/store"
	"credentialwatch/internal/platform/middleware"
	provmodels "credentialwatch/internal/provider/models"
	provstore "credentialwatch/internal/provider/store"
	id "credentialwatch/pkg/domain"
)

// HandlerSuite runs alert endpoints against real in-memory stores.
type HandlerSuite struct {
	suite.Suite
	router http.Handler

	providerID   id.ProviderID
	credentialID id.CredentialID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	providers := provstore.NewInMemory()
	provider, err := provmodels.NewProvider(id.NewProviderID(), "1234567890", "Dr. Amara Osei", now)
	s.Require().NoError(err)
	s.Require().NoError(providers.Upsert(ctx, provider))
	s.providerID = provider.ID

	credentials := credstore.NewInMemory()
	expiry := now.AddDate(0, 0, 20)
	credential, err := credmodels.NewCredential(id.NewCredentialID(), provider.ID, "license", "state board", "L-1", &expiry, now)
	s.Require().NoError(err)
	s.Require().NoError(credentials.Upsert(ctx, credential))
	s.credentialID = credential.ID

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := service.New(alertstore.NewInMemory(), providers, credentials, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) createAlert(severity string) models.Alert {
	rec := s.do(http.MethodPost, "/alerts", map[string]any{
		"provider_id":   s.providerID.String(),
		"credential_id": s.credentialID.String(),
		"severity":      severity,
		"window_days":   30,
		"message":       "license L-1 expires in 20 days",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	var alert models.Alert
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &alert))
	return alert
}

func (s *HandlerSuite) TestCreate_Returns201() {
	alert := s.createAlert("warning")
	s.Equal(models.SeverityWarning, alert.Severity)
	s.Equal("ui", alert.Channel)
	s.Nil(alert.ResolvedAt)
}

func (s *HandlerSuite) TestCreate_UnknownProviderReturns404() {
	rec := s.do(http.MethodPost, "/alerts", map[string]any{
		"provider_id": id.NewProviderID().String(),
		"severity":    "warning",
		"message":     "msg",
	})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestCreate_MissingSeverityReturns422() {
	rec := s.do(http.MethodPost, "/alerts", map[string]any{
		"provider_id": s.providerID.String(),
		"message":     "msg",
	})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *HandlerSuite) TestCreate_MalformedJSONReturns400() {
	req := httptest.NewRequest(http.MethodPost, "/alerts", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestCreate_DedupeReturnsExistingAlert() {
	first := s.createAlert("warning")
	rec := s.do(http.MethodPost, "/alerts", map[string]any{
		"provider_id":   s.providerID.String(),
		"credential_id": s.credentialID.String(),
		"severity":      "warning",
		"window_days":   30,
		"message":       "duplicate attempt",
	})
	s.Equal(http.StatusCreated, rec.Code)
	var second models.Alert
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &second))
	s.Equal(first.ID, second.ID)
}

func (s *HandlerSuite) TestListOpen_FiltersBySeverity() {
	s.createAlert("warning")
	s.createAlert("critical")

	rec := s.do(http.MethodGet, "/alerts/open?severity=critical", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp ListOpenResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Alerts, 1)
	s.Equal(models.SeverityCritical, resp.Alerts[0].Severity)
}

func (s *HandlerSuite) TestResolve_ThenSecondResolveConflicts() {
	alert := s.createAlert("warning")
	path := fmt.Sprintf("/alerts/%s/resolve", alert.ID)

	rec := s.do(http.MethodPost, path, map[string]any{"resolution_note": "renewed"})
	s.Require().Equal(http.StatusOK, rec.Code)
	var resolved models.Alert
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resolved))
	s.Require().NotNil(resolved.ResolutionNote)
	s.Equal("renewed", *resolved.ResolutionNote)

	again := s.do(http.MethodPost, path, nil)
	s.Equal(http.StatusConflict, again.Code)
}

func (s *HandlerSuite) TestResolve_EmptyBodyIsAllowed() {
	alert := s.createAlert("warning")
	rec := s.do(http.MethodPost, fmt.Sprintf("/alerts/%s/resolve", alert.ID), nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestResolve_UnknownAlertReturns404() {
	rec := s.do(http.MethodPost, fmt.Sprintf("/alerts/%s/resolve", id.NewAlertID()), nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestResolve_MalformedIDReturns400() {
	rec := s.do(http.MethodPost, "/alerts/not-a-uuid/resolve", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestSummary_SparseCounts() {
	s.createAlert("warning")

	rec := s.do(http.MethodPost, "/alerts/summary", map[string]any{})
	s.Require().Equal(http.StatusOK, rec.Code)
	var resp SummaryResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(map[models.Severity]int{models.SeverityWarning: 1}, resp.Counts)
}
