package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "credentialwatch/pkg/domain"
	dErrors "credentialwatch/pkg/domain-errors"
)

var testNow = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func newTestAlert(t *testing.T) *Alert {
	t.Helper()
	alert, err := NewAlert(id.NewAlertID(), id.NewProviderID(), nil, SeverityWarning, 30, "license L-1 expires in 12 days", "", testNow)
	require.NoError(t, err)
	return alert
}

func TestNewAlert_Defaults(t *testing.T) {
	alert := newTestAlert(t)
	assert.Equal(t, DefaultChannel, alert.Channel)
	assert.True(t, alert.IsOpen())
	assert.Nil(t, alert.ResolvedAt)
	assert.Nil(t, alert.ResolutionNote)
}

func TestNewAlert_Validation(t *testing.T) {
	_, err := NewAlert(id.NewAlertID(), id.NewProviderID(), nil, "", 30, "msg", "", testNow)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))

	_, err = NewAlert(id.NewAlertID(), id.NewProviderID(), nil, SeverityInfo, 30, "", "", testNow)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))

	_, err = NewAlert(id.NewAlertID(), id.NewProviderID(), nil, SeverityInfo, -1, "msg", "", testNow)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
}

func TestResolve_SetsFieldsOnce(t *testing.T) {
	alert := newTestAlert(t)
	note := "renewed license"
	resolvedAt := testNow.Add(time.Hour)

	require.NoError(t, alert.Resolve(&note, resolvedAt))
	assert.False(t, alert.IsOpen())
	require.NotNil(t, alert.ResolvedAt)
	assert.Equal(t, resolvedAt, *alert.ResolvedAt)
	require.NotNil(t, alert.ResolutionNote)
	assert.Equal(t, "renewed license", *alert.ResolutionNote)
}

func TestResolve_SecondResolveIsConflict(t *testing.T) {
	alert := newTestAlert(t)
	require.NoError(t, alert.Resolve(nil, testNow))

	later := "second note"
	err := alert.Resolve(&later, testNow.Add(time.Minute))
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))

	// The first resolution is untouched.
	assert.Equal(t, testNow, *alert.ResolvedAt)
	assert.Nil(t, alert.ResolutionNote)
}

func TestResolve_WithoutNote(t *testing.T) {
	alert := newTestAlert(t)
	require.NoError(t, alert.Resolve(nil, testNow))
	assert.False(t, alert.IsOpen())
	assert.Nil(t, alert.ResolutionNote)
}
