package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	assert.NotNil(t, m.Registry())
	assert.NoError(t, m.RegisterRuntime())
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestValidationAndPersistence(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.ValidationFailure("unknown_drug_id")
	m.ClaimsPersisted(4)
	m.ClaimsPersisted(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.invalid.WithLabelValues("unknown_drug_id")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.persisted))
}

func TestObserveModelCall(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.ObserveModelCall("openai", time.Second, 100, 20, false, nil)
	m.ObserveModelCall("openai", 0, 0, 0, true, nil)
	m.ObserveModelCall("openai", 0, 0, 0, false, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelRequests.WithLabelValues("openai", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelRequests.WithLabelValues("openai", "cached")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelRequests.WithLabelValues("openai", "error")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.modelTokens.WithLabelValues("openai", "prompt")))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.modelTokens.WithLabelValues("openai", "completion")))
}

func TestObserveRefresh_Outcomes(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.ObserveRefresh(time.Second, nil)
	m.ObserveRefresh(time.Second, context.Canceled)
	m.ObserveRefresh(time.Second, errors.New("invalid payload"))

	for _, outcome := range []string{"ok", "canceled", "error"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(outcome)), outcome)
	}
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics
	m.ObserveModelCall("x", 0, 0, 0, false, nil)
	m.CacheLookup(true)
	m.StageItems("mh", "kept", 3)
	m.ObserveRefresh(0, nil)
	m.ValidationFailure("x")
	m.ClaimsPersisted(1)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	m.StageItems("malignant hyperthermia", "kept", 7)
	m.CacheLookup(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(body, "claimsift_stage_items"), body)
	assert.True(t, strings.Contains(body, `claimsift_cache_lookups_total{result="miss"} 1`), body)
}
