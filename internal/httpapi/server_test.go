package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/database"
	"bvester-assessment/internal/common/logger"
	evaluateassessment "bvester-assessment/internal/workers/assessment/evaluate-assessment"
	nextquestion "bvester-assessment/internal/workers/assessment/next-question"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func setupServer(t *testing.T, deps map[string]database.Pinger) *httptest.Server {
	t.Helper()
	catalog, err := assessment.DefaultCatalog()
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	engine := assessment.NewEngine(assessment.WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}))
	srv := New(Options{
		Catalog:      catalog,
		Evaluator:    evaluateassessment.NewHandler(evaluateassessment.LoadConfig(), engine, catalog, nil, log),
		Navigator:    nextquestion.NewHandler(nextquestion.LoadConfig(), engine, catalog, nil, log),
		Dependencies: deps,
		Logger:       log,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	ts := setupServer(t, nil)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		deps       map[string]database.Pinger
		wantStatus int
	}{
		{
			name:       "all dependencies up",
			deps:       map[string]database.Pinger{"redis": pingerFunc(func(context.Context) error { return nil })},
			wantStatus: http.StatusOK,
		},
		{
			name: "postgres down",
			deps: map[string]database.Pinger{
				"redis":    pingerFunc(func(context.Context) error { return nil }),
				"postgres": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupServer(t, tt.deps)
			resp, err := http.Get(ts.URL + "/ready")
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestEvaluate(t *testing.T) {
	ts := setupServer(t, nil)

	resp, out := post(t, ts.URL+"/v1/assessments/evaluate", `{
		"assessmentId": "a-1",
		"answers": {
			"cash_runway_days": "Less than 15 days - Critical danger",
			"receivables_aging": 40,
			"profit_margin_reality": "Below 5% or breakeven - Unsustainable"
		}
	}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a-1", out["assessmentId"])
	assert.Equal(t, "Critical Risk", out["riskLevel"])
	assert.Equal(t, float64(51), out["overallScore"])
}

func TestEvaluate_InvalidPayload(t *testing.T) {
	ts := setupServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "no answers", body: `{"assessmentId":"a-1"}`},
		{name: "malformed", body: `{"answers":`},
		{name: "nested answer", body: `{"answers":{"cash_runway_days":[1]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := post(t, ts.URL+"/v1/assessments/evaluate", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "ANSWERS_INVALID", out["code"])
		})
	}
}

func TestNext(t *testing.T) {
	ts := setupServer(t, nil)

	resp, out := post(t, ts.URL+"/v1/assessments/next", `{
		"currentIndex": 13,
		"questionId": "tax_compliance",
		"answer": "Behind on tax filings or payments",
		"answers": {}
	}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(14), out["nextIndex"])
	assert.Equal(t, false, out["complete"])

	resp, out = post(t, ts.URL+"/v1/assessments/next", `{"currentIndex": 99, "answers": {}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "QUESTION_INDEX_OUT_OF_RANGE", out["code"])
}

func TestCatalog(t *testing.T) {
	ts := setupServer(t, nil)
	resp, err := http.Get(ts.URL + "/v1/catalog")
	require.NoError(t, err)
	defer resp.Body.Close()

	var c assessment.Catalog
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	assert.Len(t, c.Questions, 21)
}

func TestCORS(t *testing.T) {
	ts := setupServer(t, nil)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/v1/assessments/evaluate", nil)
	req.Header.Set("Origin", "https://app.bvester.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor("SESSION_NOT_FOUND"))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor("SESSION_STORE_FAILED"))
	assert.Equal(t, http.StatusBadRequest, statusFor("CATALOG_INVALID"))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor("RESULT_PERSIST_FAILED"))
	assert.Equal(t, http.StatusInternalServerError, statusFor("INTERNAL_ERROR"))
}
