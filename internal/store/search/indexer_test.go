package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bvester-assessment/internal/assessment"
	apperrors "bvester-assessment/internal/common/errors"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method string
	Path   string
	Body   []byte
}

func setupES(t *testing.T, status int, response string) (*elasticsearch.Client, func() []capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func testResult() *assessment.AssessmentResult {
	return &assessment.AssessmentResult{
		CatalogVersion: "2.1.0",
		OverallScore:   51,
		WeightedScore:  44,
		RiskLevel:      assessment.RiskCritical,
		CategoryScores: map[assessment.Category]int{assessment.CategoryFinancialHealth: 10},
		CompoundRisks: []assessment.CompoundRisk{
			{ID: "cash_flow_crisis", Probability: 0.85},
		},
		Issues: []assessment.BusinessIssue{
			{ID: "cash_flow_crisis", Severity: assessment.IssueUrgent},
			{ID: "profit_margin", Severity: assessment.IssueImportant},
		},
		FundingReadiness: assessment.FundingReadiness{Tier: assessment.FundingLow},
		Benchmark:        assessment.Benchmark{Percentile: 62},
		Predictive:       assessment.PredictiveAnalytics{SixMonthFailure: 0.95},
		CreatedAt:        time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument("a-1", "user-7", testResult())

	assert.Equal(t, []string{"cash_flow_crisis"}, doc.CompoundRiskIDs)
	assert.Equal(t, 1, doc.UrgentIssues)
	assert.Equal(t, "Critical Risk", doc.RiskLevel)
	assert.Equal(t, "low", doc.FundingTier)
	assert.Equal(t, 62, doc.Percentile)
}

func TestIndexer_IndexResult(t *testing.T) {
	es, requests := setupES(t, http.StatusCreated, `{"result":"created","_id":"a-1"}`)
	idx := NewIndexer(es, "assessment-results")

	require.NoError(t, idx.IndexResult(context.Background(), "a-1", "user-7", testResult()))

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/assessment-results/_doc/a-1", reqs[0].Path)

	var doc Document
	require.NoError(t, json.Unmarshal(reqs[0].Body, &doc))
	assert.Equal(t, 51, doc.OverallScore)
	assert.Equal(t, "user-7", doc.UserID)
}

func TestIndexer_IndexResultError(t *testing.T) {
	es, _ := setupES(t, http.StatusBadRequest, `{"error":"mapper_parsing_exception"}`)
	idx := NewIndexer(es, "assessment-results")

	err := idx.IndexResult(context.Background(), "a-1", "", testResult())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchIndexFailed))
	assert.Contains(t, apperrors.AsStandardError(err).Details, "mapper_parsing_exception")
}

func TestIndexer_RiskLevelCounts(t *testing.T) {
	es, requests := setupES(t, http.StatusOK, `{
		"hits": {"total": {"value": 5}, "hits": []},
		"aggregations": {"by_risk": {"buckets": [
			{"key": "Critical Risk", "doc_count": 3},
			{"key": "Low Risk", "doc_count": 2}
		]}}
	}`)
	idx := NewIndexer(es, "assessment-results")

	counts, err := idx.RiskLevelCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Critical Risk": 3, "Low Risk": 2}, counts)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/assessment-results/_search", reqs[0].Path)
	assert.Contains(t, string(reqs[0].Body), "riskLevel.keyword")
}
