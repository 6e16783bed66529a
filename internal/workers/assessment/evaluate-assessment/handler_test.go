package evaluateassessment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/errors"
	"bvester-assessment/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

func createTestHandler(t *testing.T) *Handler {
	t.Helper()
	catalog, err := assessment.DefaultCatalog()
	require.NoError(t, err)

	engine := assessment.NewEngine(assessment.WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}))
	h := NewHandler(LoadConfig(), engine, catalog, nil, logger.NewTestLogger(t))
	h.newID = func() string { return "generated-id" }
	return h
}

func crisisAnswers() assessment.Answers {
	return assessment.Answers{
		assessment.QCashRunway:       "Less than 15 days - Critical danger",
		assessment.QReceivablesAging: 40,
		assessment.QProfitMargin:     "Below 5% or breakeven - Unsustainable",
	}
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		wantID    string
		wantLevel assessment.RiskLevel
	}{
		{
			name:      "empty answers score the baseline",
			input:     &Input{AssessmentID: "a-1", Answers: assessment.Answers{}},
			wantID:    "a-1",
			wantLevel: assessment.RiskLow,
		},
		{
			name:      "generated id",
			input:     &Input{Answers: crisisAnswers()},
			wantID:    "generated-id",
			wantLevel: assessment.RiskCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createTestHandler(t)
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.wantID, out.AssessmentID)
			assert.Equal(t, string(tt.wantLevel), out.RiskLevel)
			assert.Equal(t, out.Result.OverallScore, out.OverallScore)
			assert.Equal(t, out.Result.UrgentIssueCount(), out.UrgentIssues)
		})
	}
}

func TestHandler_Execute_MissingAnswers(t *testing.T) {
	h := createTestHandler(t)
	_, err := h.Execute(context.Background(), &Input{AssessmentID: "a-1"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAnswersInvalid))
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		vars    string
		wantErr bool
	}{
		{name: "valid", vars: `{"assessmentId":"a-1","answers":{"cash_runway_days":"More than 6 months - Strong","receivables_aging":22}}`},
		{name: "missing answers", vars: `{"assessmentId":"a-1"}`, wantErr: true},
		{name: "nested answer", vars: `{"answers":{"cash_runway_days":{"x":1}}}`, wantErr: true},
		{name: "malformed", vars: `{"answers":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := parseInput(tt.vars)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeAnswersInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a-1", input.AssessmentID)
			assert.Equal(t, float64(22), input.Answers["receivables_aging"])
		})
	}
}

func TestOutput_Variables(t *testing.T) {
	h := createTestHandler(t)
	out, err := h.Execute(context.Background(), &Input{AssessmentID: "a-1", Answers: crisisAnswers()})
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &vars))

	assert.Equal(t, "a-1", vars["assessmentId"])
	assert.Equal(t, "Critical Risk", vars["riskLevel"])
	assert.Contains(t, vars, "assessmentResult")
}
