package nextquestion

import (
	"context"
	"testing"
	"time"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/errors"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/store/sessions"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

const (
	idxTaxCompliance    = 13
	idxTaxRepaymentPlan = 14
	idxRegistration     = 15
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func createTestHandler(t *testing.T, withSessions bool) (*Handler, *sessions.Store) {
	t.Helper()
	catalog, err := assessment.DefaultCatalog()
	require.NoError(t, err)

	var store *sessions.Store
	var ss SessionStore
	if withSessions {
		store = sessions.NewStore(setupRedis(t), time.Hour, logger.NewTestLogger(t))
		ss = store
	}
	return NewHandler(LoadConfig(), assessment.NewEngine(), catalog, ss, logger.NewTestLogger(t)), store
}

// ==========================
// Stateless Tests
// ==========================

func TestHandler_Execute_Stateless(t *testing.T) {
	tests := []struct {
		name         string
		input        *Input
		wantNext     int
		wantComplete bool
	}{
		{
			name:     "start",
			input:    &Input{CurrentIndex: -1, Answers: assessment.Answers{}},
			wantNext: 0,
		},
		{
			name: "conditional question shown",
			input: &Input{
				CurrentIndex: idxTaxCompliance,
				QuestionID:   "tax_compliance",
				Answer:       "Behind on tax filings or payments",
				Answers:      assessment.Answers{},
			},
			wantNext: idxTaxRepaymentPlan,
		},
		{
			name: "conditional question skipped",
			input: &Input{
				CurrentIndex: idxTaxCompliance,
				QuestionID:   "tax_compliance",
				Answer:       "Fully registered and filing on time",
				Answers:      assessment.Answers{},
			},
			wantNext: idxRegistration,
		},
		{
			name:         "last question",
			input:        &Input{CurrentIndex: 20, Answers: assessment.Answers{}},
			wantNext:     21,
			wantComplete: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := createTestHandler(t, false)
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.wantNext, out.NextIndex)
			assert.Equal(t, tt.wantComplete, out.Complete)
			if tt.wantComplete {
				assert.Nil(t, out.Question)
			} else {
				require.NotNil(t, out.Question)
				assert.Equal(t, h.catalog.Questions[tt.wantNext].ID, out.Question.ID)
			}
		})
	}
}

func TestHandler_Execute_DoesNotMutateInput(t *testing.T) {
	h, _ := createTestHandler(t, false)
	answers := assessment.Answers{"cash_runway_days": "15-30 days - High risk"}

	out, err := h.Execute(context.Background(), &Input{
		CurrentIndex: 1,
		QuestionID:   "profit_margin_reality",
		Answer:       "Above 20% - Strong",
		Answers:      answers,
	})
	require.NoError(t, err)
	assert.Len(t, answers, 1)
	assert.Len(t, out.Answers, 2)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		wantCode errors.ErrorCode
	}{
		{
			name:     "index past the end",
			input:    &Input{CurrentIndex: 21},
			wantCode: errors.ErrCodeQuestionIndexOutOfRange,
		},
		{
			name:     "unknown question",
			input:    &Input{CurrentIndex: 0, QuestionID: "favourite_colour", Answer: "blue"},
			wantCode: errors.ErrCodeAnswersInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := createTestHandler(t, false)
			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode))
		})
	}
}

// ==========================
// Session Tests
// ==========================

func TestHandler_Execute_SessionFlow(t *testing.T) {
	h, store := createTestHandler(t, true)
	ctx := context.Background()

	first, err := h.Execute(ctx, &Input{UserID: "user-7", CurrentIndex: -1})
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, 0, first.NextIndex)

	second, err := h.Execute(ctx, &Input{
		SessionID:    first.SessionID,
		CurrentIndex: 0,
		QuestionID:   "cash_runway_days",
		Answer:       "More than 6 months - Strong",
	})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, second.NextIndex)

	sess, err := store.Get(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, sess.CurrentIndex)
	assert.Equal(t, "More than 6 months - Strong", sess.Answers["cash_runway_days"])
	assert.Equal(t, "user-7", sess.UserID)
}

func TestHandler_Execute_NewSessionWithFirstAnswer(t *testing.T) {
	h, store := createTestHandler(t, true)
	ctx := context.Background()

	out, err := h.Execute(ctx, &Input{CurrentIndex: 0, QuestionID: "cash_runway_days", Answer: "15-30 days - High risk"})
	require.NoError(t, err)
	require.NotEmpty(t, out.SessionID)

	sess, err := store.Get(ctx, out.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Answers, 1)
}

func TestHandler_Execute_UnknownSession(t *testing.T) {
	h, _ := createTestHandler(t, true)

	_, err := h.Execute(context.Background(), &Input{SessionID: "gone", CurrentIndex: 2})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSessionNotFound))
}

func TestParseInput(t *testing.T) {
	input, err := parseInput(`{"sessionId":"s-1","currentIndex":3,"questionId":"key_person_dependency","answer":"Minor disruption"}`)
	require.NoError(t, err)
	assert.Equal(t, "s-1", input.SessionID)
	assert.Equal(t, 3, input.CurrentIndex)

	_, err = parseInput(`{"sessionId":"s-1"}`)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAnswersInvalid))
}
