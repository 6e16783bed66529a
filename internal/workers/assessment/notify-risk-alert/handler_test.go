package notifyriskalert

import (
	"context"
	stderrors "errors"
	"testing"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/errors"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	calls int
	err   error
}

func (r *recordingPublisher) PublishAlert(ctx context.Context, subject, message string, attrs map[string]string) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return "msg-1", nil
}

func createTestHandler(t *testing.T, pub *recordingPublisher) *Handler {
	alerter := notify.NewAlerter(pub, nil, assessment.RiskHigh, logger.NewTestLogger(t))
	return NewHandler(LoadConfig(), alerter, logger.NewTestLogger(t))
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name      string
		level     assessment.RiskLevel
		wantSent  bool
		wantCalls int
	}{
		{name: "critical alerts", level: assessment.RiskCritical, wantSent: true, wantCalls: 1},
		{name: "high alerts", level: assessment.RiskHigh, wantSent: true, wantCalls: 1},
		{name: "moderate is quiet", level: assessment.RiskModerate, wantSent: false, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			h := createTestHandler(t, pub)

			out, err := h.Execute(context.Background(), &Input{
				AssessmentID: "a-1",
				Result:       &assessment.AssessmentResult{OverallScore: 40, RiskLevel: tt.level},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSent, out.AlertSent)
			assert.Equal(t, tt.wantCalls, pub.calls)
		})
	}
}

func TestHandler_Execute_DeliveryFailure(t *testing.T) {
	h := createTestHandler(t, &recordingPublisher{err: stderrors.New("throttled")})

	_, err := h.Execute(context.Background(), &Input{
		AssessmentID: "a-1",
		Result:       &assessment.AssessmentResult{RiskLevel: assessment.RiskCritical},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotificationSendFailed))
}

func TestHandler_Execute_MissingResult(t *testing.T) {
	h := createTestHandler(t, &recordingPublisher{})
	_, err := h.Execute(context.Background(), &Input{AssessmentID: "a-1"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeAnswersInvalid))
}
