// internal/workers/assessment/notify-risk-alert/models.go
package notifyriskalert

import (
	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/notify"
)

type Input struct {
	AssessmentID string                       `json:"assessmentId"`
	UserID       string                       `json:"userId"`
	Email        string                       `json:"email"`
	Result       *assessment.AssessmentResult `json:"assessmentResult"`
}

type Output struct {
	AlertSent  bool              `json:"alertSent"`
	Deliveries []notify.Delivery `json:"alertDeliveries"`
}
