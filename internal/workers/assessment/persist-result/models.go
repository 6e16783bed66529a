// internal/workers/assessment/persist-result/models.go
package persistresult

import "bvester-assessment/internal/assessment"

type Input struct {
	AssessmentID string                       `json:"assessmentId"`
	UserID       string                       `json:"userId"`
	Result       *assessment.AssessmentResult `json:"assessmentResult"`
}

type Output struct {
	AssessmentID string `json:"assessmentId"`
	Stored       bool   `json:"stored"`
	Backend      string `json:"storageBackend"`
	Attempts     int    `json:"storageAttempts"`
	Indexed      bool   `json:"indexed"`
}
