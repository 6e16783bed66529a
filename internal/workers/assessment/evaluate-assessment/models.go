// internal/workers/assessment/evaluate-assessment/models.go
package evaluateassessment

import "bvester-assessment/internal/assessment"

type Input struct {
	AssessmentID string             `json:"assessmentId"`
	UserID       string             `json:"userId"`
	Email        string             `json:"email"`
	Answers      assessment.Answers `json:"answers"`
}

// Output is flattened so process gateways can branch on riskLevel and
// overallScore without reading the full result.
type Output struct {
	AssessmentID string                       `json:"assessmentId"`
	OverallScore int                          `json:"overallScore"`
	RiskLevel    string                       `json:"riskLevel"`
	UrgentIssues int                          `json:"urgentIssues"`
	Result       *assessment.AssessmentResult `json:"assessmentResult"`
}
