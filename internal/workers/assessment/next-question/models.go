// internal/workers/assessment/next-question/models.go
package nextquestion

import "bvester-assessment/internal/assessment"

// Input either names a session kept in Redis, or carries the answers so far
// for a stateless lookup. QuestionID/Answer record the answer just given.
type Input struct {
	SessionID    string             `json:"sessionId"`
	UserID       string             `json:"userId"`
	CurrentIndex int                `json:"currentIndex"`
	QuestionID   string             `json:"questionId"`
	Answer       interface{}        `json:"answer"`
	Answers      assessment.Answers `json:"answers"`
}

type Output struct {
	SessionID  string               `json:"sessionId,omitempty"`
	NextIndex  int                  `json:"nextIndex"`
	Complete   bool                 `json:"complete"`
	Question   *assessment.Question `json:"question,omitempty"`
	Answers    assessment.Answers   `json:"answers"`
	Answered   int                  `json:"answered"`
	TotalCount int                  `json:"totalCount"`
}
