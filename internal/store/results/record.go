// Package results stores finished assessment results. The Postgres repository
// is the system of record; a local SQLite outbox keeps results that could not
// be written there until they are replayed.
package results

import (
	"context"
	"encoding/json"
	"fmt"

	"bvester-assessment/internal/assessment"
)

// Record is one persisted assessment.
type Record struct {
	AssessmentID string                       `json:"assessmentId"`
	UserID       string                       `json:"userId,omitempty"`
	Result       *assessment.AssessmentResult `json:"result"`
}

// Repository is implemented by every result backend.
type Repository interface {
	Save(ctx context.Context, rec Record) error
}

func (r Record) validate() error {
	if r.AssessmentID == "" {
		return fmt.Errorf("record has no assessment id")
	}
	if r.Result == nil {
		return fmt.Errorf("record %s has no result", r.AssessmentID)
	}
	return nil
}

func (r Record) payload() ([]byte, error) {
	raw, err := json.Marshal(r.Result)
	if err != nil {
		return nil, fmt.Errorf("encode result %s: %w", r.AssessmentID, err)
	}
	return raw, nil
}

func decodeResult(id string, raw []byte) (*assessment.AssessmentResult, error) {
	var res assessment.AssessmentResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", id, err)
	}
	return &res, nil
}
