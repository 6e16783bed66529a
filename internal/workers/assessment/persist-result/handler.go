// internal/workers/assessment/persist-result/handler.go
package persistresult

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/errors"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/common/metrics"
	"bvester-assessment/internal/store/results"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "persist-result"
)

type ResultPersister interface {
	Persist(ctx context.Context, rec results.Record) (results.Outcome, error)
}

type ResultIndexer interface {
	IndexResult(ctx context.Context, assessmentID, userID string, r *assessment.AssessmentResult) error
}

type Handler struct {
	config     *Config
	persister  ResultPersister
	indexer    ResultIndexer
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

// NewHandler builds the handler. indexer may be nil to skip search indexing.
func NewHandler(config *Config, persister ResultPersister, indexer ResultIndexer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		persister:  persister,
		indexer:    indexer,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		stdErr := errors.NewAnswersInvalidError(fmt.Sprintf("parse input: %v", err))
		metrics.ObserveJob(TaskType, time.Since(start), string(stdErr.Code))
		h.errHandler.HandleJobError(ctx, client, job, stdErr)
		return stdErr
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		stdErr := errors.AsStandardError(err)
		metrics.ObserveJob(TaskType, time.Since(start), string(stdErr.Code))
		h.errHandler.HandleJobError(ctx, client, job, stdErr)
		return err
	}

	h.completeJob(ctx, client, job, output)
	metrics.ObserveJob(TaskType, time.Since(start), "")
	return nil
}

// Execute stores the result and then indexes it. Indexing failures are
// logged and reported in the output but do not fail the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.AssessmentID == "" {
		return nil, errors.NewAnswersInvalidError("assessmentId is required")
	}
	if input.Result == nil {
		return nil, errors.NewAnswersInvalidError("assessmentResult is required")
	}

	rec := results.Record{AssessmentID: input.AssessmentID, UserID: input.UserID, Result: input.Result}
	outcome, err := h.persister.Persist(ctx, rec)
	if err != nil {
		return nil, err
	}

	out := &Output{
		AssessmentID: input.AssessmentID,
		Stored:       outcome.Stored,
		Backend:      outcome.Backend,
		Attempts:     outcome.Attempts,
	}

	if h.indexer != nil {
		ictx, cancel := context.WithTimeout(ctx, h.config.IndexTimeout)
		defer cancel()
		if err := h.indexer.IndexResult(ictx, input.AssessmentID, input.UserID, input.Result); err != nil {
			h.logger.Warn("search indexing failed", map[string]interface{}{
				"assessmentId": input.AssessmentID,
				"error":        err,
			})
		} else {
			out.Indexed = true
		}
	}

	h.logger.Info("assessment result persisted", map[string]interface{}{
		"assessmentId": input.AssessmentID,
		"backend":      outcome.Backend,
		"attempts":     outcome.Attempts,
		"indexed":      out.Indexed,
	})
	return out, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
