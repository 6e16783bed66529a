// internal/workers/assessment/evaluate-assessment/handler.go
package evaluateassessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/errors"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/common/metrics"
	"bvester-assessment/internal/common/observability"
	"bvester-assessment/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "evaluate-assessment"
)

type Handler struct {
	config     *Config
	engine     *assessment.Engine
	catalog    *assessment.Catalog
	obs        *observability.Observability
	errHandler *errors.ErrorHandler
	logger     logger.Logger
	newID      func() string
}

func NewHandler(config *Config, engine *assessment.Engine, catalog *assessment.Catalog, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		engine:     engine,
		catalog:    catalog,
		obs:        obs,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
		newID:      uuid.NewString,
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

	input, err := parseInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, start, err)
		return err
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, start, err)
		return err
	}

	h.completeJob(ctx, client, job, output)
	metrics.ObserveJob(TaskType, time.Since(start), "")
	h.obs.RecordJobProcessed(ctx, TaskType, "success")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "success")
	return nil
}

func parseInput(variables string) (*Input, error) {
	res, err := validation.ValidateJSON(validation.SchemaEvaluate, []byte(variables))
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, errors.NewAnswersInvalidError(res.Summary())
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewAnswersInvalidError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

// Execute scores the answers against the handler's catalog.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Answers == nil {
		return nil, errors.NewAnswersInvalidError("answers are required")
	}
	id := input.AssessmentID
	if id == "" {
		id = h.newID()
	}

	_, span := h.obs.StartSpan(ctx, "assessment.evaluate",
		attribute.String("assessment.id", id),
		attribute.Int("assessment.answers", len(input.Answers)),
	)
	started := time.Now()
	result, err := h.engine.Evaluate(h.catalog, input.Answers)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, errors.NewCatalogInvalidError(err)
	}

	riskIDs := make([]string, 0, len(result.CompoundRisks))
	for _, r := range result.CompoundRisks {
		riskIDs = append(riskIDs, r.ID)
	}
	metrics.ObserveEvaluation(string(result.RiskLevel), result.OverallScore, riskIDs, time.Since(started))

	h.logger.Info("assessment evaluated", map[string]interface{}{
		"assessmentId": id,
		"userId":       input.UserID,
		"overallScore": result.OverallScore,
		"riskLevel":    result.RiskLevel,
		"risks":        riskIDs,
	})

	return &Output{
		AssessmentID: id,
		OverallScore: result.OverallScore,
		RiskLevel:    string(result.RiskLevel),
		UrgentIssues: result.UrgentIssueCount(),
		Result:       result,
	}, nil
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

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, start time.Time, err error) {
	stdErr := errors.AsStandardError(err)
	metrics.ObserveJob(TaskType, time.Since(start), string(stdErr.Code))
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}
