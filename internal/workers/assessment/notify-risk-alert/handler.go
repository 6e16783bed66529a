// internal/workers/assessment/notify-risk-alert/handler.go
package notifyriskalert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bvester-assessment/internal/common/errors"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/common/metrics"
	"bvester-assessment/internal/notify"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "notify-risk-alert"
)

type Notifier interface {
	Notify(ctx context.Context, alert notify.Alert) (notify.Report, error)
}

type Handler struct {
	config     *Config
	notifier   Notifier
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, notifier Notifier, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		notifier:   notifier,
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
	err := json.Unmarshal([]byte(job.Variables), &input)
	if err != nil {
		err = errors.NewAnswersInvalidError(fmt.Sprintf("parse input: %v", err))
	} else {
		var output *Output
		if output, err = h.Execute(ctx, &input); err == nil {
			h.completeJob(ctx, client, job, output)
			metrics.ObserveJob(TaskType, time.Since(start), "")
			return nil
		}
	}

	stdErr := errors.AsStandardError(err)
	metrics.ObserveJob(TaskType, time.Since(start), string(stdErr.Code))
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
	return err
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Result == nil {
		return nil, errors.NewAnswersInvalidError("assessmentResult is required")
	}

	report, err := h.notifier.Notify(ctx, notify.Alert{
		AssessmentID: input.AssessmentID,
		UserID:       input.UserID,
		Email:        input.Email,
		Result:       input.Result,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("risk alert processed", map[string]interface{}{
		"assessmentId": input.AssessmentID,
		"riskLevel":    input.Result.RiskLevel,
		"triggered":    report.Triggered,
		"deliveries":   len(report.Deliveries),
	})
	return &Output{
		AlertSent:  report.Triggered && len(report.Deliveries) > 0,
		Deliveries: report.Deliveries,
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
