// internal/workers/assessment/next-question/handler.go
package nextquestion

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/errors"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/common/metrics"
	"bvester-assessment/internal/common/validation"
	"bvester-assessment/internal/store/sessions"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "next-question"
)

// SessionStore is the part of sessions.Store the handler needs.
type SessionStore interface {
	Create(ctx context.Context, userID, catalogVersion string) (*sessions.Session, error)
	Get(ctx context.Context, id string) (*sessions.Session, error)
	RecordAnswer(ctx context.Context, id, questionID string, value interface{}, answeredIndex int) (*sessions.Session, error)
}

type Handler struct {
	config     *Config
	engine     *assessment.Engine
	catalog    *assessment.Catalog
	sessions   SessionStore
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

// NewHandler builds the handler. store may be nil, in which case only
// stateless requests are served.
func NewHandler(config *Config, engine *assessment.Engine, catalog *assessment.Catalog, store SessionStore, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		engine:     engine,
		catalog:    catalog,
		sessions:   store,
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

	input, err := parseInput(job.Variables)
	if err == nil {
		var output *Output
		output, err = h.Execute(ctx, input)
		if err == nil {
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

func parseInput(variables string) (*Input, error) {
	res, err := validation.ValidateJSON(validation.SchemaNext, []byte(variables))
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

// Execute records the answer just given, if any, and finds the next question
// to show after CurrentIndex.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.CurrentIndex >= h.catalog.Len() {
		return nil, errors.NewQuestionIndexOutOfRangeError(input.CurrentIndex, h.catalog.Len())
	}
	if input.QuestionID != "" {
		if _, ok := h.catalog.Question(input.QuestionID); !ok {
			return nil, errors.NewAnswersInvalidError(fmt.Sprintf("unknown question %q", input.QuestionID))
		}
	}

	var (
		sessionID string
		answers   assessment.Answers
		err       error
	)
	if h.sessions != nil && (input.SessionID != "" || input.Answers == nil) {
		sessionID, answers, err = h.fromSession(ctx, input)
		if err != nil {
			return nil, err
		}
	} else {
		answers = make(assessment.Answers, len(input.Answers)+1)
		for k, v := range input.Answers {
			answers[k] = v
		}
		if input.QuestionID != "" {
			answers[input.QuestionID] = input.Answer
		}
	}

	next := h.engine.NextQuestion(h.catalog, input.CurrentIndex, answers)
	out := &Output{
		SessionID:  sessionID,
		NextIndex:  next,
		Complete:   next >= h.catalog.Len(),
		Answers:    answers,
		Answered:   len(answers),
		TotalCount: len(assessment.DisplayedQuestions(h.catalog.Questions, answers)),
	}
	if !out.Complete {
		q := h.catalog.Questions[next]
		out.Question = &q
	}

	h.logger.Info("next question resolved", map[string]interface{}{
		"sessionId": sessionID,
		"from":      input.CurrentIndex,
		"next":      next,
		"complete":  out.Complete,
	})
	return out, nil
}

func (h *Handler) fromSession(ctx context.Context, input *Input) (string, assessment.Answers, error) {
	var (
		sess *sessions.Session
		err  error
	)
	switch {
	case input.SessionID == "":
		sess, err = h.sessions.Create(ctx, input.UserID, h.catalog.Version)
	case input.QuestionID != "":
		sess, err = h.sessions.RecordAnswer(ctx, input.SessionID, input.QuestionID, input.Answer, input.CurrentIndex)
	default:
		sess, err = h.sessions.Get(ctx, input.SessionID)
	}
	if stderrors.Is(err, sessions.ErrSessionNotFound) {
		return "", nil, errors.NewSessionNotFoundError(input.SessionID)
	}
	if err != nil {
		return "", nil, errors.NewSessionStoreFailedError("next-question", err)
	}
	if input.SessionID == "" && input.QuestionID != "" {
		sess, err = h.sessions.RecordAnswer(ctx, sess.ID, input.QuestionID, input.Answer, input.CurrentIndex)
		if err != nil {
			return "", nil, errors.NewSessionStoreFailedError("record-answer", err)
		}
	}
	return sess.ID, sess.Answers, nil
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
