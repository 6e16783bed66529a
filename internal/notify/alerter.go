// Package notify sends risk alerts for assessments at or above a configured
// risk level.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"bvester-assessment/internal/assessment"
	apperrors "bvester-assessment/internal/common/errors"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/common/metrics"
)

const (
	ChannelSNS = "sns"
	ChannelSES = "ses"
)

// TopicPublisher is satisfied by aws.SNSClient.
type TopicPublisher interface {
	PublishAlert(ctx context.Context, subject, message string, attrs map[string]string) (string, error)
}

// EmailSender is satisfied by aws.SESClient.
type EmailSender interface {
	SendText(ctx context.Context, to, subject, body string) (string, error)
}

type Alert struct {
	AssessmentID string
	UserID       string
	Email        string
	Result       *assessment.AssessmentResult
}

type Delivery struct {
	Channel   string `json:"channel"`
	MessageID string `json:"messageId"`
}

type Report struct {
	Triggered  bool       `json:"triggered"`
	Deliveries []Delivery `json:"deliveries"`
}

type Alerter struct {
	topic     TopicPublisher
	email     EmailSender
	threshold assessment.RiskLevel
	log       logger.Logger
}

// NewAlerter builds an alerter. Either channel may be nil to disable it.
func NewAlerter(topic TopicPublisher, email EmailSender, threshold assessment.RiskLevel, log logger.Logger) *Alerter {
	return &Alerter{
		topic:     topic,
		email:     email,
		threshold: threshold,
		log:       logger.ForComponent(log, "risk-alerter"),
	}
}

// ShouldAlert reports whether a result's risk level reaches the threshold.
func (a *Alerter) ShouldAlert(r *assessment.AssessmentResult) bool {
	return r != nil && r.RiskLevel.Rank() >= a.threshold.Rank()
}

// Notify publishes to the topic and, if the alert has an address, emails a
// summary. The first channel failure is returned after both were tried.
func (a *Alerter) Notify(ctx context.Context, alert Alert) (Report, error) {
	report := Report{Deliveries: []Delivery{}}
	if !a.ShouldAlert(alert.Result) {
		return report, nil
	}
	report.Triggered = true

	subject := Subject(alert)
	body := Body(alert)
	var firstErr error

	if a.topic != nil {
		id, err := a.topic.PublishAlert(ctx, subject, body, map[string]string{
			"riskLevel":    string(alert.Result.RiskLevel),
			"assessmentId": alert.AssessmentID,
			"overallScore": strconv.Itoa(alert.Result.OverallScore),
		})
		firstErr = a.record(ChannelSNS, id, err, &report, firstErr)
	}
	if a.email != nil && alert.Email != "" {
		id, err := a.email.SendText(ctx, alert.Email, subject, body)
		firstErr = a.record(ChannelSES, id, err, &report, firstErr)
	}
	return report, firstErr
}

func (a *Alerter) record(channel, id string, err error, report *Report, firstErr error) error {
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(channel, "failed").Inc()
		a.log.Error("risk alert delivery failed", map[string]interface{}{"channel": channel, "error": err})
		if firstErr == nil {
			return apperrors.NewNotificationSendFailedError(channel, err)
		}
		return firstErr
	}
	metrics.NotificationsSent.WithLabelValues(channel, "sent").Inc()
	report.Deliveries = append(report.Deliveries, Delivery{Channel: channel, MessageID: id})
	return firstErr
}

func Subject(alert Alert) string {
	return fmt.Sprintf("%s: business assessment scored %d/100", alert.Result.RiskLevel, alert.Result.OverallScore)
}

// Body renders a plain-text summary: score, compound risks and the immediate
// next steps.
func Body(alert Alert) string {
	r := alert.Result
	var b strings.Builder
	fmt.Fprintf(&b, "Assessment %s\n", alert.AssessmentID)
	fmt.Fprintf(&b, "Overall score: %d (%s)\n", r.OverallScore, r.RiskLevel)
	fmt.Fprintf(&b, "Six-month failure probability: %.0f%%\n", r.Predictive.SixMonthFailure*100)

	if len(r.CompoundRisks) > 0 {
		b.WriteString("\nCompound risks:\n")
		for _, risk := range r.CompoundRisks {
			fmt.Fprintf(&b, "- %s (%s, %.0f%%)\n", risk.Name, risk.Severity, risk.Probability*100)
		}
	}
	if len(r.NextSteps.Immediate) > 0 {
		b.WriteString("\nDo now:\n")
		for _, step := range r.NextSteps.Immediate {
			fmt.Fprintf(&b, "- %s\n", step)
		}
	}
	if r.Predictive.RecoveryTime != "" {
		fmt.Fprintf(&b, "\nEstimated recovery: %s\n", r.Predictive.RecoveryTime)
	}
	return b.String()
}
