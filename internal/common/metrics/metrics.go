// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	AssessmentsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_evaluated_total",
			Help: "Completed assessments by resulting risk level",
		},
		[]string{"risk_level"},
	)

	AssessmentOverallScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assessment_overall_score",
			Help:    "Distribution of risk-adjusted overall scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	AssessmentEvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assessment_evaluation_duration_seconds",
			Help:    "Time spent scoring one assessment",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	CompoundRisksDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_compound_risks_detected_total",
			Help: "Compound risks detected by rule id",
		},
		[]string{"risk_id"},
	)

	ResultsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_results_persisted_total",
			Help: "Result persistence attempts by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	OutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assessment_outbox_pending",
			Help: "Results waiting in the local outbox for replay",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_notifications_total",
			Help: "Risk alert notifications by channel and status",
		},
		[]string{"channel", "status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_http_requests_total",
			Help: "HTTP API requests by route and status code",
		},
		[]string{"route", "status"},
	)
)

// ObserveEvaluation records the outcome of one engine evaluation.
func ObserveEvaluation(riskLevel string, overall int, riskIDs []string, took time.Duration) {
	AssessmentsEvaluated.WithLabelValues(riskLevel).Inc()
	AssessmentOverallScore.Observe(float64(overall))
	AssessmentEvaluationDuration.Observe(took.Seconds())
	for _, id := range riskIDs {
		CompoundRisksDetected.WithLabelValues(id).Inc()
	}
}

// ObserveJob records a finished worker job.
func ObserveJob(taskType string, took time.Duration, errorCode string) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(took.Seconds())
	if errorCode != "" {
		WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
		return
	}
	WorkerJobsCompleted.WithLabelValues(taskType).Inc()
}
