package results

import (
	"context"
	"errors"
	"time"

	apperrors "bvester-assessment/internal/common/errors"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/common/metrics"
)

const (
	BackendPrimary = "postgres"
	BackendOutbox  = "outbox"
)

// Outcome reports where a record ended up.
type Outcome struct {
	Stored   bool   `json:"stored"`
	Backend  string `json:"backend,omitempty"`
	Attempts int    `json:"attempts"`
}

// ReplayReport summarises one outbox drain.
type ReplayReport struct {
	Replayed int `json:"replayed"`
	Failed   int `json:"failed"`
	Pending  int `json:"pending"`
}

// Outbox is the fallback store used when the primary rejects a write.
type Outbox interface {
	SaveWithError(ctx context.Context, rec Record, lastErr string) error
	Pending(ctx context.Context, limit int) ([]Record, error)
	MarkSynced(ctx context.Context, assessmentID string) error
	CountPending(ctx context.Context) (int, error)
}

// Persister writes to the primary repository with retries and falls back to
// the outbox. It never modifies the record it is given.
type Persister struct {
	primary Repository
	outbox  Outbox
	retries int
	delay   time.Duration
	log     logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewPersister(primary Repository, outbox Outbox, retries int, delay time.Duration, log logger.Logger) *Persister {
	if retries < 1 {
		retries = 1
	}
	return &Persister{
		primary: primary,
		outbox:  outbox,
		retries: retries,
		delay:   delay,
		log:     logger.ForComponent(log, "result-persister"),
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Persist stores rec. A nil error means the record is in one of the
// backends; Outcome says which.
func (p *Persister) Persist(ctx context.Context, rec Record) (Outcome, error) {
	if err := rec.validate(); err != nil {
		return Outcome{}, apperrors.NewResultPersistFailedError(err)
	}

	var lastErr error
	attempts := 0
	if p.primary != nil {
		for attempt := 0; attempt < p.retries; attempt++ {
			if attempt > 0 {
				if err := p.sleep(ctx, p.delay*time.Duration(1<<(attempt-1))); err != nil {
					lastErr = err
					break
				}
			}
			attempts++
			lastErr = p.primary.Save(ctx, rec)
			if lastErr == nil {
				metrics.ResultsPersisted.WithLabelValues(BackendPrimary, "stored").Inc()
				return Outcome{Stored: true, Backend: BackendPrimary, Attempts: attempts}, nil
			}
			p.log.Warn("primary result write failed", map[string]interface{}{
				"assessmentId": rec.AssessmentID,
				"attempt":      attempts,
				"error":        lastErr,
			})
		}
		metrics.ResultsPersisted.WithLabelValues(BackendPrimary, "failed").Inc()
	}

	if lastErr == nil {
		lastErr = errors.New("primary result store not configured")
	}
	if p.outbox == nil {
		return Outcome{Attempts: attempts}, apperrors.NewResultPersistFailedError(lastErr)
	}

	reason := lastErr.Error()
	// The outbox write uses a fresh context so a cancelled caller still
	// leaves the result on disk.
	fallbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.outbox.SaveWithError(fallbackCtx, rec, reason); err != nil {
		metrics.ResultsPersisted.WithLabelValues(BackendOutbox, "failed").Inc()
		p.log.Error("result lost: outbox write failed", map[string]interface{}{
			"assessmentId": rec.AssessmentID,
			"error":        err,
		})
		return Outcome{Attempts: attempts + 1}, apperrors.NewResultPersistFailedError(err)
	}

	metrics.ResultsPersisted.WithLabelValues(BackendOutbox, "stored").Inc()
	p.refreshPendingGauge(fallbackCtx)
	p.log.Info("result queued in local outbox", map[string]interface{}{"assessmentId": rec.AssessmentID})
	return Outcome{Stored: true, Backend: BackendOutbox, Attempts: attempts + 1}, nil
}

// Replay pushes up to limit queued records to the primary store.
func (p *Persister) Replay(ctx context.Context, limit int) (ReplayReport, error) {
	var report ReplayReport
	if p.outbox == nil || p.primary == nil {
		return report, nil
	}
	pending, err := p.outbox.Pending(ctx, limit)
	if err != nil {
		return report, err
	}
	for _, rec := range pending {
		if err := p.primary.Save(ctx, rec); err != nil {
			report.Failed++
			p.log.Warn("replay failed", map[string]interface{}{"assessmentId": rec.AssessmentID, "error": err})
			continue
		}
		if err := p.outbox.MarkSynced(ctx, rec.AssessmentID); err != nil {
			return report, err
		}
		report.Replayed++
	}
	report.Pending = p.refreshPendingGauge(ctx)
	p.log.Info("outbox replay finished", map[string]interface{}{
		"replayed": report.Replayed,
		"failed":   report.Failed,
		"pending":  report.Pending,
	})
	return report, nil
}

func (p *Persister) refreshPendingGauge(ctx context.Context) int {
	n, err := p.outbox.CountPending(ctx)
	if err != nil {
		return 0
	}
	metrics.OutboxPending.Set(float64(n))
	return n
}
