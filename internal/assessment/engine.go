package assessment

import (
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrNilCatalog = errors.New("assessment: catalog is nil")

// Engine evaluates completed assessments. It keeps only its rule tables and
// clock; answers are never retained between calls, so one Engine may serve
// concurrent evaluations.
type Engine struct {
	rules   []Rule
	bonuses []Bonus
	now     func() time.Time
}

type EngineOption func(*Engine)

// WithClock sets the source of the result timestamp.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRules replaces the compound-risk rule table.
func WithRules(rules []Rule) EngineOption {
	return func(e *Engine) { e.rules = rules }
}

// WithBonuses replaces the positive-pattern table.
func WithBonuses(bonuses []Bonus) EngineOption {
	return func(e *Engine) { e.bonuses = bonuses }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		rules:   DefaultRules(),
		bonuses: DefaultBonuses(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the rule table the engine evaluates.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// NextQuestion returns the index of the next question to display, or
// catalog.Len() when the assessment is complete.
func (e *Engine) NextQuestion(catalog *Catalog, currentIndex int, answers Answers) int {
	if catalog == nil {
		return 0
	}
	return NextQuestion(catalog.Questions, currentIndex, answers)
}

// Evaluate scores a completed answer set. The category aggregation, risk
// analysis and failure prediction run concurrently on a private copy of the
// answers and are merged into one result.
func (e *Engine) Evaluate(catalog *Catalog, answers Answers) (*AssessmentResult, error) {
	if catalog == nil {
		return nil, ErrNilCatalog
	}

	snapshot := make(Answers, len(answers))
	for k, v := range answers {
		snapshot[k] = v
	}
	view := NewAnswerView(catalog, snapshot)

	var (
		report     CategoryReport
		analysis   RiskAnalysis
		predictive PredictiveAnalytics
	)

	var g errgroup.Group
	g.Go(func() error {
		report = AggregateCategories(catalog.Questions, snapshot)
		return nil
	})
	g.Go(func() error {
		analysis = AnalyzeRisks(view, e.rules, e.bonuses)
		return nil
	})
	g.Go(func() error {
		risks := DetectRisks(view, e.rules)
		predictive = PredictFailure(view, risks, e.rules, e.bonuses)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	issues := MergeIssues(report.Issues, analysis.Risks, e.rules)
	overall := analysis.Score

	return &AssessmentResult{
		CatalogVersion:   catalog.Version,
		OverallScore:     overall,
		WeightedScore:    WeightedOverall(report.Scores),
		RiskLevel:        DetermineRiskLevel(overall, countUrgent(issues)),
		CategoryScores:   report.Scores,
		Issues:           issues,
		CompoundRisks:    analysis.Risks,
		Benchmark:        CompareToBenchmark(overall),
		NextSteps:        BuildNextSteps(issues, report.Scores),
		FundingReadiness: AssessFundingReadiness(report.Scores, issues),
		Predictive:       predictive,
		CreatedAt:        e.now(),
	}, nil
}
