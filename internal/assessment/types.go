// Package assessment implements the questionnaire flow, scoring and
// risk-correlation engine behind a business health assessment.
//
// Everything in this package is a pure function of the question catalog and
// the answer map. Nothing here performs I/O or keeps state between calls.
package assessment

import "time"

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypePercentage     QuestionType = "percentage"
	TypeNumber         QuestionType = "number"
	TypeYesNo          QuestionType = "yes_no"
	TypeScale          QuestionType = "scale"
)

func (t QuestionType) Valid() bool {
	switch t {
	case TypeMultipleChoice, TypePercentage, TypeNumber, TypeYesNo, TypeScale:
		return true
	}
	return false
}

// Numeric reports whether answers of this type are parsed as numbers.
func (t QuestionType) Numeric() bool {
	return t == TypePercentage || t == TypeNumber
}

type Category string

const (
	CategoryFinancialHealth       Category = "financial_health"
	CategoryOperationalResilience Category = "operational_resilience"
	CategoryMarketPosition        Category = "market_position"
	CategoryComplianceRisk        Category = "compliance_risk"
	CategoryGrowthReadiness       Category = "growth_readiness"
)

// Categories lists every scored category in report order.
var Categories = []Category{
	CategoryFinancialHealth,
	CategoryOperationalResilience,
	CategoryMarketPosition,
	CategoryComplianceRisk,
	CategoryGrowthReadiness,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// OptionRisk is the qualitative risk attached to a multiple-choice option.
type OptionRisk string

const (
	OptionRiskLow      OptionRisk = "low"
	OptionRiskMedium   OptionRisk = "medium"
	OptionRiskHigh     OptionRisk = "high"
	OptionRiskCritical OptionRisk = "critical"
)

type Operator string

const (
	OpEquals      Operator = "equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
)

func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpGreaterThan, OpLessThan, OpContains:
		return true
	}
	return false
}

// Condition gates the display of a question on an earlier answer.
type Condition struct {
	QuestionID string      `yaml:"question_id" json:"questionId"`
	Operator   Operator    `yaml:"operator" json:"operator"`
	Value      interface{} `yaml:"value" json:"value"`
}

// Option is one choice of a multiple-choice question. Tag is the stable
// symbolic name rules match on; Text may change freely.
type Option struct {
	Text    string     `yaml:"text" json:"text"`
	Tag     string     `yaml:"tag" json:"tag"`
	Score   float64    `yaml:"score" json:"score"`
	Risk    OptionRisk `yaml:"risk" json:"risk"`
	Insight string     `yaml:"insight,omitempty" json:"insight,omitempty"`
}

type Question struct {
	ID                string       `yaml:"id" json:"id"`
	Text              string       `yaml:"text" json:"text"`
	Type              QuestionType `yaml:"type" json:"type"`
	Category          Category     `yaml:"category" json:"category"`
	Weight            float64      `yaml:"weight" json:"weight"`
	CriticalThreshold *float64     `yaml:"critical_threshold,omitempty" json:"criticalThreshold,omitempty"`
	BusinessKiller    bool         `yaml:"business_killer,omitempty" json:"businessKiller,omitempty"`
	Conditions        []Condition  `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Options           []Option     `yaml:"options,omitempty" json:"options,omitempty"`
}

// OptionByAnswer finds the option selected by an answer, matching the option
// text exactly first and the option tag second.
func (q Question) OptionByAnswer(answer string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.Text == answer {
			return opt, true
		}
	}
	for _, opt := range q.Options {
		if opt.Tag != "" && opt.Tag == answer {
			return opt, true
		}
	}
	return Option{}, false
}

// Answers maps question id to the raw answer value (string, number or
// boolean-like token).
type Answers map[string]interface{}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

type CompoundRisk struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Factors     []string `json:"factors"`
	Probability float64  `json:"probability"`
	Impact      string   `json:"impact"`
	Mitigations []string `json:"mitigations"`
}

type IssueSeverity string

const (
	IssueUrgent    IssueSeverity = "urgent"
	IssueImportant IssueSeverity = "important"
	IssueMonitor   IssueSeverity = "monitor"
)

type IssueSource string

const (
	SourceQuestion     IssueSource = "question"
	SourceCompoundRisk IssueSource = "compound_risk"
)

type BusinessIssue struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Severity  IssueSeverity `json:"severity"`
	Impact    string        `json:"impact"`
	Solution  string        `json:"solution"`
	Timeframe string        `json:"timeframe"`
	Category  Category      `json:"category"`
	Priority  float64       `json:"priority"`
	Source    IssueSource   `json:"source"`
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "Low Risk"
	RiskModerate RiskLevel = "Moderate Risk"
	RiskHigh     RiskLevel = "High Risk"
	RiskCritical RiskLevel = "Critical Risk"
)

// Rank orders risk levels from 0 (low) to 3 (critical).
func (r RiskLevel) Rank() int {
	switch r {
	case RiskModerate:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// ParseRiskLevel accepts either the display form ("High Risk") or the bare
// word ("high").
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch s {
	case string(RiskLow), "low":
		return RiskLow, true
	case string(RiskModerate), "moderate":
		return RiskModerate, true
	case string(RiskHigh), "high":
		return RiskHigh, true
	case string(RiskCritical), "critical":
		return RiskCritical, true
	}
	return "", false
}

type Benchmark struct {
	YourScore       int `json:"yourScore"`
	IndustryAverage int `json:"industryAverage"`
	TopPerformer    int `json:"topPerformer"`
	Percentile      int `json:"percentile"`
}

type NextSteps struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"shortTerm"`
	Strategic []string `json:"strategic"`
}

type FundingTier string

const (
	FundingHigh   FundingTier = "high"
	FundingMedium FundingTier = "medium"
	FundingLow    FundingTier = "low"
)

type FundingReadiness struct {
	Score                int         `json:"score"`
	Tier                 FundingTier `json:"tier"`
	Recommendation       string      `json:"recommendation"`
	RequiredImprovements []string    `json:"requiredImprovements"`
}

type PredictiveAnalytics struct {
	ThreeMonthFailure     float64  `json:"threeMonthFailure"`
	SixMonthFailure       float64  `json:"sixMonthFailure"`
	TwelveMonthFailure    float64  `json:"twelveMonthFailure"`
	SurvivalFactors       []string `json:"survivalFactors"`
	CriticalInterventions []string `json:"criticalInterventions"`
	RecoveryTime          string   `json:"recoveryTime"`
}

// AssessmentResult is the full output of one evaluation.
//
// OverallScore is the risk-adjusted score and drives RiskLevel.
// WeightedScore is the plain weighted mean of the category scores. The two
// are computed independently and are not expected to agree.
type AssessmentResult struct {
	CatalogVersion   string              `json:"catalogVersion"`
	OverallScore     int                 `json:"overallScore"`
	WeightedScore    int                 `json:"weightedScore"`
	RiskLevel        RiskLevel           `json:"riskLevel"`
	CategoryScores   map[Category]int    `json:"categoryScores"`
	Issues           []BusinessIssue     `json:"issues"`
	CompoundRisks    []CompoundRisk      `json:"compoundRisks"`
	Benchmark        Benchmark           `json:"benchmark"`
	NextSteps        NextSteps           `json:"nextSteps"`
	FundingReadiness FundingReadiness    `json:"fundingReadiness"`
	Predictive       PredictiveAnalytics `json:"predictive"`
	CreatedAt        time.Time           `json:"createdAt"`
}

// UrgentIssueCount counts issues with urgent severity.
func (r *AssessmentResult) UrgentIssueCount() int {
	return countUrgent(r.Issues)
}
