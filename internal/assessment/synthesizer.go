package assessment

import (
	"math"
	"sort"
)

const (
	IndustryAverageScore = 58
	TopPerformerScore    = 82

	maxPercentile         = 95
	fundingUrgentCap      = 40
	shortTermCutoff       = 60
	strategicCutoff       = 70
	growthFinancingAdvice = "Explore growth financing: your financial health and compliance are strong enough to support investor or lender conversations."
)

var shortTermActions = map[Category]string{
	CategoryFinancialHealth:       "Set up weekly cash flow tracking and cut payment terms for new customers to 30 days.",
	CategoryOperationalResilience: "Document the five most important processes and name a backup person for each.",
	CategoryMarketPosition:        "Interview your top customers to learn why they buy and sharpen your offer around it.",
	CategoryComplianceRisk:        "Book a compliance review with an accountant and clear any outstanding filings.",
	CategoryGrowthReadiness:       "Write a one-page 12-month plan with revenue targets and the investment it needs.",
}

var fundingRecommendations = map[FundingTier]string{
	FundingHigh:   "Ready for investment: prepare a pitch deck and financial statements for investors.",
	FundingMedium: "Address the listed issues before approaching investors or lenders.",
	FundingLow:    "Focus on business fundamentals before seeking external funding.",
}

// RiskToIssue converts a detected compound risk into a business issue. index
// is the rule's catalog position and breaks ties between equal probabilities.
func RiskToIssue(risk CompoundRisk, index int) BusinessIssue {
	issue := BusinessIssue{
		ID:       risk.ID,
		Title:    risk.Name,
		Impact:   risk.Impact,
		Category: risk.Category,
		Priority: (1-risk.Probability)*100 + float64(index),
		Source:   SourceCompoundRisk,
	}
	if len(risk.Mitigations) > 0 {
		issue.Solution = risk.Mitigations[0]
	}
	switch risk.Severity {
	case SeverityCritical:
		issue.Severity = IssueUrgent
		issue.Timeframe = timeframeImmediate
	case SeverityHigh:
		issue.Severity = IssueImportant
		issue.Timeframe = timeframeShortTerm
	default:
		issue.Severity = IssueMonitor
		issue.Timeframe = timeframeMediumTerm
	}
	return issue
}

// MergeIssues combines question-level issues with issues derived from
// compound risks and sorts them by priority, highest first.
func MergeIssues(questionIssues []BusinessIssue, risks []CompoundRisk, rules []Rule) []BusinessIssue {
	issues := make([]BusinessIssue, 0, len(questionIssues)+len(risks))
	issues = append(issues, questionIssues...)
	for _, r := range risks {
		issues = append(issues, RiskToIssue(r, ruleIndex(rules, r.ID)))
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Priority > issues[j].Priority
	})
	return issues
}

// DetermineRiskLevel maps the overall score and the number of urgent issues
// to one of the four risk levels.
func DetermineRiskLevel(overall, urgent int) RiskLevel {
	switch {
	case urgent > 2 || overall < 40:
		return RiskCritical
	case urgent > 0 || overall < 60:
		return RiskHigh
	case overall < 75:
		return RiskModerate
	default:
		return RiskLow
	}
}

func countUrgent(issues []BusinessIssue) int {
	n := 0
	for _, i := range issues {
		if i.Severity == IssueUrgent {
			n++
		}
	}
	return n
}

// BuildNextSteps derives immediate, short-term and strategic actions.
func BuildNextSteps(issues []BusinessIssue, scores map[Category]int) NextSteps {
	steps := NextSteps{Immediate: []string{}, ShortTerm: []string{}, Strategic: []string{}}

	seen := make(map[string]bool)
	for _, i := range issues {
		if i.Severity != IssueUrgent || i.Solution == "" || seen[i.Solution] {
			continue
		}
		seen[i.Solution] = true
		steps.Immediate = append(steps.Immediate, i.Solution)
	}

	for _, c := range Categories {
		if scores[c] < shortTermCutoff {
			steps.ShortTerm = append(steps.ShortTerm, shortTermActions[c])
		}
	}

	if scores[CategoryFinancialHealth] > strategicCutoff && scores[CategoryComplianceRisk] > strategicCutoff {
		steps.Strategic = append(steps.Strategic, growthFinancingAdvice)
	}
	return steps
}

// AssessFundingReadiness averages the category scores, caps the result when
// urgent issues exist and picks the readiness tier.
func AssessFundingReadiness(scores map[Category]int, issues []BusinessIssue) FundingReadiness {
	score := roundScore(categoryMean(scores))
	if countUrgent(issues) > 0 && score > fundingUrgentCap {
		score = fundingUrgentCap
	}

	tier := FundingLow
	switch {
	case score >= 75:
		tier = FundingHigh
	case score >= 60:
		tier = FundingMedium
	}

	improvements := make([]string, 0, len(issues))
	for _, i := range issues {
		improvements = append(improvements, i.Title)
	}

	return FundingReadiness{
		Score:                score,
		Tier:                 tier,
		Recommendation:       fundingRecommendations[tier],
		RequiredImprovements: improvements,
	}
}

// CompareToBenchmark places the overall score against the fixed industry
// reference points.
func CompareToBenchmark(overall int) Benchmark {
	pct := int(math.Round(float64(overall) / TopPerformerScore * 100))
	if pct > maxPercentile {
		pct = maxPercentile
	}
	if pct < 0 {
		pct = 0
	}
	return Benchmark{
		YourScore:       overall,
		IndustryAverage: IndustryAverageScore,
		TopPerformer:    TopPerformerScore,
		Percentile:      pct,
	}
}
