package assessment

import "math"

const (
	priorityCriticalOption    = 100
	priorityThresholdExceeded = 95

	timeframeImmediate  = "Immediate (0-30 days)"
	timeframeShortTerm  = "Short-term (1-3 months)"
	timeframeMediumTerm = "Medium-term (3-6 months)"
)

// remedies holds the one canned remedy per category used as the solution
// text of question-level critical issues.
var remedies = map[Category]string{
	CategoryFinancialHealth:       "Build a 13-week cash flow forecast and secure a standby credit line covering at least 90 days of operating costs.",
	CategoryOperationalResilience: "Document your core processes and cross-train at least one team member on every critical task.",
	CategoryMarketPosition:        "Reduce dependence on your largest customers and define a value proposition that does not rely on price.",
	CategoryComplianceRisk:        "Engage a certified accountant to regularise tax filings and business registration immediately.",
	CategoryGrowthReadiness:       "Put basic financial records and governance in place before pursuing expansion or investment.",
}

// Remedy returns the fixed remedy sentence for a category.
func Remedy(c Category) string {
	return remedies[c]
}

// QuestionScore is the outcome of scoring one answered question.
type QuestionScore struct {
	QuestionID string
	Score      float64
	Issue      *BusinessIssue
}

// ScoreQuestion converts one answer into a 0-100 sub-score and, for
// business-killer questions answered critically, the urgent issue it raises.
func ScoreQuestion(q Question, answer interface{}) QuestionScore {
	out := QuestionScore{QuestionID: q.ID}

	switch q.Type {
	case TypeMultipleChoice:
		opt, ok := q.OptionByAnswer(answerString(answer))
		if !ok {
			return out
		}
		out.Score = clampScore(opt.Score)
		if opt.Risk == OptionRiskCritical && q.BusinessKiller {
			impact := opt.Insight
			if impact == "" {
				impact = "This answer alone signals a risk that can stop the business within months."
			}
			out.Issue = questionIssue(q, impact, priorityCriticalOption)
		}

	case TypePercentage, TypeNumber:
		value, ok := answerNumber(answer)
		if !ok {
			return out
		}
		if q.CriticalThreshold != nil && value > *q.CriticalThreshold {
			out.Score = thresholdPenalty(value, *q.CriticalThreshold)
			if q.BusinessKiller {
				out.Issue = questionIssue(q,
					"The reported value is above the critical threshold for this measure.",
					priorityThresholdExceeded)
			}
			return out
		}
		out.Score = clampScore(math.Min(100, value))

	case TypeYesNo:
		if answerYes(answer) {
			out.Score = 100
		}

	case TypeScale:
		value, ok := answerNumber(answer)
		if !ok {
			return out
		}
		out.Score = clampScore(value / 10 * 100)
	}

	return out
}

func thresholdPenalty(value, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return clampScore(math.Max(0, 100-(value/threshold)*100))
}

func questionIssue(q Question, impact string, priority float64) *BusinessIssue {
	return &BusinessIssue{
		ID:        q.ID,
		Title:     q.Text,
		Severity:  IssueUrgent,
		Impact:    impact,
		Solution:  Remedy(q.Category),
		Timeframe: timeframeImmediate,
		Category:  q.Category,
		Priority:  priority,
		Source:    SourceQuestion,
	}
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func roundScore(v float64) int {
	return clampInt(int(math.Round(clampScore(v))), 0, 100)
}
