package assessment

import "sort"

const riskAdjustedBaseline = 75.0

// RiskAnalysis holds the compound risks detected for one answer set and the
// risk-adjusted overall score derived from them.
type RiskAnalysis struct {
	Risks []CompoundRisk
	Score int
}

// DetectRisks evaluates every rule against the answers and returns the
// matches sorted by probability, highest first. Rules with equal probability
// keep their catalog order.
func DetectRisks(view AnswerView, rules []Rule) []CompoundRisk {
	risks := make([]CompoundRisk, 0, len(rules))
	for _, rule := range rules {
		if rule.Predicate == nil {
			continue
		}
		m := rule.Predicate(view)
		if !m.Matched {
			continue
		}
		risks = append(risks, CompoundRisk{
			ID:          rule.ID,
			Name:        rule.Name,
			Category:    rule.Category,
			Severity:    rule.Severity,
			Factors:     append([]string(nil), m.Factors...),
			Probability: rule.Probability,
			Impact:      rule.Impact,
			Mitigations: append([]string(nil), rule.Mitigations...),
		})
	}
	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].Probability > risks[j].Probability
	})
	return risks
}

// AnalyzeRisks detects compound risks and computes the risk-adjusted score:
// a baseline of 75, minus severity weight times probability per risk, plus
// the points of every positive pattern that holds.
func AnalyzeRisks(view AnswerView, rules []Rule, bonuses []Bonus) RiskAnalysis {
	risks := DetectRisks(view, rules)
	return RiskAnalysis{Risks: risks, Score: riskAdjustedScore(view, risks, bonuses)}
}

func riskAdjustedScore(view AnswerView, risks []CompoundRisk, bonuses []Bonus) int {
	score := riskAdjustedBaseline
	for _, r := range risks {
		score -= severityWeights[r.Severity] * r.Probability
	}
	for _, b := range bonuses {
		if b.Predicate != nil && b.Predicate(view) {
			score += b.Points
		}
	}
	return roundScore(score)
}

// ruleIndex returns the catalog position of a rule, or len(rules) when the
// id is unknown.
func ruleIndex(rules []Rule, id string) int {
	for i, r := range rules {
		if r.ID == id {
			return i
		}
	}
	return len(rules)
}
