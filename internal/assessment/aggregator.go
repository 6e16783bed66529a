package assessment

import "math"

// CategoryReport is the aggregator output: one score per category plus the
// critical issues emitted while scoring individual questions.
type CategoryReport struct {
	Scores map[Category]int
	Issues []BusinessIssue
}

// AggregateCategories scores every answered question and combines the
// sub-scores into a weighted mean per category. Unanswered questions are
// skipped rather than counted as zero.
func AggregateCategories(questions []Question, answers Answers) CategoryReport {
	weighted := make(map[Category]float64, len(Categories))
	weights := make(map[Category]float64, len(Categories))
	var issues []BusinessIssue

	for _, q := range questions {
		raw, answered := answers[q.ID]
		if !answered || raw == nil {
			continue
		}
		if !q.Category.Valid() || q.Weight <= 0 {
			continue
		}

		qs := ScoreQuestion(q, raw)
		weighted[q.Category] += qs.Score * q.Weight
		weights[q.Category] += q.Weight
		if qs.Issue != nil {
			issues = append(issues, *qs.Issue)
		}
	}

	scores := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		if weights[c] > 0 {
			scores[c] = roundScore(weighted[c] / weights[c])
		} else {
			scores[c] = 0
		}
	}

	return CategoryReport{Scores: scores, Issues: issues}
}

// WeightedOverall is the plain mean of the category scores.
func WeightedOverall(scores map[Category]int) int {
	return roundScore(categoryMean(scores))
}

func categoryMean(scores map[Category]int) float64 {
	total := 0
	for _, c := range Categories {
		total += scores[c]
	}
	return float64(total) / float64(len(Categories))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
