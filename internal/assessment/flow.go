package assessment

import "strings"

// NextQuestion returns the index of the next question to display after
// currentIndex (-1 before the first question), or len(questions) when the
// assessment is complete.
func NextQuestion(questions []Question, currentIndex int, answers Answers) int {
	if currentIndex < -1 {
		currentIndex = -1
	}
	for i := currentIndex + 1; i < len(questions); i++ {
		if ShouldDisplay(questions, i, answers) {
			return i
		}
	}
	return len(questions)
}

// ShouldDisplay reports whether every display condition of questions[i]
// holds. Conditions only reference earlier questions, so the referenced
// question is looked up in questions[:i].
func ShouldDisplay(questions []Question, i int, answers Answers) bool {
	for _, cond := range questions[i].Conditions {
		if !conditionHolds(cond, answers, findQuestion(questions[:i], cond.QuestionID)) {
			return false
		}
	}
	return true
}

func findQuestion(questions []Question, id string) *Question {
	for i := range questions {
		if questions[i].ID == id {
			return &questions[i]
		}
	}
	return nil
}

// answerForms returns the strings a condition may match an answer against.
// A multiple-choice answer given by text or tag resolves to its option, and
// both the option text and tag are candidates.
func answerForms(raw interface{}, ref *Question) []string {
	s := answerString(raw)
	if ref == nil || ref.Type != TypeMultipleChoice {
		return []string{s}
	}
	opt, ok := ref.OptionByAnswer(s)
	if !ok {
		return []string{s}
	}
	if opt.Tag == "" {
		return []string{opt.Text}
	}
	return []string{opt.Text, opt.Tag}
}

// conditionHolds evaluates one display condition. ref is the referenced
// question when known; it may be nil.
func conditionHolds(cond Condition, answers Answers, ref *Question) bool {
	raw, ok := answers[cond.QuestionID]
	if !ok || raw == nil {
		return false
	}

	switch cond.Operator {
	case OpEquals:
		want := answerString(cond.Value)
		for _, form := range answerForms(raw, ref) {
			if form == want {
				return true
			}
		}
		return false
	case OpGreaterThan, OpLessThan:
		got, ok := answerNumber(raw)
		if !ok {
			return false
		}
		want, ok := answerNumber(cond.Value)
		if !ok {
			return false
		}
		if cond.Operator == OpGreaterThan {
			return got > want
		}
		return got < want
	case OpContains:
		want := answerString(cond.Value)
		for _, form := range answerForms(raw, ref) {
			if strings.Contains(form, want) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// DisplayedQuestions walks the flow from the start and returns the indices of
// every question that would be shown for the given answers.
func DisplayedQuestions(questions []Question, answers Answers) []int {
	var shown []int
	for i := NextQuestion(questions, -1, answers); i < len(questions); i = NextQuestion(questions, i, answers) {
		shown = append(shown, i)
	}
	return shown
}
