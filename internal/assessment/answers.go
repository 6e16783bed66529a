package assessment

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// answerString renders a raw answer in its canonical string form. Numbers
// are printed without trailing zeros so 40 and 40.0 compare equal.
func answerString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// answerNumber parses a raw answer as a finite number. Strings are trimmed
// and may carry a trailing percent sign or thousands separators. NaN and
// infinities are rejected so they score and compare as malformed.
func answerNumber(v interface{}) (float64, bool) {
	f, ok := rawNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func rawNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		cleaned := strings.TrimSpace(t)
		cleaned = strings.TrimSuffix(cleaned, "%")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// answerYes reports whether a yes/no answer is affirmative.
func answerYes(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "yes")
	default:
		return false
	}
}

// AnswerView resolves raw answers against a catalog so rules can ask for
// option tags and numbers instead of matching display text.
type AnswerView struct {
	catalog *Catalog
	answers Answers
}

func NewAnswerView(catalog *Catalog, answers Answers) AnswerView {
	return AnswerView{catalog: catalog, answers: answers}
}

// Has reports whether the question has a recorded answer.
func (v AnswerView) Has(questionID string) bool {
	_, ok := v.answers[questionID]
	return ok
}

// Tag returns the tag of the option chosen for a multiple-choice question,
// or "" when unanswered, unknown, or not matching any option.
func (v AnswerView) Tag(questionID string) string {
	raw, ok := v.answers[questionID]
	if !ok || v.catalog == nil {
		return ""
	}
	q, ok := v.catalog.Question(questionID)
	if !ok {
		return ""
	}
	opt, ok := q.OptionByAnswer(answerString(raw))
	if !ok {
		return ""
	}
	return opt.Tag
}

// TagIn reports whether the chosen option tag is one of tags.
func (v AnswerView) TagIn(questionID string, tags ...string) bool {
	tag := v.Tag(questionID)
	if tag == "" {
		return false
	}
	for _, t := range tags {
		if tag == t {
			return true
		}
	}
	return false
}

// Number returns the numeric answer for a question.
func (v AnswerView) Number(questionID string) (float64, bool) {
	raw, ok := v.answers[questionID]
	if !ok {
		return 0, false
	}
	return answerNumber(raw)
}

// Yes reports whether a yes/no question was answered affirmatively.
func (v AnswerView) Yes(questionID string) bool {
	raw, ok := v.answers[questionID]
	if !ok {
		return false
	}
	return answerYes(raw)
}
