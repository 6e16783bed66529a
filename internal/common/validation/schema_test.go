package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInput_Evaluate(t *testing.T) {
	tests := []struct {
		name      string
		input     map[string]interface{}
		wantValid bool
		wantField string
	}{
		{
			name: "scalar answers",
			input: map[string]interface{}{
				"answers": map[string]interface{}{"cash_runway": "Less than 15 days", "profit_margin": 8.5, "digital_payments": true},
			},
			wantValid: true,
		},
		{
			name:      "empty answers are allowed",
			input:     map[string]interface{}{"answers": map[string]interface{}{}},
			wantValid: true,
		},
		{
			name:      "missing answers",
			input:     map[string]interface{}{"userId": "u-1"},
			wantValid: false,
			wantField: "(root)",
		},
		{
			name: "nested answer value",
			input: map[string]interface{}{
				"answers": map[string]interface{}{"cash_runway": []interface{}{"a"}},
			},
			wantValid: false,
			wantField: "answers.cash_runway",
		},
		{
			name: "bad email",
			input: map[string]interface{}{
				"answers": map[string]interface{}{},
				"email":   "not-an-email",
			},
			wantValid: false,
			wantField: "email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateInput(SchemaEvaluate, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid, res.Summary())
			if tt.wantField != "" {
				assert.True(t, res.HasErrors(tt.wantField), res.Summary())
			}
		})
	}
}

func TestValidateJSON_Next(t *testing.T) {
	res, err := ValidateJSON(SchemaNext, []byte(`{"currentIndex": 3, "questionId": "cash_runway", "answer": "Over 6 months"}`))
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = ValidateJSON(SchemaNext, []byte(`{"currentIndex": -2}`))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Len(t, res.GetErrorsForField("currentIndex"), 1)

	res, err = ValidateJSON(SchemaNext, []byte(`{not json`))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "MALFORMED_JSON", res.Errors[0].Code)
}

func TestValidateInput_UnknownSchema(t *testing.T) {
	_, err := ValidateInput("missing", map[string]interface{}{})
	assert.Error(t, err)
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("owner@example.com"))
	assert.False(t, ValidateEmail("owner"))
	assert.False(t, ValidateEmail("Owner <owner@example.com>"))
}
