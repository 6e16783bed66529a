package assessment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDefaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return c
}

func indexOf(t *testing.T, c *Catalog, id string) int {
	t.Helper()
	for i, q := range c.Questions {
		if q.ID == id {
			return i
		}
	}
	t.Fatalf("question %q not in catalog", id)
	return -1
}

func TestDefaultCatalog(t *testing.T) {
	c := mustDefaultCatalog(t)

	assert.Equal(t, "2.1.0", c.Version)
	assert.Equal(t, 21, c.Len())

	perCategory := make(map[Category]int)
	killers := 0
	for _, q := range c.Questions {
		perCategory[q.Category]++
		if q.BusinessKiller {
			killers++
		}
	}
	for _, cat := range Categories {
		assert.Greater(t, perCategory[cat], 0, cat)
	}
	assert.Equal(t, 5, killers)

	q, ok := c.Question(QCustomerConc)
	require.True(t, ok)
	require.NotNil(t, q.CriticalThreshold)
	assert.Equal(t, 60.0, *q.CriticalThreshold)
}

func TestDefaultCatalog_RuleTagsExist(t *testing.T) {
	c := mustDefaultCatalog(t)
	tags := map[string][]string{
		QCashRunway:       {TagRunwayUnder15, TagRunway15To30, TagRunway3To6Months, TagRunwayOver6},
		QProfitMargin:     {TagMarginBelow5, TagMargin5To10, TagMargin10To20, TagMarginAbove20},
		QFinancialRecords: {TagRecordsAudited, TagRecordsBooks},
		QKeyPerson:        {TagOwnerCollapse, TagOwnerSignificant},
		QDifferentiation:  {TagDiffNone, TagDiffPriceOnly, TagDiffUnique},
		QTaxCompliance:    {TagTaxCurrent, TagTaxBehind, TagTaxUnregistered},
	}

	for id, want := range tags {
		q, ok := c.Question(id)
		require.True(t, ok, id)
		for _, tag := range want {
			_, found := q.OptionByAnswer(tag)
			assert.True(t, found, "%s missing tag %s", id, tag)
		}
	}
	for _, id := range []string{QReceivablesAging, QCustomerConc, QDigitalPayments} {
		_, ok := c.Question(id)
		assert.True(t, ok, id)
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		problem string
	}{
		{
			name:    "not yaml",
			doc:     "version: [",
			problem: "catalog: parse",
		},
		{
			name:    "missing questions",
			doc:     `version: "1"`,
			problem: "questions",
		},
		{
			name: "unknown type rejected by schema",
			doc: `
version: "1"
questions:
  - {id: a, text: A, type: slider, category: financial_health, weight: 1}
`,
			problem: "type",
		},
		{
			name: "duplicate id",
			doc: `
version: "1"
questions:
  - {id: a, text: A, type: yes_no, category: financial_health, weight: 1}
  - {id: a, text: B, type: yes_no, category: financial_health, weight: 1}
`,
			problem: `duplicate question id "a"`,
		},
		{
			name: "condition on unknown question",
			doc: `
version: "1"
questions:
  - id: a
    text: A
    type: yes_no
    category: financial_health
    weight: 1
    conditions:
      - {question_id: ghost, operator: equals, value: "yes"}
`,
			problem: `condition references unknown question "ghost"`,
		},
		{
			name: "condition on later question",
			doc: `
version: "1"
questions:
  - id: a
    text: A
    type: yes_no
    category: financial_health
    weight: 1
    conditions:
      - {question_id: b, operator: equals, value: "yes"}
  - {id: b, text: B, type: yes_no, category: financial_health, weight: 1}
`,
			problem: "not asked earlier",
		},
		{
			name: "threshold on yes_no",
			doc: `
version: "1"
questions:
  - {id: a, text: A, type: yes_no, category: financial_health, weight: 1, critical_threshold: 5}
`,
			problem: "critical threshold only applies",
		},
		{
			name: "multiple choice without options",
			doc: `
version: "1"
questions:
  - {id: a, text: A, type: multiple_choice, category: financial_health, weight: 1}
`,
			problem: "has no options",
		},
		{
			name: "equals condition on unknown option",
			doc: `
version: "1"
questions:
  - id: a
    text: A
    type: multiple_choice
    category: financial_health
    weight: 1
    options:
      - {text: Behind on payments, tag: behind, score: 10, risk: high}
  - id: b
    text: B
    type: yes_no
    category: financial_health
    weight: 1
    conditions:
      - {question_id: a, operator: equals, value: late}
`,
			problem: "matches no option",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestParseCatalog_ReturnsCatalogError(t *testing.T) {
	_, err := ParseCatalog([]byte(`
version: "1"
questions:
  - {id: a, text: A, type: yes_no, category: financial_health, weight: 1}
  - {id: a, text: B, type: yes_no, category: financial_health, weight: 1}
`))
	var catErr *CatalogError
	require.True(t, errors.As(err, &catErr))
	assert.Len(t, catErr.Problems, 1)
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: "9.9"
questions:
  - {id: a, text: A, type: percentage, category: market_position, weight: 2, critical_threshold: 50}
`), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "9.9", c.Version)
	assert.Equal(t, 1, c.Len())

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestCatalog_NilSafe(t *testing.T) {
	var c *Catalog
	assert.Equal(t, 0, c.Len())
	_, ok := c.Question("a")
	assert.False(t, ok)
}
