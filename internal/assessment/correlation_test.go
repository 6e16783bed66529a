package assessment

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Answer texts from the default catalog.
const (
	ansRunwayUnder15   = "Less than 15 days - Critical danger"
	ansRunway15To30    = "15-30 days - High risk"
	ansRunwayOver6     = "More than 6 months - Strong"
	ansMarginBelow5    = "Below 5% or breakeven - Unsustainable"
	ansMargin5To10     = "5-10% - Thin margins"
	ansMarginAbove20   = "Above 20% - Strong"
	ansRecordsAudited  = "Audited financial statements"
	ansOwnerCollapse   = "Business would likely collapse without me"
	ansOwnerSignif     = "Significant problems - only I know key processes"
	ansOwnerIndep      = "Runs smoothly - documented processes and trained team"
	ansDiffNone        = "No clear differentiation"
	ansDiffPrice       = "We compete mainly on price"
	ansDiffUnique      = "Unique product, brand or proprietary advantage"
	ansTaxCurrent      = "Fully registered and filing on time"
	ansTaxBehind       = "Behind on tax filings or payments"
	ansTaxUnregistered = "Not registered with the tax authority"
)

func riskIDs(risks []CompoundRisk) []string {
	ids := make([]string, 0, len(risks))
	for _, r := range risks {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestDetectRisks_Rules(t *testing.T) {
	catalog := mustDefaultCatalog(t)

	tests := []struct {
		name     string
		answers  Answers
		expected []string
	}{
		{"no answers", Answers{}, []string{}},
		{
			"cash flow via receivables",
			Answers{QCashRunway: ansRunwayUnder15, QReceivablesAging: 40},
			[]string{"cash_flow_crisis"},
		},
		{
			"cash flow via margin",
			Answers{QCashRunway: ansRunway15To30, QProfitMargin: ansMargin5To10},
			[]string{"cash_flow_crisis"},
		},
		{
			"short runway alone is not a compound risk",
			Answers{QCashRunway: ansRunwayUnder15, QReceivablesAging: 30},
			[]string{},
		},
		{
			"concentration with no differentiation",
			Answers{QCustomerConc: 75, QDifferentiation: ansDiffNone},
			[]string{"customer_concentration_trap"},
		},
		{
			"concentration at 60 does not fire",
			Answers{QCustomerConc: 60, QDifferentiation: ansDiffNone},
			[]string{},
		},
		{
			"NaN concentration does not fire",
			Answers{QCustomerConc: "NaN", QDifferentiation: ansDiffPrice},
			[]string{},
		},
		{
			"infinite concentration does not fire",
			Answers{QCustomerConc: "Inf", QDifferentiation: ansDiffNone},
			[]string{},
		},
		{
			"concentration with unique offer does not fire",
			Answers{QCustomerConc: 90, QDifferentiation: ansDiffUnique},
			[]string{},
		},
		{"owner collapse", Answers{QKeyPerson: ansOwnerCollapse}, []string{"owner_dependency_crisis"}},
		{"owner significant problems", Answers{QKeyPerson: ansOwnerSignif}, []string{"owner_dependency_crisis"}},
		{"owner independent", Answers{QKeyPerson: ansOwnerIndep}, []string{}},
		{"tax behind", Answers{QTaxCompliance: ansTaxBehind}, []string{"regulatory_shutdown_risk"}},
		{"tax unregistered by tag", Answers{QTaxCompliance: TagTaxUnregistered}, []string{"regulatory_shutdown_risk"}},
		{"tax current", Answers{QTaxCompliance: ansTaxCurrent}, []string{}},
		{
			"thin margin price competitor",
			Answers{QProfitMargin: ansMarginBelow5, QDifferentiation: ansDiffPrice},
			[]string{"unsustainable_business_model"},
		},
		{
			"sorted by probability",
			Answers{
				QKeyPerson:       ansOwnerCollapse,
				QTaxCompliance:   ansTaxBehind,
				QCashRunway:      ansRunwayUnder15,
				QProfitMargin:    ansMarginBelow5,
				QCustomerConc:    80,
				QDifferentiation: ansDiffPrice,
			},
			[]string{
				"cash_flow_crisis",
				"customer_concentration_trap",
				"regulatory_shutdown_risk",
				"owner_dependency_crisis",
				"unsustainable_business_model",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risks := DetectRisks(NewAnswerView(catalog, tt.answers), DefaultRules())
			assert.Equal(t, tt.expected, riskIDs(risks))
			assert.True(t, sort.SliceIsSorted(risks, func(i, j int) bool {
				return risks[i].Probability > risks[j].Probability
			}))
		})
	}
}

func TestDetectRisks_Factors(t *testing.T) {
	catalog := mustDefaultCatalog(t)
	risks := DetectRisks(NewAnswerView(catalog, Answers{
		QCashRunway:       ansRunwayUnder15,
		QReceivablesAging: 45,
		QProfitMargin:     ansMarginBelow5,
	}), DefaultRules())

	require.Len(t, risks, 1)
	assert.Equal(t, []string{
		"Cash runway under 30 days",
		"Customers take 45 days to pay",
		"Profit margin below 10%",
	}, risks[0].Factors)
	assert.Equal(t, 0.95, risks[0].Probability)
	assert.Equal(t, SeverityCritical, risks[0].Severity)
	assert.NotEmpty(t, risks[0].Mitigations)
}

func TestDetectRisks_TextChangesDoNotBreakRules(t *testing.T) {
	catalog, err := NewCatalog("test", []Question{{
		ID: QTaxCompliance, Type: TypeMultipleChoice, Category: CategoryComplianceRisk, Weight: 1,
		Options: []Option{{Text: "Arrears outstanding", Tag: TagTaxBehind, Score: 10, Risk: OptionRiskCritical}},
	}})
	require.NoError(t, err)

	risks := DetectRisks(NewAnswerView(catalog, Answers{QTaxCompliance: "Arrears outstanding"}), DefaultRules())
	assert.Equal(t, []string{"regulatory_shutdown_risk"}, riskIDs(risks))
}

func TestAnalyzeRisks_Score(t *testing.T) {
	catalog := mustDefaultCatalog(t)

	tests := []struct {
		name     string
		answers  Answers
		expected int
	}{
		{"baseline", Answers{}, 75},
		{"one critical risk", Answers{QTaxCompliance: ansTaxBehind}, 55},                     // 75 - 25*0.80
		{"one high risk", Answers{QKeyPerson: ansOwnerCollapse}, 64},                          // 75 - 15*0.75 = 63.75
		{"diversified revenue bonus", Answers{QCustomerConc: 20}, 87},                         // +12
		{"competitive advantage bonus", Answers{QDifferentiation: ansDiffUnique}, 90},         // +15
		{"governance bonus", Answers{QTaxCompliance: ansTaxCurrent, QFinancialRecords: ansRecordsAudited}, 83},
		{"strong financials bonus", Answers{QCashRunway: ansRunwayOver6, QProfitMargin: ansMarginAbove20}, 85},
		{"clamped at 100", Answers{
			QCashRunway: ansRunwayOver6, QProfitMargin: ansMarginAbove20,
			QCustomerConc: 10, QDifferentiation: ansDiffUnique,
		}, 100},
		{"clamped at 0", Answers{
			QKeyPerson: ansOwnerCollapse, QTaxCompliance: ansTaxUnregistered,
			QCashRunway: ansRunwayUnder15, QProfitMargin: ansMarginBelow5,
			QCustomerConc: 80, QDifferentiation: ansDiffPrice,
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := AnalyzeRisks(NewAnswerView(catalog, tt.answers), DefaultRules(), DefaultBonuses())
			assert.Equal(t, tt.expected, analysis.Score)
		})
	}
}

func TestDefaultRules_Table(t *testing.T) {
	rules := DefaultRules()
	require.Len(t, rules, 5)

	seen := make(map[string]bool)
	for _, r := range rules {
		assert.False(t, seen[r.ID], "duplicate rule %s", r.ID)
		seen[r.ID] = true
		assert.True(t, r.Category.Valid(), r.ID)
		assert.NotNil(t, r.Predicate, r.ID)
		assert.NotEmpty(t, r.Mitigations, r.ID)
		assert.Greater(t, r.Probability, 0.0, r.ID)
		assert.LessOrEqual(t, r.Probability, 1.0, r.ID)
	}

	assert.Equal(t, 4, ruleIndex(rules, "unsustainable_business_model"))
	assert.Equal(t, len(rules), ruleIndex(rules, "missing"))
}

func TestAnalyzeRisks_CustomRuleTable(t *testing.T) {
	rules := []Rule{{
		ID: "no_backups", Name: "No Backups", Category: CategoryOperationalResilience,
		Severity: SeverityMedium, Probability: 0.5, FailureIncrement: 0.05,
		Mitigations: []string{"Back up records weekly"},
		Predicate: func(v AnswerView) Match {
			if v.Has("backup_systems") && !v.Yes("backup_systems") {
				return matched("No off-site backups")
			}
			return noMatch
		},
	}}

	analysis := AnalyzeRisks(NewAnswerView(mustDefaultCatalog(t), Answers{"backup_systems": "no"}), rules, nil)
	require.Len(t, analysis.Risks, 1)
	assert.Equal(t, 71, analysis.Score) // 75 - 8*0.5
}
