package assessment

import "fmt"

// Question ids and option tags the default rules read.
const (
	QCashRunway         = "cash_runway_days"
	QReceivablesAging   = "receivables_aging"
	QProfitMargin       = "profit_margin_reality"
	QFinancialRecords   = "financial_records"
	QKeyPerson          = "key_person_dependency"
	QDigitalPayments    = "digital_payment_adoption"
	QCustomerConc       = "customer_concentration"
	QDifferentiation    = "competitive_differentiation"
	QTaxCompliance      = "tax_compliance"
	TagRunwayUnder15    = "runway_under_15_days"
	TagRunway15To30     = "runway_15_30_days"
	TagRunway3To6Months = "runway_3_6_months"
	TagRunwayOver6      = "runway_over_6_months"
	TagMarginBelow5     = "margin_below_5"
	TagMargin5To10      = "margin_5_10"
	TagMargin10To20     = "margin_10_20"
	TagMarginAbove20    = "margin_above_20"
	TagRecordsAudited   = "records_audited"
	TagRecordsBooks     = "records_bookkeeping"
	TagOwnerCollapse    = "owner_collapse"
	TagOwnerSignificant = "owner_significant_problems"
	TagDiffNone         = "differentiation_none"
	TagDiffPriceOnly    = "differentiation_price_only"
	TagDiffUnique       = "differentiation_unique"
	TagTaxCurrent       = "tax_current"
	TagTaxBehind        = "tax_behind"
	TagTaxUnregistered  = "tax_unregistered"
)

// Match is the result of evaluating a rule predicate: whether it fired and
// the human-readable factors that made it fire.
type Match struct {
	Matched bool
	Factors []string
}

func matched(factors ...string) Match { return Match{Matched: true, Factors: factors} }

var noMatch = Match{}

// Rule is one catalogued compound-risk pattern.
type Rule struct {
	ID          string
	Name        string
	Category    Category
	Severity    Severity
	Probability float64
	// FailureIncrement is added to the baseline failure probability when the
	// rule fires. It is independent of Probability.
	FailureIncrement float64
	Impact           string
	Mitigations      []string
	Predicate        func(AnswerView) Match
}

// Bonus is a positive pattern that raises the risk-adjusted score and is
// reported as a survival factor.
type Bonus struct {
	ID             string
	Points         float64
	SurvivalFactor string
	Predicate      func(AnswerView) bool
}

// severityWeights are the score penalties per unit of probability.
var severityWeights = map[Severity]float64{
	SeverityCritical: 25,
	SeverityHigh:     15,
	SeverityMedium:   8,
}

func runwayUnder30Days(v AnswerView) bool {
	return v.TagIn(QCashRunway, TagRunwayUnder15, TagRunway15To30)
}

func marginUnder10(v AnswerView) bool {
	return v.TagIn(QProfitMargin, TagMarginBelow5, TagMargin5To10)
}

// DefaultRules returns the compound-risk catalog in its fixed order. The
// position of a rule is its catalog index for issue tie-breaking.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:               "cash_flow_crisis",
			Name:             "Cash Flow Crisis",
			Category:         CategoryFinancialHealth,
			Severity:         SeverityCritical,
			Probability:      0.95,
			FailureIncrement: 0.40,
			Impact:           "Less than a month of cash combined with slow collections or thin margins usually ends in missed payroll within 90 days.",
			Mitigations: []string{
				"Negotiate extended payment terms with your top three suppliers this week",
				"Offer early-payment discounts to customers with outstanding invoices",
				"Arrange an emergency working-capital facility before cash runs out",
			},
			Predicate: func(v AnswerView) Match {
				if !runwayUnder30Days(v) {
					return noMatch
				}
				factors := []string{"Cash runway under 30 days"}
				hit := false
				if days, ok := v.Number(QReceivablesAging); ok && days > 30 {
					factors = append(factors, fmt.Sprintf("Customers take %s days to pay", answerString(days)))
					hit = true
				}
				if marginUnder10(v) {
					factors = append(factors, "Profit margin below 10%")
					hit = true
				}
				if !hit {
					return noMatch
				}
				return matched(factors...)
			},
		},
		{
			ID:               "customer_concentration_trap",
			Name:             "Customer Concentration Trap",
			Category:         CategoryMarketPosition,
			Severity:         SeverityCritical,
			Probability:      0.85,
			FailureIncrement: 0.30,
			Impact:           "Losing the dominant customer would remove most revenue, and without differentiation there is no quick way to replace it.",
			Mitigations: []string{
				"Sign a written contract with your largest customer covering at least 12 months",
				"Launch a targeted acquisition campaign to win five new mid-size customers",
				"Define one service or quality advantage competitors cannot match on price",
			},
			Predicate: func(v AnswerView) Match {
				share, ok := v.Number(QCustomerConc)
				if !(ok && share > 60) {
					return noMatch
				}
				if !v.TagIn(QDifferentiation, TagDiffNone, TagDiffPriceOnly) {
					return noMatch
				}
				return matched(
					fmt.Sprintf("Largest customer accounts for %s%% of revenue", answerString(share)),
					"No differentiation beyond price",
				)
			},
		},
		{
			ID:               "owner_dependency_crisis",
			Name:             "Owner Dependency Crisis",
			Category:         CategoryOperationalResilience,
			Severity:         SeverityHigh,
			Probability:      0.75,
			FailureIncrement: 0.20,
			Impact:           "Illness or absence of the owner would halt operations and the business has little value to a buyer or investor.",
			Mitigations: []string{
				"Write down the ten most important recurring processes",
				"Train a second person to handle sales, purchasing and payments",
				"Set up shared access to bank accounts and key systems with proper controls",
			},
			Predicate: func(v AnswerView) Match {
				switch v.Tag(QKeyPerson) {
				case TagOwnerCollapse:
					return matched("Business would likely collapse without the owner")
				case TagOwnerSignificant:
					return matched("Only the owner knows key processes")
				}
				return noMatch
			},
		},
		{
			ID:               "regulatory_shutdown_risk",
			Name:             "Regulatory Shutdown Risk",
			Category:         CategoryComplianceRisk,
			Severity:         SeverityCritical,
			Probability:      0.80,
			FailureIncrement: 0.35,
			Impact:           "Tax arrears or missing registration expose the business to penalties, frozen accounts and forced closure.",
			Mitigations: []string{
				"Register with the tax authority or file all outstanding returns",
				"Agree a written repayment plan for any tax arrears",
				"Set aside a fixed percentage of every sale for tax in a separate account",
			},
			Predicate: func(v AnswerView) Match {
				switch v.Tag(QTaxCompliance) {
				case TagTaxBehind:
					return matched("Behind on tax filings or payments")
				case TagTaxUnregistered:
					return matched("Not registered with the tax authority")
				}
				return noMatch
			},
		},
		{
			ID:               "unsustainable_business_model",
			Name:             "Unsustainable Business Model",
			Category:         CategoryMarketPosition,
			Severity:         SeverityHigh,
			Probability:      0.70,
			FailureIncrement: 0.25,
			Impact:           "Competing on price with margins under 10% leaves no buffer for cost increases or investment.",
			Mitigations: []string{
				"Review pricing and raise prices on the least price-sensitive products",
				"Cut or renegotiate the three largest cost lines",
				"Bundle services to compete on value instead of price",
			},
			Predicate: func(v AnswerView) Match {
				if !marginUnder10(v) || !v.TagIn(QDifferentiation, TagDiffPriceOnly) {
					return noMatch
				}
				return matched("Profit margin below 10%", "Competing on price only")
			},
		},
	}
}

// DefaultBonuses returns the positive patterns in report order.
func DefaultBonuses() []Bonus {
	return []Bonus{
		{
			ID:             "strong_financials",
			Points:         10,
			SurvivalFactor: "Strong cash reserves and healthy profit margins",
			Predicate: func(v AnswerView) bool {
				return v.TagIn(QCashRunway, TagRunway3To6Months, TagRunwayOver6) &&
					v.TagIn(QProfitMargin, TagMargin10To20, TagMarginAbove20)
			},
		},
		{
			ID:             "good_governance",
			Points:         8,
			SurvivalFactor: "Up-to-date tax compliance and reliable financial records",
			Predicate: func(v AnswerView) bool {
				return v.TagIn(QTaxCompliance, TagTaxCurrent) &&
					v.TagIn(QFinancialRecords, TagRecordsAudited, TagRecordsBooks)
			},
		},
		{
			ID:             "diversified_revenue",
			Points:         12,
			SurvivalFactor: "Diversified revenue with no customer above 40% of sales",
			Predicate: func(v AnswerView) bool {
				share, ok := v.Number(QCustomerConc)
				return ok && share < 40
			},
		},
		{
			ID:             "competitive_advantage",
			Points:         15,
			SurvivalFactor: "A clear competitive advantage beyond price",
			Predicate: func(v AnswerView) bool {
				return v.TagIn(QDifferentiation, TagDiffUnique)
			},
		},
	}
}

// digitalPaymentsFactor only contributes a survival factor, not score points.
var digitalPaymentsFactor = Bonus{
	ID:             "digital_payments",
	SurvivalFactor: "More than half of sales collected through digital payments",
	Predicate: func(v AnswerView) bool {
		share, ok := v.Number(QDigitalPayments)
		return ok && share > 50
	},
}
