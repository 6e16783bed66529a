package assessment

const (
	failureBaseline = 0.15
	failureCeiling  = 0.95

	threeMonthMultiplier  = 1.5
	sixMonthMultiplier    = 1.2
	twelveMonthMultiplier = 1.0
)

const (
	RecoveryAggressive = "12-18 months with aggressive intervention"
	RecoveryFocused    = "8-12 months with focused improvements"
	RecoveryModerate   = "6-9 months with moderate changes"
	RecoveryMinor      = "3-6 months with minor adjustments"
)

// PredictFailure estimates the probability of business failure over three
// horizons from the detected risks, and lists survival factors and the
// interventions that address critical risks.
//
// The rule increments are fixed per rule and do not depend on the
// probability attached to the detected risk.
func PredictFailure(view AnswerView, risks []CompoundRisk, rules []Rule, bonuses []Bonus) PredictiveAnalytics {
	increments := make(map[string]float64, len(rules))
	for _, r := range rules {
		increments[r.ID] = r.FailureIncrement
	}

	base := failureBaseline
	for _, r := range risks {
		base += increments[r.ID]
	}

	six := horizon(base, sixMonthMultiplier)
	return PredictiveAnalytics{
		ThreeMonthFailure:     horizon(base, threeMonthMultiplier),
		SixMonthFailure:       six,
		TwelveMonthFailure:    horizon(base, twelveMonthMultiplier),
		SurvivalFactors:       survivalFactors(view, bonuses),
		CriticalInterventions: criticalInterventions(risks),
		RecoveryTime:          RecoveryEstimate(six),
	}
}

func horizon(base, multiplier float64) float64 {
	p := base * multiplier
	if p > failureCeiling {
		p = failureCeiling
	}
	if p < 0 {
		p = 0
	}
	return roundTo(p, 2)
}

// RecoveryEstimate maps a six-month failure probability to a recovery time.
func RecoveryEstimate(sixMonth float64) string {
	switch {
	case sixMonth > 0.8:
		return RecoveryAggressive
	case sixMonth > 0.6:
		return RecoveryFocused
	case sixMonth > 0.4:
		return RecoveryModerate
	default:
		return RecoveryMinor
	}
}

func survivalFactors(view AnswerView, bonuses []Bonus) []string {
	factors := []string{}
	seen := make(map[string]bool)
	all := append(append([]Bonus(nil), bonuses...), digitalPaymentsFactor)
	for _, b := range all {
		if b.Predicate == nil || b.SurvivalFactor == "" || seen[b.SurvivalFactor] {
			continue
		}
		if b.Predicate(view) {
			factors = append(factors, b.SurvivalFactor)
			seen[b.SurvivalFactor] = true
		}
	}
	return factors
}

func criticalInterventions(risks []CompoundRisk) []string {
	actions := []string{}
	seen := make(map[string]bool)
	for _, r := range risks {
		if r.Severity != SeverityCritical {
			continue
		}
		for _, m := range r.Mitigations {
			if seen[m] {
				continue
			}
			seen[m] = true
			actions = append(actions, m)
		}
	}
	return actions
}
