// Package health maps model outputs to operator-facing maintenance
// advisories. The thresholds are exact boundary values and the single piece
// of branching policy in the system, so they live here and nowhere else.
package health

// Verdict is the binary machine-health state from the failure classifier.
type Verdict int

const (
	Healthy Verdict = iota
	HighRisk
)

// VerdictForClass maps the classifier's discrete output: class 0 is healthy,
// anything else is high risk.
func VerdictForClass(class int) Verdict {
	if class == 0 {
		return Healthy
	}
	return HighRisk
}

func (v Verdict) String() string {
	if v == Healthy {
		return "Healthy"
	}
	return "High Risk"
}

// Advisory returns the operator guidance for the verdict.
func (v Verdict) Advisory() string {
	if v == Healthy {
		return "No immediate maintenance required."
	}
	return "High risk of failure. Immediate maintenance required."
}

// Severity returns the display bucket: "ok" or "error".
func (v Verdict) Severity() string {
	if v == Healthy {
		return "ok"
	}
	return "error"
}

// Tier grades a remaining-useful-life estimate.
type Tier int

const (
	Sufficient Tier = iota
	Preventive
	Critical
)

// Advisory boundaries in operating hours. Both comparisons are strict:
// exactly 1000 hours is preventive, exactly 300 hours is critical.
const (
	SufficientAbove = 1000.0
	PreventiveAbove = 300.0
)

// TierForRUL grades the estimate: strictly above 1000 hours is sufficient,
// strictly above 300 is preventive, everything else is critical.
func TierForRUL(rul float64) Tier {
	switch {
	case rul > SufficientAbove:
		return Sufficient
	case rul > PreventiveAbove:
		return Preventive
	default:
		return Critical
	}
}

func (t Tier) String() string {
	switch t {
	case Sufficient:
		return "sufficient"
	case Preventive:
		return "preventive"
	default:
		return "critical"
	}
}

// Advisory returns the operator guidance for the tier.
func (t Tier) Advisory() string {
	switch t {
	case Sufficient:
		return "Machine has sufficient remaining life."
	case Preventive:
		return "Preventive maintenance recommended soon."
	default:
		return "Remaining useful life critically low."
	}
}

// Severity returns the display bucket: "info", "warning" or "error".
func (t Tier) Severity() string {
	switch t {
	case Sufficient:
		return "info"
	case Preventive:
		return "warning"
	default:
		return "error"
	}
}
