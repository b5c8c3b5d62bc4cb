package memory

// PressureTier classifies memory usage relative to the budget.
// Tiers are totally ordered: comparisons with < and > are meaningful.
type PressureTier int

// Pressure tiers, from relaxed to exhausted.
const (
	TierLow PressureTier = iota
	TierMedium
	TierHigh
	TierCritical
)

// String returns the lowercase tier name.
func (t PressureTier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Thresholds holds the ascending usage-ratio cut points separating tiers.
// A ratio below Medium is TierLow; at or above Critical is TierCritical.
type Thresholds struct {
	Medium   float64
	High     float64
	Critical float64
}

// DefaultThresholds are the default pressure cut points. Empirically chosen
// configuration defaults, not derived values.
var DefaultThresholds = Thresholds{Medium: 0.70, High: 0.80, Critical: 0.90}

// Classify maps a usage ratio (resident / budget) to a pressure tier.
func (th Thresholds) Classify(ratio float64) PressureTier {
	switch {
	case ratio >= th.Critical:
		return TierCritical
	case ratio >= th.High:
		return TierHigh
	case ratio >= th.Medium:
		return TierMedium
	default:
		return TierLow
	}
}

// Valid reports whether the thresholds are ascending and within (0, 1].
func (th Thresholds) Valid() bool {
	return th.Medium > 0 && th.Medium < th.High && th.High < th.Critical && th.Critical <= 1
}
