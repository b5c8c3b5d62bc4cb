package memory

import "github.com/Sumatoshi-tech/textfang/pkg/units"

// Budget tiering: larger machines donate a larger share of their memory.
// Empirically chosen configuration defaults.
const (
	smallSystemBytes  = 8 * units.GiB
	mediumSystemBytes = 16 * units.GiB
	largeSystemBytes  = 32 * units.GiB

	smallSystemPercent  = 20
	mediumSystemPercent = 25
	largeSystemPercent  = 30
	hugeSystemPercent   = 40

	percentDivisor = 100

	// fallbackBudgetBytes is used when system memory cannot be detected.
	fallbackBudgetBytes = 2 * units.GiB
)

// BudgetForSystem derives a memory budget from total system memory as a
// tiered percentage: 20% up to 8 GiB, 25% up to 16 GiB, 30% up to 32 GiB,
// 40% above.
func BudgetForSystem(totalBytes int64) int64 {
	if totalBytes <= 0 {
		return fallbackBudgetBytes
	}

	var percent int64

	switch {
	case totalBytes <= smallSystemBytes:
		percent = smallSystemPercent
	case totalBytes <= mediumSystemBytes:
		percent = mediumSystemPercent
	case totalBytes <= largeSystemBytes:
		percent = largeSystemPercent
	default:
		percent = hugeSystemPercent
	}

	return totalBytes * percent / percentDivisor
}

// DetectBudget probes total system memory and derives a budget from it.
// When the probe fails, the fallback budget is returned.
func DetectBudget(probe Probe) int64 {
	total, err := probe.TotalSystemBytes()
	if err != nil {
		return fallbackBudgetBytes
	}

	return BudgetForSystem(total)
}
