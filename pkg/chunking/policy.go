// Package chunking provides the pure chunk-size policy that scales the unit
// of work with memory pressure and operation cost.
package chunking

import (
	"math"

	"github.com/Sumatoshi-tech/textfang/pkg/memory"
)

// Operation identifies the kind of work a chunk performs. Costlier
// operations get smaller chunks for the same base size.
type Operation int

// Operations known to the policy.
const (
	OpDefault Operation = iota
	OpNgramGeneration
	OpUniqueExtraction
)

// String returns the snake_case operation name.
func (op Operation) String() string {
	switch op {
	case OpNgramGeneration:
		return "ngram_generation"
	case OpUniqueExtraction:
		return "unique_extraction"
	default:
		return "default"
	}
}

// Tier scale factors. Each escalation shaves the chunk down further.
const (
	tierFactorLow      = 1.0
	tierFactorMedium   = 0.8
	tierFactorHigh     = 0.6
	tierFactorCritical = 0.4
)

// Operation scale factors: n-gram generation multiplies rows into pairs and
// is costlier per input row; unique extraction only copies strings.
const (
	opFactorGeneration = 0.6
	opFactorExtraction = 1.2
	opFactorDefault    = 1.0
)

// MinFloor is the absolute minimum chunk size the policy will return.
const MinFloor = 1000

// floorDivisor caps how far below the base size the floor can sink.
const floorDivisor = 10

// EffectiveSize returns the chunk size for the given base size, operation,
// and pressure tier: base * tierFactor * opFactor, floored at
// max(MinFloor, base/10). Pure; non-increasing as tiers escalate.
func EffectiveSize(base int, op Operation, tier memory.PressureTier) int {
	if base <= 0 {
		return MinFloor
	}

	size := int(math.Round(float64(base) * tierFactor(tier) * opFactor(op)))

	return max(size, Floor(base))
}

// Floor returns the lower bound EffectiveSize enforces for a base size.
func Floor(base int) int {
	return max(MinFloor, base/floorDivisor)
}

func tierFactor(tier memory.PressureTier) float64 {
	switch tier {
	case memory.TierMedium:
		return tierFactorMedium
	case memory.TierHigh:
		return tierFactorHigh
	case memory.TierCritical:
		return tierFactorCritical
	default:
		return tierFactorLow
	}
}

func opFactor(op Operation) float64 {
	switch op {
	case OpNgramGeneration:
		return opFactorGeneration
	case OpUniqueExtraction:
		return opFactorExtraction
	default:
		return opFactorDefault
	}
}
