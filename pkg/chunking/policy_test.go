package chunking_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/textfang/pkg/chunking"
	"github.com/Sumatoshi-tech/textfang/pkg/memory"
)

var allTiers = []memory.PressureTier{
	memory.TierLow, memory.TierMedium, memory.TierHigh, memory.TierCritical,
}

var allOps = []chunking.Operation{
	chunking.OpDefault, chunking.OpNgramGeneration, chunking.OpUniqueExtraction,
}

func TestEffectiveSizeTierScaling(t *testing.T) {
	t.Parallel()

	const base = 100000

	tests := []struct {
		name string
		tier memory.PressureTier
		want int
	}{
		{"low keeps base", memory.TierLow, 100000},
		{"medium scales to 0.8", memory.TierMedium, 80000},
		{"high scales to 0.6", memory.TierHigh, 60000},
		{"critical scales to 0.4", memory.TierCritical, 40000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, chunking.EffectiveSize(base, chunking.OpDefault, tt.tier))
		})
	}
}

func TestEffectiveSizeOperationScaling(t *testing.T) {
	t.Parallel()

	const base = 100000

	gen := chunking.EffectiveSize(base, chunking.OpNgramGeneration, memory.TierLow)
	ext := chunking.EffectiveSize(base, chunking.OpUniqueExtraction, memory.TierLow)

	assert.Equal(t, 60000, gen)
	assert.Equal(t, 120000, ext)
}

func TestEffectiveSizeFloor(t *testing.T) {
	t.Parallel()

	// 0.4 * 0.6 * 2000 = 480, below max(1000, 200).
	got := chunking.EffectiveSize(2000, chunking.OpNgramGeneration, memory.TierCritical)
	assert.Equal(t, 1000, got)

	// Large base: floor is base/10, not the absolute minimum.
	got = chunking.EffectiveSize(1_000_000, chunking.OpNgramGeneration, memory.TierCritical)
	assert.GreaterOrEqual(t, got, 100_000)
}

func TestEffectiveSizeInvalidBase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, chunking.MinFloor, chunking.EffectiveSize(0, chunking.OpDefault, memory.TierLow))
	assert.Equal(t, chunking.MinFloor, chunking.EffectiveSize(-5, chunking.OpDefault, memory.TierLow))
}

// EffectiveSize must be non-increasing across tier escalation and never
// drop below the floor, for any base and operation.
func TestEffectiveSizeMonotonicBounds(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))

	for range 500 {
		base := rng.Intn(5_000_000) + 1

		for _, op := range allOps {
			prev := chunking.EffectiveSize(base, op, memory.TierLow)

			for _, tier := range allTiers {
				size := chunking.EffectiveSize(base, op, tier)

				assert.LessOrEqual(t, size, prev, "base=%d op=%s tier=%s", base, op, tier)
				assert.GreaterOrEqual(t, size, chunking.Floor(base), "base=%d op=%s tier=%s", base, op, tier)

				prev = size
			}
		}
	}
}
