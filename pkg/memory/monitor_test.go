package memory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/textfang/pkg/memory"
	"github.com/Sumatoshi-tech/textfang/pkg/units"
)

var errProbe = errors.New("probe unavailable")

// fakeProbe replays scripted resident readings.
type fakeProbe struct {
	readings []int64
	total    int64
	idx      int
	fail     bool
}

func (p *fakeProbe) ProcessMemory() (memory.ProcessMemory, error) {
	if p.fail {
		return memory.ProcessMemory{}, errProbe
	}

	reading := p.readings[min(p.idx, len(p.readings)-1)]
	p.idx++

	return memory.ProcessMemory{ResidentBytes: reading, VirtualBytes: reading * 2}, nil
}

func (p *fakeProbe) TotalSystemBytes() (int64, error) {
	if p.fail || p.total <= 0 {
		return 0, errProbe
	}

	return p.total, nil
}

func newMonitor(t *testing.T, probe memory.Probe, budget int64) *memory.Monitor {
	t.Helper()

	return memory.NewMonitor(memory.MonitorConfig{Probe: probe, BudgetBytes: budget})
}

func TestThresholdsClassify(t *testing.T) {
	t.Parallel()

	th := memory.DefaultThresholds

	tests := []struct {
		name  string
		ratio float64
		want  memory.PressureTier
	}{
		{"zero usage", 0.0, memory.TierLow},
		{"just below medium", 0.69, memory.TierLow},
		{"at medium", 0.70, memory.TierMedium},
		{"at high", 0.80, memory.TierHigh},
		{"at critical", 0.90, memory.TierCritical},
		{"over budget", 1.5, memory.TierCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, th.Classify(tt.ratio))
		})
	}
}

func TestTierOrdering(t *testing.T) {
	t.Parallel()

	assert.Less(t, memory.TierLow, memory.TierMedium)
	assert.Less(t, memory.TierMedium, memory.TierHigh)
	assert.Less(t, memory.TierHigh, memory.TierCritical)
}

func TestBudgetForSystem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		total int64
		want  int64
	}{
		{"8 GiB machine gives 20%", 8 * units.GiB, 8 * units.GiB / 5},
		{"16 GiB machine gives 25%", 16 * units.GiB, 4 * units.GiB},
		{"32 GiB machine gives 30%", 32 * units.GiB, 32 * units.GiB * 30 / 100},
		{"64 GiB machine gives 40%", 64 * units.GiB, 64 * units.GiB * 40 / 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, memory.BudgetForSystem(tt.total))
		})
	}
}

func TestBudgetForSystemUnknownFallsBack(t *testing.T) {
	t.Parallel()

	assert.Positive(t, memory.BudgetForSystem(0))
	assert.Positive(t, memory.BudgetForSystem(-1))
}

func TestMonitorAutoBudget(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{readings: []int64{0}, total: 16 * units.GiB}
	mon := memory.NewMonitor(memory.MonitorConfig{Probe: probe})

	assert.Equal(t, int64(4*units.GiB), mon.Budget())
}

func TestMonitorSampleClassifies(t *testing.T) {
	t.Parallel()

	budget := int64(1000)
	probe := &fakeProbe{readings: []int64{500, 750, 850, 950}}
	mon := newMonitor(t, probe, budget)

	wantTiers := []memory.PressureTier{
		memory.TierLow, memory.TierMedium, memory.TierHigh, memory.TierCritical,
	}

	for _, want := range wantTiers {
		s := mon.Sample()
		assert.Equal(t, want, s.Tier)
	}

	assert.Equal(t, int64(950), mon.PeakResident())
}

func TestMonitorHistoryBounded(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{readings: []int64{100}}
	mon := memory.NewMonitor(memory.MonitorConfig{Probe: probe, BudgetBytes: 1000, HistoryCap: 4})

	for range 10 {
		mon.Sample()
	}

	assert.Len(t, mon.History(), 4)
}

func TestMonitorTrend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		readings []int64
		want     memory.Trend
	}{
		{"increasing", []int64{100, 200, 300, 400, 500}, memory.TrendIncreasing},
		{"decreasing", []int64{500, 400, 300, 200, 100}, memory.TrendDecreasing},
		{"flat", []int64{300, 300, 300, 300, 300}, memory.TrendStable},
		{"oscillating", []int64{100, 500, 100, 500, 100}, memory.TrendStable},
		{"plateaued rise", []int64{100, 100, 200, 200, 300}, memory.TrendIncreasing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mon := newMonitor(t, &fakeProbe{readings: tt.readings}, 1000)

			for range len(tt.readings) {
				mon.Sample()
			}

			assert.Equal(t, tt.want, mon.Trend())
		})
	}
}

func TestMonitorTrendInsufficientData(t *testing.T) {
	t.Parallel()

	mon := newMonitor(t, &fakeProbe{readings: []int64{100}}, 1000)

	for range 4 {
		mon.Sample()
	}

	assert.Equal(t, memory.TrendInsufficientData, mon.Trend())
}

func TestMonitorProbeFailureFailsOpen(t *testing.T) {
	t.Parallel()

	mon := newMonitor(t, &fakeProbe{fail: true}, 1000)

	s := mon.Sample()

	assert.Equal(t, memory.TierLow, s.Tier)
	assert.Zero(t, s.ResidentBytes)
	assert.Equal(t, memory.TierLow, mon.Tier())
}

func TestMonitorShouldCollectGarbage(t *testing.T) {
	t.Parallel()

	mon := newMonitor(t, &fakeProbe{readings: []int64{800}}, 1000)

	assert.True(t, mon.ShouldCollectGarbage(memory.DefaultGCThreshold))
	assert.False(t, mon.ShouldCollectGarbage(0.9))
}

func TestMonitorCollectGarbageNeverFails(t *testing.T) {
	t.Parallel()

	mon := newMonitor(t, &fakeProbe{readings: []int64{100}}, 1000)

	result := mon.CollectGarbage()

	require.Positive(t, result.Passes)
	assert.LessOrEqual(t, result.Passes, 3)
	assert.GreaterOrEqual(t, result.FreedBytes, int64(0))
}
