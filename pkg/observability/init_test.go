package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/textfang/pkg/observability"
)

func TestInit_NoEndpointUsesNoopProviders(t *testing.T) {
	cfg := observability.DefaultConfig()

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	require.NotNil(t, providers.Shutdown)

	// No-op providers shut down without flushing anything.
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_LoggerCarriesServiceMetadata(t *testing.T) {
	cfg := observability.DefaultConfig()
	cfg.ServiceName = "textfang-test"
	cfg.LogJSON = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	assert.NotNil(t, providers.Logger)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "textfang", cfg.ServiceName)
	assert.Equal(t, observability.ModeCLI, cfg.Mode)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.Positive(t, cfg.ShutdownTimeoutSec)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single pair", raw: "a=1", want: map[string]string{"a": "1"}},
		{
			name: "multiple pairs with spaces",
			raw:  "a=1, b = 2",
			want: map[string]string{"a": "1", "b": "2"},
		},
		{name: "invalid pairs dropped", raw: "noequals", want: nil},
		{
			name: "mixed valid and invalid",
			raw:  "a=1,broken",
			want: map[string]string{"a": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.raw))
		})
	}
}
