package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/textfang/pkg/config"
)

func TestLoadJob(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "job.json", `{
		"input": "corpus.tbl",
		"min_n": 1,
		"max_n": 3,
		"strategy": "chunked",
		"output": {"pairs": "pairs.tbl", "frequencies": "freq.tbl"}
	}`)

	job, err := config.LoadJob(path)
	require.NoError(t, err)

	assert.Equal(t, "corpus.tbl", job.Input)
	assert.Equal(t, 1, job.MinN)
	assert.Equal(t, 3, job.MaxN)
	assert.Equal(t, "chunked", job.Strategy)
	assert.Equal(t, "pairs.tbl", job.Output.Pairs)
	assert.Empty(t, job.Output.Dictionary)
}

func TestLoadJobRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "missing input", content: `{"min_n": 1, "max_n": 2}`},
		{name: "empty input", content: `{"input": "", "min_n": 1, "max_n": 2}`},
		{name: "zero min_n", content: `{"input": "c.tbl", "min_n": 0, "max_n": 2}`},
		{name: "unknown strategy", content: `{"input": "c.tbl", "min_n": 1, "max_n": 2, "strategy": "warp"}`},
		{name: "unknown field", content: `{"input": "c.tbl", "min_n": 1, "max_n": 2, "shards": 4}`},
		{name: "inverted range", content: `{"input": "c.tbl", "min_n": 3, "max_n": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadJob(writeFile(t, "job.json", tt.content))
			require.ErrorIs(t, err, config.ErrJobInvalid)
		})
	}
}

func TestLoadJobMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadJob("/nonexistent/job.json")
	require.Error(t, err)
}
