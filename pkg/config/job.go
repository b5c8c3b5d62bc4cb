package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrJobInvalid marks a job file that fails schema validation.
var ErrJobInvalid = errors.New("job file failed validation")

// jobSchema is the JSON schema every job file must satisfy.
const jobSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "textfang job",
  "type": "object",
  "required": ["input", "min_n", "max_n"],
  "additionalProperties": false,
  "properties": {
    "input": {"type": "string", "minLength": 1},
    "min_n": {"type": "integer", "minimum": 1},
    "max_n": {"type": "integer", "minimum": 1},
    "strategy": {"enum": ["", "direct", "chunked", "disk_spill"]},
    "dedup": {"enum": ["", "in_memory", "external_sort"]},
    "output": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "pairs": {"type": "string"},
        "dictionary": {"type": "string"},
        "frequencies": {"type": "string"}
      }
    }
  }
}`

// JobOutput names the result files a job writes. Empty paths skip that
// output.
type JobOutput struct {
	Pairs       string `json:"pairs"`
	Dictionary  string `json:"dictionary"`
	Frequencies string `json:"frequencies"`
}

// Job describes one batch run: where the corpus lives, which n-gram range
// to extract, and where the results go.
type Job struct {
	Input    string    `json:"input"`
	MinN     int       `json:"min_n"`
	MaxN     int       `json:"max_n"`
	Strategy string    `json:"strategy"`
	Dedup    string    `json:"dedup"`
	Output   JobOutput `json:"output"`
}

// LoadJob reads and validates a JSON job file against the job schema.
func LoadJob(path string) (*Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	if err := ValidateJob(raw); err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job file: %w", err)
	}

	if job.MaxN < job.MinN {
		return nil, fmt.Errorf("%w: max_n %d below min_n %d", ErrJobInvalid, job.MaxN, job.MinN)
	}

	return &job, nil
}

// ValidateJob checks raw JSON against the job schema, returning every
// violation in one error.
func ValidateJob(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(jobSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("job schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	var b strings.Builder
	for _, verr := range result.Errors() {
		fmt.Fprintf(&b, "\n  - %s: %s", verr.Field(), verr.Description())
	}

	return fmt.Errorf("%w:%s", ErrJobInvalid, b.String())
}
