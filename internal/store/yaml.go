// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/CarbonMon/CLARA/pkg/types"
)

// resultsFile is the YAML document written next to the database for each
// job, readable without SQLite tooling.
type resultsFile struct {
	JobID   string          `yaml:"job_id"`
	Query   string          `yaml:"query,omitempty"`
	Records []*types.Record `yaml:"records"`
}

// WriteResultsYAML writes a job's records to path as YAML.
func WriteResultsYAML(path string, job Job, records []*types.Record) error {
	data, err := yaml.Marshal(resultsFile{
		JobID:   job.ID,
		Query:   job.Query,
		Records: records,
	})
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadResultsYAML reads records back from a YAML file written by
// WriteResultsYAML.
func ReadResultsYAML(path string) ([]*types.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading results file %s: %w", path, err)
	}
	var f resultsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing results file %s: %w", path, err)
	}
	return f.Records, nil
}
