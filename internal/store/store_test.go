// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarbonMon/CLARA/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecords() []*types.Record {
	return []*types.Record{
		{Title: "First paper", PMID: "111", TypeOfStudy: "RCT", AnalysisSource: "Abstract"},
		{Title: "Second paper", PMID: "222", AnalysisSource: "Full Text (PMC)"},
		{Title: "Error analyzing paper", PMID: "333", Error: "connection reset", AnalysisSource: "Failed"},
	}
}

func TestSaveAndReadJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 4, 2, 10, 30, 0, 0, time.UTC)
	j := Job{ID: NewJobID(now), Query: "metformin", Source: "pubmed", CreatedAt: now}
	require.NoError(t, s.SaveJob(ctx, j, sampleRecords()))

	jobs, err := s.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-20260402-103000", jobs[0].ID)
	assert.Equal(t, "metformin", jobs[0].Query)
	assert.Equal(t, 3, jobs[0].ResultCount)
	assert.True(t, jobs[0].CreatedAt.Equal(now))

	records, err := s.JobResults(ctx, j.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "First paper", records[0].Title)
	assert.Equal(t, "RCT", records[0].TypeOfStudy)
	assert.Equal(t, "Second paper", records[1].Title)
	assert.Equal(t, "connection reset", records[2].Error)
}

func TestSaveJobReplacesResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	j := Job{ID: "job-x", CreatedAt: now}
	require.NoError(t, s.SaveJob(ctx, j, sampleRecords()))
	require.NoError(t, s.SaveJob(ctx, j, sampleRecords()[:1]))

	records, err := s.JobResults(ctx, "job-x")
	require.NoError(t, err)
	assert.Len(t, records, 1, "re-saving a job must replace its results, not append")
}

func TestListJobsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	require.NoError(t, s.SaveJob(ctx, Job{ID: "job-old", CreatedAt: older}, nil))
	require.NoError(t, s.SaveJob(ctx, Job{ID: "job-new", CreatedAt: newer}, nil))

	jobs, err := s.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-new", jobs[0].ID)
	assert.Equal(t, "job-old", jobs[1].ID)

	latest, err := s.LatestJobID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-new", latest)
}

func TestLatestJobIDEmpty(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LatestJobID(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestResultsYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job-1.yaml")
	j := Job{ID: "job-1", Query: "aspirin"}
	want := sampleRecords()

	require.NoError(t, WriteResultsYAML(path, j, want))

	got, err := ReadResultsYAML(path)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.Equal(t, want[i].PMID, got[i].PMID)
		assert.Equal(t, want[i].Error, got[i].Error)
		assert.Equal(t, want[i].AnalysisSource, got[i].AnalysisSource)
	}
}

func TestReadResultsYAMLMissingFile(t *testing.T) {
	_, err := ReadResultsYAML(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
