// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldSetFieldRoundTrip(t *testing.T) {
	r := &Record{}
	for i, name := range RecordFields {
		r.SetField(name, name+"-value")
		assert.Equal(t, name+"-value", r.Field(name), "field %d (%s)", i, name)
	}
}

func TestFieldUnknownName(t *testing.T) {
	r := &Record{Title: "T"}
	assert.Empty(t, r.Field("Nonexistent Column"))

	// Unknown names are ignored on write too.
	r.SetField("Nonexistent Column", "x")
	assert.Equal(t, "T", r.Title)
}

func TestRecordFromMap(t *testing.T) {
	m := map[string]any{
		"Title":                      "A trial",
		"PMID":                       json.Number("12345"),
		"Number of Subjects Studied": json.Number("240"),
		"Results Available":          true,
		"Control":                    nil,
		"Unknown Key":                "dropped",
	}

	r := RecordFromMap(m)
	assert.Equal(t, "A trial", r.Title)
	assert.Equal(t, "12345", r.PMID)
	assert.Equal(t, "240", r.SubjectCount)
	assert.Equal(t, "true", r.ResultsAvailable)
	assert.Empty(t, r.Control)
}

func TestRecordJSONTagsMatchFieldNames(t *testing.T) {
	r := &Record{}
	for _, name := range RecordFields {
		r.SetField(name, "v:"+name)
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, name := range RecordFields {
		assert.Equal(t, "v:"+name, m[name], "JSON key %q", name)
	}
}

func TestSourceLabels(t *testing.T) {
	c := Citation{PMID: "111", Title: "A very important study"}
	assert.Contains(t, c.SourceLabel(), "111")

	f := LocalFile{Path: "/tmp/x/scan.pdf", Name: "scan.pdf"}
	assert.Equal(t, "scan.pdf", f.SourceLabel())
}
