// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarbonMon/CLARA/internal/analyze"
	"github.com/CarbonMon/CLARA/pkg/types"
)

func init() {
	// Tiny backoff so contained retries do not slow the suite down.
	analyze.RetryMinWait = 1 * time.Millisecond
	analyze.RetryMaxWait = 2 * time.Millisecond
	analyze.RateLimitExtraWait = 1 * time.Millisecond
}

// scriptedBackend replies per call with canned responses or errors.
type scriptedBackend struct {
	replies []scriptedReply
	calls   []scriptedCall
}

type scriptedReply struct {
	out string
	err error
}

type scriptedCall struct {
	content      string
	fullDocument bool
}

func (b *scriptedBackend) Analyze(_ context.Context, content string, fullDocument bool) (string, error) {
	b.calls = append(b.calls, scriptedCall{content: content, fullDocument: fullDocument})
	if len(b.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	r := b.replies[0]
	b.replies = b.replies[1:]
	return r.out, r.err
}

// constResolver returns fixed full text for every citation.
type constResolver struct {
	text string
	prov types.Provenance
	ok   bool
}

func (r constResolver) FullText(context.Context, types.Citation) (string, types.Provenance, bool) {
	return r.text, r.prov, r.ok
}

// stubExtractor returns fixed text for every local file.
type stubExtractor struct {
	text string
	err  error
}

func (e stubExtractor) Extract(context.Context, types.LocalFile, bool, string) (string, error) {
	return e.text, e.err
}

func titled(title string) scriptedReply {
	return scriptedReply{out: fmt.Sprintf(`{"Title": %q}`, title)}
}

func citation(pmid, title string) types.Citation {
	return types.Citation{PMID: pmid, Title: title, Abstract: "abstract of " + title}
}

func TestRunOneRecordPerSourceInOrder(t *testing.T) {
	// The middle item fails every one of its retry attempts, then the
	// failure is contained as an error record.
	replies := []scriptedReply{titled("first")}
	for i := 0; i < analyze.MaxAttempts; i++ {
		replies = append(replies, scriptedReply{err: errors.New("connection reset")})
	}
	replies = append(replies, titled("third"))
	backend := &scriptedBackend{replies: replies}

	orch := NewOrchestrator(backend, constResolver{}, stubExtractor{}, io.Discard)
	sources := []types.SourceDocument{
		citation("1", "first"),
		citation("2", "second"),
		citation("3", "third"),
	}

	records, err := orch.Run(context.Background(), sources, Options{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "first", records[0].Title)
	assert.Equal(t, "1", records[0].PMID)
	assert.Equal(t, string(types.ProvenanceAbstract), records[0].AnalysisSource)

	assert.Equal(t, "Error analyzing paper", records[1].Title)
	assert.Equal(t, "2", records[1].PMID)
	assert.Contains(t, records[1].Error, "connection reset")
	assert.Equal(t, string(types.ProvenanceFailed), records[1].AnalysisSource)

	assert.Equal(t, "third", records[2].Title)

	s := orch.Progress().Snapshot()
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, 3, s.Completed)
}

func TestRunAbstractOnlyWhenFullTextUnreachable(t *testing.T) {
	backend := &scriptedBackend{replies: []scriptedReply{
		titled("a"), titled("b"), titled("c"),
	}}
	orch := NewOrchestrator(backend, constResolver{ok: false}, stubExtractor{}, io.Discard)

	sources := []types.SourceDocument{
		citation("1", "a"), citation("2", "b"), citation("3", "c"),
	}
	records, err := orch.Run(context.Background(), sources, Options{UseFullText: true})
	require.NoError(t, err)
	require.Len(t, records, 3)

	for _, rec := range records {
		assert.Equal(t, string(types.ProvenanceAbstract), rec.AnalysisSource)
		assert.Empty(t, rec.Error)
	}
	assert.Equal(t, StatusCompleted, orch.Progress().Snapshot().Status)

	// One abstract call per citation; no full-document calls at all.
	require.Len(t, backend.calls, 3)
	for _, call := range backend.calls {
		assert.False(t, call.fullDocument)
	}
}

func TestRunPromotesFullTextOnSuccess(t *testing.T) {
	backend := &scriptedBackend{replies: []scriptedReply{
		titled("from abstract"),
		titled("from full text"),
	}}
	resolver := constResolver{text: "the full body", prov: types.ProvenancePMC, ok: true}
	orch := NewOrchestrator(backend, resolver, stubExtractor{}, io.Discard)

	c := citation("42", "paper")
	c.FullTextLink = "https://doi.org/10.1000/x"
	records, err := orch.Run(context.Background(), []types.SourceDocument{c}, Options{UseFullText: true})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "from full text", rec.Title)
	assert.Equal(t, "42", rec.PMID)
	assert.Equal(t, "https://doi.org/10.1000/x", rec.FullTextLink)
	assert.Equal(t, string(types.ProvenancePMC), rec.AnalysisSource)

	// The abstract pass always runs first.
	require.Len(t, backend.calls, 2)
	assert.False(t, backend.calls[0].fullDocument)
	assert.Contains(t, backend.calls[0].content, "abstract of paper")
	assert.True(t, backend.calls[1].fullDocument)
	assert.Equal(t, "the full body", backend.calls[1].content)
}

func TestRunKeepsAbstractWhenFullTextParseFails(t *testing.T) {
	backend := &scriptedBackend{replies: []scriptedReply{
		titled("from abstract"),
		{out: "I cannot produce JSON for this."},
	}}
	resolver := constResolver{text: "body", prov: types.ProvenanceDOI, ok: true}
	orch := NewOrchestrator(backend, resolver, stubExtractor{}, io.Discard)

	records, err := orch.Run(context.Background(), []types.SourceDocument{citation("7", "p")}, Options{UseFullText: true})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "from abstract", records[0].Title)
	assert.Equal(t, string(types.ProvenanceAbstract), records[0].AnalysisSource)
}

func TestRunFatalErrorAbortsJob(t *testing.T) {
	backend := &scriptedBackend{replies: []scriptedReply{
		titled("first"),
		{err: errors.New("API error 401: invalid api key")},
		titled("never reached"),
	}}
	var buf strings.Builder
	orch := NewOrchestrator(backend, constResolver{}, stubExtractor{}, &buf)

	sources := []types.SourceDocument{
		citation("1", "first"), citation("2", "second"), citation("3", "third"),
	}
	records, err := orch.Run(context.Background(), sources, Options{})

	var fatal *analyze.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, analyze.ClassAuth, fatal.Class)

	// Only the record completed before the fatal failure is returned.
	require.Len(t, records, 1)
	assert.Equal(t, "first", records[0].Title)

	s := orch.Progress().Snapshot()
	assert.Equal(t, StatusError, s.Status)
	assert.Contains(t, s.Message, "auth")
}

func TestRunFatalDuringEnrichmentAborts(t *testing.T) {
	backend := &scriptedBackend{replies: []scriptedReply{
		titled("from abstract"),
		{err: errors.New("credit balance is too low")},
	}}
	resolver := constResolver{text: "body", prov: types.ProvenancePMC, ok: true}
	orch := NewOrchestrator(backend, resolver, stubExtractor{}, io.Discard)

	_, err := orch.Run(context.Background(), []types.SourceDocument{citation("1", "p")}, Options{UseFullText: true})

	var fatal *analyze.FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, analyze.ClassBilling, fatal.Class)
}

func TestRunLocalFile(t *testing.T) {
	backend := &scriptedBackend{replies: []scriptedReply{titled("scanned study")}}
	orch := NewOrchestrator(backend, constResolver{}, stubExtractor{text: "ocr text"}, io.Discard)

	f := types.LocalFile{Name: "study.pdf", Path: "/tmp/study.pdf"}
	records, err := orch.Run(context.Background(), []types.SourceDocument{f}, Options{UseOCR: true, Language: "French"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "scanned study", rec.Title)
	assert.Equal(t, "study.pdf", rec.Filename)
	assert.Equal(t, string(types.ProvenanceLocalFile), rec.AnalysisSource)

	require.Len(t, backend.calls, 1)
	assert.True(t, backend.calls[0].fullDocument)
	assert.Equal(t, "ocr text", backend.calls[0].content)
}

func TestRunLocalFileExtractionFailureContained(t *testing.T) {
	backend := &scriptedBackend{replies: []scriptedReply{titled("ok file")}}
	failing := stubExtractor{err: errors.New("unsupported file type \".docx\"")}

	// First source fails extraction, second is a citation that succeeds.
	orch := NewOrchestrator(backend, constResolver{}, failing, io.Discard)
	sources := []types.SourceDocument{
		types.LocalFile{Name: "notes.docx", Path: "/tmp/notes.docx"},
		citation("5", "ok file"),
	}

	records, err := orch.Run(context.Background(), sources, Options{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Error processing notes.docx", records[0].Title)
	assert.Equal(t, "notes.docx", records[0].Filename)
	assert.Contains(t, records[0].Error, "unsupported file type")

	assert.Equal(t, "ok file", records[1].Title)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &scriptedBackend{}
	orch := NewOrchestrator(backend, constResolver{}, stubExtractor{}, io.Discard)

	records, err := orch.Run(ctx, []types.SourceDocument{citation("1", "p")}, Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, records)
	assert.Equal(t, StatusError, orch.Progress().Snapshot().Status)
	assert.Empty(t, backend.calls)
}
