// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// SourceDocument is one input to an analysis job: either a bibliographic
// Citation fetched from PubMed or an uploaded LocalFile. A job processes
// its sources in order and produces exactly one Record per source.
type SourceDocument interface {
	// SourceLabel is a short human-readable identifier used in progress
	// and status output.
	SourceLabel() string
}

// Citation is a bibliographic record describing one publication, as
// returned by a PubMed fetch.
type Citation struct {
	// PMID is the stable PubMed identifier.
	PMID string `json:"pmid" yaml:"pmid"`

	// Title is the article title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the abstract text, with labeled sections concatenated.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Journal is the full journal name.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// PubDate is the publication date as reported by PubMed.
	PubDate string `json:"pub_date,omitempty" yaml:"pub_date,omitempty"`

	// Authors lists authors as "Last FirstInitials" in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// DOI is the external identifier, when the citation carries one.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// FullTextLink is the DOI resolver URL derived from the DOI, when known.
	FullTextLink string `json:"full_text_link,omitempty" yaml:"full_text_link,omitempty"`
}

func (c Citation) SourceLabel() string {
	if c.PMID != "" {
		return "PMID " + c.PMID
	}
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	return "citation"
}

// LocalFile is an uploaded document or image. The declared name carries the
// extension that determines how the file is processed; the path points at
// the bytes on disk, which are read lazily and never modified.
type LocalFile struct {
	// Path is the on-disk location of the file content.
	Path string `json:"path" yaml:"path"`

	// Name is the declared filename, used for type detection and reporting.
	Name string `json:"name" yaml:"name"`
}

func (f LocalFile) SourceLabel() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Path
}

// ResolvedContent is the text handed to the extraction backend, tagged
// with its provenance. Truncated reports whether the text exceeds the
// submission cap and will be cut deterministically before submission.
type ResolvedContent struct {
	Text       string
	Provenance Provenance
	Truncated  bool
}
