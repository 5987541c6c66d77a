// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/CarbonMon/CLARA/pkg/types"
)

// E-utilities XML structures. Only the fields the pipeline needs are
// declared; everything else in the (large) DTDs is ignored.

type eSearchResult struct {
	Count int      `xml:"Count"`
	IDs   []string `xml:"IdList>Id"`
}

func decodeSearchResult(r io.Reader) (*eSearchResult, error) {
	var result eSearchResult
	if err := xml.NewDecoder(r).Decode(&result); err != nil {
		return nil, fmt.Errorf("parsing esearch response: %w", err)
	}
	return &result, nil
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation   medlineCitation `xml:"MedlineCitation"`
	ArticleIDs []articleID     `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type medlineCitation struct {
	PMID    string         `xml:"PMID"`
	Article medlineArticle `xml:"Article"`
}

type medlineArticle struct {
	Title        string      `xml:"ArticleTitle"`
	JournalTitle string      `xml:"Journal>Title"`
	PubDate      pubDate     `xml:"Journal>JournalIssue>PubDate"`
	Abstract     []string    `xml:"Abstract>AbstractText"`
	Authors      []author    `xml:"AuthorList>Author"`
	ELocationIDs []elocation `xml:"ELocationID"`
}

type pubDate struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

func (d pubDate) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Year, d.Month, d.Day} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

type author struct {
	LastName   string `xml:"LastName"`
	Initials   string `xml:"Initials"`
	Collective string `xml:"CollectiveName"`
}

type elocation struct {
	EIdType string `xml:"EIdType,attr"`
	Value   string `xml:",chardata"`
}

type articleID struct {
	IdType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

func decodeCitations(r io.Reader) ([]types.Citation, error) {
	var set pubmedArticleSet
	if err := xml.NewDecoder(r).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing efetch response: %w", err)
	}

	citations := make([]types.Citation, 0, len(set.Articles))
	for _, a := range set.Articles {
		citations = append(citations, citationFromArticle(a))
	}
	return citations, nil
}

func citationFromArticle(a pubmedArticle) types.Citation {
	c := types.Citation{
		PMID:     strings.TrimSpace(a.Citation.PMID),
		Title:    strings.TrimSpace(a.Citation.Article.Title),
		Abstract: strings.TrimSpace(strings.Join(a.Citation.Article.Abstract, "\n")),
		Journal:  strings.TrimSpace(a.Citation.Article.JournalTitle),
		PubDate:  a.Citation.Article.PubDate.String(),
	}

	for _, au := range a.Citation.Article.Authors {
		if au.Collective != "" {
			c.Authors = append(c.Authors, strings.TrimSpace(au.Collective))
			continue
		}
		name := strings.TrimSpace(au.LastName + " " + au.Initials)
		if name != "" {
			c.Authors = append(c.Authors, name)
		}
	}

	// The DOI appears in ELocationID on the article, or in the trailing
	// ArticleIdList; either is accepted.
	for _, el := range a.Citation.Article.ELocationIDs {
		if el.EIdType == "doi" && strings.TrimSpace(el.Value) != "" {
			c.DOI = strings.TrimSpace(el.Value)
			break
		}
	}
	if c.DOI == "" {
		for _, id := range a.ArticleIDs {
			if id.IdType == "doi" && strings.TrimSpace(id.Value) != "" {
				c.DOI = strings.TrimSpace(id.Value)
				break
			}
		}
	}
	if c.DOI != "" {
		c.FullTextLink = "https://doi.org/" + c.DOI
	}
	return c
}

type eLinkResult struct {
	IDs []string `xml:"LinkSet>LinkSetDb>Link>Id"`
}

func decodeFirstLink(r io.Reader) (string, error) {
	var result eLinkResult
	if err := xml.NewDecoder(r).Decode(&result); err != nil {
		return "", fmt.Errorf("parsing elink response: %w", err)
	}
	if len(result.IDs) == 0 {
		return "", nil
	}
	return result.IDs[0], nil
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// extractArticleText reads a PMC article document, returning its plain
// text (markup stripped, whitespace collapsed) and the PMID embedded in
// the article-id elements, when present.
func extractArticleText(r io.Reader) (text, embeddedPMID string, err error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", "", err
	}

	embeddedPMID, err = findEmbeddedPMID(raw)
	if err != nil {
		return "", "", err
	}

	text = tagPattern.ReplaceAllString(string(raw), " ")
	text = strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
	return text, embeddedPMID, nil
}

// findEmbeddedPMID walks the document for an element named article-id with
// pub-id-type="pmid" and returns its character content.
func findEmbeddedPMID(raw []byte) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(raw)))
	inPMID := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("scanning article-id elements: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "article-id" {
				continue
			}
			for _, attr := range t.Attr {
				if attr.Name.Local == "pub-id-type" && attr.Value == "pmid" {
					inPMID = true
				}
			}
		case xml.CharData:
			if inPMID {
				return strings.TrimSpace(string(t)), nil
			}
		case xml.EndElement:
			inPMID = false
		}
	}
}
