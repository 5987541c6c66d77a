// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document extracts analyzable text from local files. PDFs with an
// embedded text layer are read directly; scanned PDFs and images go
// through OCR. The source file is only ever read, never modified.
package document

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/CarbonMon/CLARA/pkg/types"
)

// pageSeparator joins per-page text in extraction output.
const pageSeparator = "\n\n"

// Kind is the declared type of a local file, derived from its extension.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindImage
)

// FormatError reports a file whose extension is outside the supported set.
type FormatError struct {
	Name string
	Ext  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q for %s", e.Ext, e.Name)
}

// KindOf classifies a declared filename. Supported: .pdf, .png, .jpg, .jpeg.
func KindOf(name string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pdf":
		return KindPDF, nil
	case ".png", ".jpg", ".jpeg":
		return KindImage, nil
	default:
		return KindUnknown, &FormatError{Name: name, Ext: ext}
	}
}

// OCRLanguages maps the user-facing language names to tesseract codes.
var OCRLanguages = map[string]string{
	"English": "eng",
	"French":  "fra",
	"Arabic":  "ara",
	"Spanish": "spa",
}

// Extractor turns a local file into text. OCR work is delegated to an
// injected tool runner so tests never need the binaries installed.
type Extractor struct {
	tools Runner
}

// NewExtractor creates an Extractor using the OS tool runner.
func NewExtractor() *Extractor {
	return &Extractor{tools: osRunner{}}
}

// NewExtractorWithRunner creates an Extractor with a custom tool runner.
func NewExtractorWithRunner(r Runner) *Extractor {
	return &Extractor{tools: r}
}

// Extract produces the text of file. For PDFs the embedded text layer is
// used unless useOCR is set, in which case each page is rasterized and
// recognized in the given language. Images always go through OCR: they
// have no text layer, so the useOCR flag is irrelevant for them.
func (e *Extractor) Extract(ctx context.Context, file types.LocalFile, useOCR bool, lang string) (string, error) {
	kind, err := KindOf(file.Name)
	if err != nil {
		return "", err
	}
	if lang == "" {
		lang = "eng"
	}

	switch kind {
	case KindPDF:
		if useOCR {
			return e.ocrPDF(ctx, file.Path, lang)
		}
		text, _, err := PDFText(file.Path)
		return text, err
	case KindImage:
		return e.ocrImage(ctx, file.Path, lang)
	default:
		return "", &FormatError{Name: file.Name, Ext: filepath.Ext(file.Name)}
	}
}

// PDFText extracts the embedded text layer of a PDF, concatenating pages
// with a separator, and reports the page count.
func PDFText(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	pages := r.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		if b.Len() > 0 {
			b.WriteString(pageSeparator)
		}
		b.WriteString(text)
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", pages, fmt.Errorf("PDF %s has no extractable text layer", path)
	}
	return b.String(), pages, nil
}

// ocrPDF rasterizes each page and recognizes it, concatenating page
// outputs in page order.
func (e *Extractor) ocrPDF(ctx context.Context, path, lang string) (string, error) {
	images, cleanup, err := e.tools.RasterizePDF(ctx, path)
	if err != nil {
		return "", fmt.Errorf("rasterizing PDF %s: %w", path, err)
	}
	defer cleanup()

	if len(images) == 0 {
		return "", fmt.Errorf("PDF %s produced no page images", path)
	}

	texts := make([]string, 0, len(images))
	for _, img := range images {
		text, err := e.tools.Recognize(ctx, img, lang)
		if err != nil {
			return "", fmt.Errorf("OCR on %s: %w", filepath.Base(img), err)
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, pageSeparator), nil
}

func (e *Extractor) ocrImage(ctx context.Context, path, lang string) (string, error) {
	text, err := e.tools.Recognize(ctx, path, lang)
	if err != nil {
		return "", fmt.Errorf("OCR on %s: %w", filepath.Base(path), err)
	}
	return text, nil
}
