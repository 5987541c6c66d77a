// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Runner executes the external OCR toolchain. Implementations other than
// osRunner exist only for tests.
type Runner interface {
	// RasterizePDF renders every page of the PDF at path to an image and
	// returns the image paths in page order, plus a cleanup func that
	// removes them.
	RasterizePDF(ctx context.Context, path string) ([]string, func(), error)
	// Recognize runs OCR on one image and returns the recognized text.
	Recognize(ctx context.Context, imagePath, lang string) (string, error)
}

// osRunner shells out to pdftoppm and tesseract.
type osRunner struct{}

func (osRunner) RasterizePDF(ctx context.Context, path string) ([]string, func(), error) {
	dir, err := os.MkdirTemp("", "clara-ocr-")
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm", "-png", "-r", "300", path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(out)))
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(images)
	return images, cleanup, nil
}

func (osRunner) Recognize(ctx context.Context, imagePath, lang string) (string, error) {
	cmd := exec.CommandContext(ctx, "tesseract", imagePath, "stdout", "-l", lang)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}
