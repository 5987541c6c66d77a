// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders result records as XLSX workbooks for download.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/CarbonMon/CLARA/pkg/types"
)

const sheetName = "Results"

// disclaimer appears below the data rows in every workbook.
const disclaimer = "Content generated by AI. Verify all extracted data against the original publications before use."

// extraColumns are bookkeeping fields appended after the canonical schema.
var extraColumns = []string{"Analysis Source", "Filename"}

// ResultsXLSX renders records into a single-sheet workbook. Columns follow
// the canonical field order; rows follow record order.
func ResultsXLSX(records []*types.Record, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}

	headers := append(append([]string{}, types.RecordFields...), extraColumns...)

	write := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheetName, cell, v)
	}

	for i, h := range headers {
		if err := write(i+1, 1, h); err != nil {
			return nil, fmt.Errorf("writing header %q: %w", h, err)
		}
	}

	for r, rec := range records {
		row := r + 2
		for c, field := range types.RecordFields {
			if err := write(c+1, row, rec.Field(field)); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", row, err)
			}
		}
		base := len(types.RecordFields)
		if err := write(base+1, row, rec.AnalysisSource); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", row, err)
		}
		if err := write(base+2, row, rec.Filename); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", row, err)
		}
	}

	footerRow := len(records) + 3
	if err := write(1, footerRow, disclaimer); err != nil {
		return nil, fmt.Errorf("writing disclaimer: %w", err)
	}
	if err := write(1, footerRow+1, "Generated: "+generatedAt.UTC().Format("2006-01-02 15:04 UTC")); err != nil {
		return nil, fmt.Errorf("writing timestamp: %w", err)
	}

	if err := f.SetColWidth(sheetName, "A", "A", 40); err != nil {
		return nil, fmt.Errorf("setting column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
