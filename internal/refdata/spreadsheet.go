// Package refdata loads the reference sources the harness validates against:
// the expected-books spreadsheet and the backend title database. A missing
// reference file is a setup failure and surfaces as an immediate error.
package refdata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bookgenie-qa/harness/internal/books"
)

const exportSheet = "Book Matches"

// spreadsheetColumns defines the column order for exported workbooks. Reads
// match headers by name, so reordered reference sheets still load.
var spreadsheetColumns = []string{
	"question",
	"bookTitle",
	"author",
	"publishingDate",
	"imprint",
	"whyMatch",
	"relevanceScore",
	"gap",
	"highlightedTexts",
}

// ReadRecords loads book records from the first sheet of an xlsx workbook.
func ReadRecords(path string) ([]books.BookRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cell := func(row []string, name string) string {
		i, ok := col[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []books.BookRecord
	for _, row := range rows[1:] {
		rec := books.BookRecord{
			Question:       cell(row, "question"),
			Title:          cell(row, "bookTitle"),
			Author:         cell(row, "author"),
			PublishingDate: cell(row, "publishingDate"),
			Imprint:        cell(row, "imprint"),
			WhyMatch:       cell(row, "whyMatch"),
			Gap:            cell(row, "gap"),
		}
		if rec.Title == "" {
			continue
		}
		if score := strings.TrimSuffix(cell(row, "relevanceScore"), "%"); score != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(score)); err == nil {
				rec.RelevanceScore = n
			}
		}
		if rec.WhyMatch != "" {
			rec.Reasons = strings.Split(rec.WhyMatch, books.ReasonSeparator)
		}
		if h := cell(row, "highlightedTexts"); h != "" {
			rec.HighlightedTexts = strings.Split(h, books.ReasonSeparator)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteRecords exports extracted records as an xlsx workbook, one row per
// book, columns named after the record fields.
func WriteRecords(records []books.BookRecord, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name export sheet: %w", err)
	}

	for i, h := range spreadsheetColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header %s: %w", h, err)
		}
	}

	for r, rec := range records {
		values := []any{
			rec.Question,
			rec.Title,
			rec.Author,
			rec.PublishingDate,
			rec.Imprint,
			rec.WhyMatch,
			rec.RelevanceScore,
			rec.Gap,
			strings.Join(rec.HighlightedTexts, books.ReasonSeparator),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", r+2, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save spreadsheet %s: %w", path, err)
	}
	return nil
}
