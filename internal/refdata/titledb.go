package refdata

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
)

// TitleDB is the backend book catalog the extracted titles are checked
// against. Only titles are loaded; the backing file may be an xlsx workbook
// with a "Book Title" column, a parquet file, or a JSONL dump.
type TitleDB struct {
	titles []string
}

// titleRow is the row shape for parquet and JSONL backings.
type titleRow struct {
	Title string `json:"title" parquet:"title"`
}

// LoadTitleDB reads the catalog file, detecting the format by extension.
func LoadTitleDB(path string) (*TitleDB, error) {
	var (
		titles []string
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		titles, err = loadTitlesXLSX(path)
	case ".parquet":
		titles, err = loadTitlesParquet(path)
	case ".jsonl", ".json":
		titles, err = loadTitlesJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported database format %q (supported: .xlsx, .parquet, .jsonl)", ext)
	}
	if err != nil {
		return nil, err
	}
	return &TitleDB{titles: titles}, nil
}

func loadTitlesXLSX(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("database file not found at %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read database sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	titleCol := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), "Book Title") {
			titleCol = i
			break
		}
	}
	if titleCol < 0 {
		return nil, fmt.Errorf("database sheet has no %q column", "Book Title")
	}

	var titles []string
	for _, row := range rows[1:] {
		if titleCol < len(row) {
			if t := strings.TrimSpace(row[titleCol]); t != "" {
				titles = append(titles, t)
			}
		}
	}
	return titles, nil
}

func loadTitlesParquet(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("database file not found at %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat database file: %w", err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet database: %w", err)
	}

	reader := parquet.NewGenericReader[titleRow](pf)
	defer reader.Close()

	var titles []string
	rows := make([]titleRow, 128)
	for {
		n, err := reader.Read(rows)
		for _, r := range rows[:n] {
			if t := strings.TrimSpace(r.Title); t != "" {
				titles = append(titles, t)
			}
		}
		if err != nil {
			break
		}
	}
	return titles, nil
}

func loadTitlesJSONL(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("database file not found at %s: %w", path, err)
	}
	defer f.Close()

	var titles []string
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var row titleRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("failed to parse database line %d: %w", line, err)
		}
		if t := strings.TrimSpace(row.Title); t != "" {
			titles = append(titles, t)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading database: %w", err)
	}
	return titles, nil
}

// Titles returns all catalog titles.
func (db *TitleDB) Titles() []string {
	return db.titles
}

// Contains reports whether a title exists in the catalog, using bidirectional
// case-insensitive containment to tolerate truncation and subtitle drift.
func (db *TitleDB) Contains(title string) bool {
	_, ok := db.Match(title)
	return ok
}

// Match returns the catalog title matching the extracted title, if any.
func (db *TitleDB) Match(title string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(title))
	if needle == "" {
		return "", false
	}
	for _, t := range db.titles {
		have := strings.ToLower(t)
		if strings.Contains(have, needle) || strings.Contains(needle, have) {
			return t, true
		}
	}
	return "", false
}

// FindMatching splits extracted titles into those present in the catalog
// (paired with the catalog title they matched) and those missing.
func (db *TitleDB) FindMatching(extracted []string) (found, missing []string) {
	for _, title := range extracted {
		if match, ok := db.Match(title); ok {
			found = append(found, fmt.Sprintf("%s -> %s", title, match))
		} else {
			missing = append(missing, title)
		}
	}
	return found, missing
}
