package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bookgenie-qa/harness/internal/books"
)

func TestSpreadsheetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")

	records := []books.BookRecord{
		{
			Question:         "Suggest a dystopian novel for teen readers",
			Title:            "The Giver",
			Author:           "Lois Lowry",
			PublishingDate:   "1993",
			Imprint:          "HMH Books for Young Readers",
			WhyMatch:         "Centers on a dystopian society. | Widely taught in schools.",
			RelevanceScore:   92,
			Gap:              "Predates modern surveillance themes.",
			Reasons:          []string{"Centers on a dystopian society.", "Widely taught in schools."},
			HighlightedTexts: []string{"dystopian society", ""},
		},
		{
			Title:          "1984",
			Author:         "George Orwell",
			RelevanceScore: 88,
			Gap:            books.NoGapMentioned,
		},
	}

	require.NoError(t, WriteRecords(records, path))

	got, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "The Giver", got[0].Title)
	require.Equal(t, 92, got[0].RelevanceScore)
	require.Equal(t, records[0].Reasons, got[0].Reasons)
	require.Equal(t, books.NoGapMentioned, got[1].Gap)
}

func TestReadRecordsMissingFileFailsFast(t *testing.T) {
	_, err := ReadRecords(filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
}

func TestTitleDBFromXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Book Title"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "The Giver"))
	require.NoError(t, f.SetCellValue(sheet, "A3", "1984"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	db, err := LoadTitleDB(path)
	require.NoError(t, err)
	require.Equal(t, []string{"The Giver", "1984"}, db.Titles())

	// Case-insensitive bidirectional containment.
	require.True(t, db.Contains("the giver"))
	require.True(t, db.Contains("1984: the graphic novel"))
	require.False(t, db.Contains("Brave New World"))

	found, missing := db.FindMatching([]string{"the giver", "Fahrenheit 451"})
	require.Len(t, found, 1)
	require.Equal(t, []string{"Fahrenheit 451"}, missing)
}

func TestTitleDBFromParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.parquet")

	f, err := os.Create(path)
	require.NoError(t, err)
	w := parquet.NewGenericWriter[titleRow](f)
	_, err = w.Write([]titleRow{{Title: "The Giver"}, {Title: "1984"}})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	db, err := LoadTitleDB(path)
	require.NoError(t, err)
	require.Equal(t, []string{"The Giver", "1984"}, db.Titles())
}

func TestTitleDBUnsupportedFormat(t *testing.T) {
	_, err := LoadTitleDB("database.csv")
	require.Error(t, err)
}
