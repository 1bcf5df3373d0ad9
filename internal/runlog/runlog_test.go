package runlog

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCollectorBuffersEntries(t *testing.T) {
	c := NewCollector(nil)
	log := c.Logger()

	log.Info("CITATION VALIDATION", CategoryKey, CategoryHeader)
	log.Info("processing book", "title", "The Giver", "index", 1)
	log.Error("citation capture failed", "index", 2)

	entries := c.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Category != CategoryHeader {
		t.Errorf("category = %q, want header", entries[0].Category)
	}
	if entries[1].Attrs["title"] != "The Giver" {
		t.Errorf("attr title = %q", entries[1].Attrs["title"])
	}
	if entries[2].Level != slog.LevelError {
		t.Errorf("level = %v, want error", entries[2].Level)
	}
}

func TestDerivedHandlerSharesBuffer(t *testing.T) {
	c := NewCollector(nil)
	derived := slog.New(c).With("book", "1984")
	derived.Info("expanded section")

	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected derived logger to write into parent buffer, got %d entries", len(entries))
	}
	if entries[0].Attrs["book"] != "1984" {
		t.Errorf("attr book = %q", entries[0].Attrs["book"])
	}
}

func TestRenderAndReset(t *testing.T) {
	c := NewCollector(nil)
	log := c.Logger()
	log.Info("EXTRACTION", CategoryKey, CategoryHeader)
	log.Info("books extracted", "count", "3", CategoryKey, CategoryMetric)

	out := c.Render()
	if !strings.Contains(out, "EXTRACTION") {
		t.Errorf("transcript missing header: %q", out)
	}
	if !strings.Contains(out, "METRIC") || !strings.Contains(out, "count=3") {
		t.Errorf("transcript missing metric line: %q", out)
	}

	c.Reset()
	if len(c.Entries()) != 0 {
		t.Error("Reset did not clear the buffer")
	}
}

func TestDirSinkAttach(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirSink(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := sink.Attach("citation report", "text/html", []byte("<html></html>")); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "citation_report.html"))
	if err != nil {
		t.Fatalf("attachment not written: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Errorf("attachment content = %q", data)
	}
}
