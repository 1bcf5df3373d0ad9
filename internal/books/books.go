// Package books holds the record types shared by the extraction and
// validation pipelines. Records are built once per extraction pass and
// treated as immutable afterwards.
package books

import "strings"

// Sentinel values used across extraction and validation. The gap sentinel is
// written by the extractor when a book section carries no "The Gap" list; the
// citation sentinel fills reason indexes for which no citation toggle exists.
const (
	NoGapMentioned  = "No gap mentioned"
	NoCitationFound = "No citation found"

	// ErrorMarkerPrefix prefixes citation texts that could not be captured.
	// Validation treats such values as extraction failures, not as content.
	ErrorMarkerPrefix = "Error:"
)

// ReasonSeparator joins multi-item fields (reasons, gap bullets) into the
// single-cell representation used by the spreadsheet reference.
const ReasonSeparator = " | "

// CitationType classifies where a citation excerpt was quoted from.
type CitationType string

const (
	CitationMetadata   CitationType = "metadata"
	CitationManuscript CitationType = "manuscript"
)

// BookRecord is one recommended book extracted from a BookGenie response.
type BookRecord struct {
	Question         string
	Title            string
	Author           string
	PublishingDate   string
	Imprint          string
	WhyMatch         string
	RelevanceScore   int
	Gap              string
	Reasons          []string
	HighlightedTexts []string
}

// ReasonCount reports how many why-match points the record carries. It is
// derived from WhyMatch so that spreadsheet-loaded records (which only store
// the joined form) count the same way as freshly extracted ones.
func (b BookRecord) ReasonCount() int {
	if len(b.Reasons) > 0 {
		return len(b.Reasons)
	}
	if strings.TrimSpace(b.WhyMatch) == "" {
		return 0
	}
	return len(strings.Split(b.WhyMatch, "|"))
}

// HasGap reports whether the record mentions a real gap, i.e. anything other
// than the empty string or the no-gap sentinel.
func (b BookRecord) HasGap() bool {
	g := strings.TrimSpace(b.Gap)
	return g != "" && g != NoGapMentioned
}

// CitationRecord is one citation belonging to one reason of one book. It is
// only created after the revealing toggle has been clicked and the citation
// text observed; failed captures are recorded as error markers instead.
type CitationRecord struct {
	BookTitle    string
	ReasonIndex  int
	CitationText string
	CitationType CitationType
}

// IsErrorMarker reports whether a captured citation text is one of the
// failure sentinels rather than real content.
func IsErrorMarker(citation string) bool {
	return citation == "" ||
		citation == NoCitationFound ||
		strings.HasPrefix(citation, ErrorMarkerPrefix) ||
		strings.Contains(citation, "Citation text not found")
}
