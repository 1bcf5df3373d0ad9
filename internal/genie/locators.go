package genie

// CSS selectors for the BookGenie chat UI. Hashed utility classes are
// matched by substring so a rebuild of the frontend bundle does not break
// the suite; text predicates are applied in Go after the CSS narrows the
// candidate set.
const (
	selModeDropdown = `[data-pc-name="dropdown"]`
	selModeOption   = `[role="option"], li, span`
	selChatInput    = `[placeholder="How can I help?"]`
	selChatResponse = `[class="max-w-[90%] text-[1rem] flex flex-col gap-y-2 w-[90%]  text-[#344054] rounded-r-[8px] rounded-bl-[8px]"]`

	selTextBlock      = `p, span, div`
	selParagraph      = `p`
	selFollowUpChoice = `span[class*="bg-[#DBEAFE]"]`

	selAccordion      = `details.accordion`
	selSummary        = `summary`
	selSummaryTitle   = `summary span.truncate`
	selNestedDetails  = `details`
	selCitationButton = `[class*="BookCitation-module_citationButton"]`
	selCitationType   = `span[class*="BookCitation-module_citationText"]`
	selCitationArrow  = `i[class*="pi-angle"]`
	selCitationQuote  = `[class*="BookCitation-module_paragraph"] span[id*="quotes-citations"]`
)

// Text anchors the UI flows key on.
const (
	textWelcome        = "Welcome to the BookGenie Mode"
	textThinking       = "Creative Workspace AI is thinking"
	textNoneOfTheAbove = "None of the above, just"
	textWhyMatch       = "Why this book is the"
)

// aggregateIndicators mark accordion headings that summarize the whole
// response rather than one book. A section is treated as an individual book
// only when it has a numbered prefix AND none of these phrases.
var aggregateIndicators = []string{
	"books by",
	"award-winning",
	"recommended",
	"suggested",
	"matched",
	"results for",
	"query:",
	"watch me work",
	"interpreting context",
	"retrieving relevant",
}
