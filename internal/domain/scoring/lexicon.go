package scoring

import "strings"

// LexiconVersion identifies the keyword tables below. Bump it whenever a
// phrase is added, removed or moved between tiers, since that changes
// classification outcomes.
const LexiconVersion = "2024.1"

// Lexicon holds the three tiers of lowercase phrases for one dimension.
type Lexicon struct {
	High   []string
	Medium []string
	Low    []string
}

// Per-dimension lexicons. Treat them as read-only.
//
//nolint:gochecknoglobals // versioned keyword tables
var (
	BudgetLexicon = Lexicon{
		High:   []string{"funded", "series a", "series b", "ipo", "profitable", "revenue growth"},
		Medium: []string{"seed funding", "angel investment", "break even", "stable revenue"},
		Low:    []string{"startup", "bootstrap", "pre-revenue", "cost cutting"},
	}

	AuthorityLexicon = Lexicon{
		High:   []string{"ceo", "cto", "cfo", "founder", "president", "vp", "director"},
		Medium: []string{"manager", "lead", "senior", "principal"},
		Low:    []string{"analyst", "coordinator", "associate", "junior"},
	}

	NeedLexicon = Lexicon{
		High:   []string{"urgent", "critical", "immediate", "pain point", "problem", "challenge"},
		Medium: []string{"improvement", "optimization", "upgrade", "enhancement"},
		Low:    []string{"nice to have", "future", "considering", "exploring"},
	}

	TimelineLexicon = Lexicon{
		High:   []string{"asap", "immediate", "this quarter", "urgent", "now"},
		Medium: []string{"next quarter", "3-6 months", "this year"},
		Low:    []string{"next year", "future", "someday", "eventually"},
	}

	// DepartmentBoostKeywords add a point to authority when found in the department.
	DepartmentBoostKeywords = []string{"executive", "c-suite", "leadership"}
)

// tierCounts is the number of distinct phrases of each tier found in a text.
type tierCounts struct {
	high, medium, low int
}

// count reports how many phrases of each tier occur in text. text must
// already be lower-cased. A phrase counts once no matter how often it
// appears; overlapping phrases count independently.
func (l Lexicon) count(text string) tierCounts {
	return tierCounts{
		high:   countPhrases(text, l.High),
		medium: countPhrases(text, l.Medium),
		low:    countPhrases(text, l.Low),
	}
}

func countPhrases(text string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(text, p) {
			n++
		}
	}
	return n
}

func containsAny(text string, phrases []string) bool {
	return countPhrases(text, phrases) > 0
}

// joinLower concatenates fragments with single spaces and lower-cases the result.
func joinLower(parts ...string) string {
	return strings.ToLower(strings.Join(parts, " "))
}
