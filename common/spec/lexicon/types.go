// Package lexicon defines types for the Glasha lexicon document (v1).
//
// The lexicon is the versioned YAML file that holds every word table the
// command-interpretation pipeline depends on: the transcription-correction
// table, filler words, contact-intent exclusion tokens, and the subject and
// draft-edit vocabularies. It is static configuration: loaded once at
// startup, immutable afterwards, safe to share across goroutines.
package lexicon

// SpecVersion is the API version string required in every lexicon document.
const SpecVersion = "lexicon/v1"

// Document is the root type for a lexicon document.
type Document struct {
	// APIVersion must be "lexicon/v1".
	APIVersion string `yaml:"apiVersion" json:"apiVersion"`

	// Corrections is the ordered transcription-error substitution table.
	// Order matters: later rules see the output of earlier ones.
	Corrections []Correction `yaml:"corrections" json:"corrections"`

	// Fillers configures filler-word stripping after command verbs.
	Fillers Fillers `yaml:"fillers" json:"fillers"`

	// ContactExclusions lists tokens whose presence suppresses the
	// contact-add intent ("контакт", "номер", dialing prefixes, ...).
	ContactExclusions []string `yaml:"contactExclusions" json:"contactExclusions"`

	// Subject holds the subject-formatting tables.
	Subject Subject `yaml:"subject" json:"subject"`

	// Edit holds the draft-edit classification vocabularies.
	Edit Edit `yaml:"edit" json:"edit"`
}

// Correction is one literal substitution rule. The matcher guards both rule
// ends with word boundaries so a rule never re-triggers on its own output.
type Correction struct {
	// From is the misrecognized phrase as it appears in transcripts.
	From string `yaml:"from" json:"from"`

	// To is the replacement text.
	To string `yaml:"to" json:"to"`
}

// Fillers configures removal of pointless demonstratives ("туда", "сюда")
// that speech recognition leaves after a command verb.
type Fillers struct {
	// Verbs are the command verbs a filler may trail.
	Verbs []string `yaml:"verbs" json:"verbs"`

	// Words are the filler words themselves.
	Words []string `yaml:"words" json:"words"`
}

// Subject holds the tables driving subject-line formatting.
type Subject struct {
	// Prepositions are the subject-introducing prepositions, stripped from
	// the front of a raw subject. Longest-match-first is applied by code.
	Prepositions []string `yaml:"prepositions" json:"prepositions"`

	// Canonical maps known lexical fragments to a fixed presentable phrase.
	Canonical []CanonicalPhrase `yaml:"canonical" json:"canonical"`

	// Nominative maps inflected words to their nominative form, applied to
	// short subjects only.
	Nominative map[string]string `yaml:"nominative" json:"nominative"`

	// CaseSuffixes are the word endings that signal an oblique-case word and
	// gate the nominative rewrite.
	CaseSuffixes []string `yaml:"caseSuffixes" json:"caseSuffixes"`
}

// CanonicalPhrase rewrites any subject containing one of the fragments to a
// fixed phrase. This is a finite lookup, not grammar correction.
type CanonicalPhrase struct {
	// Contains lists the trigger fragments (lower-case).
	Contains []string `yaml:"contains" json:"contains"`

	// Phrase is the canonical subject line to emit.
	Phrase string `yaml:"phrase" json:"phrase"`
}

// Edit holds the vocabularies used to classify draft-edit instructions.
type Edit struct {
	// Greetings are the keywords that select the replace-greeting action.
	Greetings []string `yaml:"greetings" json:"greetings"`

	// Closings are the keywords that select the append-signature action.
	Closings []string `yaml:"closings" json:"closings"`

	// TimeWords are time-of-day words that must never be mistaken for a
	// recipient name at the end of a greeting instruction.
	TimeWords []string `yaml:"timeWords" json:"timeWords"`

	// ClosingStopWords are the closing-phrase words excluded from the
	// last-token-as-name heuristic.
	ClosingStopWords []string `yaml:"closingStopWords" json:"closingStopWords"`
}
