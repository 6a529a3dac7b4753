package nlp

import (
	"sort"
	"strings"
	"unicode"

	"github.com/vkatenev/glasha/common/spec/lexicon"
)

// SubjectFormatter turns a raw extracted subject fragment into a presentable
// subject line.
//
// The pipeline is heuristic and table-driven by design: strip a leading
// preposition, try the canonical-phrase lookup, fix a short subject's case
// ending, and fall back to plain first-letter capitalization. It never
// fails; unmapped inputs degrade gracefully instead of erroring.
type SubjectFormatter struct {
	prepositions []string
	canonical    []lexicon.CanonicalPhrase
	nominative   map[string]string
	suffixes     []string
}

// NewSubjectFormatter builds a formatter from the lexicon's subject tables.
func NewSubjectFormatter(lex *lexicon.Document) *SubjectFormatter {
	// Longest preposition first, so "об" is not shadowed by "о".
	preps := append([]string(nil), lex.Subject.Prepositions...)
	sort.Slice(preps, func(i, j int) bool { return len(preps[i]) > len(preps[j]) })

	return &SubjectFormatter{
		prepositions: preps,
		canonical:    lex.Subject.Canonical,
		nominative:   lex.Subject.Nominative,
		suffixes:     lex.Subject.CaseSuffixes,
	}
}

// Format runs the subject pipeline over raw. Empty input yields empty output.
func (f *SubjectFormatter) Format(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	originalWords := len(strings.Fields(s))

	// 1. Strip a leading preposition, remembering which one.
	prep := ""
	lower := strings.ToLower(s)
	for _, p := range f.prepositions {
		if lower == p {
			// The subject is nothing but a preposition.
			return ""
		}
		if strings.HasPrefix(lower, p+" ") {
			prep = p
			// Cyrillic case pairs have equal UTF-8 width, so the byte offset
			// computed from the lower-cased copy is valid on the original.
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}
	if s == "" {
		return ""
	}

	// 2. Canonical-phrase lookup. The slot extractor captures the subject
	// after the preposition, so a bare fragment takes the same path as one
	// introduced by "о"/"об"; "про"/"касательно" subjects skip the lookup.
	if prep == "" || prep == "о" || prep == "об" {
		ls := strings.ToLower(s)
		for _, c := range f.canonical {
			for _, frag := range c.Contains {
				if strings.Contains(ls, strings.ToLower(frag)) {
					return c.Phrase
				}
			}
		}
	}

	words := strings.Fields(s)
	capitalize := prep != ""

	// 3. Short subjects only: when the last word carries an oblique-case
	// ending, pull the mapped words back to nominative.
	if originalWords <= 3 && f.hasCaseSuffix(words[len(words)-1]) {
		for i, w := range words {
			if repl, ok := f.nominative[strings.ToLower(w)]; ok {
				words[i] = repl
				capitalize = true
			}
		}
	}

	if capitalize {
		words[0] = capitalizeFirst(words[0])
	}

	// 4. Reassemble with single spaces.
	out := strings.Join(words, " ")

	// 5. A bare one-word subject line reads poorly; give it a lead-in.
	if len(words) == 1 {
		return "Касательно: " + out
	}
	return out
}

func (f *SubjectFormatter) hasCaseSuffix(word string) bool {
	w := strings.ToLower(word)
	for _, suf := range f.suffixes {
		if strings.HasSuffix(w, suf) {
			return true
		}
	}
	return false
}

func capitalizeFirst(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
