package nlp

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/vkatenev/glasha/common/spec/lexicon"
)

// nonLetter matches one character that cannot continue a Russian or Latin
// word. RE2's \b only understands ASCII word characters, so Cyrillic word
// boundaries have to be spelled out.
const nonLetter = `[^0-9a-zа-яё]`

// maxRulePasses caps the per-rule fixpoint iteration. Validated lexicons
// converge in a handful of passes; the cap guards against a table whose
// output rewrites itself.
const maxRulePasses = 32

// correctionRule is one compiled substitution from the lexicon table.
type correctionRule struct {
	re   *regexp.Regexp
	repl string
}

// Normalizer rewrites common speech-to-text errors and strips filler words.
//
// It applies the lexicon's correction table in order (later rules see the
// output of earlier ones), then removes trailing "туда"/"сюда" fillers
// immediately following a command verb. Boundary guards on both rule ends
// keep the whole pass idempotent: no rule can fire inside a longer word or
// re-trigger on the text it just produced.
type Normalizer struct {
	rules  []correctionRule
	filler *regexp.Regexp
}

// NewNormalizer compiles the correction and filler tables from lex.
func NewNormalizer(lex *lexicon.Document) *Normalizer {
	rules := make([]correctionRule, 0, len(lex.Corrections))
	for _, c := range lex.Corrections {
		// Both ends of the phrase are guarded; the guards capture the
		// boundary characters and the replacement re-emits them. The leading
		// guard applies only when the phrase opens with a word character:
		// spoken-email rules carry their own leading space.
		pattern := regexp.QuoteMeta(c.From) + `($|` + nonLetter + `)`
		repl := strings.ReplaceAll(c.To, "$", "$$")
		if startsWithWordRune(c.From) {
			pattern = `(^|` + nonLetter + `)` + pattern
			repl = "${1}" + repl + "${2}"
		} else {
			repl += "${1}"
		}
		rules = append(rules, correctionRule{
			re:   regexp.MustCompile(`(?i)` + pattern),
			repl: repl,
		})
	}

	// One or more filler words after the verb are consumed in a single match,
	// so "добавь туда туда" collapses in one application.
	filler := regexp.MustCompile(
		`(?i)(` + alternation(lex.Fillers.Verbs) + `)(?:\s+(?:` + alternation(lex.Fillers.Words) + `))+($|` + nonLetter + `)`)

	return &Normalizer{rules: rules, filler: filler}
}

// Normalize rewrites text through the correction table and strips fillers.
// It is pure, total, and idempotent: when no rule applies the input comes
// back unchanged.
func (n *Normalizer) Normalize(text string) string {
	s := text
	for _, r := range n.rules {
		// A match consumes its boundary character, which can hide a directly
		// adjacent second occurrence from the same scan. Each rule therefore
		// runs to a fixpoint.
		for i := 0; i < maxRulePasses; i++ {
			out := r.re.ReplaceAllString(s, r.repl)
			if out == s {
				break
			}
			s = out
		}
	}
	s = n.filler.ReplaceAllString(s, "${1}${2}")
	return s
}

// startsWithWordRune reports whether the first rune of s is in the word
// class nonLetter negates.
func startsWithWordRune(s string) bool {
	for _, r := range s {
		lower := unicode.ToLower(r)
		return (r >= '0' && r <= '9') ||
			(lower >= 'a' && lower <= 'z') ||
			(lower >= 'а' && lower <= 'я') || lower == 'ё'
	}
	return false
}

// alternation joins literals into a non-capturing regexp alternation,
// longest-first so a shorter variant never shadows a longer one.
func alternation(words []string) string {
	sorted := append([]string(nil), words...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && len(sorted[j]) > len(sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}
