package nlp

import (
	"strings"

	"github.com/vkatenev/glasha/common/spec/lexicon"
)

// EditKind tags the three draft-mutation actions.
type EditKind int

const (
	// EditReplaceGreeting replaces the draft's first line with a greeting.
	EditReplaceGreeting EditKind = iota
	// EditAppendSignature appends a signature block to the draft.
	EditAppendSignature
	// EditAppendContent appends the instruction text verbatim.
	EditAppendContent
)

func (k EditKind) String() string {
	switch k {
	case EditReplaceGreeting:
		return "replace_greeting"
	case EditAppendSignature:
		return "append_signature"
	case EditAppendContent:
		return "append_content"
	default:
		return "unknown"
	}
}

// EditAction is the classified form of one edit instruction. It is derived
// from an edit command's free-text slot and consumed immediately by
// ApplyEdit; it is never persisted.
type EditAction struct {
	Kind EditKind
	// Name is the recipient or signatory name, for greeting and signature
	// actions. Empty means the bare form is produced. Any string is accepted
	// as-is; the interpreter never validates grammar.
	Name string
	// Text is the verbatim content, for append-content actions.
	Text string
}

// Draft is the in-progress message body: an ordered sequence of lines, with
// the greeting conventionally at index 0 and the signature block trailing.
type Draft struct {
	Lines []string
}

// String renders the draft body.
func (d Draft) String() string {
	return strings.Join(d.Lines, "\n")
}

// EditInterpreter classifies edit instructions into EditActions.
type EditInterpreter struct {
	greetings   []string
	closings    []string
	timeWords   map[string]bool
	closingStop map[string]bool
}

// NewEditInterpreter builds an interpreter from the lexicon's edit tables.
func NewEditInterpreter(lex *lexicon.Document) *EditInterpreter {
	return &EditInterpreter{
		greetings:   lowerAll(lex.Edit.Greetings),
		closings:    lowerAll(lex.Edit.Closings),
		timeWords:   toSet(lex.Edit.TimeWords),
		closingStop: toSet(lex.Edit.ClosingStopWords),
	}
}

// Interpret classifies editText. Rules are tried in order on the lower-cased
// text, first match wins: greeting keyword → replace greeting, closing
// keyword → append signature, anything else → append verbatim. Interpret is
// total; there is no failure case.
func (i *EditInterpreter) Interpret(editText string) EditAction {
	trimmed := strings.TrimSpace(editText)
	lower := strings.ToLower(trimmed)

	if containsAny(lower, i.greetings) {
		return EditAction{Kind: EditReplaceGreeting, Name: trailingName(trimmed, i.timeWords)}
	}
	if containsAny(lower, i.closings) {
		return EditAction{Kind: EditAppendSignature, Name: trailingName(trimmed, i.closingStop)}
	}
	return EditAction{Kind: EditAppendContent, Text: trimmed}
}

// ApplyEdit returns a new Draft with the action applied; the input draft is
// left untouched.
func ApplyEdit(d Draft, a EditAction) Draft {
	lines := append([]string(nil), d.Lines...)

	switch a.Kind {
	case EditReplaceGreeting:
		greeting := "Добрый день!"
		if a.Name != "" {
			greeting = "Добрый день, " + a.Name + "!"
		}
		if len(lines) == 0 {
			lines = []string{greeting}
		} else {
			lines[0] = greeting
		}

	case EditAppendSignature:
		if a.Name != "" {
			lines = append(lines, "", "С уважением,", a.Name)
		} else {
			lines = append(lines, "", "С уважением")
		}

	case EditAppendContent:
		lines = append(lines, "", a.Text)
	}

	return Draft{Lines: lines}
}

// trailingName implements the last-token-as-name heuristic: the final
// whitespace-delimited token is the name only when the instruction has more
// than two tokens and the token is not in the stop set.
func trailingName(text string, stop map[string]bool) string {
	tokens := strings.Fields(text)
	if len(tokens) <= 2 {
		return ""
	}
	last := tokens[len(tokens)-1]
	if stop[strings.ToLower(last)] {
		return ""
	}
	return last
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}
