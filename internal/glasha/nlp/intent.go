// Package nlp implements the deterministic command-interpretation pipeline:
// transcription-error normalization, the ordered intent-pattern cascade with
// exclusion rules, slot extraction, subject formatting, and draft-edit
// classification.
//
// The pipeline resolves inflected, punctuation-sparse Russian chat commands
// into structured Commands without any language model. Every component is a
// pure transformation over strings and small structs; the only configuration
// is the lexicon document, loaded once and never mutated, so a single
// pipeline instance is safe for concurrent use across utterances.
package nlp

import (
	"regexp"
	"strings"

	"github.com/vkatenev/glasha/common/spec/lexicon"
)

// Intent is the classified purpose of an utterance.
type Intent string

const (
	IntentSendEmailByAddress Intent = "send_email_by_address"
	IntentSendEmailByName    Intent = "send_email_by_name"
	IntentAddContact         Intent = "add_contact"
	IntentEditDraft          Intent = "edit_draft"

	// IntentNone marks an unrecognized utterance. It is a normal outcome,
	// not an error: the caller falls back to help handling.
	IntentNone Intent = "none"
)

// Slot names used across the pattern cascade.
const (
	SlotEmail         = "email"
	SlotRecipientName = "recipient_name"
	SlotSubjectRaw    = "subject_raw"
	SlotBodyRaw       = "body_raw"
)

// Command is the structured result of interpreting one utterance.
type Command struct {
	Intent Intent
	// Slots maps slot name → trimmed value. Never nil.
	Slots map[string]string
	// Text is the normalized utterance the command was derived from.
	Text string
}

// slotSpec binds one capture group of a pattern to a named slot.
type slotSpec struct {
	group     int
	name      string
	mandatory bool
}

// intentPattern is one entry of the cascade. Insertion order is evaluation
// order and tie-break priority: the first pattern that matches wins.
type intentPattern struct {
	intent Intent
	re     *regexp.Regexp
	slots  []slotSpec
	// excludable marks patterns subject to the contact-exclusion scan.
	excludable bool
}

// Matcher evaluates the intent-pattern cascade against normalized text.
//
// The cascade is grouped by intent family: email-by-address with subject,
// email-by-address, email-by-recipient-name, contact-add, explicit draft
// edit. Matching is a case-insensitive substring search, first match wins,
// and a matched pattern whose mandatory slot comes up empty is treated as if
// it had not matched at all.
type Matcher struct {
	patterns   []intentPattern
	exclusions []string
	editLead   *regexp.Regexp
}

// Regexp fragments shared by the cascade.
const (
	emailRx = `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`
	nameRx  = `[А-ЯЁа-яё]+`

	// sendVerbs and mailNoun anchor the email families.
	sendVerbs = `(?:напиши|отправь|создай|составь|подготовь)`
	mailNoun  = `(?:письмо|сообщение|имейл|емейл|email)`

	// dashSep tolerates an optional dash/en-dash/em-dash between the address
	// and the subject preposition.
	dashSep = `\s*(?:[-–—]\s*)?`

	// subjectPrep treats "о" and "об" as one morphological variant ("об?")
	// rather than separate cascade entries.
	subjectPrep = `(?:об?|про|касательно)`
)

// NewMatcher builds the pattern cascade, taking the exclusion tokens and the
// edit-verb table from lex.
func NewMatcher(lex *lexicon.Document) *Matcher {
	editVerbs := `(?:` + alternation(lex.Fillers.Verbs) + `|убери)`

	exclusions := make([]string, 0, len(lex.ContactExclusions))
	for _, tok := range lex.ContactExclusions {
		exclusions = append(exclusions, strings.ToLower(tok))
	}

	patterns := []intentPattern{
		// Email to a literal address, with subject.
		{
			intent: IntentSendEmailByAddress,
			re: regexp.MustCompile(`(?i)` + sendVerbs + `\s+` + mailNoun +
				`\s+(?:на\s+|для\s+)?(` + emailRx + `)` + dashSep + subjectPrep + `\s+(.+)$`),
			slots: []slotSpec{
				{group: 1, name: SlotEmail, mandatory: true},
				{group: 2, name: SlotSubjectRaw, mandatory: true},
			},
		},
		// Email to a literal address, no subject given.
		{
			intent: IntentSendEmailByAddress,
			re: regexp.MustCompile(`(?i)` + sendVerbs + `\s+` + mailNoun +
				`\s+(?:на\s+|для\s+)?(` + emailRx + `)\s*$`),
			slots: []slotSpec{
				{group: 1, name: SlotEmail, mandatory: true},
			},
		},
		// Email to a contact by name, with subject.
		{
			intent: IntentSendEmailByName,
			re: regexp.MustCompile(`(?i)` + sendVerbs + `\s+` + mailNoun +
				`\s+(` + nameRx + `(?:\s+` + nameRx + `)?)` + dashSep + subjectPrep + `\s+(.+)$`),
			slots: []slotSpec{
				{group: 1, name: SlotRecipientName, mandatory: true},
				{group: 2, name: SlotSubjectRaw, mandatory: true},
			},
		},
		// Email to a contact by name, no subject.
		{
			intent: IntentSendEmailByName,
			re: regexp.MustCompile(`(?i)` + sendVerbs + `\s+` + mailNoun +
				`\s+(` + nameRx + `(?:\s+` + nameRx + `)?)\s*$`),
			slots: []slotSpec{
				{group: 1, name: SlotRecipientName, mandatory: true},
			},
		},
		// Address-book entry: "запомни почту Анны anna@mail.ru".
		{
			intent: IntentAddContact,
			re: regexp.MustCompile(`(?i)(?:запомни|сохрани|добавь)\s+(?:почту|адрес|имейл)\s+(` +
				nameRx + `)\s*[-–—:]?\s*(` + emailRx + `)\s*$`),
			slots: []slotSpec{
				{group: 1, name: SlotRecipientName, mandatory: true},
				{group: 2, name: SlotEmail, mandatory: true},
			},
			excludable: true,
		},
		// Address-book entry: "добавь Анну Петрову anna@mail.ru".
		{
			intent: IntentAddContact,
			re: regexp.MustCompile(`(?i)(?:добавь|запиши|сохрани)\s+(?:в\s+адресную\s+книгу\s+)?(` +
				nameRx + `(?:\s+` + nameRx + `)?)\s*[-–—:]?\s*(` + emailRx + `)\s*$`),
			slots: []slotSpec{
				{group: 1, name: SlotRecipientName, mandatory: true},
				{group: 2, name: SlotEmail, mandatory: true},
			},
			excludable: true,
		},
		// Draft edit with an explicit letter reference.
		{
			intent: IntentEditDraft,
			re:     regexp.MustCompile(`(?i)` + editVerbs + `\s+в\s+письм[ое]\s+(.+)$`),
			slots: []slotSpec{
				{group: 1, name: SlotBodyRaw, mandatory: true},
			},
		},
		// Greeting/signature replacement: "замени приветствие на ...".
		{
			intent: IntentEditDraft,
			re:     regexp.MustCompile(`(?i)(?:замени|поменяй|исправь|перепиши)\s+(?:приветствие|подпись)\s+(?:на\s+)?(.+)$`),
			slots: []slotSpec{
				{group: 1, name: SlotBodyRaw, mandatory: true},
			},
		},
	}

	editLead := regexp.MustCompile(`(?i)^` + editVerbs + `\s+(?:в\s+письм[ое]\s+)?(.+)$`)

	return &Matcher{patterns: patterns, exclusions: exclusions, editLead: editLead}
}

// Match runs the cascade against text and returns the resulting Command.
// No pattern matching is not an error: the Command carries IntentNone.
func (m *Matcher) Match(text string) Command {
	trimmed := strings.TrimSpace(text)
	none := Command{Intent: IntentNone, Slots: map[string]string{}, Text: trimmed}
	if trimmed == "" {
		return none
	}

	lower := strings.ToLower(trimmed)
	for _, p := range m.patterns {
		// The exclusion scan runs before the pattern is even tried: a phone
		// number or the word "контакт" in the utterance means the user is
		// dictating contact details, not managing the address book, so the
		// contact-add family is forced to fall through.
		if p.excludable && m.hasExclusion(lower) {
			continue
		}

		groups := p.re.FindStringSubmatch(trimmed)
		if groups == nil {
			continue
		}

		slots, ok := extractSlots(p.slots, groups)
		if !ok {
			// Mandatory slot empty after trimming: behave as if the pattern
			// had not matched and keep walking the cascade.
			continue
		}
		return Command{Intent: p.intent, Slots: slots, Text: trimmed}
	}
	return none
}

// EditText strips the leading edit verb (and an optional "в письмо") from an
// utterance, returning the bare edit instruction. ok is false when the text
// does not start with an edit verb; while a draft is in flight the caller
// then treats the whole text as the instruction.
func (m *Matcher) EditText(text string) (string, bool) {
	groups := m.editLead.FindStringSubmatch(strings.TrimSpace(text))
	if groups == nil {
		return "", false
	}
	payload := strings.TrimSpace(groups[1])
	return payload, payload != ""
}

func (m *Matcher) hasExclusion(lower string) bool {
	for _, tok := range m.exclusions {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// extractSlots maps capture groups to named slots, trimming whitespace.
// ok is false when a mandatory slot is empty.
func extractSlots(specs []slotSpec, groups []string) (map[string]string, bool) {
	slots := make(map[string]string, len(specs))
	for _, s := range specs {
		var v string
		if s.group < len(groups) {
			v = strings.TrimSpace(groups[s.group])
		}
		if v == "" {
			if s.mandatory {
				return nil, false
			}
			continue
		}
		slots[s.name] = v
	}
	return slots, true
}
