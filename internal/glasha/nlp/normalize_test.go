package nlp_test

import (
	"testing"

	"github.com/vkatenev/glasha/common/spec/lexicon"
	"github.com/vkatenev/glasha/internal/glasha/nlp"
)

func newNormalizer(t *testing.T) *nlp.Normalizer {
	t.Helper()
	return nlp.NewNormalizer(lexicon.Default())
}

func TestNormalize_CorrectionTable(t *testing.T) {
	n := newNormalizer(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "clipped greeting",
			input: "напиши добры день коллеги",
			want:  "напиши добрый день коллеги",
		},
		{
			name:  "clipped closing at end of input",
			input: "добавь с уважение",
			want:  "добавь с уважением",
		},
		{
			name:  "clipped closing mid-sentence",
			input: "добавь с уважение Петр",
			want:  "добавь с уважением Петр",
		},
		{
			name:  "correct closing is left alone",
			input: "добавь с уважением Петр",
			want:  "добавь с уважением Петр",
		},
		{
			name:  "period after closing becomes comma",
			input: "допиши с уважением.",
			want:  "допиши с уважением,",
		},
		{
			name:  "spoken email address",
			input: "напиши письмо alex собака яндекс точка ру",
			want:  "напиши письмо alex@yandex.ru",
		},
		{
			name:  "spelled-out email noun",
			input: "отправь и мейл ему",
			want:  "отправь имейл ему",
		},
		{
			name:  "rule never fires inside a name",
			input: "напиши Марии мейл",
			want:  "напиши Марии мейл",
		},
		{
			name:  "no rule applies",
			input: "какая сегодня погода",
			want:  "какая сегодня погода",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_FillerStripping(t *testing.T) {
	n := newNormalizer(t)

	tests := []struct {
		input string
		want  string
	}{
		{"добавь туда с уважением Петр", "добавь с уважением Петр"},
		{"добавь сюда подпись", "добавь подпись"},
		{"Добавь туда текст", "Добавь текст"},
		{"замени туда приветствие", "замени приветствие"},
		// Stuttered fillers collapse in one pass.
		{"добавь туда туда", "добавь"},
		{"добавь сюда туда текст", "добавь текст"},
		{"добавь туда сюда подпись", "добавь подпись"},
		// "туда" without a preceding command verb is meaningful text.
		{"положи туда отчет", "положи туда отчет"},
	}

	for _, tt := range tests {
		if got := n.Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newNormalizer(t)

	inputs := []string{
		"напиши добры день",
		"добавь с уважение Петр",
		"добавь туда с уважение",
		"напиши письмо alex собака яндекс точка ру об отчете",
		"с уважением.",
		"обычный текст без правок",
		"",
		// Repeated fillers and adjacent correction targets.
		"добавь туда туда",
		"добавь сюда туда текст",
		"добавь туда сюда подпись",
		"и мейл и мейл",
		"с уважение с уважение",
	}

	for _, input := range inputs {
		once := n.Normalize(input)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}
