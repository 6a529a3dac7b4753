package lexicon_test

import (
	"strings"
	"testing"

	"github.com/vkatenev/glasha/common/spec/lexicon"
)

const minimalDoc = `
apiVersion: lexicon/v1
corrections:
  - { from: "добры день", to: "добрый день" }
fillers:
  verbs: [добавь]
  words: [туда]
contactExclusions: [контакт]
subject:
  prepositions: [о, об]
edit:
  greetings: [привет]
  closings: [с уважением]
`

func TestParse_Minimal(t *testing.T) {
	doc, err := lexicon.Parse([]byte(minimalDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.APIVersion != lexicon.SpecVersion {
		t.Errorf("apiVersion = %q", doc.APIVersion)
	}
	if len(doc.Corrections) != 1 || doc.Corrections[0].To != "добрый день" {
		t.Errorf("corrections not decoded: %+v", doc.Corrections)
	}
}

func TestParse_RejectsWrongVersion(t *testing.T) {
	bad := strings.Replace(minimalDoc, "lexicon/v1", "lexicon/v2", 1)
	if _, err := lexicon.Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for wrong apiVersion")
	}
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	bad := minimalDoc + "\nbogusSection: {}\n"
	if _, err := lexicon.Parse([]byte(bad)); err == nil {
		t.Fatal("expected schema error for unknown top-level key")
	}
}

func TestParse_RejectsSelfMapping(t *testing.T) {
	bad := strings.Replace(minimalDoc, `to: "добрый день"`, `to: "добры день"`, 1)
	if _, err := lexicon.Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for rule mapping a phrase to itself")
	}
}

func TestParse_RejectsSelfTriggeringRule(t *testing.T) {
	bad := strings.Replace(minimalDoc,
		`- { from: "добры день", to: "добрый день" }`,
		`- { from: "точка", to: "точка ру" }`, 1)
	_, err := lexicon.Parse([]byte(bad))
	if err == nil {
		t.Fatal("expected error for rule whose output contains its own source phrase")
	}
	if !strings.Contains(err.Error(), "re-triggers") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParse_RejectsMissingGreetings(t *testing.T) {
	bad := strings.Replace(minimalDoc, "greetings: [привет]\n", "", 1)
	if _, err := lexicon.Parse([]byte(bad)); err == nil {
		t.Fatal("expected error for missing edit.greetings")
	}
}

func TestDefault_IsValid(t *testing.T) {
	doc := lexicon.Default()

	// Spot-check the tables the pipeline depends on.
	if len(doc.ContactExclusions) == 0 {
		t.Error("default lexicon has no contact exclusions")
	}
	foundPlus7 := false
	for _, tok := range doc.ContactExclusions {
		if tok == "+7" {
			foundPlus7 = true
		}
	}
	if !foundPlus7 {
		t.Error("default lexicon is missing the +7 dialing-prefix exclusion")
	}
	if len(doc.Subject.Canonical) == 0 {
		t.Error("default lexicon has no canonical subject phrases")
	}
	if doc.Subject.Nominative["сдачи"] != "сдача" {
		t.Error("default lexicon is missing the сдачи→сдача nominative rule")
	}
}
