package translator

import (
	"strings"
	"testing"
)

func TestBuildPromptReplacesLanguageNames(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("El sol salió.", "es", "en", "")

	if strings.Contains(prompt, "{source_lang}") || strings.Contains(prompt, "{target_lang}") {
		t.Fatal("placeholders were not replaced")
	}
	if !strings.Contains(prompt, "from Spanish to English") {
		t.Fatalf("language names missing from prompt:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "\n\nEl sol salió.") {
		t.Fatal("chapter text is not appended after a blank line")
	}
}

func TestBuildPromptInsertsGlossaryBetweenMarkers(t *testing.T) {
	t.Parallel()

	terms := "cultivador: cultivator\n- reino: realm\n\n"
	prompt := BuildPrompt("texto", "es", "en", terms)

	glossaryIdx := strings.Index(prompt, glossaryMarker)
	finalIdx := strings.Index(prompt, finalInstructionsMarker)
	if glossaryIdx < 0 || finalIdx < glossaryIdx {
		t.Fatal("glossary markers out of order")
	}

	block := prompt[glossaryIdx+len(glossaryMarker) : finalIdx]
	if !strings.Contains(block, "- cultivador: cultivator") {
		t.Fatalf("unbulleted entry not normalized:\n%s", block)
	}
	if !strings.Contains(block, "- reino: realm") {
		t.Fatalf("bulleted entry missing:\n%s", block)
	}
}

func TestBuildPromptWithoutTermsKeepsTemplate(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("texto", "es", "en", "  \n \n")
	if !strings.Contains(prompt, glossaryMarker) {
		t.Fatal("template glossary section was removed")
	}

	glossaryIdx := strings.Index(prompt, glossaryMarker)
	finalIdx := strings.Index(prompt, finalInstructionsMarker)
	between := strings.TrimSpace(prompt[glossaryIdx+len(glossaryMarker) : finalIdx])
	if between != "" {
		t.Fatalf("unexpected glossary content: %q", between)
	}
}

func TestCleanTranslationStripsPromptEcho(t *testing.T) {
	t.Parallel()

	raw := "- Preserve the tone\nRequirements: do things\nTranslation:\nThe sun rose.\n- not a bullet anymore\n"
	got := CleanTranslation(raw)
	want := "The sun rose.\n- not a bullet anymore"
	if got != want {
		t.Fatalf("unexpected cleaned text:\ngot  %q\nwant %q", got, want)
	}
}

func TestCleanTranslationKeepsCleanText(t *testing.T) {
	t.Parallel()

	raw := "The sun rose over the valley.\n\nBirds sang."
	if got := CleanTranslation(raw); got != raw {
		t.Fatalf("clean text was altered: %q", got)
	}
}
