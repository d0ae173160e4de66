package gemini

import (
	"strings"
	"testing"

	"github.com/example/wastewise/internal/waste"
)

func TestClassificationPromptListsEveryCategory(t *testing.T) {
	prompt := classificationPrompt()

	for _, name := range waste.CategoryNames() {
		if !strings.Contains(prompt, name) {
			t.Errorf("prompt is missing category %q", name)
		}
	}
	if !strings.Contains(prompt, "ONLY valid JSON") {
		t.Error("prompt must demand a JSON-only reply")
	}
}

func TestEducationPromptNamesCategory(t *testing.T) {
	prompt := educationPrompt(waste.CategoryEWaste)

	if !strings.Contains(prompt, string(waste.CategoryEWaste)) {
		t.Errorf("prompt does not mention the category: %s", prompt)
	}
	if !strings.Contains(prompt, `"facts"`) {
		t.Error("prompt must request the facts schema")
	}
}
