package judge

import (
	"strings"
	"testing"
)

func TestRenderHarnessPython(t *testing.T) {
	script, err := RenderHarness(LanguagePython, 5, 256)
	if err != nil {
		t.Fatalf("failed to render harness: %v", err)
	}

	if !strings.Contains(script, "TIME_LIMIT_SEC = 5") {
		t.Error("expected time limit to be substituted")
	}
	if !strings.Contains(script, "MEMORY_LIMIT_MB = 256") {
		t.Error("expected memory limit to be substituted")
	}
	if strings.Contains(script, "{{") {
		t.Error("unexpanded template action left in script")
	}
}

func TestRenderHarnessJavaScript(t *testing.T) {
	script, err := RenderHarness(LanguageJavaScript, 3, 128)
	if err != nil {
		t.Fatalf("failed to render harness: %v", err)
	}

	if !strings.Contains(script, "TIME_LIMIT_SEC = 3") {
		t.Error("expected time limit to be substituted")
	}
	if strings.Contains(script, "{{") {
		t.Error("unexpanded template action left in script")
	}
}

func TestRenderHarnessUnsupported(t *testing.T) {
	if _, err := RenderHarness("ruby", 5, 256); err == nil {
		t.Error("expected error for unsupported language")
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"python":     LanguagePython,
		"python3":    LanguagePython,
		"py":         LanguagePython,
		"":           LanguagePython,
		"javascript": LanguageJavaScript,
		"js":         LanguageJavaScript,
		"node":       LanguageJavaScript,
		"ruby":       "ruby",
	}

	for input, want := range cases {
		if got := NormalizeLanguage(input); got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSolutionFileName(t *testing.T) {
	if got := SolutionFileName(LanguagePython); got != "solution.py" {
		t.Errorf("unexpected python file name %q", got)
	}
	if got := SolutionFileName(LanguageJavaScript); got != "solution.js" {
		t.Errorf("unexpected javascript file name %q", got)
	}
}
