package problems

import (
	"context"
	"testing"

	"codeduel/internal/llm"
	"codeduel/internal/models"

	"github.com/google/uuid"
)

func fallbackGenerator() *Generator {
	// no API key means the LLM path is skipped entirely
	return NewGenerator(llm.NewClient("", "claude-3-5-sonnet-latest"), nil)
}

func TestGenerateFallsBackWithoutLLM(t *testing.T) {
	g := fallbackGenerator()

	problem, err := g.Generate(context.Background(), GenerateRequest{
		Difficulty:  models.DifficultyEasy,
		ProblemType: "array",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if problem.Difficulty != models.DifficultyEasy {
		t.Errorf("expected easy problem, got %s", problem.Difficulty)
	}
	if problem.Source != models.ProblemSourceCurated {
		t.Errorf("expected curated source, got %s", problem.Source)
	}
	if problem.ID == uuid.Nil {
		t.Error("expected a fresh problem ID")
	}
}

func TestGenerateFallbackHonorsExclusions(t *testing.T) {
	g := fallbackGenerator()

	var easyArray string
	for _, p := range CuratedProblems() {
		if p.Difficulty == models.DifficultyEasy && p.ProblemType == "array" {
			easyArray = p.Fingerprint
		}
	}
	if easyArray == "" {
		t.Fatal("expected an easy array problem in the library")
	}

	problem, err := g.Generate(context.Background(), GenerateRequest{
		Difficulty:           models.DifficultyEasy,
		ProblemType:          "array",
		ExcludedFingerprints: []string{easyArray},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if problem.Fingerprint == easyArray {
		t.Error("expected the excluded problem to be skipped")
	}
	if problem.Difficulty != models.DifficultyEasy {
		t.Errorf("expected easy problem, got %s", problem.Difficulty)
	}
}

func TestGenerateFallbackExhaustedPoolRelaxes(t *testing.T) {
	g := fallbackGenerator()

	var allEasy []string
	for _, p := range CuratedProblems() {
		if p.Difficulty == models.DifficultyEasy {
			allEasy = append(allEasy, p.Fingerprint)
		}
	}

	// every easy problem already seen: selection relaxes rather than failing
	problem, err := g.Generate(context.Background(), GenerateRequest{
		Difficulty:           models.DifficultyEasy,
		ProblemType:          "array",
		ExcludedFingerprints: allEasy,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if problem.Difficulty != models.DifficultyEasy {
		t.Errorf("expected easy problem even from an exhausted pool, got %s", problem.Difficulty)
	}
}

func TestValidateSchema(t *testing.T) {
	valid := func() *generatedProblem {
		return &generatedProblem{
			Title:        "Sample",
			Description:  "A sample problem",
			FunctionName: "sample",
			StarterCode:  map[string]string{"python": "def sample(x):\n    pass\n"},
			TestCases: []generatedCase{
				{Input: []interface{}{1}, ExpectedOutput: 1},
				{Input: []interface{}{2}, ExpectedOutput: 2},
				{Input: []interface{}{3}, ExpectedOutput: 3, Hidden: true},
				{Input: []interface{}{4}, ExpectedOutput: 4, Hidden: true},
				{Input: []interface{}{5}, ExpectedOutput: 5, Hidden: true},
			},
			ReferenceSolution: "def sample(x):\n    return x\n",
		}
	}

	if err := validateSchema(valid()); err != nil {
		t.Fatalf("expected valid schema to pass, got %v", err)
	}

	broken := valid()
	broken.Title = ""
	if err := validateSchema(broken); err == nil {
		t.Error("expected missing title to fail")
	}

	broken = valid()
	broken.StarterCode = map[string]string{"javascript": "function sample(x) {}"}
	if err := validateSchema(broken); err == nil {
		t.Error("expected missing python starter to fail")
	}

	broken = valid()
	broken.TestCases = broken.TestCases[:4]
	if err := validateSchema(broken); err == nil {
		t.Error("expected fewer than 5 cases to fail")
	}

	broken = valid()
	broken.TestCases[1].Hidden = true
	if err := validateSchema(broken); err == nil {
		t.Error("expected fewer than 2 visible cases to fail")
	}

	broken = valid()
	broken.TestCases[2].Hidden = false
	if err := validateSchema(broken); err == nil {
		t.Error("expected fewer than 3 hidden cases to fail")
	}

	broken = valid()
	broken.ReferenceSolution = "  "
	if err := validateSchema(broken); err == nil {
		t.Error("expected missing reference solution to fail")
	}
}
