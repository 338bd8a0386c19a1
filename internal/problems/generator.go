package problems

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"codeduel/internal/judge"
	"codeduel/internal/llm"
	"codeduel/internal/models"

	"github.com/google/uuid"
)

const maxGenerateAttempts = 3

// Categories are the problem types a duel can request
var Categories = []string{
	"array",
	"string",
	"hash_map",
	"two_pointers",
	"dynamic_programming",
	"graph",
	"tree",
}

// RandomCategory picks a category for requests that leave the type open
func RandomCategory() string {
	return Categories[rand.Intn(len(Categories))]
}

// SolutionRunner executes candidate code against test cases. Satisfied by
// the judge; narrowed to an interface so generator tests can stub it.
type SolutionRunner interface {
	Run(ctx context.Context, req judge.Request) (*judge.Result, error)
}

// GenerateRequest describes the problem to synthesize and what to avoid
type GenerateRequest struct {
	Difficulty           models.Difficulty
	ProblemType          string
	ExcludedTitles       []string
	ExcludedFunctions    []string
	ExcludedFingerprints []string
}

// Generator produces validated problems, preferring LLM synthesis and
// falling back to the curated library.
type Generator struct {
	llm    *llm.Client
	runner SolutionRunner
}

func NewGenerator(client *llm.Client, runner SolutionRunner) *Generator {
	return &Generator{llm: client, runner: runner}
}

// Generate returns a problem matching the request. LLM output is only
// accepted once its reference solution passes every generated test case;
// after three failed attempts the curated library serves instead.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*models.Problem, error) {
	if g.llm != nil && g.llm.Available() {
		for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			problem, err := g.generateOnce(ctx, req)
			if err == nil {
				log.Printf("[ProblemGen] generated %q (%s/%s) on attempt %d",
					problem.Title, req.Difficulty, req.ProblemType, attempt)
				return problem, nil
			}
			log.Printf("[ProblemGen] attempt %d/%d failed: %v", attempt, maxGenerateAttempts, err)
		}
		log.Printf("[ProblemGen] generation exhausted, falling back to curated library")
	}
	return g.fallback(req)
}

type generatedProblem struct {
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	FunctionName      string            `json:"function_name"`
	StarterCode       map[string]string `json:"starter_code"`
	TestCases         []generatedCase   `json:"test_cases"`
	Constraints       []string          `json:"constraints"`
	Hints             []string          `json:"hints"`
	ReferenceSolution string            `json:"reference_solution"`
}

type generatedCase struct {
	Input          interface{} `json:"input"`
	ExpectedOutput interface{} `json:"expected_output"`
	Hidden         bool        `json:"hidden"`
}

func (g *Generator) generateOnce(ctx context.Context, req GenerateRequest) (*models.Problem, error) {
	response, err := g.llm.Complete(ctx, buildPrompt(req))
	if err != nil {
		return nil, err
	}

	jsonText, err := llm.ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	var parsed generatedProblem
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("response is not valid problem JSON: %w", err)
	}
	if err := validateSchema(&parsed); err != nil {
		return nil, err
	}

	cases := make(models.TestCaseList, len(parsed.TestCases))
	for i, tc := range parsed.TestCases {
		cases[i] = models.TestCase{Input: tc.Input, ExpectedOutput: tc.ExpectedOutput, Hidden: tc.Hidden}
	}

	// The reference solution must pass every case before the problem is
	// accepted, otherwise a broken problem would poison the pool.
	result, err := g.runner.Run(ctx, judge.Request{
		Code:         parsed.ReferenceSolution,
		Language:     judge.LanguagePython,
		FunctionName: parsed.FunctionName,
		ProblemType:  req.ProblemType,
		Cases:        cases,
	})
	if err != nil {
		return nil, fmt.Errorf("reference validation could not run: %w", err)
	}
	if !result.AllPassed() {
		return nil, fmt.Errorf("reference solution failed %d/%d cases (%s)",
			result.Failed, result.Total, result.Category)
	}

	fingerprint := Fingerprint(parsed.Title, parsed.FunctionName,
		ParamSignature(parsed.StarterCode, parsed.FunctionName), parsed.Description)
	for _, excluded := range req.ExcludedFingerprints {
		if excluded == fingerprint {
			return nil, fmt.Errorf("generated a problem the players already saw")
		}
	}

	return &models.Problem{
		ID:                uuid.New(),
		Title:             strings.TrimSpace(parsed.Title),
		Description:       strings.TrimSpace(parsed.Description),
		Difficulty:        req.Difficulty,
		ProblemType:       req.ProblemType,
		FunctionName:      strings.TrimSpace(parsed.FunctionName),
		Fingerprint:       fingerprint,
		StarterCode:       models.StringMap(parsed.StarterCode),
		TestCases:         cases,
		Constraints:       models.StringList(parsed.Constraints),
		Hints:             models.StringList(parsed.Hints),
		ReferenceSolution: &parsed.ReferenceSolution,
		Source:            models.ProblemSourceGenerated,
	}, nil
}

func validateSchema(p *generatedProblem) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("missing title")
	}
	if strings.TrimSpace(p.Description) == "" {
		return fmt.Errorf("missing description")
	}
	if strings.TrimSpace(p.FunctionName) == "" {
		return fmt.Errorf("missing function_name")
	}
	if strings.TrimSpace(p.ReferenceSolution) == "" {
		return fmt.Errorf("missing reference_solution")
	}
	if strings.TrimSpace(p.StarterCode["python"]) == "" {
		return fmt.Errorf("missing python starter code")
	}

	if len(p.TestCases) < 5 {
		return fmt.Errorf("need at least 5 test cases, got %d", len(p.TestCases))
	}
	visible, hidden := 0, 0
	for _, tc := range p.TestCases {
		if tc.Hidden {
			hidden++
		} else {
			visible++
		}
	}
	if visible < 2 {
		return fmt.Errorf("need at least 2 visible test cases, got %d", visible)
	}
	if hidden < 3 {
		return fmt.Errorf("need at least 3 hidden test cases, got %d", hidden)
	}

	return nil
}

func buildPrompt(req GenerateRequest) string {
	var sb strings.Builder

	sb.WriteString("You are generating an algorithmic problem for a timed competitive coding duel.\n\n")
	sb.WriteString("Difficulty: ")
	sb.WriteString(string(req.Difficulty))
	sb.WriteString("\nCategory: ")
	sb.WriteString(req.ProblemType)
	sb.WriteString("\n\n")

	if len(req.ExcludedTitles) > 0 {
		sb.WriteString("The players have already seen these problems, generate something different:\n")
		sb.WriteString("Titles: ")
		sb.WriteString(strings.Join(req.ExcludedTitles, ", "))
		sb.WriteString("\n")
	}
	if len(req.ExcludedFunctions) > 0 {
		sb.WriteString("Function names to avoid: ")
		sb.WriteString(strings.Join(req.ExcludedFunctions, ", "))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("Return a single JSON object with exactly these fields:\n")
	sb.WriteString("- title: short problem name\n")
	sb.WriteString("- description: full problem statement, 3 to 6 sentences\n")
	sb.WriteString("- function_name: snake_case name of the entry function\n")
	sb.WriteString("- starter_code: object with \"python\" and \"javascript\" skeletons defining the function signature with an empty body\n")
	sb.WriteString("- test_cases: array of at least 6 objects {input, expected_output, hidden}; input is the JSON array of arguments passed to the function; at least 2 cases with hidden=false and at least 3 with hidden=true; cover normal, empty, single-element, large, and edge inputs\n")
	sb.WriteString("- constraints: array of constraint strings\n")
	sb.WriteString("- hints: array of 1-3 hint strings\n")
	sb.WriteString("- reference_solution: a complete python solution defining function_name that passes every test case\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("- every expected_output must be exactly what the reference solution returns for that input\n")
	sb.WriteString("- the reference solution may only use the python standard library, and must not import os, sys, or subprocess\n")
	sb.WriteString("- the problem must be solvable in under 30 minutes at the stated difficulty\n\n")

	sb.WriteString("Return ONLY the JSON object, with no additional text.")

	return sb.String()
}

// fallback picks from the curated library, honoring exclusions while any
// unseen problem of the difficulty remains.
func (g *Generator) fallback(req GenerateRequest) (*models.Problem, error) {
	library := CuratedProblems()

	excluded := make(map[string]bool, len(req.ExcludedFingerprints))
	for _, fp := range req.ExcludedFingerprints {
		excluded[fp] = true
	}

	var sameDifficulty []models.Problem
	var fresh []models.Problem
	var freshSameType []models.Problem
	for _, p := range library {
		if p.Difficulty != req.Difficulty {
			continue
		}
		sameDifficulty = append(sameDifficulty, p)
		if excluded[p.Fingerprint] {
			continue
		}
		fresh = append(fresh, p)
		if p.ProblemType == req.ProblemType {
			freshSameType = append(freshSameType, p)
		}
	}

	pool := freshSameType
	if len(pool) == 0 {
		pool = fresh
	}
	if len(pool) == 0 {
		// every curated problem of this difficulty was already seen
		log.Printf("[ProblemGen] curated pool exhausted for %s, reusing a seen problem", req.Difficulty)
		pool = sameDifficulty
	}
	if len(pool) == 0 {
		pool = library
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("curated library is empty")
	}

	problem := pool[rand.Intn(len(pool))]
	problem.ID = uuid.New()
	return &problem, nil
}
