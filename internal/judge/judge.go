package judge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"codeduel/internal/models"
)

// ErrorCategory classifies why a run failed
type ErrorCategory string

const (
	CategoryCompileError      ErrorCategory = "CompileError"
	CategoryRuntimeError      ErrorCategory = "RuntimeError"
	CategoryTimeLimit         ErrorCategory = "TimeLimit"
	CategoryMemoryLimit       ErrorCategory = "MemoryLimit"
	CategoryWrongAnswer       ErrorCategory = "WrongAnswer"
	CategorySystemError       ErrorCategory = "SystemError"
	CategorySecurityViolation ErrorCategory = "SecurityViolation"
)

// ErrRateLimited is returned when a user exceeds their execution quota
var ErrRateLimited = errors.New("execution rate limit exceeded")

// Request describes one grading run
type Request struct {
	Code         string
	Language     string
	FunctionName string
	ProblemType  string
	Cases        []models.TestCase
}

// CaseResult is the outcome of a single test case
type CaseResult struct {
	Index    int           `json:"index"`
	Passed   bool          `json:"passed"`
	Executed bool          `json:"executed"`
	Hidden   bool          `json:"hidden"`
	Input    interface{}   `json:"input,omitempty"`
	Expected interface{}   `json:"expected,omitempty"`
	Actual   interface{}   `json:"actual,omitempty"`
	Error    string        `json:"error,omitempty"`
	Category ErrorCategory `json:"category,omitempty"`
	TimeMs   int64         `json:"time_ms"`
}

// Result is the outcome of a full grading run
type Result struct {
	Passed          int           `json:"passed"`
	Failed          int           `json:"failed"`
	Total           int           `json:"total"`
	Category        ErrorCategory `json:"category,omitempty"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	ExecutionTimeMs int64         `json:"execution_time_ms"`
	Cases           []CaseResult  `json:"cases"`
}

// AllPassed reports whether every case ran and passed
func (r *Result) AllPassed() bool {
	return r.Total > 0 && r.Passed == r.Total
}

// Redacted returns a copy safe to send to clients: hidden cases keep their
// pass/fail verdict but lose input, expected and actual values.
func (r *Result) Redacted() *Result {
	out := *r
	out.Cases = make([]CaseResult, len(r.Cases))
	copy(out.Cases, r.Cases)
	for i := range out.Cases {
		if out.Cases[i].Hidden {
			out.Cases[i].Input = nil
			out.Cases[i].Expected = nil
			out.Cases[i].Actual = nil
		}
	}
	return &out
}

// Options configures a Judge
type Options struct {
	TimeLimitSec     int
	MemoryLimitMB    int
	RateLimitPerMin  int
	SandboxImage     string
	SandboxImageNode string
}

// Judge runs untrusted code against test cases in an isolated sandbox
type Judge struct {
	runners       []Runner
	limiter       *RateLimiter
	timeLimitSec  int
	memoryLimitMB int
}

func New(opts Options) *Judge {
	if opts.TimeLimitSec <= 0 {
		opts.TimeLimitSec = 5
	}
	if opts.MemoryLimitMB <= 0 {
		opts.MemoryLimitMB = 256
	}
	if opts.SandboxImage == "" {
		opts.SandboxImage = "python:3.11-alpine"
	}
	if opts.SandboxImageNode == "" {
		opts.SandboxImageNode = "node:20-alpine"
	}

	var runners []Runner
	if dockerAvailable() {
		runners = append(runners, newContainerRunner(opts.SandboxImage, opts.SandboxImageNode, opts.MemoryLimitMB))
	} else {
		log.Printf("[Judge] docker not found in PATH, falling back to subprocess sandbox")
	}
	runners = append(runners, newSubprocessRunner(opts.MemoryLimitMB))

	return &Judge{
		runners:       runners,
		limiter:       NewRateLimiter(opts.RateLimitPerMin),
		timeLimitSec:  opts.TimeLimitSec,
		memoryLimitMB: opts.MemoryLimitMB,
	}
}

// Grade executes the submitted code against the given cases and compares
// outputs. A nil error with a failing Result is a normal judged outcome;
// a non-nil error means the sandbox itself failed and the run may be retried.
func (j *Judge) Grade(ctx context.Context, userID uint, req Request) (*Result, error) {
	if !j.limiter.Allow(userID) {
		return nil, ErrRateLimited
	}
	return j.Run(ctx, req)
}

// Run is Grade without the per-user rate limit, for system-initiated runs
// such as validating generated reference solutions.
func (j *Judge) Run(ctx context.Context, req Request) (*Result, error) {
	language := NormalizeLanguage(req.Language)
	if language != LanguagePython && language != LanguageJavaScript {
		return nil, fmt.Errorf("unsupported language: %s", req.Language)
	}
	if len(req.Cases) == 0 {
		return nil, fmt.Errorf("no test cases to run")
	}

	if violation := Scan(req.Code, language); violation != nil {
		result := newResult(req)
		result.Category = CategorySecurityViolation
		result.ErrorMessage = violation.Error()
		result.Failed = result.Total
		return result, nil
	}

	workDir, err := j.prepareWorkDir(req.Code, language)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare sandbox dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	stdin, err := encodePayload(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode harness payload: %w", err)
	}

	// Per-case limits are enforced inside the harness. The outer deadline is
	// the absolute backstop for the whole batch plus startup overhead.
	deadline := time.Duration(j.timeLimitSec*len(req.Cases)+2) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var output []byte
	var runErr error
	for _, runner := range j.runners {
		output, runErr = runner.Run(runCtx, workDir, language, stdin)
		if errors.Is(runErr, ErrUnavailable) {
			log.Printf("[Judge] %s runner unavailable: %v", runner.Name(), runErr)
			continue
		}
		break
	}
	if errors.Is(runErr, ErrUnavailable) {
		return nil, fmt.Errorf("no sandbox runner available: %w", runErr)
	}

	return j.interpret(req, output, runErr, runCtx.Err())
}

func (j *Judge) prepareWorkDir(code, language string) (string, error) {
	harness, err := RenderHarness(language, j.timeLimitSec, j.memoryLimitMB)
	if err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp("", "judge-")
	if err != nil {
		return "", err
	}

	harnessName := "harness.py"
	if language == LanguageJavaScript {
		harnessName = "harness.js"
	}
	if err := os.WriteFile(filepath.Join(dir, harnessName), []byte(harness), 0o644); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, SolutionFileName(language)), []byte(code), 0o644); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

type harnessPayload struct {
	FunctionName string        `json:"function_name"`
	Cases        []harnessCase `json:"cases"`
}

type harnessCase struct {
	Input interface{} `json:"input"`
}

func encodePayload(req Request) ([]byte, error) {
	payload := harnessPayload{FunctionName: req.FunctionName, Cases: make([]harnessCase, len(req.Cases))}
	for i, tc := range req.Cases {
		payload.Cases[i] = harnessCase{Input: tc.Input}
	}
	return json.Marshal(payload)
}

type harnessLine struct {
	I        *int            `json:"i"`
	OK       bool            `json:"ok"`
	Actual   json.RawMessage `json:"actual"`
	TimeMs   int64           `json:"time_ms"`
	Error    string          `json:"error"`
	Category string          `json:"category"`
	Fatal    string          `json:"fatal"`
	Done     bool            `json:"done"`
}

func newResult(req Request) *Result {
	result := &Result{Total: len(req.Cases), Cases: make([]CaseResult, len(req.Cases))}
	for i, tc := range req.Cases {
		result.Cases[i] = CaseResult{
			Index:    i,
			Hidden:   tc.Hidden,
			Input:    tc.Input,
			Expected: tc.ExpectedOutput,
		}
	}
	return result
}

// interpret turns raw harness output into a Result. Output is newline
// delimited JSON; a missing "done" line means the process was cut short.
func (j *Judge) interpret(req Request, output []byte, runErr, ctxErr error) (*Result, error) {
	result := newResult(req)
	orderInsensitive := strings.Contains(strings.ToLower(req.ProblemType), "set")

	sawDone := false
	sawAny := false

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), maxOutputBytes+1)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var parsed harnessLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			continue
		}
		sawAny = true

		if parsed.Fatal != "" {
			return j.interpretFatal(result, parsed)
		}
		if parsed.Done {
			sawDone = true
			continue
		}
		if parsed.I == nil || *parsed.I < 0 || *parsed.I >= len(result.Cases) {
			continue
		}

		cr := &result.Cases[*parsed.I]
		cr.Executed = true
		cr.TimeMs = parsed.TimeMs
		result.ExecutionTimeMs += parsed.TimeMs

		if parsed.OK {
			var actual interface{}
			if err := json.Unmarshal(parsed.Actual, &actual); err != nil {
				cr.Error = "unreadable output"
				cr.Category = CategoryRuntimeError
				continue
			}
			cr.Actual = actual
			if Equal(CoerceValue(cr.Expected), actual, orderInsensitive) {
				cr.Passed = true
			} else {
				cr.Error = "wrong answer"
				cr.Category = CategoryWrongAnswer
			}
		} else {
			cr.Error = parsed.Error
			cr.Category = mapHarnessCategory(parsed.Category)
		}
	}

	if !sawAny {
		if ctxErr != nil {
			markUnexecuted(result, 0, CategoryTimeLimit, "time limit exceeded")
			return finalize(result), nil
		}
		return nil, fmt.Errorf("sandbox produced no output: %v", firstErr(runErr, errors.New("empty stdout")))
	}

	if !sawDone {
		idx := firstUnexecuted(result)
		switch {
		case ctxErr != nil:
			markUnexecuted(result, idx, CategoryTimeLimit, "time limit exceeded")
		case exitCode(runErr) == 137:
			markUnexecuted(result, idx, CategoryMemoryLimit, "memory limit exceeded")
		default:
			return nil, fmt.Errorf("sandbox terminated before finishing: %v", firstErr(runErr, errors.New("truncated output")))
		}
	}

	return finalize(result), nil
}

func (j *Judge) interpretFatal(result *Result, parsed harnessLine) (*Result, error) {
	switch parsed.Category {
	case "compile":
		result.Category = CategoryCompileError
	case "runtime":
		result.Category = CategoryRuntimeError
	default:
		return nil, fmt.Errorf("sandbox failure: %s", parsed.Fatal)
	}
	result.ErrorMessage = parsed.Fatal
	result.Failed = result.Total
	return result, nil
}

func mapHarnessCategory(category string) ErrorCategory {
	switch category {
	case "timeout":
		return CategoryTimeLimit
	case "memory":
		return CategoryMemoryLimit
	case "compile":
		return CategoryCompileError
	default:
		return CategoryRuntimeError
	}
}

func firstUnexecuted(result *Result) int {
	for i := range result.Cases {
		if !result.Cases[i].Executed {
			return i
		}
	}
	return -1
}

func markUnexecuted(result *Result, index int, category ErrorCategory, message string) {
	if index < 0 || index >= len(result.Cases) {
		return
	}
	cr := &result.Cases[index]
	cr.Executed = true
	cr.Error = message
	cr.Category = category
}

// finalize computes the aggregate counts and overall category from the
// first failing case in index order.
func finalize(result *Result) *Result {
	for i := range result.Cases {
		cr := &result.Cases[i]
		if cr.Passed {
			result.Passed++
			continue
		}
		if result.Category == "" && cr.Category != "" {
			result.Category = cr.Category
			result.ErrorMessage = cr.Error
		}
	}
	result.Failed = result.Total - result.Passed
	return result
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 0
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
