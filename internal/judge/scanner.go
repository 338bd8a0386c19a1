package judge

import (
	"fmt"
	"regexp"
)

// Violation describes a forbidden construct found in submitted code
type Violation struct {
	Pattern string
	Match   string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("forbidden construct: %s", v.Match)
}

type scanRule struct {
	name    string
	pattern *regexp.Regexp
}

var pythonRules = []scanRule{
	{"system import", regexp.MustCompile(`(?m)^\s*import\s+(os|sys|subprocess|socket|shutil|pathlib|ctypes|multiprocessing|threading|importlib|urllib|http|requests|ftplib|telnetlib)\b`)},
	{"system import", regexp.MustCompile(`(?m)^\s*from\s+(os|sys|subprocess|socket|shutil|pathlib|ctypes|multiprocessing|threading|importlib|urllib|http|requests)\b`)},
	{"dynamic import", regexp.MustCompile(`__import__\s*\(`)},
	{"dynamic eval", regexp.MustCompile(`\beval\s*\(`)},
	{"dynamic exec", regexp.MustCompile(`\bexec\s*\(`)},
	{"file access", regexp.MustCompile(`\bopen\s*\(`)},
	{"interpreter internals", regexp.MustCompile(`\b(globals|locals|vars|compile|breakpoint)\s*\(`)},
	{"attribute escape", regexp.MustCompile(`__(subclasses|bases|mro|globals|builtins)__`)},
}

var javascriptRules = []scanRule{
	{"module require", regexp.MustCompile(`require\s*\(\s*['"](fs|child_process|net|http|https|os|path|worker_threads|cluster|dgram|dns|tls|vm|module|process)['"]`)},
	{"module import", regexp.MustCompile(`(?m)^\s*import\b.*['"](fs|child_process|net|http|https|os|path|worker_threads|node:)`)},
	{"process access", regexp.MustCompile(`process\s*\.\s*(exit|env|kill|binding|mainModule)`)},
	{"dynamic eval", regexp.MustCompile(`\beval\s*\(`)},
	{"function constructor", regexp.MustCompile(`new\s+Function\s*\(`)},
	{"network access", regexp.MustCompile(`\b(fetch|XMLHttpRequest|WebSocket)\s*\(`)},
	{"global escape", regexp.MustCompile(`\bglobalThis\s*\.`)},
}

// Scan checks submitted code for forbidden patterns before execution.
// Returns nil when the code is clean.
func Scan(code, language string) *Violation {
	var rules []scanRule
	switch language {
	case LanguagePython:
		rules = pythonRules
	case LanguageJavaScript:
		rules = javascriptRules
	default:
		return nil
	}

	for _, rule := range rules {
		if match := rule.pattern.FindString(code); match != "" {
			return &Violation{Pattern: rule.name, Match: match}
		}
	}

	return nil
}
