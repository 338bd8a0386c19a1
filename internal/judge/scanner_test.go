package judge

import "testing"

func TestScanPythonBlocked(t *testing.T) {
	blocked := []string{
		"import os\nprint(os.listdir('/'))",
		"import subprocess\nsubprocess.run(['ls'])",
		"from os import path",
		"__import__('socket')",
		"eval('1+1')",
		"exec('x = 1')",
		"open('/etc/passwd')",
		"x = globals()",
	}

	for _, code := range blocked {
		if violation := Scan(code, LanguagePython); violation == nil {
			t.Errorf("expected violation for %q", code)
		}
	}
}

func TestScanPythonAllowed(t *testing.T) {
	allowed := []string{
		"def two_sum(nums, target):\n    seen = {}\n    for i, n in enumerate(nums):\n        if target - n in seen:\n            return [seen[target - n], i]\n        seen[n] = i\n    return []",
		"import math\n\ndef area(r):\n    return math.pi * r * r",
		"import collections\n\ndef count(words):\n    return collections.Counter(words)",
		"# a comment mentioning files is fine\ndef solve(x):\n    return x",
	}

	for _, code := range allowed {
		if violation := Scan(code, LanguagePython); violation != nil {
			t.Errorf("unexpected violation %v for %q", violation, code)
		}
	}
}

func TestScanJavaScriptBlocked(t *testing.T) {
	blocked := []string{
		"const fs = require('fs');",
		"require(\"child_process\").execSync('ls')",
		"process.exit(1)",
		"process.env.SECRET",
		"eval('1+1')",
		"new Function('return 1')()",
		"fetch('http://example.com')",
	}

	for _, code := range blocked {
		if violation := Scan(code, LanguageJavaScript); violation == nil {
			t.Errorf("expected violation for %q", code)
		}
	}
}

func TestScanJavaScriptAllowed(t *testing.T) {
	allowed := []string{
		"function twoSum(nums, target) {\n  const seen = new Map();\n  for (let i = 0; i < nums.length; i++) {\n    if (seen.has(target - nums[i])) return [seen.get(target - nums[i]), i];\n    seen.set(nums[i], i);\n  }\n  return [];\n}",
		"const solve = (x) => Math.max(x, 0);\nfunction main(x) { return solve(x); }",
	}

	for _, code := range allowed {
		if violation := Scan(code, LanguageJavaScript); violation != nil {
			t.Errorf("unexpected violation %v for %q", violation, code)
		}
	}
}

func TestScanReportsPattern(t *testing.T) {
	violation := Scan("import os", LanguagePython)
	if violation == nil {
		t.Fatal("expected violation")
	}
	if violation.Match == "" {
		t.Error("expected violation to carry the matched text")
	}
	if violation.Error() == "" {
		t.Error("expected violation to format an error message")
	}
}
