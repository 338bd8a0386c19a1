package problems

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// NormalizeTitle lowercases a title and collapses runs of whitespace
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// Fingerprint derives the deterministic 32-hex identity digest of a problem
// from its normalized title, function name, parameter signature, and the
// first 100 characters of its description.
func Fingerprint(title, functionName, paramSignature, description string) string {
	if len(description) > 100 {
		description = description[:100]
	}
	seed := fmt.Sprintf("%s|%s|%s|%s",
		NormalizeTitle(title),
		strings.ToLower(strings.TrimSpace(functionName)),
		paramSignature,
		description,
	)
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])
}

var (
	pythonDefPattern = regexp.MustCompile(`def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`)
	jsFuncPattern    = regexp.MustCompile(`function\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*\(([^)]*)\)`)
)

// ParamSignature extracts a normalized parameter list from starter code,
// preferring the python variant. Returns "" when nothing can be parsed.
func ParamSignature(starterCode map[string]string, functionName string) string {
	if source, ok := starterCode["python"]; ok {
		if sig := matchParams(pythonDefPattern, source, functionName); sig != "" {
			return sig
		}
	}
	if source, ok := starterCode["javascript"]; ok {
		if sig := matchParams(jsFuncPattern, source, functionName); sig != "" {
			return sig
		}
	}
	return ""
}

func matchParams(pattern *regexp.Regexp, source, functionName string) string {
	matches := pattern.FindAllStringSubmatch(source, -1)
	for _, match := range matches {
		if strings.EqualFold(match[1], functionName) {
			return normalizeParams(match[2])
		}
	}
	// fall back to the first function found
	if len(matches) > 0 {
		return normalizeParams(matches[0][2])
	}
	return ""
}

// normalizeParams reduces "self, nums: List[int], target=0" to "nums,target"
func normalizeParams(raw string) string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if idx := strings.IndexAny(name, ":="); idx >= 0 {
			name = strings.TrimSpace(name[:idx])
		}
		if name == "" || name == "self" {
			continue
		}
		names = append(names, strings.ToLower(name))
	}
	return strings.Join(names, ",")
}
