package problems

import (
	"strings"

	"codeduel/internal/models"
)

// DuplicateThreshold is the similarity score at or above which a pair of
// problems is flagged as a duplicate candidate.
const DuplicateThreshold = 0.7

// Similarity scores how alike two problems are for duplicate-report triage.
// Weighted: title 0.3, function name 0.25, type 0.2, difficulty 0.15,
// description keyword overlap 0.1.
func Similarity(a, b *models.Problem) float64 {
	score := 0.0
	if NormalizeTitle(a.Title) == NormalizeTitle(b.Title) {
		score += 0.3
	}
	if strings.EqualFold(a.FunctionName, b.FunctionName) {
		score += 0.25
	}
	if a.ProblemType == b.ProblemType {
		score += 0.2
	}
	if a.Difficulty == b.Difficulty {
		score += 0.15
	}
	score += 0.1 * keywordOverlap(a.Description, b.Description)
	return score
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "with": true,
	"are": true, "you": true, "your": true, "given": true, "return": true,
	"returns": true, "each": true, "all": true, "any": true, "from": true,
	"its": true, "can": true, "should": true, "must": true, "where": true,
}

// keywordOverlap is the Jaccard index of the significant words of two texts
func keywordOverlap(a, b string) float64 {
	wordsA := keywords(a)
	wordsB := keywords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for word := range wordsA {
		if wordsB[word] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	return float64(intersection) / float64(union)
}

func keywords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?()[]{}`'\"")
		if len(word) < 3 || stopWords[word] {
			continue
		}
		words[word] = true
	}
	return words
}
