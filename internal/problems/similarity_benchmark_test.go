package problems

import (
	"fmt"
	"testing"

	"codeduel/internal/models"
)

func benchmarkCandidates(n int) []*models.Problem {
	candidates := make([]*models.Problem, n)
	for i := 0; i < n; i++ {
		candidates[i] = &models.Problem{
			Title:        fmt.Sprintf("Find The Missing Number %d", i),
			FunctionName: fmt.Sprintf("find_missing_%d", i),
			ProblemType:  "array",
			Difficulty:   models.DifficultyEasy,
			Description: "Given an array containing n distinct numbers taken from " +
				"0 to n, find the one number that is missing from the sequence. " +
				"The solution should run in linear time and constant space.",
		}
	}
	return candidates
}

// BenchmarkSimilarity measures scoring one reported problem against a player's
// seen-problem history, the hot loop of duplicate-report triage
func BenchmarkSimilarity(b *testing.B) {
	reported := &models.Problem{
		Title:        "Find the Missing Number",
		FunctionName: "find_missing",
		ProblemType:  "array",
		Difficulty:   models.DifficultyEasy,
		Description: "You are given an array with n distinct numbers from 0 to n. " +
			"Return the missing number using linear time and constant space.",
	}

	counts := []int{10, 100, 1000}
	for _, count := range counts {
		b.Run(fmt.Sprintf("Candidates-%d", count), func(b *testing.B) {
			candidates := benchmarkCandidates(count)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				for _, candidate := range candidates {
					Similarity(reported, candidate)
				}
			}
		})
	}
}
