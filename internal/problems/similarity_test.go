package problems

import (
	"testing"

	"codeduel/internal/models"
)

func problemFixture(title, fn, problemType string, difficulty models.Difficulty, description string) *models.Problem {
	return &models.Problem{
		Title:        title,
		FunctionName: fn,
		ProblemType:  problemType,
		Difficulty:   difficulty,
		Description:  description,
	}
}

func TestSimilarityIdentical(t *testing.T) {
	a := problemFixture("Two Sum", "two_sum", "array", models.DifficultyEasy,
		"Given an array of integers, find two numbers that add up to a target")
	b := problemFixture("Two Sum", "two_sum", "array", models.DifficultyEasy,
		"Given an array of integers, find two numbers that add up to a target")

	score := Similarity(a, b)
	if score < DuplicateThreshold {
		t.Errorf("expected identical problems to score above %v, got %v", DuplicateThreshold, score)
	}
}

func TestSimilaritySameShapeOnly(t *testing.T) {
	a := problemFixture("Two Sum", "two_sum", "array", models.DifficultyEasy,
		"Find two numbers adding up to a target value")
	b := problemFixture("Rotate Image", "rotate_image", "array", models.DifficultyEasy,
		"Rotate a square matrix ninety degrees clockwise in place")

	score := Similarity(a, b)
	if score >= DuplicateThreshold {
		t.Errorf("expected unrelated problems of the same shape to stay below %v, got %v", DuplicateThreshold, score)
	}
}

func TestSimilaritySameIdentityDifferentShape(t *testing.T) {
	a := problemFixture("Two Sum", "two_sum", "array", models.DifficultyEasy, "Find a pair summing to a target")
	b := problemFixture("Two Sum", "two_sum", "hash_map", models.DifficultyMedium, "Locate indices whose values sum to k")

	// title + function name alone is 0.55, below the flagging threshold
	score := Similarity(a, b)
	if score >= DuplicateThreshold {
		t.Errorf("expected 0.55 base score to stay below threshold, got %v", score)
	}

	b.ProblemType = "array"
	if score = Similarity(a, b); score < DuplicateThreshold {
		t.Errorf("expected title+function+type to reach the threshold, got %v", score)
	}
}

func TestSimilarityDescriptionOverlap(t *testing.T) {
	a := problemFixture("A", "fa", "array", models.DifficultyEasy,
		"binary search over sorted rotation pivot elements")
	b := problemFixture("B", "fb", "string", models.DifficultyHard,
		"binary search over sorted rotation pivot elements")

	// only difficulty/type/title/function differ, overlap contributes at most 0.1
	score := Similarity(a, b)
	if score > 0.11 {
		t.Errorf("expected mostly-overlap score near 0.1, got %v", score)
	}
	if score == 0 {
		t.Error("expected identical descriptions to contribute overlap")
	}
}
