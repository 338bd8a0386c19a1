package problems

import (
	"context"
	"time"

	"codeduel/internal/models"
	"codeduel/internal/repository"

	"github.com/google/uuid"
)

// Selector implements the anti-duplicate policy: serve a cached problem
// none of the players saw within the TTL and that has not hit its reuse
// cap, otherwise have one generated with the seen problems excluded.
type Selector struct {
	problems  *repository.ProblemRepository
	generator *Generator
	ttlDays   int
	maxReuse  int
}

func NewSelector(repo *repository.ProblemRepository, generator *Generator, ttlDays, maxReuse int) *Selector {
	if ttlDays <= 0 {
		ttlDays = 30
	}
	if maxReuse <= 0 {
		maxReuse = 3
	}
	return &Selector{
		problems:  repo,
		generator: generator,
		ttlDays:   ttlDays,
		maxReuse:  maxReuse,
	}
}

// PickForDuel returns a problem fresh to every given user. Generated
// problems are persisted before being returned; on a fingerprint race the
// already-stored row wins.
func (s *Selector) PickForDuel(ctx context.Context, userIDs []uint, difficulty models.Difficulty, problemType string) (*models.Problem, error) {
	cutoff := time.Now().AddDate(0, 0, -s.ttlDays)

	excluded, err := s.problems.GetRecentFingerprints(ctx, userIDs, cutoff)
	if err != nil {
		return nil, err
	}

	problem, err := s.problems.FindAvailableProblem(ctx, difficulty, problemType, excluded, s.maxReuse)
	if err != nil {
		return nil, err
	}
	if problem != nil {
		return problem, nil
	}

	req := GenerateRequest{
		Difficulty:           difficulty,
		ProblemType:          problemType,
		ExcludedFingerprints: excluded,
	}
	seen, err := s.problems.GetProblemsByFingerprints(ctx, excluded)
	if err != nil {
		return nil, err
	}
	for _, p := range seen {
		req.ExcludedTitles = append(req.ExcludedTitles, p.Title)
		req.ExcludedFunctions = append(req.ExcludedFunctions, p.FunctionName)
	}

	generated, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	return s.problems.CreateProblem(ctx, generated)
}

// MarkUsed bumps the reuse counter once a duel binds the problem
func (s *Selector) MarkUsed(ctx context.Context, problemID uuid.UUID) error {
	return s.problems.MarkProblemUsed(ctx, problemID)
}

// SimilarMatch pairs a previously seen problem with its similarity score
type SimilarMatch struct {
	Problem *models.Problem
	Score   float64
}

// SimilarSeen scores the reported problem against everything the user saw
// within the TTL and returns the duplicate candidates.
func (s *Selector) SimilarSeen(ctx context.Context, userID uint, problem *models.Problem) ([]SimilarMatch, error) {
	cutoff := time.Now().AddDate(0, 0, -s.ttlDays)

	fingerprints, err := s.problems.GetRecentFingerprints(ctx, []uint{userID}, cutoff)
	if err != nil {
		return nil, err
	}
	seen, err := s.problems.GetProblemsByFingerprints(ctx, fingerprints)
	if err != nil {
		return nil, err
	}

	var matches []SimilarMatch
	for _, other := range seen {
		if other.ID == problem.ID {
			continue
		}
		if score := Similarity(problem, other); score >= DuplicateThreshold {
			matches = append(matches, SimilarMatch{Problem: other, Score: score})
		}
	}
	return matches, nil
}
