package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"codeduel/internal/ai"
	"codeduel/internal/apperr"
	"codeduel/internal/judge"
	"codeduel/internal/models"
	"codeduel/internal/repository"
	"codeduel/internal/ws"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmitResult is the outcome of a full submission
type SubmitResult struct {
	Result *judge.Result `json:"result"`
	Won    bool          `json:"won"`
	// TooLate is set when every case passed but the opponent finished first
	TooLate bool `json:"too_late"`
}

// SubmitCode grades a submission against all test cases, hidden ones
// included. A full pass attempts to complete the duel; losing that race
// still returns the graded result so the client can show what happened.
// Submissions against a completed duel are graded but never rated.
func (ds *DuelService) SubmitCode(
	ctx context.Context,
	duelID uuid.UUID,
	userID uint,
	req *models.SubmitCodeRequest,
) (*SubmitResult, error) {
	duel, problem, participant, err := ds.loadForGrading(ctx, duelID, userID)
	if err != nil {
		return nil, err
	}
	if duel.Status != models.DuelStatusInProgress && duel.Status != models.DuelStatusCompleted {
		return nil, apperr.Conflict("duel is %s", duel.Status)
	}

	result, err := ds.grade(ctx, userID, problem, req, problem.TestCases)
	if err != nil {
		if errors.Is(err, judge.ErrRateLimited) {
			return nil, apperr.RateLimited("too many code runs, slow down")
		}
		return nil, apperr.Infrastructure(err, "grading failed")
	}

	ds.saveSnapshot(ctx, duel.ID, userID, models.SnapshotKindSubmit, req, result)
	ds.recordAttempt(ctx, participant, req, result)

	if !result.AllPassed() || duel.Status != models.DuelStatusInProgress {
		ds.broadcastProgress(duel.ID, userID, result)
		return &SubmitResult{Result: result, TooLate: result.AllPassed()}, nil
	}

	won, err := ds.completeDuel(ctx, duelID, userID, problem, req, result)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Result: result, Won: won, TooLate: !won}, nil
}

// TestCode runs the caller's code against the visible cases only. It never
// completes a duel, whatever the outcome.
func (ds *DuelService) TestCode(
	ctx context.Context,
	duelID uuid.UUID,
	userID uint,
	req *models.SubmitCodeRequest,
) (*judge.Result, error) {
	duel, problem, _, err := ds.loadForGrading(ctx, duelID, userID)
	if err != nil {
		return nil, err
	}
	if duel.Status != models.DuelStatusInProgress {
		return nil, apperr.Conflict("duel is %s", duel.Status)
	}

	visible := problem.VisibleTestCases()
	if len(visible) == 0 {
		return nil, apperr.Conflict("problem has no visible test cases")
	}

	result, err := ds.grade(ctx, userID, problem, req, visible)
	if err != nil {
		if errors.Is(err, judge.ErrRateLimited) {
			return nil, apperr.RateLimited("too many code runs, slow down")
		}
		return nil, apperr.Infrastructure(err, "test run failed")
	}

	ds.saveSnapshot(ctx, duel.ID, userID, models.SnapshotKindTest, req, result)
	ds.broadcastProgress(duel.ID, userID, result)
	return result, nil
}

func (ds *DuelService) loadForGrading(
	ctx context.Context,
	duelID uuid.UUID,
	userID uint,
) (*models.Duel, *models.Problem, *models.DuelParticipant, error) {
	duel, err := ds.duels.GetDuelByID(ctx, duelID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil, apperr.NotFound("duel %s not found", duelID)
	}
	if err != nil {
		return nil, nil, nil, apperr.Infrastructure(err, "failed to load duel %s", duelID)
	}

	participant := duel.ParticipantFor(userID)
	if participant == nil {
		return nil, nil, nil, apperr.Forbidden("not a participant in this duel")
	}
	if duel.ProblemID == nil {
		return nil, nil, nil, apperr.Conflict("duel has no problem bound")
	}

	problem, err := ds.problems.GetProblemByID(ctx, *duel.ProblemID)
	if err != nil {
		return nil, nil, nil, apperr.Infrastructure(err, "failed to load problem for duel %s", duelID)
	}

	return duel, problem, participant, nil
}

// grade runs the judge once and retries a sandbox failure a single time.
// The retry bypasses the per-user limiter: the first attempt already
// charged the quota and the failure was not the user's doing.
func (ds *DuelService) grade(
	ctx context.Context,
	userID uint,
	problem *models.Problem,
	req *models.SubmitCodeRequest,
	cases []models.TestCase,
) (*judge.Result, error) {
	jreq := judge.Request{
		Code:         req.Code,
		Language:     req.Language,
		FunctionName: problem.FunctionName,
		ProblemType:  problem.ProblemType,
		Cases:        cases,
	}

	result, err := ds.judge.Grade(ctx, userID, jreq)
	if err == nil || errors.Is(err, judge.ErrRateLimited) {
		return result, err
	}

	log.Printf("[SubmitCode] sandbox failed for user %d, retrying once: %v", userID, err)
	return ds.judge.Run(ctx, jreq)
}

// saveSnapshot appends the graded attempt to the duel's audit trail. A
// failed insert is logged and swallowed: losing a snapshot must not lose
// the grading result.
func (ds *DuelService) saveSnapshot(
	ctx context.Context,
	duelID uuid.UUID,
	userID uint,
	kind models.SnapshotKind,
	req *models.SubmitCodeRequest,
	result *judge.Result,
) {
	snapshot := &models.CodeSnapshot{
		ID:              uuid.New(),
		DuelID:          duelID,
		UserID:          userID,
		Kind:            kind,
		Code:            req.Code,
		Language:        judge.NormalizeLanguage(req.Language),
		TestsPassed:     result.Passed,
		TestsFailed:     result.Failed,
		ExecutionTimeMs: result.ExecutionTimeMs,
	}
	if result.ErrorMessage != "" {
		message := result.ErrorMessage
		snapshot.ErrorMessage = &message
	}

	if err := ds.duels.CreateSnapshot(ctx, snapshot); err != nil {
		log.Printf("[SubmitCode] failed to save %s snapshot for duel %s user %d: %v", kind, duelID, userID, err)
	}
}

// recordAttempt keeps the participant row current with the latest
// submission, so too-late and failing submits still leave their code and
// score behind for review.
func (ds *DuelService) recordAttempt(
	ctx context.Context,
	participant *models.DuelParticipant,
	req *models.SubmitCodeRequest,
	result *judge.Result,
) {
	code := req.Code
	participant.TestsPassed = result.Passed
	participant.TotalTests = result.Total
	participant.FinalCode = &code
	participant.Language = judge.NormalizeLanguage(req.Language)

	if err := ds.duels.UpdateParticipant(ctx, participant); err != nil {
		log.Printf("[SubmitCode] failed to record attempt for participant %s: %v", participant.ID, err)
	}
}

// broadcastProgress tells the opponent how the caller's run went without
// leaking code or per-case detail.
func (ds *DuelService) broadcastProgress(duelID uuid.UUID, userID uint, result *judge.Result) {
	progress := 0
	if result.Total > 0 {
		progress = result.Passed * 100 / result.Total
	}

	ds.hub.BroadcastExcept(duelID, ws.TestResult{
		Type:            ws.TypeTestResult,
		UserID:          userID,
		Passed:          result.Passed,
		Failed:          result.Failed,
		Total:           result.Total,
		ExecutionTimeMs: int(result.ExecutionTimeMs),
		Error:           result.ErrorMessage,
		ProgressPercent: progress,
		IsCorrect:       result.AllPassed(),
	}, userID)
}

// completeDuel settles a winning submission. The status transition, winner
// fields, rating movement, match history, and problem history all commit in
// one transaction; broadcasts happen only after the commit so a client can
// never observe a completion that later rolled back. Returns false when
// someone else completed the duel first.
func (ds *DuelService) completeDuel(
	ctx context.Context,
	duelID uuid.UUID,
	userID uint,
	problem *models.Problem,
	req *models.SubmitCodeRequest,
	result *judge.Result,
) (bool, error) {
	var completed *models.Duel
	var winner *models.DuelParticipant

	err := ds.duels.Transaction(ctx, func(tx *repository.DuelRepository) error {
		duel, err := tx.GetDuelByIDForUpdate(ctx, duelID)
		if err != nil {
			return err
		}
		if duel.Status != models.DuelStatusInProgress || duel.Winner() != nil {
			return errAlreadySettled
		}

		winner = duel.ParticipantFor(userID)
		if winner == nil {
			return fmt.Errorf("winner %d is not a participant of duel %s", userID, duelID)
		}
		var loser *models.DuelParticipant
		for i := range duel.Participants {
			if duel.Participants[i].ID != winner.ID {
				loser = &duel.Participants[i]
			}
		}
		if loser == nil {
			return fmt.Errorf("duel %s has no opponent", duelID)
		}

		now := time.Now()
		code := req.Code
		winner.IsWinner = true
		winner.SubmissionTime = &now
		winner.SolveDurationSeconds = solveDuration(duel.StartedAt, now)
		winner.TestsPassed = result.Passed
		winner.TotalTests = result.Total
		winner.FinalCode = &code
		winner.Language = judge.NormalizeLanguage(req.Language)

		ratingRepo := repository.NewRatingRepository(tx.DB())
		if err := ds.rating.ApplyDuelResult(ctx, ratingRepo, duel, winner, loser, problem.Title); err != nil {
			return fmt.Errorf("failed to settle ratings: %w", err)
		}

		problemRepo := repository.NewProblemRepository(tx.DB())
		for i := range duel.Participants {
			p := &duel.Participants[i]
			if p.IsAI || p.UserID == nil {
				continue
			}
			history := &models.UserProblemHistory{
				ID:                   uuid.New(),
				UserID:               *p.UserID,
				ProblemID:            problem.ID,
				DuelID:               duel.ID,
				Fingerprint:          problem.Fingerprint,
				UsedAt:               now,
				Solved:               p.IsWinner,
				TestsPassed:          p.TestsPassed,
				TotalTests:           p.TotalTests,
				SolveDurationSeconds: p.SolveDurationSeconds,
			}
			if err := problemRepo.CreateHistory(ctx, history); err != nil {
				return fmt.Errorf("failed to record problem history: %w", err)
			}
		}

		if err := tx.UpdateParticipant(ctx, winner); err != nil {
			return err
		}
		if err := tx.UpdateParticipant(ctx, loser); err != nil {
			return err
		}

		duel.Status = models.DuelStatusCompleted
		duel.CompletedAt = &now
		duel.DurationSeconds = solveDuration(duel.StartedAt, now)
		if err := tx.UpdateDuel(ctx, duel); err != nil {
			return err
		}

		completed = duel
		return nil
	})

	if errors.Is(err, errAlreadySettled) {
		log.Printf("[CompleteDuel] duel %s already settled, submission from user %d was too late", duelID, userID)
		return false, nil
	}
	if err != nil {
		return false, apperr.Infrastructure(err, "failed to complete duel %s", duelID)
	}

	ds.stopAI(duelID)
	ds.hub.Broadcast(duelID, completionMessage(completed, winner))
	ds.hub.Close(duelID, "duel complete")

	log.Printf("[CompleteDuel] duel %s won by %s (%d/%d tests)", duelID, winner.Username, result.Passed, result.Total)
	return true, nil
}

func completionMessage(duel *models.Duel, winner *models.DuelParticipant) ws.DuelComplete {
	usernames := make(map[string]string, len(duel.Participants))
	deltas := make(map[string]int, len(duel.Participants))
	for i := range duel.Participants {
		p := &duel.Participants[i]
		key := strconv.FormatUint(uint64(participantUserID(p)), 10)
		usernames[key] = p.Username
		if p.RatingDelta != nil {
			deltas[key] = *p.RatingDelta
		}
	}

	solveTime := 0
	var winnerID *uint
	if winner != nil {
		if winner.SolveDurationSeconds != nil {
			solveTime = *winner.SolveDurationSeconds
		}
		winnerID = winner.UserID
	}

	return ws.NewDuelComplete(winnerID, usernames, solveTime, deltas)
}

// participantUserID maps the AI participant onto its reserved ID
func participantUserID(p *models.DuelParticipant) uint {
	if p.UserID != nil {
		return *p.UserID
	}
	return ai.AIUserID
}
