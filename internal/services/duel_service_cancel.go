package services

import (
	"context"
	"errors"
	"log"
	"time"

	"codeduel/internal/apperr"
	"codeduel/internal/models"
	"codeduel/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CancelDuel cancels the caller's waiting duel. With no explicit duel ID
// it targets whatever the caller has queued. Cancelling a duel that is not
// waiting anymore is a no-op, so a stale cancel button cannot kill a game
// that just started. Returns whether a duel was actually cancelled.
func (ds *DuelService) CancelDuel(
	ctx context.Context,
	userID uint,
	req *models.CancelDuelRequest,
) (bool, error) {
	var duel *models.Duel

	if req != nil && req.DuelID != nil {
		duelID, err := uuid.Parse(*req.DuelID)
		if err != nil {
			return false, apperr.Validation("invalid duel id: %s", *req.DuelID)
		}

		duel, err = ds.duels.GetDuelByID(ctx, duelID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperr.NotFound("duel %s not found", duelID)
		}
		if err != nil {
			return false, apperr.Infrastructure(err, "failed to load duel %s", duelID)
		}
		if duel.ParticipantFor(userID) == nil {
			return false, apperr.Forbidden("not a participant in this duel")
		}
	} else {
		var err error
		duel, err = ds.duels.GetActiveDuelForUser(ctx, userID, []models.DuelStatus{models.DuelStatusWaiting})
		if err != nil {
			return false, apperr.Infrastructure(err, "failed to load waiting duel for user %d", userID)
		}
		if duel == nil {
			return false, nil
		}
	}

	if duel.Status != models.DuelStatusWaiting {
		return false, nil
	}

	cancelled, err := ds.cancelWaiting(ctx, duel.ID)
	if err != nil {
		return false, err
	}
	if cancelled {
		log.Printf("[CancelDuel] duel %s cancelled by user %d", duel.ID, userID)
	}
	return cancelled, nil
}

// cancelWaiting performs the guarded WAITING -> CANCELLED transition.
// Losing the race against a join or a sweep is not an error.
func (ds *DuelService) cancelWaiting(ctx context.Context, duelID uuid.UUID) (bool, error) {
	err := ds.duels.Transaction(ctx, func(tx *repository.DuelRepository) error {
		duel, err := tx.GetDuelByIDForUpdate(ctx, duelID)
		if err != nil {
			return err
		}
		if duel.Status != models.DuelStatusWaiting {
			return errAlreadySettled
		}

		now := time.Now()
		return tx.UpdateDuelFields(ctx, duelID, map[string]interface{}{
			"status":       models.DuelStatusCancelled,
			"completed_at": now,
		})
	})

	if errors.Is(err, errAlreadySettled) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Infrastructure(err, "failed to cancel duel %s", duelID)
	}

	ds.hub.Close(duelID, "duel cancelled")
	return true, nil
}

// ExpireWaiting cancels a waiting duel whose matchmaking window ran out.
// Called by the sweeper; racing a join that claimed the duel in the
// meantime resolves in the join's favor.
func (ds *DuelService) ExpireWaiting(ctx context.Context, duelID uuid.UUID) error {
	cancelled, err := ds.cancelWaiting(ctx, duelID)
	if err != nil {
		return err
	}
	if cancelled {
		log.Printf("[ExpireWaiting] duel %s expired unmatched", duelID)
	}
	return nil
}

// TimeoutDuel ends an in-progress duel that ran past its maximum duration.
// Nobody solved the problem, so nobody is rated; the duel keeps its
// participants' last recorded attempts for review.
func (ds *DuelService) TimeoutDuel(ctx context.Context, duelID uuid.UUID) error {
	var timedOut *models.Duel

	err := ds.duels.Transaction(ctx, func(tx *repository.DuelRepository) error {
		duel, err := tx.GetDuelByIDForUpdate(ctx, duelID)
		if err != nil {
			return err
		}
		if duel.Status != models.DuelStatusInProgress {
			return errAlreadySettled
		}

		now := time.Now()
		fields := map[string]interface{}{
			"status":       models.DuelStatusTimedOut,
			"completed_at": now,
		}
		if duration := solveDuration(duel.StartedAt, now); duration != nil {
			fields["duration_seconds"] = *duration
		}
		if err := tx.UpdateDuelFields(ctx, duelID, fields); err != nil {
			return err
		}

		timedOut = duel
		return nil
	})

	if errors.Is(err, errAlreadySettled) {
		return nil
	}
	if err != nil {
		return apperr.Infrastructure(err, "failed to time out duel %s", duelID)
	}

	ds.stopAI(duelID)
	ds.hub.Broadcast(duelID, completionMessage(timedOut, nil))
	ds.hub.Close(duelID, "duel timed out")

	log.Printf("[TimeoutDuel] duel %s timed out with no winner", duelID)
	return nil
}
