package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"codeduel/internal/ai"
	"codeduel/internal/apperr"
	"codeduel/internal/judge"
	"codeduel/internal/models"
	"codeduel/internal/problems"
	"codeduel/internal/repository"
	"codeduel/internal/utils"
	"codeduel/internal/ws"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// matchScanLimit bounds how many waiting duels one join attempt inspects
const matchScanLimit = 20

// errAlreadySettled signals that a guarded transition found the duel in a
// state someone else already moved it out of.
var errAlreadySettled = errors.New("duel already settled")

// Grader runs code in the sandbox. Satisfied by the judge; narrowed to an
// interface so service tests can script grading outcomes.
type Grader interface {
	Grade(ctx context.Context, userID uint, req judge.Request) (*judge.Result, error)
	Run(ctx context.Context, req judge.Request) (*judge.Result, error)
}

type DuelService struct {
	duels    *repository.DuelRepository
	problems *repository.ProblemRepository
	picker   *problems.Selector
	judge    Grader
	rating   *RatingService
	hub      *ws.Hub
	opponent *ai.Opponent

	aiMu    sync.Mutex
	aiTasks map[uuid.UUID]context.CancelFunc
}

func NewDuelService(
	duels *repository.DuelRepository,
	problemRepo *repository.ProblemRepository,
	picker *problems.Selector,
	grader Grader,
	rating *RatingService,
	hub *ws.Hub,
	opponent *ai.Opponent,
) *DuelService {
	return &DuelService{
		duels:    duels,
		problems: problemRepo,
		picker:   picker,
		judge:    grader,
		rating:   rating,
		hub:      hub,
		opponent: opponent,
		aiTasks:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// CreateDuel opens a new duel for the caller. A leftover waiting duel is
// cancelled first; an in-progress duel is returned as-is so a double-click
// or reconnect cannot fork a second game. AI duels start immediately.
func (ds *DuelService) CreateDuel(
	ctx context.Context,
	userID uint,
	username string,
	req *models.CreateDuelRequest,
) (*models.Duel, error) {
	if err := validateMode(req.Mode); err != nil {
		return nil, err
	}
	if err := validateDifficulty(req.Difficulty); err != nil {
		return nil, err
	}
	language, err := validateLanguage(req.Language)
	if err != nil {
		return nil, err
	}

	active, err := ds.duels.GetActiveDuelForUser(ctx, userID, []models.DuelStatus{models.DuelStatusInProgress})
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to check active duels for user %d", userID)
	}
	if active != nil {
		log.Printf("[CreateDuel] user %d already in duel %s, returning it", userID, active.ID)
		return active, nil
	}

	waiting, err := ds.duels.GetActiveDuelForUser(ctx, userID, []models.DuelStatus{models.DuelStatusWaiting})
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to check waiting duels for user %d", userID)
	}
	if waiting != nil {
		if _, err := ds.cancelWaiting(ctx, waiting.ID); err != nil {
			return nil, err
		}
	}

	rating, err := ds.rating.GetOrCreate(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	problemType := req.ProblemType
	if problemType == "" {
		problemType = problems.RandomCategory()
	}

	duel := &models.Duel{
		ID:          uuid.New(),
		Mode:        req.Mode,
		Status:      models.DuelStatusWaiting,
		Difficulty:  req.Difficulty,
		ProblemType: problemType,
	}

	caller := models.DuelParticipant{
		ID:           uuid.New(),
		DuelID:       duel.ID,
		UserID:       &userID,
		Username:     username,
		RatingBefore: rating.Elo,
		Language:     language,
	}

	switch req.Mode {
	case models.DuelModeAIOpponent:
		return ds.createAIDuel(ctx, duel, caller)

	case models.DuelModePrivateRoom:
		code, err := resolveRoomCode(req.RoomCode)
		if err != nil {
			return nil, err
		}
		duel.RoomCode = &code
	}

	duel.Participants = []models.DuelParticipant{caller}
	if err := ds.duels.CreateDuel(ctx, duel); err != nil {
		return nil, apperr.Infrastructure(err, "failed to create duel")
	}

	log.Printf("[CreateDuel] user %d opened %s duel %s (%s/%s)", userID, duel.Mode, duel.ID, duel.Difficulty, duel.ProblemType)
	return duel, nil
}

// createAIDuel binds a problem, seats the AI participant, and starts the
// duel in a single insert so the client never observes a half-built game.
func (ds *DuelService) createAIDuel(
	ctx context.Context,
	duel *models.Duel,
	caller models.DuelParticipant,
) (*models.Duel, error) {
	var humanID uint
	if caller.UserID != nil {
		humanID = *caller.UserID
	}

	problem, err := ds.picker.PickForDuel(ctx, []uint{humanID}, duel.Difficulty, duel.ProblemType)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to pick a problem")
	}

	nickname, err := utils.GenerateNickname()
	if err != nil {
		nickname = "Rogue_Compiler_0000"
	}

	aiDifficulty := string(duel.Difficulty)
	bot := models.DuelParticipant{
		ID:           uuid.New(),
		DuelID:       duel.ID,
		IsAI:         true,
		AIDifficulty: &aiDifficulty,
		Username:     nickname,
		RatingBefore: ds.rating.AIRatingFor(duel.Difficulty),
		Language:     "python",
	}

	now := time.Now()
	duel.Status = models.DuelStatusInProgress
	duel.StartedAt = &now
	duel.ProblemID = &problem.ID
	duel.Participants = []models.DuelParticipant{caller, bot}

	if err := ds.duels.CreateDuel(ctx, duel); err != nil {
		return nil, apperr.Infrastructure(err, "failed to create duel")
	}
	if err := ds.picker.MarkUsed(ctx, problem.ID); err != nil {
		log.Printf("[CreateDuel] failed to mark problem %s used: %v", problem.ID, err)
	}

	ds.startAI(duel, problem)
	log.Printf("[CreateDuel] user %d vs %s in duel %s (%s)", humanID, nickname, duel.ID, duel.Difficulty)
	return duel, nil
}

// JoinDuel claims the oldest compatible waiting duel and starts it. The
// claim happens under a row lock; problem selection runs outside the
// transaction because it may call the generator, and the claimed
// participant row is removed again if binding fails. Returns (nil, nil)
// when no open duel matched.
func (ds *DuelService) JoinDuel(
	ctx context.Context,
	userID uint,
	username string,
	req *models.JoinDuelRequest,
) (*models.Duel, error) {
	language, err := validateLanguage(req.Language)
	if err != nil {
		return nil, err
	}
	if req.Difficulty != nil {
		if err := validateDifficulty(*req.Difficulty); err != nil {
			return nil, err
		}
	}

	active, err := ds.duels.GetActiveDuelForUser(ctx, userID, []models.DuelStatus{models.DuelStatusInProgress})
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to check active duels for user %d", userID)
	}
	if active != nil {
		return nil, apperr.Conflict("already in an active duel")
	}

	ownWaiting, err := ds.duels.GetActiveDuelForUser(ctx, userID, []models.DuelStatus{models.DuelStatusWaiting})
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to check waiting duels for user %d", userID)
	}

	rating, err := ds.rating.GetOrCreate(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	mode := models.DuelModeRandomPlayer
	var roomCode *string
	if req.RoomCode != nil {
		mode = models.DuelModePrivateRoom
		normalized := strings.ToUpper(strings.TrimSpace(*req.RoomCode))
		roomCode = &normalized
	}

	var claimed *models.Duel
	var participant *models.DuelParticipant
	err = ds.duels.Transaction(ctx, func(tx *repository.DuelRepository) error {
		waiting, err := tx.FindWaitingDuelsForUpdate(ctx, mode, req.Difficulty, roomCode, matchScanLimit)
		if err != nil {
			return err
		}

		for _, duel := range waiting {
			if duel.ParticipantFor(userID) != nil {
				continue
			}
			if len(duel.Participants) != 1 {
				continue
			}

			p := &models.DuelParticipant{
				ID:           uuid.New(),
				DuelID:       duel.ID,
				UserID:       &userID,
				Username:     username,
				RatingBefore: rating.Elo,
				Language:     language,
			}
			if err := tx.AddParticipant(ctx, p); err != nil {
				return err
			}

			claimed = duel
			participant = p
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to join duel")
	}
	if claimed == nil {
		if roomCode != nil {
			return nil, apperr.NotFound("no open room with code %s", *roomCode)
		}
		return nil, nil
	}

	// the caller is committed to the claimed duel now, so a leftover queue
	// entry of their own must not stay matchable
	if ownWaiting != nil {
		if _, err := ds.cancelWaiting(ctx, ownWaiting.ID); err != nil {
			log.Printf("[JoinDuel] failed to cancel own waiting duel %s: %v", ownWaiting.ID, err)
		}
	}

	players := []uint{userID}
	for _, p := range claimed.Participants {
		if p.UserID != nil {
			players = append(players, *p.UserID)
		}
	}

	problem, err := ds.picker.PickForDuel(ctx, players, claimed.Difficulty, claimed.ProblemType)
	if err != nil {
		ds.releaseClaim(ctx, participant)
		return nil, apperr.Infrastructure(err, "failed to pick a problem")
	}

	now := time.Now()
	err = ds.duels.Transaction(ctx, func(tx *repository.DuelRepository) error {
		fresh, err := tx.GetDuelByIDForUpdate(ctx, claimed.ID)
		if err != nil {
			return err
		}
		if fresh.Status != models.DuelStatusWaiting {
			return errAlreadySettled
		}
		return tx.UpdateDuelFields(ctx, claimed.ID, map[string]interface{}{
			"problem_id": problem.ID,
			"status":     models.DuelStatusInProgress,
			"started_at": now,
		})
	})
	if errors.Is(err, errAlreadySettled) {
		ds.releaseClaim(ctx, participant)
		return nil, apperr.Conflict("duel is no longer available")
	}
	if err != nil {
		ds.releaseClaim(ctx, participant)
		return nil, apperr.Infrastructure(err, "failed to start duel %s", claimed.ID)
	}

	if err := ds.picker.MarkUsed(ctx, problem.ID); err != nil {
		log.Printf("[JoinDuel] failed to mark problem %s used: %v", problem.ID, err)
	}

	duel, err := ds.duels.GetDuelByID(ctx, claimed.ID)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to reload duel %s", claimed.ID)
	}

	ds.hub.Broadcast(duel.ID, ws.NewDuelStarted(duel.ID))
	log.Printf("[JoinDuel] user %d joined duel %s, starting (%s/%s)", userID, duel.ID, duel.Difficulty, duel.ProblemType)
	return duel, nil
}

// releaseClaim undoes a join claim so the duel becomes matchable again
func (ds *DuelService) releaseClaim(ctx context.Context, participant *models.DuelParticipant) {
	if err := ds.duels.RemoveParticipant(ctx, participant.ID); err != nil {
		log.Printf("[JoinDuel] failed to release claim %s on duel %s: %v", participant.ID, participant.DuelID, err)
	}
}

// GetDuel returns a duel to one of its participants
func (ds *DuelService) GetDuel(ctx context.Context, duelID uuid.UUID, userID uint) (*models.Duel, error) {
	duel, err := ds.duels.GetDuelByID(ctx, duelID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("duel %s not found", duelID)
	}
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to load duel %s", duelID)
	}
	if duel.ParticipantFor(userID) == nil {
		return nil, apperr.Forbidden("not a participant in this duel")
	}
	return duel, nil
}

// ActiveDuel returns the caller's in-progress duel, nil if none
func (ds *DuelService) ActiveDuel(ctx context.Context, userID uint) (*models.Duel, error) {
	duel, err := ds.duels.GetActiveDuelForUser(ctx, userID, []models.DuelStatus{models.DuelStatusInProgress})
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to load active duel for user %d", userID)
	}
	return duel, nil
}

// ActiveOrWaitingDuel returns the caller's open duel, nil if none
func (ds *DuelService) ActiveOrWaitingDuel(ctx context.Context, userID uint) (*models.Duel, error) {
	duel, err := ds.duels.GetActiveDuelForUser(ctx, userID, []models.DuelStatus{
		models.DuelStatusWaiting,
		models.DuelStatusInProgress,
	})
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to load open duel for user %d", userID)
	}
	return duel, nil
}

// DescribeDuel projects a duel into its API shape, loading the problem
// view when one is bound and each participant's latest graded attempt
// once the duel has started. Hidden test cases and the reference
// solution never leave the server.
func (ds *DuelService) DescribeDuel(ctx context.Context, duel *models.Duel) (*models.DuelResponse, error) {
	resp := &models.DuelResponse{
		ID:              duel.ID.String(),
		Mode:            duel.Mode,
		Status:          duel.Status,
		Difficulty:      duel.Difficulty,
		ProblemType:     duel.ProblemType,
		RoomCode:        duel.RoomCode,
		Participants:    duel.Participants,
		CreatedAt:       duel.CreatedAt,
		StartedAt:       duel.StartedAt,
		CompletedAt:     duel.CompletedAt,
		DurationSeconds: duel.DurationSeconds,
	}

	if duel.ProblemID != nil {
		problem, err := ds.problems.GetProblemByID(ctx, *duel.ProblemID)
		if err != nil {
			return nil, apperr.Infrastructure(err, "failed to load problem for duel %s", duel.ID)
		}
		resp.Problem = problem.ToView()
	}

	// Attempts are telemetry. Losing them degrades the view, not the duel.
	if duel.StartedAt != nil {
		snapshots, err := ds.duels.GetLatestSnapshots(ctx, duel.ID)
		if err != nil {
			log.Printf("[DescribeDuel] Failed to load snapshots for duel %s: %v", duel.ID, err)
		} else {
			resp.LatestSnapshots = snapshots
		}
	}

	return resp, nil
}

// ReportDuplicate flags the duel's problem as one the caller believes they
// have seen before and returns the similar problems from their history.
func (ds *DuelService) ReportDuplicate(
	ctx context.Context,
	duelID uuid.UUID,
	userID uint,
) ([]problems.SimilarMatch, error) {
	duel, err := ds.GetDuel(ctx, duelID, userID)
	if err != nil {
		return nil, err
	}
	if duel.ProblemID == nil {
		return nil, apperr.Conflict("duel has no problem bound")
	}

	problem, err := ds.problems.GetProblemByID(ctx, *duel.ProblemID)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to load problem for duel %s", duelID)
	}

	// A report can arrive mid-duel, before completion writes the exposure
	// row. Insert it here so the flag has a row to land on; completion
	// refreshes the result columns on the same key.
	history := &models.UserProblemHistory{
		ID:                  uuid.New(),
		UserID:              userID,
		ProblemID:           problem.ID,
		DuelID:              duelID,
		Fingerprint:         problem.Fingerprint,
		Solved:              false,
		ReportedAsDuplicate: true,
		UsedAt:              time.Now(),
	}
	if err := ds.problems.CreateHistory(ctx, history); err != nil {
		return nil, apperr.Infrastructure(err, "failed to record duplicate report")
	}
	if err := ds.problems.MarkReportedAsDuplicate(ctx, userID, duelID); err != nil {
		return nil, apperr.Infrastructure(err, "failed to record duplicate report")
	}

	matches, err := ds.picker.SimilarSeen(ctx, userID, problem)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to score similar problems")
	}

	log.Printf("[ReportDuplicate] user %d flagged problem %s in duel %s (%d similar)", userID, problem.ID, duelID, len(matches))
	return matches, nil
}

// startAI dispatches the opponent performance for an AI duel
func (ds *DuelService) startAI(duel *models.Duel, problem *models.Problem) {
	if ds.opponent == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ds.aiMu.Lock()
	ds.aiTasks[duel.ID] = cancel
	ds.aiMu.Unlock()

	go func() {
		defer ds.stopAI(duel.ID)
		ds.opponent.Play(ctx, duel.ID, duel.Difficulty, problem)
	}()
}

// stopAI cancels the opponent goroutine for a duel, if one is running
func (ds *DuelService) stopAI(duelID uuid.UUID) {
	ds.aiMu.Lock()
	cancel, ok := ds.aiTasks[duelID]
	if ok {
		delete(ds.aiTasks, duelID)
	}
	ds.aiMu.Unlock()

	if ok {
		cancel()
	}
}

func validateMode(mode models.DuelMode) error {
	switch mode {
	case models.DuelModeRandomPlayer, models.DuelModeAIOpponent, models.DuelModePrivateRoom:
		return nil
	}
	return apperr.Validation("unknown duel mode: %s", mode)
}

func validateDifficulty(difficulty models.Difficulty) error {
	switch difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard, models.DifficultyExpert:
		return nil
	}
	return apperr.Validation("unknown difficulty: %s", difficulty)
}

func validateLanguage(language string) (string, error) {
	normalized := judge.NormalizeLanguage(language)
	if normalized != judge.LanguagePython && normalized != judge.LanguageJavaScript {
		return "", apperr.Validation("unsupported language: %s", language)
	}
	return normalized, nil
}

func resolveRoomCode(requested *string) (string, error) {
	if requested != nil {
		code := strings.ToUpper(strings.TrimSpace(*requested))
		if len(code) < 4 || len(code) > 12 {
			return "", apperr.Validation("room code must be 4 to 12 characters")
		}
		return code, nil
	}

	code, err := utils.GenerateRoomCode()
	if err != nil {
		return "", apperr.Infrastructure(err, "failed to generate room code")
	}
	return code, nil
}

func solveDuration(startedAt *time.Time, now time.Time) *int {
	if startedAt == nil {
		return nil
	}
	seconds := int(now.Sub(*startedAt).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return &seconds
}
