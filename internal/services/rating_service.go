package services

import (
	"context"
	"log"
	"math"
	"time"

	"codeduel/internal/apperr"
	"codeduel/internal/models"
	"codeduel/internal/repository"

	"github.com/google/uuid"
)

const (
	xpPerWin  = 100
	xpPerLoss = 25
	xpPerLevel = 1000
)

// rankBand maps an ELO floor to a rank name. Bands are checked highest first.
type rankBand struct {
	floor int
	name  string
}

var rankBands = []rankBand{
	{2400, "Grandmaster"},
	{2200, "Elite"},
	{2000, "Master"},
	{1900, "Diamond II"},
	{1800, "Diamond I"},
	{1700, "Platinum II"},
	{1600, "Platinum I"},
	{1500, "Gold III"},
	{1400, "Gold II"},
	{1300, "Gold I"},
	{1200, "Silver III"},
	{1100, "Silver II"},
	{1000, "Silver I"},
	{900, "Bronze III"},
	{800, "Bronze II"},
	{0, "Bronze I"},
}

// RankForElo returns the rank band name for an ELO value
func RankForElo(elo int) string {
	for _, band := range rankBands {
		if elo >= band.floor {
			return band.name
		}
	}
	return "Bronze I"
}

var aiRatings = map[models.Difficulty]int{
	models.DifficultyEasy:   1000,
	models.DifficultyMedium: 1200,
	models.DifficultyHard:   1400,
	models.DifficultyExpert: 1600,
}

type RatingService struct {
	ratings *repository.RatingRepository
	kFactor int
}

func NewRatingService(ratings *repository.RatingRepository, kFactor int) *RatingService {
	if kFactor <= 0 {
		kFactor = 32
	}
	return &RatingService{ratings: ratings, kFactor: kFactor}
}

// AIRatingFor returns the fixed rating an AI opponent plays at
func (s *RatingService) AIRatingFor(difficulty models.Difficulty) int {
	if rating, ok := aiRatings[difficulty]; ok {
		return rating
	}
	return aiRatings[models.DifficultyMedium]
}

// GetOrCreate returns the user's rating row, creating the default if absent
func (s *RatingService) GetOrCreate(ctx context.Context, userID uint, username string) (*models.PlayerRating, error) {
	rating, err := s.ratings.GetOrCreateRating(ctx, userID, username)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to load rating for user %d", userID)
	}
	return rating, nil
}

// eloDeltas computes the winner's and loser's rating changes. The two deltas
// cancel out up to one point of rounding.
func (s *RatingService) eloDeltas(winnerElo, loserElo int) (int, int) {
	expectedWin := 1.0 / (1.0 + math.Pow(10, float64(loserElo-winnerElo)/400.0))
	winnerDelta := int(math.Round(float64(s.kFactor) * (1.0 - expectedWin)))
	loserDelta := -int(math.Round(float64(s.kFactor) * (1.0 - expectedWin)))
	return winnerDelta, loserDelta
}

// ApplyDuelResult settles ratings for a completed duel. It runs against the
// caller's transaction-scoped repository so rating rows, match history, and
// achievements commit atomically with the duel transition. The winner is
// always human; the loser may be the AI, in which case only the human side
// is rated, against the AI's fixed difficulty rating.
func (s *RatingService) ApplyDuelResult(
	ctx context.Context,
	repo *repository.RatingRepository,
	duel *models.Duel,
	winner *models.DuelParticipant,
	loser *models.DuelParticipant,
	problemTitle string,
) error {
	if winner.UserID == nil {
		return apperr.Conflict("winner must be a human participant")
	}

	now := time.Now()

	winnerRating, err := repo.GetOrCreateRating(ctx, *winner.UserID, winner.Username)
	if err != nil {
		return err
	}

	var loserRating *models.PlayerRating
	loserElo := 0
	if loser.IsAI {
		loserElo = s.AIRatingFor(duel.Difficulty)
	} else {
		if loser.UserID == nil {
			return apperr.Conflict("non-AI loser has no user")
		}
		loserRating, err = repo.GetOrCreateRating(ctx, *loser.UserID, loser.Username)
		if err != nil {
			return err
		}
		loserElo = loserRating.Elo
	}

	winnerDelta, loserDelta := s.eloDeltas(winnerRating.Elo, loserElo)

	winnerRating.Elo += winnerDelta
	winnerRating.Rank = RankForElo(winnerRating.Elo)
	winnerRating.Wins++
	winnerRating.TotalDuels++
	winnerRating.CurrentStreak++
	if winnerRating.CurrentStreak > winnerRating.BestStreak {
		winnerRating.BestStreak = winnerRating.CurrentStreak
	}
	winnerRating.XP += xpPerWin
	winnerRating.Level = winnerRating.XP/xpPerLevel + 1
	winnerRating.LastDuelAt = &now
	if winner.SolveDurationSeconds != nil {
		applySolveTime(winnerRating, *winner.SolveDurationSeconds)
	}

	if err := repo.UpdateRating(ctx, winnerRating); err != nil {
		return err
	}

	after := winnerRating.Elo
	winner.RatingAfter = &after
	winner.RatingDelta = &winnerDelta

	if loser.IsAI {
		// the AI's stored rating never moves
		aiAfter := loser.RatingBefore
		zero := 0
		loser.RatingAfter = &aiAfter
		loser.RatingDelta = &zero
	} else {
		loserRating.Elo += loserDelta
		loserRating.Rank = RankForElo(loserRating.Elo)
		loserRating.Losses++
		loserRating.TotalDuels++
		loserRating.CurrentStreak = 0
		loserRating.XP += xpPerLoss
		loserRating.Level = loserRating.XP/xpPerLevel + 1
		loserRating.LastDuelAt = &now

		if err := repo.UpdateRating(ctx, loserRating); err != nil {
			return err
		}

		loserAfter := loserRating.Elo
		loser.RatingAfter = &loserAfter
		loser.RatingDelta = &loserDelta
	}

	if err := s.recordHistory(ctx, repo, duel, winner, loser, problemTitle); err != nil {
		return err
	}

	return s.grantAchievements(ctx, repo, winnerRating, winner, now)
}

// applySolveTime folds a win's solve duration into the running mean and the
// fastest-solve record. Wins has already been incremented.
func applySolveTime(rating *models.PlayerRating, solveSeconds int) {
	if rating.AvgSolveSeconds == nil {
		avg := float64(solveSeconds)
		rating.AvgSolveSeconds = &avg
	} else {
		wins := float64(rating.Wins)
		avg := (*rating.AvgSolveSeconds*(wins-1) + float64(solveSeconds)) / wins
		rating.AvgSolveSeconds = &avg
	}
	if rating.FastestSolveSeconds == nil || solveSeconds < *rating.FastestSolveSeconds {
		fastest := solveSeconds
		rating.FastestSolveSeconds = &fastest
	}
}

func (s *RatingService) recordHistory(
	ctx context.Context,
	repo *repository.RatingRepository,
	duel *models.Duel,
	winner *models.DuelParticipant,
	loser *models.DuelParticipant,
	problemTitle string,
) error {
	entry := &models.MatchHistory{
		ID:                   uuid.New(),
		DuelID:               duel.ID,
		UserID:               *winner.UserID,
		OpponentName:         loser.Username,
		Won:                  true,
		RatingDelta:          derefInt(winner.RatingDelta),
		EloAfter:             derefInt(winner.RatingAfter),
		SolveDurationSeconds: winner.SolveDurationSeconds,
		ProblemTitle:         problemTitle,
		Difficulty:           duel.Difficulty,
	}
	if err := repo.CreateMatchHistory(ctx, entry); err != nil {
		return err
	}

	if loser.IsAI || loser.UserID == nil {
		return nil
	}

	loserEntry := &models.MatchHistory{
		ID:           uuid.New(),
		DuelID:       duel.ID,
		UserID:       *loser.UserID,
		OpponentName: winner.Username,
		Won:          false,
		RatingDelta:  derefInt(loser.RatingDelta),
		EloAfter:     derefInt(loser.RatingAfter),
		ProblemTitle: problemTitle,
		Difficulty:   duel.Difficulty,
	}
	return repo.CreateMatchHistory(ctx, loserEntry)
}

func (s *RatingService) grantAchievements(
	ctx context.Context,
	repo *repository.RatingRepository,
	rating *models.PlayerRating,
	winner *models.DuelParticipant,
	now time.Time,
) error {
	grant := func(code models.AchievementCode, name, description string) error {
		granted, err := repo.GrantAchievement(ctx, &models.Achievement{
			ID:          uuid.New(),
			UserID:      rating.UserID,
			Code:        code,
			Name:        name,
			Description: description,
			EarnedAt:    now,
		})
		if err != nil {
			return err
		}
		if granted {
			log.Printf("[Rating] user %d earned achievement %s", rating.UserID, code)
		}
		return nil
	}

	if rating.Wins == 1 {
		if err := grant(models.AchievementFirstVictory, "First Victory", "Win your first duel"); err != nil {
			return err
		}
	}
	if winner.SolveDurationSeconds != nil && *winner.SolveDurationSeconds < 120 {
		if err := grant(models.AchievementSpeedDemon, "Speed Demon", "Win a duel in under two minutes"); err != nil {
			return err
		}
	}
	if rating.CurrentStreak >= 5 {
		if err := grant(models.AchievementWinningStreak, "Winning Streak", "Win five duels in a row"); err != nil {
			return err
		}
	}

	wins, err := repo.CountWinsSince(ctx, rating.UserID, now.AddDate(0, 0, -7))
	if err != nil {
		return err
	}
	if wins >= 7 {
		if err := grant(models.AchievementPerfectWeek, "Perfect Week", "Win seven duels within seven days"); err != nil {
			return err
		}
	}

	return nil
}

// Leaderboard returns the top players ordered by ELO
func (s *RatingService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	ratings, err := s.ratings.GetTopRatings(ctx, limit)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to load leaderboard")
	}

	entries := make([]models.LeaderboardEntry, 0, len(ratings))
	for i, rating := range ratings {
		entries = append(entries, models.LeaderboardEntry{
			Position: i + 1,
			UserID:   rating.UserID,
			Username: rating.Username,
			Elo:      rating.Elo,
			Rank:     rating.Rank,
			Wins:     rating.Wins,
			Losses:   rating.Losses,
			WinRate:  rating.WinRate(),
		})
	}

	return entries, nil
}

// PlayerStats aggregates a user's rating, achievements, and recent form
func (s *RatingService) PlayerStats(ctx context.Context, userID uint, username string) (*models.PlayerStatsResponse, error) {
	rating, err := s.GetOrCreate(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	achievements, err := s.ratings.GetAchievements(ctx, userID)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to load achievements for user %d", userID)
	}

	recent, err := s.ratings.GetMatchHistory(ctx, userID, 10)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to load match history for user %d", userID)
	}

	stats := &models.PlayerStatsResponse{Rating: *rating}
	for _, a := range achievements {
		stats.Achievements = append(stats.Achievements, *a)
	}
	for _, m := range recent {
		stats.RecentForm = append(stats.RecentForm, m.Won)
	}

	return stats, nil
}

// History returns the user's recent matches, newest first
func (s *RatingService) History(ctx context.Context, userID uint, limit int) ([]*models.MatchHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	entries, err := s.ratings.GetMatchHistory(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to load match history for user %d", userID)
	}

	return entries, nil
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
