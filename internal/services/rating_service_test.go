package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"codeduel/internal/apperr"
	"codeduel/internal/models"
	"codeduel/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPlayerRating mirrors models.PlayerRating but compatible with SQLite (no Postgres specific defaults)
type TestPlayerRating struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Username            string     `gorm:"size:255" json:"username"`
	Elo                 int        `gorm:"not null;default:1200;index" json:"elo"`
	Rank                string     `gorm:"size:30;not null;default:'Silver III'" json:"rank"`
	Wins                int        `gorm:"default:0" json:"wins"`
	Losses              int        `gorm:"default:0" json:"losses"`
	Draws               int        `gorm:"default:0" json:"draws"`
	TotalDuels          int        `gorm:"default:0" json:"total_duels"`
	CurrentStreak       int        `gorm:"default:0" json:"current_streak"`
	BestStreak          int        `gorm:"default:0" json:"best_streak"`
	AvgSolveSeconds     *float64   `json:"avg_solve_seconds"`
	FastestSolveSeconds *int       `json:"fastest_solve_seconds"`
	XP                  int        `gorm:"default:0" json:"xp"`
	Level               int        `gorm:"default:1" json:"level"`
	LastDuelAt          *time.Time `json:"last_duel_at"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (TestPlayerRating) TableName() string {
	return "player_ratings"
}

// TestAchievement mirrors models.Achievement
type TestAchievement struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uint                   `gorm:"not null;index;uniqueIndex:idx_achievement_user_code,priority:1" json:"user_id"`
	Code        models.AchievementCode `gorm:"size:50;not null;uniqueIndex:idx_achievement_user_code,priority:2" json:"code"`
	Name        string                 `gorm:"size:100;not null" json:"name"`
	Description string                 `gorm:"size:255" json:"description"`
	EarnedAt    time.Time              `gorm:"not null" json:"earned_at"`
}

func (TestAchievement) TableName() string {
	return "achievements"
}

// TestMatchHistory mirrors models.MatchHistory
type TestMatchHistory struct {
	ID                   uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	DuelID               uuid.UUID         `gorm:"type:uuid;not null;index" json:"duel_id"`
	UserID               uint              `gorm:"not null;index:idx_match_history_user_created,priority:1" json:"user_id"`
	OpponentName         string            `gorm:"size:255" json:"opponent_name"`
	Won                  bool              `gorm:"not null" json:"won"`
	RatingDelta          int               `gorm:"not null" json:"rating_delta"`
	EloAfter             int               `gorm:"not null" json:"elo_after"`
	SolveDurationSeconds *int              `json:"solve_duration_seconds"`
	ProblemTitle         string            `gorm:"size:255" json:"problem_title"`
	Difficulty           models.Difficulty `gorm:"size:20" json:"difficulty"`
	CreatedAt            time.Time         `gorm:"index:idx_match_history_user_created,priority:2" json:"created_at"`
}

func (TestMatchHistory) TableName() string {
	return "match_history"
}

func openRatingDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&TestPlayerRating{}, &TestAchievement{}, &TestMatchHistory{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func newRatingFixture(t *testing.T) (*RatingService, *repository.RatingRepository, *gorm.DB) {
	t.Helper()

	db := openRatingDB(t)
	repo := repository.NewRatingRepository(db)
	return NewRatingService(repo, 0), repo, db
}

func intPtr(v int) *int { return &v }

func uintPtr(v uint) *uint { return &v }

func ratingDuel(difficulty models.Difficulty) *models.Duel {
	return &models.Duel{ID: uuid.New(), Mode: models.DuelModeRandomPlayer, Difficulty: difficulty}
}

func humanSide(userID uint, username string, before int) *models.DuelParticipant {
	return &models.DuelParticipant{
		ID:           uuid.New(),
		UserID:       uintPtr(userID),
		Username:     username,
		RatingBefore: before,
		Language:     "python",
	}
}

func aiSide(difficulty models.Difficulty, before int) *models.DuelParticipant {
	d := string(difficulty)
	return &models.DuelParticipant{
		ID:           uuid.New(),
		IsAI:         true,
		AIDifficulty: &d,
		Username:     "Rogue_Compiler_1337",
		RatingBefore: before,
		Language:     "python",
	}
}

func reloadRating(t *testing.T, db *gorm.DB, userID uint) *TestPlayerRating {
	t.Helper()

	var rating TestPlayerRating
	if err := db.First(&rating, "user_id = ?", userID).Error; err != nil {
		t.Fatalf("failed to reload rating for user %d: %v", userID, err)
	}
	return &rating
}

func achievementCodes(t *testing.T, repo *repository.RatingRepository, userID uint) map[models.AchievementCode]bool {
	t.Helper()

	achievements, err := repo.GetAchievements(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to load achievements: %v", err)
	}
	codes := make(map[models.AchievementCode]bool, len(achievements))
	for _, a := range achievements {
		codes[a.Code] = true
	}
	return codes
}

func TestRankForElo(t *testing.T) {
	cases := []struct {
		elo  int
		rank string
	}{
		{0, "Bronze I"},
		{799, "Bronze I"},
		{800, "Bronze II"},
		{900, "Bronze III"},
		{1000, "Silver I"},
		{1100, "Silver II"},
		{1200, "Silver III"},
		{1299, "Silver III"},
		{1300, "Gold I"},
		{1400, "Gold II"},
		{1500, "Gold III"},
		{1600, "Platinum I"},
		{1700, "Platinum II"},
		{1800, "Diamond I"},
		{1900, "Diamond II"},
		{2000, "Master"},
		{2200, "Elite"},
		{2400, "Grandmaster"},
		{3000, "Grandmaster"},
	}

	for _, tc := range cases {
		if got := RankForElo(tc.elo); got != tc.rank {
			t.Errorf("RankForElo(%d) = %q, want %q", tc.elo, got, tc.rank)
		}
	}
}

func TestAIRatingFor(t *testing.T) {
	svc := NewRatingService(nil, 0)

	cases := map[models.Difficulty]int{
		models.DifficultyEasy:   1000,
		models.DifficultyMedium: 1200,
		models.DifficultyHard:   1400,
		models.DifficultyExpert: 1600,
	}
	for difficulty, want := range cases {
		if got := svc.AIRatingFor(difficulty); got != want {
			t.Errorf("AIRatingFor(%s) = %d, want %d", difficulty, got, want)
		}
	}

	if got := svc.AIRatingFor(models.Difficulty("nightmare")); got != 1200 {
		t.Errorf("unknown difficulty should fall back to medium, got %d", got)
	}
}

func TestEloDeltas(t *testing.T) {
	svc := NewRatingService(nil, 0)

	winnerDelta, loserDelta := svc.eloDeltas(1200, 1200)
	if winnerDelta != 16 || loserDelta != -16 {
		t.Errorf("equal ratings should swing 16 points, got +%d/%d", winnerDelta, loserDelta)
	}

	// an underdog win pays more than an expected one
	upset, _ := svc.eloDeltas(1000, 1400)
	if upset != 29 {
		t.Errorf("underdog win should pay 29, got %d", upset)
	}
	expected, _ := svc.eloDeltas(1400, 1000)
	if expected != 3 {
		t.Errorf("favorite win should pay 3, got %d", expected)
	}

	for _, pair := range [][2]int{{1200, 1200}, {1000, 1400}, {1400, 1000}, {2400, 800}} {
		w, l := svc.eloDeltas(pair[0], pair[1])
		if w+l != 0 {
			t.Errorf("deltas for %v do not cancel: +%d/%d", pair, w, l)
		}
	}
}

func TestApplyDuelResultHumanPair(t *testing.T) {
	svc, repo, db := newRatingFixture(t)
	ctx := context.Background()

	for userID, name := range map[uint]string{1: "alice", 2: "bob"} {
		if _, err := repo.GetOrCreateRating(ctx, userID, name); err != nil {
			t.Fatalf("failed to seed rating: %v", err)
		}
	}

	duel := ratingDuel(models.DifficultyMedium)
	winner := humanSide(1, "alice", 1200)
	winner.SolveDurationSeconds = intPtr(300)
	winner.IsWinner = true
	loser := humanSide(2, "bob", 1200)

	if err := svc.ApplyDuelResult(ctx, repo, duel, winner, loser, "Two Sum"); err != nil {
		t.Fatalf("ApplyDuelResult failed: %v", err)
	}

	won := reloadRating(t, db, 1)
	if won.Elo != 1216 {
		t.Errorf("winner elo = %d, want 1216", won.Elo)
	}
	if won.Wins != 1 || won.TotalDuels != 1 || won.Losses != 0 {
		t.Errorf("winner tally = %d/%d/%d", won.Wins, won.Losses, won.TotalDuels)
	}
	if won.CurrentStreak != 1 || won.BestStreak != 1 {
		t.Errorf("winner streaks = %d/%d, want 1/1", won.CurrentStreak, won.BestStreak)
	}
	if won.XP != 100 || won.Level != 1 {
		t.Errorf("winner xp/level = %d/%d, want 100/1", won.XP, won.Level)
	}
	if won.AvgSolveSeconds == nil || *won.AvgSolveSeconds != 300 {
		t.Errorf("winner avg solve = %v, want 300", won.AvgSolveSeconds)
	}
	if won.FastestSolveSeconds == nil || *won.FastestSolveSeconds != 300 {
		t.Errorf("winner fastest solve = %v, want 300", won.FastestSolveSeconds)
	}
	if won.LastDuelAt == nil {
		t.Error("winner last_duel_at should be set")
	}

	lost := reloadRating(t, db, 2)
	if lost.Elo != 1184 {
		t.Errorf("loser elo = %d, want 1184", lost.Elo)
	}
	if lost.Rank != "Silver II" {
		t.Errorf("loser rank = %q, want Silver II", lost.Rank)
	}
	if lost.Losses != 1 || lost.TotalDuels != 1 || lost.Wins != 0 {
		t.Errorf("loser tally = %d/%d/%d", lost.Wins, lost.Losses, lost.TotalDuels)
	}
	if lost.CurrentStreak != 0 {
		t.Errorf("loser streak = %d, want 0", lost.CurrentStreak)
	}
	if lost.XP != 25 {
		t.Errorf("loser xp = %d, want 25", lost.XP)
	}

	if winner.RatingAfter == nil || *winner.RatingAfter != 1216 || winner.RatingDelta == nil || *winner.RatingDelta != 16 {
		t.Errorf("winner participant not annotated: after=%v delta=%v", winner.RatingAfter, winner.RatingDelta)
	}
	if loser.RatingAfter == nil || *loser.RatingAfter != 1184 || loser.RatingDelta == nil || *loser.RatingDelta != -16 {
		t.Errorf("loser participant not annotated: after=%v delta=%v", loser.RatingAfter, loser.RatingDelta)
	}

	var entries []TestMatchHistory
	if err := db.Order("user_id").Find(&entries).Error; err != nil {
		t.Fatalf("failed to load match history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two history rows, got %d", len(entries))
	}
	if !entries[0].Won || entries[0].RatingDelta != 16 || entries[0].EloAfter != 1216 {
		t.Errorf("winner history row wrong: %+v", entries[0])
	}
	if entries[0].OpponentName != "bob" || entries[0].ProblemTitle != "Two Sum" {
		t.Errorf("winner history labels wrong: %+v", entries[0])
	}
	if entries[1].Won || entries[1].RatingDelta != -16 {
		t.Errorf("loser history row wrong: %+v", entries[1])
	}

	codes := achievementCodes(t, repo, 1)
	if !codes[models.AchievementFirstVictory] {
		t.Error("first victory should be granted on the first win")
	}
	if len(achievementCodes(t, repo, 2)) != 0 {
		t.Error("loser should not earn achievements")
	}
}

func TestApplyDuelResultAgainstAI(t *testing.T) {
	svc, repo, db := newRatingFixture(t)
	ctx := context.Background()

	if _, err := repo.GetOrCreateRating(ctx, 1, "alice"); err != nil {
		t.Fatalf("failed to seed rating: %v", err)
	}

	duel := ratingDuel(models.DifficultyHard)
	duel.Mode = models.DuelModeAIOpponent
	winner := humanSide(1, "alice", 1200)
	winner.IsWinner = true
	loser := aiSide(models.DifficultyHard, 1400)

	if err := svc.ApplyDuelResult(ctx, repo, duel, winner, loser, "Word Ladder"); err != nil {
		t.Fatalf("ApplyDuelResult failed: %v", err)
	}

	won := reloadRating(t, db, 1)
	if won.Elo != 1224 {
		t.Errorf("beating the hard bot should pay 24, elo = %d", won.Elo)
	}

	if loser.RatingAfter == nil || *loser.RatingAfter != 1400 {
		t.Errorf("AI rating after = %v, want the fixed 1400", loser.RatingAfter)
	}
	if loser.RatingDelta == nil || *loser.RatingDelta != 0 {
		t.Errorf("AI delta = %v, want 0", loser.RatingDelta)
	}

	var ratingRows int64
	db.Model(&TestPlayerRating{}).Count(&ratingRows)
	if ratingRows != 1 {
		t.Errorf("the AI must not get a rating row, found %d", ratingRows)
	}

	var historyRows int64
	db.Model(&TestMatchHistory{}).Count(&historyRows)
	if historyRows != 1 {
		t.Errorf("expected only the human's history row, found %d", historyRows)
	}
}

func TestApplyDuelResultRejectsAIWinner(t *testing.T) {
	svc, repo, _ := newRatingFixture(t)

	duel := ratingDuel(models.DifficultyEasy)
	winner := aiSide(models.DifficultyEasy, 1000)
	loser := humanSide(1, "alice", 1200)

	err := svc.ApplyDuelResult(context.Background(), repo, duel, winner, loser, "Two Sum")
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected a conflict for an AI winner, got %v", err)
	}
}

func TestSolveTimeAveraging(t *testing.T) {
	svc, repo, db := newRatingFixture(t)
	ctx := context.Background()

	if _, err := repo.GetOrCreateRating(ctx, 1, "alice"); err != nil {
		t.Fatalf("failed to seed rating: %v", err)
	}

	for _, solve := range []int{200, 100} {
		winner := humanSide(1, "alice", 1200)
		winner.IsWinner = true
		winner.SolveDurationSeconds = intPtr(solve)
		duel := ratingDuel(models.DifficultyEasy)
		duel.Mode = models.DuelModeAIOpponent
		if err := svc.ApplyDuelResult(ctx, repo, duel, winner, aiSide(models.DifficultyEasy, 1000), "Two Sum"); err != nil {
			t.Fatalf("ApplyDuelResult failed: %v", err)
		}
	}

	rating := reloadRating(t, db, 1)
	if rating.AvgSolveSeconds == nil || *rating.AvgSolveSeconds != 150 {
		t.Errorf("avg solve = %v, want 150", rating.AvgSolveSeconds)
	}
	if rating.FastestSolveSeconds == nil || *rating.FastestSolveSeconds != 100 {
		t.Errorf("fastest solve = %v, want 100", rating.FastestSolveSeconds)
	}

	// the second win was under two minutes
	if !achievementCodes(t, repo, 1)[models.AchievementSpeedDemon] {
		t.Error("speed demon should be granted for a sub-120s win")
	}
}

func TestSpeedDemonBoundary(t *testing.T) {
	svc, repo, _ := newRatingFixture(t)
	ctx := context.Background()

	if _, err := repo.GetOrCreateRating(ctx, 1, "alice"); err != nil {
		t.Fatalf("failed to seed rating: %v", err)
	}

	winner := humanSide(1, "alice", 1200)
	winner.IsWinner = true
	winner.SolveDurationSeconds = intPtr(120)
	duel := ratingDuel(models.DifficultyEasy)
	duel.Mode = models.DuelModeAIOpponent
	if err := svc.ApplyDuelResult(ctx, repo, duel, winner, aiSide(models.DifficultyEasy, 1000), "Two Sum"); err != nil {
		t.Fatalf("ApplyDuelResult failed: %v", err)
	}

	if achievementCodes(t, repo, 1)[models.AchievementSpeedDemon] {
		t.Error("exactly 120 seconds is not under two minutes")
	}
}

func TestAchievementGrantedOnce(t *testing.T) {
	svc, repo, db := newRatingFixture(t)
	ctx := context.Background()

	if _, err := repo.GetOrCreateRating(ctx, 1, "alice"); err != nil {
		t.Fatalf("failed to seed rating: %v", err)
	}

	for i := 0; i < 2; i++ {
		winner := humanSide(1, "alice", 1200)
		winner.IsWinner = true
		winner.SolveDurationSeconds = intPtr(60)
		duel := ratingDuel(models.DifficultyEasy)
		duel.Mode = models.DuelModeAIOpponent
		if err := svc.ApplyDuelResult(ctx, repo, duel, winner, aiSide(models.DifficultyEasy, 1000), "Two Sum"); err != nil {
			t.Fatalf("ApplyDuelResult failed: %v", err)
		}
	}

	var count int64
	db.Model(&TestAchievement{}).Where("code = ?", models.AchievementSpeedDemon).Count(&count)
	if count != 1 {
		t.Errorf("expected speed demon once, found %d rows", count)
	}
}

func TestWinningStreakAtFive(t *testing.T) {
	svc, repo, db := newRatingFixture(t)
	ctx := context.Background()

	if _, err := repo.GetOrCreateRating(ctx, 1, "alice"); err != nil {
		t.Fatalf("failed to seed rating: %v", err)
	}

	for i := 0; i < 5; i++ {
		winner := humanSide(1, "alice", 1200)
		winner.IsWinner = true
		duel := ratingDuel(models.DifficultyEasy)
		duel.Mode = models.DuelModeAIOpponent
		if err := svc.ApplyDuelResult(ctx, repo, duel, winner, aiSide(models.DifficultyEasy, 1000), "Two Sum"); err != nil {
			t.Fatalf("ApplyDuelResult failed: %v", err)
		}

		granted := achievementCodes(t, repo, 1)[models.AchievementWinningStreak]
		if i < 4 && granted {
			t.Fatalf("winning streak granted after %d wins", i+1)
		}
		if i == 4 && !granted {
			t.Fatal("winning streak should be granted on the fifth straight win")
		}
	}

	rating := reloadRating(t, db, 1)
	if rating.CurrentStreak != 5 || rating.BestStreak != 5 {
		t.Errorf("streaks = %d/%d, want 5/5", rating.CurrentStreak, rating.BestStreak)
	}
}

func TestPerfectWeekCountsCurrentWin(t *testing.T) {
	svc, repo, _ := newRatingFixture(t)
	ctx := context.Background()

	if _, err := repo.GetOrCreateRating(ctx, 1, "alice"); err != nil {
		t.Fatalf("failed to seed rating: %v", err)
	}

	// six wins inside the window, one outside that must not count
	for i := 0; i < 6; i++ {
		entry := &models.MatchHistory{
			ID:        uuid.New(),
			DuelID:    uuid.New(),
			UserID:    1,
			Won:       true,
			CreatedAt: time.Now().Add(-time.Duration(i+1) * 24 * time.Hour),
		}
		if err := repo.CreateMatchHistory(ctx, entry); err != nil {
			t.Fatalf("failed to seed history: %v", err)
		}
	}
	stale := &models.MatchHistory{
		ID:        uuid.New(),
		DuelID:    uuid.New(),
		UserID:    1,
		Won:       true,
		CreatedAt: time.Now().Add(-8 * 24 * time.Hour),
	}
	if err := repo.CreateMatchHistory(ctx, stale); err != nil {
		t.Fatalf("failed to seed history: %v", err)
	}

	winner := humanSide(1, "alice", 1200)
	winner.IsWinner = true
	duel := ratingDuel(models.DifficultyEasy)
	duel.Mode = models.DuelModeAIOpponent
	if err := svc.ApplyDuelResult(ctx, repo, duel, winner, aiSide(models.DifficultyEasy, 1000), "Two Sum"); err != nil {
		t.Fatalf("ApplyDuelResult failed: %v", err)
	}

	if !achievementCodes(t, repo, 1)[models.AchievementPerfectWeek] {
		t.Error("the seventh win within seven days should grant perfect week")
	}
}

func TestLevelFromXP(t *testing.T) {
	svc, repo, db := newRatingFixture(t)
	ctx := context.Background()

	rating, err := repo.GetOrCreateRating(ctx, 1, "alice")
	if err != nil {
		t.Fatalf("failed to seed rating: %v", err)
	}
	rating.XP = 950
	if err := repo.UpdateRating(ctx, rating); err != nil {
		t.Fatalf("failed to update rating: %v", err)
	}

	winner := humanSide(1, "alice", 1200)
	winner.IsWinner = true
	duel := ratingDuel(models.DifficultyEasy)
	duel.Mode = models.DuelModeAIOpponent
	if err := svc.ApplyDuelResult(ctx, repo, duel, winner, aiSide(models.DifficultyEasy, 1000), "Two Sum"); err != nil {
		t.Fatalf("ApplyDuelResult failed: %v", err)
	}

	reloaded := reloadRating(t, db, 1)
	if reloaded.XP != 1050 || reloaded.Level != 2 {
		t.Errorf("xp/level = %d/%d, want 1050/2", reloaded.XP, reloaded.Level)
	}
}

func TestLeaderboardOrdersByElo(t *testing.T) {
	svc, repo, _ := newRatingFixture(t)
	ctx := context.Background()

	seed := []struct {
		userID uint
		name   string
		elo    int
		wins   int
		total  int
	}{
		{1, "alice", 1450, 8, 10},
		{2, "bob", 1700, 20, 25},
		{3, "carol", 900, 1, 4},
	}
	for _, s := range seed {
		rating, err := repo.GetOrCreateRating(ctx, s.userID, s.name)
		if err != nil {
			t.Fatalf("failed to seed rating: %v", err)
		}
		rating.Elo = s.elo
		rating.Rank = RankForElo(s.elo)
		rating.Wins = s.wins
		rating.TotalDuels = s.total
		rating.Losses = s.total - s.wins
		if err := repo.UpdateRating(ctx, rating); err != nil {
			t.Fatalf("failed to update rating: %v", err)
		}
	}

	entries, err := svc.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected three entries, got %d", len(entries))
	}
	if entries[0].Username != "bob" || entries[1].Username != "alice" || entries[2].Username != "carol" {
		t.Errorf("unexpected order: %s, %s, %s", entries[0].Username, entries[1].Username, entries[2].Username)
	}
	for i, entry := range entries {
		if entry.Position != i+1 {
			t.Errorf("entry %d has position %d", i, entry.Position)
		}
	}
	if entries[0].WinRate != 80 {
		t.Errorf("bob's win rate = %v, want 80", entries[0].WinRate)
	}
	if entries[0].Rank != "Platinum II" {
		t.Errorf("bob's rank = %q, want Platinum II", entries[0].Rank)
	}
}

func TestPlayerStatsRecentForm(t *testing.T) {
	svc, repo, _ := newRatingFixture(t)
	ctx := context.Background()

	if _, err := repo.GetOrCreateRating(ctx, 1, "alice"); err != nil {
		t.Fatalf("failed to seed rating: %v", err)
	}

	results := []bool{true, false, true}
	for i, won := range results {
		entry := &models.MatchHistory{
			ID:        uuid.New(),
			DuelID:    uuid.New(),
			UserID:    1,
			Won:       won,
			CreatedAt: time.Now().Add(-time.Duration(len(results)-i) * time.Hour),
		}
		if err := repo.CreateMatchHistory(ctx, entry); err != nil {
			t.Fatalf("failed to seed history: %v", err)
		}
	}

	stats, err := svc.PlayerStats(ctx, 1, "alice")
	if err != nil {
		t.Fatalf("PlayerStats failed: %v", err)
	}
	if stats.Rating.UserID != 1 {
		t.Errorf("stats carry wrong rating row: %+v", stats.Rating)
	}

	// newest first
	want := []bool{true, false, true}
	if len(stats.RecentForm) != 3 {
		t.Fatalf("expected three form entries, got %d", len(stats.RecentForm))
	}
	for i := range want {
		if stats.RecentForm[i] != want[len(want)-1-i] {
			t.Errorf("form[%d] = %v", i, stats.RecentForm[i])
		}
	}
}

func TestPlayerStatsCreatesDefaultRating(t *testing.T) {
	svc, _, db := newRatingFixture(t)

	stats, err := svc.PlayerStats(context.Background(), 7, "dave")
	if err != nil {
		t.Fatalf("PlayerStats failed: %v", err)
	}
	if stats.Rating.Elo != models.DefaultElo || stats.Rating.Rank != "Silver III" {
		t.Errorf("default rating = %d %q", stats.Rating.Elo, stats.Rating.Rank)
	}

	var count int64
	db.Model(&TestPlayerRating{}).Count(&count)
	if count != 1 {
		t.Errorf("expected the default row to be persisted, found %d", count)
	}
}

func TestHistoryClampsLimit(t *testing.T) {
	svc, repo, _ := newRatingFixture(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		entry := &models.MatchHistory{
			ID:        uuid.New(),
			DuelID:    uuid.New(),
			UserID:    1,
			Won:       i%2 == 0,
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Minute),
		}
		if err := repo.CreateMatchHistory(ctx, entry); err != nil {
			t.Fatalf("failed to seed history: %v", err)
		}
	}

	entries, err := svc.History(ctx, 1, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(entries) != 20 {
		t.Errorf("default limit should be 20, got %d", len(entries))
	}

	entries, err = svc.History(ctx, 1, 5)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("expected five entries, got %d", len(entries))
	}
}
