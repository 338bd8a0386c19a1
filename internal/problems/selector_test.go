package problems

import (
	"context"
	"fmt"
	"testing"
	"time"

	"codeduel/internal/llm"
	"codeduel/internal/models"
	"codeduel/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestProblem mirrors models.Problem but compatible with SQLite (no Postgres specific defaults)
type TestProblem struct {
	ID                uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	Title             string               `gorm:"size:255;not null" json:"title"`
	Description       string               `gorm:"type:text;not null" json:"description"`
	Difficulty        models.Difficulty    `gorm:"size:20;not null;index" json:"difficulty"`
	ProblemType       string               `gorm:"size:50;not null;index" json:"problem_type"`
	FunctionName      string               `gorm:"size:100;not null" json:"function_name"`
	Fingerprint       string               `gorm:"size:32;not null;uniqueIndex" json:"fingerprint"`
	StarterCode       models.StringMap     `gorm:"type:jsonb" json:"starter_code"`
	TestCases         models.TestCaseList  `gorm:"type:jsonb" json:"test_cases"`
	Constraints       models.StringList    `gorm:"type:jsonb" json:"constraints"`
	Hints             models.StringList    `gorm:"type:jsonb" json:"hints"`
	TimesUsed         int                  `gorm:"default:0" json:"times_used"`
	LastUsedAt        *time.Time           `gorm:"index" json:"last_used_at"`
	ReferenceSolution *string              `gorm:"type:text" json:"-"`
	Source            models.ProblemSource `gorm:"size:20;not null;default:generated" json:"source"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

func (TestProblem) TableName() string {
	return "problems"
}

// TestUserProblemHistory mirrors models.UserProblemHistory
type TestUserProblemHistory struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uint      `gorm:"not null;index:idx_history_user_fingerprint,priority:1;uniqueIndex:idx_history_user_problem_duel,priority:1" json:"user_id"`
	ProblemID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_history_user_problem_duel,priority:2" json:"problem_id"`
	DuelID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_history_user_problem_duel,priority:3" json:"duel_id"`
	Fingerprint          string    `gorm:"size:32;not null;index:idx_history_user_fingerprint,priority:2" json:"fingerprint"`
	UsedAt               time.Time `gorm:"not null;index" json:"used_at"`
	Solved               bool      `gorm:"default:false" json:"solved"`
	TestsPassed          int       `gorm:"default:0" json:"tests_passed"`
	TotalTests           int       `gorm:"default:0" json:"total_tests"`
	SolveDurationSeconds *int      `json:"solve_duration_seconds"`
	ReportedAsDuplicate  bool      `gorm:"default:false" json:"reported_as_duplicate"`
	CreatedAt            time.Time `json:"created_at"`
}

func (TestUserProblemHistory) TableName() string {
	return "user_problem_history"
}

func openSelectorDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&TestProblem{}, &TestUserProblemHistory{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func newTestSelector(db *gorm.DB) *Selector {
	generator := NewGenerator(llm.NewClient("", "claude-3-5-sonnet-latest"), nil)
	return NewSelector(repository.NewProblemRepository(db), generator, 30, 3)
}

func seedProblem(t *testing.T, db *gorm.DB, difficulty models.Difficulty, problemType, fingerprint string, timesUsed int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	problem := &TestProblem{
		ID:           id,
		Title:        "Seeded " + fingerprint,
		Description:  "A seeded problem used only by tests",
		Difficulty:   difficulty,
		ProblemType:  problemType,
		FunctionName: "seeded_" + fingerprint,
		Fingerprint:  fingerprint,
		TestCases:    models.TestCaseList{{Input: []interface{}{1}, ExpectedOutput: 1}},
		TimesUsed:    timesUsed,
		Source:       models.ProblemSourceCurated,
	}
	if err := db.Create(problem).Error; err != nil {
		t.Fatalf("failed to seed problem: %v", err)
	}
	return id
}

func seedHistory(t *testing.T, db *gorm.DB, userID uint, problemID uuid.UUID, fingerprint string, usedAt time.Time) {
	t.Helper()

	history := &TestUserProblemHistory{
		ID:          uuid.New(),
		UserID:      userID,
		ProblemID:   problemID,
		DuelID:      uuid.New(),
		Fingerprint: fingerprint,
		UsedAt:      usedAt,
	}
	if err := db.Create(history).Error; err != nil {
		t.Fatalf("failed to seed history: %v", err)
	}
}

func TestPickForDuelPrefersCached(t *testing.T) {
	db := openSelectorDB(t)
	selector := newTestSelector(db)

	id := seedProblem(t, db, models.DifficultyEasy, "array", "cachedfingerprint0000000000000001", 0)

	problem, err := selector.PickForDuel(context.Background(), []uint{1, 2}, models.DifficultyEasy, "array")
	if err != nil {
		t.Fatalf("PickForDuel failed: %v", err)
	}
	if problem.ID != id {
		t.Errorf("expected the cached problem, got %s (%s)", problem.Title, problem.ID)
	}
}

func TestPickForDuelHonorsTTL(t *testing.T) {
	db := openSelectorDB(t)
	selector := newTestSelector(db)

	fingerprint := "seenfingerprint00000000000000001"
	id := seedProblem(t, db, models.DifficultyEasy, "array", fingerprint, 0)
	seedHistory(t, db, 1, id, fingerprint, time.Now().Add(-5*24*time.Hour))

	problem, err := selector.PickForDuel(context.Background(), []uint{1}, models.DifficultyEasy, "array")
	if err != nil {
		t.Fatalf("PickForDuel failed: %v", err)
	}
	if problem.Fingerprint == fingerprint {
		t.Error("expected a problem the user has not seen within the TTL")
	}

	// the generated replacement is persisted for future duels
	var count int64
	db.Model(&TestProblem{}).Count(&count)
	if count < 2 {
		t.Errorf("expected the replacement problem to be stored, found %d rows", count)
	}
}

func TestPickForDuelIgnoresExpiredHistory(t *testing.T) {
	db := openSelectorDB(t)
	selector := newTestSelector(db)

	fingerprint := "oldfingerprint000000000000000001"
	id := seedProblem(t, db, models.DifficultyEasy, "array", fingerprint, 0)
	seedHistory(t, db, 1, id, fingerprint, time.Now().Add(-45*24*time.Hour))

	problem, err := selector.PickForDuel(context.Background(), []uint{1}, models.DifficultyEasy, "array")
	if err != nil {
		t.Fatalf("PickForDuel failed: %v", err)
	}
	if problem.ID != id {
		t.Error("expected history older than the TTL to be ignored")
	}
}

func TestPickForDuelExcludesForAnyPlayer(t *testing.T) {
	db := openSelectorDB(t)
	selector := newTestSelector(db)

	fingerprint := "player2fingerprint00000000000001"
	id := seedProblem(t, db, models.DifficultyEasy, "array", fingerprint, 0)
	seedHistory(t, db, 2, id, fingerprint, time.Now().Add(-24*time.Hour))

	// player 1 never saw it, player 2 did: it must be excluded for the pair
	problem, err := selector.PickForDuel(context.Background(), []uint{1, 2}, models.DifficultyEasy, "array")
	if err != nil {
		t.Fatalf("PickForDuel failed: %v", err)
	}
	if problem.Fingerprint == fingerprint {
		t.Error("expected a problem seen by either player to be excluded")
	}
}

func TestPickForDuelRespectsReuseCap(t *testing.T) {
	db := openSelectorDB(t)
	selector := newTestSelector(db)

	worn := "wornfingerprint00000000000000001"
	seedProblem(t, db, models.DifficultyEasy, "array", worn, 3)

	problem, err := selector.PickForDuel(context.Background(), []uint{1}, models.DifficultyEasy, "array")
	if err != nil {
		t.Fatalf("PickForDuel failed: %v", err)
	}
	if problem.Fingerprint == worn {
		t.Error("expected a problem at the reuse cap to be skipped")
	}
}

func TestPickForDuelPrefersLeastUsed(t *testing.T) {
	db := openSelectorDB(t)
	selector := newTestSelector(db)

	seedProblem(t, db, models.DifficultyMedium, "array", "busyfingerprint00000000000000001", 2)
	quiet := seedProblem(t, db, models.DifficultyMedium, "array", "quietfingerprint0000000000000001", 0)

	problem, err := selector.PickForDuel(context.Background(), []uint{1}, models.DifficultyMedium, "array")
	if err != nil {
		t.Fatalf("PickForDuel failed: %v", err)
	}
	if problem.ID != quiet {
		t.Errorf("expected the least-used problem, got %s", problem.Title)
	}
}

func TestMarkUsed(t *testing.T) {
	db := openSelectorDB(t)
	selector := newTestSelector(db)

	id := seedProblem(t, db, models.DifficultyEasy, "array", "usagefingerprint0000000000000001", 0)

	if err := selector.MarkUsed(context.Background(), id); err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}

	var problem TestProblem
	if err := db.First(&problem, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload problem: %v", err)
	}
	if problem.TimesUsed != 1 {
		t.Errorf("expected times_used 1, got %d", problem.TimesUsed)
	}
	if problem.LastUsedAt == nil {
		t.Error("expected last_used_at to be set")
	}
}

func TestSimilarSeenFlagsNearDuplicates(t *testing.T) {
	db := openSelectorDB(t)
	selector := newTestSelector(db)

	seenID := seedProblem(t, db, models.DifficultyEasy, "array", "similarfingerprint00000000000001", 0)
	db.Model(&TestProblem{}).Where("id = ?", seenID).Updates(map[string]interface{}{
		"title":         "Pair Sum",
		"function_name": "pair_sum",
	})
	seedHistory(t, db, 1, seenID, "similarfingerprint00000000000001", time.Now().Add(-24*time.Hour))

	reported := &models.Problem{
		ID:           uuid.New(),
		Title:        "Pair Sum",
		FunctionName: "pair_sum",
		ProblemType:  "array",
		Difficulty:   models.DifficultyEasy,
		Description:  "Find a pair of numbers that sums to the target",
	}

	matches, err := selector.SimilarSeen(context.Background(), 1, reported)
	if err != nil {
		t.Fatalf("SimilarSeen failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one duplicate candidate, got %d", len(matches))
	}
	if matches[0].Score < DuplicateThreshold {
		t.Errorf("expected score above threshold, got %v", matches[0].Score)
	}
}
