package repository

import (
	"context"
	"time"

	"codeduel/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProblemRepository struct {
	db *gorm.DB
}

func NewProblemRepository(db *gorm.DB) *ProblemRepository {
	return &ProblemRepository{db: db}
}

// CreateProblem inserts a problem; on fingerprint conflict the existing row wins
func (r *ProblemRepository) CreateProblem(ctx context.Context, problem *models.Problem) (*models.Problem, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoNothing: true,
	}).Create(problem)

	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		return r.GetProblemByFingerprint(ctx, problem.Fingerprint)
	}

	return problem, nil
}

// GetProblemByID retrieves a problem by ID
func (r *ProblemRepository) GetProblemByID(ctx context.Context, problemID uuid.UUID) (*models.Problem, error) {
	var problem models.Problem
	err := r.db.WithContext(ctx).Where("id = ?", problemID).First(&problem).Error
	if err != nil {
		return nil, err
	}
	return &problem, nil
}

// GetProblemByFingerprint retrieves a problem by fingerprint
func (r *ProblemRepository) GetProblemByFingerprint(ctx context.Context, fingerprint string) (*models.Problem, error) {
	var problem models.Problem
	err := r.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&problem).Error
	if err != nil {
		return nil, err
	}
	return &problem, nil
}

// FindAvailableProblem returns the least-used problem of the given shape whose
// fingerprint is not excluded, nil if the pool is exhausted
func (r *ProblemRepository) FindAvailableProblem(
	ctx context.Context,
	difficulty models.Difficulty,
	problemType string,
	excludedFingerprints []string,
	maxReuse int,
) (*models.Problem, error) {
	query := r.db.WithContext(ctx).
		Where("difficulty = ? AND problem_type = ? AND times_used < ?", difficulty, problemType, maxReuse)

	if len(excludedFingerprints) > 0 {
		query = query.Where("fingerprint NOT IN ?", excludedFingerprints)
	}

	var problem models.Problem
	err := query.
		Order("times_used ASC").
		Order("COALESCE(last_used_at, '1970-01-01') ASC").
		First(&problem).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &problem, nil
}

// MarkProblemUsed bumps the usage counter atomically
func (r *ProblemRepository) MarkProblemUsed(ctx context.Context, problemID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Problem{}).
		Where("id = ?", problemID).
		Updates(map[string]interface{}{
			"times_used":   gorm.Expr("times_used + ?", 1),
			"last_used_at": time.Now(),
		}).Error
}

// CreateHistory records a problem exposure. A second write under the same
// uniqueness key refreshes the result columns instead of inserting, so an
// early exposure row (e.g. from a duplicate report) picks up the final
// solved/test counts when the duel completes.
func (r *ProblemRepository) CreateHistory(ctx context.Context, history *models.UserProblemHistory) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "problem_id"}, {Name: "duel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"solved", "tests_passed", "total_tests", "solve_duration_seconds",
		}),
	}).Create(history).Error
}

// GetRecentFingerprints returns fingerprints any of the users saw since the cutoff
func (r *ProblemRepository) GetRecentFingerprints(
	ctx context.Context,
	userIDs []uint,
	since time.Time,
) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var fingerprints []string
	err := r.db.WithContext(ctx).Model(&models.UserProblemHistory{}).
		Where("user_id IN ? AND used_at > ?", userIDs, since).
		Distinct().
		Pluck("fingerprint", &fingerprints).Error

	if err != nil {
		return nil, err
	}

	return fingerprints, nil
}

// GetProblemsByFingerprints loads problems matching the given fingerprints
func (r *ProblemRepository) GetProblemsByFingerprints(ctx context.Context, fingerprints []string) ([]*models.Problem, error) {
	if len(fingerprints) == 0 {
		return nil, nil
	}

	var problems []*models.Problem
	err := r.db.WithContext(ctx).
		Where("fingerprint IN ?", fingerprints).
		Find(&problems).Error

	if err != nil {
		return nil, err
	}

	return problems, nil
}

// MarkReportedAsDuplicate flags the user's history row for a duel
func (r *ProblemRepository) MarkReportedAsDuplicate(ctx context.Context, userID uint, duelID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.UserProblemHistory{}).
		Where("user_id = ? AND duel_id = ?", userID, duelID).
		Update("reported_as_duplicate", true).Error
}

// GetHistoryForUser returns a user's problem history, newest first
func (r *ProblemRepository) GetHistoryForUser(
	ctx context.Context,
	userID uint,
	limit int,
) ([]*models.UserProblemHistory, error) {
	var history []*models.UserProblemHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("used_at DESC").
		Limit(limit).
		Find(&history).Error

	if err != nil {
		return nil, err
	}

	return history, nil
}
