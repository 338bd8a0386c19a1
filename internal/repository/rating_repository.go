package repository

import (
	"context"
	"time"

	"codeduel/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// GetOrCreateRating retrieves a player's rating, creating the default row if absent
func (r *RatingRepository) GetOrCreateRating(ctx context.Context, userID uint, username string) (*models.PlayerRating, error) {
	var rating models.PlayerRating
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rating).Error

	if err == gorm.ErrRecordNotFound {
		rating = models.PlayerRating{
			ID:       uuid.New(),
			UserID:   userID,
			Username: username,
			Elo:      models.DefaultElo,
			Rank:     "Silver III",
			Level:    1,
		}

		if err := r.db.WithContext(ctx).Create(&rating).Error; err != nil {
			return nil, err
		}

		return &rating, nil
	}

	if err != nil {
		return nil, err
	}

	return &rating, nil
}

// GetRatingForUpdate retrieves a rating row under a row lock
func (r *RatingRepository) GetRatingForUpdate(ctx context.Context, userID uint) (*models.PlayerRating, error) {
	var rating models.PlayerRating
	err := forUpdate(r.db.WithContext(ctx)).Where("user_id = ?", userID).First(&rating).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// UpdateRating persists a rating row
func (r *RatingRepository) UpdateRating(ctx context.Context, rating *models.PlayerRating) error {
	return r.db.WithContext(ctx).Save(rating).Error
}

// GetTopRatings returns the leaderboard ordered by ELO descending
func (r *RatingRepository) GetTopRatings(ctx context.Context, limit int) ([]*models.PlayerRating, error) {
	var ratings []*models.PlayerRating
	err := r.db.WithContext(ctx).
		Order("elo DESC").
		Limit(limit).
		Find(&ratings).Error

	if err != nil {
		return nil, err
	}

	return ratings, nil
}

// GrantAchievement inserts an achievement; returns true when newly granted
func (r *RatingRepository) GrantAchievement(ctx context.Context, achievement *models.Achievement) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "code"}},
		DoNothing: true,
	}).Create(achievement)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// GetAchievements returns a user's achievements, newest first
func (r *RatingRepository) GetAchievements(ctx context.Context, userID uint) ([]*models.Achievement, error) {
	var achievements []*models.Achievement
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&achievements).Error

	if err != nil {
		return nil, err
	}

	return achievements, nil
}

// CreateMatchHistory appends one match history row
func (r *RatingRepository) CreateMatchHistory(ctx context.Context, entry *models.MatchHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetMatchHistory returns a user's recent matches, newest first
func (r *RatingRepository) GetMatchHistory(ctx context.Context, userID uint, limit int) ([]*models.MatchHistory, error) {
	var entries []*models.MatchHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error

	if err != nil {
		return nil, err
	}

	return entries, nil
}

// CountWinsSince counts a user's wins since the cutoff
func (r *RatingRepository) CountWinsSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MatchHistory{}).
		Where("user_id = ? AND won = ? AND created_at > ?", userID, true, since).
		Count(&count).Error

	return count, err
}
