package repository

import (
	"context"
	"time"

	"codeduel/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DuelRepository struct {
	db *gorm.DB
}

func NewDuelRepository(db *gorm.DB) *DuelRepository {
	return &DuelRepository{db: db}
}

// Transaction runs fn with a transaction-scoped repository
func (r *DuelRepository) Transaction(ctx context.Context, fn func(tx *DuelRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DuelRepository{db: tx})
	})
}

// DB exposes the underlying handle for cross-repository transactions
func (r *DuelRepository) DB() *gorm.DB {
	return r.db
}

// forUpdate applies row locking; sqlite has a single writer and no FOR UPDATE syntax
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// CreateDuel creates a new duel together with its participants
func (r *DuelRepository) CreateDuel(ctx context.Context, duel *models.Duel) error {
	return r.db.WithContext(ctx).Create(duel).Error
}

// GetDuelByID retrieves a duel with participants by ID
func (r *DuelRepository) GetDuelByID(ctx context.Context, duelID uuid.UUID) (*models.Duel, error) {
	var duel models.Duel
	err := r.db.WithContext(ctx).Preload("Participants").Where("id = ?", duelID).First(&duel).Error
	if err != nil {
		return nil, err
	}
	return &duel, nil
}

// GetDuelByIDForUpdate retrieves a duel under a row lock for mutation
func (r *DuelRepository) GetDuelByIDForUpdate(ctx context.Context, duelID uuid.UUID) (*models.Duel, error) {
	var duel models.Duel
	err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", duelID).First(&duel).Error
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Where("duel_id = ?", duelID).Find(&duel.Participants).Error; err != nil {
		return nil, err
	}
	return &duel, nil
}

// UpdateDuel persists duel fields without touching participant rows
func (r *DuelRepository) UpdateDuel(ctx context.Context, duel *models.Duel) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(duel).Error
}

// UpdateDuelFields applies a targeted column update
func (r *DuelRepository) UpdateDuelFields(ctx context.Context, duelID uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Duel{}).Where("id = ?", duelID).Updates(fields).Error
}

// AddParticipant attaches a participant row to a duel
func (r *DuelRepository) AddParticipant(ctx context.Context, participant *models.DuelParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

// UpdateParticipant persists a participant row
func (r *DuelRepository) UpdateParticipant(ctx context.Context, participant *models.DuelParticipant) error {
	return r.db.WithContext(ctx).Save(participant).Error
}

// RemoveParticipant deletes a participant row (join compensation only)
func (r *DuelRepository) RemoveParticipant(ctx context.Context, participantID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", participantID).Delete(&models.DuelParticipant{}).Error
}

// GetActiveDuelForUser returns the user's duel in one of the given statuses, nil if none
func (r *DuelRepository) GetActiveDuelForUser(
	ctx context.Context,
	userID uint,
	statuses []models.DuelStatus,
) (*models.Duel, error) {
	var duel models.Duel
	err := r.db.WithContext(ctx).
		Joins("JOIN duel_participants ON duel_participants.duel_id = duels.id").
		Where("duel_participants.user_id = ? AND duels.status IN ?", userID, statuses).
		Order("duels.created_at DESC").
		Preload("Participants").
		First(&duel).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &duel, nil
}

// FindWaitingDuelsForUpdate locks and returns the oldest waiting duels for matchmaking.
// Participant inspection happens in the caller; the lock covers the duel rows only.
func (r *DuelRepository) FindWaitingDuelsForUpdate(
	ctx context.Context,
	mode models.DuelMode,
	difficulty *models.Difficulty,
	roomCode *string,
	limit int,
) ([]*models.Duel, error) {
	query := forUpdate(r.db.WithContext(ctx)).
		Where("status = ? AND mode = ?", models.DuelStatusWaiting, mode)

	if difficulty != nil {
		query = query.Where("difficulty = ?", *difficulty)
	}
	if roomCode != nil {
		query = query.Where("room_code = ?", *roomCode)
	}

	var duels []*models.Duel
	err := query.Order("created_at ASC").Limit(limit).Find(&duels).Error
	if err != nil {
		return nil, err
	}

	for _, duel := range duels {
		if err := r.db.WithContext(ctx).Where("duel_id = ?", duel.ID).Find(&duel.Participants).Error; err != nil {
			return nil, err
		}
	}

	return duels, nil
}

// FindWaitingDuelsOlderThan returns waiting duels of a mode created before the cutoff
func (r *DuelRepository) FindWaitingDuelsOlderThan(
	ctx context.Context,
	mode models.DuelMode,
	cutoff time.Time,
) ([]*models.Duel, error) {
	var duels []*models.Duel
	err := r.db.WithContext(ctx).
		Where("status = ? AND mode = ? AND created_at < ?", models.DuelStatusWaiting, mode, cutoff).
		Order("created_at ASC").
		Preload("Participants").
		Find(&duels).Error

	if err != nil {
		return nil, err
	}

	return duels, nil
}

// FindInProgressStartedBefore returns in-progress duels whose deadline has passed
func (r *DuelRepository) FindInProgressStartedBefore(ctx context.Context, cutoff time.Time) ([]*models.Duel, error) {
	var duels []*models.Duel
	err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", models.DuelStatusInProgress, cutoff).
		Order("started_at ASC").
		Preload("Participants").
		Find(&duels).Error

	if err != nil {
		return nil, err
	}

	return duels, nil
}

// CreateSnapshot appends a code snapshot
func (r *DuelRepository) CreateSnapshot(ctx context.Context, snapshot *models.CodeSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// GetLatestSnapshots returns the newest snapshot per user for a duel
func (r *DuelRepository) GetLatestSnapshots(ctx context.Context, duelID uuid.UUID) ([]*models.CodeSnapshot, error) {
	var snapshots []*models.CodeSnapshot
	err := r.db.WithContext(ctx).
		Where("duel_id = ?", duelID).
		Order("created_at DESC").
		Find(&snapshots).Error

	if err != nil {
		return nil, err
	}

	latest := make([]*models.CodeSnapshot, 0, 2)
	seen := make(map[uint]bool)
	for _, snap := range snapshots {
		if seen[snap.UserID] {
			continue
		}
		seen[snap.UserID] = true
		latest = append(latest, snap)
	}

	return latest, nil
}
