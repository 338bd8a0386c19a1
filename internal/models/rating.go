package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultElo = 1200

// PlayerRating tracks a user's competitive standing
type PlayerRating struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
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
	CreatedAt           time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PlayerRating) TableName() string {
	return "player_ratings"
}

// WinRate returns the percentage of duels won
func (r *PlayerRating) WinRate() float64 {
	if r.TotalDuels == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.TotalDuels) * 100
}

type AchievementCode string

const (
	AchievementFirstVictory  AchievementCode = "first_victory"
	AchievementSpeedDemon    AchievementCode = "speed_demon"
	AchievementWinningStreak AchievementCode = "winning_streak"
	AchievementPerfectWeek   AchievementCode = "perfect_week"
)

// Achievement is granted at most once per user per code
type Achievement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      uint            `gorm:"not null;index;uniqueIndex:idx_achievement_user_code,priority:1" json:"user_id"`
	Code        AchievementCode `gorm:"size:50;not null;uniqueIndex:idx_achievement_user_code,priority:2" json:"code"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Description string          `gorm:"size:255" json:"description"`
	EarnedAt    time.Time       `gorm:"not null" json:"earned_at"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// MatchHistory stores one row per human participant per completed duel
type MatchHistory struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DuelID               uuid.UUID  `gorm:"type:uuid;not null;index" json:"duel_id"`
	UserID               uint       `gorm:"not null;index:idx_match_history_user_created,priority:1" json:"user_id"`
	OpponentName         string     `gorm:"size:255" json:"opponent_name"`
	Won                  bool       `gorm:"not null" json:"won"`
	RatingDelta          int        `gorm:"not null" json:"rating_delta"`
	EloAfter             int        `gorm:"not null" json:"elo_after"`
	SolveDurationSeconds *int       `json:"solve_duration_seconds"`
	ProblemTitle         string     `gorm:"size:255" json:"problem_title"`
	Difficulty           Difficulty `gorm:"size:20" json:"difficulty"`
	CreatedAt            time.Time  `gorm:"default:CURRENT_TIMESTAMP;index:idx_match_history_user_created,priority:2" json:"created_at"`
}

func (MatchHistory) TableName() string {
	return "match_history"
}

// LeaderboardEntry is one row of the ELO leaderboard
type LeaderboardEntry struct {
	Position int     `json:"position"`
	UserID   uint    `json:"user_id"`
	Username string  `json:"username"`
	Elo      int     `json:"elo"`
	Rank     string  `json:"rank"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	WinRate  float64 `json:"win_rate"`
}

// PlayerStatsResponse aggregates a player's competitive profile
type PlayerStatsResponse struct {
	Rating       PlayerRating  `json:"rating"`
	Achievements []Achievement `json:"achievements"`
	RecentForm   []bool        `json:"recent_form"`
}
