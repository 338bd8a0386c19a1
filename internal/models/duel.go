package models

import (
	"time"

	"github.com/google/uuid"
)

type DuelStatus string

const (
	DuelStatusWaiting    DuelStatus = "WAITING"
	DuelStatusInProgress DuelStatus = "IN_PROGRESS"
	DuelStatusCompleted  DuelStatus = "COMPLETED"
	DuelStatusCancelled  DuelStatus = "CANCELLED"
	DuelStatusTimedOut   DuelStatus = "TIMED_OUT"
)

// IsTerminal reports whether the status has no outbound transitions
func (s DuelStatus) IsTerminal() bool {
	return s == DuelStatusCompleted || s == DuelStatusCancelled || s == DuelStatusTimedOut
}

type DuelMode string

const (
	DuelModeRandomPlayer DuelMode = "random_player"
	DuelModeAIOpponent   DuelMode = "ai_opponent"
	DuelModePrivateRoom  DuelMode = "private_room"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// Duel represents a single coding duel between two participants
type Duel struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Mode            DuelMode          `gorm:"size:50;not null;index" json:"mode"`
	Status          DuelStatus        `gorm:"size:50;not null;default:WAITING;index;index:idx_duels_status_updated,priority:1" json:"status"`
	Difficulty      Difficulty        `gorm:"size:20;not null" json:"difficulty"`
	ProblemType     string            `gorm:"size:50;not null" json:"problem_type"`
	ProblemID       *uuid.UUID        `gorm:"type:uuid;index" json:"problem_id"`
	RoomCode        *string           `gorm:"size:12;index" json:"room_code,omitempty"`
	CreatedAt       time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"default:CURRENT_TIMESTAMP;index:idx_duels_status_updated,priority:2" json:"updated_at"`
	StartedAt       *time.Time        `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at"`
	DurationSeconds *int              `json:"duration_seconds"`
	Participants    []DuelParticipant `gorm:"foreignKey:DuelID" json:"participants"`
}

func (Duel) TableName() string {
	return "duels"
}

// ParticipantFor returns the participant row for a user, nil if absent
func (d *Duel) ParticipantFor(userID uint) *DuelParticipant {
	for i := range d.Participants {
		p := &d.Participants[i]
		if p.UserID != nil && *p.UserID == userID {
			return p
		}
	}
	return nil
}

// Winner returns the winning participant, nil if none
func (d *Duel) Winner() *DuelParticipant {
	for i := range d.Participants {
		if d.Participants[i].IsWinner {
			return &d.Participants[i]
		}
	}
	return nil
}

// HumanParticipants returns the non-AI participants
func (d *Duel) HumanParticipants() []DuelParticipant {
	var humans []DuelParticipant
	for _, p := range d.Participants {
		if !p.IsAI {
			humans = append(humans, p)
		}
	}
	return humans
}

// DuelParticipant represents one side of a duel: a user or an AI
type DuelParticipant struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DuelID               uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_participant_duel_user,priority:1" json:"duel_id"`
	UserID               *uint      `gorm:"index;uniqueIndex:idx_participant_duel_user,priority:2" json:"user_id"`
	IsAI                 bool       `gorm:"not null;default:false" json:"is_ai"`
	AIDifficulty         *string    `gorm:"size:20" json:"ai_difficulty,omitempty"`
	Username             string     `gorm:"size:255;not null" json:"username"`
	RatingBefore         int        `gorm:"not null;default:1200" json:"rating_before"`
	RatingAfter          *int       `json:"rating_after"`
	RatingDelta          *int       `json:"rating_delta"`
	IsWinner             bool       `gorm:"not null;default:false" json:"is_winner"`
	SubmissionTime       *time.Time `json:"submission_time"`
	SolveDurationSeconds *int       `json:"solve_duration_seconds"`
	TestsPassed          int        `gorm:"default:0" json:"tests_passed"`
	TotalTests           int        `gorm:"default:0" json:"total_tests"`
	FinalCode            *string    `gorm:"type:text" json:"final_code,omitempty"`
	Language             string     `gorm:"size:30;not null;default:python" json:"language"`
	CreatedAt            time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DuelParticipant) TableName() string {
	return "duel_participants"
}

type SnapshotKind string

const (
	SnapshotKindTest   SnapshotKind = "test"
	SnapshotKindSubmit SnapshotKind = "submit"
)

// CodeSnapshot is an append-only record of a graded test or submit
type CodeSnapshot struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DuelID          uuid.UUID    `gorm:"type:uuid;not null;index" json:"duel_id"`
	UserID          uint         `gorm:"not null;index" json:"user_id"`
	Kind            SnapshotKind `gorm:"size:10;not null" json:"kind"`
	Code            string       `gorm:"type:text;not null" json:"code"`
	Language        string       `gorm:"size:30;not null" json:"language"`
	TestsPassed     int          `gorm:"default:0" json:"tests_passed"`
	TestsFailed     int          `gorm:"default:0" json:"tests_failed"`
	ExecutionTimeMs int64        `gorm:"default:0" json:"execution_time_ms"`
	ErrorMessage    *string      `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt       time.Time    `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CodeSnapshot) TableName() string {
	return "code_snapshots"
}

// CreateDuelRequest represents a request to create a new duel
type CreateDuelRequest struct {
	Mode        DuelMode   `json:"mode" binding:"required"`
	Difficulty  Difficulty `json:"difficulty" binding:"required"`
	ProblemType string     `json:"problem_type"`
	RoomCode    *string    `json:"room_code"`
	Language    string     `json:"language"`
}

// JoinDuelRequest represents a request to join a waiting duel
type JoinDuelRequest struct {
	RoomCode   *string     `json:"room_code"`
	Difficulty *Difficulty `json:"difficulty"`
	Language   string      `json:"language"`
}

// SubmitCodeRequest carries code for grading
type SubmitCodeRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language"`
}

// CancelDuelRequest optionally names the duel to cancel
type CancelDuelRequest struct {
	DuelID *string `json:"duel_id"`
}

// ReportDuplicateRequest flags the duel's problem as recently seen
type ReportDuplicateRequest struct {
	Reason string `json:"reason"`
}

// DuelResponse represents a duel in API responses
type DuelResponse struct {
	ID              string            `json:"id"`
	Mode            DuelMode          `json:"mode"`
	Status          DuelStatus        `json:"status"`
	Difficulty      Difficulty        `json:"difficulty"`
	ProblemType     string            `json:"problem_type"`
	RoomCode        *string           `json:"room_code,omitempty"`
	Problem         *ProblemView      `json:"problem,omitempty"`
	Participants    []DuelParticipant `json:"participants"`
	LatestSnapshots []*CodeSnapshot   `json:"latest_snapshots,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	StartedAt       *time.Time        `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at"`
	DurationSeconds *int              `json:"duration_seconds"`
}
