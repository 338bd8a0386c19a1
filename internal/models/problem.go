package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ProblemSource string

const (
	ProblemSourceGenerated ProblemSource = "generated"
	ProblemSourceCurated   ProblemSource = "curated"
)

// TestCase is a single judge case stored in a problem's JSON column
type TestCase struct {
	Input          interface{} `json:"input"`
	ExpectedOutput interface{} `json:"expected_output"`
	Hidden         bool        `json:"hidden"`
}

// TestCaseList is a JSON column of test cases
type TestCaseList []TestCase

func (l TestCaseList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *TestCaseList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return nil
}

// StringMap is a JSON column mapping language to source text
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *StringMap) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return nil
}

// StringList is a JSON column of strings
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return nil
}

// Problem represents an algorithmic problem served to duels
type Problem struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title             string        `gorm:"size:255;not null" json:"title"`
	Description       string        `gorm:"type:text;not null" json:"description"`
	Difficulty        Difficulty    `gorm:"size:20;not null;index" json:"difficulty"`
	ProblemType       string        `gorm:"size:50;not null;index" json:"problem_type"`
	FunctionName      string        `gorm:"size:100;not null" json:"function_name"`
	Fingerprint       string        `gorm:"size:32;not null;uniqueIndex" json:"fingerprint"`
	StarterCode       StringMap     `gorm:"type:jsonb" json:"starter_code"`
	TestCases         TestCaseList  `gorm:"type:jsonb;not null" json:"test_cases"`
	Constraints       StringList    `gorm:"type:jsonb" json:"constraints"`
	Hints             StringList    `gorm:"type:jsonb" json:"hints"`
	TimesUsed         int           `gorm:"default:0" json:"times_used"`
	LastUsedAt        *time.Time    `gorm:"index" json:"last_used_at"`
	ReferenceSolution *string       `gorm:"type:text" json:"-"`
	Source            ProblemSource `gorm:"size:20;not null;default:generated" json:"source"`
	CreatedAt         time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Problem) TableName() string {
	return "problems"
}

// VisibleTestCases returns the non-hidden cases
func (p *Problem) VisibleTestCases() []TestCase {
	var visible []TestCase
	for _, tc := range p.TestCases {
		if !tc.Hidden {
			visible = append(visible, tc)
		}
	}
	return visible
}

// ToView strips hidden cases and the reference solution for client delivery
func (p *Problem) ToView() *ProblemView {
	return &ProblemView{
		ID:           p.ID.String(),
		Title:        p.Title,
		Description:  p.Description,
		Difficulty:   p.Difficulty,
		ProblemType:  p.ProblemType,
		FunctionName: p.FunctionName,
		StarterCode:  p.StarterCode,
		TestCases:    p.VisibleTestCases(),
		Constraints:  p.Constraints,
		Hints:        p.Hints,
		TotalTests:   len(p.TestCases),
	}
}

// ProblemView is the client-safe projection of a problem
type ProblemView struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Difficulty   Difficulty `json:"difficulty"`
	ProblemType  string     `json:"problem_type"`
	FunctionName string     `json:"function_name"`
	StarterCode  StringMap  `json:"starter_code"`
	TestCases    []TestCase `json:"test_cases"`
	Constraints  StringList `json:"constraints"`
	Hints        StringList `json:"hints"`
	TotalTests   int        `json:"total_tests"`
}

// UserProblemHistory records one problem exposure per user per duel
type UserProblemHistory struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
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
	CreatedAt            time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (UserProblemHistory) TableName() string {
	return "user_problem_history"
}
