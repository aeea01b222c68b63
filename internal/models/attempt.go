package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// TestAttempt is one student's pass through a published test version.
// Once finalized the attempt is immutable and carries its evaluation.
type TestAttempt struct {
	ID              uint                               `gorm:"primaryKey" json:"id"`
	StudentID       uint                               `gorm:"not null;index" json:"student_id"`
	TestID          uint                               `gorm:"not null;index" json:"test_id"`
	Finalized       bool                               `gorm:"not null;default:false" json:"finalized"`
	PersonalityCode string                             `gorm:"size:128" json:"personality_code"`
	MetricScores    datatypes.JSONType[map[string]int] `json:"metric_scores"`
	FinalizedAt     *time.Time                         `json:"finalized_at"`
	CreatedAt       time.Time                          `json:"created_at"`
	UpdatedAt       time.Time                          `json:"updated_at"`
	Answers         []Answer                           `gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers"`
	Student         Student                            `json:"student"`
}

// EvaluationResult is the computed outcome of finalizing an attempt.
type EvaluationResult struct {
	MetricScores    map[string]int `json:"metric_scores"`
	PersonalityCode string         `json:"personality_code"`
}

// PersonalityCode joins up to the first three ranked metric codes with
// hyphens. Fewer than three codes yield a shorter join; none yields "".
func PersonalityCode(ranked []string) string {
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	return strings.Join(ranked, "-")
}
