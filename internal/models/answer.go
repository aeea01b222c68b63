package models

import (
	"time"

	"gorm.io/datatypes"
)

// Scale answer bounds.
const (
	ScaleMin = 1
	ScaleMax = 7
)

// Scale levels derived from the raw 1..7 value.
const (
	ScaleLevelLow    = "Low"
	ScaleLevelMedium = "Medium"
	ScaleLevelHigh   = "High"
)

// Answer records a student's response to one question or sub-question
// within an attempt. The three variants share one table discriminated
// by AnswerType; only the matching payload column is populated.
// Exactly one row exists per (attempt, question, sub-question) key.
type Answer struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	AttemptID     uint                        `gorm:"not null;uniqueIndex:idx_answer_key" json:"attempt_id"`
	QuestionID    uint                        `gorm:"not null;uniqueIndex:idx_answer_key" json:"question_id"`
	SubQuestionID *uint                       `gorm:"uniqueIndex:idx_answer_key" json:"sub_question_id"`
	AnswerType    string                      `gorm:"size:16;not null" json:"answer_type"`
	BinaryValue   *bool                       `json:"binary_value,omitempty"`
	ScaleValue    *int                        `json:"scale_value,omitempty"`
	OpenValues    datatypes.JSONSlice[string] `json:"open_values,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// ScaleLevel maps the scale value to its coarse level. Empty for
// non-scale answers.
func (a Answer) ScaleLevel() string {
	if a.AnswerType != AnswerTypeScale || a.ScaleValue == nil {
		return ""
	}
	switch {
	case *a.ScaleValue >= 5:
		return ScaleLevelHigh
	case *a.ScaleValue >= 2:
		return ScaleLevelMedium
	default:
		return ScaleLevelLow
	}
}

// Contribution returns the numeric score this answer adds to its
// metric. Open answers and unset payloads contribute nothing.
func (a Answer) Contribution() int {
	switch a.AnswerType {
	case AnswerTypeBinary:
		if a.BinaryValue != nil && *a.BinaryValue {
			return 1
		}
	case AnswerTypeScale:
		if a.ScaleValue != nil {
			return *a.ScaleValue
		}
	}
	return 0
}
