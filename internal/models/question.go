package models

import "time"

// Answer types a question can require. The type constrains which answer
// variant may legally attach.
const (
	AnswerTypeBinary = "BINARY"
	AnswerTypeScale  = "SCALE"
	AnswerTypeOpen   = "OPEN"
)

// Target gender filters for questions and sub-questions.
const (
	TargetGenderAny    = "ANY"
	TargetGenderMale   = "MALE"
	TargetGenderFemale = "FEMALE"
)

// Question belongs to a section and optionally fans out into
// sub-questions, each tagged with the metric it scores.
type Question struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	SectionID    uint          `gorm:"not null;index" json:"section_id"`
	QuestionText string        `gorm:"type:text;not null" json:"question_text"`
	AnswerType   string        `gorm:"size:16;not null" json:"answer_type"`
	TargetGender string        `gorm:"size:16;not null;default:ANY" json:"target_gender"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	SubQuestions []SubQuestion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"sub_questions"`
}

// VisibleTo reports whether the question targets the given gender.
func (q Question) VisibleTo(gender string) bool {
	return q.TargetGender == TargetGenderAny || q.TargetGender == gender
}

// Clone deep-copies the question and its sub-questions with zeroed
// identities.
func (q Question) Clone() Question {
	clone := Question{
		QuestionText: q.QuestionText,
		AnswerType:   q.AnswerType,
		TargetGender: q.TargetGender,
	}
	clone.SubQuestions = make([]SubQuestion, 0, len(q.SubQuestions))
	for _, sub := range q.SubQuestions {
		clone.SubQuestions = append(clone.SubQuestions, sub.Clone())
	}
	return clone
}

// SubQuestion is the scored leaf of the question tree: every scored
// answer resolves its metric through the sub-question it targets.
type SubQuestion struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	QuestionID      uint      `gorm:"not null;index" json:"question_id"`
	SubQuestionText string    `gorm:"type:text;not null" json:"sub_question_text"`
	TargetGender    string    `gorm:"size:16;not null;default:ANY" json:"target_gender"`
	MetricID        uint      `gorm:"not null;index" json:"metric_id"`
	Metric          Metric    `json:"metric"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// VisibleTo reports whether the sub-question targets the given gender.
func (s SubQuestion) VisibleTo(gender string) bool {
	return s.TargetGender == TargetGenderAny || s.TargetGender == gender
}

// Clone copies the sub-question with a zeroed identity. The metric
// reference is kept: clones score against the same catalog entry.
func (s SubQuestion) Clone() SubQuestion {
	return SubQuestion{
		SubQuestionText: s.SubQuestionText,
		TargetGender:    s.TargetGender,
		MetricID:        s.MetricID,
	}
}
