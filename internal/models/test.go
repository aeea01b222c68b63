package models

import "time"

// Test version lifecycle states. The transition is one-way: a published
// version never returns to draft.
const (
	TestStatusDraft     = "DRAFT"
	TestStatusPublished = "PUBLISHED"
)

// Test is one version of a base test family: an edit-until-published
// snapshot of a section/question tree. At most one version per family
// should be active at a time.
type Test struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	BaseTestID   uint      `gorm:"not null;index" json:"base_test_id"`
	SourceTestID *uint     `gorm:"index" json:"source_test_id"`
	VersionName  string    `gorm:"size:64" json:"version_name"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Status       string    `gorm:"size:16;not null;default:DRAFT" json:"status"`
	Active       bool      `gorm:"not null;default:false" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Sections     []Section `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"sections"`
}

// IsDraft reports whether the version still accepts structural edits.
func (t Test) IsDraft() bool {
	return t.Status == TestStatusDraft
}

// IsPublished reports whether the version has been frozen.
func (t Test) IsPublished() bool {
	return t.Status == TestStatusPublished
}

// Section groups questions inside one test version.
type Section struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	TestID    uint       `gorm:"not null;index" json:"test_id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Questions []Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions"`
}

// Clone deep-copies the section and its question tree with zeroed
// identities so the copy can be attached to a new test version.
func (s Section) Clone() Section {
	clone := Section{Title: s.Title}
	clone.Questions = make([]Question, 0, len(s.Questions))
	for _, question := range s.Questions {
		clone.Questions = append(clone.Questions, question.Clone())
	}
	return clone
}
