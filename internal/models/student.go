package models

import "time"

// Genders recognised for students and targeting filters.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
)

// Student represents a learner that can take test attempts.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Gender    string    `gorm:"size:16;not null" json:"gender"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
