package models

import "time"

// BaseTest is a test family that owns successive versions and a metric catalog.
type BaseTest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Type      string    `gorm:"size:64;not null" json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
