package models

import "time"

// Metric is a named scoring dimension owned by a base test family.
// Codes are unique within their family and feed personality codes.
type Metric struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BaseTestID  uint      `gorm:"not null;uniqueIndex:idx_metric_family_code" json:"base_test_id"`
	Code        string    `gorm:"size:32;not null;uniqueIndex:idx_metric_family_code" json:"code"`
	Label       string    `gorm:"size:255" json:"label"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
