package models

import "time"

// LocationModel maps postal codes and city names to store location codes
type LocationModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Code       string `gorm:"size:32;uniqueIndex;not null"`
	City       string `gorm:"size:255;index"`
	PostalCode string `gorm:"size:16;index"`
	KladrCode  string `gorm:"size:32;index"`
	CreatedAt  time.Time
}

// TableName returns the table name for LocationModel
func (LocationModel) TableName() string {
	return "locations"
}
