package models

import (
	"time"
)

// Manifestation holds the single current row of a slot.
type Manifestation struct {
	Slot      string    `json:"slot" gorm:"primaryKey;type:text"`
	ID        string    `json:"id" gorm:"type:text;not null;uniqueIndex"`
	Type      string    `json:"type" gorm:"type:text;not null"`
	Day       string    `json:"day" gorm:"type:text;not null;index"`
	Title     string    `json:"title" gorm:"type:text;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Author    string    `json:"author" gorm:"type:text;not null"`
	Fallback  bool      `json:"fallback" gorm:"type:boolean;not null;default:false"`
	Model     string    `json:"model" gorm:"type:text"`
	CDate     time.Time `json:"cdate" gorm:"not null"`
	MDate     time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

// ManifestationHistory is an append-only copy of every stored manifestation.
// It is only written when history retention is enabled.
type ManifestationHistory struct {
	ID       string    `json:"id" gorm:"primaryKey;type:text"`
	Slot     string    `json:"slot" gorm:"type:text;not null;index"`
	Type     string    `json:"type" gorm:"type:text;not null"`
	Day      string    `json:"day" gorm:"type:text;not null;index"`
	Title    string    `json:"title" gorm:"type:text;not null"`
	Content  string    `json:"content" gorm:"type:text;not null"`
	Author   string    `json:"author" gorm:"type:text;not null"`
	Fallback bool      `json:"fallback" gorm:"type:boolean;not null;default:false"`
	Model    string    `json:"model" gorm:"type:text"`
	CDate    time.Time `json:"cdate" gorm:"not null"`
}

func (ManifestationHistory) TableName() string {
	return "manifestation_history"
}
