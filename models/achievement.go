package models

import (
	"time"
)

// Achievement levels.
const (
	LevelCollege       = "college"
	LevelState         = "state"
	LevelNational      = "national"
	LevelInternational = "international"
)

type Achievement struct {
	ID           uint       `json:"id" gorm:"primarykey"`
	StuID        string     `json:"stu_id" gorm:"index;not null"`
	Title        string     `json:"title" gorm:"not null"`
	Description  string     `json:"description"`
	Level        string     `json:"level" gorm:"not null"`
	Date         time.Time  `json:"date"`
	AcademicYear string     `json:"academic_year" gorm:"index"`
	Certificate  Attachment `json:"certificate" gorm:"embedded;embeddedPrefix:certificate_"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
