package models

import (
	"time"
)

// Activity types.
const (
	ActivitySports    = "sports"
	ActivityCultural  = "cultural"
	ActivityTechnical = "technical"
	ActivitySocial    = "social"
)

type Activity struct {
	ID           uint       `json:"id" gorm:"primarykey"`
	StuID        string     `json:"stu_id" gorm:"index;not null"`
	Title        string     `json:"title" gorm:"not null"`
	Type         string     `json:"type" gorm:"not null"`
	Date         time.Time  `json:"date"`
	Description  string     `json:"description"`
	AcademicYear string     `json:"academic_year" gorm:"index"`
	PhotoProof   Attachment `json:"photo_proof" gorm:"embedded;embeddedPrefix:photo_proof_"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
