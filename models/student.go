package models

import (
	"time"
)

// Student is the root entity. Deleting a student cascades over every owning
// record type that references it by StudentID.
type Student struct {
	ID              uint       `json:"id" gorm:"primarykey"`
	StudentID       string     `json:"student_id" gorm:"unique;not null"`
	Name            string     `json:"name" gorm:"not null"`
	Email           string     `json:"email" gorm:"unique;not null"`
	Password        string     `json:"-" gorm:"not null"` // bcrypt hash, generated at create/import
	Department      string     `json:"department"`
	YearOfAdmission int        `json:"year_of_admission"`
	Phone           string     `json:"phone"`
	Photo           Attachment `json:"photo" gorm:"embedded;embeddedPrefix:photo_"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
