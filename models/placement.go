package models

import (
	"time"
)

type Placement struct {
	ID           uint       `json:"id" gorm:"primarykey"`
	StuID        string     `json:"stu_id" gorm:"index;not null"`
	Company      string     `json:"company" gorm:"not null"`
	Role         string     `json:"role" gorm:"not null"`
	CTC          float64    `json:"ctc"` // lakhs per annum
	JoiningDate  time.Time  `json:"joining_date"`
	AcademicYear string     `json:"academic_year" gorm:"index"`
	OfferLetter  Attachment `json:"offer_letter" gorm:"embedded;embeddedPrefix:offer_letter_"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
