package models

import (
	"time"
)

type Internship struct {
	ID           uint       `json:"id" gorm:"primarykey"`
	StuID        string     `json:"stu_id" gorm:"index;not null"`
	Company      string     `json:"company" gorm:"not null"`
	Role         string     `json:"role" gorm:"not null"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      time.Time  `json:"end_date"`
	IsPaid       bool       `json:"is_paid"`
	Stipend      int        `json:"stipend"` // per month, only meaningful when IsPaid
	AcademicYear string     `json:"academic_year" gorm:"index"`
	Report       Attachment `json:"report" gorm:"embedded;embeddedPrefix:report_"`
	Certificate  Attachment `json:"certificate" gorm:"embedded;embeddedPrefix:certificate_"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
