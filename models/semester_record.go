package models

import (
	"time"
)

// SemesterRecord is unique per student and semester.
type SemesterRecord struct {
	ID           uint       `json:"id" gorm:"primarykey"`
	StuID        string     `json:"stu_id" gorm:"not null;uniqueIndex:idx_semester_stu"`
	Semester     int        `json:"semester" gorm:"not null;uniqueIndex:idx_semester_stu"`
	SGPA         float64    `json:"sgpa"`
	Backlogs     int        `json:"backlogs"`
	AcademicYear string     `json:"academic_year" gorm:"index"`
	Marksheet    Attachment `json:"marksheet" gorm:"embedded;embeddedPrefix:marksheet_"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
