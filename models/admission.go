package models

import (
	"time"
)

type Admission struct {
	ID                uint       `json:"id" gorm:"primarykey"`
	StuID             string     `json:"stu_id" gorm:"index;not null"`
	AdmissionNumber   string     `json:"admission_number" gorm:"unique;not null"`
	Quota             string     `json:"quota"`
	Category          string     `json:"category"`
	AdmissionDate     time.Time  `json:"admission_date"`
	AcademicYear      string     `json:"academic_year" gorm:"index"`
	CounsellingLetter Attachment `json:"counselling_letter" gorm:"embedded;embeddedPrefix:counselling_letter_"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
