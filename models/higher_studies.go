package models

import (
	"time"
)

type HigherStudies struct {
	ID             uint       `json:"id" gorm:"primarykey"`
	StuID          string     `json:"stu_id" gorm:"index;not null"`
	Institution    string     `json:"institution" gorm:"not null"`
	Program        string     `json:"program" gorm:"not null"`
	Country        string     `json:"country"`
	AdmissionYear  int        `json:"admission_year"`
	AcademicYear   string     `json:"academic_year" gorm:"index"`
	AdmissionProof Attachment `json:"admission_proof" gorm:"embedded;embeddedPrefix:admission_proof_"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
