package services

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"student-records-manager/models"
)

// MaxImportRows caps one spreadsheet import.
const MaxImportRows = 100

// RosterService handles bulk student import and export via spreadsheets.
type RosterService struct {
	db     *gorm.DB
	mailer CredentialSender
}

func NewRosterService(db *gorm.DB, mailer CredentialSender) *RosterService {
	return &RosterService{db: db, mailer: mailer}
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportSummary struct {
	Created     int              `json:"created"`
	Failed      []ImportRowError `json:"failed"`
	Emailed     int              `json:"emailed"`
	EmailFailed []SendFailure    `json:"email_failed"`
}

// Import reads an xlsx sheet with required StudentID and Email columns,
// creates a student per row with a generated credential and mails the
// plaintext credential in rate-limited batches.
func (s *RosterService) Import(r io.Reader) (*ImportSummary, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("spreadsheet has no data rows")
	}
	if len(rows)-1 > MaxImportRows {
		return nil, fmt.Errorf("import is limited to %d rows per upload", MaxImportRows)
	}

	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	var mails []CredentialMail

	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		studentID := strings.TrimSpace(cols.value(row, "studentid"))
		email := strings.TrimSpace(cols.value(row, "email"))
		if studentID == "" || email == "" {
			summary.Failed = append(summary.Failed, ImportRowError{Row: rowNum, Message: "StudentID and Email are required"})
			continue
		}

		password, err := randomPassword(10)
		if err != nil {
			summary.Failed = append(summary.Failed, ImportRowError{Row: rowNum, Message: "failed to generate credential"})
			continue
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			summary.Failed = append(summary.Failed, ImportRowError{Row: rowNum, Message: "failed to hash credential"})
			continue
		}

		year, _ := strconv.Atoi(strings.TrimSpace(cols.value(row, "yearofadmission")))
		student := models.Student{
			StudentID:       studentID,
			Name:            strings.TrimSpace(cols.value(row, "name")),
			Email:           email,
			Password:        string(hashed),
			Department:      strings.TrimSpace(cols.value(row, "department")),
			YearOfAdmission: year,
			Phone:           strings.TrimSpace(cols.value(row, "phone")),
		}
		if err := s.db.Create(&student).Error; err != nil {
			message := "failed to create student"
			if isUniqueViolation(err) {
				message = "a student with this StudentID or Email already exists"
			}
			summary.Failed = append(summary.Failed, ImportRowError{Row: rowNum, Message: message})
			continue
		}

		summary.Created++
		mails = append(mails, CredentialMail{
			To:        email,
			Name:      student.Name,
			StudentID: studentID,
			Password:  password,
		})
	}

	summary.EmailFailed = s.mailer.SendCredentials(mails)
	summary.Emailed = len(mails) - len(summary.EmailFailed)
	return summary, nil
}

// Export writes every student to an xlsx sheet with a fixed column set.
func (s *RosterService) Export(w io.Writer) error {
	var students []models.Student
	if err := s.db.Order("student_id").Find(&students).Error; err != nil {
		return fmt.Errorf("failed to load students: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := []interface{}{"StudentID", "Name", "Email", "Department", "YearOfAdmission", "Phone", "CreatedAt"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, student := range students {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			student.StudentID,
			student.Name,
			student.Email,
			student.Department,
			student.YearOfAdmission,
			student.Phone,
			student.CreatedAt.Format("2006-01-02"),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}

type columnMap map[string]int

func (m columnMap) value(row []string, name string) string {
	idx, ok := m[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func mapColumns(header []string) (columnMap, error) {
	cols := columnMap{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"studentid", "email"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("spreadsheet is missing the required %q column", required)
		}
	}
	return cols, nil
}

// GeneratePassword returns a fresh random credential for a single student
// created outside the bulk import flow.
func GeneratePassword() (string, error) {
	return randomPassword(10)
}

const passwordCharset = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomPassword(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordCharset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordCharset[n.Int64()]
	}
	return string(out), nil
}

// isUniqueViolation matches sqlite's unique-constraint error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
