package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"student-records-manager/models"
)

// CascadeDeleter removes every owning record (and its remote attachments)
// referencing a deleted student. It must run strictly after the student row
// itself has been confirmed deleted: partial cleanup after a crash is
// strictly better than none, so there is no global transaction.
type CascadeDeleter struct {
	db    *gorm.DB
	store ObjectStore
}

func NewCascadeDeleter(db *gorm.DB, store ObjectStore) *CascadeDeleter {
	return &CascadeDeleter{db: db, store: store}
}

type CascadeReport struct {
	RecordsDeleted int `json:"records_deleted"`
	RecordsFailed  int `json:"records_failed"`
	FilesDeleted   int `json:"files_deleted"`
	FilesFailed    int `json:"files_failed"`
}

type cascadeRow struct {
	record      interface{} // pointer, handed to db.Delete
	attachments []models.Attachment
}

type dependentType struct {
	name string
	load func(db *gorm.DB, stuID string) ([]cascadeRow, error)
}

// Run walks the fixed list of dependent record types. Per record it deletes
// each present attachment (log and continue on failure), then deletes the
// record itself.
func (d *CascadeDeleter) Run(ctx context.Context, stuID string) CascadeReport {
	report := CascadeReport{}

	for _, dep := range dependents() {
		rows, err := dep.load(d.db, stuID)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"type":   dep.name,
				"stu_id": stuID,
			}).Error("cascade: failed to load dependent records")
			continue
		}

		for _, row := range rows {
			for _, attachment := range row.attachments {
				if !attachment.Present() {
					continue
				}
				if err := d.store.Delete(ctx, attachment.StorageKey); err != nil {
					report.FilesFailed++
					logrus.WithError(err).WithFields(logrus.Fields{
						"type": dep.name,
						"key":  attachment.StorageKey,
					}).Warn("cascade: failed to delete remote object")
					continue
				}
				report.FilesDeleted++
			}

			if err := d.db.Delete(row.record).Error; err != nil {
				report.RecordsFailed++
				logrus.WithError(err).WithField("type", dep.name).Error("cascade: failed to delete record")
				continue
			}
			report.RecordsDeleted++
		}
	}

	logrus.WithFields(logrus.Fields{
		"stu_id":          stuID,
		"records_deleted": report.RecordsDeleted,
		"records_failed":  report.RecordsFailed,
		"files_deleted":   report.FilesDeleted,
		"files_failed":    report.FilesFailed,
	}).Info("cascade deletion finished")
	return report
}

func dependents() []dependentType {
	return []dependentType{
		{"internships", func(db *gorm.DB, stuID string) ([]cascadeRow, error) {
			var recs []models.Internship
			if err := db.Where("stu_id = ?", stuID).Find(&recs).Error; err != nil {
				return nil, err
			}
			rows := make([]cascadeRow, 0, len(recs))
			for i := range recs {
				rows = append(rows, cascadeRow{
					record:      &recs[i],
					attachments: []models.Attachment{recs[i].Report, recs[i].Certificate},
				})
			}
			return rows, nil
		}},
		{"placements", func(db *gorm.DB, stuID string) ([]cascadeRow, error) {
			var recs []models.Placement
			if err := db.Where("stu_id = ?", stuID).Find(&recs).Error; err != nil {
				return nil, err
			}
			rows := make([]cascadeRow, 0, len(recs))
			for i := range recs {
				rows = append(rows, cascadeRow{
					record:      &recs[i],
					attachments: []models.Attachment{recs[i].OfferLetter},
				})
			}
			return rows, nil
		}},
		{"higher_studies", func(db *gorm.DB, stuID string) ([]cascadeRow, error) {
			var recs []models.HigherStudies
			if err := db.Where("stu_id = ?", stuID).Find(&recs).Error; err != nil {
				return nil, err
			}
			rows := make([]cascadeRow, 0, len(recs))
			for i := range recs {
				rows = append(rows, cascadeRow{
					record:      &recs[i],
					attachments: []models.Attachment{recs[i].AdmissionProof},
				})
			}
			return rows, nil
		}},
		{"achievements", func(db *gorm.DB, stuID string) ([]cascadeRow, error) {
			var recs []models.Achievement
			if err := db.Where("stu_id = ?", stuID).Find(&recs).Error; err != nil {
				return nil, err
			}
			rows := make([]cascadeRow, 0, len(recs))
			for i := range recs {
				rows = append(rows, cascadeRow{
					record:      &recs[i],
					attachments: []models.Attachment{recs[i].Certificate},
				})
			}
			return rows, nil
		}},
		{"activities", func(db *gorm.DB, stuID string) ([]cascadeRow, error) {
			var recs []models.Activity
			if err := db.Where("stu_id = ?", stuID).Find(&recs).Error; err != nil {
				return nil, err
			}
			rows := make([]cascadeRow, 0, len(recs))
			for i := range recs {
				rows = append(rows, cascadeRow{
					record:      &recs[i],
					attachments: []models.Attachment{recs[i].PhotoProof},
				})
			}
			return rows, nil
		}},
		{"semester_records", func(db *gorm.DB, stuID string) ([]cascadeRow, error) {
			var recs []models.SemesterRecord
			if err := db.Where("stu_id = ?", stuID).Find(&recs).Error; err != nil {
				return nil, err
			}
			rows := make([]cascadeRow, 0, len(recs))
			for i := range recs {
				rows = append(rows, cascadeRow{
					record:      &recs[i],
					attachments: []models.Attachment{recs[i].Marksheet},
				})
			}
			return rows, nil
		}},
		{"admissions", func(db *gorm.DB, stuID string) ([]cascadeRow, error) {
			var recs []models.Admission
			if err := db.Where("stu_id = ?", stuID).Find(&recs).Error; err != nil {
				return nil, err
			}
			rows := make([]cascadeRow, 0, len(recs))
			for i := range recs {
				rows = append(rows, cascadeRow{
					record:      &recs[i],
					attachments: []models.Attachment{recs[i].CounsellingLetter},
				})
			}
			return rows, nil
		}},
	}
}
