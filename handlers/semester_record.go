package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"student-records-manager/middleware"
	"student-records-manager/models"
	"student-records-manager/services"
	"student-records-manager/utils"
)

type SemesterRecordHandler struct {
	db          *gorm.DB
	attachments *services.AttachmentManager
}

func NewSemesterRecordHandler(db *gorm.DB, attachments *services.AttachmentManager) *SemesterRecordHandler {
	return &SemesterRecordHandler{db: db, attachments: attachments}
}

var marksheetConfig = services.FileFieldConfig{
	Field:        "marksheet",
	DisplayName:  "Semester marksheet",
	AllowedTypes: pdfTypes,
	MaxSize:      maxDocumentSize,
}

type semesterRecordListItem struct {
	models.SemesterRecord
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

func (h *SemesterRecordHandler) Create(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	form, ok := requireMultipart(c)
	if !ok {
		return
	}

	var fieldErrs []utils.FieldError

	stuID, ownerErr := resolveOwner(h.db, c, actor)
	if ownerErr != nil {
		fieldErrs = append(fieldErrs, *ownerErr)
	}

	semester := 0
	if raw, _ := formValue(form, "semester"); raw == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "semester", Message: "semester is required"})
	} else if parsed, err := strconv.Atoi(raw); err != nil || parsed < 1 || parsed > 10 {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "semester", Message: "semester must be between 1 and 10"})
	} else {
		semester = parsed
	}

	sgpa := 0.0
	if raw, _ := formValue(form, "sgpa"); raw == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "sgpa", Message: "sgpa is required"})
	} else if parsed, err := strconv.ParseFloat(raw, 64); err != nil || parsed < 0 || parsed > 10 {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "sgpa", Message: "sgpa must be between 0 and 10"})
	} else {
		sgpa = parsed
	}

	backlogs := 0
	if raw, supplied := formValue(form, "backlogs"); supplied && raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "backlogs", Message: "backlogs must be zero or a positive number"})
		} else {
			backlogs = parsed
		}
	}

	academicYear, _ := formValue(form, "academic_year")

	if len(fieldErrs) > 0 {
		utils.ValidationFailed(c, fieldErrs)
		return
	}

	var created models.SemesterRecord
	err := h.attachments.CreateWithFiles(c.Request.Context(), form, "semester-records", []services.FileFieldConfig{marksheetConfig}, func(files map[string]models.Attachment) error {
		created = models.SemesterRecord{
			StuID:        stuID,
			Semester:     semester,
			SGPA:         sgpa,
			Backlogs:     backlogs,
			AcademicYear: academicYear,
			Marksheet:    files["marksheet"],
		}
		return h.db.Create(&created).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			utils.Error(c, http.StatusBadRequest, "A record for this semester already exists")
			return
		}
		writeServiceError(c, err)
		return
	}

	utils.Created(c, "Semester record created", created)
}

func (h *SemesterRecordHandler) List(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)

	query := h.db.Model(&models.SemesterRecord{}).
		Joins("JOIN students ON students.student_id = semester_records.stu_id")

	if year := c.Query("year"); year != "" {
		query = query.Where("semester_records.academic_year = ?", year)
	}
	if semester := c.Query("semester"); semester != "" {
		query = query.Where("semester_records.semester = ?", semester)
	}
	if search := c.Query("search"); search != "" {
		query = searchWhere(query, search, "semester_records.stu_id", "students.name")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServiceError(c, err)
		return
	}

	var items []semesterRecordListItem
	err := query.
		Select("semester_records.*, students.name AS student_name, students.email AS student_email").
		Order("semester_records.stu_id, semester_records.semester").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Paginated(c, items, total, page, utils.TotalPages(total, limit))
}

func (h *SemesterRecordHandler) Mine(c *gin.Context) {
	actor := middleware.CurrentActor(c)

	var items []models.SemesterRecord
	if err := h.db.Where("stu_id = ?", actor.StudentID).Order("semester").Find(&items).Error; err != nil {
		writeServiceError(c, err)
		return
	}
	utils.OK(c, items)
}

func (h *SemesterRecordHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.SemesterRecord
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Semester") {
		return
	}
	utils.OK(c, rec)
}

func (h *SemesterRecordHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.SemesterRecord
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Semester") {
		return
	}

	form, ok := requireMultipart(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	var fieldErrs []utils.FieldError

	if v, supplied := formValue(form, "sgpa"); supplied {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 10 {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "sgpa", Message: "sgpa must be between 0 and 10"})
		} else {
			updates["sgpa"] = parsed
		}
	}
	if v, supplied := formValue(form, "backlogs"); supplied {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "backlogs", Message: "backlogs must be zero or a positive number"})
		} else {
			updates["backlogs"] = parsed
		}
	}
	if v, supplied := formValue(form, "academic_year"); supplied {
		updates["academic_year"] = v
	}

	replacing := hasFile(form, marksheetConfig.Field)
	if ferr := checkReplacementFile(form, marksheetConfig); ferr != nil {
		fieldErrs = append(fieldErrs, *ferr)
	}

	if len(fieldErrs) > 0 {
		utils.ValidationFailed(c, fieldErrs)
		return
	}

	if len(updates) == 0 && !replacing {
		utils.Error(c, http.StatusBadRequest, "No valid fields provided for update")
		return
	}

	if len(updates) > 0 {
		if err := h.db.Model(&rec).Updates(updates).Error; err != nil {
			writeServiceError(c, err)
			return
		}
	}

	if replacing {
		err := h.attachments.ReplaceFile(c.Request.Context(), form, "semester-records", marksheetConfig, rec.Marksheet, func(replacement models.Attachment) error {
			return h.db.Model(&rec).Updates(map[string]interface{}{
				"marksheet_url":         replacement.URL,
				"marksheet_storage_key": replacement.StorageKey,
			}).Error
		})
		if err != nil {
			writeServiceError(c, err)
			return
		}
	}

	if err := h.db.First(&rec, id).Error; err != nil {
		writeServiceError(c, err)
		return
	}
	utils.OKWithMessage(c, "Semester record updated", rec)
}

func (h *SemesterRecordHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.SemesterRecord
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Semester") {
		return
	}

	err := h.attachments.DeleteWithCleanup(c.Request.Context(), []models.Attachment{rec.Marksheet}, func() error {
		return h.db.Delete(&rec).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	utils.Message(c, "Semester record deleted")
}
