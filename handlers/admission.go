package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"student-records-manager/middleware"
	"student-records-manager/models"
	"student-records-manager/services"
	"student-records-manager/utils"
)

// Admission records are admin-managed: students can view their own but never
// create or change them.
type AdmissionHandler struct {
	db          *gorm.DB
	attachments *services.AttachmentManager
}

func NewAdmissionHandler(db *gorm.DB, attachments *services.AttachmentManager) *AdmissionHandler {
	return &AdmissionHandler{db: db, attachments: attachments}
}

var counsellingLetterConfig = services.FileFieldConfig{
	Field:        "counselling_letter",
	DisplayName:  "Counselling letter",
	AllowedTypes: documentTypes,
	MaxSize:      maxDocumentSize,
}

type admissionListItem struct {
	models.Admission
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

func (h *AdmissionHandler) Create(c *gin.Context) {
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

	admissionNumber, _ := formValue(form, "admission_number")
	if admissionNumber == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "admission_number", Message: "admission_number is required"})
	}
	quota, _ := formValue(form, "quota")
	category, _ := formValue(form, "category")

	var admissionDate time.Time
	if raw, _ := formValue(form, "admission_date"); raw == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "admission_date", Message: "admission_date is required"})
	} else if parsed, err := parseDate(raw); err != nil {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "admission_date", Message: "admission_date must be in YYYY-MM-DD format"})
	} else {
		admissionDate = parsed
	}

	academicYear, _ := formValue(form, "academic_year")

	if len(fieldErrs) > 0 {
		utils.ValidationFailed(c, fieldErrs)
		return
	}

	var created models.Admission
	err := h.attachments.CreateWithFiles(c.Request.Context(), form, "admissions", []services.FileFieldConfig{counsellingLetterConfig}, func(files map[string]models.Attachment) error {
		created = models.Admission{
			StuID:             stuID,
			AdmissionNumber:   admissionNumber,
			Quota:             quota,
			Category:          category,
			AdmissionDate:     admissionDate,
			AcademicYear:      academicYear,
			CounsellingLetter: files["counselling_letter"],
		}
		return h.db.Create(&created).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			utils.Error(c, http.StatusBadRequest, "An admission record with this number already exists")
			return
		}
		writeServiceError(c, err)
		return
	}

	utils.Created(c, "Admission record created", created)
}

func (h *AdmissionHandler) List(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)

	query := h.db.Model(&models.Admission{}).
		Joins("JOIN students ON students.student_id = admissions.stu_id")

	if year := c.Query("year"); year != "" {
		query = query.Where("admissions.academic_year = ?", year)
	}
	if quota := c.Query("quota"); quota != "" {
		query = query.Where("admissions.quota = ?", quota)
	}
	if search := c.Query("search"); search != "" {
		query = searchWhere(query, search,
			"admissions.admission_number", "admissions.stu_id", "students.name")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServiceError(c, err)
		return
	}

	var items []admissionListItem
	err := query.
		Select("admissions.*, students.name AS student_name, students.email AS student_email").
		Order("admissions.admission_date DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Paginated(c, items, total, page, utils.TotalPages(total, limit))
}

func (h *AdmissionHandler) Mine(c *gin.Context) {
	actor := middleware.CurrentActor(c)

	var items []models.Admission
	if err := h.db.Where("stu_id = ?", actor.StudentID).Find(&items).Error; err != nil {
		writeServiceError(c, err)
		return
	}
	utils.OK(c, items)
}

func (h *AdmissionHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Admission
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Admission") {
		return
	}
	utils.OK(c, rec)
}

func (h *AdmissionHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Admission
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Admission") {
		return
	}

	form, ok := requireMultipart(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	var fieldErrs []utils.FieldError

	if v, supplied := formValue(form, "quota"); supplied {
		updates["quota"] = v
	}
	if v, supplied := formValue(form, "category"); supplied {
		updates["category"] = v
	}
	if v, supplied := formValue(form, "admission_date"); supplied {
		parsed, err := parseDate(v)
		if err != nil {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "admission_date", Message: "admission_date must be in YYYY-MM-DD format"})
		} else {
			updates["admission_date"] = parsed
		}
	}
	if v, supplied := formValue(form, "academic_year"); supplied {
		updates["academic_year"] = v
	}

	replacing := hasFile(form, counsellingLetterConfig.Field)
	if ferr := checkReplacementFile(form, counsellingLetterConfig); ferr != nil {
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
		err := h.attachments.ReplaceFile(c.Request.Context(), form, "admissions", counsellingLetterConfig, rec.CounsellingLetter, func(replacement models.Attachment) error {
			return h.db.Model(&rec).Updates(map[string]interface{}{
				"counselling_letter_url":         replacement.URL,
				"counselling_letter_storage_key": replacement.StorageKey,
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
	utils.OKWithMessage(c, "Admission record updated", rec)
}

func (h *AdmissionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Admission
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Admission") {
		return
	}

	err := h.attachments.DeleteWithCleanup(c.Request.Context(), []models.Attachment{rec.CounsellingLetter}, func() error {
		return h.db.Delete(&rec).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	utils.Message(c, "Admission record deleted")
}
