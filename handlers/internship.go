package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"student-records-manager/middleware"
	"student-records-manager/models"
	"student-records-manager/services"
	"student-records-manager/utils"
)

type InternshipHandler struct {
	db          *gorm.DB
	attachments *services.AttachmentManager
}

func NewInternshipHandler(db *gorm.DB, attachments *services.AttachmentManager) *InternshipHandler {
	return &InternshipHandler{db: db, attachments: attachments}
}

var internshipReportConfig = services.FileFieldConfig{
	Field:        "report",
	DisplayName:  "Internship report",
	AllowedTypes: pdfTypes,
	MaxSize:      maxDocumentSize,
}

var internshipCertificateConfig = services.FileFieldConfig{
	Field:        "certificate",
	DisplayName:  "Internship certificate",
	AllowedTypes: documentTypes,
	MaxSize:      maxDocumentSize,
}

type internshipListItem struct {
	models.Internship
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

// Create handles POST /api/internships (multipart).
func (h *InternshipHandler) Create(c *gin.Context) {
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

	company, _ := formValue(form, "company")
	if company == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "company", Message: "company is required"})
	}
	role, _ := formValue(form, "role")
	if role == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "role", Message: "role is required"})
	}

	var startDate, endDate time.Time
	if raw, _ := formValue(form, "start_date"); raw == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "start_date", Message: "start_date is required"})
	} else if parsed, err := parseDate(raw); err != nil {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "start_date", Message: "start_date must be in YYYY-MM-DD format"})
	} else {
		startDate = parsed
	}
	if raw, _ := formValue(form, "end_date"); raw == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "end_date", Message: "end_date is required"})
	} else if parsed, err := parseDate(raw); err != nil {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "end_date", Message: "end_date must be in YYYY-MM-DD format"})
	} else {
		endDate = parsed
	}
	if !startDate.IsZero() && !endDate.IsZero() && !endDate.After(startDate) {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "end_date", Message: "end_date must be after start_date"})
	}

	isPaid := false
	if raw, supplied := formValue(form, "is_paid"); !supplied {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "is_paid", Message: "is_paid is required"})
	} else if parsed, err := strconv.ParseBool(raw); err != nil {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "is_paid", Message: "is_paid must be true or false"})
	} else {
		isPaid = parsed
	}

	stipend := 0
	stipendRaw, stipendSupplied := formValue(form, "stipend")
	switch {
	case isPaid && stipendRaw == "":
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "stipend", Message: "stipend is required for paid internships"})
	case !isPaid && stipendSupplied && stipendRaw != "":
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "stipend", Message: "stipend is only allowed for paid internships"})
	case isPaid:
		parsed, err := strconv.Atoi(stipendRaw)
		if err != nil || parsed <= 0 {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "stipend", Message: "stipend must be a positive number"})
		} else {
			stipend = parsed
		}
	}

	academicYear, _ := formValue(form, "academic_year")

	if len(fieldErrs) > 0 {
		utils.ValidationFailed(c, fieldErrs)
		return
	}

	configs := []services.FileFieldConfig{internshipReportConfig, internshipCertificateConfig}
	var created models.Internship
	err := h.attachments.CreateWithFiles(c.Request.Context(), form, "internships", configs, func(files map[string]models.Attachment) error {
		created = models.Internship{
			StuID:        stuID,
			Company:      company,
			Role:         role,
			StartDate:    startDate,
			EndDate:      endDate,
			IsPaid:       isPaid,
			Stipend:      stipend,
			AcademicYear: academicYear,
			Report:       files["report"],
			Certificate:  files["certificate"],
		}
		return h.db.Create(&created).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Created(c, "Internship record created", created)
}

// List handles GET /api/internships (admin only).
func (h *InternshipHandler) List(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)

	query := h.db.Model(&models.Internship{}).
		Joins("JOIN students ON students.student_id = internships.stu_id")

	if year := c.Query("year"); year != "" {
		query = query.Where("internships.academic_year = ?", year)
	}
	if paid := c.Query("is_paid"); paid != "" {
		isPaid, err := strconv.ParseBool(paid)
		if err != nil {
			utils.Error(c, http.StatusBadRequest, "is_paid must be true or false")
			return
		}
		query = query.Where("internships.is_paid = ?", isPaid)
	}
	if search := c.Query("search"); search != "" {
		query = searchWhere(query, search,
			"internships.company", "internships.role", "internships.stu_id", "students.name")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServiceError(c, err)
		return
	}

	var items []internshipListItem
	err := query.
		Select("internships.*, students.name AS student_name, students.email AS student_email").
		Order("internships.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Paginated(c, items, total, page, utils.TotalPages(total, limit))
}

// Mine handles GET /api/internships/me.
func (h *InternshipHandler) Mine(c *gin.Context) {
	actor := middleware.CurrentActor(c)

	var items []models.Internship
	if err := h.db.Where("stu_id = ?", actor.StudentID).Order("created_at DESC").Find(&items).Error; err != nil {
		writeServiceError(c, err)
		return
	}
	utils.OK(c, items)
}

// Get handles GET /api/internships/:id.
func (h *InternshipHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Internship
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Internship") {
		return
	}
	utils.OK(c, rec)
}

// Update handles PUT /api/internships/:id (partial, optional file replacement).
func (h *InternshipHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Internship
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Internship") {
		return
	}

	form, ok := requireMultipart(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	var fieldErrs []utils.FieldError

	// Effective values for cross-field checks combine supplied and stored.
	effStart, effEnd := rec.StartDate, rec.EndDate
	effPaid, effStipend := rec.IsPaid, rec.Stipend

	if v, supplied := formValue(form, "company"); supplied {
		if v == "" {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "company", Message: "company cannot be empty"})
		} else {
			updates["company"] = v
		}
	}
	if v, supplied := formValue(form, "role"); supplied {
		if v == "" {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "role", Message: "role cannot be empty"})
		} else {
			updates["role"] = v
		}
	}
	if v, supplied := formValue(form, "start_date"); supplied {
		parsed, err := parseDate(v)
		if err != nil {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "start_date", Message: "start_date must be in YYYY-MM-DD format"})
		} else {
			updates["start_date"] = parsed
			effStart = parsed
		}
	}
	if v, supplied := formValue(form, "end_date"); supplied {
		parsed, err := parseDate(v)
		if err != nil {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "end_date", Message: "end_date must be in YYYY-MM-DD format"})
		} else {
			updates["end_date"] = parsed
			effEnd = parsed
		}
	}
	if !effStart.IsZero() && !effEnd.IsZero() && !effEnd.After(effStart) {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "end_date", Message: "end_date must be after start_date"})
	}

	if v, supplied := formValue(form, "is_paid"); supplied {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "is_paid", Message: "is_paid must be true or false"})
		} else {
			updates["is_paid"] = parsed
			effPaid = parsed
			if !parsed {
				updates["stipend"] = 0
				effStipend = 0
			}
		}
	}
	if v, supplied := formValue(form, "stipend"); supplied && v != "" {
		parsed, err := strconv.Atoi(v)
		switch {
		case err != nil || parsed <= 0:
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "stipend", Message: "stipend must be a positive number"})
		case !effPaid:
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "stipend", Message: "stipend is only allowed for paid internships"})
		default:
			updates["stipend"] = parsed
			effStipend = parsed
		}
	}
	if effPaid && effStipend <= 0 {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "stipend", Message: "stipend is required for paid internships"})
	}

	if v, supplied := formValue(form, "academic_year"); supplied {
		updates["academic_year"] = v
	}

	replacingReport := hasFile(form, internshipReportConfig.Field)
	replacingCertificate := hasFile(form, internshipCertificateConfig.Field)
	for _, cfg := range []services.FileFieldConfig{internshipReportConfig, internshipCertificateConfig} {
		if ferr := checkReplacementFile(form, cfg); ferr != nil {
			fieldErrs = append(fieldErrs, *ferr)
		}
	}

	if len(fieldErrs) > 0 {
		utils.ValidationFailed(c, fieldErrs)
		return
	}

	if len(updates) == 0 && !replacingReport && !replacingCertificate {
		utils.Error(c, http.StatusBadRequest, "No valid fields provided for update")
		return
	}

	if len(updates) > 0 {
		if err := h.db.Model(&rec).Updates(updates).Error; err != nil {
			writeServiceError(c, err)
			return
		}
	}

	if replacingReport {
		if !h.replaceFile(c, form, &rec, internshipReportConfig) {
			return
		}
	}
	if replacingCertificate {
		if !h.replaceFile(c, form, &rec, internshipCertificateConfig) {
			return
		}
	}

	if err := h.db.First(&rec, id).Error; err != nil {
		writeServiceError(c, err)
		return
	}
	utils.OKWithMessage(c, "Internship record updated", rec)
}

func (h *InternshipHandler) replaceFile(c *gin.Context, form *multipart.Form, rec *models.Internship, cfg services.FileFieldConfig) bool {
	old := rec.Report
	column := "report"
	if cfg.Field == "certificate" {
		old = rec.Certificate
		column = "certificate"
	}

	err := h.attachments.ReplaceFile(c.Request.Context(), form, "internships", cfg, old, func(replacement models.Attachment) error {
		return h.db.Model(rec).Updates(map[string]interface{}{
			column + "_url":         replacement.URL,
			column + "_storage_key": replacement.StorageKey,
		}).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return false
	}
	return true
}

// Delete handles DELETE /api/internships/:id.
func (h *InternshipHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Internship
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Internship") {
		return
	}

	attachments := []models.Attachment{rec.Report, rec.Certificate}
	err := h.attachments.DeleteWithCleanup(c.Request.Context(), attachments, func() error {
		return h.db.Delete(&rec).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	utils.Message(c, "Internship record deleted")
}
