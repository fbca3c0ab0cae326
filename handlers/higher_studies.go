package handlers

import (
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

type HigherStudiesHandler struct {
	db          *gorm.DB
	attachments *services.AttachmentManager
}

func NewHigherStudiesHandler(db *gorm.DB, attachments *services.AttachmentManager) *HigherStudiesHandler {
	return &HigherStudiesHandler{db: db, attachments: attachments}
}

var admissionProofConfig = services.FileFieldConfig{
	Field:        "admission_proof",
	DisplayName:  "Admission proof",
	AllowedTypes: documentTypes,
	MaxSize:      maxDocumentSize,
}

type higherStudiesListItem struct {
	models.HigherStudies
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

func (h *HigherStudiesHandler) Create(c *gin.Context) {
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

	institution, _ := formValue(form, "institution")
	if institution == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "institution", Message: "institution is required"})
	}
	program, _ := formValue(form, "program")
	if program == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "program", Message: "program is required"})
	}
	country, _ := formValue(form, "country")

	admissionYear := 0
	if raw, _ := formValue(form, "admission_year"); raw == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "admission_year", Message: "admission_year is required"})
	} else if parsed, err := strconv.Atoi(raw); err != nil || parsed < 1900 || parsed > time.Now().Year()+1 {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "admission_year", Message: "admission_year must be a valid year"})
	} else {
		admissionYear = parsed
	}

	academicYear, _ := formValue(form, "academic_year")

	if len(fieldErrs) > 0 {
		utils.ValidationFailed(c, fieldErrs)
		return
	}

	var created models.HigherStudies
	err := h.attachments.CreateWithFiles(c.Request.Context(), form, "higher-studies", []services.FileFieldConfig{admissionProofConfig}, func(files map[string]models.Attachment) error {
		created = models.HigherStudies{
			StuID:          stuID,
			Institution:    institution,
			Program:        program,
			Country:        country,
			AdmissionYear:  admissionYear,
			AcademicYear:   academicYear,
			AdmissionProof: files["admission_proof"],
		}
		return h.db.Create(&created).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Created(c, "Higher studies record created", created)
}

func (h *HigherStudiesHandler) List(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)

	query := h.db.Model(&models.HigherStudies{}).
		Joins("JOIN students ON students.student_id = higher_studies.stu_id")

	if year := c.Query("year"); year != "" {
		query = query.Where("higher_studies.academic_year = ?", year)
	}
	if country := c.Query("country"); country != "" {
		query = query.Where("higher_studies.country = ?", country)
	}
	if search := c.Query("search"); search != "" {
		query = searchWhere(query, search,
			"higher_studies.institution", "higher_studies.program", "higher_studies.stu_id", "students.name")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServiceError(c, err)
		return
	}

	var items []higherStudiesListItem
	err := query.
		Select("higher_studies.*, students.name AS student_name, students.email AS student_email").
		Order("higher_studies.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Paginated(c, items, total, page, utils.TotalPages(total, limit))
}

func (h *HigherStudiesHandler) Mine(c *gin.Context) {
	actor := middleware.CurrentActor(c)

	var items []models.HigherStudies
	if err := h.db.Where("stu_id = ?", actor.StudentID).Order("created_at DESC").Find(&items).Error; err != nil {
		writeServiceError(c, err)
		return
	}
	utils.OK(c, items)
}

func (h *HigherStudiesHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.HigherStudies
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Higher studies") {
		return
	}
	utils.OK(c, rec)
}

func (h *HigherStudiesHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.HigherStudies
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Higher studies") {
		return
	}

	form, ok := requireMultipart(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	var fieldErrs []utils.FieldError

	if v, supplied := formValue(form, "institution"); supplied {
		if v == "" {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "institution", Message: "institution cannot be empty"})
		} else {
			updates["institution"] = v
		}
	}
	if v, supplied := formValue(form, "program"); supplied {
		if v == "" {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "program", Message: "program cannot be empty"})
		} else {
			updates["program"] = v
		}
	}
	if v, supplied := formValue(form, "country"); supplied {
		updates["country"] = v
	}
	if v, supplied := formValue(form, "admission_year"); supplied {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1900 || parsed > time.Now().Year()+1 {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "admission_year", Message: "admission_year must be a valid year"})
		} else {
			updates["admission_year"] = parsed
		}
	}
	if v, supplied := formValue(form, "academic_year"); supplied {
		updates["academic_year"] = v
	}

	replacing := hasFile(form, admissionProofConfig.Field)
	if ferr := checkReplacementFile(form, admissionProofConfig); ferr != nil {
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
		err := h.attachments.ReplaceFile(c.Request.Context(), form, "higher-studies", admissionProofConfig, rec.AdmissionProof, func(replacement models.Attachment) error {
			return h.db.Model(&rec).Updates(map[string]interface{}{
				"admission_proof_url":         replacement.URL,
				"admission_proof_storage_key": replacement.StorageKey,
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
	utils.OKWithMessage(c, "Higher studies record updated", rec)
}

func (h *HigherStudiesHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.HigherStudies
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Higher studies") {
		return
	}

	err := h.attachments.DeleteWithCleanup(c.Request.Context(), []models.Attachment{rec.AdmissionProof}, func() error {
		return h.db.Delete(&rec).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	utils.Message(c, "Higher studies record deleted")
}
