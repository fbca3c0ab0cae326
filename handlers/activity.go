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

type ActivityHandler struct {
	db          *gorm.DB
	attachments *services.AttachmentManager
}

func NewActivityHandler(db *gorm.DB, attachments *services.AttachmentManager) *ActivityHandler {
	return &ActivityHandler{db: db, attachments: attachments}
}

var photoProofConfig = services.FileFieldConfig{
	Field:        "photo_proof",
	DisplayName:  "Photo proof",
	AllowedTypes: imageTypes,
	MaxSize:      maxDocumentSize,
}

var activityTypes = map[string]bool{
	models.ActivitySports:    true,
	models.ActivityCultural:  true,
	models.ActivityTechnical: true,
	models.ActivitySocial:    true,
}

type activityListItem struct {
	models.Activity
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

func (h *ActivityHandler) Create(c *gin.Context) {
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

	title, _ := formValue(form, "title")
	if title == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "title", Message: "title is required"})
	}

	activityType, _ := formValue(form, "type")
	if !activityTypes[activityType] {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "type", Message: "type must be one of: sports, cultural, technical, social"})
	}

	var date time.Time
	if raw, _ := formValue(form, "date"); raw == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "date", Message: "date is required"})
	} else if parsed, err := parseDate(raw); err != nil {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "date", Message: "date must be in YYYY-MM-DD format"})
	} else {
		date = parsed
	}

	description, _ := formValue(form, "description")
	academicYear, _ := formValue(form, "academic_year")

	if len(fieldErrs) > 0 {
		utils.ValidationFailed(c, fieldErrs)
		return
	}

	var created models.Activity
	err := h.attachments.CreateWithFiles(c.Request.Context(), form, "activities", []services.FileFieldConfig{photoProofConfig}, func(files map[string]models.Attachment) error {
		created = models.Activity{
			StuID:        stuID,
			Title:        title,
			Type:         activityType,
			Date:         date,
			Description:  description,
			AcademicYear: academicYear,
			PhotoProof:   files["photo_proof"],
		}
		return h.db.Create(&created).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Created(c, "Activity record created", created)
}

func (h *ActivityHandler) List(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)

	query := h.db.Model(&models.Activity{}).
		Joins("JOIN students ON students.student_id = activities.stu_id")

	if year := c.Query("year"); year != "" {
		query = query.Where("activities.academic_year = ?", year)
	}
	if activityType := c.Query("type"); activityType != "" {
		query = query.Where("activities.type = ?", activityType)
	}
	if search := c.Query("search"); search != "" {
		query = searchWhere(query, search,
			"activities.title", "activities.description", "activities.stu_id", "students.name")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServiceError(c, err)
		return
	}

	var items []activityListItem
	err := query.
		Select("activities.*, students.name AS student_name, students.email AS student_email").
		Order("activities.date DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Paginated(c, items, total, page, utils.TotalPages(total, limit))
}

func (h *ActivityHandler) Mine(c *gin.Context) {
	actor := middleware.CurrentActor(c)

	var items []models.Activity
	if err := h.db.Where("stu_id = ?", actor.StudentID).Order("date DESC").Find(&items).Error; err != nil {
		writeServiceError(c, err)
		return
	}
	utils.OK(c, items)
}

func (h *ActivityHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Activity
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Activity") {
		return
	}
	utils.OK(c, rec)
}

func (h *ActivityHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Activity
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Activity") {
		return
	}

	form, ok := requireMultipart(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	var fieldErrs []utils.FieldError

	if v, supplied := formValue(form, "title"); supplied {
		if v == "" {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "title", Message: "title cannot be empty"})
		} else {
			updates["title"] = v
		}
	}
	if v, supplied := formValue(form, "type"); supplied {
		if !activityTypes[v] {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "type", Message: "type must be one of: sports, cultural, technical, social"})
		} else {
			updates["type"] = v
		}
	}
	if v, supplied := formValue(form, "date"); supplied {
		parsed, err := parseDate(v)
		if err != nil {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "date", Message: "date must be in YYYY-MM-DD format"})
		} else {
			updates["date"] = parsed
		}
	}
	if v, supplied := formValue(form, "description"); supplied {
		updates["description"] = v
	}
	if v, supplied := formValue(form, "academic_year"); supplied {
		updates["academic_year"] = v
	}

	replacing := hasFile(form, photoProofConfig.Field)
	if ferr := checkReplacementFile(form, photoProofConfig); ferr != nil {
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
		err := h.attachments.ReplaceFile(c.Request.Context(), form, "activities", photoProofConfig, rec.PhotoProof, func(replacement models.Attachment) error {
			return h.db.Model(&rec).Updates(map[string]interface{}{
				"photo_proof_url":         replacement.URL,
				"photo_proof_storage_key": replacement.StorageKey,
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
	utils.OKWithMessage(c, "Activity record updated", rec)
}

func (h *ActivityHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Activity
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Activity") {
		return
	}

	err := h.attachments.DeleteWithCleanup(c.Request.Context(), []models.Attachment{rec.PhotoProof}, func() error {
		return h.db.Delete(&rec).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	utils.Message(c, "Activity record deleted")
}
