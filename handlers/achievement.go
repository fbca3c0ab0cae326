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

type AchievementHandler struct {
	db          *gorm.DB
	attachments *services.AttachmentManager
}

func NewAchievementHandler(db *gorm.DB, attachments *services.AttachmentManager) *AchievementHandler {
	return &AchievementHandler{db: db, attachments: attachments}
}

var achievementCertificateConfig = services.FileFieldConfig{
	Field:        "certificate",
	DisplayName:  "Achievement certificate",
	AllowedTypes: documentTypes,
	MaxSize:      maxDocumentSize,
}

var achievementLevels = map[string]bool{
	models.LevelCollege:       true,
	models.LevelState:         true,
	models.LevelNational:      true,
	models.LevelInternational: true,
}

type achievementListItem struct {
	models.Achievement
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

func (h *AchievementHandler) Create(c *gin.Context) {
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
	description, _ := formValue(form, "description")

	level, _ := formValue(form, "level")
	if !achievementLevels[level] {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "level", Message: "level must be one of: college, state, national, international"})
	}

	var date time.Time
	if raw, _ := formValue(form, "date"); raw == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "date", Message: "date is required"})
	} else if parsed, err := parseDate(raw); err != nil {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "date", Message: "date must be in YYYY-MM-DD format"})
	} else {
		date = parsed
	}

	academicYear, _ := formValue(form, "academic_year")

	if len(fieldErrs) > 0 {
		utils.ValidationFailed(c, fieldErrs)
		return
	}

	var created models.Achievement
	err := h.attachments.CreateWithFiles(c.Request.Context(), form, "achievements", []services.FileFieldConfig{achievementCertificateConfig}, func(files map[string]models.Attachment) error {
		created = models.Achievement{
			StuID:        stuID,
			Title:        title,
			Description:  description,
			Level:        level,
			Date:         date,
			AcademicYear: academicYear,
			Certificate:  files["certificate"],
		}
		return h.db.Create(&created).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Created(c, "Achievement record created", created)
}

func (h *AchievementHandler) List(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)

	query := h.db.Model(&models.Achievement{}).
		Joins("JOIN students ON students.student_id = achievements.stu_id")

	if year := c.Query("year"); year != "" {
		query = query.Where("achievements.academic_year = ?", year)
	}
	if level := c.Query("level"); level != "" {
		query = query.Where("achievements.level = ?", level)
	}
	if search := c.Query("search"); search != "" {
		query = searchWhere(query, search,
			"achievements.title", "achievements.description", "achievements.stu_id", "students.name")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServiceError(c, err)
		return
	}

	var items []achievementListItem
	err := query.
		Select("achievements.*, students.name AS student_name, students.email AS student_email").
		Order("achievements.date DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Paginated(c, items, total, page, utils.TotalPages(total, limit))
}

func (h *AchievementHandler) Mine(c *gin.Context) {
	actor := middleware.CurrentActor(c)

	var items []models.Achievement
	if err := h.db.Where("stu_id = ?", actor.StudentID).Order("date DESC").Find(&items).Error; err != nil {
		writeServiceError(c, err)
		return
	}
	utils.OK(c, items)
}

func (h *AchievementHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Achievement
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Achievement") {
		return
	}
	utils.OK(c, rec)
}

func (h *AchievementHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Achievement
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Achievement") {
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
	if v, supplied := formValue(form, "description"); supplied {
		updates["description"] = v
	}
	if v, supplied := formValue(form, "level"); supplied {
		if !achievementLevels[v] {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "level", Message: "level must be one of: college, state, national, international"})
		} else {
			updates["level"] = v
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
	if v, supplied := formValue(form, "academic_year"); supplied {
		updates["academic_year"] = v
	}

	replacing := hasFile(form, achievementCertificateConfig.Field)
	if ferr := checkReplacementFile(form, achievementCertificateConfig); ferr != nil {
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
		err := h.attachments.ReplaceFile(c.Request.Context(), form, "achievements", achievementCertificateConfig, rec.Certificate, func(replacement models.Attachment) error {
			return h.db.Model(&rec).Updates(map[string]interface{}{
				"certificate_url":         replacement.URL,
				"certificate_storage_key": replacement.StorageKey,
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
	utils.OKWithMessage(c, "Achievement record updated", rec)
}

func (h *AchievementHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Achievement
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Achievement") {
		return
	}

	err := h.attachments.DeleteWithCleanup(c.Request.Context(), []models.Attachment{rec.Certificate}, func() error {
		return h.db.Delete(&rec).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	utils.Message(c, "Achievement record deleted")
}
