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

type PlacementHandler struct {
	db          *gorm.DB
	attachments *services.AttachmentManager
}

func NewPlacementHandler(db *gorm.DB, attachments *services.AttachmentManager) *PlacementHandler {
	return &PlacementHandler{db: db, attachments: attachments}
}

var offerLetterConfig = services.FileFieldConfig{
	Field:        "offer_letter",
	DisplayName:  "Offer letter",
	AllowedTypes: pdfTypes,
	MaxSize:      maxDocumentSize,
}

type placementListItem struct {
	models.Placement
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

func (h *PlacementHandler) Create(c *gin.Context) {
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

	var ctc float64
	if raw, _ := formValue(form, "ctc"); raw == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "ctc", Message: "ctc is required"})
	} else if parsed, err := strconv.ParseFloat(raw, 64); err != nil || parsed <= 0 {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "ctc", Message: "ctc must be a positive number"})
	} else {
		ctc = parsed
	}

	var joiningDate time.Time
	if raw, _ := formValue(form, "joining_date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "joining_date", Message: "joining_date must be in YYYY-MM-DD format"})
		} else {
			joiningDate = parsed
		}
	}

	academicYear, _ := formValue(form, "academic_year")

	if len(fieldErrs) > 0 {
		utils.ValidationFailed(c, fieldErrs)
		return
	}

	var created models.Placement
	err := h.attachments.CreateWithFiles(c.Request.Context(), form, "placements", []services.FileFieldConfig{offerLetterConfig}, func(files map[string]models.Attachment) error {
		created = models.Placement{
			StuID:        stuID,
			Company:      company,
			Role:         role,
			CTC:          ctc,
			JoiningDate:  joiningDate,
			AcademicYear: academicYear,
			OfferLetter:  files["offer_letter"],
		}
		return h.db.Create(&created).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Created(c, "Placement record created", created)
}

func (h *PlacementHandler) List(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)

	query := h.db.Model(&models.Placement{}).
		Joins("JOIN students ON students.student_id = placements.stu_id")

	if year := c.Query("year"); year != "" {
		query = query.Where("placements.academic_year = ?", year)
	}
	if search := c.Query("search"); search != "" {
		query = searchWhere(query, search,
			"placements.company", "placements.role", "placements.stu_id", "students.name")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServiceError(c, err)
		return
	}

	var items []placementListItem
	err := query.
		Select("placements.*, students.name AS student_name, students.email AS student_email").
		Order("placements.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Paginated(c, items, total, page, utils.TotalPages(total, limit))
}

func (h *PlacementHandler) Mine(c *gin.Context) {
	actor := middleware.CurrentActor(c)

	var items []models.Placement
	if err := h.db.Where("stu_id = ?", actor.StudentID).Order("created_at DESC").Find(&items).Error; err != nil {
		writeServiceError(c, err)
		return
	}
	utils.OK(c, items)
}

func (h *PlacementHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Placement
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Placement") {
		return
	}
	utils.OK(c, rec)
}

func (h *PlacementHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Placement
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Placement") {
		return
	}

	form, ok := requireMultipart(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	var fieldErrs []utils.FieldError

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
	if v, supplied := formValue(form, "ctc"); supplied {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "ctc", Message: "ctc must be a positive number"})
		} else {
			updates["ctc"] = parsed
		}
	}
	if v, supplied := formValue(form, "joining_date"); supplied {
		parsed, err := parseDate(v)
		if err != nil {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "joining_date", Message: "joining_date must be in YYYY-MM-DD format"})
		} else {
			updates["joining_date"] = parsed
		}
	}
	if v, supplied := formValue(form, "academic_year"); supplied {
		updates["academic_year"] = v
	}

	replacing := hasFile(form, offerLetterConfig.Field)
	if ferr := checkReplacementFile(form, offerLetterConfig); ferr != nil {
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
		err := h.attachments.ReplaceFile(c.Request.Context(), form, "placements", offerLetterConfig, rec.OfferLetter, func(replacement models.Attachment) error {
			return h.db.Model(&rec).Updates(map[string]interface{}{
				"offer_letter_url":         replacement.URL,
				"offer_letter_storage_key": replacement.StorageKey,
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
	utils.OKWithMessage(c, "Placement record updated", rec)
}

func (h *PlacementHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var rec models.Placement
	if !loadOwned(h.db, c, actor, id, &rec, func() string { return rec.StuID }, "Placement") {
		return
	}

	err := h.attachments.DeleteWithCleanup(c.Request.Context(), []models.Attachment{rec.OfferLetter}, func() error {
		return h.db.Delete(&rec).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	utils.Message(c, "Placement record deleted")
}
