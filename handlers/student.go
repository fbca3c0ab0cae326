package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"student-records-manager/middleware"
	"student-records-manager/models"
	"student-records-manager/services"
	"student-records-manager/utils"
)

type StudentHandler struct {
	db          *gorm.DB
	attachments *services.AttachmentManager
	cascade     *services.CascadeDeleter
	roster      *services.RosterService
	mailer      services.CredentialSender
}

func NewStudentHandler(db *gorm.DB, attachments *services.AttachmentManager, cascade *services.CascadeDeleter, roster *services.RosterService, mailer services.CredentialSender) *StudentHandler {
	return &StudentHandler{
		db:          db,
		attachments: attachments,
		cascade:     cascade,
		roster:      roster,
		mailer:      mailer,
	}
}

var studentPhotoConfig = services.FileFieldConfig{
	Field:        "photo",
	DisplayName:  "Student photo",
	AllowedTypes: imageTypes,
	MaxSize:      maxPhotoSize,
}

// Create handles POST /api/students (admin only, multipart, photo optional).
// A credential is generated, stored hashed and mailed to the student.
func (h *StudentHandler) Create(c *gin.Context) {
	form, ok := requireMultipart(c)
	if !ok {
		return
	}

	var fieldErrs []utils.FieldError

	studentID, _ := formValue(form, "student_id")
	if studentID == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "student_id", Message: "student_id is required"})
	}
	name, _ := formValue(form, "name")
	if name == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "name", Message: "name is required"})
	}
	email, _ := formValue(form, "email")
	if email == "" {
		fieldErrs = append(fieldErrs, utils.FieldError{Field: "email", Message: "email is required"})
	}
	department, _ := formValue(form, "department")
	phone, _ := formValue(form, "phone")

	year := 0
	if raw, supplied := formValue(form, "year_of_admission"); supplied && raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1900 || parsed > time.Now().Year()+1 {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "year_of_admission", Message: "year_of_admission must be a valid year"})
		} else {
			year = parsed
		}
	}

	if len(fieldErrs) > 0 {
		utils.ValidationFailed(c, fieldErrs)
		return
	}

	password, err := services.GeneratePassword()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	student := models.Student{
		StudentID:       studentID,
		Name:            name,
		Email:           email,
		Password:        string(hashed),
		Department:      department,
		YearOfAdmission: year,
		Phone:           phone,
	}

	persist := func() error {
		return h.db.Create(&student).Error
	}
	if hasFile(form, studentPhotoConfig.Field) {
		err = h.attachments.CreateWithFiles(c.Request.Context(), form, "students", []services.FileFieldConfig{studentPhotoConfig}, func(files map[string]models.Attachment) error {
			student.Photo = files["photo"]
			return persist()
		})
	} else {
		err = persist()
	}
	if err != nil {
		if isUniqueViolation(err) {
			utils.Error(c, http.StatusBadRequest, "A student with this ID or email already exists")
			return
		}
		writeServiceError(c, err)
		return
	}

	if failures := h.mailer.SendCredentials([]services.CredentialMail{{
		To:        email,
		Name:      name,
		StudentID: studentID,
		Password:  password,
	}}); len(failures) > 0 {
		logrus.WithField("to", email).Warn("student created but credential mail failed")
	}

	utils.Created(c, "Student created, credentials sent by email", student)
}

// List handles GET /api/students (admin only).
func (h *StudentHandler) List(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)

	query := h.db.Model(&models.Student{})

	if year := c.Query("year"); year != "" {
		query = query.Where("year_of_admission = ?", year)
	}
	if department := c.Query("department"); department != "" {
		query = query.Where("department = ?", department)
	}
	if search := c.Query("search"); search != "" {
		query = searchWhere(query, search, "student_id", "name", "email", "department")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeServiceError(c, err)
		return
	}

	var students []models.Student
	if err := query.Order("student_id").Offset(offset).Limit(limit).Find(&students).Error; err != nil {
		writeServiceError(c, err)
		return
	}

	utils.Paginated(c, students, total, page, utils.TotalPages(total, limit))
}

// Me handles GET /api/students/me.
func (h *StudentHandler) Me(c *gin.Context) {
	actor := middleware.CurrentActor(c)

	var student models.Student
	if err := h.db.Where("student_id = ?", actor.StudentID).First(&student).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Student not found")
		return
	}
	utils.OK(c, student)
}

// Get handles GET /api/students/:id.
func (h *StudentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var student models.Student
	if !loadOwned(h.db, c, actor, id, &student, func() string { return student.StudentID }, "Student") {
		return
	}
	utils.OK(c, student)
}

// Update handles PUT /api/students/:id (partial; profile fields only, the
// photo has its own endpoint).
func (h *StudentHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var student models.Student
	if !loadOwned(h.db, c, actor, id, &student, func() string { return student.StudentID }, "Student") {
		return
	}

	form, ok := requireMultipart(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	var fieldErrs []utils.FieldError

	if v, supplied := formValue(form, "name"); supplied {
		if v == "" {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "name", Message: "name cannot be empty"})
		} else {
			updates["name"] = v
		}
	}
	if v, supplied := formValue(form, "email"); supplied {
		if v == "" {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "email", Message: "email cannot be empty"})
		} else {
			updates["email"] = v
		}
	}
	if v, supplied := formValue(form, "department"); supplied {
		updates["department"] = v
	}
	if v, supplied := formValue(form, "phone"); supplied {
		updates["phone"] = v
	}
	if v, supplied := formValue(form, "year_of_admission"); supplied {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1900 || parsed > time.Now().Year()+1 {
			fieldErrs = append(fieldErrs, utils.FieldError{Field: "year_of_admission", Message: "year_of_admission must be a valid year"})
		} else {
			updates["year_of_admission"] = parsed
		}
	}

	if len(fieldErrs) > 0 {
		utils.ValidationFailed(c, fieldErrs)
		return
	}
	if len(updates) == 0 {
		utils.Error(c, http.StatusBadRequest, "No valid fields provided for update")
		return
	}

	if err := h.db.Model(&student).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			utils.Error(c, http.StatusBadRequest, "A student with this email already exists")
			return
		}
		writeServiceError(c, err)
		return
	}

	if err := h.db.First(&student, id).Error; err != nil {
		writeServiceError(c, err)
		return
	}
	utils.OKWithMessage(c, "Student updated", student)
}

// UpdatePhoto handles PUT /api/students/:id/photo.
func (h *StudentHandler) UpdatePhoto(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor := middleware.CurrentActor(c)

	var student models.Student
	if !loadOwned(h.db, c, actor, id, &student, func() string { return student.StudentID }, "Student") {
		return
	}

	form, ok := requireMultipart(c)
	if !ok {
		return
	}

	err := h.attachments.ReplaceFile(c.Request.Context(), form, "students", studentPhotoConfig, student.Photo, func(replacement models.Attachment) error {
		return h.db.Model(&student).Updates(map[string]interface{}{
			"photo_url":         replacement.URL,
			"photo_storage_key": replacement.StorageKey,
		}).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if err := h.db.First(&student, id).Error; err != nil {
		writeServiceError(c, err)
		return
	}
	utils.OKWithMessage(c, "Photo updated", student)
}

// Delete handles DELETE /api/students/:id (admin only). The student row is
// removed first; only then does the cascade walk the dependent records and
// their attachments.
func (h *StudentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var student models.Student
	if err := h.db.First(&student, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(c, http.StatusNotFound, "Student not found")
			return
		}
		writeServiceError(c, err)
		return
	}

	err := h.attachments.DeleteWithCleanup(c.Request.Context(), []models.Attachment{student.Photo}, func() error {
		return h.db.Delete(&student).Error
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	report := h.cascade.Run(c.Request.Context(), student.StudentID)

	utils.OKWithMessage(c, "Student and dependent records deleted", report)
}

// Import handles POST /api/students/import (admin only, xlsx upload).
func (h *StudentHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "A spreadsheet file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	summary, err := h.roster.Import(file)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	utils.OKWithMessage(c, "Import finished", summary)
}

// Export handles GET /api/students/export (admin only, xlsx download).
func (h *StudentHandler) Export(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="students.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := h.roster.Export(c.Writer); err != nil {
		logrus.WithError(err).Error("student export failed")
		utils.Error(c, http.StatusInternalServerError, "Failed to export students")
	}
}
