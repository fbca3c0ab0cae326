package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"student-records-manager/middleware"
	"student-records-manager/models"
	"student-records-manager/services"
	"student-records-manager/utils"
)

const (
	maxPhotoSize    = 2 << 20
	maxDocumentSize = 5 << 20
)

var (
	pdfTypes      = []string{"application/pdf"}
	imageTypes    = []string{"image/jpeg", "image/png"}
	documentTypes = []string{"application/pdf", "image/jpeg", "image/png"}
)

const dateLayout = "2006-01-02"

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "Invalid record ID")
		return 0, false
	}
	return uint(id), true
}

// resolveOwner determines which student a created record belongs to. A
// student actor always creates for themselves; an admin must name the
// student explicitly and that student must exist.
func resolveOwner(db *gorm.DB, c *gin.Context, actor middleware.Actor) (string, *utils.FieldError) {
	if actor.Role == middleware.RoleStudent {
		return actor.StudentID, nil
	}

	stuID := strings.TrimSpace(c.PostForm("stu_id"))
	if stuID == "" {
		return "", &utils.FieldError{Field: "stu_id", Message: "stu_id is required when creating on behalf of a student"}
	}

	var count int64
	if err := db.Model(&models.Student{}).Where("student_id = ?", stuID).Count(&count).Error; err != nil {
		return "", &utils.FieldError{Field: "stu_id", Message: "failed to verify student"}
	}
	if count == 0 {
		return "", &utils.FieldError{Field: "stu_id", Message: "no student found with this ID"}
	}
	return stuID, nil
}

// formValue reports whether the field was supplied at all, so partial
// updates can distinguish "absent" from "empty".
func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

func hasFile(form *multipart.Form, field string) bool {
	return len(form.File[field]) > 0
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, value)
}

// requireMultipart parses the request as a multipart form, responding with a
// 400 on failure.
func requireMultipart(c *gin.Context) (*multipart.Form, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "Request must be a multipart form")
		return nil, false
	}
	return form, true
}

// fileFieldError maps the uploader's typed validation errors to a field-level
// message. Nil when err is not a file validation error.
func fileFieldError(err error) *utils.FieldError {
	var missing *services.MissingFileError
	var badType *services.UnsupportedTypeError
	var tooLarge *services.FileTooLargeError

	switch {
	case errors.As(err, &missing):
		return &utils.FieldError{
			Field:   missing.Field,
			Message: fmt.Sprintf("%s is required", missing.DisplayName),
		}
	case errors.As(err, &badType):
		return &utils.FieldError{
			Field:   badType.Field,
			Message: fmt.Sprintf("file type must be one of: %s", strings.Join(badType.Allowed, ", ")),
		}
	case errors.As(err, &tooLarge):
		return &utils.FieldError{
			Field:   tooLarge.Field,
			Message: fmt.Sprintf("file must not exceed %d MB", tooLarge.MaxSize>>20),
		}
	}
	return nil
}

// checkReplacementFile validates a supplied replacement file's headers before
// any record write, so a rejected file leaves the record untouched. Nil when
// the field carries no file.
func checkReplacementFile(form *multipart.Form, cfg services.FileFieldConfig) *utils.FieldError {
	headers := form.File[cfg.Field]
	if len(headers) == 0 {
		return nil
	}
	return fileFieldError(services.CheckFile(headers[0], cfg))
}

// writeServiceError maps upload validation errors to field-level 400s and
// everything else to a safe 500. Conflicts from unique columns become 400s.
func writeServiceError(c *gin.Context, err error) {
	if ferr := fileFieldError(err); ferr != nil {
		utils.ValidationFailed(c, []utils.FieldError{*ferr})
		return
	}
	if isUniqueViolation(err) {
		utils.Error(c, http.StatusBadRequest, "A record with these unique details already exists")
		return
	}
	logrus.WithError(err).Error("request failed")
	utils.Error(c, http.StatusInternalServerError, "Something went wrong, please try again later")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// loadOwned fetches a record by ID into dest and enforces the ownership
// rule: students may only touch their own records, regardless of whether
// the record exists. Returns false after writing the error response.
func loadOwned(db *gorm.DB, c *gin.Context, actor middleware.Actor, id uint, dest interface{}, stuIDOf func() string, kind string) bool {
	if err := db.First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A student probing another student's ID gets 403 either way.
			if actor.Role == middleware.RoleStudent {
				utils.Error(c, http.StatusForbidden, "You do not have access to this record")
				return false
			}
			utils.Error(c, http.StatusNotFound, fmt.Sprintf("%s record not found", kind))
			return false
		}
		logrus.WithError(err).Error("failed to load record")
		utils.Error(c, http.StatusInternalServerError, "Something went wrong, please try again later")
		return false
	}

	if !actor.CanAccess(stuIDOf()) {
		utils.Error(c, http.StatusForbidden, "You do not have access to this record")
		return false
	}
	return true
}

// searchWhere builds a case-insensitive literal-match filter across the
// given columns.
func searchWhere(query *gorm.DB, search string, columns ...string) *gorm.DB {
	pattern := utils.LikePattern(search)
	conditions := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		conditions = append(conditions, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col))
		args = append(args, pattern)
	}
	return query.Where(strings.Join(conditions, " OR "), args...)
}
