package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"student-records-manager/database"
	"student-records-manager/middleware"
	"student-records-manager/models"
	"student-records-manager/services"
)

var testSecret = []byte("test-secret")

// fakeStore satisfies services.ObjectStore without touching the network.
type fakeStore struct {
	seq       int
	uploads   []string
	deletes   []string
	bulkKeys  []string
	uploadErr error
}

func (f *fakeStore) Upload(_ context.Context, _ multipart.File, _ *multipart.FileHeader, folder string) (models.Attachment, error) {
	if f.uploadErr != nil {
		return models.Attachment{}, f.uploadErr
	}
	f.seq++
	key := fmt.Sprintf("%s/obj-%d", folder, f.seq)
	f.uploads = append(f.uploads, key)
	return models.Attachment{URL: "https://cdn.test/" + key, StorageKey: key}, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeStore) BulkDelete(_ context.Context, keys []string) services.BulkDeleteResult {
	f.bulkKeys = append(f.bulkKeys, keys...)
	return services.BulkDeleteResult{Deleted: keys}
}

type testEnv struct {
	db     *gorm.DB
	store  *fakeStore
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	store := &fakeStore{}
	attachments := services.NewAttachmentManager(store, services.NewUploader(store))
	handler := NewInternshipHandler(db, attachments)

	r := gin.New()
	group := r.Group("/api/internships")
	group.Use(middleware.Auth(testSecret))
	adminOnly := middleware.RequireRoles(middleware.RoleAdmin)
	studentOnly := middleware.RequireRoles(middleware.RoleStudent)
	{
		group.POST("", handler.Create)
		group.GET("", adminOnly, handler.List)
		group.GET("/me", studentOnly, handler.Mine)
		group.GET("/:id", handler.Get)
		group.PUT("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
	}

	return &testEnv{db: db, store: store, router: r}
}

func (e *testEnv) seedStudent(t *testing.T, stuID string) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.Student{
		StudentID: stuID,
		Name:      "Student " + stuID,
		Email:     stuID + "@example.edu",
		Password:  "x",
	}).Error)
}

func token(t *testing.T, role middleware.Role, stuID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  float64(1),
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	if stuID != "" {
		claims["student_id"] = stuID
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

type filePart struct {
	field, name, contentType string
	size                     int
}

func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		header.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte("x"), f.size))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path, auth string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+auth)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func validInternshipFields() map[string]string {
	return map[string]string{
		"company":    "Acme Corp",
		"role":       "Backend Intern",
		"start_date": "2025-01-06",
		"end_date":   "2025-06-27",
		"is_paid":    "true",
		"stipend":    "15000",
	}
}

func internshipFiles() []filePart {
	return []filePart{
		{field: "report", name: "report.pdf", contentType: "application/pdf", size: 256},
		{field: "certificate", name: "cert.pdf", contentType: "application/pdf", size: 256},
	}
}

func TestInternshipCreate_StudentOwnsRecord(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")

	body, contentType := multipartBody(t, validInternshipFields(), internshipFiles()...)
	w := env.do(t, "POST", "/api/internships", token(t, middleware.RoleStudent, "CS001"), body, contentType)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec models.Internship
	require.NoError(t, env.db.First(&rec).Error)
	assert.Equal(t, "CS001", rec.StuID)
	assert.Equal(t, 15000, rec.Stipend)
	assert.True(t, rec.Report.Present())
	assert.True(t, rec.Certificate.Present())
	assert.Len(t, env.store.uploads, 2)
}

func TestInternshipCreate_AdminMustNameExistingStudent(t *testing.T) {
	env := newTestEnv(t)

	fields := validInternshipFields()
	fields["stu_id"] = "GHOST"
	body, contentType := multipartBody(t, fields, internshipFiles()...)
	w := env.do(t, "POST", "/api/internships", token(t, middleware.RoleAdmin, ""), body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no student found with this ID")
	assert.Empty(t, env.store.uploads, "validation failures never upload")
}

func TestInternshipCreate_PaidRequiresStipend(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")

	fields := validInternshipFields()
	delete(fields, "stipend")
	body, contentType := multipartBody(t, fields, internshipFiles()...)
	w := env.do(t, "POST", "/api/internships", token(t, middleware.RoleStudent, "CS001"), body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "stipend is required for paid internships")
}

func TestInternshipCreate_UnpaidRejectsStipend(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")

	fields := validInternshipFields()
	fields["is_paid"] = "false"
	body, contentType := multipartBody(t, fields, internshipFiles()...)
	w := env.do(t, "POST", "/api/internships", token(t, middleware.RoleStudent, "CS001"), body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "stipend is only allowed for paid internships")
}

func TestInternshipCreate_MissingReportFile(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")

	body, contentType := multipartBody(t, validInternshipFields(),
		filePart{field: "certificate", name: "cert.pdf", contentType: "application/pdf", size: 256},
	)
	w := env.do(t, "POST", "/api/internships", token(t, middleware.RoleStudent, "CS001"), body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Internship report is required")
	assert.Empty(t, env.store.uploads)
}

func TestInternshipCreate_WrongFileType(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")

	body, contentType := multipartBody(t, validInternshipFields(),
		filePart{field: "report", name: "report.docx", contentType: "application/msword", size: 256},
		filePart{field: "certificate", name: "cert.pdf", contentType: "application/pdf", size: 256},
	)
	w := env.do(t, "POST", "/api/internships", token(t, middleware.RoleStudent, "CS001"), body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file type must be one of")
	assert.Empty(t, env.store.uploads)
}

func TestInternshipGet_StudentCannotReadOthersRecord(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")
	env.seedStudent(t, "CS002")
	require.NoError(t, env.db.Create(&models.Internship{
		StuID: "CS002", Company: "Acme", Role: "Intern",
	}).Error)

	w := env.do(t, "GET", "/api/internships/1", token(t, middleware.RoleStudent, "CS001"), nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A missing record gets the same response, so IDs cannot be probed.
	w = env.do(t, "GET", "/api/internships/999", token(t, middleware.RoleStudent, "CS001"), nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInternshipGet_AdminSeesNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/internships/999", token(t, middleware.RoleAdmin, ""), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Internship record not found")
}

func TestInternshipUpdate_EmptyFormRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")
	require.NoError(t, env.db.Create(&models.Internship{
		StuID: "CS001", Company: "Acme", Role: "Intern",
	}).Error)

	body, contentType := multipartBody(t, map[string]string{})
	w := env.do(t, "PUT", "/api/internships/1", token(t, middleware.RoleStudent, "CS001"), body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No valid fields provided for update")
}

func TestInternshipUpdate_RejectedFileLeavesFieldsUnchanged(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")
	require.NoError(t, env.db.Create(&models.Internship{
		StuID: "CS001", Company: "Acme", Role: "Intern",
	}).Error)

	// A valid field change rides along with a rejected replacement file;
	// the whole request must fail with nothing written.
	body, contentType := multipartBody(t, map[string]string{"company": "Changed Corp"},
		filePart{field: "report", name: "report.gif", contentType: "image/gif", size: 256},
	)
	w := env.do(t, "PUT", "/api/internships/1", token(t, middleware.RoleStudent, "CS001"), body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file type must be one of")

	var rec models.Internship
	require.NoError(t, env.db.First(&rec, 1).Error)
	assert.Equal(t, "Acme", rec.Company)
	assert.Empty(t, env.store.uploads)
}

func TestInternshipUpdate_OversizedFileLeavesFieldsUnchanged(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")
	require.NoError(t, env.db.Create(&models.Internship{
		StuID: "CS001", Company: "Acme", Role: "Intern",
	}).Error)

	body, contentType := multipartBody(t, map[string]string{"company": "Changed Corp"},
		filePart{field: "certificate", name: "cert.pdf", contentType: "application/pdf", size: (5 << 20) + 1},
	)
	w := env.do(t, "PUT", "/api/internships/1", token(t, middleware.RoleStudent, "CS001"), body, contentType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "must not exceed")

	var rec models.Internship
	require.NoError(t, env.db.First(&rec, 1).Error)
	assert.Equal(t, "Acme", rec.Company)
	assert.Empty(t, env.store.uploads)
}

func TestInternshipUpdate_SwitchToUnpaidClearsStipend(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")
	require.NoError(t, env.db.Create(&models.Internship{
		StuID: "CS001", Company: "Acme", Role: "Intern", IsPaid: true, Stipend: 15000,
	}).Error)

	body, contentType := multipartBody(t, map[string]string{"is_paid": "false"})
	w := env.do(t, "PUT", "/api/internships/1", token(t, middleware.RoleStudent, "CS001"), body, contentType)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rec models.Internship
	require.NoError(t, env.db.First(&rec, 1).Error)
	assert.False(t, rec.IsPaid)
	assert.Equal(t, 0, rec.Stipend)
}

func TestInternshipUpdate_ReplacesReportAndDeletesOld(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")
	require.NoError(t, env.db.Create(&models.Internship{
		StuID: "CS001", Company: "Acme", Role: "Intern",
		Report: models.Attachment{URL: "https://cdn.test/internships/old", StorageKey: "internships/old"},
	}).Error)

	body, contentType := multipartBody(t, map[string]string{},
		filePart{field: "report", name: "v2.pdf", contentType: "application/pdf", size: 256},
	)
	w := env.do(t, "PUT", "/api/internships/1", token(t, middleware.RoleStudent, "CS001"), body, contentType)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rec models.Internship
	require.NoError(t, env.db.First(&rec, 1).Error)
	assert.NotEqual(t, "internships/old", rec.Report.StorageKey)
	assert.Equal(t, []string{"internships/old"}, env.store.deletes)
}

func TestInternshipDelete_CleansUpAttachments(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")
	require.NoError(t, env.db.Create(&models.Internship{
		StuID: "CS001", Company: "Acme", Role: "Intern",
		Report:      models.Attachment{URL: "https://cdn.test/internships/r1", StorageKey: "internships/r1"},
		Certificate: models.Attachment{URL: "https://cdn.test/internships/c1", StorageKey: "internships/c1"},
	}).Error)

	w := env.do(t, "DELETE", "/api/internships/1", token(t, middleware.RoleStudent, "CS001"), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var count int64
	require.NoError(t, env.db.Model(&models.Internship{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.ElementsMatch(t, []string{"internships/r1", "internships/c1"}, env.store.bulkKeys)
}

func TestInternshipList_AdminOnly(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/internships", token(t, middleware.RoleStudent, "CS001"), nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInternshipList_JoinsStudentAndPaginates(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")
	for i := 0; i < 3; i++ {
		require.NoError(t, env.db.Create(&models.Internship{
			StuID: "CS001", Company: fmt.Sprintf("Company %d", i), Role: "Intern",
		}).Error)
	}

	w := env.do(t, "GET", "/api/internships?page=1&limit=2", token(t, middleware.RoleAdmin, ""), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			Company     string `json:"company"`
			StudentName string `json:"student_name"`
		} `json:"data"`
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		TotalPages int   `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Student CS001", resp.Data[0].StudentName)
}

func TestInternshipList_SearchIsLiteral(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")
	require.NoError(t, env.db.Create(&models.Internship{
		StuID: "CS001", Company: "100% Remote Ltd", Role: "Intern",
	}).Error)
	require.NoError(t, env.db.Create(&models.Internship{
		StuID: "CS001", Company: "100 Acres Farm", Role: "Intern",
	}).Error)

	w := env.do(t, "GET", "/api/internships?search=100%25%20Remote", token(t, middleware.RoleAdmin, ""), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Total)
}

func TestInternshipMine_ReturnsOwnRecordsOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "CS001")
	env.seedStudent(t, "CS002")
	require.NoError(t, env.db.Create(&models.Internship{StuID: "CS001", Company: "Acme", Role: "Intern"}).Error)
	require.NoError(t, env.db.Create(&models.Internship{StuID: "CS002", Company: "Globex", Role: "Intern"}).Error)

	w := env.do(t, "GET", "/api/internships/me", token(t, middleware.RoleStudent, "CS001"), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []models.Internship `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Acme", resp.Data[0].Company)
}
