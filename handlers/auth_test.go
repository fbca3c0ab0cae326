package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"student-records-manager/config"
	"student-records-manager/database"
	"student-records-manager/middleware"
	"student-records-manager/models"
)

func newAuthEnv(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{JWTSecret: string(testSecret), TokenTTL: time.Hour}
	handler := NewAuthHandler(db, cfg)

	r := gin.New()
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", handler.Login)
		auth.POST("/register", middleware.OptionalAuth(testSecret), handler.Register)
		auth.GET("/me", middleware.Auth(testSecret), handler.Me)
	}
	return db, r
}

func postJSON(t *testing.T, r *gin.Engine, path, auth string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedAdminAccount(t *testing.T, db *gorm.DB) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("admin-secret"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Name: "Admin", Email: "admin@example.edu", Password: string(hashed),
		Role: "admin", IsActive: true,
	}).Error)
}

func TestLogin_AdminByEmail(t *testing.T) {
	db, r := newAuthEnv(t)
	seedAdminAccount(t, db)

	w := postJSON(t, r, "/api/auth/login", "", gin.H{
		"login_id": "admin@example.edu", "password": "admin-secret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
			Role  string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "admin", resp.Data.Role)
	assert.NotEmpty(t, resp.Data.Token)

	var admin models.User
	require.NoError(t, db.Where("email = ?", "admin@example.edu").First(&admin).Error)
	assert.False(t, admin.LastLogin.IsZero(), "a successful login records the last login time")
}

func TestLogin_StudentByStudentID(t *testing.T) {
	db, r := newAuthEnv(t)
	hashed, err := bcrypt.GenerateFromPassword([]byte("stu-secret"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Student{
		StudentID: "CS001", Name: "Asha", Email: "asha@example.edu", Password: string(hashed),
	}).Error)

	w := postJSON(t, r, "/api/auth/login", "", gin.H{
		"login_id": "CS001", "password": "stu-secret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"role":"student"`)
}

func TestLogin_WrongPasswordAndUnknownAccountLookIdentical(t *testing.T) {
	db, r := newAuthEnv(t)
	seedAdminAccount(t, db)

	wrong := postJSON(t, r, "/api/auth/login", "", gin.H{
		"login_id": "admin@example.edu", "password": "nope",
	})
	unknown := postJSON(t, r, "/api/auth/login", "", gin.H{
		"login_id": "nobody", "password": "nope",
	})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
}

func TestLogin_DisabledAdminRejected(t *testing.T) {
	db, r := newAuthEnv(t)
	hashed, err := bcrypt.GenerateFromPassword([]byte("admin-secret"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Name: "Admin", Email: "admin@example.edu", Password: string(hashed),
		Role: "admin", IsActive: false,
	}).Error)

	w := postJSON(t, r, "/api/auth/login", "", gin.H{
		"login_id": "admin@example.edu", "password": "admin-secret",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "disabled")
}

func TestRegister_FirstAccountNeedsNoAuth(t *testing.T) {
	db, r := newAuthEnv(t)

	w := postJSON(t, r, "/api/auth/register", "", gin.H{
		"name": "First Admin", "email": "first@example.edu", "password": "longenough",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegister_LaterAccountsRequireAdmin(t *testing.T) {
	db, r := newAuthEnv(t)
	seedAdminAccount(t, db)

	// Unauthenticated registration is closed once an account exists.
	w := postJSON(t, r, "/api/auth/register", "", gin.H{
		"name": "Intruder", "email": "intruder@example.edu", "password": "longenough",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A student token does not help either.
	w = postJSON(t, r, "/api/auth/register", token(t, middleware.RoleStudent, "CS001"), gin.H{
		"name": "Intruder", "email": "intruder@example.edu", "password": "longenough",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// An admin token does.
	w = postJSON(t, r, "/api/auth/register", token(t, middleware.RoleAdmin, ""), gin.H{
		"name": "Second Admin", "email": "second@example.edu", "password": "longenough",
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, r := newAuthEnv(t)
	seedAdminAccount(t, db)

	w := postJSON(t, r, "/api/auth/register", token(t, middleware.RoleAdmin, ""), gin.H{
		"name": "Clone", "email": "admin@example.edu", "password": "longenough",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
}

func TestMe_ReturnsOwnProfile(t *testing.T) {
	db, r := newAuthEnv(t)
	seedAdminAccount(t, db)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, middleware.RoleAdmin, ""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin@example.edu")
	assert.NotContains(t, w.Body.String(), "password")
}
