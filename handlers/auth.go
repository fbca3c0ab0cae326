package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"student-records-manager/config"
	"student-records-manager/middleware"
	"student-records-manager/models"
	"student-records-manager/utils"
)

type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

type LoginRequest struct {
	LoginID  string `json:"login_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	Role      string      `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
	Profile   interface{} `json:"profile"`
}

// Login authenticates an admin by email or a student by student ID.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "login_id and password are required")
		return
	}

	var admin models.User
	err := h.db.Where("email = ?", req.LoginID).First(&admin).Error
	if err == nil {
		if !admin.IsActive {
			utils.Error(c, http.StatusForbidden, "This account has been disabled")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)) != nil {
			utils.Error(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		admin.LastLogin = time.Now()
		if err := h.db.Save(&admin).Error; err != nil {
			logrus.WithError(err).Warn("failed to record last login time")
		}

		h.issueToken(c, admin.ID, middleware.RoleAdmin, "", &admin)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(c, http.StatusInternalServerError, "Something went wrong, please try again later")
		return
	}

	var student models.Student
	if err := h.db.Where("student_id = ?", req.LoginID).First(&student).Error; err != nil {
		// Same message whether the account is missing or the password wrong.
		utils.Error(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(student.Password), []byte(req.Password)) != nil {
		utils.Error(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.issueToken(c, student.ID, middleware.RoleStudent, student.StudentID, &student)
}

func (h *AuthHandler) issueToken(c *gin.Context, id uint, role middleware.Role, studentID string, profile interface{}) {
	expiresAt := time.Now().Add(h.cfg.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        id,
		"role":       string(role),
		"student_id": studentID,
		"exp":        expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	utils.OKWithMessage(c, "Login successful", loginResponse{
		Token:     signed,
		Role:      string(role),
		ExpiresAt: expiresAt,
		Profile:   profile,
	})
}

// Register creates an admin account. The first account can be created
// without authentication to bootstrap the system; afterwards only an
// existing admin may add more.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "name, email and a password of at least 8 characters are required")
		return
	}

	var userCount int64
	if err := h.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		utils.Error(c, http.StatusInternalServerError, "Something went wrong, please try again later")
		return
	}
	if userCount > 0 && middleware.CurrentActor(c).Role != middleware.RoleAdmin {
		utils.Error(c, http.StatusForbidden, "Only an admin can register new admin accounts")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     "admin",
		IsActive: true,
	}
	if err := h.db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			utils.Error(c, http.StatusBadRequest, "An account with this email already exists")
			return
		}
		utils.Error(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	utils.Created(c, "Admin account created", &user)
}

// Me returns the authenticated actor's own profile.
func (h *AuthHandler) Me(c *gin.Context) {
	actor := middleware.CurrentActor(c)

	if actor.Role == middleware.RoleAdmin {
		var admin models.User
		if err := h.db.First(&admin, actor.ID).Error; err != nil {
			utils.Error(c, http.StatusNotFound, "Account not found")
			return
		}
		utils.OK(c, &admin)
		return
	}

	var student models.Student
	if err := h.db.First(&student, actor.ID).Error; err != nil {
		utils.Error(c, http.StatusNotFound, "Account not found")
		return
	}
	utils.OK(c, &student)
}

// ChangePassword lets the actor rotate their own credential.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "old_password and a new_password of at least 8 characters are required")
		return
	}

	actor := middleware.CurrentActor(c)

	var currentHash string
	if actor.Role == middleware.RoleAdmin {
		var admin models.User
		if err := h.db.First(&admin, actor.ID).Error; err != nil {
			utils.Error(c, http.StatusNotFound, "Account not found")
			return
		}
		currentHash = admin.Password
	} else {
		var student models.Student
		if err := h.db.First(&student, actor.ID).Error; err != nil {
			utils.Error(c, http.StatusNotFound, "Account not found")
			return
		}
		currentHash = student.Password
	}

	if bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.OldPassword)) != nil {
		utils.Error(c, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	var updateErr error
	if actor.Role == middleware.RoleAdmin {
		updateErr = h.db.Model(&models.User{}).Where("id = ?", actor.ID).Update("password", string(hashed)).Error
	} else {
		updateErr = h.db.Model(&models.Student{}).Where("id = ?", actor.ID).Update("password", string(hashed)).Error
	}
	if updateErr != nil {
		utils.Error(c, http.StatusInternalServerError, "Failed to update password")
		return
	}

	utils.Message(c, "Password updated")
}
