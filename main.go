package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"student-records-manager/config"
	"student-records-manager/database"
	"student-records-manager/handlers"
	"student-records-manager/logger"
	"student-records-manager/middleware"
	"student-records-manager/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	logger.Init(cfg)

	db, err := database.Init(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	store, err := services.NewS3Store(cfg.S3)
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}

	uploader := services.NewUploader(store)
	attachments := services.NewAttachmentManager(store, uploader)
	cascade := services.NewCascadeDeleter(db, store)
	mailer := services.NewMailer(cfg)
	roster := services.NewRosterService(db, mailer)

	authHandler := handlers.NewAuthHandler(db, cfg)
	studentHandler := handlers.NewStudentHandler(db, attachments, cascade, roster, mailer)
	internshipHandler := handlers.NewInternshipHandler(db, attachments)
	placementHandler := handlers.NewPlacementHandler(db, attachments)
	higherStudiesHandler := handlers.NewHigherStudiesHandler(db, attachments)
	achievementHandler := handlers.NewAchievementHandler(db, attachments)
	activityHandler := handlers.NewActivityHandler(db, attachments)
	semesterHandler := handlers.NewSemesterRecordHandler(db, attachments)
	admissionHandler := handlers.NewAdmissionHandler(db, attachments)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * 3600 * time.Second,
	}))

	secret := []byte(cfg.JWTSecret)
	authRequired := middleware.Auth(secret)
	adminOnly := middleware.RequireRoles(middleware.RoleAdmin)
	studentOnly := middleware.RequireRoles(middleware.RoleStudent)

	// Auth
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", middleware.OptionalAuth(secret), authHandler.Register)
		auth.GET("/me", authRequired, authHandler.Me)
		auth.PUT("/password", authRequired, authHandler.ChangePassword)
	}

	// Students
	students := r.Group("/api/students")
	students.Use(authRequired)
	{
		students.POST("", adminOnly, studentHandler.Create)
		students.GET("", adminOnly, studentHandler.List)
		students.POST("/import", adminOnly, studentHandler.Import)
		students.GET("/export", adminOnly, studentHandler.Export)
		students.GET("/me", studentOnly, studentHandler.Me)
		students.GET("/:id", studentHandler.Get)
		students.PUT("/:id", studentHandler.Update)
		students.PUT("/:id/photo", studentHandler.UpdatePhoto)
		students.DELETE("/:id", adminOnly, studentHandler.Delete)
	}

	// Internships
	internships := r.Group("/api/internships")
	internships.Use(authRequired)
	{
		internships.POST("", internshipHandler.Create)
		internships.GET("", adminOnly, internshipHandler.List)
		internships.GET("/me", studentOnly, internshipHandler.Mine)
		internships.GET("/:id", internshipHandler.Get)
		internships.PUT("/:id", internshipHandler.Update)
		internships.DELETE("/:id", internshipHandler.Delete)
	}

	// Placements
	placements := r.Group("/api/placements")
	placements.Use(authRequired)
	{
		placements.POST("", placementHandler.Create)
		placements.GET("", adminOnly, placementHandler.List)
		placements.GET("/me", studentOnly, placementHandler.Mine)
		placements.GET("/:id", placementHandler.Get)
		placements.PUT("/:id", placementHandler.Update)
		placements.DELETE("/:id", placementHandler.Delete)
	}

	// Higher studies
	higherStudies := r.Group("/api/higher-studies")
	higherStudies.Use(authRequired)
	{
		higherStudies.POST("", higherStudiesHandler.Create)
		higherStudies.GET("", adminOnly, higherStudiesHandler.List)
		higherStudies.GET("/me", studentOnly, higherStudiesHandler.Mine)
		higherStudies.GET("/:id", higherStudiesHandler.Get)
		higherStudies.PUT("/:id", higherStudiesHandler.Update)
		higherStudies.DELETE("/:id", higherStudiesHandler.Delete)
	}

	// Achievements
	achievements := r.Group("/api/achievements")
	achievements.Use(authRequired)
	{
		achievements.POST("", achievementHandler.Create)
		achievements.GET("", adminOnly, achievementHandler.List)
		achievements.GET("/me", studentOnly, achievementHandler.Mine)
		achievements.GET("/:id", achievementHandler.Get)
		achievements.PUT("/:id", achievementHandler.Update)
		achievements.DELETE("/:id", achievementHandler.Delete)
	}

	// Activities
	activities := r.Group("/api/activities")
	activities.Use(authRequired)
	{
		activities.POST("", activityHandler.Create)
		activities.GET("", adminOnly, activityHandler.List)
		activities.GET("/me", studentOnly, activityHandler.Mine)
		activities.GET("/:id", activityHandler.Get)
		activities.PUT("/:id", activityHandler.Update)
		activities.DELETE("/:id", activityHandler.Delete)
	}

	// Semester records
	semesters := r.Group("/api/semester-records")
	semesters.Use(authRequired)
	{
		semesters.POST("", semesterHandler.Create)
		semesters.GET("", adminOnly, semesterHandler.List)
		semesters.GET("/me", studentOnly, semesterHandler.Mine)
		semesters.GET("/:id", semesterHandler.Get)
		semesters.PUT("/:id", semesterHandler.Update)
		semesters.DELETE("/:id", semesterHandler.Delete)
	}

	// Admissions (admin-managed; students can read their own)
	admissions := r.Group("/api/admissions")
	admissions.Use(authRequired)
	{
		admissions.POST("", adminOnly, admissionHandler.Create)
		admissions.GET("", adminOnly, admissionHandler.List)
		admissions.GET("/me", studentOnly, admissionHandler.Mine)
		admissions.GET("/:id", admissionHandler.Get)
		admissions.PUT("/:id", adminOnly, admissionHandler.Update)
		admissions.DELETE("/:id", adminOnly, admissionHandler.Delete)
	}

	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := r.Run("0.0.0.0:" + cfg.ServerPort); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
