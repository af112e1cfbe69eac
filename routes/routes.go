package routes

import (
	"github.com/geraldineferreras/backend-sub004/controllers"
	"github.com/geraldineferreras/backend-sub004/middleware"
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App) {
	// Initialize controllers
	authController := &controllers.AuthController{}
	yearController := controllers.NewAcademicYearController()
	promotionController := controllers.NewPromotionController()
	sectionController := controllers.NewSectionController()
	studentController := controllers.NewStudentController()
	logController := controllers.NewLogController()
	healthController := &controllers.HealthController{}

	// API group
	api := app.Group("/api")

	// Health check (no authentication required)
	api.Get("/health", healthController.GetHealthStatus)

	// Authentication routes (no middleware)
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)
	auth.Get("/profile", middleware.JWTMiddleware(), authController.GetProfile)

	// Protected routes (require authentication)
	protected := api.Group("/", middleware.JWTMiddleware(), middleware.LogActivityMiddleware())

	// Academic year lifecycle routes
	years := protected.Group("/academic-years")
	years.Get("/", middleware.RequireStaff(), yearController.GetAcademicYears)
	years.Get("/active", middleware.RequireStaff(), yearController.GetActiveAcademicYear)
	years.Get("/:id", middleware.RequireStaff(), yearController.GetAcademicYear)
	years.Post("/", middleware.RequireAdmin(), yearController.CreateAcademicYear)
	years.Put("/:id", middleware.RequireAdmin(), yearController.UpdateAcademicYear)
	years.Post("/:id/activate", middleware.RequireAdmin(), yearController.ActivateAcademicYear)
	years.Post("/:id/close", middleware.RequireAdmin(), yearController.CloseAcademicYear)

	// Promotion cycle routes, scoped under the source year
	years.Get("/:id/promotions", middleware.RequireAdmin(), promotionController.GetSnapshot)
	years.Put("/:id/promotions/students/:studentId", middleware.RequireAdmin(), promotionController.UpdateStudent)
	years.Post("/:id/promotions/finalize", middleware.RequireAdmin(), promotionController.Finalize)

	// Section directory routes
	years.Get("/:id/sections", middleware.RequireStaff(), sectionController.GetSections)
	years.Post("/:id/sections", middleware.RequireAdmin(), sectionController.CreateSection)
	years.Post("/:id/sections/grid", middleware.RequireAdmin(), sectionController.CreateSectionGrid)

	// Student roster routes
	years.Get("/:id/students", middleware.RequireStaff(), studentController.GetStudents)
	years.Post("/:id/students/import", middleware.RequireAdmin(), studentController.ImportRoster)

	// Activity log routes (admin only)
	logs := protected.Group("/logs", middleware.RequireAdmin())
	logs.Get("/", logController.GetLogs)
	logs.Get("/archives", logController.GetArchives)
	logs.Get("/archives/:id/download", logController.DownloadArchive)
	logs.Post("/flush", logController.FlushCachedLogs)
}
