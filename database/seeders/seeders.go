package seeders

import (
	"fmt"
	"log"
	"time"

	"github.com/geraldineferreras/backend-sub004/database"
	"github.com/geraldineferreras/backend-sub004/models"
	"github.com/geraldineferreras/backend-sub004/utils"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedUsers()
	SeedAcademicYears()
	SeedSections()
	SeedStudents()

	log.Println("Database seeding completed successfully!")
}

// SeedUsers seeds the default admin and registrar accounts
func SeedUsers() {
	var count int64
	database.DB.Model(&models.User{}).Where("role <> ?", "student").Count(&count)
	if count > 0 {
		log.Println("Users already seeded, skipping...")
		return
	}

	adminPassword, _ := utils.HashPassword("admin123")
	registrarPassword, _ := utils.HashPassword("registrar123")

	users := []models.User{
		{
			Username: "admin",
			Password: adminPassword,
			Email:    "admin@school.local",
			FullName: "System Administrator",
			Role:     "admin",
			Status:   "active",
		},
		{
			Username: "registrar",
			Password: registrarPassword,
			Email:    "registrar@school.local",
			FullName: "School Registrar",
			Role:     "teacher",
			Status:   "active",
		},
	}

	for _, user := range users {
		if err := database.DB.Create(&user).Error; err != nil {
			log.Printf("Error seeding user %s: %v", user.Username, err)
		}
	}

	log.Println("Users seeded successfully")
}

// SeedAcademicYears seeds an active year and a draft successor
func SeedAcademicYears() {
	var count int64
	database.DB.Model(&models.AcademicYear{}).Count(&count)
	if count > 0 {
		log.Println("Academic years already seeded, skipping...")
		return
	}

	now := time.Now()
	d := func(y int, m time.Month, day int) *time.Time {
		t := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		return &t
	}

	years := []models.AcademicYear{
		{
			Name:           "2025-2026",
			StartDate:      d(2025, 8, 1),
			EndDate:        d(2026, 5, 31),
			Semester1Start: d(2025, 8, 1),
			Semester1End:   d(2025, 12, 20),
			Semester2Start: d(2026, 1, 6),
			Semester2End:   d(2026, 5, 31),
			Status:         models.YearStatusActive,
			IsActive:       true,
			ActivatedAt:    &now,
			CreatedBy:      "seed",
		},
		{
			Name:           "2026-2027",
			StartDate:      d(2026, 8, 1),
			EndDate:        d(2027, 5, 31),
			Semester1Start: d(2026, 8, 1),
			Semester1End:   d(2026, 12, 19),
			Semester2Start: d(2027, 1, 5),
			Semester2End:   d(2027, 5, 31),
			Status:         models.YearStatusDraft,
			CreatedBy:      "seed",
		},
	}

	for _, year := range years {
		if err := database.DB.Create(&year).Error; err != nil {
			log.Printf("Error seeding academic year %s: %v", year.Name, err)
		}
	}

	log.Println("Academic years seeded successfully")
}

// SeedSections builds a small section grid for every seeded year
func SeedSections() {
	var count int64
	database.DB.Model(&models.Section{}).Count(&count)
	if count > 0 {
		log.Println("Sections already seeded, skipping...")
		return
	}

	var years []models.AcademicYear
	if err := database.DB.Find(&years).Error; err != nil {
		log.Printf("Error loading academic years for section seeding: %v", err)
		return
	}

	programs := []string{"BSIT", "BSCS"}
	for _, year := range years {
		for _, program := range programs {
			for level := 1; level <= 4; level++ {
				section := models.Section{
					Name:           fmt.Sprintf("%s %dA", program, level),
					Program:        program,
					YearLevel:      level,
					AcademicYear:   year.Name,
					AcademicYearID: &year.ID,
				}
				if err := database.DB.Create(&section).Error; err != nil {
					log.Printf("Error seeding section %s (%s): %v", section.Name, year.Name, err)
				}
			}
		}
	}

	log.Println("Sections seeded successfully")
}

// SeedStudents places a handful of sample students into the active year
func SeedStudents() {
	var count int64
	database.DB.Model(&models.User{}).Where("role = ?", "student").Count(&count)
	if count > 0 {
		log.Println("Students already seeded, skipping...")
		return
	}

	var active models.AcademicYear
	if err := database.DB.Where("is_active = ?", true).First(&active).Error; err != nil {
		log.Println("No active year, skipping student seeding")
		return
	}

	password, _ := utils.HashPassword("student123")
	samples := []struct {
		Username string
		FullName string
		Section  string
		Program  string
		Level    int
	}{
		{"2025-0001", "Alice Navarro", "BSIT 1A", "BSIT", 1},
		{"2025-0002", "Bruno Reyes", "BSIT 1A", "BSIT", 1},
		{"2025-0003", "Carla Diaz", "BSIT 2A", "BSIT", 2},
		{"2025-0004", "Diego Santos", "BSCS 1A", "BSCS", 1},
		{"2025-0005", "Elena Cruz", "BSCS 3A", "BSCS", 3},
	}

	for _, s := range samples {
		var section models.Section
		err := database.DB.
			Where("academic_year_id = ? OR academic_year = ?", active.ID, active.Name).
			Where("name = ?", s.Section).
			First(&section).Error
		if err != nil {
			log.Printf("Error resolving section %s: %v", s.Section, err)
			continue
		}

		student := models.User{
			Username:    s.Username,
			Password:    password,
			FullName:    s.FullName,
			Role:        "student",
			Status:      "active",
			Program:     s.Program,
			YearLevel:   s.Level,
			SectionID:   &section.ID,
			SectionName: section.Name,
		}
		if err := database.DB.Create(&student).Error; err != nil {
			log.Printf("Error seeding student %s: %v", s.Username, err)
		}
	}

	log.Println("Students seeded successfully")
}
