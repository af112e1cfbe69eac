package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/geraldineferreras/backend-sub004/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// A second connection would see its own empty :memory: database.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.AcademicYear{},
		&models.Section{},
		&models.ClassOffering{},
		&models.ClassEnrollment{},
		&models.PromotionCycle{},
		&models.PromotionStudentRecord{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func testDate(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// createTestYear inserts a year with a complete semester schedule
// anchored on startYear.
func createTestYear(t *testing.T, db *gorm.DB, name, status string, isActive bool, startYear int) *models.AcademicYear {
	t.Helper()
	year := models.AcademicYear{
		Name:           name,
		Status:         status,
		IsActive:       isActive,
		StartDate:      testDate(startYear, time.August, 1),
		EndDate:        testDate(startYear+1, time.May, 31),
		Semester1Start: testDate(startYear, time.August, 1),
		Semester1End:   testDate(startYear, time.December, 20),
		Semester2Start: testDate(startYear+1, time.January, 6),
		Semester2End:   testDate(startYear+1, time.May, 31),
	}
	if err := db.Create(&year).Error; err != nil {
		t.Fatalf("failed to create year %s: %v", name, err)
	}
	return &year
}

func createTestSection(t *testing.T, db *gorm.DB, year *models.AcademicYear, name, program string, level int) *models.Section {
	t.Helper()
	section := models.Section{
		Name:           name,
		Program:        program,
		YearLevel:      level,
		AcademicYear:   year.Name,
		AcademicYearID: &year.ID,
	}
	if err := db.Create(&section).Error; err != nil {
		t.Fatalf("failed to create section %s: %v", name, err)
	}
	return &section
}

func createTestStudent(t *testing.T, db *gorm.DB, name, status string, section *models.Section) *models.User {
	t.Helper()
	student := models.User{
		Username:    fmt.Sprintf("%s-%d", name, time.Now().UnixNano()),
		Password:    "x",
		FullName:    name,
		Role:        "student",
		Status:      status,
		Program:     section.Program,
		YearLevel:   section.YearLevel,
		SectionID:   &section.ID,
		SectionName: section.Name,
	}
	if err := db.Create(&student).Error; err != nil {
		t.Fatalf("failed to create student %s: %v", name, err)
	}
	return &student
}
