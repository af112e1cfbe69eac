package services

import (
	"fmt"

	"github.com/geraldineferreras/backend-sub004/config"
	"github.com/geraldineferreras/backend-sub004/database"
	"github.com/geraldineferreras/backend-sub004/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SectionDirectoryService is the read/write boundary for sections. It is
// the lookup used to resolve promotion targets, so every query scopes by
// academic year id or the legacy year-name column.
type SectionDirectoryService struct {
	db *gorm.DB
}

func NewSectionDirectoryService() *SectionDirectoryService {
	return &SectionDirectoryService{db: database.DB}
}

// sectionYearScope filters sections belonging to a year, matching either
// the foreign key or the legacy academic_year text for pre-migration rows.
func sectionYearScope(db *gorm.DB, year *models.AcademicYear) *gorm.DB {
	return db.Where("academic_year_id = ? OR academic_year = ?", year.ID, year.Name)
}

// ListSections returns the non-archived sections of a year, optionally
// narrowed by program and year level.
func (s *SectionDirectoryService) ListSections(year *models.AcademicYear, program string, yearLevel int) ([]models.Section, error) {
	query := sectionYearScope(s.db.Model(&models.Section{}), year).Where("archived = ?", false)
	if program != "" {
		query = query.Where("program = ?", program)
	}
	if yearLevel > 0 {
		query = query.Where("year_level = ?", yearLevel)
	}

	var sections []models.Section
	if err := query.Order("program ASC, year_level ASC, name ASC").Find(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

// CreateSections generates the standard section grid for a year:
// programs x year levels x letter suffixes (A-K). Names that already
// exist within the year are skipped, so the call is safe to repeat.
func (s *SectionDirectoryService) CreateSections(year *models.AcademicYear, programs []string, yearLevels []int) (int, error) {
	if len(programs) == 0 && config.AppConfig != nil {
		programs = config.AppConfig.Programs
	}
	if len(yearLevels) == 0 {
		yearLevels = []int{1, 2, 3, 4}
	}
	letters := "ABCDEFGHIJK"
	if config.AppConfig != nil && config.AppConfig.SectionLetters != "" {
		letters = config.AppConfig.SectionLetters
	}

	existing := make(map[string]bool)
	var names []string
	if err := sectionYearScope(s.db.Model(&models.Section{}), year).Pluck("name", &names).Error; err != nil {
		return 0, err
	}
	for _, n := range names {
		existing[n] = true
	}

	yearID := year.ID
	created := 0
	for _, program := range programs {
		for _, level := range yearLevels {
			for _, suffix := range letters {
				name := fmt.Sprintf("%s %d%c", program, level, suffix)
				if existing[name] {
					continue
				}
				section := models.Section{
					Name:           name,
					Program:        program,
					YearLevel:      level,
					AcademicYear:   year.Name,
					AcademicYearID: &yearID,
				}
				if err := s.db.Create(&section).Error; err != nil {
					return created, fmt.Errorf("failed to create section %s: %w", name, err)
				}
				created++
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"academic_year": year.Name,
		"created":       created,
	}).Info("Section grid generated")

	return created, nil
}

// CreateSection inserts a single section scoped to a year, rejecting
// duplicate names within the year.
func (s *SectionDirectoryService) CreateSection(year *models.AcademicYear, section *models.Section) error {
	var count int64
	if err := sectionYearScope(s.db.Model(&models.Section{}), year).
		Where("name = ?", section.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: section %q already exists in %s", ErrConflict, section.Name, year.Name)
	}

	yearID := year.ID
	section.AcademicYear = year.Name
	section.AcademicYearID = &yearID
	return s.db.Create(section).Error
}
