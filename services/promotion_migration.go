package services

import (
	"errors"
	"fmt"

	"github.com/geraldineferreras/backend-sub004/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MigrationService relocates promoted students from a finalized promotion
// cycle of the source year into resolved sections of the target year.
// Every method takes the caller's transaction handle: the activation flow
// wraps deactivation, activation and migration in a single transaction so
// a failed migration rolls back the activation itself.
type MigrationService struct{}

func NewMigrationService() *MigrationService {
	return &MigrationService{}
}

// MovePromotedStudents runs one migration pass. A missing finalized cycle
// or an empty promoted set is success with zero moved. Per-student
// resolution failures are collected rather than aborting the loop; the
// caller treats a non-empty failure list as a hard stop.
func (m *MigrationService) MovePromotedStudents(tx *gorm.DB, source, target *models.AcademicYear) (*MigrationResult, error) {
	result := &MigrationResult{Status: "success"}

	var cycle models.PromotionCycle
	err := tx.Where("academic_year_id = ? AND status = ?", source.ID, models.CycleStatusFinalized).
		Order("id DESC").
		First(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, err
	}
	result.PromotionID = cycle.ID

	var records []models.PromotionStudentRecord
	if err := tx.Where("promotion_id = ? AND decision_status = ?", cycle.ID, models.DecisionPromoted).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return result, nil
	}

	targetYearID := target.ID
	for i := range records {
		record := &records[i]

		level := record.TargetYearLevel
		if level <= 0 {
			if record.CurrentYearLevel <= 0 {
				result.Failures = append(result.Failures, MigrationFailure{
					StudentID:   record.StudentID,
					StudentName: record.StudentName,
					Reason:      "cannot determine target year level",
				})
				continue
			}
			level = nextYearLevel(record.CurrentYearLevel)
		}

		wantedName := record.TargetSectionName
		if wantedName == "" {
			wantedName = deriveTargetSectionName(record.SectionName, level)
		}

		section, reason := resolveTargetSection(tx, target, record.Program, level, wantedName)
		if section == nil {
			result.Failures = append(result.Failures, MigrationFailure{
				StudentID:   record.StudentID,
				StudentName: record.StudentName,
				Reason:      reason,
			})
			continue
		}

		program := section.Program
		if program == "" {
			program = record.Program
		}

		// Repoint the student's primary account at the resolved section.
		if err := tx.Model(&models.User{}).Where("id = ?", record.StudentID).Updates(map[string]interface{}{
			"section_id":   section.ID,
			"section_name": section.Name,
			"program":      program,
			"year_level":   level,
		}).Error; err != nil {
			return nil, err
		}

		if err := tx.Model(record).Updates(map[string]interface{}{
			"target_year_level":         level,
			"target_section_id":         section.ID,
			"target_section_name":       section.Name,
			"target_academic_year_id":   targetYearID,
			"target_academic_year_name": target.Name,
		}).Error; err != nil {
			return nil, err
		}

		result.MovedCount++
	}

	if len(result.Failures) > 0 {
		result.Status = "failed"
	}

	logrus.WithFields(logrus.Fields{
		"source_year": source.Name,
		"target_year": target.Name,
		"promotion":   cycle.ID,
		"moved":       result.MovedCount,
		"failures":    len(result.Failures),
	}).Info("Promotion migration pass completed")

	return result, nil
}

// resolveTargetSection finds the destination section for a student within
// the target year: exact name match first, then the alphabetically-first
// non-archived section of the same program and year level.
func resolveTargetSection(tx *gorm.DB, year *models.AcademicYear, program string, yearLevel int, wantedName string) (*models.Section, string) {
	var section models.Section

	err := sectionYearScope(tx.Model(&models.Section{}), year).
		Where("archived = ?", false).
		Where("program = ? AND year_level = ?", program, yearLevel).
		Where("name = ?", wantedName).
		First(&section).Error
	if err == nil {
		return &section, ""
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Sprintf("section lookup failed: %v", err)
	}

	err = sectionYearScope(tx.Model(&models.Section{}), year).
		Where("archived = ?", false).
		Where("program = ? AND year_level = ?", program, yearLevel).
		Order("name ASC").
		First(&section).Error
	if err == nil {
		return &section, ""
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Sprintf("section lookup failed: %v", err)
	}

	return nil, fmt.Sprintf("no section found in %q for program %s year level %d (wanted %q)",
		year.Name, program, yearLevel, wantedName)
}
