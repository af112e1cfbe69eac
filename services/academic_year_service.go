package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/geraldineferreras/backend-sub004/database"
	"github.com/geraldineferreras/backend-sub004/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AcademicYearService owns the year lifecycle: draft years, the
// single-active-year invariant, activation (with its entangled promotion
// migration) and terminal close.
type AcademicYearService struct {
	db *gorm.DB
}

func NewAcademicYearService() *AcademicYearService {
	return &AcademicYearService{db: database.DB}
}

func timePtr(d *models.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

// Create stores a new draft year. Duplicate names are rejected and the
// date-sequence invariant is validated over whatever dates were supplied.
// Options can generate the standard section grid immediately and/or
// activate the year in the same call.
func (s *AcademicYearService) Create(req CreateAcademicYearRequest, actor string) (*models.AcademicYear, *MigrationResult, error) {
	if req.Name == "" {
		return nil, nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	var count int64
	if err := s.db.Model(&models.AcademicYear{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
		return nil, nil, err
	}
	if count > 0 {
		return nil, nil, fmt.Errorf("%w: academic year %q already exists", ErrConflict, req.Name)
	}

	year := models.AcademicYear{
		Name:           req.Name,
		StartDate:      timePtr(req.StartDate),
		EndDate:        timePtr(req.EndDate),
		Semester1Start: timePtr(req.Semester1Start),
		Semester1End:   timePtr(req.Semester1End),
		Semester2Start: timePtr(req.Semester2Start),
		Semester2End:   timePtr(req.Semester2End),
		Status:         models.YearStatusDraft,
		Notes:          req.Notes,
		CreatedBy:      actor,
		UpdatedBy:      actor,
	}
	if err := validateYearDates(&year); err != nil {
		return nil, nil, err
	}

	if err := s.db.Create(&year).Error; err != nil {
		return nil, nil, err
	}

	if req.AutoCreateSections {
		directory := &SectionDirectoryService{db: s.db}
		if _, err := directory.CreateSections(&year, req.Programs, nil); err != nil {
			return &year, nil, err
		}
	}

	if req.AutoActivate {
		activated, migration, err := s.Activate(year.ID, actor, ActivateOptions{})
		if err != nil {
			return &year, migration, err
		}
		return activated, migration, nil
	}

	return &year, nil, nil
}

// Update mutates an allow-listed set of year fields. Locked or closed
// years reject edits; the date-sequence invariant is re-validated against
// the merged record before anything is written.
func (s *AcademicYearService) Update(yearID uint, req UpdateAcademicYearRequest, actor string) (*models.AcademicYear, error) {
	var year models.AcademicYear
	if err := s.db.First(&year, yearID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: academic year %d", ErrNotFound, yearID)
		}
		return nil, err
	}

	if year.LockData || year.Status == models.YearStatusClosed {
		return nil, fmt.Errorf("%w: academic year %q is locked", ErrLocked, year.Name)
	}

	updates := map[string]interface{}{}
	merged := year

	if req.Name != nil && *req.Name != year.Name {
		var count int64
		if err := s.db.Model(&models.AcademicYear{}).
			Where("name = ? AND id <> ?", *req.Name, year.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: academic year %q already exists", ErrConflict, *req.Name)
		}
		updates["name"] = *req.Name
		merged.Name = *req.Name
	}

	dateFields := []struct {
		column string
		value  *models.Date
		dest   **time.Time
	}{
		{"start_date", req.StartDate, &merged.StartDate},
		{"end_date", req.EndDate, &merged.EndDate},
		{"semester1_start", req.Semester1Start, &merged.Semester1Start},
		{"semester1_end", req.Semester1End, &merged.Semester1End},
		{"semester2_start", req.Semester2Start, &merged.Semester2Start},
		{"semester2_end", req.Semester2End, &merged.Semester2End},
	}
	for _, f := range dateFields {
		if f.value == nil {
			continue
		}
		t := f.value.Time
		updates[f.column] = t
		*f.dest = &t
	}

	if req.Notes != nil {
		updates["notes"] = *req.Notes
		merged.Notes = *req.Notes
	}

	if len(updates) == 0 {
		return nil, ErrNothingToUpdate
	}

	if err := validateYearDates(&merged); err != nil {
		return nil, err
	}

	updates["updated_by"] = actor
	if err := s.db.Model(&year).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.db.First(&year, year.ID).Error; err != nil {
		return nil, err
	}
	return &year, nil
}

// Activate makes a year the active one. Inside a single transaction the
// previous active year (if any) is archived, the target year activated,
// and the previous year's finalized promotion cycle migrated into the
// target. Any migration failure aborts the whole transaction, leaving
// the system exactly as it was before the call.
func (s *AcademicYearService) Activate(yearID uint, actor string, opts ActivateOptions) (*models.AcademicYear, *MigrationResult, error) {
	var year models.AcademicYear
	if err := s.db.First(&year, yearID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: academic year %d", ErrNotFound, yearID)
		}
		return nil, nil, err
	}

	if year.Status == models.YearStatusClosed {
		// Closed years are terminal and never reopened.
		return nil, nil, fmt.Errorf("%w: academic year %q is closed", ErrLocked, year.Name)
	}
	if year.IsActive && !opts.Force {
		return nil, nil, fmt.Errorf("%w: academic year %q is already active", ErrConflict, year.Name)
	}
	if !hasCompleteSchedule(&year) {
		return nil, nil, fmt.Errorf("%w: all semester dates must be set before activation", ErrIncompleteSchedule)
	}

	var result *MigrationResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		lookup := tx.Where("is_active = ? AND id <> ?", true, year.ID)
		if tx.Dialector.Name() == "mysql" {
			// Row-lock the active-year lookup so concurrent activations
			// cannot both claim is_active.
			lookup = lookup.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var previous models.AcademicYear
		prevErr := lookup.First(&previous).Error
		if prevErr != nil && !errors.Is(prevErr, gorm.ErrRecordNotFound) {
			return prevErr
		}
		hasPrevious := prevErr == nil

		if hasPrevious {
			err := tx.Model(&previous).Updates(map[string]interface{}{
				"status":      models.YearStatusArchived,
				"is_active":   false,
				"archived_at": now,
				"updated_by":  actor,
			}).Error
			if err != nil {
				return err
			}
		}

		err := tx.Model(&year).Updates(map[string]interface{}{
			"status":       models.YearStatusActive,
			"is_active":    true,
			"activated_at": now,
			"updated_by":   actor,
		}).Error
		if err != nil {
			return err
		}

		if hasPrevious {
			r, err := NewMigrationService().MovePromotedStudents(tx, &previous, &year)
			if err != nil {
				return err
			}
			result = r
			if len(r.Failures) > 0 {
				return &MigrationError{Failures: r.Failures}
			}
		}

		return nil
	})
	if err != nil {
		return nil, result, err
	}

	if err := s.db.First(&year, year.ID).Error; err != nil {
		return nil, result, err
	}

	logrus.WithFields(logrus.Fields{
		"academic_year": year.Name,
		"actor":         actor,
	}).Info("Academic year activated")

	return &year, result, nil
}

// Close ends a year permanently. A closed year cannot be reopened; the
// optional lock freezes its data as well.
func (s *AcademicYearService) Close(yearID uint, actor string, req CloseYearRequest) (*models.AcademicYear, error) {
	var year models.AcademicYear
	if err := s.db.First(&year, yearID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: academic year %d", ErrNotFound, yearID)
		}
		return nil, err
	}

	if year.Status == models.YearStatusClosed {
		return nil, fmt.Errorf("%w: academic year %q is already closed", ErrConflict, year.Name)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     models.YearStatusClosed,
		"is_active":  false,
		"closed_at":  now,
		"updated_by": actor,
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}
	if req.Lock {
		updates["lock_data"] = true
		updates["locked_at"] = now
	}

	if err := s.db.Model(&year).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.db.First(&year, year.ID).Error; err != nil {
		return nil, err
	}
	return &year, nil
}

// GetActive returns the currently active year with its summary.
func (s *AcademicYearService) GetActive() (*YearOverview, error) {
	var year models.AcademicYear
	if err := s.db.Where("is_active = ?", true).First(&year).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no active academic year", ErrNotFound)
		}
		return nil, err
	}
	return s.attachSummary(&year)
}

// GetYear returns one year with its summary.
func (s *AcademicYearService) GetYear(yearID uint) (*YearOverview, error) {
	var year models.AcademicYear
	if err := s.db.First(&year, yearID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: academic year %d", ErrNotFound, yearID)
		}
		return nil, err
	}
	return s.attachSummary(&year)
}

// GetYears lists years newest first with summaries attached.
func (s *AcademicYearService) GetYears(filters YearFilters) ([]YearOverview, int64, error) {
	query := s.db.Model(&models.AcademicYear{})
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Page > 0 && filters.Limit > 0 {
		query = query.Offset((filters.Page - 1) * filters.Limit).Limit(filters.Limit)
	}

	var years []models.AcademicYear
	if err := query.Order("start_date DESC, id DESC").Find(&years).Error; err != nil {
		return nil, 0, err
	}

	overviews := make([]YearOverview, 0, len(years))
	for i := range years {
		overview, err := s.attachSummary(&years[i])
		if err != nil {
			return nil, 0, err
		}
		overviews = append(overviews, *overview)
	}
	return overviews, total, nil
}

// attachSummary computes the derived figures for a year: section and
// student counts scoped by id-or-legacy-name, and the latest promotion
// cycle's aggregates. Nothing here is stored.
func (s *AcademicYearService) attachSummary(year *models.AcademicYear) (*YearOverview, error) {
	overview := &YearOverview{AcademicYear: *year}

	err := sectionYearScope(s.db.Model(&models.Section{}), year).
		Where("archived = ?", false).
		Count(&overview.SectionCount).Error
	if err != nil {
		return nil, err
	}

	sectionIDs := sectionYearScope(s.db.Model(&models.Section{}), year).Select("id")
	err = s.db.Model(&models.User{}).
		Where("role = ?", "student").
		Where("section_id IN (?)", sectionIDs).
		Count(&overview.StudentCount).Error
	if err != nil {
		return nil, err
	}

	var cycle models.PromotionCycle
	err = s.db.Where("academic_year_id = ?", year.ID).Order("id DESC").First(&cycle).Error
	if err == nil {
		overview.LatestCycle = &cycle
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return overview, nil
}
