package services

import (
	"errors"
	"testing"
	"time"

	"github.com/geraldineferreras/backend-sub004/models"
)

func TestCreateRejectsInvalidDates(t *testing.T) {
	db := setupTestDB(t)
	svc := &AcademicYearService{db: db}

	start := models.Date{Time: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	end := models.Date{Time: time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)}

	_, _, err := svc.Create(CreateAcademicYearRequest{
		Name:      "2026-2027",
		StartDate: &start,
		EndDate:   &end,
	}, "tester")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var count int64
	db.Model(&models.AcademicYear{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no year rows after rejected create, got %d", count)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	db := setupTestDB(t)
	svc := &AcademicYearService{db: db}

	if _, _, err := svc.Create(CreateAcademicYearRequest{Name: "2025-2026"}, "tester"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, err := svc.Create(CreateAcademicYearRequest{Name: "2025-2026"}, "tester")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestUpdateRejectsLockedYear(t *testing.T) {
	db := setupTestDB(t)
	svc := &AcademicYearService{db: db}

	year := createTestYear(t, db, "2024-2025", models.YearStatusClosed, false, 2024)
	notes := "late correction"
	_, err := svc.Update(year.ID, UpdateAcademicYearRequest{Notes: &notes}, "tester")
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected locked error, got %v", err)
	}
}

func TestUpdateWithoutFieldsFails(t *testing.T) {
	db := setupTestDB(t)
	svc := &AcademicYearService{db: db}

	year := createTestYear(t, db, "2025-2026", models.YearStatusDraft, false, 2025)
	_, err := svc.Update(year.ID, UpdateAcademicYearRequest{}, "tester")
	if !errors.Is(err, ErrNothingToUpdate) {
		t.Fatalf("expected nothing-to-update error, got %v", err)
	}
}

func TestActivateRequiresCompleteSchedule(t *testing.T) {
	db := setupTestDB(t)
	svc := &AcademicYearService{db: db}

	year := models.AcademicYear{Name: "2025-2026", Status: models.YearStatusDraft}
	if err := db.Create(&year).Error; err != nil {
		t.Fatalf("failed to create year: %v", err)
	}

	_, _, err := svc.Activate(year.ID, "tester", ActivateOptions{})
	if !errors.Is(err, ErrIncompleteSchedule) {
		t.Fatalf("expected incomplete schedule error, got %v", err)
	}
}

func TestActivateArchivesPreviousActiveYear(t *testing.T) {
	db := setupTestDB(t)
	svc := &AcademicYearService{db: db}

	previous := createTestYear(t, db, "2024-2025", models.YearStatusActive, true, 2024)
	next := createTestYear(t, db, "2025-2026", models.YearStatusDraft, false, 2025)

	activated, _, err := svc.Activate(next.ID, "tester", ActivateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if activated.Status != models.YearStatusActive || !activated.IsActive {
		t.Fatalf("expected activated year to be active, got status=%s active=%v", activated.Status, activated.IsActive)
	}
	if activated.ActivatedAt == nil {
		t.Fatalf("expected activated_at to be set")
	}

	var archived models.AcademicYear
	if err := db.First(&archived, previous.ID).Error; err != nil {
		t.Fatalf("failed to reload previous year: %v", err)
	}
	if archived.Status != models.YearStatusArchived || archived.IsActive {
		t.Fatalf("expected previous year archived, got status=%s active=%v", archived.Status, archived.IsActive)
	}
	if archived.ArchivedAt == nil {
		t.Fatalf("expected archived_at to be set")
	}

	var activeCount int64
	db.Model(&models.AcademicYear{}).Where("is_active = ?", true).Count(&activeCount)
	if activeCount != 1 {
		t.Fatalf("expected exactly one active year, got %d", activeCount)
	}
}

func TestActivateAlreadyActiveWithoutForce(t *testing.T) {
	db := setupTestDB(t)
	svc := &AcademicYearService{db: db}

	year := createTestYear(t, db, "2025-2026", models.YearStatusActive, true, 2025)
	_, _, err := svc.Activate(year.ID, "tester", ActivateOptions{})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	if _, _, err := svc.Activate(year.ID, "tester", ActivateOptions{Force: true}); err != nil {
		t.Fatalf("expected forced re-activation to succeed, got %v", err)
	}
}

func TestActivateMovesPromotedStudents(t *testing.T) {
	db := setupTestDB(t)
	svc := &AcademicYearService{db: db}

	source := createTestYear(t, db, "2024-2025", models.YearStatusActive, true, 2024)
	target := createTestYear(t, db, "2025-2026", models.YearStatusDraft, false, 2025)

	sourceSection := createTestSection(t, db, source, "BSIT 2A", "BSIT", 2)
	targetSection := createTestSection(t, db, target, "BSIT 3A", "BSIT", 3)

	student := createTestStudent(t, db, "Alice Navarro", "active", sourceSection)

	cycle := models.PromotionCycle{AcademicYearID: source.ID, Status: models.CycleStatusFinalized}
	if err := db.Create(&cycle).Error; err != nil {
		t.Fatalf("failed to create cycle: %v", err)
	}
	record := models.PromotionStudentRecord{
		PromotionID:      cycle.ID,
		StudentID:        student.ID,
		StudentName:      student.FullName,
		Program:          "BSIT",
		CurrentYearLevel: 2,
		SectionID:        &sourceSection.ID,
		SectionName:      sourceSection.Name,
		EvaluationStatus: models.EvaluationEligible,
		DecisionStatus:   models.DecisionPromoted,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	_, migration, err := svc.Activate(target.ID, "tester", ActivateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if migration == nil || migration.MovedCount != 1 || migration.Status != "success" {
		t.Fatalf("expected one moved student, got %+v", migration)
	}

	var moved models.User
	if err := db.First(&moved, student.ID).Error; err != nil {
		t.Fatalf("failed to reload student: %v", err)
	}
	if moved.SectionID == nil || *moved.SectionID != targetSection.ID {
		t.Fatalf("expected student in target section %d, got %v", targetSection.ID, moved.SectionID)
	}
	if moved.SectionName != "BSIT 3A" || moved.YearLevel != 3 {
		t.Fatalf("expected BSIT 3A level 3, got %s level %d", moved.SectionName, moved.YearLevel)
	}

	var updated models.PromotionStudentRecord
	if err := db.First(&updated, record.ID).Error; err != nil {
		t.Fatalf("failed to reload record: %v", err)
	}
	if updated.TargetSectionID == nil || *updated.TargetSectionID != targetSection.ID {
		t.Fatalf("expected record pointed at target section, got %v", updated.TargetSectionID)
	}
	if updated.TargetAcademicYearName != target.Name {
		t.Fatalf("expected target year %q, got %q", target.Name, updated.TargetAcademicYearName)
	}
}

func TestActivateRollsBackWhenMigrationFails(t *testing.T) {
	db := setupTestDB(t)
	svc := &AcademicYearService{db: db}

	source := createTestYear(t, db, "2024-2025", models.YearStatusActive, true, 2024)
	target := createTestYear(t, db, "2025-2026", models.YearStatusDraft, false, 2025)

	sourceSection := createTestSection(t, db, source, "BSIT 2A", "BSIT", 2)
	// The target year has no BSIT year-3 section, so resolution must fail.
	student := createTestStudent(t, db, "Bruno Reyes", "active", sourceSection)

	cycle := models.PromotionCycle{AcademicYearID: source.ID, Status: models.CycleStatusFinalized}
	if err := db.Create(&cycle).Error; err != nil {
		t.Fatalf("failed to create cycle: %v", err)
	}
	record := models.PromotionStudentRecord{
		PromotionID:      cycle.ID,
		StudentID:        student.ID,
		StudentName:      student.FullName,
		Program:          "BSIT",
		CurrentYearLevel: 2,
		SectionID:        &sourceSection.ID,
		SectionName:      sourceSection.Name,
		EvaluationStatus: models.EvaluationEligible,
		DecisionStatus:   models.DecisionPromoted,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("failed to create record: %v", err)
	}

	_, migration, err := svc.Activate(target.ID, "tester", ActivateOptions{})

	var migErr *MigrationError
	if !errors.As(err, &migErr) {
		t.Fatalf("expected migration error, got %v", err)
	}
	if migration == nil || migration.Status != "failed" || len(migration.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", migration)
	}
	if migration.Failures[0].StudentName != "Bruno Reyes" {
		t.Fatalf("expected failure to name the student, got %+v", migration.Failures[0])
	}

	// The whole transaction must have rolled back.
	var reloadedSource, reloadedTarget models.AcademicYear
	if err := db.First(&reloadedSource, source.ID).Error; err != nil {
		t.Fatalf("failed to reload source year: %v", err)
	}
	if err := db.First(&reloadedTarget, target.ID).Error; err != nil {
		t.Fatalf("failed to reload target year: %v", err)
	}
	if !reloadedSource.IsActive || reloadedSource.Status != models.YearStatusActive {
		t.Fatalf("expected source year still active, got status=%s active=%v", reloadedSource.Status, reloadedSource.IsActive)
	}
	if reloadedTarget.IsActive || reloadedTarget.Status != models.YearStatusDraft {
		t.Fatalf("expected target year still draft, got status=%s active=%v", reloadedTarget.Status, reloadedTarget.IsActive)
	}

	var untouched models.User
	if err := db.First(&untouched, student.ID).Error; err != nil {
		t.Fatalf("failed to reload student: %v", err)
	}
	if untouched.SectionName != "BSIT 2A" || untouched.YearLevel != 2 {
		t.Fatalf("expected student untouched, got %s level %d", untouched.SectionName, untouched.YearLevel)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	db := setupTestDB(t)
	svc := &AcademicYearService{db: db}

	year := createTestYear(t, db, "2023-2024", models.YearStatusArchived, false, 2023)

	closed, err := svc.Close(year.ID, "tester", CloseYearRequest{Lock: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed.Status != models.YearStatusClosed || !closed.LockData || closed.ClosedAt == nil {
		t.Fatalf("expected closed and locked year, got %+v", closed)
	}

	if _, err := svc.Close(year.ID, "tester", CloseYearRequest{}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on double close, got %v", err)
	}
}

func TestActivateRejectsClosedYear(t *testing.T) {
	db := setupTestDB(t)
	svc := &AcademicYearService{db: db}

	year := createTestYear(t, db, "2023-2024", models.YearStatusArchived, false, 2023)
	if _, err := svc.Close(year.ID, "tester", CloseYearRequest{Lock: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, _, err := svc.Activate(year.ID, "tester", ActivateOptions{}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected locked error activating closed year, got %v", err)
	}
	if _, _, err := svc.Activate(year.ID, "tester", ActivateOptions{Force: true}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected locked error even with force, got %v", err)
	}

	var reloaded models.AcademicYear
	if err := db.First(&reloaded, year.ID).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reloaded.Status != models.YearStatusClosed || reloaded.IsActive || !reloaded.LockData {
		t.Fatalf("closed year changed by rejected activation: %+v", reloaded)
	}
}
