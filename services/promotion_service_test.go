package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/geraldineferreras/backend-sub004/models"
	"gorm.io/gorm"
)

func TestGetSnapshotSeedsCycle(t *testing.T) {
	db := setupTestDB(t)
	svc := &PromotionService{db: db}

	year := createTestYear(t, db, "2025-2026", models.YearStatusActive, true, 2025)
	section := createTestSection(t, db, year, "BSIT 1A", "BSIT", 1)

	healthy := createTestStudent(t, db, "Alice Navarro", "active", section)
	suspended := createTestStudent(t, db, "Bruno Reyes", "suspended", section)
	dropped := createTestStudent(t, db, "Carla Diaz", "active", section)

	// One dropped class enrollment flags the third student.
	offering := models.ClassOffering{
		Name:           "Programming 1",
		SectionID:      &section.ID,
		AcademicYear:   year.Name,
		AcademicYearID: &year.ID,
	}
	if err := db.Create(&offering).Error; err != nil {
		t.Fatalf("failed to create offering: %v", err)
	}
	enrollment := models.ClassEnrollment{ClassID: offering.ID, StudentID: dropped.ID, Status: "dropped"}
	if err := db.Create(&enrollment).Error; err != nil {
		t.Fatalf("failed to create enrollment: %v", err)
	}

	snapshot, err := svc.GetSnapshot(year.ID, "tester", SnapshotOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.Cycle.Status != models.CycleStatusInProgress {
		t.Fatalf("expected in_progress cycle, got %s", snapshot.Cycle.Status)
	}
	if snapshot.EligibleCount != 1 || snapshot.IssueCount != 2 {
		t.Fatalf("expected 1 eligible / 2 issues, got %d / %d", snapshot.EligibleCount, snapshot.IssueCount)
	}
	if len(snapshot.Eligible) != 1 || snapshot.Eligible[0].StudentID != healthy.ID {
		t.Fatalf("expected the healthy student in the eligible partition")
	}

	reasons := map[uint]string{}
	for _, record := range snapshot.Issues {
		reasons[record.StudentID] = record.IssueReason
	}
	if !strings.Contains(reasons[suspended.ID], "account status is suspended") {
		t.Fatalf("expected status reason, got %q", reasons[suspended.ID])
	}
	if !strings.Contains(reasons[dropped.ID], "1 inactive class enrollment") {
		t.Fatalf("expected enrollment reason, got %q", reasons[dropped.ID])
	}

	// Seeding must derive the next-level target section name.
	if snapshot.Eligible[0].TargetSectionName != "BSIT 2A" || snapshot.Eligible[0].TargetYearLevel != 2 {
		t.Fatalf("expected derived target BSIT 2A level 2, got %q level %d",
			snapshot.Eligible[0].TargetSectionName, snapshot.Eligible[0].TargetYearLevel)
	}
}

func TestForceRefreshPreservesDecisions(t *testing.T) {
	db := setupTestDB(t)
	svc := &PromotionService{db: db}

	year := createTestYear(t, db, "2025-2026", models.YearStatusActive, true, 2025)
	section := createTestSection(t, db, year, "BSCS 2B", "BSCS", 2)

	decided := createTestStudent(t, db, "Diego Santos", "active", section)
	createTestStudent(t, db, "Elena Cruz", "active", section)

	if _, err := svc.GetSnapshot(year.ID, "tester", SnapshotOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decision := models.DecisionIrregular
	notes := "needs a reduced load"
	_, err := svc.UpdateStudent(year.ID, decided.ID, "registrar", UpdatePromotionStudentRequest{
		DecisionStatus: &decision,
		DecisionNotes:  &notes,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A late enrollee shows up only after a forced refresh.
	late := createTestStudent(t, db, "Felix Ramos", "active", section)

	snapshot, err := svc.GetSnapshot(year.ID, "tester", SnapshotOptions{ForceRefresh: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(snapshot.Eligible) + len(snapshot.Issues); got != 3 {
		t.Fatalf("expected 3 records after refresh, got %d", got)
	}

	var preserved models.PromotionStudentRecord
	err = db.Where("promotion_id = ? AND student_id = ?", snapshot.Cycle.ID, decided.ID).First(&preserved).Error
	if err != nil {
		t.Fatalf("failed to load refreshed record: %v", err)
	}
	if preserved.DecisionStatus != models.DecisionIrregular || preserved.DecisionNotes != notes {
		t.Fatalf("expected decision to survive refresh, got %s %q", preserved.DecisionStatus, preserved.DecisionNotes)
	}
	if preserved.DecisionBy != "registrar" {
		t.Fatalf("expected decision author to survive refresh, got %q", preserved.DecisionBy)
	}

	var fresh models.PromotionStudentRecord
	err = db.Where("promotion_id = ? AND student_id = ?", snapshot.Cycle.ID, late.ID).First(&fresh).Error
	if err != nil {
		t.Fatalf("expected late enrollee in refreshed snapshot: %v", err)
	}
	if fresh.DecisionStatus != models.DecisionPending {
		t.Fatalf("expected fresh record pending, got %s", fresh.DecisionStatus)
	}
}

func TestUpdateStudentRecomputesTargetSection(t *testing.T) {
	db := setupTestDB(t)
	svc := &PromotionService{db: db}

	year := createTestYear(t, db, "2025-2026", models.YearStatusActive, true, 2025)
	section := createTestSection(t, db, year, "BSIT 1A", "BSIT", 1)
	student := createTestStudent(t, db, "Alice Navarro", "active", section)

	if _, err := svc.GetSnapshot(year.ID, "tester", SnapshotOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Retaining at the same level recomputes the target name.
	level := 1
	record, err := svc.UpdateStudent(year.ID, student.ID, "registrar", UpdatePromotionStudentRequest{
		TargetYearLevel: &level,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.TargetSectionName != "BSIT 1A" || record.TargetYearLevel != 1 {
		t.Fatalf("expected recomputed target BSIT 1A, got %q level %d", record.TargetSectionName, record.TargetYearLevel)
	}

	// An explicit target name wins over recomputation.
	level = 2
	override := "BSIT 2C"
	record, err = svc.UpdateStudent(year.ID, student.ID, "registrar", UpdatePromotionStudentRequest{
		TargetYearLevel:   &level,
		TargetSectionName: &override,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.TargetSectionName != "BSIT 2C" {
		t.Fatalf("expected explicit target name, got %q", record.TargetSectionName)
	}

	if _, err := svc.UpdateStudent(year.ID, student.ID, "registrar", UpdatePromotionStudentRequest{}); !errors.Is(err, ErrNothingToUpdate) {
		t.Fatalf("expected nothing-to-update error, got %v", err)
	}
}

func TestCancelledCycleIsNotRevived(t *testing.T) {
	db := setupTestDB(t)
	svc := &PromotionService{db: db}

	year := createTestYear(t, db, "2025-2026", models.YearStatusActive, true, 2025)
	cancelled := models.PromotionCycle{AcademicYearID: year.ID, Status: models.CycleStatusCancelled}
	if err := db.Create(&cancelled).Error; err != nil {
		t.Fatalf("failed to create cycle: %v", err)
	}

	cycle, err := svc.GetOrCreateCycle(year.ID, "tester")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cycle.ID == cancelled.ID {
		t.Fatalf("expected a fresh cycle, got the cancelled one back")
	}
	if cycle.Status != models.CycleStatusDraft {
		t.Fatalf("expected new draft cycle, got %s", cycle.Status)
	}
}

func TestUpdateStudentWithoutActiveCycle(t *testing.T) {
	db := setupTestDB(t)
	svc := &PromotionService{db: db}

	year := createTestYear(t, db, "2025-2026", models.YearStatusActive, true, 2025)
	decision := models.DecisionPromoted
	_, err := svc.UpdateStudent(year.ID, 42, "tester", UpdatePromotionStudentRequest{DecisionStatus: &decision})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestFinalizeAutoResolvesPending(t *testing.T) {
	db := setupTestDB(t)
	svc := &PromotionService{db: db}

	year := createTestYear(t, db, "2025-2026", models.YearStatusActive, true, 2025)
	section := createTestSection(t, db, year, "BSIT 3A", "BSIT", 3)

	eligible := createTestStudent(t, db, "Alice Navarro", "active", section)
	flagged := createTestStudent(t, db, "Bruno Reyes", "suspended", section)
	decided := createTestStudent(t, db, "Carla Diaz", "active", section)

	if _, err := svc.GetSnapshot(year.ID, "tester", SnapshotOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Operator retains one eligible student explicitly.
	retain := models.DecisionRetained
	reason := "failed two subjects"
	if _, err := svc.UpdateStudent(year.ID, decided.ID, "registrar", UpdatePromotionStudentRequest{
		DecisionStatus: &retain,
		DecisionNotes:  &reason,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cycle, _, err := svc.Finalize(year.ID, "registrar", "end of year")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cycle.Status != models.CycleStatusFinalized || cycle.FinalizedBy != "registrar" || cycle.FinalizedAt == nil {
		t.Fatalf("expected finalized cycle, got %+v", cycle)
	}
	if cycle.PromotedCount != 1 || cycle.RetainedCount != 2 {
		t.Fatalf("expected 1 promoted / 2 retained, got %d / %d", cycle.PromotedCount, cycle.RetainedCount)
	}

	check := func(studentID uint, wantDecision, wantNotes string) {
		t.Helper()
		var record models.PromotionStudentRecord
		err := db.Where("promotion_id = ? AND student_id = ?", cycle.ID, studentID).First(&record).Error
		if err != nil {
			t.Fatalf("failed to load record: %v", err)
		}
		if record.DecisionStatus != wantDecision {
			t.Fatalf("expected decision %s, got %s", wantDecision, record.DecisionStatus)
		}
		if wantNotes != "" && record.DecisionNotes != wantNotes {
			t.Fatalf("expected notes %q, got %q", wantNotes, record.DecisionNotes)
		}
	}
	check(eligible.ID, models.DecisionPromoted, autoPromoteNote)
	check(flagged.ID, models.DecisionRetained, autoRetainNote)
	check(decided.ID, models.DecisionRetained, reason)

	// Finalizing again is a no-op success.
	again, migration, err := svc.Finalize(year.ID, "someone-else", "")
	if err != nil {
		t.Fatalf("unexpected error on repeat finalize: %v", err)
	}
	if migration != nil {
		t.Fatalf("expected no migration on repeat finalize")
	}
	if again.FinalizedBy != "registrar" {
		t.Fatalf("expected original finalizer preserved, got %q", again.FinalizedBy)
	}
}

func TestFinalizeRunsLateMigration(t *testing.T) {
	db := setupTestDB(t)
	years := &AcademicYearService{db: db}
	promotions := &PromotionService{db: db}

	source := createTestYear(t, db, "2024-2025", models.YearStatusActive, true, 2024)
	target := createTestYear(t, db, "2025-2026", models.YearStatusDraft, false, 2025)

	sourceSection := createTestSection(t, db, source, "BSIT 1A", "BSIT", 1)
	targetSection := createTestSection(t, db, target, "BSIT 2A", "BSIT", 2)

	student := createTestStudent(t, db, "Alice Navarro", "active", sourceSection)

	if _, err := promotions.GetSnapshot(source.ID, "tester", SnapshotOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The next year goes live before the old year's cycle is finalized.
	// No finalized cycle exists yet, so activation moves nobody.
	if _, migration, err := years.Activate(target.ID, "tester", ActivateOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if migration.MovedCount != 0 {
		t.Fatalf("expected no students moved before finalization, got %d", migration.MovedCount)
	}

	_, migration, err := promotions.Finalize(source.ID, "registrar", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if migration == nil || migration.MovedCount != 1 {
		t.Fatalf("expected late migration to move one student, got %+v", migration)
	}

	var moved models.User
	if err := db.First(&moved, student.ID).Error; err != nil {
		t.Fatalf("failed to reload student: %v", err)
	}
	if moved.SectionID == nil || *moved.SectionID != targetSection.ID || moved.YearLevel != 2 {
		t.Fatalf("expected student moved to BSIT 2A level 2, got %s level %d", moved.SectionName, moved.YearLevel)
	}
}

func TestMigrationFallsBackToFirstSection(t *testing.T) {
	db := setupTestDB(t)

	source := createTestYear(t, db, "2024-2025", models.YearStatusArchived, false, 2024)
	target := createTestYear(t, db, "2025-2026", models.YearStatusActive, true, 2025)

	sourceSection := createTestSection(t, db, source, "BSIT 2D", "BSIT", 2)
	// No "BSIT 3D" in the target year; the alphabetically-first section
	// of the program and level must catch the student.
	fallback := createTestSection(t, db, target, "BSIT 3A", "BSIT", 3)
	createTestSection(t, db, target, "BSIT 3B", "BSIT", 3)

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

	var result *MigrationResult
	err := db.Transaction(func(tx *gorm.DB) error {
		r, err := NewMigrationService().MovePromotedStudents(tx, source, target)
		result = r
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MovedCount != 1 || len(result.Failures) != 0 {
		t.Fatalf("expected clean single move, got %+v", result)
	}

	var moved models.User
	if err := db.First(&moved, student.ID).Error; err != nil {
		t.Fatalf("failed to reload student: %v", err)
	}
	if moved.SectionID == nil || *moved.SectionID != fallback.ID {
		t.Fatalf("expected fallback section %d, got %v", fallback.ID, moved.SectionID)
	}
}
