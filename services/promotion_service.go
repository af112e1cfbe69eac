package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geraldineferreras/backend-sub004/database"
	"github.com/geraldineferreras/backend-sub004/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Default notes stamped on records auto-resolved at finalization.
const (
	autoPromoteNote = "Automatically promoted at finalization"
	autoRetainNote  = "Automatically retained at finalization"
)

// PromotionService manages the promotion cycle of an academic year:
// lazy cycle creation, snapshot seeding and refresh, per-student decision
// updates and finalization.
type PromotionService struct {
	db *gorm.DB
}

func NewPromotionService() *PromotionService {
	return &PromotionService{db: database.DB}
}

// decisionCache holds the operator-entered decision fields preserved
// across a forced snapshot refresh, keyed by student id (rows are
// recreated, so row ids do not survive a re-seed).
type decisionCache struct {
	DecisionStatus string
	DecisionNotes  string
	DecisionBy     string
	DecisionAt     *time.Time
}

// GetOrCreateCycle returns the active (draft/in_progress) cycle for a
// year, falling back to the most recent cycle, creating a fresh draft
// when the year has none.
func (s *PromotionService) GetOrCreateCycle(yearID uint, actor string) (*models.PromotionCycle, error) {
	var cycle models.PromotionCycle

	err := s.db.Where("academic_year_id = ? AND status IN ?", yearID,
		[]string{models.CycleStatusDraft, models.CycleStatusInProgress}).
		Order("id DESC").
		First(&cycle).Error
	if err == nil {
		return &cycle, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Cancelled cycles are terminal and never revived.
	err = s.db.Where("academic_year_id = ? AND status <> ?", yearID, models.CycleStatusCancelled).
		Order("id DESC").
		First(&cycle).Error
	if err == nil {
		return &cycle, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cycle = models.PromotionCycle{
		AcademicYearID: yearID,
		Status:         models.CycleStatusDraft,
		InitiatedBy:    actor,
	}
	if err := s.db.Create(&cycle).Error; err != nil {
		return nil, err
	}
	return &cycle, nil
}

// GetSnapshot returns the promotion snapshot for a year, creating and
// seeding the cycle on first request. Finalized snapshots are immutable:
// a force_refresh against one is silently ignored. A force refresh on a
// live cycle re-seeds from current enrollment while preserving every
// decision an operator already recorded.
func (s *PromotionService) GetSnapshot(yearID uint, actor string, opts SnapshotOptions) (*PromotionSnapshot, error) {
	var year models.AcademicYear
	if err := s.db.First(&year, yearID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: academic year %d", ErrNotFound, yearID)
		}
		return nil, err
	}

	cycle, err := s.GetOrCreateCycle(yearID, actor)
	if err != nil {
		return nil, err
	}

	if cycle.Status != models.CycleStatusFinalized {
		var recordCount int64
		if err := s.db.Model(&models.PromotionStudentRecord{}).
			Where("promotion_id = ?", cycle.ID).Count(&recordCount).Error; err != nil {
			return nil, err
		}

		switch {
		case recordCount == 0:
			err = s.db.Transaction(func(tx *gorm.DB) error {
				return s.seedCycle(tx, cycle, &year, actor)
			})
		case opts.ForceRefresh:
			err = s.db.Transaction(func(tx *gorm.DB) error {
				return s.refreshCycle(tx, cycle, &year, actor)
			})
		}
		if err != nil {
			return nil, err
		}
	}

	return s.buildSnapshot(cycle, opts.Program)
}

// seedCycle evaluates every student enrolled in the year's sections and
// bulk-creates their promotion records. Students without a section are
// skipped entirely.
func (s *PromotionService) seedCycle(tx *gorm.DB, cycle *models.PromotionCycle, year *models.AcademicYear, actor string) error {
	snapshot := &EnrollmentSnapshotService{db: tx}

	students, err := snapshot.ListEnrolledStudents(year)
	if err != nil {
		return err
	}
	inactiveCounts, err := snapshot.InactiveEnrollmentCounts(year)
	if err != nil {
		return err
	}

	records := make([]models.PromotionStudentRecord, 0, len(students))
	eligible := 0
	issues := 0

	for _, student := range students {
		if student.SectionID == nil {
			continue
		}

		var reasons []string
		if student.Status != "active" {
			reasons = append(reasons, fmt.Sprintf("account status is %s", student.Status))
		}
		if n := inactiveCounts[student.ID]; n > 0 {
			reasons = append(reasons, fmt.Sprintf("has %d inactive class enrollment(s)", n))
		}

		evaluation := models.EvaluationEligible
		if len(reasons) > 0 {
			evaluation = models.EvaluationIssue
			issues++
		} else {
			eligible++
		}

		targetLevel := nextYearLevel(student.YearLevel)
		records = append(records, models.PromotionStudentRecord{
			PromotionID:       cycle.ID,
			StudentID:         student.ID,
			StudentName:       student.FullName,
			Program:           student.Program,
			CurrentYearLevel:  student.YearLevel,
			TargetYearLevel:   targetLevel,
			SectionID:         student.SectionID,
			SectionName:       student.SectionName,
			EvaluationStatus:  evaluation,
			DecisionStatus:    models.DecisionPending,
			IssueReason:       strings.Join(reasons, "; "),
			TargetSectionName: deriveTargetSectionName(student.SectionName, targetLevel),
		})
	}

	if len(records) > 0 {
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return err
		}
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":         models.CycleStatusInProgress,
		"eligible_count": eligible,
		"issue_count":    issues,
	}
	if cycle.InitiatedAt == nil {
		updates["initiated_at"] = now
		if cycle.InitiatedBy == "" {
			updates["initiated_by"] = actor
		}
	}
	if err := tx.Model(cycle).Updates(updates).Error; err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"academic_year": year.Name,
		"promotion":     cycle.ID,
		"eligible":      eligible,
		"issues":        issues,
	}).Info("Promotion cycle seeded")

	return nil
}

// refreshCycle discards and re-seeds a non-finalized snapshot. Decision
// fields of the old rows are cached by student id before deletion and
// replayed onto the recreated rows afterwards, so human decisions survive
// repeated regeneration.
func (s *PromotionService) refreshCycle(tx *gorm.DB, cycle *models.PromotionCycle, year *models.AcademicYear, actor string) error {
	var existing []models.PromotionStudentRecord
	if err := tx.Where("promotion_id = ?", cycle.ID).Find(&existing).Error; err != nil {
		return err
	}

	cached := make(map[uint]decisionCache, len(existing))
	for _, record := range existing {
		if record.DecisionStatus == models.DecisionPending && record.DecisionNotes == "" {
			continue
		}
		cached[record.StudentID] = decisionCache{
			DecisionStatus: record.DecisionStatus,
			DecisionNotes:  record.DecisionNotes,
			DecisionBy:     record.DecisionBy,
			DecisionAt:     record.DecisionAt,
		}
	}

	// Hard delete so the (promotion_id, student_id) unique index does not
	// collide with the recreated rows.
	if err := tx.Unscoped().Where("promotion_id = ?", cycle.ID).
		Delete(&models.PromotionStudentRecord{}).Error; err != nil {
		return err
	}

	if err := s.seedCycle(tx, cycle, year, actor); err != nil {
		return err
	}

	for studentID, decision := range cached {
		err := tx.Model(&models.PromotionStudentRecord{}).
			Where("promotion_id = ? AND student_id = ?", cycle.ID, studentID).
			Updates(map[string]interface{}{
				"decision_status": decision.DecisionStatus,
				"decision_notes":  decision.DecisionNotes,
				"decision_by":     decision.DecisionBy,
				"decision_at":     decision.DecisionAt,
			}).Error
		if err != nil {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"promotion": cycle.ID,
		"restored":  len(cached),
	}).Info("Promotion snapshot refreshed")

	return nil
}

// buildSnapshot assembles the partitioned snapshot plus live counts for
// a cycle. The program filter narrows the returned partitions only; the
// counts always cover the whole cycle.
func (s *PromotionService) buildSnapshot(cycle *models.PromotionCycle, program string) (*PromotionSnapshot, error) {
	// Reload for fresh counters after seeding or finalization.
	var fresh models.PromotionCycle
	if err := s.db.First(&fresh, cycle.ID).Error; err != nil {
		return nil, err
	}

	query := s.db.Where("promotion_id = ?", fresh.ID)
	if program != "" {
		query = query.Where("program = ?", program)
	}
	var records []models.PromotionStudentRecord
	if err := query.Order("student_name ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	snapshot := &PromotionSnapshot{Cycle: fresh}
	for _, record := range records {
		if record.EvaluationStatus == models.EvaluationIssue {
			snapshot.Issues = append(snapshot.Issues, record)
		} else {
			snapshot.Eligible = append(snapshot.Eligible, record)
		}
	}

	counts := []struct {
		column string
		value  string
		dest   *int64
	}{
		{"evaluation_status", models.EvaluationEligible, &snapshot.EligibleCount},
		{"evaluation_status", models.EvaluationIssue, &snapshot.IssueCount},
		{"decision_status", models.DecisionPromoted, &snapshot.PromotedCount},
		{"decision_status", models.DecisionRetained, &snapshot.RetainedCount},
	}
	for _, c := range counts {
		err := s.db.Model(&models.PromotionStudentRecord{}).
			Where("promotion_id = ? AND "+c.column+" = ?", fresh.ID, c.value).
			Count(c.dest).Error
		if err != nil {
			return nil, err
		}
	}

	return snapshot, nil
}

// UpdateStudent applies a partial update to one student record of the
// year's active cycle. Setting a target year level without an explicit
// target section name recomputes the name from the source section.
func (s *PromotionService) UpdateStudent(yearID, studentID uint, actor string, req UpdatePromotionStudentRequest) (*models.PromotionStudentRecord, error) {
	var cycle models.PromotionCycle
	err := s.db.Where("academic_year_id = ? AND status IN ?", yearID,
		[]string{models.CycleStatusDraft, models.CycleStatusInProgress}).
		Order("id DESC").
		First(&cycle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no active promotion cycle for year %d", ErrNotFound, yearID)
		}
		return nil, err
	}

	var record models.PromotionStudentRecord
	err = s.db.Where("promotion_id = ? AND student_id = ?", cycle.ID, studentID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: student %d has no record in promotion cycle %d", ErrNotFound, studentID, cycle.ID)
		}
		return nil, err
	}

	updates := map[string]interface{}{}

	if req.EvaluationStatus != nil {
		updates["evaluation_status"] = *req.EvaluationStatus
	}
	if req.DecisionStatus != nil {
		now := time.Now()
		updates["decision_status"] = *req.DecisionStatus
		updates["decision_by"] = actor
		updates["decision_at"] = now
	}
	if req.TargetYearLevel != nil {
		updates["target_year_level"] = *req.TargetYearLevel
		if req.TargetSectionName == nil {
			updates["target_section_name"] = deriveTargetSectionName(record.SectionName, *req.TargetYearLevel)
		}
	}
	if req.TargetSectionID != nil {
		updates["target_section_id"] = *req.TargetSectionID
	}
	if req.TargetSectionName != nil {
		updates["target_section_name"] = *req.TargetSectionName
	}
	if req.TargetAcademicYearID != nil {
		updates["target_academic_year_id"] = *req.TargetAcademicYearID
	}
	if req.TargetAcademicYearName != nil {
		updates["target_academic_year_name"] = *req.TargetAcademicYearName
	}
	if req.IssueReason != nil {
		updates["issue_reason"] = *req.IssueReason
	}
	if req.DecisionNotes != nil {
		updates["decision_notes"] = *req.DecisionNotes
	}

	if len(updates) == 0 {
		return nil, ErrNothingToUpdate
	}

	if err := s.db.Model(&record).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := s.db.First(&record, record.ID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Finalize freezes the year's promotion cycle: every still-pending record
// is auto-resolved (eligible to promoted, issue to retained), counters
// are recomputed and stored, and the cycle becomes finalized. Calling it
// again on a finalized cycle is a no-op success. When the system's active
// year is a later year than this one, a migration pass into it runs
// immediately, covering activation that happened before finalization.
func (s *PromotionService) Finalize(yearID uint, actor, notes string) (*models.PromotionCycle, *MigrationResult, error) {
	var year models.AcademicYear
	if err := s.db.First(&year, yearID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: academic year %d", ErrNotFound, yearID)
		}
		return nil, nil, err
	}

	var cycle models.PromotionCycle
	err := s.db.Where("academic_year_id = ? AND status IN ?", yearID,
		[]string{models.CycleStatusDraft, models.CycleStatusInProgress}).
		Order("id DESC").
		First(&cycle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Where("academic_year_id = ? AND status <> ?", yearID, models.CycleStatusCancelled).
			Order("id DESC").
			First(&cycle).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: no promotion cycle for year %d", ErrNotFound, yearID)
		}
		return nil, nil, err
	}

	// Idempotent: a finalized cycle is returned as-is without re-processing.
	if cycle.Status == models.CycleStatusFinalized {
		return &cycle, nil, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		autoResolve := []struct {
			evaluation string
			decision   string
			note       string
		}{
			{models.EvaluationEligible, models.DecisionPromoted, autoPromoteNote},
			{models.EvaluationIssue, models.DecisionRetained, autoRetainNote},
		}
		for _, rule := range autoResolve {
			pending := tx.Model(&models.PromotionStudentRecord{}).
				Where("promotion_id = ? AND decision_status = ? AND evaluation_status = ?",
					cycle.ID, models.DecisionPending, rule.evaluation)

			// Default note only where the operator left none.
			err := tx.Model(&models.PromotionStudentRecord{}).
				Where("promotion_id = ? AND decision_status = ? AND evaluation_status = ? AND decision_notes = ?",
					cycle.ID, models.DecisionPending, rule.evaluation, "").
				Update("decision_notes", rule.note).Error
			if err != nil {
				return err
			}

			err = pending.Updates(map[string]interface{}{
				"decision_status": rule.decision,
				"decision_by":     actor,
				"decision_at":     now,
			}).Error
			if err != nil {
				return err
			}
		}

		counters := map[string]interface{}{
			"status":       models.CycleStatusFinalized,
			"finalized_by": actor,
			"finalized_at": now,
		}
		if notes != "" {
			counters["notes"] = notes
		}

		counts := []struct {
			column string
			value  string
			field  string
		}{
			{"evaluation_status", models.EvaluationEligible, "eligible_count"},
			{"evaluation_status", models.EvaluationIssue, "issue_count"},
			{"decision_status", models.DecisionPromoted, "promoted_count"},
			{"decision_status", models.DecisionRetained, "retained_count"},
		}
		for _, c := range counts {
			var n int64
			err := tx.Model(&models.PromotionStudentRecord{}).
				Where("promotion_id = ? AND "+c.column+" = ?", cycle.ID, c.value).
				Count(&n).Error
			if err != nil {
				return err
			}
			counters[c.field] = n
		}

		return tx.Model(&cycle).Updates(counters).Error
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.db.First(&cycle, cycle.ID).Error; err != nil {
		return nil, nil, err
	}

	// If a later year was activated before this cycle was finalized, the
	// promoted students still need to move into it.
	migration := s.lateMigrationPass(&year)

	return &cycle, migration, nil
}

// lateMigrationPass migrates into the currently active year when that
// year started after the finalized one. Failures here do not unwind the
// finalization; they are reported for the operator to resolve and retry.
func (s *PromotionService) lateMigrationPass(source *models.AcademicYear) *MigrationResult {
	var active models.AcademicYear
	err := s.db.Where("is_active = ? AND id <> ?", true, source.ID).First(&active).Error
	if err != nil {
		return nil
	}
	if source.StartDate == nil || active.StartDate == nil || !active.StartDate.After(*source.StartDate) {
		return nil
	}

	var result *MigrationResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		r, err := NewMigrationService().MovePromotedStudents(tx, source, &active)
		if err != nil {
			return err
		}
		result = r
		if len(r.Failures) > 0 {
			return &MigrationError{Failures: r.Failures}
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"source_year": source.Name,
			"target_year": active.Name,
		}).Warn("Post-finalization migration pass failed")
	}
	return result
}
