package services

import (
	"github.com/geraldineferreras/backend-sub004/models"
)

// CreateAcademicYearRequest carries the payload for creating a year.
// Only Name is required; date invariants are validated over whatever
// dates the caller supplied.
type CreateAcademicYearRequest struct {
	Name           string       `json:"name" validate:"required,max=100"`
	StartDate      *models.Date `json:"start_date"`
	EndDate        *models.Date `json:"end_date"`
	Semester1Start *models.Date `json:"semester_1_start"`
	Semester1End   *models.Date `json:"semester_1_end"`
	Semester2Start *models.Date `json:"semester_2_start"`
	Semester2End   *models.Date `json:"semester_2_end"`
	Notes          string       `json:"notes"`

	AutoCreateSections bool     `json:"auto_create_sections"`
	AutoActivate       bool     `json:"auto_activate"`
	Programs           []string `json:"programs"` // grid programs; defaults to the configured list
}

// UpdateAcademicYearRequest is the allow-list of mutable year fields.
// Nil means "leave unchanged".
type UpdateAcademicYearRequest struct {
	Name           *string      `json:"name" validate:"omitempty,max=100"`
	StartDate      *models.Date `json:"start_date"`
	EndDate        *models.Date `json:"end_date"`
	Semester1Start *models.Date `json:"semester_1_start"`
	Semester1End   *models.Date `json:"semester_1_end"`
	Semester2Start *models.Date `json:"semester_2_start"`
	Semester2End   *models.Date `json:"semester_2_end"`
	Notes          *string      `json:"notes"`
}

// ActivateOptions controls year activation.
type ActivateOptions struct {
	Force bool `json:"force"`
}

// CloseYearRequest carries the payload for closing a year.
type CloseYearRequest struct {
	Notes string `json:"notes"`
	Lock  bool   `json:"lock"`
}

// YearFilters narrows GetYears listings.
type YearFilters struct {
	Status string
	Page   int
	Limit  int
}

// SnapshotOptions controls promotion snapshot retrieval.
type SnapshotOptions struct {
	ForceRefresh bool
	Program      string
}

// UpdatePromotionStudentRequest is the partial-update payload for one
// student record in the active cycle. Nil means "leave unchanged".
type UpdatePromotionStudentRequest struct {
	EvaluationStatus       *string `json:"evaluation_status" validate:"omitempty,oneof=eligible issue"`
	DecisionStatus         *string `json:"decision_status" validate:"omitempty,oneof=pending promoted retained irregular"`
	TargetYearLevel        *int    `json:"target_year_level" validate:"omitempty,min=1,max=4"`
	TargetSectionID        *uint   `json:"target_section_id"`
	TargetSectionName      *string `json:"target_section_name"`
	TargetAcademicYearID   *uint   `json:"target_academic_year_id"`
	TargetAcademicYearName *string `json:"target_academic_year_name"`
	IssueReason            *string `json:"issue_reason"`
	DecisionNotes          *string `json:"decision_notes"`
}

// PromotionSnapshot is the snapshot response: the cycle, the partitioned
// student records and live counts.
type PromotionSnapshot struct {
	Cycle         models.PromotionCycle           `json:"cycle"`
	Eligible      []models.PromotionStudentRecord `json:"eligible"`
	Issues        []models.PromotionStudentRecord `json:"issues"`
	EligibleCount int64                           `json:"eligible_count"`
	IssueCount    int64                           `json:"issue_count"`
	PromotedCount int64                           `json:"promoted_count"`
	RetainedCount int64                           `json:"retained_count"`
}

// YearOverview decorates a year with computed summary figures; the
// summary is derived at read time, never stored.
type YearOverview struct {
	models.AcademicYear
	SectionCount int64                  `json:"section_count"`
	StudentCount int64                  `json:"student_count"`
	LatestCycle  *models.PromotionCycle `json:"latest_cycle,omitempty"`
}
