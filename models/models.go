package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// Date accepts YYYY-MM-DD payloads in addition to RFC3339
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` || s == "" {
		d.Time = time.Time{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, d.Time.Format("2006-01-02"))), nil
}

func (d *Date) Scan(value interface{}) error {
	if value == nil {
		d.Time = time.Time{}
		return nil
	}
	if t, ok := value.(time.Time); ok {
		d.Time = t
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", value)
}

func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Academic year lifecycle statuses
const (
	YearStatusDraft    = "draft"
	YearStatusActive   = "active"
	YearStatusArchived = "archived"
	YearStatusClosed   = "closed"
)

// Promotion cycle statuses
const (
	CycleStatusDraft      = "draft"
	CycleStatusInProgress = "in_progress"
	CycleStatusFinalized  = "finalized"
	CycleStatusCancelled  = "cancelled"
)

// Per-student evaluation outcomes during seeding
const (
	EvaluationEligible = "eligible"
	EvaluationIssue    = "issue"
)

// Per-student promotion decisions
const (
	DecisionPending   = "pending"
	DecisionPromoted  = "promoted"
	DecisionRetained  = "retained"
	DecisionIrregular = "irregular"
)

// AcademicYear is the top-level scheduling entity. At most one year is
// active system-wide; a locked or closed year is immutable except for
// status-transition fields.
type AcademicYear struct {
	BaseModel
	Name           string     `json:"name" gorm:"size:100;not null;uniqueIndex"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	Semester1Start *time.Time `json:"semester_1_start"`
	Semester1End   *time.Time `json:"semester_1_end"`
	Semester2Start *time.Time `json:"semester_2_start"`
	Semester2End   *time.Time `json:"semester_2_end"`
	Status         string     `json:"status" gorm:"size:20;not null;default:'draft'"` // draft, active, archived, closed
	IsActive       bool       `json:"is_active" gorm:"default:false;index"`
	LockData       bool       `json:"lock_data" gorm:"default:false"`
	ActivatedAt    *time.Time `json:"activated_at"`
	ArchivedAt     *time.Time `json:"archived_at"`
	LockedAt       *time.Time `json:"locked_at"`
	ClosedAt       *time.Time `json:"closed_at"`
	Notes          string     `json:"notes" gorm:"type:text"`
	CreatedBy      string     `json:"created_by" gorm:"size:100"`
	UpdatedBy      string     `json:"updated_by" gorm:"size:100"`
}

// PromotionCycle is one evaluation pass over all students enrolled in an
// academic year. At most one cycle per year is draft/in_progress at a time.
type PromotionCycle struct {
	BaseModel
	AcademicYearID uint       `json:"academic_year_id" gorm:"not null;index"`
	Status         string     `json:"status" gorm:"size:20;not null;default:'draft'"` // draft, in_progress, finalized, cancelled
	InitiatedBy    string     `json:"initiated_by" gorm:"size:100"`
	InitiatedAt    *time.Time `json:"initiated_at"`
	FinalizedBy    string     `json:"finalized_by" gorm:"size:100"`
	FinalizedAt    *time.Time `json:"finalized_at"`
	EligibleCount  int        `json:"eligible_count"`
	IssueCount     int        `json:"issue_count"`
	PromotedCount  int        `json:"promoted_count"`
	RetainedCount  int        `json:"retained_count"`
	Notes          string     `json:"notes" gorm:"type:text"`

	// Relationships
	AcademicYear AcademicYear `json:"academic_year,omitempty" gorm:"foreignKey:AcademicYearID"`
}

// PromotionStudentRecord is the per-student row of a promotion cycle.
// Rows are bulk-created during seeding and hard-deleted on a forced
// re-seed, so (promotion_id, student_id) stays unique across refreshes.
type PromotionStudentRecord struct {
	BaseModel
	PromotionID            uint       `json:"promotion_id" gorm:"not null;uniqueIndex:idx_promotion_student"`
	StudentID              uint       `json:"student_id" gorm:"not null;uniqueIndex:idx_promotion_student"`
	StudentName            string     `json:"student_name" gorm:"size:200"`
	Program                string     `json:"program" gorm:"size:100"`
	CurrentYearLevel       int        `json:"current_year_level"`
	TargetYearLevel        int        `json:"target_year_level"`
	SectionID              *uint      `json:"section_id"`
	SectionName            string     `json:"section_name" gorm:"size:100"`
	EvaluationStatus       string     `json:"evaluation_status" gorm:"size:20;not null;default:'eligible'"` // eligible, issue
	DecisionStatus         string     `json:"decision_status" gorm:"size:20;not null;default:'pending'"`    // pending, promoted, retained, irregular
	IssueReason            string     `json:"issue_reason" gorm:"type:text"`
	DecisionNotes          string     `json:"decision_notes" gorm:"type:text"`
	DecisionBy             string     `json:"decision_by" gorm:"size:100"`
	DecisionAt             *time.Time `json:"decision_at"`
	TargetSectionID        *uint      `json:"target_section_id"`
	TargetSectionName      string     `json:"target_section_name" gorm:"size:100"`
	TargetAcademicYearID   *uint      `json:"target_academic_year_id"`
	TargetAcademicYearName string     `json:"target_academic_year_name" gorm:"size:100"`

	// Relationships
	Promotion PromotionCycle `json:"promotion,omitempty" gorm:"foreignKey:PromotionID"`
}

// Section belongs to a year when AcademicYearID matches or, for rows that
// predate the foreign key, when the legacy AcademicYear text matches the
// year's name.
type Section struct {
	BaseModel
	Name           string `json:"name" gorm:"size:100;not null;index"`
	Program        string `json:"program" gorm:"size:100;index"`
	YearLevel      int    `json:"year_level" gorm:"index"`
	Semester       string `json:"semester" gorm:"size:20"`
	AcademicYear   string `json:"academic_year" gorm:"size:100;index"` // legacy name scoping
	AcademicYearID *uint  `json:"academic_year_id" gorm:"index"`
	Archived       bool   `json:"archived" gorm:"default:false"`
}

// User model. Student accounts carry their current program, year level
// and section assignment; migration repoints these at the new year.
type User struct {
	BaseModel
	Username    string `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password    string `json:"-" gorm:"size:255;not null"`
	Email       string `json:"email" gorm:"size:255"`
	FullName    string `json:"full_name" gorm:"size:200"`
	Role        string `json:"role" gorm:"size:20;not null;default:'student'"`  // admin, teacher, student
	Status      string `json:"status" gorm:"size:20;not null;default:'active'"` // active, inactive, suspended
	Program     string `json:"program" gorm:"size:100"`
	YearLevel   int    `json:"year_level"`
	SectionID   *uint  `json:"section_id" gorm:"index"`
	SectionName string `json:"section_name" gorm:"size:100"`

	// Relationships
	Section *Section `json:"section,omitempty" gorm:"foreignKey:SectionID"`
}

// ClassOffering is a subject class taught within an academic year.
type ClassOffering struct {
	BaseModel
	Name           string `json:"name" gorm:"size:200;not null"`
	Subject        string `json:"subject" gorm:"size:100"`
	SectionID      *uint  `json:"section_id" gorm:"index"`
	TeacherID      *uint  `json:"teacher_id"`
	AcademicYear   string `json:"academic_year" gorm:"size:100;index"` // legacy name scoping
	AcademicYearID *uint  `json:"academic_year_id" gorm:"index"`

	// Relationships
	Section *Section `json:"section,omitempty" gorm:"foreignKey:SectionID"`
}

// ClassEnrollment links a student to a class offering. Enrollments that
// are not active feed the promotion issue detection.
type ClassEnrollment struct {
	BaseModel
	ClassID   uint   `json:"class_id" gorm:"not null;index"`
	StudentID uint   `json:"student_id" gorm:"not null;index"`
	Status    string `json:"status" gorm:"size:20;not null;default:'active'"` // active, inactive, dropped

	// Relationships
	Class   ClassOffering `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	Student User          `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// LogArchive model for tracking archived logs
type LogArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending'"` // pending, completed, failed
	Error       string    `json:"error" gorm:"type:text"`
}
