package services

import (
	"github.com/geraldineferreras/backend-sub004/database"
	"github.com/geraldineferreras/backend-sub004/models"

	"gorm.io/gorm"
)

// EnrollmentSnapshotService reads the current student-to-section
// assignments and enrollment-health signals a promotion cycle seeds from.
type EnrollmentSnapshotService struct {
	db *gorm.DB
}

func NewEnrollmentSnapshotService() *EnrollmentSnapshotService {
	return &EnrollmentSnapshotService{db: database.DB}
}

// ListEnrolledStudents returns every student account assigned to a
// section belonging to the year.
func (s *EnrollmentSnapshotService) ListEnrolledStudents(year *models.AcademicYear) ([]models.User, error) {
	sectionIDs := sectionYearScope(s.db.Model(&models.Section{}), year).Select("id")

	var students []models.User
	err := s.db.
		Where("role = ?", "student").
		Where("section_id IN (?)", sectionIDs).
		Order("id ASC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

// InactiveEnrollmentCounts returns, per student id, how many of the
// year's class enrollments are not active. A non-zero count flags the
// student with a promotion issue.
func (s *EnrollmentSnapshotService) InactiveEnrollmentCounts(year *models.AcademicYear) (map[uint]int, error) {
	type row struct {
		StudentID uint
		Total     int
	}

	var rows []row
	err := s.db.Model(&models.ClassEnrollment{}).
		Select("class_enrollments.student_id AS student_id, COUNT(*) AS total").
		Joins("JOIN class_offerings ON class_offerings.id = class_enrollments.class_id AND class_offerings.deleted_at IS NULL").
		Where("class_offerings.academic_year_id = ? OR class_offerings.academic_year = ?", year.ID, year.Name).
		Where("class_enrollments.status <> ?", "active").
		Group("class_enrollments.student_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.StudentID] = r.Total
	}
	return counts, nil
}
