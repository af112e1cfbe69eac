package services

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/geraldineferreras/backend-sub004/models"
)

// MaxYearLevel is the highest year level a student can be promoted into.
const MaxYearLevel = 4

var sectionLevelPattern = regexp.MustCompile(`\d+`)

// nextYearLevel returns current+1 capped at MaxYearLevel. Graduating
// students stay at level 4; there is no level 5.
func nextYearLevel(current int) int {
	if current >= MaxYearLevel {
		return MaxYearLevel
	}
	return current + 1
}

// deriveTargetSectionName rewrites a source section name for the target
// year level by substituting the first embedded number ("BSIT 2A" with
// level 3 becomes "BSIT 3A"). Names without an embedded number get the
// level appended. Best-effort heuristic; operators can always override
// the result on the student record.
func deriveTargetSectionName(source string, targetLevel int) string {
	if source == "" {
		return ""
	}
	lvl := strconv.Itoa(targetLevel)
	if loc := sectionLevelPattern.FindStringIndex(source); loc != nil {
		return source[:loc[0]] + lvl + source[loc[1]:]
	}
	return source + " " + lvl
}

// validateYearDates checks the full date-sequence invariant over a merged
// year record: start <= end for every supplied range, and semester 1 must
// end before semester 2 begins.
func validateYearDates(year *models.AcademicYear) error {
	ranges := []struct {
		label string
		start *time.Time
		end   *time.Time
	}{
		{"academic year", year.StartDate, year.EndDate},
		{"semester 1", year.Semester1Start, year.Semester1End},
		{"semester 2", year.Semester2Start, year.Semester2End},
	}
	for _, r := range ranges {
		if r.start != nil && r.end != nil && r.start.After(*r.end) {
			return fmt.Errorf("%w: %s start date must not be after its end date", ErrValidation, r.label)
		}
	}
	if year.Semester1End != nil && year.Semester2Start != nil && year.Semester1End.After(*year.Semester2Start) {
		return fmt.Errorf("%w: semester 1 must end before semester 2 begins", ErrValidation)
	}
	return nil
}

// hasCompleteSchedule reports whether every semester boundary is set.
// Activation requires a complete schedule.
func hasCompleteSchedule(year *models.AcademicYear) bool {
	return year.Semester1Start != nil && year.Semester1End != nil &&
		year.Semester2Start != nil && year.Semester2End != nil
}
