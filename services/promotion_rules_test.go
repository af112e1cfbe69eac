package services

import (
	"errors"
	"testing"
	"time"

	"github.com/geraldineferreras/backend-sub004/models"
)

func TestNextYearLevel(t *testing.T) {
	tests := []struct {
		name    string
		current int
		exp     int
	}{
		{name: "first year moves up", current: 1, exp: 2},
		{name: "third year moves up", current: 3, exp: 4},
		{name: "final year stays capped", current: 4, exp: 4},
		{name: "over cap stays capped", current: 7, exp: 4},
		{name: "unset level defaults up", current: 0, exp: 1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := nextYearLevel(tc.current); got != tc.exp {
				t.Fatalf("expected %d, got %d", tc.exp, got)
			}
		})
	}
}

func TestDeriveTargetSectionName(t *testing.T) {
	tests := []struct {
		name   string
		source string
		level  int
		exp    string
	}{
		{
			name:   "substitutes embedded level",
			source: "BSIT 2A",
			level:  3,
			exp:    "BSIT 3A",
		},
		{
			name:   "substitutes level with suffix letter",
			source: "BSCS 1C",
			level:  2,
			exp:    "BSCS 2C",
		},
		{
			name:   "only first number is touched",
			source: "BSIS 1A 2024",
			level:  2,
			exp:    "BSIS 2A 2024",
		},
		{
			name:   "appends level when no number present",
			source: "Irregular",
			level:  2,
			exp:    "Irregular 2",
		},
		{
			name:   "empty source stays empty",
			source: "",
			level:  3,
			exp:    "",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveTargetSectionName(tc.source, tc.level); got != tc.exp {
				t.Fatalf("expected %q, got %q", tc.exp, got)
			}
		})
	}
}

func TestValidateYearDates(t *testing.T) {
	d := func(y int, m time.Month, day int) *time.Time {
		dt := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		return &dt
	}

	tests := []struct {
		name    string
		year    models.AcademicYear
		wantErr bool
	}{
		{
			name: "complete valid schedule",
			year: models.AcademicYear{
				StartDate:      d(2025, 8, 1),
				EndDate:        d(2026, 5, 31),
				Semester1Start: d(2025, 8, 1),
				Semester1End:   d(2025, 12, 20),
				Semester2Start: d(2026, 1, 6),
				Semester2End:   d(2026, 5, 31),
			},
		},
		{
			name: "partial dates are accepted",
			year: models.AcademicYear{
				StartDate: d(2025, 8, 1),
			},
		},
		{
			name: "year start after year end",
			year: models.AcademicYear{
				StartDate: d(2026, 6, 1),
				EndDate:   d(2026, 5, 31),
			},
			wantErr: true,
		},
		{
			name: "semester range inverted",
			year: models.AcademicYear{
				Semester1Start: d(2025, 12, 20),
				Semester1End:   d(2025, 8, 1),
			},
			wantErr: true,
		},
		{
			name: "semester 1 ends after semester 2 begins",
			year: models.AcademicYear{
				Semester1Start: d(2025, 8, 1),
				Semester1End:   d(2026, 2, 1),
				Semester2Start: d(2026, 1, 6),
				Semester2End:   d(2026, 5, 31),
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := validateYearDates(&tc.year)
			if tc.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestHasCompleteSchedule(t *testing.T) {
	d := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	full := models.AcademicYear{
		Semester1Start: &d, Semester1End: &d,
		Semester2Start: &d, Semester2End: &d,
	}
	if !hasCompleteSchedule(&full) {
		t.Fatalf("expected complete schedule")
	}

	partial := full
	partial.Semester2End = nil
	if hasCompleteSchedule(&partial) {
		t.Fatalf("expected incomplete schedule")
	}
}
