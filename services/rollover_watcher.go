package services

import (
	"errors"
	"time"

	"github.com/geraldineferreras/backend-sub004/database"
	"github.com/geraldineferreras/backend-sub004/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RolloverWatcher is a nightly check that warns when the active academic
// year has ended without a finalized promotion cycle, so operators do not
// leave students stranded in an expired year.
type RolloverWatcher struct {
	db   *gorm.DB
	cron *cron.Cron
}

func NewRolloverWatcher() *RolloverWatcher {
	return &RolloverWatcher{db: database.DB}
}

// Start schedules the daily check at 06:00 server time.
func (w *RolloverWatcher) Start() {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc("0 6 * * *", w.CheckActiveYear); err != nil {
		logrus.WithError(err).Error("Failed to schedule rollover watcher")
		return
	}
	w.cron.Start()
	logrus.Info("Rollover watcher scheduled")
}

// Stop halts the scheduler.
func (w *RolloverWatcher) Stop() {
	if w.cron != nil {
		w.cron.Stop()
	}
}

// CheckActiveYear inspects the active year and logs a warning when it has
// passed its end date with no finalized promotion cycle.
func (w *RolloverWatcher) CheckActiveYear() {
	var year models.AcademicYear
	err := w.db.Where("is_active = ?", true).First(&year).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Error("Rollover check: active year lookup failed")
		}
		return
	}

	if year.EndDate == nil || year.EndDate.After(time.Now()) {
		return
	}

	var finalized int64
	err = w.db.Model(&models.PromotionCycle{}).
		Where("academic_year_id = ? AND status = ?", year.ID, models.CycleStatusFinalized).
		Count(&finalized).Error
	if err != nil {
		logrus.WithError(err).Error("Rollover check: cycle lookup failed")
		return
	}
	if finalized > 0 {
		return
	}

	logrus.WithFields(logrus.Fields{
		"academic_year": year.Name,
		"end_date":      year.EndDate.Format("2006-01-02"),
	}).Warn("Active academic year has ended without a finalized promotion cycle")

	w.db.Create(&models.ActivityLog{
		Action:     "ROLLOVER_WARNING",
		Resource:   "academic_years",
		ResourceID: year.ID,
	})
}
