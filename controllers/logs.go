package controllers

import (
	"io"
	"strconv"

	"github.com/geraldineferreras/backend-sub004/database"
	"github.com/geraldineferreras/backend-sub004/models"
	"github.com/geraldineferreras/backend-sub004/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type LogController struct {
	archive *services.LogArchiveService
}

func NewLogController() *LogController {
	return &LogController{archive: services.NewLogArchiveService()}
}

// GetLogs retrieves paginated activity logs with filters
func (lc *LogController) GetLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := database.DB.Model(&models.ActivityLog{}).Preload("User")

	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		query = query.Where("resource = ?", resource)
	}

	var total int64
	query.Count(&total)

	var logs []models.ActivityLog
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch logs"})
	}

	return c.JSON(fiber.Map{
		"logs": logs,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetArchives lists archived log bundles
func (lc *LogController) GetArchives(c *fiber.Ctx) error {
	archives, err := lc.archive.GetArchivedLogs()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch archives"})
	}
	return c.JSON(fiber.Map{
		"archives": archives,
		"total":    len(archives),
	})
}

// DownloadArchive streams an archived log bundle back to the caller
func (lc *LogController) DownloadArchive(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid archive ID"})
	}

	body, fileName, err := lc.archive.DownloadArchivedLogs(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Archive not found"})
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read archive"})
	}

	c.Set("Content-Type", "application/zip")
	c.Set("Content-Disposition", "attachment; filename="+fileName)
	return c.Send(data)
}

// FlushCachedLogs forces the Redis log buffer into the database
func (lc *LogController) FlushCachedLogs(c *fiber.Ctx) error {
	if err := lc.archive.FlushCachedLogsToDatabase(); err != nil {
		logrus.WithError(err).Error("Manual log flush failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to flush cached logs"})
	}
	return c.JSON(fiber.Map{"message": "Cached logs flushed successfully"})
}
