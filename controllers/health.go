package controllers

import (
	"context"
	"time"

	"github.com/geraldineferreras/backend-sub004/database"
	"github.com/gofiber/fiber/v2"
)

type HealthController struct{}

// GetHealthStatus reports database and redis connectivity
func (hc *HealthController) GetHealthStatus(c *fiber.Ctx) error {
	status := fiber.StatusOK
	checks := fiber.Map{}

	dbStatus := "ok"
	if sqlDB, err := database.DB.DB(); err != nil {
		dbStatus = "error"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error"
	}
	if dbStatus != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	checks["database"] = dbStatus

	redisStatus := "disabled"
	if rc := database.GetRedisClient(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Ping(ctx).Err(); err != nil {
			redisStatus = "error"
		} else {
			redisStatus = "ok"
		}
	}
	checks["redis"] = redisStatus

	overall := "healthy"
	if status != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":    overall,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
