package controllers

import (
	"github.com/geraldineferreras/backend-sub004/middleware"
	"github.com/geraldineferreras/backend-sub004/services"
	"github.com/geraldineferreras/backend-sub004/utils"
	"github.com/gofiber/fiber/v2"
)

type PromotionController struct {
	promotions *services.PromotionService
}

func NewPromotionController() *PromotionController {
	return &PromotionController{promotions: services.NewPromotionService()}
}

// GetSnapshot returns the promotion snapshot for a year, seeding a new
// cycle on first call. Pass force_refresh=true to rebuild the roster
// while preserving decisions already taken.
func (pc *PromotionController) GetSnapshot(c *fiber.Ctx) error {
	yearID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid academic year ID"})
	}

	opts := services.SnapshotOptions{
		ForceRefresh: c.QueryBool("force_refresh", false),
		Program:      c.Query("program"),
	}

	snapshot, err := pc.promotions.GetSnapshot(yearID, middleware.CurrentActor(c), opts)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(snapshot)
}

// UpdateStudent applies a partial update to one student record in the
// active cycle
func (pc *PromotionController) UpdateStudent(c *fiber.Ctx) error {
	yearID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid academic year ID"})
	}
	studentID, err := parseIDParam(c, "studentId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid student ID"})
	}

	var req services.UpdatePromotionStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	record, err := pc.promotions.UpdateStudent(yearID, studentID, middleware.CurrentActor(c), req)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Promotion record updated successfully",
		"record":  record,
	})
}

// Finalize closes the active cycle: pending students are auto-resolved
// from their evaluation status and the decisions become permanent
func (pc *PromotionController) Finalize(c *fiber.Ctx) error {
	yearID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid academic year ID"})
	}

	var body struct {
		Notes string `json:"notes"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	cycle, migration, err := pc.promotions.Finalize(yearID, middleware.CurrentActor(c), body.Notes)
	if err != nil {
		return serviceError(c, err)
	}

	response := fiber.Map{
		"message": "Promotion cycle finalized successfully",
		"cycle":   cycle,
	}
	if migration != nil {
		response["migration"] = migration
	}
	return c.JSON(response)
}
