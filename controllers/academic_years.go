package controllers

import (
	"strconv"

	"github.com/geraldineferreras/backend-sub004/middleware"
	"github.com/geraldineferreras/backend-sub004/services"
	"github.com/geraldineferreras/backend-sub004/utils"
	"github.com/gofiber/fiber/v2"
)

type AcademicYearController struct {
	years *services.AcademicYearService
}

func NewAcademicYearController() *AcademicYearController {
	return &AcademicYearController{years: services.NewAcademicYearService()}
}

// GetAcademicYears returns academic years, newest first, with pagination
func (ac *AcademicYearController) GetAcademicYears(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	filters := services.YearFilters{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	}

	years, total, err := ac.years.GetYears(filters)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"academic_years": years,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetActiveAcademicYear returns the currently active year
func (ac *AcademicYearController) GetActiveAcademicYear(c *fiber.Ctx) error {
	overview, err := ac.years.GetActive()
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"academic_year": overview})
}

// GetAcademicYear returns a specific year by ID with summary figures
func (ac *AcademicYearController) GetAcademicYear(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid academic year ID"})
	}

	overview, err := ac.years.GetYear(id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"academic_year": overview})
}

// CreateAcademicYear creates a new draft year, optionally building its
// section grid and activating it in the same request
func (ac *AcademicYearController) CreateAcademicYear(c *fiber.Ctx) error {
	var req services.CreateAcademicYearRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	year, migration, err := ac.years.Create(req, middleware.CurrentActor(c))
	if err != nil {
		return serviceError(c, err)
	}

	response := fiber.Map{
		"message":       "Academic year created successfully",
		"academic_year": year,
	}
	if migration != nil {
		response["migration"] = migration
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

// UpdateAcademicYear applies a partial update to a year
func (ac *AcademicYearController) UpdateAcademicYear(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid academic year ID"})
	}

	var req services.UpdateAcademicYearRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	year, err := ac.years.Update(id, req, middleware.CurrentActor(c))
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":       "Academic year updated successfully",
		"academic_year": year,
	})
}

// ActivateAcademicYear promotes a year to active, archiving the previous
// active year and migrating its promoted students in one transaction
func (ac *AcademicYearController) ActivateAcademicYear(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid academic year ID"})
	}

	var opts services.ActivateOptions
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&opts); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	year, migration, err := ac.years.Activate(id, middleware.CurrentActor(c), opts)
	if err != nil {
		return serviceError(c, err)
	}

	response := fiber.Map{
		"message":       "Academic year activated successfully",
		"academic_year": year,
	}
	if migration != nil {
		response["migration"] = migration
	}
	return c.JSON(response)
}

// CloseAcademicYear closes a year, optionally locking its data
func (ac *AcademicYearController) CloseAcademicYear(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid academic year ID"})
	}

	var req services.CloseYearRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	year, err := ac.years.Close(id, middleware.CurrentActor(c), req)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":       "Academic year closed successfully",
		"academic_year": year,
	})
}
