package controllers

import (
	"strconv"

	"github.com/geraldineferreras/backend-sub004/database"
	"github.com/geraldineferreras/backend-sub004/models"
	"github.com/geraldineferreras/backend-sub004/services"
	"github.com/geraldineferreras/backend-sub004/utils"
	"github.com/gofiber/fiber/v2"
)

type SectionController struct {
	sections *services.SectionDirectoryService
}

func NewSectionController() *SectionController {
	return &SectionController{sections: services.NewSectionDirectoryService()}
}

func loadYear(c *fiber.Ctx) (*models.AcademicYear, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid academic year ID"})
	}
	var year models.AcademicYear
	if err := database.DB.First(&year, id).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Academic year not found"})
	}
	return &year, nil
}

// GetSections lists the non-archived sections of a year, optionally
// filtered by program and year level
func (sc *SectionController) GetSections(c *fiber.Ctx) error {
	year, err := loadYear(c)
	if year == nil {
		return err
	}

	yearLevel, _ := strconv.Atoi(c.Query("year_level", "0"))
	sections, err := sc.sections.ListSections(year, c.Query("program"), yearLevel)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"sections": sections,
		"total":    len(sections),
	})
}

// CreateSectionGrid builds the program x level x letter section grid for
// a year, skipping names that already exist
func (sc *SectionController) CreateSectionGrid(c *fiber.Ctx) error {
	year, err := loadYear(c)
	if year == nil {
		return err
	}

	var body struct {
		Programs   []string `json:"programs"`
		YearLevels []int    `json:"year_levels"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	created, err := sc.sections.CreateSections(year, body.Programs, body.YearLevels)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":       "Sections created successfully",
		"created_count": created,
	})
}

// CreateSection adds a single section to a year
func (sc *SectionController) CreateSection(c *fiber.Ctx) error {
	year, err := loadYear(c)
	if year == nil {
		return err
	}

	var body struct {
		Name      string `json:"name" validate:"required,max=100"`
		Program   string `json:"program" validate:"required,max=50"`
		YearLevel int    `json:"year_level" validate:"required,min=1,max=4"`
		Semester  string `json:"semester"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	section := models.Section{
		Name:      body.Name,
		Program:   body.Program,
		YearLevel: body.YearLevel,
		Semester:  body.Semester,
	}
	if err := sc.sections.CreateSection(year, &section); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Section created successfully",
		"section": section,
	})
}
