package controllers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/geraldineferreras/backend-sub004/database"
	"github.com/geraldineferreras/backend-sub004/models"
	"github.com/geraldineferreras/backend-sub004/services"
	"github.com/geraldineferreras/backend-sub004/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type StudentController struct {
	enrollment *services.EnrollmentSnapshotService
}

func NewStudentController() *StudentController {
	return &StudentController{enrollment: services.NewEnrollmentSnapshotService()}
}

// GetStudents lists the active students enrolled in a year's sections
func (stc *StudentController) GetStudents(c *fiber.Ctx) error {
	year, err := loadYear(c)
	if year == nil {
		return err
	}

	students, err := stc.enrollment.ListEnrolledStudents(year)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"students": students,
		"total":    len(students),
	})
}

// ImportRoster imports student accounts from a CSV/XLSX roster and
// places each one into a section of the target year.
// Multipart form with file field: file
func (stc *StudentController) ImportRoster(c *fiber.Ctx) error {
	year, err := loadYear(c)
	if year == nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot open file"})
	}
	defer file.Close()

	filename := strings.ToLower(fileHeader.Filename)
	var rows [][]string
	var parseErr error

	if strings.HasSuffix(filename, ".csv") {
		rows, parseErr = readCSV(file)
	} else if strings.HasSuffix(filename, ".xlsx") || strings.HasSuffix(filename, ".xls") {
		// Save to OS temp folder for excelize to open
		tmpDir, err := os.MkdirTemp("", "roster-")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to buffer upload"})
		}
		defer os.RemoveAll(tmpDir)
		tmp := filepath.Join(tmpDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), sanitizeFilename(fileHeader.Filename)))
		if err := c.SaveFile(fileHeader, tmp); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to buffer upload"})
		}
		rows, parseErr = readXLSX(tmp)
	} else {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported file type (csv, xlsx)"})
	}
	if parseErr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": parseErr.Error()})
	}

	if len(rows) < 2 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file has no data rows"})
	}

	col := buildColumnIndex(rows[0])
	required := []string{"Username", "FullName", "Program", "YearLevel", "Section"}
	for _, r := range required {
		if _, ok := col[r]; !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("missing column: %s", r)})
		}
	}

	created := 0
	updated := 0
	skipped := 0
	var errorsList []string

	// New accounts share one generated initial password per import batch
	defaultPassword, err := utils.GenerateRandomString(12)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to import roster"})
	}
	hashedDefault, err := utils.HashPassword(defaultPassword)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to import roster"})
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		for i := 1; i < len(rows); i++ {
			r := rows[i]
			get := func(key string) string {
				if idx, ok := col[key]; ok && idx < len(r) {
					return utils.SanitizeString(r[idx])
				}
				return ""
			}

			username := get("Username")
			if username == "" {
				skipped++
				continue
			}

			yearLevel, _ := strconv.Atoi(get("YearLevel"))
			if yearLevel < 1 || yearLevel > 4 {
				errorsList = append(errorsList, fmt.Sprintf("row %d: invalid year level %q", i+1, get("YearLevel")))
				skipped++
				continue
			}

			// Optional Status column, defaulting to active
			status := get("Status")
			if status == "" {
				status = "active"
			}
			if !utils.IsValidStatus(status) {
				errorsList = append(errorsList, fmt.Sprintf("row %d: invalid status %q", i+1, status))
				skipped++
				continue
			}

			// Resolve the target section inside this year
			sectionName := get("Section")
			var section models.Section
			q := tx.Where("academic_year_id = ? OR academic_year = ?", year.ID, year.Name).
				Where("name = ? AND archived = ?", sectionName, false)
			if err := q.First(&section).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					errorsList = append(errorsList, fmt.Sprintf("row %d: section %q not found", i+1, sectionName))
					skipped++
					continue
				}
				return err
			}

			var user models.User
			if err := tx.Where("username = ?", username).First(&user).Error; err != nil {
				if err != gorm.ErrRecordNotFound {
					return err
				}
				user = models.User{
					Username:    username,
					Password:    hashedDefault,
					Email:       get("Email"),
					FullName:    get("FullName"),
					Role:        "student",
					Status:      status,
					Program:     get("Program"),
					YearLevel:   yearLevel,
					SectionID:   &section.ID,
					SectionName: section.Name,
				}
				if err := tx.Create(&user).Error; err != nil {
					return err
				}
				created++
				continue
			}

			// Existing account: move into the roster's section
			updates := map[string]interface{}{
				"full_name":    firstNonEmpty(get("FullName"), user.FullName),
				"program":      get("Program"),
				"year_level":   yearLevel,
				"section_id":   section.ID,
				"section_name": section.Name,
			}
			if get("Status") != "" {
				updates["status"] = status
			}
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to import roster"})
	}

	response := fiber.Map{
		"message": "Roster imported",
		"created": created,
		"updated": updated,
		"skipped": skipped,
		"errors":  errorsList,
	}
	if created > 0 {
		response["initial_password"] = defaultPassword
	}
	return c.JSON(response)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	// Use first sheet
	sht := f.GetSheetName(0)
	if sht == "" {
		sht = "Sheet1"
	}
	return f.GetRows(sht)
}

func buildColumnIndex(header []string) map[string]int {
	m := map[string]int{}
	for i, h := range header {
		m[strings.TrimSpace(h)] = i
	}
	return m
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	return name
}
