package week

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm/clause"

	"mealcost-backend/internal/database"
	"mealcost-backend/internal/models"
)

// GET /api/weeks/current
// Resolves today's date to its week, creating the row on first reference.
func CurrentWeekHandler(weekLength int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		w, err := GetOrCreate(database.DB, time.Now().UTC(), weekLength)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Current week could not be resolved")
		}
		return c.JSON(fiber.Map{"week": w})
	}
}

// GET /api/weeks/month/:month/:year
func ListWeeksByMonthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var month, year int
		if _, err := fmt.Sscan(c.Params("month"), &month); err != nil || month < 1 || month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid month")
		}
		if _, err := fmt.Sscan(c.Params("year"), &year); err != nil || year < 2000 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid year")
		}

		var weeks []models.Week
		if err := database.DB.
			Where("month = ? AND year = ?", month, year).
			Order("week_number asc").
			Find(&weeks).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Weeks could not be listed")
		}

		type weekRow struct {
			models.Week
			PurchaseCount   int64 `json:"purchase_count"`
			ProductionCount int64 `json:"production_count"`
		}
		rows := make([]weekRow, 0, len(weeks))
		for _, w := range weeks {
			var pc, prc int64
			if err := database.DB.Model(&models.Purchase{}).Where("week_id = ?", w.ID).Count(&pc).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Weeks could not be listed")
			}
			if err := database.DB.Model(&models.Production{}).Where("week_id = ?", w.ID).Count(&prc).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Weeks could not be listed")
			}
			rows = append(rows, weekRow{Week: w, PurchaseCount: pc, ProductionCount: prc})
		}

		return c.JSON(fiber.Map{"weeks": rows})
	}
}

// POST /api/weeks/create
// Materializes every week of a month up front so the frontend can offer them
// before any purchase or production references them.
func CreateWeeksForMonthHandler(weekLength int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Month int `json:"month"`
			Year  int `json:"year"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Month < 1 || body.Month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "month must be between 1 and 12")
		}
		if body.Year < 2000 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid year")
		}

		for _, d := range InMonth(body.Year, body.Month, weekLength) {
			w := models.Week{
				Month:      body.Month,
				Year:       body.Year,
				WeekNumber: d.WeekNumber,
				StartDate:  d.StartDate,
				EndDate:    d.EndDate,
			}
			if err := database.DB.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "year"}, {Name: "week_number"}},
				DoNothing: true,
			}).Create(&w).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Weeks could not be created")
			}
		}

		var weeks []models.Week
		if err := database.DB.
			Where("month = ? AND year = ?", body.Month, body.Year).
			Order("week_number asc").
			Find(&weeks).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Weeks could not be listed")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Weeks created successfully",
			"weeks":   weeks,
		})
	}
}

// GET /api/weeks/:id
func GetWeekHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var id uint
		if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id is invalid")
		}

		var w models.Week
		if err := database.DB.
			Preload("Purchases").
			Preload("Purchases.Ingredient").
			Preload("Productions").
			Preload("Productions.School").
			First(&w, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Week not found")
		}

		return c.JSON(fiber.Map{"week": w})
	}
}
