package reports

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mealcost-backend/internal/database"
	"mealcost-backend/internal/models"
)

func parseMonthYear(c *fiber.Ctx) (int, int, error) {
	var month, year int
	if _, err := fmt.Sscan(c.Params("month"), &month); err != nil || month < 1 || month > 12 {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "Invalid month")
	}
	if _, err := fmt.Sscan(c.Params("year"), &year); err != nil || year < 2000 {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "Invalid year")
	}
	return month, year, nil
}

// GET /api/reports/weekly/:weekId
func WeeklyReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var weekID uint
		if _, err := fmt.Sscan(c.Params("weekId"), &weekID); err != nil || weekID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "weekId is invalid")
		}

		var w models.Week
		if err := database.DB.First(&w, "id = ?", weekID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Week not found")
		}

		byCategory, err := PurchasesByCategory(database.DB, Filter{WeekID: weekID})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be generated")
		}
		bySchool, err := ProductionsBySchool(database.DB, Filter{WeekID: weekID})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be generated")
		}

		var purchases []models.Purchase
		if err := database.DB.
			Preload("Ingredient").
			Where("week_id = ?", weekID).
			Order("purchase_date asc, id asc").
			Find(&purchases).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be generated")
		}

		return c.JSON(fiber.Map{
			"week": w,
			"summary": fiber.Map{
				"ingredient_cost":   w.IngredientCost,
				"meals_served":      w.MealsServed,
				"cost_per_meal":     w.CostPerMeal,
				"overhead_per_meal": w.OverheadPerMeal,
				"total_cpm":         w.TotalCPM,
			},
			"purchases_by_category": byCategory,
			"productions_by_school": bySchool,
			"purchases":             purchases,
		})
	}
}

type monthlyReport struct {
	Month              int                       `json:"month"`
	Year               int                       `json:"year"`
	Summary            *models.MonthlySummary    `json:"summary"`
	Totals             MonthTotals               `json:"totals"`
	Weeks              []models.Week             `json:"weeks"`
	IndirectBreakdown  []indirectCategoryRow     `json:"indirect_breakdown"`
	PurchasesByCat     map[string]CategoryTotals `json:"purchases_by_category"`
	ProductionBySchool map[string]SchoolTotals   `json:"productions_by_school"`
}

type indirectCategoryRow struct {
	Category models.IndirectCostCategory `gorm:"column:category" json:"category"`
	Amount   decimal.Decimal             `gorm:"column:amount" json:"amount"`
}

func buildMonthlyReport(db *gorm.DB, month, year int) (*monthlyReport, error) {
	rpt := &monthlyReport{Month: month, Year: year}

	var summary models.MonthlySummary
	if err := db.Where("month = ? AND year = ?", month, year).First(&summary).Error; err == nil {
		rpt.Summary = &summary
	}

	totals, err := MonthlyTotals(db, month, year)
	if err != nil {
		return nil, err
	}
	rpt.Totals = totals

	if err := db.Where("month = ? AND year = ?", month, year).
		Order("week_number asc").Find(&rpt.Weeks).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.IndirectCost{}).
		Select("category, SUM(amount) AS amount").
		Where("month = ? AND year = ?", month, year).
		Group("category").
		Scan(&rpt.IndirectBreakdown).Error; err != nil {
		return nil, err
	}

	weekIDs := make([]uint, 0, len(rpt.Weeks))
	for _, w := range rpt.Weeks {
		weekIDs = append(weekIDs, w.ID)
	}
	if len(weekIDs) > 0 {
		if rpt.PurchasesByCat, err = PurchasesByCategory(db, Filter{WeekIDs: weekIDs}); err != nil {
			return nil, err
		}
		if rpt.ProductionBySchool, err = ProductionsBySchool(db, Filter{WeekIDs: weekIDs}); err != nil {
			return nil, err
		}
	} else {
		rpt.PurchasesByCat = map[string]CategoryTotals{}
		rpt.ProductionBySchool = map[string]SchoolTotals{}
	}
	return rpt, nil
}

// GET /api/reports/monthly/:month/:year
func MonthlyReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		month, year, err := parseMonthYear(c)
		if err != nil {
			return err
		}
		rpt, err := buildMonthlyReport(database.DB, month, year)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be generated")
		}
		return c.JSON(rpt)
	}
}

// GET /api/reports/daily/:date
func DailyReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		day, err := time.Parse("2006-01-02", c.Params("date"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be 'YYYY-MM-DD'")
		}
		from := day
		to := day.AddDate(0, 0, 1).Add(-time.Second)
		f := Filter{From: &from, To: &to}

		byCategory, err := PurchasesByCategory(database.DB, f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be generated")
		}
		bySchool, err := ProductionsBySchool(database.DB, f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be generated")
		}

		var purchases []models.Purchase
		if err := database.DB.
			Preload("Ingredient").
			Where("purchase_date >= ? AND purchase_date <= ?", from, to).
			Order("id asc").
			Find(&purchases).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be generated")
		}

		var productions []models.Production
		if err := database.DB.
			Preload("School").
			Where("production_date >= ? AND production_date <= ?", from, to).
			Order("id asc").
			Find(&productions).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be generated")
		}

		return c.JSON(fiber.Map{
			"date":                  day.Format("2006-01-02"),
			"purchases_by_category": byCategory,
			"productions_by_school": bySchool,
			"purchases":             purchases,
			"productions":           productions,
		})
	}
}
