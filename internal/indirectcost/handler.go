package indirectcost

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mealcost-backend/internal/audit"
	"mealcost-backend/internal/auth"
	"mealcost-backend/internal/costing"
	"mealcost-backend/internal/database"
	"mealcost-backend/internal/models"
)

type CreateIndirectCostRequest struct {
	Month       int              `json:"month"`
	Year        int              `json:"year"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
}

type UpdateIndirectCostRequest struct {
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
}

func getUserInfo(c *fiber.Ctx) (uint, string, error) {
	userID, err := auth.CurrentUserID(c)
	if err != nil {
		return 0, "", err
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return 0, "", fiber.NewError(fiber.StatusInternalServerError, "User not found")
	}
	return userID, user.Name, nil
}

func parseCategory(raw string) (models.IndirectCostCategory, error) {
	cat := models.IndirectCostCategory(strings.ToUpper(strings.TrimSpace(raw)))
	if !models.ValidIndirectCostCategory(cat) {
		return "", fiber.NewError(fiber.StatusBadRequest,
			"category must be one of SALARIES, TRANSPORT, UTILITIES, MAINTENANCE, EQUIPMENT, ADMINISTRATION, OTHER")
	}
	return cat, nil
}

// POST /api/indirect-costs (ADMIN, MANAGER)
func CreateIndirectCostHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateIndirectCostRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Month == 0 || body.Year == 0 || body.Category == "" || body.Description == "" || body.Amount == nil {
			return fiber.NewError(fiber.StatusBadRequest,
				"month, year, category, description and amount are required")
		}
		if body.Month < 1 || body.Month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "month must be between 1 and 12")
		}
		if body.Amount.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "amount must not be negative")
		}

		cat, err := parseCategory(body.Category)
		if err != nil {
			return err
		}

		userID, userName, err := getUserInfo(c)
		if err != nil {
			return err
		}

		cost := models.IndirectCost{
			Month:       body.Month,
			Year:        body.Year,
			Category:    cat,
			Description: strings.TrimSpace(body.Description),
			Amount:      body.Amount.Round(2),
			CreatedBy:   userID,
		}

		if err := costing.IndirectCostChanged(database.DB, body.Month, body.Year, func(tx *gorm.DB) error {
			return tx.Create(&cost).Error
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Indirect cost could not be recorded")
		}

		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "indirect_cost",
			EntityID:    cost.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Indirect cost added: %s - %s RWF", cost.Category, cost.Amount.StringFixed(2)),
			After:       cost,
		}); logErr != nil {
			logrus.Warnf("audit log failed: %v", logErr)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":       "Indirect cost added successfully",
			"indirect_cost": cost,
		})
	}
}

// GET /api/indirect-costs/month/:month/:year
func ListIndirectCostsByMonthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var month, year int
		if _, err := fmt.Sscan(c.Params("month"), &month); err != nil || month < 1 || month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid month")
		}
		if _, err := fmt.Sscan(c.Params("year"), &year); err != nil || year < 2000 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid year")
		}

		var rows []models.IndirectCost
		if err := database.DB.
			Where("month = ? AND year = ?", month, year).
			Order("created_at desc, id desc").
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Indirect costs could not be listed")
		}

		type catRow struct {
			Category models.IndirectCostCategory `gorm:"column:category" json:"category"`
			Amount   decimal.Decimal             `gorm:"column:amount" json:"amount"`
		}
		var breakdown []catRow
		if err := database.DB.Model(&models.IndirectCost{}).
			Select("category, SUM(amount) AS amount").
			Where("month = ? AND year = ?", month, year).
			Group("category").
			Scan(&breakdown).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Breakdown could not be calculated")
		}

		total := decimal.Zero
		for _, b := range breakdown {
			total = total.Add(b.Amount)
		}

		return c.JSON(fiber.Map{
			"indirect_costs": rows,
			"summary": fiber.Map{
				"total_amount":       total.Round(2),
				"total_entries":      len(rows),
				"category_breakdown": breakdown,
			},
		})
	}
}

// PUT /api/indirect-costs/:id (ADMIN, MANAGER)
func UpdateIndirectCostHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var cost models.IndirectCost
		if err := database.DB.First(&cost, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Indirect cost not found")
		}

		var body UpdateIndirectCostRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		before := cost

		if body.Category != nil {
			cat, err := parseCategory(*body.Category)
			if err != nil {
				return err
			}
			cost.Category = cat
		}
		if body.Description != nil {
			desc := strings.TrimSpace(*body.Description)
			if desc == "" {
				return fiber.NewError(fiber.StatusBadRequest, "description cannot be empty")
			}
			cost.Description = desc
		}
		if body.Amount != nil {
			if body.Amount.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "amount must not be negative")
			}
			cost.Amount = body.Amount.Round(2)
		}

		// month/year are fixed for an existing entry, so the recompute key is too
		if err := costing.IndirectCostChanged(database.DB, cost.Month, cost.Year, func(tx *gorm.DB) error {
			return tx.Save(&cost).Error
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Indirect cost could not be updated")
		}

		if userID, userName, uerr := getUserInfo(c); uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "indirect_cost",
				EntityID:    cost.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Indirect cost updated: %s RWF", cost.Amount.StringFixed(2)),
				Before:      before,
				After:       cost,
			}); logErr != nil {
				logrus.Warnf("audit log failed: %v", logErr)
			}
		}

		return c.JSON(fiber.Map{
			"message":       "Indirect cost updated successfully",
			"indirect_cost": cost,
		})
	}
}

// DELETE /api/indirect-costs/:id (ADMIN, MANAGER)
func DeleteIndirectCostHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var cost models.IndirectCost
		if err := database.DB.First(&cost, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Indirect cost not found")
		}

		if err := costing.IndirectCostChanged(database.DB, cost.Month, cost.Year, func(tx *gorm.DB) error {
			return tx.Delete(&models.IndirectCost{}, "id = ?", cost.ID).Error
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Indirect cost could not be deleted")
		}

		if userID, userName, uerr := getUserInfo(c); uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "indirect_cost",
				EntityID:    cost.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Indirect cost deleted: %s RWF", cost.Amount.StringFixed(2)),
				Before:      cost,
			}); logErr != nil {
				logrus.Warnf("audit log failed: %v", logErr)
			}
		}

		return c.JSON(fiber.Map{"message": "Indirect cost deleted successfully"})
	}
}
