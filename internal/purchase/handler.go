package purchase

import (
	"fmt"
	"time"

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

type CreatePurchaseRequest struct {
	WeekID       uint             `json:"week_id"`
	IngredientID uint             `json:"ingredient_id"`
	PurchaseDate string           `json:"purchase_date"` // "2025-12-09"
	Quantity     *float64         `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
}

type BulkCreatePurchasesRequest struct {
	Purchases []CreatePurchaseRequest `json:"purchases"`
}

type UpdatePurchaseRequest struct {
	Quantity     *float64         `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	PurchaseDate *string          `json:"purchase_date"`
}

type PurchaseResponse struct {
	ID           uint            `json:"id"`
	WeekID       uint            `json:"week_id"`
	IngredientID uint            `json:"ingredient_id"`
	Ingredient   string          `json:"ingredient"`
	Category     string          `json:"category"`
	Unit         string          `json:"unit"`
	PurchaseDate string          `json:"purchase_date"`
	Quantity     float64         `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	CreatedBy    uint            `json:"created_by"`
}

func toResponse(p models.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:           p.ID,
		WeekID:       p.WeekID,
		IngredientID: p.IngredientID,
		Ingredient:   p.Ingredient.Name,
		Category:     p.Ingredient.Category,
		Unit:         string(p.Ingredient.Unit),
		PurchaseDate: p.PurchaseDate.Format("2006-01-02"),
		Quantity:     p.Quantity,
		UnitPrice:    p.UnitPrice,
		TotalPrice:   p.TotalPrice,
		CreatedBy:    p.CreatedBy,
	}
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

func validateCreate(body *CreatePurchaseRequest) (time.Time, error) {
	if body.WeekID == 0 || body.IngredientID == 0 || body.PurchaseDate == "" ||
		body.Quantity == nil || body.UnitPrice == nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest,
			"week_id, ingredient_id, purchase_date, quantity and unit_price are required")
	}
	if *body.Quantity < 0 {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "quantity must not be negative")
	}
	if body.UnitPrice.IsNegative() {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "unit_price must not be negative")
	}
	d, err := time.Parse("2006-01-02", body.PurchaseDate)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "purchase_date must be 'YYYY-MM-DD'")
	}
	return d, nil
}

func totalPrice(quantity float64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromFloat(quantity)).Round(2)
}

// POST /api/purchases
func CreatePurchaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePurchaseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		d, err := validateCreate(&body)
		if err != nil {
			return err
		}

		userID, userName, err := getUserInfo(c)
		if err != nil {
			return err
		}

		var wk models.Week
		if err := database.DB.First(&wk, "id = ?", body.WeekID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Week not found")
		}
		var ing models.Ingredient
		if err := database.DB.First(&ing, "id = ?", body.IngredientID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Ingredient not found")
		}

		p := models.Purchase{
			WeekID:       body.WeekID,
			IngredientID: body.IngredientID,
			PurchaseDate: d,
			Quantity:     *body.Quantity,
			UnitPrice:    body.UnitPrice.Round(2),
			TotalPrice:   totalPrice(*body.Quantity, *body.UnitPrice),
			CreatedBy:    userID,
		}

		// insert + week recompute commit or roll back together
		if err := costing.PurchaseChanged(database.DB, body.WeekID, func(tx *gorm.DB) error {
			return tx.Create(&p).Error
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Purchase could not be recorded")
		}

		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "purchase",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Purchase recorded: %s - %s RWF", ing.Name, p.TotalPrice.StringFixed(2)),
			After:       p,
		}); logErr != nil {
			logrus.Warnf("audit log failed: %v", logErr)
		}

		p.Ingredient = ing
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":  "Purchase recorded successfully",
			"purchase": toResponse(p),
		})
	}
}

// POST /api/purchases/bulk
// One recompute per distinct week, not per row.
func BulkCreatePurchasesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkCreatePurchasesRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if len(body.Purchases) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Purchases array required")
		}

		userID, userName, err := getUserInfo(c)
		if err != nil {
			return err
		}

		// validate everything before writing anything
		dates := make([]time.Time, len(body.Purchases))
		byWeek := make(map[uint][]int)
		ingredientIDs := make(map[uint]struct{})
		for i := range body.Purchases {
			d, err := validateCreate(&body.Purchases[i])
			if err != nil {
				return err
			}
			dates[i] = d
			byWeek[body.Purchases[i].WeekID] = append(byWeek[body.Purchases[i].WeekID], i)
			ingredientIDs[body.Purchases[i].IngredientID] = struct{}{}
		}
		for weekID := range byWeek {
			var wk models.Week
			if err := database.DB.First(&wk, "id = ?", weekID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Week %d not found", weekID))
			}
		}
		for ingredientID := range ingredientIDs {
			var ing models.Ingredient
			if err := database.DB.First(&ing, "id = ?", ingredientID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Ingredient %d not found", ingredientID))
			}
		}

		created := make([]models.Purchase, 0, len(body.Purchases))
		for weekID, idxs := range byWeek {
			rows := make([]models.Purchase, 0, len(idxs))
			for _, i := range idxs {
				req := body.Purchases[i]
				rows = append(rows, models.Purchase{
					WeekID:       weekID,
					IngredientID: req.IngredientID,
					PurchaseDate: dates[i],
					Quantity:     *req.Quantity,
					UnitPrice:    req.UnitPrice.Round(2),
					TotalPrice:   totalPrice(*req.Quantity, *req.UnitPrice),
					CreatedBy:    userID,
				})
			}
			if err := costing.PurchaseChanged(database.DB, weekID, func(tx *gorm.DB) error {
				return tx.Create(&rows).Error
			}); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Purchases could not be recorded")
			}
			created = append(created, rows...)
		}

		for _, p := range created {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase",
				EntityID:    p.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Bulk purchase recorded: %s RWF", p.TotalPrice.StringFixed(2)),
				After:       p,
			}); logErr != nil {
				logrus.Warnf("audit log failed: %v", logErr)
			}
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": fmt.Sprintf("%d purchases recorded successfully", len(created)),
		})
	}
}

// GET /api/purchases/week/:weekId
func ListPurchasesByWeekHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var weekID uint
		if _, err := fmt.Sscan(c.Params("weekId"), &weekID); err != nil || weekID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "weekId is invalid")
		}

		var rows []models.Purchase
		if err := database.DB.
			Preload("Ingredient").
			Where("week_id = ?", weekID).
			Order("purchase_date desc, id desc").
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Purchases could not be listed")
		}

		var sums struct {
			TotalCost     decimal.Decimal `gorm:"column:total_cost"`
			TotalQuantity float64         `gorm:"column:total_quantity"`
		}
		if err := database.DB.Model(&models.Purchase{}).
			Select("COALESCE(SUM(total_price), 0) AS total_cost, COALESCE(SUM(quantity), 0) AS total_quantity").
			Where("week_id = ?", weekID).
			Scan(&sums).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Summary could not be calculated")
		}

		resp := make([]PurchaseResponse, 0, len(rows))
		for _, p := range rows {
			resp = append(resp, toResponse(p))
		}

		return c.JSON(fiber.Map{
			"purchases": resp,
			"summary": fiber.Map{
				"total_cost":      sums.TotalCost.Round(2),
				"total_quantity":  sums.TotalQuantity,
				"total_purchases": len(rows),
			},
		})
	}
}

// PUT /api/purchases/:id
// total_price is re-derived from the effective quantity and unit price before
// commit; the week recompute runs in the same transaction.
func UpdatePurchaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.Purchase
		if err := database.DB.First(&p, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Purchase not found")
		}

		var body UpdatePurchaseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		before := p

		if body.Quantity != nil {
			if *body.Quantity < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "quantity must not be negative")
			}
			p.Quantity = *body.Quantity
		}
		if body.UnitPrice != nil {
			if body.UnitPrice.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "unit_price must not be negative")
			}
			p.UnitPrice = body.UnitPrice.Round(2)
		}
		if body.PurchaseDate != nil {
			d, err := time.Parse("2006-01-02", *body.PurchaseDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "purchase_date must be 'YYYY-MM-DD'")
			}
			p.PurchaseDate = d
		}
		p.TotalPrice = totalPrice(p.Quantity, p.UnitPrice)

		if err := costing.PurchaseChanged(database.DB, p.WeekID, func(tx *gorm.DB) error {
			return tx.Save(&p).Error
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Purchase could not be updated")
		}

		if userID, userName, uerr := getUserInfo(c); uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase",
				EntityID:    p.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Purchase updated: %s RWF", p.TotalPrice.StringFixed(2)),
				Before:      before,
				After:       p,
			}); logErr != nil {
				logrus.Warnf("audit log failed: %v", logErr)
			}
		}

		return c.JSON(fiber.Map{
			"message":  "Purchase updated successfully",
			"purchase": toResponse(p),
		})
	}
}

// DELETE /api/purchases/:id
func DeletePurchaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.Purchase
		if err := database.DB.First(&p, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Purchase not found")
		}

		if err := costing.PurchaseChanged(database.DB, p.WeekID, func(tx *gorm.DB) error {
			return tx.Delete(&models.Purchase{}, "id = ?", p.ID).Error
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Purchase could not be deleted")
		}

		if userID, userName, uerr := getUserInfo(c); uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase",
				EntityID:    p.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Purchase deleted: %s RWF", p.TotalPrice.StringFixed(2)),
				Before:      p,
			}); logErr != nil {
				logrus.Warnf("audit log failed: %v", logErr)
			}
		}

		return c.JSON(fiber.Map{"message": "Purchase deleted successfully"})
	}
}
