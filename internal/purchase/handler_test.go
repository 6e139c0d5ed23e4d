package purchase

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"mealcost-backend/internal/auth"
	"mealcost-backend/internal/database"
	"mealcost-backend/internal/models"
	"mealcost-backend/internal/testdb"
)

func newTestApp(t *testing.T) (*fiber.App, *models.Week, *models.Ingredient) {
	t.Helper()
	database.DB = testdb.Open(t)

	user := models.User{Name: "Tester", Email: "tester@example.org",
		PasswordHash: "x", Role: models.RoleAdmin}
	require.NoError(t, database.DB.Create(&user).Error)

	w := models.Week{Month: 12, Year: 2025, WeekNumber: 50,
		StartDate: time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 14, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, database.DB.Create(&w).Error)

	ing := models.Ingredient{Name: "Rice", Unit: models.UnitKg, Category: "Starch"}
	require.NoError(t, database.DB.Create(&ing).Error)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, user.ID)
		c.Locals(auth.CtxUserRoleKey, user.Role)
		return c.Next()
	})
	app.Post("/api/purchases", CreatePurchaseHandler())
	app.Post("/api/purchases/bulk", BulkCreatePurchasesHandler())
	return app, &w, &ing
}

func postJSON(t *testing.T, app *fiber.App, path string, body map[string]interface{}) int {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestCreatePurchase(t *testing.T) {
	app, w, ing := newTestApp(t)

	status := postJSON(t, app, "/api/purchases", map[string]interface{}{
		"week_id":       w.ID,
		"ingredient_id": ing.ID,
		"purchase_date": "2025-12-09",
		"quantity":      500,
		"unit_price":    "1200",
	})
	require.Equal(t, fiber.StatusCreated, status)

	var p models.Purchase
	require.NoError(t, database.DB.Where("week_id = ?", w.ID).First(&p).Error)
	require.True(t, p.TotalPrice.Equal(decimal.NewFromInt(600000)), "total price = %s", p.TotalPrice)

	// the week recompute ran in the same mutation
	var after models.Week
	require.NoError(t, database.DB.First(&after, "id = ?", w.ID).Error)
	require.True(t, after.IngredientCost.Equal(decimal.NewFromInt(600000)), "ingredient cost = %s", after.IngredientCost)

	var logCount int64
	require.NoError(t, database.DB.Model(&models.AuditLog{}).
		Where("entity_type = ? AND action = ?", "purchase", models.AuditActionCreate).
		Count(&logCount).Error)
	require.EqualValues(t, 1, logCount)
}

func TestCreatePurchaseValidation(t *testing.T) {
	app, w, ing := newTestApp(t)

	// quantity missing entirely
	status := postJSON(t, app, "/api/purchases", map[string]interface{}{
		"week_id":       w.ID,
		"ingredient_id": ing.ID,
		"purchase_date": "2025-12-09",
		"unit_price":    "1200",
	})
	require.Equal(t, fiber.StatusBadRequest, status)

	// negative quantity
	status = postJSON(t, app, "/api/purchases", map[string]interface{}{
		"week_id":       w.ID,
		"ingredient_id": ing.ID,
		"purchase_date": "2025-12-09",
		"quantity":      -1,
		"unit_price":    "1200",
	})
	require.Equal(t, fiber.StatusBadRequest, status)

	// unknown week
	status = postJSON(t, app, "/api/purchases", map[string]interface{}{
		"week_id":       99999,
		"ingredient_id": ing.ID,
		"purchase_date": "2025-12-09",
		"quantity":      10,
		"unit_price":    "1200",
	})
	require.Equal(t, fiber.StatusBadRequest, status)

	// nothing was written by any rejected request
	var count int64
	require.NoError(t, database.DB.Model(&models.Purchase{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestBulkCreateValidatesIngredients(t *testing.T) {
	app, w, ing := newTestApp(t)

	// one valid row, one referencing an unknown ingredient: validation
	// error, not a storage failure, and nothing written
	status := postJSON(t, app, "/api/purchases/bulk", map[string]interface{}{
		"purchases": []map[string]interface{}{
			{
				"week_id":       w.ID,
				"ingredient_id": ing.ID,
				"purchase_date": "2025-12-09",
				"quantity":      100,
				"unit_price":    "1000",
			},
			{
				"week_id":       w.ID,
				"ingredient_id": 99999,
				"purchase_date": "2025-12-09",
				"quantity":      50,
				"unit_price":    "800",
			},
		},
	})
	require.Equal(t, fiber.StatusBadRequest, status)

	var count int64
	require.NoError(t, database.DB.Model(&models.Purchase{}).Count(&count).Error)
	require.Zero(t, count)

	status = postJSON(t, app, "/api/purchases/bulk", map[string]interface{}{
		"purchases": []map[string]interface{}{
			{
				"week_id":       w.ID,
				"ingredient_id": ing.ID,
				"purchase_date": "2025-12-09",
				"quantity":      100,
				"unit_price":    "1000",
			},
			{
				"week_id":       w.ID,
				"ingredient_id": ing.ID,
				"purchase_date": "2025-12-10",
				"quantity":      50,
				"unit_price":    "800",
			},
		},
	})
	require.Equal(t, fiber.StatusCreated, status)

	var after models.Week
	require.NoError(t, database.DB.First(&after, "id = ?", w.ID).Error)
	require.True(t, after.IngredientCost.Equal(decimal.NewFromInt(140000)),
		"ingredient cost = %s", after.IngredientCost)
}
