package ingredient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"mealcost-backend/internal/database"
	"mealcost-backend/internal/models"
)

type CreateIngredientRequest struct {
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

type UpdateIngredientRequest struct {
	Name     *string `json:"name"`
	Unit     *string `json:"unit"`
	Category *string `json:"category"`
}

// GET /api/ingredients?page=1&limit=20
func ListIngredientsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := 1
		limit := 20
		if v := c.Query("page"); v != "" {
			if _, err := fmt.Sscan(v, &page); err != nil || page < 1 {
				return fiber.NewError(fiber.StatusBadRequest, "page is invalid")
			}
		}
		if v := c.Query("limit"); v != "" {
			if _, err := fmt.Sscan(v, &limit); err != nil || limit < 1 || limit > 100 {
				return fiber.NewError(fiber.StatusBadRequest, "limit is invalid")
			}
		}

		var total int64
		database.DB.Model(&models.Ingredient{}).Count(&total)

		var ingredients []models.Ingredient
		if err := database.DB.
			Order("name asc").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&ingredients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ingredients could not be listed")
		}

		pages := total / int64(limit)
		if total%int64(limit) != 0 {
			pages++
		}

		return c.JSON(fiber.Map{
			"ingredients": ingredients,
			"pagination": fiber.Map{
				"page":  page,
				"limit": limit,
				"total": total,
				"pages": pages,
			},
		})
	}
}

// GET /api/ingredients/search?q=rice
func SearchIngredientsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Search query required")
		}

		pattern := "%" + strings.ToLower(q) + "%"
		var ingredients []models.Ingredient
		if err := database.DB.
			Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern).
			Order("name asc").
			Limit(10).
			Find(&ingredients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Search failed")
		}

		return c.JSON(fiber.Map{"ingredients": ingredients})
	}
}

// POST /api/ingredients (ADMIN, MANAGER)
func CreateIngredientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateIngredientRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Category = strings.TrimSpace(body.Category)
		unit := models.IngredientUnit(strings.ToUpper(strings.TrimSpace(body.Unit)))

		if body.Name == "" || body.Category == "" || unit == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name, unit and category are required")
		}
		if !models.ValidIngredientUnit(unit) {
			return fiber.NewError(fiber.StatusBadRequest, "Unit must be KG, LTR or PCS")
		}

		var existing models.Ingredient
		err := database.DB.Where("name = ?", body.Name).First(&existing).Error
		if err == nil {
			return fiber.NewError(fiber.StatusConflict, "An ingredient with this name already exists")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusInternalServerError, "Ingredient could not be created")
		}

		ing := models.Ingredient{Name: body.Name, Unit: unit, Category: body.Category}
		if err := database.DB.Create(&ing).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ingredient could not be created")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":    "Ingredient created successfully",
			"ingredient": ing,
		})
	}
}

// PUT /api/ingredients/:id (ADMIN, MANAGER)
// Edits never touch stored purchase totals; historical costs keep the prices
// they were booked with.
func UpdateIngredientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var ing models.Ingredient
		if err := database.DB.First(&ing, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ingredient not found")
		}

		var body UpdateIngredientRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name cannot be empty")
			}
			var dup models.Ingredient
			if err := database.DB.Where("name = ? AND id <> ?", name, ing.ID).First(&dup).Error; err == nil {
				return fiber.NewError(fiber.StatusConflict, "An ingredient with this name already exists")
			}
			ing.Name = name
		}
		if body.Unit != nil {
			unit := models.IngredientUnit(strings.ToUpper(strings.TrimSpace(*body.Unit)))
			if !models.ValidIngredientUnit(unit) {
				return fiber.NewError(fiber.StatusBadRequest, "Unit must be KG, LTR or PCS")
			}
			ing.Unit = unit
		}
		if body.Category != nil {
			cat := strings.TrimSpace(*body.Category)
			if cat == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Category cannot be empty")
			}
			ing.Category = cat
		}

		if err := database.DB.Save(&ing).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ingredient could not be updated")
		}

		return c.JSON(fiber.Map{
			"message":    "Ingredient updated successfully",
			"ingredient": ing,
		})
	}
}
