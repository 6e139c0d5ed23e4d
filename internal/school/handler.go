package school

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"mealcost-backend/internal/database"
	"mealcost-backend/internal/models"
)

type CreateSchoolRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Active   *bool  `json:"active"`
}

type UpdateSchoolRequest struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	Active   *bool   `json:"active"`
}

type SchoolResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	Active      bool   `json:"active"`
	Productions int64  `json:"productions"`
}

// GET /api/schools
// Only active schools are listed for entry pickers; inactive ones stay in
// historical aggregates.
func ListSchoolsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var schools []models.School
		if err := database.DB.Where("active = ?", true).Order("name asc").Find(&schools).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Schools could not be listed")
		}

		res := make([]SchoolResponse, 0, len(schools))
		for _, s := range schools {
			var count int64
			database.DB.Model(&models.Production{}).Where("school_id = ?", s.ID).Count(&count)
			res = append(res, SchoolResponse{
				ID:          s.ID,
				Name:        s.Name,
				Location:    s.Location,
				Active:      s.Active,
				Productions: count,
			})
		}
		return c.JSON(fiber.Map{"schools": res})
	}
}

// POST /api/schools (ADMIN, MANAGER)
func CreateSchoolHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSchoolRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Location = strings.TrimSpace(body.Location)
		if body.Name == "" || body.Location == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name and location are required")
		}

		active := true
		if body.Active != nil {
			active = *body.Active
		}

		s := models.School{Name: body.Name, Location: body.Location, Active: active}
		if err := database.DB.Create(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "School could not be created")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "School created successfully",
			"school":  s,
		})
	}
}

// PUT /api/schools/:id (ADMIN, MANAGER)
func UpdateSchoolHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var s models.School
		if err := database.DB.First(&s, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "School not found")
		}

		var body UpdateSchoolRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name cannot be empty")
			}
			s.Name = name
		}
		if body.Location != nil {
			loc := strings.TrimSpace(*body.Location)
			if loc == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Location cannot be empty")
			}
			s.Location = loc
		}
		if body.Active != nil {
			s.Active = *body.Active
		}

		if err := database.DB.Save(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "School could not be updated")
		}

		return c.JSON(fiber.Map{
			"message": "School updated successfully",
			"school":  s,
		})
	}
}
