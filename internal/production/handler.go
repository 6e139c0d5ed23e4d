package production

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mealcost-backend/internal/audit"
	"mealcost-backend/internal/auth"
	"mealcost-backend/internal/costing"
	"mealcost-backend/internal/database"
	"mealcost-backend/internal/models"
	"mealcost-backend/internal/reports"
)

// portions per kg when a school does not report its own rates
const (
	defaultStarchPortionPerKg = 30
	defaultVegPortionPerKg    = 56
)

type CreateProductionRequest struct {
	WeekID             uint     `json:"week_id"`
	SchoolID           uint     `json:"school_id"`
	ProductionDate     string   `json:"production_date"`
	StarchKg           *float64 `json:"starch_kg"`
	VegetablesKg       *float64 `json:"vegetables_kg"`
	StarchPortionPerKg *float64 `json:"starch_portion_per_kg"`
	VegPortionPerKg    *float64 `json:"veg_portion_per_kg"`
	Beneficiaries      *int     `json:"beneficiaries"`
}

type UpdateProductionRequest struct {
	StarchKg           *float64 `json:"starch_kg"`
	VegetablesKg       *float64 `json:"vegetables_kg"`
	StarchPortionPerKg *float64 `json:"starch_portion_per_kg"`
	VegPortionPerKg    *float64 `json:"veg_portion_per_kg"`
	Beneficiaries      *int     `json:"beneficiaries"`
	ProductionDate     *string  `json:"production_date"`
}

type ProductionResponse struct {
	ID                 uint    `json:"id"`
	WeekID             uint    `json:"week_id"`
	SchoolID           uint    `json:"school_id"`
	School             string  `json:"school"`
	ProductionDate     string  `json:"production_date"`
	StarchKg           float64 `json:"starch_kg"`
	VegetablesKg       float64 `json:"vegetables_kg"`
	TotalKg            float64 `json:"total_kg"`
	StarchPortionPerKg float64 `json:"starch_portion_per_kg"`
	VegPortionPerKg    float64 `json:"veg_portion_per_kg"`
	Beneficiaries      int     `json:"beneficiaries"`
	CreatedBy          uint    `json:"created_by"`
}

func toResponse(p models.Production) ProductionResponse {
	return ProductionResponse{
		ID:                 p.ID,
		WeekID:             p.WeekID,
		SchoolID:           p.SchoolID,
		School:             p.School.Name,
		ProductionDate:     p.ProductionDate.Format("2006-01-02"),
		StarchKg:           p.StarchKg,
		VegetablesKg:       p.VegetablesKg,
		TotalKg:            p.TotalKg,
		StarchPortionPerKg: p.StarchPortionPerKg,
		VegPortionPerKg:    p.VegPortionPerKg,
		Beneficiaries:      p.Beneficiaries,
		CreatedBy:          p.CreatedBy,
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

// POST /api/production
func CreateProductionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.WeekID == 0 || body.SchoolID == 0 || body.ProductionDate == "" ||
			body.StarchKg == nil || body.VegetablesKg == nil || body.Beneficiaries == nil {
			return fiber.NewError(fiber.StatusBadRequest,
				"week_id, school_id, production_date, starch_kg, vegetables_kg and beneficiaries are required")
		}
		if *body.StarchKg < 0 || *body.VegetablesKg < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "starch_kg and vegetables_kg must not be negative")
		}
		if *body.Beneficiaries < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "beneficiaries must not be negative")
		}

		d, err := time.Parse("2006-01-02", body.ProductionDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "production_date must be 'YYYY-MM-DD'")
		}

		userID, userName, err := getUserInfo(c)
		if err != nil {
			return err
		}

		var wk models.Week
		if err := database.DB.First(&wk, "id = ?", body.WeekID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Week not found")
		}
		var school models.School
		if err := database.DB.First(&school, "id = ?", body.SchoolID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "School not found")
		}

		starchRate := float64(defaultStarchPortionPerKg)
		if body.StarchPortionPerKg != nil {
			if *body.StarchPortionPerKg < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "starch_portion_per_kg must not be negative")
			}
			starchRate = *body.StarchPortionPerKg
		}
		vegRate := float64(defaultVegPortionPerKg)
		if body.VegPortionPerKg != nil {
			if *body.VegPortionPerKg < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "veg_portion_per_kg must not be negative")
			}
			vegRate = *body.VegPortionPerKg
		}

		p := models.Production{
			WeekID:             body.WeekID,
			SchoolID:           body.SchoolID,
			ProductionDate:     d,
			StarchKg:           *body.StarchKg,
			VegetablesKg:       *body.VegetablesKg,
			TotalKg:            *body.StarchKg + *body.VegetablesKg,
			StarchPortionPerKg: starchRate,
			VegPortionPerKg:    vegRate,
			Beneficiaries:      *body.Beneficiaries,
			CreatedBy:          userID,
		}

		// beneficiaries feed both the week's meals and the month's overhead
		// denominator, so this runs the week phase then the month phase
		if err := costing.ProductionChanged(database.DB, body.WeekID, func(tx *gorm.DB) error {
			return tx.Create(&p).Error
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Production could not be recorded")
		}

		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "production",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Production recorded: %s - %d beneficiaries", school.Name, p.Beneficiaries),
			After:       p,
		}); logErr != nil {
			logrus.Warnf("audit log failed: %v", logErr)
		}

		p.School = school
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":    "Production recorded successfully",
			"production": toResponse(p),
		})
	}
}

// GET /api/production/week/:weekId
func ListProductionsByWeekHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var weekID uint
		if _, err := fmt.Sscan(c.Params("weekId"), &weekID); err != nil || weekID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "weekId is invalid")
		}

		var rows []models.Production
		if err := database.DB.
			Preload("School").
			Where("week_id = ?", weekID).
			Order("production_date desc, id desc").
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Productions could not be listed")
		}

		var sums struct {
			StarchKg      float64 `gorm:"column:starch_kg"`
			VegetablesKg  float64 `gorm:"column:vegetables_kg"`
			TotalKg       float64 `gorm:"column:total_kg"`
			Beneficiaries int     `gorm:"column:beneficiaries"`
		}
		if err := database.DB.Model(&models.Production{}).
			Select("COALESCE(SUM(starch_kg), 0) AS starch_kg, COALESCE(SUM(vegetables_kg), 0) AS vegetables_kg, COALESCE(SUM(total_kg), 0) AS total_kg, COALESCE(SUM(beneficiaries), 0) AS beneficiaries").
			Where("week_id = ?", weekID).
			Scan(&sums).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Summary could not be calculated")
		}

		resp := make([]ProductionResponse, 0, len(rows))
		for _, p := range rows {
			resp = append(resp, toResponse(p))
		}

		return c.JSON(fiber.Map{
			"productions": resp,
			"summary": fiber.Map{
				"total_starch_kg":     sums.StarchKg,
				"total_vegetables_kg": sums.VegetablesKg,
				"total_kg":            sums.TotalKg,
				"total_beneficiaries": sums.Beneficiaries,
				"total_productions":   len(rows),
			},
		})
	}
}

// GET /api/production/day/:date
func ListProductionsByDayHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		d, err := time.Parse("2006-01-02", c.Params("date"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be 'YYYY-MM-DD'")
		}
		dayStart := d
		dayEnd := d.AddDate(0, 0, 1).Add(-time.Second)

		var rows []models.Production
		if err := database.DB.
			Preload("School").
			Where("production_date >= ? AND production_date <= ?", dayStart, dayEnd).
			Order("created_at desc").
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Productions could not be listed")
		}

		bySchool, err := reports.ProductionsBySchool(database.DB, reports.Filter{From: &dayStart, To: &dayEnd})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Summary could not be calculated")
		}

		var totalBeneficiaries int
		var totalStarch, totalVeg, totalKg float64
		for _, p := range rows {
			totalBeneficiaries += p.Beneficiaries
			totalStarch += p.StarchKg
			totalVeg += p.VegetablesKg
			totalKg += p.TotalKg
		}

		resp := make([]ProductionResponse, 0, len(rows))
		for _, p := range rows {
			resp = append(resp, toResponse(p))
		}

		return c.JSON(fiber.Map{
			"date":        d.Format("2006-01-02"),
			"productions": resp,
			"by_school":   bySchool,
			"summary": fiber.Map{
				"total_starch_kg":     totalStarch,
				"total_vegetables_kg": totalVeg,
				"total_kg":            totalKg,
				"total_beneficiaries": totalBeneficiaries,
				"total_productions":   len(rows),
			},
		})
	}
}

// PUT /api/production/:id
func UpdateProductionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.Production
		if err := database.DB.First(&p, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Production record not found")
		}

		var body UpdateProductionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		before := p

		if body.StarchKg != nil {
			if *body.StarchKg < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "starch_kg must not be negative")
			}
			p.StarchKg = *body.StarchKg
		}
		if body.VegetablesKg != nil {
			if *body.VegetablesKg < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "vegetables_kg must not be negative")
			}
			p.VegetablesKg = *body.VegetablesKg
		}
		if body.StarchPortionPerKg != nil {
			if *body.StarchPortionPerKg < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "starch_portion_per_kg must not be negative")
			}
			p.StarchPortionPerKg = *body.StarchPortionPerKg
		}
		if body.VegPortionPerKg != nil {
			if *body.VegPortionPerKg < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "veg_portion_per_kg must not be negative")
			}
			p.VegPortionPerKg = *body.VegPortionPerKg
		}
		if body.Beneficiaries != nil {
			if *body.Beneficiaries < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "beneficiaries must not be negative")
			}
			p.Beneficiaries = *body.Beneficiaries
		}
		if body.ProductionDate != nil {
			d, err := time.Parse("2006-01-02", *body.ProductionDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "production_date must be 'YYYY-MM-DD'")
			}
			p.ProductionDate = d
		}
		p.TotalKg = p.StarchKg + p.VegetablesKg

		if err := costing.ProductionChanged(database.DB, p.WeekID, func(tx *gorm.DB) error {
			return tx.Save(&p).Error
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Production could not be updated")
		}

		if userID, userName, uerr := getUserInfo(c); uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "production",
				EntityID:    p.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Production updated: %d beneficiaries", p.Beneficiaries),
				Before:      before,
				After:       p,
			}); logErr != nil {
				logrus.Warnf("audit log failed: %v", logErr)
			}
		}

		return c.JSON(fiber.Map{
			"message":    "Production updated successfully",
			"production": toResponse(p),
		})
	}
}

// DELETE /api/production/:id
func DeleteProductionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.Production
		if err := database.DB.First(&p, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Production record not found")
		}

		if err := costing.ProductionChanged(database.DB, p.WeekID, func(tx *gorm.DB) error {
			return tx.Delete(&models.Production{}, "id = ?", p.ID).Error
		}); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Production could not be deleted")
		}

		if userID, userName, uerr := getUserInfo(c); uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "production",
				EntityID:    p.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Production deleted: %d beneficiaries", p.Beneficiaries),
				Before:      p,
			}); logErr != nil {
				logrus.Warnf("audit log failed: %v", logErr)
			}
		}

		return c.JSON(fiber.Map{"message": "Production record deleted successfully"})
	}
}
