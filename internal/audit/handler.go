package audit

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"mealcost-backend/internal/database"
	"mealcost-backend/internal/models"
)

// GET /api/audit-logs?entity_type=purchase&entity_id=1&user_id=2&limit=50
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.AuditLog{})

		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if v := c.Query("entity_id"); v != "" {
			var eid uint
			if _, err := fmt.Sscan(v, &eid); err == nil && eid > 0 {
				dbq = dbq.Where("entity_id = ?", eid)
			}
		}
		if v := c.Query("user_id"); v != "" {
			var uid uint
			if _, err := fmt.Sscan(v, &uid); err == nil && uid > 0 {
				dbq = dbq.Where("user_id = ?", uid)
			}
		}

		limit := 100
		if v := c.Query("limit"); v != "" {
			if _, err := fmt.Sscan(v, &limit); err != nil || limit < 1 || limit > 500 {
				return fiber.NewError(fiber.StatusBadRequest, "limit is invalid")
			}
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at desc, id desc").Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Audit logs could not be listed")
		}

		return c.JSON(fiber.Map{"audit_logs": logs})
	}
}
