package main

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"

	"mealcost-backend/internal/audit"
	"mealcost-backend/internal/auth"
	"mealcost-backend/internal/config"
	"mealcost-backend/internal/database"
	"mealcost-backend/internal/indirectcost"
	"mealcost-backend/internal/ingredient"
	"mealcost-backend/internal/models"
	"mealcost-backend/internal/production"
	"mealcost-backend/internal/purchase"
	"mealcost-backend/internal/reports"
	"mealcost-backend/internal/school"
	"mealcost-backend/internal/week"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logrus.Errorf("unexpected error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Reference data mutations need ADMIN or MANAGER
	manage := auth.RequireRole(models.RoleAdmin, models.RoleManager)

	// Schools
	protected.Get("/schools", school.ListSchoolsHandler())
	protected.Post("/schools", manage, school.CreateSchoolHandler())
	protected.Put("/schools/:id", manage, school.UpdateSchoolHandler())

	// Ingredients
	protected.Get("/ingredients", ingredient.ListIngredientsHandler())
	protected.Get("/ingredients/search", ingredient.SearchIngredientsHandler())
	protected.Post("/ingredients", manage, ingredient.CreateIngredientHandler())
	protected.Put("/ingredients/:id", manage, ingredient.UpdateIngredientHandler())

	// Weeks. Fixed paths before the :id wildcard.
	protected.Get("/weeks/current", week.CurrentWeekHandler(cfg.WeekLengthDays))
	protected.Get("/weeks/month/:month/:year", week.ListWeeksByMonthHandler())
	protected.Post("/weeks/create", week.CreateWeeksForMonthHandler(cfg.WeekLengthDays))
	protected.Get("/weeks/:id", week.GetWeekHandler())

	// Purchases
	protected.Post("/purchases", purchase.CreatePurchaseHandler())
	protected.Post("/purchases/bulk", purchase.BulkCreatePurchasesHandler())
	protected.Get("/purchases/week/:weekId", purchase.ListPurchasesByWeekHandler())
	protected.Put("/purchases/:id", purchase.UpdatePurchaseHandler())
	protected.Delete("/purchases/:id", purchase.DeletePurchaseHandler())

	// Production
	protected.Post("/production", production.CreateProductionHandler())
	protected.Get("/production/week/:weekId", production.ListProductionsByWeekHandler())
	protected.Get("/production/day/:date", production.ListProductionsByDayHandler())
	protected.Put("/production/:id", production.UpdateProductionHandler())
	protected.Delete("/production/:id", production.DeleteProductionHandler())

	// Indirect costs
	protected.Get("/indirect-costs/month/:month/:year", indirectcost.ListIndirectCostsByMonthHandler())
	protected.Post("/indirect-costs", manage, indirectcost.CreateIndirectCostHandler())
	protected.Put("/indirect-costs/:id", manage, indirectcost.UpdateIndirectCostHandler())
	protected.Delete("/indirect-costs/:id", manage, indirectcost.DeleteIndirectCostHandler())

	// Reports
	protected.Get("/reports/weekly/:weekId", reports.WeeklyReportHandler())
	protected.Get("/reports/monthly/:month/:year", reports.MonthlyReportHandler())
	protected.Get("/reports/monthly/:month/:year/export", reports.ExportMonthlyReportHandler())
	protected.Get("/reports/daily/:date", reports.DailyReportHandler())

	// Audit trail
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	logrus.Infof("server listening on :%s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logrus.Fatalf("server stopped: %v", err)
	}
}
