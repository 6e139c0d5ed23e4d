package main

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"mealcost-backend/internal/config"
	"mealcost-backend/internal/costing"
	"mealcost-backend/internal/database"
	"mealcost-backend/internal/models"
	"mealcost-backend/internal/week"
)

// Seeds a fresh database with the Rwandan school feeding starter data: an
// admin account, the two pilot schools, the staple ingredients and one week
// of purchases, productions and overhead. The cost aggregates are not written
// directly; every row goes through the recompute pipeline so the seeded
// figures match what the running system would derive.
func main() {
	cfg := config.Load()
	database.Init(cfg)
	db := database.DB

	admin := seedAdmin(db)
	schools := seedSchools(db)
	ingredients := seedIngredients(db)

	now := time.Now().UTC()
	wk, err := week.GetOrCreate(db, now, cfg.WeekLengthDays)
	if err != nil {
		logrus.Fatalf("week could not be created: %v", err)
	}

	seedPurchases(db, wk, ingredients, admin, now)
	seedProductions(db, wk, schools, admin, now)
	seedIndirectCosts(db, admin, int(now.Month()), now.Year())

	var final models.Week
	if err := db.First(&final, "id = ?", wk.ID).Error; err != nil {
		logrus.Fatalf("seeded week could not be read back: %v", err)
	}

	logrus.Info("database seeded")
	logrus.Infof("admin login: admin@solidafrica.org / admin123")
	logrus.Infof("week %d/%d: ingredient cost %s RWF, %d meals, %s RWF per meal (all-in %s)",
		final.WeekNumber, final.Year,
		final.IngredientCost.StringFixed(2), final.MealsServed,
		final.CostPerMeal.StringFixed(2), final.TotalCPM.StringFixed(2))
}

func seedAdmin(db *gorm.DB) *models.User {
	var existing models.User
	if err := db.Where("email = ?", "admin@solidafrica.org").First(&existing).Error; err == nil {
		return &existing
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		logrus.Fatalf("password hash failed: %v", err)
	}
	admin := models.User{
		Name:         "Admin",
		Email:        "admin@solidafrica.org",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		logrus.Fatalf("admin user could not be created: %v", err)
	}
	return &admin
}

func seedSchools(db *gorm.DB) []models.School {
	schools := []models.School{
		{Name: "GS Ruhanga", Location: "Ruhanga, Rwanda", Active: true},
		{Name: "GS Kagugu", Location: "Kagugu, Rwanda", Active: true},
	}
	for i := range schools {
		var existing models.School
		if err := db.Where("name = ?", schools[i].Name).First(&existing).Error; err == nil {
			schools[i] = existing
			continue
		}
		if err := db.Create(&schools[i]).Error; err != nil {
			logrus.Fatalf("school %s could not be created: %v", schools[i].Name, err)
		}
	}
	return schools
}

func seedIngredients(db *gorm.DB) []models.Ingredient {
	ingredients := []models.Ingredient{
		{Name: "Rice", Unit: models.UnitKg, Category: "Starch"},
		{Name: "Kawunga", Unit: models.UnitKg, Category: "Starch"},
		{Name: "Dry Beans", Unit: models.UnitKg, Category: "Protein"},
		{Name: "Cooking Oil", Unit: models.UnitLtr, Category: "Fat"},
		{Name: "Salt", Unit: models.UnitKg, Category: "Seasoning"},
	}
	for i := range ingredients {
		var existing models.Ingredient
		if err := db.Where("name = ?", ingredients[i].Name).First(&existing).Error; err == nil {
			ingredients[i] = existing
			continue
		}
		if err := db.Create(&ingredients[i]).Error; err != nil {
			logrus.Fatalf("ingredient %s could not be created: %v", ingredients[i].Name, err)
		}
	}
	return ingredients
}

func seedPurchases(db *gorm.DB, wk *models.Week, ingredients []models.Ingredient, admin *models.User, now time.Time) {
	type line struct {
		ingredient int
		quantity   float64
		unitPrice  int64
	}
	// realistic Rwandan market pricing, RWF
	lines := []line{
		{0, 500, 1200}, // Rice: 600,000
		{1, 300, 800},  // Kawunga: 240,000
		{2, 200, 1500}, // Dry Beans: 300,000
		{3, 50, 2500},  // Cooking Oil: 125,000
		{4, 25, 600},   // Salt: 15,000
	}
	for _, l := range lines {
		unitPrice := decimal.NewFromInt(l.unitPrice)
		p := models.Purchase{
			WeekID:       wk.ID,
			IngredientID: ingredients[l.ingredient].ID,
			PurchaseDate: now,
			Quantity:     l.quantity,
			UnitPrice:    unitPrice,
			TotalPrice:   unitPrice.Mul(decimal.NewFromFloat(l.quantity)).Round(2),
			CreatedBy:    admin.ID,
		}
		if err := costing.PurchaseChanged(db, wk.ID, func(tx *gorm.DB) error {
			return tx.Create(&p).Error
		}); err != nil {
			logrus.Fatalf("purchase could not be created: %v", err)
		}
	}
}

func seedProductions(db *gorm.DB, wk *models.Week, schools []models.School, admin *models.User, now time.Time) {
	productions := []models.Production{
		{
			WeekID:             wk.ID,
			SchoolID:           schools[0].ID,
			ProductionDate:     now,
			StarchKg:           180,
			VegetablesKg:       120,
			TotalKg:            300,
			StarchPortionPerKg: 25,
			VegPortionPerKg:    30,
			Beneficiaries:      3750,
			CreatedBy:          admin.ID,
		},
		{
			WeekID:             wk.ID,
			SchoolID:           schools[1].ID,
			ProductionDate:     now,
			StarchKg:           150,
			VegetablesKg:       100,
			TotalKg:            250,
			StarchPortionPerKg: 25,
			VegPortionPerKg:    30,
			Beneficiaries:      3745,
			CreatedBy:          admin.ID,
		},
	}
	for i := range productions {
		p := &productions[i]
		if err := costing.ProductionChanged(db, wk.ID, func(tx *gorm.DB) error {
			return tx.Create(p).Error
		}); err != nil {
			logrus.Fatalf("production could not be created: %v", err)
		}
	}
}

func seedIndirectCosts(db *gorm.DB, admin *models.User, month, year int) {
	costs := []models.IndirectCost{
		{
			Month:       month,
			Year:        year,
			Category:    models.CostSalaries,
			Description: "PC Staff Salaries",
			Amount:      decimal.NewFromInt(13113063),
			CreatedBy:   admin.ID,
		},
		{
			Month:       month,
			Year:        year,
			Category:    models.CostTransport,
			Description: "Staff delivery fees",
			Amount:      decimal.NewFromInt(540000),
			CreatedBy:   admin.ID,
		},
	}
	for i := range costs {
		ic := &costs[i]
		if err := costing.IndirectCostChanged(db, month, year, func(tx *gorm.DB) error {
			return tx.Create(ic).Error
		}); err != nil {
			logrus.Fatalf("indirect cost could not be created: %v", err)
		}
	}
}
