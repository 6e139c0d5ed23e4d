package database

import (
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mealcost-backend/internal/config"
	"mealcost-backend/internal/models"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("database connection failed: %v", err)
	}

	if err := Migrate(DB); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}

	logrus.Info("database connected, migration complete")
}

// Migrate is separate from Init so tests can run the same schema against an
// in-memory SQLite handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.School{},
		&models.Ingredient{},
		&models.Week{},
		&models.Purchase{},
		&models.Production{},
		&models.IndirectCost{},
		&models.MonthlySummary{},
		&models.AuditLog{},
	)
}
