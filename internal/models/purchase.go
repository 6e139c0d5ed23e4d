package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase - ingredient purchase booked against a week.
// TotalPrice is stored but always derived: quantity * unit price, recomputed on
// every create/update before commit.
type Purchase struct {
	ID           uint `gorm:"primaryKey"`
	WeekID       uint `gorm:"index;not null"`
	Week         Week
	IngredientID uint `gorm:"index;not null"`
	Ingredient   Ingredient
	PurchaseDate time.Time       `gorm:"index;not null"`
	Quantity     float64         `gorm:"not null"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	TotalPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CreatedBy    uint            `gorm:"index;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
