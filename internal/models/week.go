package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Week - derived aggregate keyed by (year, week_number). Created lazily the
// first time a date falls into it; the numeric fields are caches owned by the
// costing engine and are never written by clients. Dropping and recomputing
// every row reproduces the same values.
type Week struct {
	ID         uint      `gorm:"primaryKey"`
	Month      int       `gorm:"index;not null"`
	Year       int       `gorm:"not null;uniqueIndex:idx_weeks_year_week_number"`
	WeekNumber int       `gorm:"not null;uniqueIndex:idx_weeks_year_week_number"`
	StartDate  time.Time `gorm:"not null"`
	EndDate    time.Time `gorm:"not null"`

	MealsServed     int             `gorm:"not null;default:0"`
	IngredientCost  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	CostPerMeal     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	OverheadPerMeal decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TotalCPM        decimal.Decimal `gorm:"column:total_cpm;type:numeric(14,2);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Purchases   []Purchase
	Productions []Production
}
