package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlySummary - derived aggregate keyed by (month, year), upserted by the
// costing engine whenever an indirect cost or production in that month changes.
type MonthlySummary struct {
	ID    uint `gorm:"primaryKey"`
	Month int  `gorm:"not null;uniqueIndex:idx_monthly_summaries_month_year"`
	Year  int  `gorm:"not null;uniqueIndex:idx_monthly_summaries_month_year"`

	TotalIndirectCosts decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TotalMealsProduced int             `gorm:"not null;default:0"`
	OverheadPerMeal    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
