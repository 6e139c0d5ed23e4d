package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type IndirectCostCategory string

const (
	CostSalaries       IndirectCostCategory = "SALARIES"
	CostTransport      IndirectCostCategory = "TRANSPORT"
	CostUtilities      IndirectCostCategory = "UTILITIES"
	CostMaintenance    IndirectCostCategory = "MAINTENANCE"
	CostEquipment      IndirectCostCategory = "EQUIPMENT"
	CostAdministration IndirectCostCategory = "ADMINISTRATION"
	CostOther          IndirectCostCategory = "OTHER"
)

func ValidIndirectCostCategory(c IndirectCostCategory) bool {
	switch c {
	case CostSalaries, CostTransport, CostUtilities, CostMaintenance,
		CostEquipment, CostAdministration, CostOther:
		return true
	}
	return false
}

// IndirectCost - overhead booked against a calendar month, not a week.
type IndirectCost struct {
	ID          uint                 `gorm:"primaryKey"`
	Month       int                  `gorm:"index:idx_indirect_costs_month_year;not null"`
	Year        int                  `gorm:"index:idx_indirect_costs_month_year;not null"`
	Category    IndirectCostCategory `gorm:"size:30;not null"`
	Description string               `gorm:"size:255;not null"`
	Amount      decimal.Decimal      `gorm:"type:numeric(14,2);not null"`
	CreatedBy   uint                 `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
