package models

import "time"

type IngredientUnit string

const (
	UnitKg  IngredientUnit = "KG"
	UnitLtr IngredientUnit = "LTR"
	UnitPcs IngredientUnit = "PCS"
)

func ValidIngredientUnit(u IngredientUnit) bool {
	switch u {
	case UnitKg, UnitLtr, UnitPcs:
		return true
	}
	return false
}

type Ingredient struct {
	ID        uint           `gorm:"primaryKey"`
	Name      string         `gorm:"size:150;uniqueIndex;not null"`
	Unit      IngredientUnit `gorm:"size:10;not null"`
	Category  string         `gorm:"size:100;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Purchases []Purchase
}
