// Package reports is the read side: rollups over purchases, productions and
// the stored aggregates. Nothing here mutates; results reflect whatever the
// costing engine last committed.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mealcost-backend/internal/models"
)

// Filter scopes a rollup to one week, a set of weeks, or a date range.
// WeekID wins over WeekIDs, which wins over the range.
type Filter struct {
	WeekID  uint
	WeekIDs []uint
	From    *time.Time
	To      *time.Time
}

func (f Filter) apply(dbq *gorm.DB, dateColumn string) *gorm.DB {
	switch {
	case f.WeekID != 0:
		return dbq.Where("week_id = ?", f.WeekID)
	case len(f.WeekIDs) > 0:
		return dbq.Where("week_id IN ?", f.WeekIDs)
	default:
		if f.From != nil {
			dbq = dbq.Where(dateColumn+" >= ?", *f.From)
		}
		if f.To != nil {
			dbq = dbq.Where(dateColumn+" <= ?", *f.To)
		}
		return dbq
	}
}

type CategoryTotals struct {
	Quantity float64         `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
	Count    int             `json:"count"`
}

// PurchasesByCategory groups purchases by their ingredient's category.
func PurchasesByCategory(db *gorm.DB, f Filter) (map[string]CategoryTotals, error) {
	type row struct {
		Category string          `gorm:"column:category"`
		Quantity float64         `gorm:"column:quantity"`
		Cost     decimal.Decimal `gorm:"column:cost"`
		Cnt      int             `gorm:"column:cnt"`
	}

	dbq := db.Model(&models.Purchase{}).
		Select("ingredients.category AS category, SUM(purchases.quantity) AS quantity, SUM(purchases.total_price) AS cost, COUNT(purchases.id) AS cnt").
		Joins("JOIN ingredients ON ingredients.id = purchases.ingredient_id").
		Group("ingredients.category")
	dbq = f.apply(dbq, "purchases.purchase_date")

	var rows []row
	if err := dbq.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]CategoryTotals, len(rows))
	for _, r := range rows {
		out[r.Category] = CategoryTotals{
			Quantity: r.Quantity,
			Cost:     r.Cost.Round(2),
			Count:    r.Cnt,
		}
	}
	return out, nil
}

type SchoolTotals struct {
	StarchKg      float64 `json:"starch_kg"`
	VegetablesKg  float64 `json:"vegetables_kg"`
	TotalKg       float64 `json:"total_kg"`
	Beneficiaries int     `json:"beneficiaries"`
	Count         int     `json:"count"`
}

// ProductionsBySchool groups productions by school name.
func ProductionsBySchool(db *gorm.DB, f Filter) (map[string]SchoolTotals, error) {
	type row struct {
		School        string  `gorm:"column:school"`
		StarchKg      float64 `gorm:"column:starch_kg"`
		VegetablesKg  float64 `gorm:"column:vegetables_kg"`
		TotalKg       float64 `gorm:"column:total_kg"`
		Beneficiaries int     `gorm:"column:beneficiaries"`
		Cnt           int     `gorm:"column:cnt"`
	}

	dbq := db.Model(&models.Production{}).
		Select("schools.name AS school, SUM(productions.starch_kg) AS starch_kg, SUM(productions.vegetables_kg) AS vegetables_kg, SUM(productions.total_kg) AS total_kg, SUM(productions.beneficiaries) AS beneficiaries, COUNT(productions.id) AS cnt").
		Joins("JOIN schools ON schools.id = productions.school_id").
		Group("schools.name")
	dbq = f.apply(dbq, "productions.production_date")

	var rows []row
	if err := dbq.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]SchoolTotals, len(rows))
	for _, r := range rows {
		out[r.School] = SchoolTotals{
			StarchKg:      r.StarchKg,
			VegetablesKg:  r.VegetablesKg,
			TotalKg:       r.TotalKg,
			Beneficiaries: r.Beneficiaries,
			Count:         r.Cnt,
		}
	}
	return out, nil
}

type MonthTotals struct {
	MealsServed        int             `json:"meals_served"`
	IngredientCost     decimal.Decimal `json:"ingredient_cost"`
	TotalIndirectCosts decimal.Decimal `json:"total_indirect_costs"`
	TotalCosts         decimal.Decimal `json:"total_costs"`
	AvgCostPerMeal     decimal.Decimal `json:"avg_cost_per_meal"`
}

// MonthlyTotals sums the stored week aggregates for a month (the Week cache,
// not the raw purchases), adds the month's indirect costs and derives the
// all-in average cost per meal.
func MonthlyTotals(db *gorm.DB, month, year int) (MonthTotals, error) {
	var wk struct {
		Meals int64           `gorm:"column:meals"`
		Cost  decimal.Decimal `gorm:"column:cost"`
	}
	if err := db.Model(&models.Week{}).
		Select("COALESCE(SUM(meals_served), 0) AS meals, COALESCE(SUM(ingredient_cost), 0) AS cost").
		Where("month = ? AND year = ?", month, year).
		Scan(&wk).Error; err != nil {
		return MonthTotals{}, err
	}

	var ic struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := db.Model(&models.IndirectCost{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("month = ? AND year = ?", month, year).
		Scan(&ic).Error; err != nil {
		return MonthTotals{}, err
	}

	totals := MonthTotals{
		MealsServed:        int(wk.Meals),
		IngredientCost:     wk.Cost.Round(2),
		TotalIndirectCosts: ic.Total.Round(2),
	}
	totals.TotalCosts = totals.IngredientCost.Add(totals.TotalIndirectCosts)
	totals.AvgCostPerMeal = decimal.Zero
	if totals.MealsServed > 0 {
		totals.AvgCostPerMeal = totals.TotalCosts.Div(decimal.NewFromInt(int64(totals.MealsServed))).Round(2)
	}
	return totals, nil
}
