// Package costing keeps the Week and MonthlySummary aggregates consistent
// with the underlying purchase, production and indirect-cost rows. All
// mutation handlers go through the *Changed wrappers: they take the per-key
// locks, run the caller's mutation and the recompute phases in one
// transaction, and roll the whole mutation back if any phase fails.
package costing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mealcost-backend/internal/models"
)

// RecomputeWeek re-derives a week's direct-cost fields from its purchases and
// productions. OverheadPerMeal is left untouched; only RecomputeMonth sets it.
// Idempotent: pure re-derivation, no accumulation.
func RecomputeWeek(tx *gorm.DB, weekID uint) error {
	var w models.Week
	if err := tx.First(&w, "id = ?", weekID).Error; err != nil {
		return fmt.Errorf("week %d not found: %w", weekID, err)
	}

	var ps struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := tx.Model(&models.Purchase{}).
		Select("COALESCE(SUM(total_price), 0) AS total").
		Where("week_id = ?", weekID).
		Scan(&ps).Error; err != nil {
		return fmt.Errorf("sum purchases for week %d: %w", weekID, err)
	}

	var ms struct {
		Total int64 `gorm:"column:total"`
	}
	if err := tx.Model(&models.Production{}).
		Select("COALESCE(SUM(beneficiaries), 0) AS total").
		Where("week_id = ?", weekID).
		Scan(&ms).Error; err != nil {
		return fmt.Errorf("sum productions for week %d: %w", weekID, err)
	}

	ingredientCost := ps.Total.Round(2)
	mealsServed := int(ms.Total)

	costPerMeal := decimal.Zero
	if mealsServed > 0 {
		costPerMeal = ingredientCost.Div(decimal.NewFromInt(int64(mealsServed))).Round(2)
	}

	return tx.Model(&models.Week{}).Where("id = ?", weekID).Updates(map[string]interface{}{
		"ingredient_cost": ingredientCost,
		"meals_served":    mealsServed,
		"cost_per_meal":   costPerMeal,
		"total_cpm":       costPerMeal.Add(w.OverheadPerMeal),
	}).Error
}

// RecomputeMonth re-derives the monthly summary from that month's indirect
// costs and productions, then pushes the new overhead into every week of the
// month. CostPerMeal is read from the week rows, not recomputed, so any week
// phase for the same mutation must already be committed or visible in tx.
func RecomputeMonth(tx *gorm.DB, month, year int) error {
	var ic struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := tx.Model(&models.IndirectCost{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("month = ? AND year = ?", month, year).
		Scan(&ic).Error; err != nil {
		return fmt.Errorf("sum indirect costs for %d/%d: %w", month, year, err)
	}

	var mp struct {
		Total int64 `gorm:"column:total"`
	}
	if err := tx.Model(&models.Production{}).
		Joins("JOIN weeks ON weeks.id = productions.week_id").
		Select("COALESCE(SUM(productions.beneficiaries), 0) AS total").
		Where("weeks.month = ? AND weeks.year = ?", month, year).
		Scan(&mp).Error; err != nil {
		return fmt.Errorf("sum productions for %d/%d: %w", month, year, err)
	}

	totalIndirectCosts := ic.Total.Round(2)
	totalMealsProduced := int(mp.Total)

	overheadPerMeal := decimal.Zero
	if totalMealsProduced > 0 {
		overheadPerMeal = totalIndirectCosts.Div(decimal.NewFromInt(int64(totalMealsProduced))).Round(2)
	}

	summary := models.MonthlySummary{
		Month:              month,
		Year:               year,
		TotalIndirectCosts: totalIndirectCosts,
		TotalMealsProduced: totalMealsProduced,
		OverheadPerMeal:    overheadPerMeal,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "month"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_indirect_costs", "total_meals_produced", "overhead_per_meal", "updated_at"}),
	}).Create(&summary).Error; err != nil {
		return fmt.Errorf("upsert monthly summary %d/%d: %w", month, year, err)
	}

	var weeks []models.Week
	if err := tx.Where("month = ? AND year = ?", month, year).Find(&weeks).Error; err != nil {
		return fmt.Errorf("load weeks for %d/%d: %w", month, year, err)
	}
	for _, w := range weeks {
		if err := tx.Model(&models.Week{}).Where("id = ?", w.ID).Updates(map[string]interface{}{
			"overhead_per_meal": overheadPerMeal,
			"total_cpm":         w.CostPerMeal.Add(overheadPerMeal),
		}).Error; err != nil {
			return fmt.Errorf("update week %d overhead: %w", w.ID, err)
		}
	}
	return nil
}

// PurchaseChanged runs mutate plus the week recompute in one transaction,
// serialized against other mutations on the same week. The month lock is held
// too: RecomputeMonth writes overhead and total_cpm on every week of the
// month, so a month-path writer and a week-path writer must never interleave
// on the same Week row. A nil mutate just recomputes.
func PurchaseChanged(db *gorm.DB, weekID uint, mutate func(tx *gorm.DB) error) error {
	var w models.Week
	if err := db.First(&w, "id = ?", weekID).Error; err != nil {
		return fmt.Errorf("week %d not found: %w", weekID, err)
	}

	unlockWeek := aggLocks.Lock(weekKey(weekID))
	defer unlockWeek()
	unlockMonth := aggLocks.Lock(monthKey(w.Month, w.Year))
	defer unlockMonth()

	return db.Transaction(func(tx *gorm.DB) error {
		if mutate != nil {
			if err := mutate(tx); err != nil {
				return err
			}
		}
		return RecomputeWeek(tx, weekID)
	})
}

// ProductionChanged runs mutate, the week recompute, then the month recompute
// in one transaction. The month phase reads the cost-per-meal the week phase
// just wrote, so the order is fixed. Every path that touches a Week row takes
// the week lock first and the month lock second; the indirect-cost path takes
// only the month lock, so lock ordering is globally consistent.
func ProductionChanged(db *gorm.DB, weekID uint, mutate func(tx *gorm.DB) error) error {
	var w models.Week
	if err := db.First(&w, "id = ?", weekID).Error; err != nil {
		return fmt.Errorf("week %d not found: %w", weekID, err)
	}

	unlockWeek := aggLocks.Lock(weekKey(weekID))
	defer unlockWeek()
	unlockMonth := aggLocks.Lock(monthKey(w.Month, w.Year))
	defer unlockMonth()

	return db.Transaction(func(tx *gorm.DB) error {
		if mutate != nil {
			if err := mutate(tx); err != nil {
				return err
			}
		}
		if err := RecomputeWeek(tx, weekID); err != nil {
			return err
		}
		return RecomputeMonth(tx, w.Month, w.Year)
	})
}

// IndirectCostChanged runs mutate plus the month recompute in one
// transaction, serialized against other mutations on the same month.
func IndirectCostChanged(db *gorm.DB, month, year int, mutate func(tx *gorm.DB) error) error {
	unlock := aggLocks.Lock(monthKey(month, year))
	defer unlock()

	return db.Transaction(func(tx *gorm.DB) error {
		if mutate != nil {
			if err := mutate(tx); err != nil {
				return err
			}
		}
		return RecomputeMonth(tx, month, year)
	})
}
