package costing

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mealcost-backend/internal/models"
	"mealcost-backend/internal/testdb"
)

func newWeek(t *testing.T, db *gorm.DB, month, year, number int) *models.Week {
	t.Helper()
	w := models.Week{
		Month:      month,
		Year:       year,
		WeekNumber: number,
		StartDate:  time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(year, time.Month(month), 7, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&w).Error)
	return &w
}

func newIngredient(t *testing.T, db *gorm.DB, name string) *models.Ingredient {
	t.Helper()
	ing := models.Ingredient{Name: name, Unit: models.UnitKg, Category: "Starch"}
	require.NoError(t, db.Create(&ing).Error)
	return &ing
}

func newSchool(t *testing.T, db *gorm.DB, name string) *models.School {
	t.Helper()
	s := models.School{Name: name, Location: "Kigali", Active: true}
	require.NoError(t, db.Create(&s).Error)
	return &s
}

func addPurchase(t *testing.T, db *gorm.DB, weekID, ingredientID uint, quantity float64, unitPrice int64) {
	t.Helper()
	up := decimal.NewFromInt(unitPrice)
	p := models.Purchase{
		WeekID:       weekID,
		IngredientID: ingredientID,
		PurchaseDate: time.Now().UTC(),
		Quantity:     quantity,
		UnitPrice:    up,
		TotalPrice:   up.Mul(decimal.NewFromFloat(quantity)).Round(2),
		CreatedBy:    1,
	}
	require.NoError(t, PurchaseChanged(db, weekID, func(tx *gorm.DB) error {
		return tx.Create(&p).Error
	}))
}

func addProduction(t *testing.T, db *gorm.DB, weekID, schoolID uint, beneficiaries int) {
	t.Helper()
	p := models.Production{
		WeekID:             weekID,
		SchoolID:           schoolID,
		ProductionDate:     time.Now().UTC(),
		StarchKg:           180,
		VegetablesKg:       120,
		TotalKg:            300,
		StarchPortionPerKg: 30,
		VegPortionPerKg:    56,
		Beneficiaries:      beneficiaries,
		CreatedBy:          1,
	}
	require.NoError(t, ProductionChanged(db, weekID, func(tx *gorm.DB) error {
		return tx.Create(&p).Error
	}))
}

func addIndirectCost(t *testing.T, db *gorm.DB, month, year int, category models.IndirectCostCategory, amount int64) {
	t.Helper()
	ic := models.IndirectCost{
		Month:       month,
		Year:        year,
		Category:    category,
		Description: "test",
		Amount:      decimal.NewFromInt(amount),
		CreatedBy:   1,
	}
	require.NoError(t, IndirectCostChanged(db, month, year, func(tx *gorm.DB) error {
		return tx.Create(&ic).Error
	}))
}

func reloadWeek(t *testing.T, db *gorm.DB, id uint) models.Week {
	t.Helper()
	var w models.Week
	require.NoError(t, db.First(&w, "id = ?", id).Error)
	return w
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)),
		"%s: got %s, want %s", msg, got.String(), want)
}

// A week of purchases totalling 1,280,000 RWF served to 7,495 beneficiaries
// works out to 170.78 RWF per meal.
func TestWeekCostPerMeal(t *testing.T) {
	db := testdb.Open(t)
	w := newWeek(t, db, 12, 2025, 50)
	ing := newIngredient(t, db, "Rice")
	school := newSchool(t, db, "GS Ruhanga")

	addPurchase(t, db, w.ID, ing.ID, 500, 1200) // 600,000
	addPurchase(t, db, w.ID, ing.ID, 300, 800)  // 240,000
	addPurchase(t, db, w.ID, ing.ID, 200, 1500) // 300,000
	addPurchase(t, db, w.ID, ing.ID, 50, 2500)  // 125,000
	addPurchase(t, db, w.ID, ing.ID, 25, 600)   //  15,000
	addProduction(t, db, w.ID, school.ID, 3750)
	addProduction(t, db, w.ID, school.ID, 3745)

	got := reloadWeek(t, db, w.ID)
	requireDecimal(t, "1280000", got.IngredientCost, "ingredient cost")
	require.Equal(t, 7495, got.MealsServed)
	requireDecimal(t, "170.78", got.CostPerMeal, "cost per meal")
}

// 13,653,063 RWF of monthly overhead across 7,495 meals is 1821.62 per meal,
// and pushes into every week of the month.
func TestMonthlyOverhead(t *testing.T) {
	db := testdb.Open(t)
	w := newWeek(t, db, 12, 2025, 50)
	ing := newIngredient(t, db, "Rice")
	school := newSchool(t, db, "GS Ruhanga")

	addPurchase(t, db, w.ID, ing.ID, 500, 2560) // 1,280,000
	addProduction(t, db, w.ID, school.ID, 7495)
	addIndirectCost(t, db, 12, 2025, models.CostSalaries, 13113063)
	addIndirectCost(t, db, 12, 2025, models.CostTransport, 540000)

	var summary models.MonthlySummary
	require.NoError(t, db.Where("month = ? AND year = ?", 12, 2025).First(&summary).Error)
	requireDecimal(t, "13653063", summary.TotalIndirectCosts, "total indirect costs")
	require.Equal(t, 7495, summary.TotalMealsProduced)
	requireDecimal(t, "1821.62", summary.OverheadPerMeal, "overhead per meal")

	got := reloadWeek(t, db, w.ID)
	requireDecimal(t, "170.78", got.CostPerMeal, "cost per meal")
	requireDecimal(t, "1821.62", got.OverheadPerMeal, "week overhead per meal")
	requireDecimal(t, "1992.40", got.TotalCPM, "all-in cost per meal")
}

// No productions yet: cost per meal stays zero instead of dividing by zero.
func TestZeroMealsGuard(t *testing.T) {
	db := testdb.Open(t)
	w := newWeek(t, db, 12, 2025, 50)
	ing := newIngredient(t, db, "Rice")

	addPurchase(t, db, w.ID, ing.ID, 500, 1200)
	addIndirectCost(t, db, 12, 2025, models.CostSalaries, 100000)

	got := reloadWeek(t, db, w.ID)
	requireDecimal(t, "600000", got.IngredientCost, "ingredient cost")
	requireDecimal(t, "0", got.CostPerMeal, "cost per meal")

	var summary models.MonthlySummary
	require.NoError(t, db.Where("month = ? AND year = ?", 12, 2025).First(&summary).Error)
	requireDecimal(t, "0", summary.OverheadPerMeal, "overhead per meal")
}

// Recompute is pure re-derivation: running it again changes nothing, and a
// deleted summary row is rebuilt to the same values.
func TestRecomputeIdempotentAndRebuildable(t *testing.T) {
	db := testdb.Open(t)
	w := newWeek(t, db, 12, 2025, 50)
	ing := newIngredient(t, db, "Rice")
	school := newSchool(t, db, "GS Ruhanga")

	addPurchase(t, db, w.ID, ing.ID, 100, 1000)
	addProduction(t, db, w.ID, school.ID, 250)
	addIndirectCost(t, db, 12, 2025, models.CostOther, 50000)

	before := reloadWeek(t, db, w.ID)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := RecomputeWeek(tx, w.ID); err != nil {
			return err
		}
		return RecomputeMonth(tx, 12, 2025)
	}))

	after := reloadWeek(t, db, w.ID)
	require.True(t, before.IngredientCost.Equal(after.IngredientCost))
	require.True(t, before.CostPerMeal.Equal(after.CostPerMeal))
	require.True(t, before.OverheadPerMeal.Equal(after.OverheadPerMeal))
	require.True(t, before.TotalCPM.Equal(after.TotalCPM))

	var summaryBefore models.MonthlySummary
	require.NoError(t, db.Where("month = ? AND year = ?", 12, 2025).First(&summaryBefore).Error)
	require.NoError(t, db.Delete(&summaryBefore).Error)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return RecomputeMonth(tx, 12, 2025)
	}))

	var rebuilt models.MonthlySummary
	require.NoError(t, db.Where("month = ? AND year = ?", 12, 2025).First(&rebuilt).Error)
	require.True(t, summaryBefore.TotalIndirectCosts.Equal(rebuilt.TotalIndirectCosts))
	require.Equal(t, summaryBefore.TotalMealsProduced, rebuilt.TotalMealsProduced)
	require.True(t, summaryBefore.OverheadPerMeal.Equal(rebuilt.OverheadPerMeal))
}

// Growing a purchase from 500kg to 600kg moves both the row and the week in
// the same mutation.
func TestPurchaseUpdateRecomputesWeek(t *testing.T) {
	db := testdb.Open(t)
	w := newWeek(t, db, 12, 2025, 50)
	ing := newIngredient(t, db, "Rice")
	school := newSchool(t, db, "GS Ruhanga")

	addPurchase(t, db, w.ID, ing.ID, 500, 1200)
	addProduction(t, db, w.ID, school.ID, 1000)

	var p models.Purchase
	require.NoError(t, db.Where("week_id = ?", w.ID).First(&p).Error)

	p.Quantity = 600
	p.TotalPrice = p.UnitPrice.Mul(decimal.NewFromFloat(p.Quantity)).Round(2)
	require.NoError(t, PurchaseChanged(db, w.ID, func(tx *gorm.DB) error {
		return tx.Save(&p).Error
	}))

	var updated models.Purchase
	require.NoError(t, db.First(&updated, "id = ?", p.ID).Error)
	requireDecimal(t, "720000", updated.TotalPrice, "total price")

	got := reloadWeek(t, db, w.ID)
	requireDecimal(t, "720000", got.IngredientCost, "ingredient cost")
	requireDecimal(t, "720", got.CostPerMeal, "cost per meal")
}

// Deleting the last production drops meals served to zero, not to a stale
// nonzero leftover.
func TestDeleteLastProduction(t *testing.T) {
	db := testdb.Open(t)
	w := newWeek(t, db, 12, 2025, 50)
	ing := newIngredient(t, db, "Rice")
	school := newSchool(t, db, "GS Ruhanga")

	addPurchase(t, db, w.ID, ing.ID, 100, 1000)
	addProduction(t, db, w.ID, school.ID, 500)

	mid := reloadWeek(t, db, w.ID)
	require.Equal(t, 500, mid.MealsServed)
	requireDecimal(t, "200", mid.CostPerMeal, "cost per meal")

	var p models.Production
	require.NoError(t, db.Where("week_id = ?", w.ID).First(&p).Error)
	require.NoError(t, ProductionChanged(db, w.ID, func(tx *gorm.DB) error {
		return tx.Delete(&models.Production{}, "id = ?", p.ID).Error
	}))

	got := reloadWeek(t, db, w.ID)
	require.Equal(t, 0, got.MealsServed)
	requireDecimal(t, "0", got.CostPerMeal, "cost per meal")
	requireDecimal(t, "100000", got.IngredientCost, "ingredient cost")
}

// Zeroing the cached week fields and recomputing restores them exactly.
func TestWeekCacheRebuild(t *testing.T) {
	db := testdb.Open(t)
	w := newWeek(t, db, 12, 2025, 50)
	ing := newIngredient(t, db, "Rice")
	school := newSchool(t, db, "GS Ruhanga")

	addPurchase(t, db, w.ID, ing.ID, 500, 1200)
	addProduction(t, db, w.ID, school.ID, 3000)
	before := reloadWeek(t, db, w.ID)

	require.NoError(t, db.Model(&models.Week{}).Where("id = ?", w.ID).Updates(map[string]interface{}{
		"ingredient_cost": decimal.Zero,
		"meals_served":    0,
		"cost_per_meal":   decimal.Zero,
		"total_cpm":       decimal.Zero,
	}).Error)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return RecomputeWeek(tx, w.ID)
	}))

	after := reloadWeek(t, db, w.ID)
	require.True(t, before.IngredientCost.Equal(after.IngredientCost))
	require.Equal(t, before.MealsServed, after.MealsServed)
	require.True(t, before.CostPerMeal.Equal(after.CostPerMeal))
	require.True(t, before.TotalCPM.Equal(after.TotalCPM))
}

// A failing mutation rolls back without touching the aggregates.
func TestMutationRollback(t *testing.T) {
	db := testdb.Open(t)
	w := newWeek(t, db, 12, 2025, 50)
	ing := newIngredient(t, db, "Rice")

	addPurchase(t, db, w.ID, ing.ID, 100, 1000)
	before := reloadWeek(t, db, w.ID)

	err := PurchaseChanged(db, w.ID, func(tx *gorm.DB) error {
		p := models.Purchase{
			WeekID:       w.ID,
			IngredientID: ing.ID,
			PurchaseDate: time.Now().UTC(),
			Quantity:     1,
			UnitPrice:    decimal.NewFromInt(1),
			TotalPrice:   decimal.NewFromInt(1),
			CreatedBy:    1,
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	after := reloadWeek(t, db, w.ID)
	require.True(t, before.IngredientCost.Equal(after.IngredientCost), "aggregate changed after rollback")

	var count int64
	require.NoError(t, db.Model(&models.Purchase{}).Where("week_id = ?", w.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

// The purchase path must queue behind a month recompute: both write the same
// Week row (the month phase pushes overhead and total_cpm into every week of
// the month), so they serialize through the month key.
func TestPurchaseWaitsForMonthRecompute(t *testing.T) {
	db := testdb.Open(t)
	w := newWeek(t, db, 12, 2025, 50)
	ing := newIngredient(t, db, "Rice")

	unlock := aggLocks.Lock(monthKey(12, 2025))

	done := make(chan error, 1)
	go func() {
		done <- PurchaseChanged(db, w.ID, func(tx *gorm.DB) error {
			p := models.Purchase{
				WeekID:       w.ID,
				IngredientID: ing.ID,
				PurchaseDate: time.Now().UTC(),
				Quantity:     100,
				UnitPrice:    decimal.NewFromInt(1000),
				TotalPrice:   decimal.NewFromInt(100000),
				CreatedBy:    1,
			}
			return tx.Create(&p).Error
		})
	}()

	select {
	case <-done:
		unlock()
		t.Fatal("purchase recompute ran while the month recompute lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	require.NoError(t, <-done)

	got := reloadWeek(t, db, w.ID)
	requireDecimal(t, "100000", got.IngredientCost, "ingredient cost")
}

// Interleaved purchase and indirect-cost mutations keep the at-rest invariant
// total_cpm == cost_per_meal + overhead_per_meal on the shared week.
func TestMixedMutationsKeepTotalCPMConsistent(t *testing.T) {
	db := testdb.Open(t)
	w := newWeek(t, db, 12, 2025, 50)
	ing := newIngredient(t, db, "Rice")
	school := newSchool(t, db, "GS Ruhanga")

	addProduction(t, db, w.ID, school.ID, 1000)

	const rounds = 5
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			p := models.Purchase{
				WeekID:       w.ID,
				IngredientID: ing.ID,
				PurchaseDate: time.Now().UTC(),
				Quantity:     10,
				UnitPrice:    decimal.NewFromInt(100),
				TotalPrice:   decimal.NewFromInt(1000),
				CreatedBy:    1,
			}
			errs <- PurchaseChanged(db, w.ID, func(tx *gorm.DB) error {
				return tx.Create(&p).Error
			})
		}()
		go func() {
			defer wg.Done()
			ic := models.IndirectCost{
				Month:       12,
				Year:        2025,
				Category:    models.CostOther,
				Description: "test",
				Amount:      decimal.NewFromInt(20000),
				CreatedBy:   1,
			}
			errs <- IndirectCostChanged(db, 12, 2025, func(tx *gorm.DB) error {
				return tx.Create(&ic).Error
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := reloadWeek(t, db, w.ID)
	requireDecimal(t, "5000", got.IngredientCost, "ingredient cost")
	requireDecimal(t, "5", got.CostPerMeal, "cost per meal")
	requireDecimal(t, "100", got.OverheadPerMeal, "overhead per meal")
	require.True(t, got.TotalCPM.Equal(got.CostPerMeal.Add(got.OverheadPerMeal)),
		"total_cpm %s != cost_per_meal %s + overhead_per_meal %s",
		got.TotalCPM, got.CostPerMeal, got.OverheadPerMeal)
}

// Concurrent purchases against the same week settle on the exact total.
func TestConcurrentPurchases(t *testing.T) {
	db := testdb.Open(t)
	w := newWeek(t, db, 12, 2025, 50)
	ing := newIngredient(t, db, "Rice")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := models.Purchase{
				WeekID:       w.ID,
				IngredientID: ing.ID,
				PurchaseDate: time.Now().UTC(),
				Quantity:     10,
				UnitPrice:    decimal.NewFromInt(100),
				TotalPrice:   decimal.NewFromInt(1000),
				CreatedBy:    1,
			}
			errs <- PurchaseChanged(db, w.ID, func(tx *gorm.DB) error {
				return tx.Create(&p).Error
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := reloadWeek(t, db, w.ID)
	requireDecimal(t, "8000", got.IngredientCost, "ingredient cost")
}
