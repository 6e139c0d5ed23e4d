package week

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mealcost-backend/internal/models"
)

// Number returns the week number for a date using the Sunday-anchored scheme
// the stored data was built with: ceil((dayOfYear + weekday(Jan 1) + 1) / 7),
// where dayOfYear is 0-based and Sunday = 0. This is deliberately not
// ISO-8601; swapping in ISO weeks would shift every historical row.
func Number(date time.Time) int {
	jan1 := time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, date.Location())
	pastDays := date.YearDay() - 1
	n := pastDays + int(jan1.Weekday()) + 1
	return (n + 6) / 7
}

// Dates is the inverse of Number: the start date of a week, and its end date
// weekLength-1 days later (7 for the full Sun-Sat week, 5 for Mon-Fri
// production scheduling).
func Dates(year, weekNumber, weekLength int) (time.Time, time.Time) {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	daysToAdd := (weekNumber-1)*7 - int(jan1.Weekday()) + 1
	start := jan1.AddDate(0, 0, daysToAdd)
	end := start.AddDate(0, 0, weekLength-1)
	return start, end
}

// Descriptor describes a week of a month before it is materialized.
type Descriptor struct {
	WeekNumber int
	StartDate  time.Time
	EndDate    time.Time
}

// InMonth enumerates the weeks whose days cover the given month.
func InMonth(year, month, weekLength int) []Descriptor {
	firstDay := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	lastDay := firstDay.AddDate(0, 1, -1)

	var weeks []Descriptor
	for current := firstDay; !current.After(lastDay); current = current.AddDate(0, 0, 7) {
		num := Number(current)
		start, end := Dates(year, num, weekLength)
		weeks = append(weeks, Descriptor{WeekNumber: num, StartDate: start, EndDate: end})
	}
	return weeks
}

// GetOrCreate resolves a date to its Week row, inserting a zeroed row on first
// reference. The (year, week_number) unique index plus ON CONFLICT DO NOTHING
// makes concurrent first references converge on a single row.
func GetOrCreate(db *gorm.DB, date time.Time, weekLength int) (*models.Week, error) {
	year := date.Year()
	num := Number(date)

	var w models.Week
	err := db.Where("year = ? AND week_number = ?", year, num).First(&w).Error
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	start, end := Dates(year, num, weekLength)
	w = models.Week{
		Month:           int(date.Month()),
		Year:            year,
		WeekNumber:      num,
		StartDate:       start,
		EndDate:         end,
		MealsServed:     0,
		IngredientCost:  decimal.Zero,
		CostPerMeal:     decimal.Zero,
		OverheadPerMeal: decimal.Zero,
		TotalCPM:        decimal.Zero,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "year"}, {Name: "week_number"}},
		DoNothing: true,
	}).Create(&w).Error; err != nil {
		return nil, err
	}

	// re-read: a concurrent request may have won the insert
	if err := db.Where("year = ? AND week_number = ?", year, num).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}
