package week

import (
	"testing"
	"time"

	"mealcost-backend/internal/testdb"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNumber(t *testing.T) {
	cases := []struct {
		date time.Time
		want int
	}{
		// 2025 starts on a Wednesday
		{date(2025, time.January, 1), 1},
		{date(2025, time.January, 4), 1},  // Saturday, still week 1
		{date(2025, time.January, 5), 2},  // Sunday rolls over
		{date(2025, time.December, 9), 50},
		// 2023 starts on a Sunday
		{date(2023, time.January, 1), 1},
		{date(2023, time.January, 7), 1},
		{date(2023, time.January, 8), 2},
	}
	for _, c := range cases {
		if got := Number(c.date); got != c.want {
			t.Errorf("Number(%s) = %d, want %d", c.date.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestDates(t *testing.T) {
	// week 50 of 2025 starts December 8
	start, end := Dates(2025, 50, 7)
	if !start.Equal(date(2025, time.December, 8)) {
		t.Errorf("start = %s, want 2025-12-08", start.Format("2006-01-02"))
	}
	if !end.Equal(date(2025, time.December, 14)) {
		t.Errorf("end = %s, want 2025-12-14", end.Format("2006-01-02"))
	}

	// 5-day operational week ends on Friday
	_, end5 := Dates(2025, 50, 5)
	if !end5.Equal(date(2025, time.December, 12)) {
		t.Errorf("5-day end = %s, want 2025-12-12", end5.Format("2006-01-02"))
	}

	// week 1 can reach back into the previous year
	start1, _ := Dates(2025, 1, 7)
	if !start1.Equal(date(2024, time.December, 30)) {
		t.Errorf("week 1 start = %s, want 2024-12-30", start1.Format("2006-01-02"))
	}
}

func TestDatesCoverNumber(t *testing.T) {
	// every day of a week that lies fully inside the year maps back to it
	for _, weekNum := range []int{10, 25, 40} {
		start, end := Dates(2025, weekNum, 7)
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if d.Year() != 2025 {
				continue
			}
			got := Number(d)
			if got != weekNum && got != weekNum+1 {
				t.Errorf("Number(%s) = %d, want %d or %d", d.Format("2006-01-02"), got, weekNum, weekNum+1)
			}
		}
	}
}

func TestInMonth(t *testing.T) {
	weeks := InMonth(2025, 9, 7)
	if len(weeks) != 5 {
		t.Fatalf("September 2025 should span 5 weeks, got %d", len(weeks))
	}
	if weeks[0].WeekNumber != 36 || weeks[4].WeekNumber != 40 {
		t.Errorf("week numbers = %d..%d, want 36..40", weeks[0].WeekNumber, weeks[4].WeekNumber)
	}
}

func TestGetOrCreateIdempotent(t *testing.T) {
	db := testdb.Open(t)

	d := date(2025, time.December, 9)
	first, err := GetOrCreate(db, d, 7)
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	if first.WeekNumber != 50 || first.Year != 2025 || first.Month != 12 {
		t.Fatalf("week = %d/%d month %d, want 50/2025 month 12", first.WeekNumber, first.Year, first.Month)
	}
	if !first.IngredientCost.IsZero() || first.MealsServed != 0 {
		t.Error("fresh week must start zeroed")
	}

	// another date in the same week resolves to the same row
	second, err := GetOrCreate(db, date(2025, time.December, 11), 7)
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("same week resolved to two rows: %d and %d", first.ID, second.ID)
	}
}
