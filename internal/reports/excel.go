package reports

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"

	"mealcost-backend/internal/database"
)

// GET /api/reports/monthly/:month/:year/export
// Streams the monthly report as an xlsx workbook: a summary sheet, one row per
// week, and the indirect cost breakdown.
func ExportMonthlyReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		month, year, err := parseMonthYear(c)
		if err != nil {
			return err
		}
		rpt, err := buildMonthlyReport(database.DB, month, year)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be generated")
		}

		f := excelize.NewFile()
		defer f.Close()

		summarySheet := "Summary"
		f.SetSheetName("Sheet1", summarySheet)
		f.SetCellValue(summarySheet, "A1", "Monthly Cost Report")
		f.SetCellValue(summarySheet, "B1", fmt.Sprintf("%02d/%d", month, year))

		rows := [][2]interface{}{
			{"Meals Served", rpt.Totals.MealsServed},
			{"Ingredient Cost (RWF)", rpt.Totals.IngredientCost.StringFixed(2)},
			{"Indirect Costs (RWF)", rpt.Totals.TotalIndirectCosts.StringFixed(2)},
			{"Total Costs (RWF)", rpt.Totals.TotalCosts.StringFixed(2)},
			{"Avg Cost Per Meal (RWF)", rpt.Totals.AvgCostPerMeal.StringFixed(2)},
		}
		if rpt.Summary != nil {
			rows = append(rows,
				[2]interface{}{"Overhead Per Meal (RWF)", rpt.Summary.OverheadPerMeal.StringFixed(2)},
				[2]interface{}{"Total Meals Produced", rpt.Summary.TotalMealsProduced},
			)
		}
		for i, r := range rows {
			f.SetCellValue(summarySheet, "A"+fmt.Sprint(i+3), r[0])
			f.SetCellValue(summarySheet, "B"+fmt.Sprint(i+3), r[1])
		}

		weekSheet := "Weeks"
		f.NewSheet(weekSheet)
		headers := []string{"Week", "Start", "End", "Meals Served", "Ingredient Cost", "Cost Per Meal", "Overhead Per Meal", "Total CPM"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(weekSheet, cell, h)
		}
		for i, w := range rpt.Weeks {
			values := []interface{}{
				w.WeekNumber,
				w.StartDate.Format("2006-01-02"),
				w.EndDate.Format("2006-01-02"),
				w.MealsServed,
				w.IngredientCost.StringFixed(2),
				w.CostPerMeal.StringFixed(2),
				w.OverheadPerMeal.StringFixed(2),
				w.TotalCPM.StringFixed(2),
			}
			for j, v := range values {
				cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
				f.SetCellValue(weekSheet, cell, v)
			}
		}

		indirectSheet := "Indirect Costs"
		f.NewSheet(indirectSheet)
		f.SetCellValue(indirectSheet, "A1", "Category")
		f.SetCellValue(indirectSheet, "B1", "Amount (RWF)")
		for i, b := range rpt.IndirectBreakdown {
			f.SetCellValue(indirectSheet, "A"+fmt.Sprint(i+2), string(b.Category))
			f.SetCellValue(indirectSheet, "B"+fmt.Sprint(i+2), b.Amount.StringFixed(2))
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report file could not be written")
		}

		filename := fmt.Sprintf("monthly-report-%d-%02d.xlsx", year, month)
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
		return c.Send(buf.Bytes())
	}
}
