// Package export renders comparison tables and priced bid sheets as CSV or
// Excel workbooks for offline review.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/cloudx-io/opentender/core"
)

const defaultSheet = "Sheet1"

// Table is a named grid of string cells with a header row.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// ComparisonTable lays out a bid comparison, one row per selected bid.
func ComparisonTable(table *core.ComparisonTable) Table {
	t := Table{
		Name: "Comparison",
		Headers: []string{
			"Bid ID", "Bidder", "Company", "Bid Amount", "Timeline (days)",
			"Overall Score", "Experience", "Insurance", "Within Budget",
		},
	}

	for _, row := range table.Rows {
		score := ""
		if row.OverallScore != nil {
			score = strconv.Itoa(*row.OverallScore)
		}
		t.Rows = append(t.Rows, []string{
			row.BidID,
			row.BidderID,
			row.CompanyName,
			row.BidAmount.StringFixed(2),
			strconv.Itoa(row.TimelineDays),
			score,
			row.ExperienceSummary,
			row.InsuranceCoverage,
			yesNo(row.WithinBudget),
		})
	}
	return t
}

// BidSheet lists a bid's line items grouped by category, followed by the
// subtotal, tax and grand total rows.
func BidSheet(bid core.Bid, totals core.BidTotals) Table {
	t := Table{
		Name: "Bid " + bid.ID,
		Headers: []string{
			"Category", "Line", "Description", "Specification", "Quantity",
			"Unit", "Unit Price", "Total", "Notes",
		},
	}

	for _, group := range core.GroupByCategory(bid.LineItems) {
		for _, item := range group.Items {
			quantity := ""
			if item.Quantity.Valid {
				quantity = item.Quantity.Decimal.String()
			}
			t.Rows = append(t.Rows, []string{
				group.Category,
				strconv.Itoa(item.LineNumber),
				item.ItemDescription,
				item.Specification,
				quantity,
				item.UnitOfMeasure,
				item.UnitPrice.StringFixed(2),
				item.Total.StringFixed(2),
				item.Notes,
			})
		}
	}

	t.Rows = append(t.Rows,
		summaryRow(len(t.Headers), "Subtotal", totals.Subtotal.StringFixed(2)),
		summaryRow(len(t.Headers), "Tax", totals.Tax.StringFixed(2)),
		summaryRow(len(t.Headers), "Grand Total", totals.GrandTotal.StringFixed(2)),
	)
	return t
}

// summaryRow puts label in the description column and value in the total column.
func summaryRow(width int, label, value string) []string {
	row := make([]string, width)
	row[2] = label
	row[7] = value
	return row
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// WriteCSV writes the table as CSV.
func (t Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteExcel writes the table as a single-sheet xlsx workbook.
func (t Table) WriteExcel(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := sanitizeSheetName(t.Name)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for rowIdx, row := range t.Rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}

	if len(t.Headers) > 0 {
		last, err := excelize.ColumnNumberToName(len(t.Headers))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, "A", last, 18); err != nil {
			return err
		}
	}

	if sheetName != defaultSheet {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// sanitizeSheetName drops characters Excel forbids in sheet names and
// truncates to the 31 character limit.
func sanitizeSheetName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		out = append(out, r)
	}
	if len(out) > 31 {
		out = out[:31]
	}
	if len(out) == 0 {
		return defaultSheet
	}
	return string(out)
}
