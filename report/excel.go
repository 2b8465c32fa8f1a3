/*
Package report builds Excel workbooks for costing and pricing results.

PURPOSE:
  Turns allocation results and price-change lots into .xlsx files that
  finance staff review offline. Purely presentational; all numbers are
  computed upstream and written as-is.

SEE ALSO:
  - pricing/allocation.go: Source of allocation rows
  - pricing/lot.go: Source of lot audit rows
  - api/handlers.go: Export endpoints streaming these workbooks
*/
package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/pricing-engine/pricing"
)

const allocationSheet = "Landed Cost"
const lotSheet = "Price Changes"

var allocationHeader = []string{
	"Item", "Qty", "FOB Total", "Freight", "Insurance", "Duty", "Stat. Tax",
	"Logistics", "CIF", "Landed (USD)", "Unit Landed (USD)", "Unit Landed (Local)",
	"Margin", "Alert",
}

var lotHeader = []string{
	"Item", "Price Before", "Price After", "Change %", "Unresolved",
}

// WriteAllocation renders one row per shipment item plus a totals row.
func WriteAllocation(w io.Writer, result *pricing.AllocationResult) error {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), allocationSheet)

	if err := writeRow(f, allocationSheet, 1, toCells(allocationHeader)); err != nil {
		return err
	}
	for i, b := range result.Items {
		cells := []any{
			string(b.ItemID),
			b.Quantity,
			cellDec(b.FOBTotal),
			cellDec(b.FreightShare),
			cellDec(b.InsuranceShare),
			cellDec(b.DutyShare),
			cellDec(b.StatisticalTaxShare),
			cellDec(b.LogisticsShare),
			cellDec(b.CIF),
			cellDec(b.LandedTotalUSD),
			cellDec(b.UnitLandedUSD),
			cellDec(b.UnitLandedLocal),
			cellDec(b.CurrentMargin),
			string(b.Alert),
		}
		if err := writeRow(f, allocationSheet, i+2, cells); err != nil {
			return err
		}
	}

	t := result.Totals
	totals := []any{
		"TOTAL", nil,
		cellDec(t.FOB),
		cellDec(t.Freight),
		cellDec(t.Insurance),
		cellDec(t.Duty),
		cellDec(t.StatisticalTax),
		cellDec(t.Logistics),
		cellDec(t.CIF),
		cellDec(t.NonRecoverable),
	}
	if err := writeRow(f, allocationSheet, len(result.Items)+2, totals); err != nil {
		return err
	}

	if err := f.SetColWidth(allocationSheet, "A", "A", 18); err != nil {
		return err
	}
	if err := f.SetColWidth(allocationSheet, "B", "N", 14); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteLot renders the audit sheet for an applied or previewed lot.
func WriteLot(w io.Writer, lot *pricing.PriceChangeLot) error {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName(f.GetSheetName(0), lotSheet)

	meta := [][]any{
		{"Lot", string(lot.ID)},
		{"Description", lot.Description},
		{"Applied", lot.Applied},
		{"Reverted", lot.Reverted},
		{"Avg Margin Before", cellDec(lot.AvgMarginBefore)},
		{"Avg Margin After", cellDec(lot.AvgMarginAfter)},
	}
	for i, row := range meta {
		if err := writeRow(f, lotSheet, i+1, row); err != nil {
			return err
		}
	}

	headerRow := len(meta) + 2
	if err := writeRow(f, lotSheet, headerRow, toCells(lotHeader)); err != nil {
		return err
	}
	for i, e := range lot.Entries {
		cells := []any{
			string(e.ItemID),
			cellDec(e.PriceBefore),
			cellDec(e.PriceAfter),
			cellDec(changePercent(e.PriceBefore, e.PriceAfter)),
			e.Unresolved,
		}
		if err := writeRow(f, lotSheet, headerRow+1+i, cells); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(lotSheet, "A", "E", 18); err != nil {
		return err
	}
	return f.Write(w)
}

func changePercent(before, after decimal.Decimal) decimal.Decimal {
	if before.IsZero() {
		return decimal.Zero
	}
	return after.Sub(before).Div(before).Mul(decimal.NewFromInt(100)).Round(2)
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func toCells(header []string) []any {
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	return cells
}

// cellDec writes decimals as floats so spreadsheet formulas work on them.
func cellDec(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
