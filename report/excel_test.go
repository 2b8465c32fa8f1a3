package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/pricing-engine/pricing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestWriteAllocationRoundTrip(t *testing.T) {
	// GIVEN a two-item allocation result
	result := &pricing.AllocationResult{
		ShipmentID: "sh-1",
		Basis:      pricing.BasisValue,
		Items: []pricing.LandedCostBreakdown{
			{
				ItemID: "pad-100", Quantity: 10,
				FOBTotal: dec("300"), FreightShare: dec("30"),
				CIF: dec("330"), LandedTotalUSD: dec("330"),
				UnitLandedUSD: dec("33"), UnitLandedLocal: dec("33"),
				CurrentMargin: dec("0.5"), Alert: pricing.AlertGreen,
			},
			{
				ItemID: "rot-200", Quantity: 5,
				FOBTotal: dec("250"), FreightShare: dec("25"),
				CIF: dec("275"), LandedTotalUSD: dec("275"),
				UnitLandedUSD: dec("55"), UnitLandedLocal: dec("55"),
				CurrentMargin: dec("0.4"), Alert: pricing.AlertYellow,
			},
		},
		Totals: pricing.ShipmentTotals{
			FOB: dec("550"), Freight: dec("55"), CIF: dec("605"),
			NonRecoverable: dec("605"),
		},
	}

	// WHEN writing the workbook
	var buf bytes.Buffer
	require.NoError(t, WriteAllocation(&buf, result))

	// THEN it opens and carries a header, two item rows, and a total row
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Landed Cost")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Item", rows[0][0])
	assert.Equal(t, "pad-100", rows[1][0])
	assert.Equal(t, "rot-200", rows[2][0])
	assert.Equal(t, "TOTAL", rows[3][0])
}

func TestWriteLotRoundTrip(t *testing.T) {
	// GIVEN an applied lot with one entry
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	lot := &pricing.PriceChangeLot{
		ID:              "lot-1",
		Description:     "spring adjustment",
		Applied:         true,
		ItemCount:       1,
		AvgMarginBefore: dec("0.40"),
		AvgMarginAfter:  dec("0.45"),
		CreatedAt:       now,
		Entries: []pricing.PriceChangeEntry{
			{ItemID: "pad-100", PriceBefore: dec("100"), PriceAfter: dec("110")},
		},
	}

	// WHEN writing the audit workbook
	var buf bytes.Buffer
	require.NoError(t, WriteLot(&buf, lot))

	// THEN the metadata block and entry row survive a read-back
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Price Changes")
	require.NoError(t, err)
	assert.Equal(t, "Lot", rows[0][0])
	assert.Equal(t, "lot-1", rows[0][1])

	last := rows[len(rows)-1]
	assert.Equal(t, "pad-100", last[0])
	assert.Equal(t, "10", last[3]) // +10% change
}

func TestChangePercentZeroBase(t *testing.T) {
	assert.True(t, changePercent(dec("0"), dec("50")).IsZero())
}
