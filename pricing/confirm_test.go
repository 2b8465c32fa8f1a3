package pricing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pricing-engine/pricing"
	"github.com/warp/pricing-engine/pricing/store"
)

func seededShipment(t *testing.T) (*store.Memory, *pricing.CostService) {
	t.Helper()
	mem := seededStore(t)
	ctx := context.Background()
	ship := []pricing.ShipmentItem{
		{ShipmentID: "SHP-9", ItemID: "brk-001", Quantity: 4, FOBUnitPrice: dec("120")},
		{ShipmentID: "SHP-9", ItemID: "flt-002", Quantity: 50, FOBUnitPrice: dec("3.2")},
	}
	for _, si := range ship {
		require.NoError(t, mem.PutShipmentItem(ctx, si))
	}
	svc := pricing.NewCostService(mem)
	svc.Now = func() time.Time { return time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC) }
	return mem, svc
}

func importParams() pricing.CostParameters {
	p := baseParams()
	p.ExchangeRate = dec("3.5")
	p.FreightTotal = dec("80")
	p.InsuranceTotal = dec("12")
	p.DutyRate = dec("0.08")
	p.StatisticalTaxRate = dec("0.03")
	p.VATRate = dec("0.21")
	return p
}

func TestCostService_ComputeIsReadOnly(t *testing.T) {
	mem, svc := seededShipment(t)
	ctx := context.Background()

	result, err := svc.Compute(ctx, "SHP-9", importParams())
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	// Catalog costs untouched until confirmation.
	item, err := mem.GetItem(ctx, "brk-001")
	require.NoError(t, err)
	assert.True(t, item.Cost.Equal(dec("1000")))
	assert.Empty(t, mem.CostAudit())
}

func TestCostService_ComputeUnknownShipment(t *testing.T) {
	_, svc := seededShipment(t)
	_, err := svc.Compute(context.Background(), "SHP-NOPE", importParams())
	assert.ErrorIs(t, err, pricing.ErrShipmentNotFound)
}

func TestCostService_ConfirmWritesCostsOnce(t *testing.T) {
	mem, svc := seededShipment(t)
	ctx := context.Background()

	result, err := svc.Compute(ctx, "SHP-9", importParams())
	require.NoError(t, err)

	updated, err := svc.Confirm(ctx, result)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	for _, b := range result.Items {
		item, err := mem.GetItem(ctx, b.ItemID)
		require.NoError(t, err)
		assert.True(t, item.Cost.Equal(b.UnitLandedLocal), "item %s cost %s want %s", b.ItemID, item.Cost, b.UnitLandedLocal)
	}

	audit := mem.CostAudit()
	require.Len(t, audit, 2)
	assert.True(t, audit[0].CostBefore.Equal(dec("1000")) || audit[1].CostBefore.Equal(dec("1000")))
}

func TestCostService_ConfirmIsIdempotent(t *testing.T) {
	// GIVEN: A confirmed allocation
	// WHEN:  Confirming the identical result again on the unchanged catalog
	// THEN:  Zero items update and no new audit lines appear

	mem, svc := seededShipment(t)
	ctx := context.Background()

	result, err := svc.Compute(ctx, "SHP-9", importParams())
	require.NoError(t, err)

	first, err := svc.Confirm(ctx, result)
	require.NoError(t, err)
	require.Equal(t, 2, first)

	second, err := svc.Confirm(ctx, result)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
	assert.Len(t, mem.CostAudit(), 2)
}
