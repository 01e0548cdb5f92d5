package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// progressTo walks a fresh pending order through the legal path until the
// target fulfillment status is reached
func progressTo(t *testing.T, order *Order, target FulfillmentStatus) *Order {
	t.Helper()

	current := order
	var err error
	if current.Status == OrderStatusPending {
		current, err = current.Confirm("user-1")
		require.NoError(t, err)
	}
	if current.FulfillmentStatus == target {
		return current
	}

	steps := []struct {
		status  FulfillmentStatus
		advance func(*Order) (*Order, error)
	}{
		{FulfillmentPicking, func(o *Order) (*Order, error) { return o.StartPicking("user-1", "") }},
		{FulfillmentPacked, func(o *Order) (*Order, error) { return o.CompletePacking("user-1") }},
		{FulfillmentShipped, func(o *Order) (*Order, error) { return o.Ship("user-1", "TRK-1", "TCS") }},
		{FulfillmentDelivered, func(o *Order) (*Order, error) { return o.Deliver("user-1", "gate clerk") }},
	}
	for _, step := range steps {
		current, err = step.advance(current)
		require.NoError(t, err)
		if current.FulfillmentStatus == target {
			return current
		}
	}
	t.Fatalf("could not progress to %s", target)
	return nil
}

func TestFulfillmentTransitions(t *testing.T) {
	order, err := NewOrder(testOrderParams(t))
	require.NoError(t, err)
	confirmed, err := order.Confirm("user-1")
	require.NoError(t, err)

	t.Run("full happy path keeps both axes in lockstep", func(t *testing.T) {
		picking, err := confirmed.StartPicking("user-1", "Bilal")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentPicking, picking.FulfillmentStatus)
		assert.Equal(t, OrderStatusProcessing, picking.Status)

		picked, err := picking.CompletePicking("user-1", "all lines picked")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentPicking, picked.FulfillmentStatus)

		packing, err := picked.StartPacking("user-1")
		require.NoError(t, err)

		packed, err := packing.CompletePacking("user-1")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentPacked, packed.FulfillmentStatus)
		assert.Equal(t, OrderStatusProcessing, packed.Status)

		shipped, err := packed.Ship("user-1", "TRK-900", "Leopard")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentShipped, shipped.FulfillmentStatus)
		assert.Equal(t, OrderStatusShipped, shipped.Status)
		assert.Equal(t, "TRK-900", shipped.FulfillmentAudit[len(shipped.FulfillmentAudit)-1].Metadata["trackingNumber"])

		delivered, err := shipped.Deliver("user-1", "store keeper")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentDelivered, delivered.FulfillmentStatus)
		assert.Equal(t, OrderStatusDelivered, delivered.Status)

		// six transitions, six audit entries, in order
		require.Len(t, delivered.FulfillmentAudit, 6)
		assert.Equal(t, ActionPickingStarted, delivered.FulfillmentAudit[0].ActionType)
		assert.Equal(t, ActionDelivered, delivered.FulfillmentAudit[5].ActionType)
	})

	t.Run("each transition appends exactly one audit entry and leaves the receiver unchanged", func(t *testing.T) {
		before := len(confirmed.FulfillmentAudit)
		picking, err := confirmed.StartPicking("user-1", "")
		require.NoError(t, err)

		assert.Len(t, picking.FulfillmentAudit, before+1)
		assert.Len(t, confirmed.FulfillmentAudit, before)
		assert.Equal(t, FulfillmentPending, confirmed.FulfillmentStatus)
	})

	t.Run("illegal transitions rejected with typed error", func(t *testing.T) {
		tests := []struct {
			name string
			call func() (*Order, error)
		}{
			{"pick before confirm", func() (*Order, error) { return order.StartPicking("user-1", "") }},
			{"ship before packing", func() (*Order, error) {
				picking, err := confirmed.StartPicking("user-1", "")
				require.NoError(t, err)
				return picking.Ship("user-1", "", "")
			}},
			{"deliver before shipping", func() (*Order, error) {
				packed := progressTo(t, order, FulfillmentPacked)
				return packed.Deliver("user-1", "")
			}},
			{"complete packing before picking", func() (*Order, error) { return confirmed.CompletePacking("user-1") }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := tt.call()
				var statusErr *FulfillmentStatusError
				require.ErrorAs(t, err, &statusErr)
				assert.NotEmpty(t, statusErr.Attempted)
			})
		}
	})

	t.Run("delivered is terminal", func(t *testing.T) {
		delivered := progressTo(t, order, FulfillmentDelivered)

		_, err := delivered.StartPicking("user-1", "")
		assert.Error(t, err)
		_, err = delivered.RollbackFulfillment(FulfillmentPending, "user-1", "oops")
		assert.Error(t, err)
	})
}

func TestPartialFulfillment(t *testing.T) {
	order, err := NewOrder(testOrderParams(t))
	require.NoError(t, err)
	confirmed, err := order.Confirm("user-1")
	require.NoError(t, err)

	t.Run("partial order can resume picking and ship", func(t *testing.T) {
		picking, err := confirmed.StartPicking("user-1", "")
		require.NoError(t, err)

		partial, err := picking.MarkPartialFulfillment("user-1", "two lots short")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentPartial, partial.FulfillmentStatus)
		assert.Equal(t, OrderStatusProcessing, partial.Status)

		resumed, err := partial.StartPicking("user-1", "")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentPicking, resumed.FulfillmentStatus)

		shippedPartial, err := partial.Ship("user-1", "TRK-77", "TCS")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentShipped, shippedPartial.FulfillmentStatus)
	})

	t.Run("partial from pending", func(t *testing.T) {
		partial, err := confirmed.MarkPartialFulfillment("user-1", "supplier delay")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentPartial, partial.FulfillmentStatus)
	})

	t.Run("partial order can be packed directly", func(t *testing.T) {
		picking, err := confirmed.StartPicking("user-1", "")
		require.NoError(t, err)
		partial, err := picking.MarkPartialFulfillment("user-1", "one lot short")
		require.NoError(t, err)

		packed, err := partial.CompletePacking("user-1")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentPacked, packed.FulfillmentStatus)
		assert.Equal(t, OrderStatusProcessing, packed.Status)

		last := packed.FulfillmentAudit[len(packed.FulfillmentAudit)-1]
		assert.Equal(t, ActionPackingCompleted, last.ActionType)
		assert.Equal(t, FulfillmentPartial, last.PreviousStatus)
	})
}

func TestRollbackFulfillment(t *testing.T) {
	order, err := NewOrder(testOrderParams(t))
	require.NoError(t, err)

	t.Run("packed rolls back to picking with metadata", func(t *testing.T) {
		packed := progressTo(t, order, FulfillmentPacked)

		rolled, err := packed.RollbackFulfillment(FulfillmentPicking, "supervisor-1", "mispick found")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentPicking, rolled.FulfillmentStatus)
		assert.Equal(t, OrderStatusProcessing, rolled.Status)

		entry := rolled.FulfillmentAudit[len(rolled.FulfillmentAudit)-1]
		assert.Equal(t, ActionRollback, entry.ActionType)
		assert.Equal(t, FulfillmentPacked, entry.PreviousStatus)
		assert.Equal(t, "packed", entry.Metadata["rolledBackFrom"])
		assert.Equal(t, "mispick found", entry.Metadata["reason"])
	})

	t.Run("picking rolls back to pending and order returns to confirmed", func(t *testing.T) {
		picking := progressTo(t, order, FulfillmentPicking)

		rolled, err := picking.RollbackFulfillment(FulfillmentPending, "supervisor-1", "")
		require.NoError(t, err)
		assert.Equal(t, FulfillmentPending, rolled.FulfillmentStatus)
		assert.Equal(t, OrderStatusConfirmed, rolled.Status)
	})

	t.Run("illegal rollback targets", func(t *testing.T) {
		picking := progressTo(t, order, FulfillmentPicking)
		_, err := picking.RollbackFulfillment(FulfillmentPacked, "supervisor-1", "")
		assert.Error(t, err)

		shipped := progressTo(t, order, FulfillmentShipped)
		_, err = shipped.RollbackFulfillment(FulfillmentPacked, "supervisor-1", "")
		var statusErr *FulfillmentStatusError
		assert.ErrorAs(t, err, &statusErr)
	})
}

func TestRecordItemFulfillment(t *testing.T) {
	// one item: 5 boxes of 10 units
	order, err := NewOrder(testOrderParams(t))
	require.NoError(t, err)

	t.Run("partial then full", func(t *testing.T) {
		partial, err := order.RecordItemFulfillment("prod-1", 2, 0, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 20, partial.FulfilledUnits())
		assert.Equal(t, ItemStatusPartiallyFulfilled, partial.Items[0].Status)
		assert.True(t, partial.HasPartialFulfillment())
		assert.False(t, partial.IsFullyFulfilled())

		full, err := partial.RecordItemFulfillment("prod-1", 3, 0, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 50, full.FulfilledUnits())
		assert.Equal(t, ItemStatusFulfilled, full.Items[0].Status)
		assert.True(t, full.IsFullyFulfilled())

		// zero on the receiver
		assert.Equal(t, 0, order.FulfilledUnits())
	})

	t.Run("counters cap at ordered quantity", func(t *testing.T) {
		over, err := order.RecordItemFulfillment("prod-1", 7, 5, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 50, over.FulfilledUnits())
	})

	t.Run("unknown product rejected", func(t *testing.T) {
		_, err := order.RecordItemFulfillment("prod-x", 1, 0, "user-1")
		var unavailErr *ProductUnavailableError
		assert.ErrorAs(t, err, &unavailErr)
	})

	t.Run("negative quantities rejected", func(t *testing.T) {
		_, err := order.RecordItemFulfillment("prod-1", -1, 0, "user-1")
		assert.ErrorIs(t, err, ErrNegativeQuantity)
	})
}

func TestFulfillmentSummary(t *testing.T) {
	order, err := NewOrder(testOrderParams(t,
		testItem(t, "prod-1", 5, 0, 200),
		testItem(t, "prod-2", 0, 10, 150),
	))
	require.NoError(t, err)

	t.Run("zero-safe on untouched order", func(t *testing.T) {
		summary := order.GetFulfillmentSummary()
		assert.Equal(t, 60, summary.TotalUnits)
		assert.Equal(t, 0, summary.FulfilledUnits)
		assert.Equal(t, 0.0, summary.ProgressPercent)
		assert.Len(t, summary.Items, 2)
	})

	t.Run("progress tracks item counters", func(t *testing.T) {
		partial, err := order.RecordItemFulfillment("prod-1", 3, 0, "user-1")
		require.NoError(t, err)

		summary := partial.GetFulfillmentSummary()
		assert.Equal(t, 30, summary.FulfilledUnits)
		assert.InDelta(t, 50.0, summary.ProgressPercent, 0.001)
	})
}
