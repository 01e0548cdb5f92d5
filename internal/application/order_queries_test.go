package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flowlytix/order-service/internal/domain"
)

type queryFixture struct {
	orders      *mockOrderRepository
	allocations *mockAllocationRepository
	lots        *mockLotBatchRepository
	service     *OrderQueryService
}

func newQueryFixture() *queryFixture {
	f := &queryFixture{
		orders:      &mockOrderRepository{},
		allocations: &mockAllocationRepository{},
		lots:        &mockLotBatchRepository{},
	}
	f.service = NewOrderQueryService(f.orders, f.allocations, f.lots, testLogger())
	return f
}

func TestListOrders_Pagination(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()

	orders := []*domain.Order{pendingOrder(t), pendingOrder(t)}
	f.orders.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(orders, nil)
	f.orders.On("Count", mock.Anything, mock.Anything).Return(int64(45), nil)

	result, err := f.service.ListOrders(ctx, ListOrdersQuery{
		AgencyID: "agency-1",
		Page:     2,
		PageSize: 20,
	})

	require.NoError(t, err)
	assert.Len(t, result.Orders, 2)
	assert.Equal(t, int64(45), result.Total)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 20, result.PageSize)
	assert.Equal(t, 3, result.TotalPages)
}

func TestListOrders_DefaultsPage(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()

	f.orders.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]*domain.Order{}, nil)
	f.orders.On("Count", mock.Anything, mock.Anything).Return(int64(0), nil)

	result, err := f.service.ListOrders(ctx, ListOrdersQuery{AgencyID: "agency-1"})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PageSize)
	assert.Equal(t, 0, result.TotalPages)
	assert.Empty(t, result.Orders)
}

func TestListOrders_StatusFilterPassedThrough(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()

	var captured domain.OrderFilter
	f.orders.On("Find", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(domain.OrderFilter)
		}).
		Return([]*domain.Order{}, nil)
	f.orders.On("Count", mock.Anything, mock.Anything).Return(int64(0), nil)

	_, err := f.service.ListOrders(ctx, ListOrdersQuery{
		AgencyID:          "agency-1",
		CustomerID:        "cust-001",
		Status:            "confirmed",
		FulfillmentStatus: "picking",
	})

	require.NoError(t, err)
	assert.Equal(t, "agency-1", captured.AgencyID)
	assert.Equal(t, "cust-001", captured.CustomerID)
	assert.Equal(t, domain.OrderStatusConfirmed, captured.Status)
	assert.Equal(t, domain.FulfillmentPicking, captured.FulfillmentStatus)
}

func TestGetOrderAllocations_OrderMustExist(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()

	f.orders.On("FindByID", mock.Anything, "missing").Return(nil, domain.ErrOrderNotFound)

	_, err := f.service.GetOrderAllocations(ctx, "missing")

	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	f.allocations.AssertNotCalled(t, "FindByOrderID", mock.Anything, mock.Anything)
}

func TestGetOrderAllocations_ReturnsRecords(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()

	order := pendingOrder(t)
	records := []domain.OrderLotAllocation{
		{AllocationID: "alloc-1", OrderID: order.OrderID, LotBatchID: "lot-1", AllocatedQuantity: 50},
	}
	f.orders.On("FindByID", mock.Anything, order.OrderID).Return(order, nil)
	f.allocations.On("FindByOrderID", mock.Anything, order.OrderID).Return(records, nil)

	got, err := f.service.GetOrderAllocations(ctx, order.OrderID)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lot-1", got[0].LotBatchID)
	assert.Equal(t, 50, got[0].AllocatedQuantity)
}

func TestGetProductAvailability(t *testing.T) {
	f := newQueryFixture()
	ctx := context.Background()

	f.lots.On("AvailableQuantityForProduct", mock.Anything, "prod-1", "agency-1").Return(120, nil)

	result, err := f.service.GetProductAvailability(ctx, "prod-1", "agency-1")

	require.NoError(t, err)
	assert.Equal(t, "prod-1", result.ProductID)
	assert.Equal(t, 120, result.AvailableQuantity)
}
