package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flowlytix/order-service/internal/domain"
)

type lifecycleFixture struct {
	orders    *mockOrderRepository
	publisher *mockEventPublisher
	service   *OrderLifecycleService
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{
		orders:    &mockOrderRepository{},
		publisher: &mockEventPublisher{},
	}
	f.service = NewOrderLifecycleService(f.orders, f.publisher, testLogger(), testBusinessMetrics())
	return f
}

// pendingOrder builds a freshly created order with one 50-unit line item
// totalling 10000 PKR cents
func pendingOrder(t *testing.T) *domain.Order {
	t.Helper()

	price, err := domain.NewMoney(200, "PKR")
	require.NoError(t, err)

	item, err := domain.NewOrderItem(domain.OrderItemParams{
		ItemID:        "item-1",
		ProductID:     "prod-1",
		ProductCode:   "SKU-001",
		ProductName:   "Rose Petal Tissue",
		UnitPrice:     price,
		BoxSize:       10,
		QuantityBoxes: 5,
	})
	require.NoError(t, err)

	order, err := domain.NewOrder(domain.NewOrderParams{
		OrderID:     "order-1",
		OrderNumber: "ORD-2026-000123",
		AgencyID:    "agency-1",
		Customer:    activeCustomer(t).Snapshot(),
		AreaCode:    "KHI-05",
		WorkerName:  "Bilal",
		Items:       []domain.OrderItem{item},
		OrderDate:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		CreatedBy:   "user-1",
	})
	require.NoError(t, err)
	return order
}

func confirmedOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := pendingOrder(t).Confirm("user-1")
	require.NoError(t, err)
	return order
}

func TestConfirmOrder(t *testing.T) {
	f := newLifecycleFixture(t)
	f.orders.On("FindByID", mock.Anything, "order-1").Return(pendingOrder(t), nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	dto, err := f.service.ConfirmOrder(context.Background(), ConfirmOrderCommand{
		OrderID:     "order-1",
		RequestedBy: "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, dto.Status)
	assert.Equal(t, domain.FulfillmentPending, dto.FulfillmentStatus)
}

func TestConfirmOrder_CreditExceeded(t *testing.T) {
	f := newLifecycleFixture(t)

	order := pendingOrder(t)
	limit, err := domain.NewMoney(5000, "PKR")
	require.NoError(t, err)
	order.Customer.CreditLimit = limit

	f.orders.On("FindByID", mock.Anything, "order-1").Return(order, nil)

	_, err = f.service.ConfirmOrder(context.Background(), ConfirmOrderCommand{
		OrderID:     "order-1",
		RequestedBy: "user-1",
	})

	var creditErr *domain.CreditLimitExceededError
	require.ErrorAs(t, err, &creditErr)
	assert.Equal(t, "C001", creditErr.CustomerCode)
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCancelOrder(t *testing.T) {
	f := newLifecycleFixture(t)
	f.orders.On("FindByID", mock.Anything, "order-1").Return(pendingOrder(t), nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	dto, err := f.service.CancelOrder(context.Background(), CancelOrderCommand{
		OrderID:     "order-1",
		Reason:      "customer request",
		RequestedBy: "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, dto.Status)
}

func TestRecordPayment(t *testing.T) {
	f := newLifecycleFixture(t)
	f.orders.On("FindByID", mock.Anything, "order-1").Return(confirmedOrder(t), nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	dto, err := f.service.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderID:     "order-1",
		AmountCents: 4000,
		Currency:    "PKR",
		RequestedBy: "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPartial, dto.PaymentStatus)
	assert.Equal(t, int64(4000), dto.PaidAmount)
}

func TestRecordPayment_BadCurrency(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.service.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderID:     "order-1",
		AmountCents: 4000,
		Currency:    "pk",
		RequestedBy: "user-1",
	})

	require.Error(t, err)
	f.orders.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestStartPicking(t *testing.T) {
	f := newLifecycleFixture(t)
	f.orders.On("FindByID", mock.Anything, "order-1").Return(confirmedOrder(t), nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	dto, err := f.service.StartPicking(context.Background(), FulfillmentCommand{
		OrderID:        "order-1",
		RequestedBy:    "user-1",
		AssignedWorker: "worker-7",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.FulfillmentPicking, dto.FulfillmentStatus)
	assert.Equal(t, domain.OrderStatusProcessing, dto.Status)
}

func TestShipOrder_FromPartial(t *testing.T) {
	f := newLifecycleFixture(t)

	order, err := confirmedOrder(t).StartPicking("user-1", "worker-7")
	require.NoError(t, err)
	order, err = order.MarkPartialFulfillment("user-1", "two lots short")
	require.NoError(t, err)

	f.orders.On("FindByID", mock.Anything, "order-1").Return(order, nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	dto, err := f.service.ShipOrder(context.Background(), FulfillmentCommand{
		OrderID:        "order-1",
		RequestedBy:    "user-1",
		TrackingNumber: "TRK-100",
		Carrier:        "TCS",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.FulfillmentShipped, dto.FulfillmentStatus)
	assert.Equal(t, domain.OrderStatusShipped, dto.Status)
}

func TestShipOrder_RejectedBeforePacking(t *testing.T) {
	f := newLifecycleFixture(t)
	f.orders.On("FindByID", mock.Anything, "order-1").Return(pendingOrder(t), nil)

	_, err := f.service.ShipOrder(context.Background(), FulfillmentCommand{
		OrderID:     "order-1",
		RequestedBy: "user-1",
	})

	var statusErr *domain.FulfillmentStatusError
	require.ErrorAs(t, err, &statusErr)
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRollbackFulfillment(t *testing.T) {
	f := newLifecycleFixture(t)

	order, err := confirmedOrder(t).StartPicking("user-1", "worker-7")
	require.NoError(t, err)
	order, err = order.CompletePacking("user-1")
	require.NoError(t, err)

	f.orders.On("FindByID", mock.Anything, "order-1").Return(order, nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	dto, err := f.service.RollbackFulfillment(context.Background(), RollbackFulfillmentCommand{
		OrderID:     "order-1",
		Target:      domain.FulfillmentPicking,
		Reason:      "repack required",
		RequestedBy: "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.FulfillmentPicking, dto.FulfillmentStatus)
}

func TestRecordItemFulfillment(t *testing.T) {
	f := newLifecycleFixture(t)

	order, err := confirmedOrder(t).StartPicking("user-1", "worker-7")
	require.NoError(t, err)

	f.orders.On("FindByID", mock.Anything, "order-1").Return(order, nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	dto, err := f.service.RecordItemFulfillment(context.Background(), RecordItemFulfillmentCommand{
		OrderID:     "order-1",
		ProductID:   "prod-1",
		Boxes:       2,
		RequestedBy: "user-1",
	})

	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 20, dto.Items[0].FulfilledUnits)
	assert.Equal(t, domain.ItemStatusPartiallyFulfilled, dto.Items[0].Status)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newLifecycleFixture(t)
	f.orders.On("FindByID", mock.Anything, "order-1").Return(pendingOrder(t), nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError)

	dto, err := f.service.ConfirmOrder(context.Background(), ConfirmOrderCommand{
		OrderID:     "order-1",
		RequestedBy: "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, dto.Status)
}
