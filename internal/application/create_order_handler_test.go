package application

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flowlytix/order-service/internal/domain"
	"github.com/flowlytix/order-service/pkg/logging"
	"github.com/flowlytix/order-service/pkg/metrics"
	"github.com/flowlytix/order-service/pkg/middleware"
)

type handlerFixture struct {
	orders      *mockOrderRepository
	customers   *mockCustomerRepository
	products    *mockProductRepository
	lots        *mockLotBatchRepository
	allocations *mockAllocationRepository
	publisher   *mockEventPublisher
	txn         *mockReservationTransaction
	handler     *CreateOrderHandler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	f := &handlerFixture{
		orders:      &mockOrderRepository{},
		customers:   &mockCustomerRepository{},
		products:    &mockProductRepository{},
		lots:        &mockLotBatchRepository{},
		allocations: &mockAllocationRepository{},
		publisher:   &mockEventPublisher{},
		txn:         newMockReservationTransaction(),
	}
	f.handler = NewCreateOrderHandler(
		f.orders, f.customers, f.products, f.lots, f.allocations, f.publisher,
		testLogger(), testBusinessMetrics(),
	)
	return f
}

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "order-service-test",
		Output:      io.Discard,
	})
}

func testBusinessMetrics() *middleware.BusinessMetrics {
	return middleware.NewBusinessMetrics(metrics.New(metrics.DefaultConfig("order-service-test")))
}

func activeCustomer(t *testing.T) *domain.Customer {
	t.Helper()
	limit, err := domain.NewMoney(100000, "PKR")
	require.NoError(t, err)
	return &domain.Customer{
		CustomerID:  "cust-001",
		Code:        "C001",
		Name:        "Karachi Traders",
		AgencyID:    "agency-1",
		CreditLimit: limit,
		Balance:     domain.ZeroMoney("PKR"),
		Status:      domain.CustomerStatusActive,
	}
}

func activeProduct(t *testing.T) *domain.Product {
	t.Helper()
	price, err := domain.NewMoney(200, "PKR")
	require.NoError(t, err)
	return &domain.Product{
		ProductID:    "prod-1",
		SKU:          "SKU-001",
		Name:         "Rose Petal Tissue",
		AgencyID:     "agency-1",
		Status:       domain.ProductStatusActive,
		SellingPrice: price,
		BoxSize:      10,
	}
}

func createCommand() CreateOrderCommand {
	return CreateOrderCommand{
		AgencyID:     "agency-1",
		CustomerID:   "cust-001",
		CustomerCode: "C001",
		AreaCode:     "KHI-05",
		WorkerName:   "Bilal",
		RequestedBy:  "user-1",
		OrderDate:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Items: []OrderItemInput{
			{ProductID: "prod-1", QuantityBoxes: 5, QuantityLoose: 0},
		},
	}
}

func fullAllocation(lots ...domain.SelectedLot) *domain.FifoAllocationResult {
	total := 0
	for _, l := range lots {
		total += l.AllocatedQuantity
	}
	return &domain.FifoAllocationResult{
		SelectedLots:           lots,
		TotalAllocatedQuantity: total,
		HasFullAllocation:      true,
	}
}

func selectedLot(id string, qty int, manufactured time.Time) domain.SelectedLot {
	return domain.SelectedLot{
		LotBatchID:        id,
		LotNumber:         "LOT-" + id,
		BatchNumber:       "B-" + id,
		ManufacturingDate: manufactured,
		ExpiryDate:        manufactured.AddDate(2, 0, 0),
		AllocatedQuantity: qty,
	}
}

func TestCreateOrder_SingleLotSuccess(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()
	manufactured := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	f.customers.On("FindByID", mock.Anything, "cust-001").Return(activeCustomer(t), nil)
	f.products.On("FindByID", mock.Anything, "prod-1").Return(activeProduct(t), nil)
	f.lots.On("AvailableQuantityForProduct", mock.Anything, "prod-1", "agency-1").Return(100, nil)
	f.lots.On("BeginTransaction", mock.Anything).Return(f.txn, nil)
	f.lots.On("SelectFifoLots", mock.Anything, mock.MatchedBy(func(c domain.FifoCriteria) bool {
		return c.ProductID == "prod-1" && c.RequestedQuantity == 50
	})).Return(fullAllocation(selectedLot("lot-1", 50, manufactured)), nil)
	f.txn.On("ReserveQuantity", mock.Anything, "lot-1", 50, "user-1").Return(nil)
	f.txn.On("Commit", mock.Anything).Return(nil)
	f.orders.On("NextOrderNumber", mock.Anything, "agency-1", "ORD").Return("ORD-2026-000124", nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.allocations.On("SaveAll", mock.Anything, mock.Anything).Return(nil)
	f.customers.On("UpdateOrderStats", mock.Anything, "cust-001", mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result := f.handler.Execute(ctx, createCommand())

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "ORD-2026-000124", result.OrderNumber)
	assert.Equal(t, int64(10000), result.TotalAmount)
	assert.Equal(t, "PKR", result.Currency)
	assert.NotEmpty(t, result.OrderID)

	f.txn.AssertNumberOfCalls(t, "ReserveQuantity", 1)
	f.txn.AssertNumberOfCalls(t, "Commit", 1)
	f.txn.AssertNotCalled(t, "Rollback", mock.Anything)
}

func TestCreateOrder_InsufficientAvailability(t *testing.T) {
	f := newHandlerFixture(t)

	f.customers.On("FindByID", mock.Anything, "cust-001").Return(activeCustomer(t), nil)
	f.products.On("FindByID", mock.Anything, "prod-1").Return(activeProduct(t), nil)
	f.lots.On("AvailableQuantityForProduct", mock.Anything, "prod-1", "agency-1").Return(30, nil)

	result := f.handler.Execute(context.Background(), createCommand())

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "requested: 50, available: 30")
	f.lots.AssertNotCalled(t, "BeginTransaction", mock.Anything)
	f.txn.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestCreateOrder_SplitAcrossLots(t *testing.T) {
	f := newHandlerFixture(t)
	older := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	f.customers.On("FindByID", mock.Anything, "cust-001").Return(activeCustomer(t), nil)
	f.products.On("FindByID", mock.Anything, "prod-1").Return(activeProduct(t), nil)
	f.lots.On("AvailableQuantityForProduct", mock.Anything, "prod-1", "agency-1").Return(50, nil)
	f.lots.On("BeginTransaction", mock.Anything).Return(f.txn, nil)
	f.lots.On("SelectFifoLots", mock.Anything, mock.Anything).
		Return(fullAllocation(selectedLot("lot-1", 30, older), selectedLot("lot-2", 20, newer)), nil)
	f.txn.On("ReserveQuantity", mock.Anything, "lot-1", 30, "user-1").Return(nil)
	f.txn.On("ReserveQuantity", mock.Anything, "lot-2", 20, "user-1").Return(nil)
	f.txn.On("Commit", mock.Anything).Return(nil)
	f.orders.On("NextOrderNumber", mock.Anything, "agency-1", "ORD").Return("ORD-2026-000125", nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)

	var savedAllocations []domain.OrderLotAllocation
	f.allocations.On("SaveAll", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			savedAllocations = args.Get(1).([]domain.OrderLotAllocation)
		}).
		Return(nil)
	f.customers.On("UpdateOrderStats", mock.Anything, "cust-001", mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result := f.handler.Execute(context.Background(), createCommand())

	require.True(t, result.Success, "error: %s", result.Error)
	f.txn.AssertNumberOfCalls(t, "ReserveQuantity", 2)
	f.txn.AssertNumberOfCalls(t, "Commit", 1)

	require.Len(t, savedAllocations, 2)
	assert.Equal(t, "lot-1", savedAllocations[0].LotBatchID)
	assert.Equal(t, 30, savedAllocations[0].AllocatedQuantity)
	assert.Equal(t, "lot-2", savedAllocations[1].LotBatchID)
	assert.Equal(t, 20, savedAllocations[1].AllocatedQuantity)
	assert.Equal(t, result.OrderID, savedAllocations[0].OrderID)
}

func TestCreateOrder_AllocationSaveFailureRollsBack(t *testing.T) {
	f := newHandlerFixture(t)
	manufactured := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	f.customers.On("FindByID", mock.Anything, "cust-001").Return(activeCustomer(t), nil)
	f.products.On("FindByID", mock.Anything, "prod-1").Return(activeProduct(t), nil)
	f.lots.On("AvailableQuantityForProduct", mock.Anything, "prod-1", "agency-1").Return(100, nil)
	f.lots.On("BeginTransaction", mock.Anything).Return(f.txn, nil)
	f.lots.On("SelectFifoLots", mock.Anything, mock.Anything).
		Return(fullAllocation(selectedLot("lot-1", 50, manufactured)), nil)
	f.txn.On("ReserveQuantity", mock.Anything, "lot-1", 50, "user-1").Return(nil)
	f.txn.On("Rollback", mock.Anything).Return(nil)
	f.orders.On("NextOrderNumber", mock.Anything, "agency-1", "ORD").Return("ORD-2026-000126", nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.allocations.On("SaveAll", mock.Anything, mock.Anything).Return(assert.AnError)

	result := f.handler.Execute(context.Background(), createCommand())

	require.False(t, result.Success)
	f.txn.AssertNumberOfCalls(t, "Rollback", 1)
	f.txn.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestCreateOrder_FifoShortfallRollsBack(t *testing.T) {
	f := newHandlerFixture(t)

	f.customers.On("FindByID", mock.Anything, "cust-001").Return(activeCustomer(t), nil)
	f.products.On("FindByID", mock.Anything, "prod-1").Return(activeProduct(t), nil)
	f.lots.On("AvailableQuantityForProduct", mock.Anything, "prod-1", "agency-1").Return(60, nil)
	f.lots.On("BeginTransaction", mock.Anything).Return(f.txn, nil)
	f.lots.On("SelectFifoLots", mock.Anything, mock.Anything).Return(&domain.FifoAllocationResult{
		SelectedLots:           []domain.SelectedLot{selectedLot("lot-1", 40, time.Now())},
		TotalAllocatedQuantity: 40,
		RemainingQuantity:      10,
		HasFullAllocation:      false,
	}, nil)
	f.txn.On("Rollback", mock.Anything).Return(nil)

	result := f.handler.Execute(context.Background(), createCommand())

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "allocate")
	f.txn.AssertNumberOfCalls(t, "Rollback", 1)
	f.txn.AssertNotCalled(t, "ReserveQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.txn.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestCreateOrder_StructuralValidationFailure(t *testing.T) {
	f := newHandlerFixture(t)

	cmd := createCommand()
	cmd.CustomerID = ""
	cmd.Items = nil

	result := f.handler.Execute(context.Background(), cmd)

	require.False(t, result.Success)
	assert.NotEmpty(t, result.ValidationErrors)
	f.customers.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestCreateOrder_ZeroQuantityItemRejected(t *testing.T) {
	f := newHandlerFixture(t)

	cmd := createCommand()
	cmd.Items = []OrderItemInput{{ProductID: "prod-1"}}

	result := f.handler.Execute(context.Background(), cmd)

	require.False(t, result.Success)
	assert.Contains(t, result.ValidationErrors, "items[0].quantity")
}

func TestCreateOrder_CustomerCodeMismatch(t *testing.T) {
	f := newHandlerFixture(t)
	f.customers.On("FindByID", mock.Anything, "cust-001").Return(activeCustomer(t), nil)

	cmd := createCommand()
	cmd.CustomerCode = "C999"

	result := f.handler.Execute(context.Background(), cmd)

	require.False(t, result.Success)
	assert.Equal(t, "does not match customer record", result.ValidationErrors["customerCode"])
	f.products.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestCreateOrder_CreditLimitMismatch(t *testing.T) {
	f := newHandlerFixture(t)
	f.customers.On("FindByID", mock.Anything, "cust-001").Return(activeCustomer(t), nil)

	staleLimit := int64(99999)
	cmd := createCommand()
	cmd.CreditLimitCents = &staleLimit

	result := f.handler.Execute(context.Background(), cmd)

	require.False(t, result.Success)
	assert.Equal(t, "does not match customer record", result.ValidationErrors["creditLimit"])
}

func TestCreateOrder_CreditCeilingExceeded(t *testing.T) {
	f := newHandlerFixture(t)
	customer := activeCustomer(t)
	limit, err := domain.NewMoney(1, "PKR")
	require.NoError(t, err)
	customer.CreditLimit = limit

	f.customers.On("FindByID", mock.Anything, "cust-001").Return(customer, nil)
	f.products.On("FindByID", mock.Anything, "prod-1").Return(activeProduct(t), nil)
	f.lots.On("AvailableQuantityForProduct", mock.Anything, "prod-1", "agency-1").Return(100, nil)

	result := f.handler.Execute(context.Background(), createCommand())

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "credit limit exceeded")
	f.lots.AssertNotCalled(t, "BeginTransaction", mock.Anything)
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateOrder_OutstandingBalanceReducesCeiling(t *testing.T) {
	f := newHandlerFixture(t)
	customer := activeCustomer(t)
	balance, err := domain.NewMoney(95000, "PKR")
	require.NoError(t, err)
	customer.Balance = balance

	f.customers.On("FindByID", mock.Anything, "cust-001").Return(customer, nil)
	f.products.On("FindByID", mock.Anything, "prod-1").Return(activeProduct(t), nil)
	f.lots.On("AvailableQuantityForProduct", mock.Anything, "prod-1", "agency-1").Return(100, nil)

	result := f.handler.Execute(context.Background(), createCommand())

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "credit limit exceeded")
	f.lots.AssertNotCalled(t, "BeginTransaction", mock.Anything)
}

func TestCreateOrder_SuspendedCustomerRejected(t *testing.T) {
	f := newHandlerFixture(t)
	customer := activeCustomer(t)
	customer.Status = domain.CustomerStatusSuspended
	f.customers.On("FindByID", mock.Anything, "cust-001").Return(customer, nil)

	result := f.handler.Execute(context.Background(), createCommand())

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "cannot place orders")
}

func TestCreateOrder_InactiveProductRejected(t *testing.T) {
	f := newHandlerFixture(t)
	product := activeProduct(t)
	product.Status = domain.ProductStatusDiscontinued
	f.customers.On("FindByID", mock.Anything, "cust-001").Return(activeCustomer(t), nil)
	f.products.On("FindByID", mock.Anything, "prod-1").Return(product, nil)

	result := f.handler.Execute(context.Background(), createCommand())

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "not orderable")
	f.lots.AssertNotCalled(t, "BeginTransaction", mock.Anything)
}

func TestCreateOrder_SuppliedNumberKeptWhenFree(t *testing.T) {
	f := newHandlerFixture(t)
	manufactured := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	f.customers.On("FindByID", mock.Anything, "cust-001").Return(activeCustomer(t), nil)
	f.products.On("FindByID", mock.Anything, "prod-1").Return(activeProduct(t), nil)
	f.lots.On("AvailableQuantityForProduct", mock.Anything, "prod-1", "agency-1").Return(100, nil)
	f.lots.On("BeginTransaction", mock.Anything).Return(f.txn, nil)
	f.lots.On("SelectFifoLots", mock.Anything, mock.Anything).
		Return(fullAllocation(selectedLot("lot-1", 50, manufactured)), nil)
	f.txn.On("ReserveQuantity", mock.Anything, "lot-1", 50, "user-1").Return(nil)
	f.txn.On("Commit", mock.Anything).Return(nil)
	f.orders.On("ExistsByOrderNumber", mock.Anything, "ORD-2026-000200", "agency-1").Return(false, nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.allocations.On("SaveAll", mock.Anything, mock.Anything).Return(nil)
	f.customers.On("UpdateOrderStats", mock.Anything, "cust-001", mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	cmd := createCommand()
	cmd.OrderNumber = "ORD-2026-000200"

	result := f.handler.Execute(context.Background(), cmd)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "ORD-2026-000200", result.OrderNumber)
	f.orders.AssertNotCalled(t, "NextOrderNumber", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_SuppliedNumberCollisionFallsBack(t *testing.T) {
	f := newHandlerFixture(t)
	manufactured := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	f.customers.On("FindByID", mock.Anything, "cust-001").Return(activeCustomer(t), nil)
	f.products.On("FindByID", mock.Anything, "prod-1").Return(activeProduct(t), nil)
	f.lots.On("AvailableQuantityForProduct", mock.Anything, "prod-1", "agency-1").Return(100, nil)
	f.lots.On("BeginTransaction", mock.Anything).Return(f.txn, nil)
	f.lots.On("SelectFifoLots", mock.Anything, mock.Anything).
		Return(fullAllocation(selectedLot("lot-1", 50, manufactured)), nil)
	f.txn.On("ReserveQuantity", mock.Anything, "lot-1", 50, "user-1").Return(nil)
	f.txn.On("Commit", mock.Anything).Return(nil)
	f.orders.On("ExistsByOrderNumber", mock.Anything, "ORD-2026-000200", "agency-1").Return(true, nil)
	f.orders.On("NextOrderNumber", mock.Anything, "agency-1", "ORD").Return("ORD-2026-000201", nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.allocations.On("SaveAll", mock.Anything, mock.Anything).Return(nil)
	f.customers.On("UpdateOrderStats", mock.Anything, "cust-001", mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	cmd := createCommand()
	cmd.OrderNumber = "ORD-2026-000200"

	result := f.handler.Execute(context.Background(), cmd)

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "ORD-2026-000201", result.OrderNumber)
}

func TestCreateOrder_StatsFailureDoesNotFailOrder(t *testing.T) {
	f := newHandlerFixture(t)
	manufactured := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	f.customers.On("FindByID", mock.Anything, "cust-001").Return(activeCustomer(t), nil)
	f.products.On("FindByID", mock.Anything, "prod-1").Return(activeProduct(t), nil)
	f.lots.On("AvailableQuantityForProduct", mock.Anything, "prod-1", "agency-1").Return(100, nil)
	f.lots.On("BeginTransaction", mock.Anything).Return(f.txn, nil)
	f.lots.On("SelectFifoLots", mock.Anything, mock.Anything).
		Return(fullAllocation(selectedLot("lot-1", 50, manufactured)), nil)
	f.txn.On("ReserveQuantity", mock.Anything, "lot-1", 50, "user-1").Return(nil)
	f.txn.On("Commit", mock.Anything).Return(nil)
	f.orders.On("NextOrderNumber", mock.Anything, "agency-1", "ORD").Return("ORD-2026-000127", nil)
	f.orders.On("Save", mock.Anything, mock.Anything).Return(nil, nil)
	f.allocations.On("SaveAll", mock.Anything, mock.Anything).Return(nil)
	f.customers.On("UpdateOrderStats", mock.Anything, "cust-001", mock.Anything).Return(assert.AnError)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError)

	result := f.handler.Execute(context.Background(), createCommand())

	require.True(t, result.Success, "error: %s", result.Error)
}
