package application

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/flowlytix/order-service/internal/domain"
)

type mockOrderRepository struct {
	mock.Mock
}

// Save echoes the input order back when the expectation returns (nil, nil),
// mirroring a repository that persists and returns the same revision
func (m *mockOrderRepository) Save(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		if args.Error(1) != nil {
			return nil, args.Error(1)
		}
		return order, nil
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber, agencyID string) (*domain.Order, error) {
	args := m.Called(ctx, orderNumber, agencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber, agencyID string) (bool, error) {
	args := m.Called(ctx, orderNumber, agencyID)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepository) NextOrderNumber(ctx context.Context, agencyID, prefix string) (string, error) {
	args := m.Called(ctx, agencyID, prefix)
	return args.String(0), args.Error(1)
}

func (m *mockOrderRepository) Find(ctx context.Context, filter domain.OrderFilter, page domain.Pagination) ([]*domain.Order, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

type mockCustomerRepository struct {
	mock.Mock
}

func (m *mockCustomerRepository) FindByID(ctx context.Context, customerID string) (*domain.Customer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockCustomerRepository) UpdateOrderStats(ctx context.Context, customerID string, orderTotal domain.Money) error {
	args := m.Called(ctx, customerID, orderTotal)
	return args.Error(0)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) FindByID(ctx context.Context, productID string) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

type mockLotBatchRepository struct {
	mock.Mock
}

func (m *mockLotBatchRepository) AvailableQuantityForProduct(ctx context.Context, productID, agencyID string) (int, error) {
	args := m.Called(ctx, productID, agencyID)
	return args.Int(0), args.Error(1)
}

func (m *mockLotBatchRepository) SelectFifoLots(ctx context.Context, criteria domain.FifoCriteria) (*domain.FifoAllocationResult, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FifoAllocationResult), args.Error(1)
}

func (m *mockLotBatchRepository) BeginTransaction(ctx context.Context) (domain.ReservationTransaction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.ReservationTransaction), args.Error(1)
}

type mockReservationTransaction struct {
	mock.Mock
	active bool
}

func newMockReservationTransaction() *mockReservationTransaction {
	return &mockReservationTransaction{active: true}
}

func (m *mockReservationTransaction) ReserveQuantity(ctx context.Context, lotBatchID string, quantity int, userID string) error {
	args := m.Called(ctx, lotBatchID, quantity, userID)
	return args.Error(0)
}

func (m *mockReservationTransaction) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.active = false
	return args.Error(0)
}

func (m *mockReservationTransaction) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.active = false
	return args.Error(0)
}

func (m *mockReservationTransaction) IsActive() bool {
	return m.active
}

type mockAllocationRepository struct {
	mock.Mock
}

func (m *mockAllocationRepository) SaveAll(ctx context.Context, allocations []domain.OrderLotAllocation) error {
	args := m.Called(ctx, allocations)
	return args.Error(0)
}

func (m *mockAllocationRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.OrderLotAllocation, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderLotAllocation), args.Error(1)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
