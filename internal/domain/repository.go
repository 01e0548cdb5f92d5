package domain

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository-level errors
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrDuplicateOrder      = errors.New("order number already exists")
	ErrTransactionInactive = errors.New("reservation transaction is not active")
)

// Pagination contains pagination parameters
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Skip returns the number of documents to skip
func (p Pagination) Skip() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.Limit()
}

// Limit returns the page size, bounded to sane values
func (p Pagination) Limit() int {
	if p.PageSize < 1 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// OrderFilter narrows order queries
type OrderFilter struct {
	AgencyID          string
	CustomerID        string
	Status            OrderStatus
	FulfillmentStatus FulfillmentStatus
	PaymentStatus     PaymentStatus
	OrderedAfter      *time.Time
	OrderedBefore     *time.Time
}

// OrderRepository persists and retrieves order aggregates
type OrderRepository interface {
	// Save persists the order and returns the persisted aggregate
	Save(ctx context.Context, order *Order) (*Order, error)
	FindByID(ctx context.Context, orderID string) (*Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber, agencyID string) (*Order, error)
	ExistsByOrderNumber(ctx context.Context, orderNumber, agencyID string) (bool, error)
	// NextOrderNumber allocates the next sequential order number for the
	// agency, formatted with the given prefix
	NextOrderNumber(ctx context.Context, agencyID, prefix string) (string, error)
	Find(ctx context.Context, filter OrderFilter, page Pagination) ([]*Order, error)
	Count(ctx context.Context, filter OrderFilter) (int64, error)
}

// CustomerRepository retrieves customers for order eligibility checks
type CustomerRepository interface {
	FindByID(ctx context.Context, customerID string) (*Customer, error)
	// UpdateOrderStats bumps the customer's order count and cumulative order
	// value after a successful order
	UpdateOrderStats(ctx context.Context, customerID string, orderTotal Money) error
}

// ProductRepository retrieves products for pricing and availability
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (*Product, error)
}

// LotBatchRepository retrieves lot inventory and opens reservation
// transactions against it
type LotBatchRepository interface {
	AvailableQuantityForProduct(ctx context.Context, productID, agencyID string) (int, error)
	// SelectFifoLots loads candidate lots and runs FIFO selection over them
	SelectFifoLots(ctx context.Context, criteria FifoCriteria) (*FifoAllocationResult, error)
	BeginTransaction(ctx context.Context) (ReservationTransaction, error)
}

// ReservationTransaction reserves lot quantities atomically. All
// reservations made through one transaction commit or roll back together.
type ReservationTransaction interface {
	ReserveQuantity(ctx context.Context, lotBatchID string, quantity int, userID string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	IsActive() bool
}

// OrderLotAllocation is the persisted record linking an order item to a
// reserved lot. Written after reservations commit.
type OrderLotAllocation struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AllocationID      string             `bson:"allocationId" json:"allocationId"`
	OrderID           string             `bson:"orderId" json:"orderId"`
	OrderItemID       string             `bson:"orderItemId" json:"orderItemId"`
	ProductID         string             `bson:"productId" json:"productId"`
	LotBatchID        string             `bson:"lotBatchId" json:"lotBatchId"`
	LotNumber         string             `bson:"lotNumber" json:"lotNumber"`
	BatchNumber       string             `bson:"batchNumber,omitempty" json:"batchNumber,omitempty"`
	AllocatedQuantity int                `bson:"allocatedQuantity" json:"allocatedQuantity"`
	ManufacturingDate time.Time          `bson:"manufacturingDate" json:"manufacturingDate"`
	ExpiryDate        *time.Time         `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	ReservedAt        time.Time          `bson:"reservedAt" json:"reservedAt"`
	ReservedBy        string             `bson:"reservedBy" json:"reservedBy"`
}

// OrderLotAllocationRepository persists order-to-lot allocation records
type OrderLotAllocationRepository interface {
	SaveAll(ctx context.Context, allocations []OrderLotAllocation) error
	FindByOrderID(ctx context.Context, orderID string) ([]OrderLotAllocation, error)
}

// EventPublisher publishes domain events to the message bus
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}
