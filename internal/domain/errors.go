package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for Order aggregate construction
var (
	ErrEmptyOrder          = errors.New("order must have at least one item")
	ErrNegativeQuantity    = errors.New("item quantity cannot be negative")
	ErrNegativeUnitPrice   = errors.New("item unit price cannot be negative")
	ErrNegativeTotal       = errors.New("order total amount cannot be negative")
	ErrInvalidDiscount     = errors.New("discount percentage must be between 0 and 100")
	ErrInvalidCreditDays   = errors.New("credit days cannot be negative")
	ErrDeliveryBeforeOrder = errors.New("delivery date cannot be before order date")
)

// InvalidOrderNumberError indicates the order number failed format validation
type InvalidOrderNumberError struct {
	OrderNumber string
	Reason      string
}

func (e *InvalidOrderNumberError) Error() string {
	return fmt.Sprintf("invalid order number %q: %s", e.OrderNumber, e.Reason)
}

// OrderValidationError indicates a required order field is missing or malformed
type OrderValidationError struct {
	Field   string
	Message string
}

func (e *OrderValidationError) Error() string {
	return fmt.Sprintf("order validation failed: %s: %s", e.Field, e.Message)
}

// CreditLimitExceededError indicates confirming the order would exceed available credit
type CreditLimitExceededError struct {
	CustomerCode string
	OrderTotal   Money
	CreditLimit  Money
	Balance      Money
}

func (e *CreditLimitExceededError) Error() string {
	return fmt.Sprintf(
		"credit limit exceeded for customer %s: order total %s, credit limit %s, outstanding balance %s",
		e.CustomerCode, e.OrderTotal, e.CreditLimit, e.Balance,
	)
}

// FulfillmentStatusError indicates an illegal fulfillment transition or rollback target
type FulfillmentStatusError struct {
	Current     FulfillmentStatus
	OrderStatus OrderStatus
	Attempted   string
}

func (e *FulfillmentStatusError) Error() string {
	return fmt.Sprintf(
		"illegal fulfillment operation %q: fulfillment status is %s, order status is %s",
		e.Attempted, e.Current, e.OrderStatus,
	)
}

// InsufficientInventoryError is the aggregate availability pre-check failure.
// Requested and Available are unit counts for a single product.
type InsufficientInventoryError struct {
	ProductID   string
	ProductCode string
	Requested   int
	Available   int
}

// Shortage returns the number of units that could not be covered
func (e *InsufficientInventoryError) Shortage() int {
	return e.Requested - e.Available
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf(
		"insufficient inventory for product %s: requested: %d, available: %d (shortage: %d)",
		e.ProductCode, e.Requested, e.Available, e.Shortage(),
	)
}

// InsufficientAllocationError indicates FIFO selection could not fully cover an item
type InsufficientAllocationError struct {
	ProductID   string
	ProductCode string
	Requested   int
	Allocated   int
}

// Shortage returns the unallocated remainder
func (e *InsufficientAllocationError) Shortage() int {
	return e.Requested - e.Allocated
}

func (e *InsufficientAllocationError) Error() string {
	return fmt.Sprintf(
		"could not fully allocate lots for product %s: requested: %d, allocated: %d (shortage: %d)",
		e.ProductCode, e.Requested, e.Allocated, e.Shortage(),
	)
}

// CustomerIneligibleError indicates the customer may not place orders,
// or the command's customer snapshot does not match repository state
type CustomerIneligibleError struct {
	CustomerID string
	Reason     string
}

func (e *CustomerIneligibleError) Error() string {
	return fmt.Sprintf("customer %s cannot place orders: %s", e.CustomerID, e.Reason)
}

// ProductUnavailableError indicates the product is missing or not active
type ProductUnavailableError struct {
	ProductID string
	Reason    string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not orderable: %s", e.ProductID, e.Reason)
}

// ReservationError wraps a failure during reserve/commit/rollback with operation context
type ReservationError struct {
	Op         string // reserve, commit, rollback
	LotBatchID string
	Err        error
}

func (e *ReservationError) Error() string {
	if e.LotBatchID != "" {
		return fmt.Sprintf("reservation %s failed for lot %s: %v", e.Op, e.LotBatchID, e.Err)
	}
	return fmt.Sprintf("reservation %s failed: %v", e.Op, e.Err)
}

func (e *ReservationError) Unwrap() error {
	return e.Err
}
