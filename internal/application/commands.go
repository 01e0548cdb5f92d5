package application

import (
	"time"

	"github.com/flowlytix/order-service/internal/domain"
)

// CreateOrderCommand represents the command to create a new order.
// Unit prices are advisory; the repository price always wins.
type CreateOrderCommand struct {
	OrderNumber        string           `validate:"omitempty,max=50"`
	AgencyID           string           `validate:"required"`
	CustomerID         string           `validate:"required"`
	CustomerCode       string           `validate:"required"`
	CreditLimitCents   *int64           `validate:"omitempty,gte=0"`
	AreaCode           string           `validate:"required"`
	WorkerName         string           `validate:"required"`
	Items              []OrderItemInput `validate:"required,min=1,dive"`
	DiscountPercentage float64          `validate:"gte=0,lte=100"`
	CreditDays         int              `validate:"gte=0"`
	OrderDate          time.Time        `validate:"required"`
	DeliveryDate       *time.Time
	RequestedBy        string `validate:"required"`
}

// OrderItemInput represents an order item in a command
type OrderItemInput struct {
	ProductID          string  `validate:"required"`
	QuantityBoxes      int     `validate:"gte=0"`
	QuantityLoose      int     `validate:"gte=0"`
	UnitPriceCents     int64   `validate:"gte=0"`
	DiscountPercentage float64 `validate:"gte=0,lte=100"`
	TaxRate            float64 `validate:"gte=0,lte=100"`
}

// ConfirmOrderCommand represents the command to confirm a pending order
type ConfirmOrderCommand struct {
	OrderID     string
	RequestedBy string
}

// CancelOrderCommand represents the command to cancel an order
type CancelOrderCommand struct {
	OrderID     string
	Reason      string
	RequestedBy string
}

// RecordPaymentCommand records a payment against an order
type RecordPaymentCommand struct {
	OrderID     string
	AmountCents int64
	Currency    string
	RequestedBy string
}

// FulfillmentCommand carries the shared fields of a fulfillment transition
type FulfillmentCommand struct {
	OrderID     string
	RequestedBy string

	// Optional per-operation details
	AssignedWorker string
	Notes          string
	TrackingNumber string
	Carrier        string
	RecipientName  string
	Reason         string
}

// RollbackFulfillmentCommand rolls fulfillment back to an earlier stage
type RollbackFulfillmentCommand struct {
	OrderID     string
	Target      domain.FulfillmentStatus
	Reason      string
	RequestedBy string
}

// RecordItemFulfillmentCommand updates an item's fulfillment counters
type RecordItemFulfillmentCommand struct {
	OrderID     string
	ProductID   string
	Boxes       int
	Loose       int
	RequestedBy string
}

// ListOrdersQuery lists orders with filters and pagination
type ListOrdersQuery struct {
	AgencyID          string
	CustomerID        string
	Status            string
	FulfillmentStatus string
	PaymentStatus     string
	OrderedAfter      *time.Time
	OrderedBefore     *time.Time
	Page              int
	PageSize          int
}
