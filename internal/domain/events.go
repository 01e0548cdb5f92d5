package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents a domain event
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
}

// BaseDomainEvent contains common event fields
type BaseDomainEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AggregateId string    `json:"aggregateId"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseDomainEvent) EventType() string     { return e.Type }
func (e BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseDomainEvent) AggregateID() string   { return e.AggregateId }

// OrderCreatedEvent is raised when a new order is created
type OrderCreatedEvent struct {
	BaseDomainEvent
	OrderID      string `json:"orderId"`
	OrderNumber  string `json:"orderNumber"`
	CustomerID   string `json:"customerId"`
	CustomerCode string `json:"customerCode"`
	AgencyID     string `json:"agencyId"`
	TotalAmount  int64  `json:"totalAmount"`
	Currency     string `json:"currency"`
	ItemCount    int    `json:"itemCount"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(order *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: BaseDomainEvent{
			ID:          uuid.New().String(),
			Type:        "orders.order.created",
			AggregateId: order.OrderID,
			Timestamp:   time.Now().UTC(),
		},
		OrderID:      order.OrderID,
		OrderNumber:  order.OrderNumber,
		CustomerID:   order.Customer.CustomerID,
		CustomerCode: order.Customer.Code,
		AgencyID:     order.AgencyID,
		TotalAmount:  order.TotalAmount.Amount(),
		Currency:     order.TotalAmount.Currency(),
		ItemCount:    len(order.Items),
	}
}

// OrderConfirmedEvent is raised when an order passes the credit re-check
// and moves to confirmed
type OrderConfirmedEvent struct {
	BaseDomainEvent
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	CustomerID  string `json:"customerId"`
	TotalAmount int64  `json:"totalAmount"`
	Currency    string `json:"currency"`
}

// NewOrderConfirmedEvent creates a new OrderConfirmedEvent
func NewOrderConfirmedEvent(order *Order) *OrderConfirmedEvent {
	return &OrderConfirmedEvent{
		BaseDomainEvent: BaseDomainEvent{
			ID:          uuid.New().String(),
			Type:        "orders.order.confirmed",
			AggregateId: order.OrderID,
			Timestamp:   time.Now().UTC(),
		},
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.Customer.CustomerID,
		TotalAmount: order.TotalAmount.Amount(),
		Currency:    order.TotalAmount.Currency(),
	}
}

// OrderCancelledEvent is raised when an order is cancelled
type OrderCancelledEvent struct {
	BaseDomainEvent
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	CustomerID  string `json:"customerId"`
	Reason      string `json:"reason"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(order *Order, reason string) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: BaseDomainEvent{
			ID:          uuid.New().String(),
			Type:        "orders.order.cancelled",
			AggregateId: order.OrderID,
			Timestamp:   time.Now().UTC(),
		},
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.Customer.CustomerID,
		Reason:      reason,
	}
}

// FulfillmentStatusChangedEvent is raised on every fulfillment transition,
// rollbacks included
type FulfillmentStatusChangedEvent struct {
	BaseDomainEvent
	OrderID        string            `json:"orderId"`
	OrderNumber    string            `json:"orderNumber"`
	Action         string            `json:"action"`
	PreviousStatus FulfillmentStatus `json:"previousStatus"`
	NewStatus      FulfillmentStatus `json:"newStatus"`
	OrderStatus    OrderStatus       `json:"orderStatus"`
}

// NewFulfillmentStatusChangedEvent creates a new FulfillmentStatusChangedEvent
func NewFulfillmentStatusChangedEvent(order *Order, action string, previous FulfillmentStatus) *FulfillmentStatusChangedEvent {
	return &FulfillmentStatusChangedEvent{
		BaseDomainEvent: BaseDomainEvent{
			ID:          uuid.New().String(),
			Type:        "orders.fulfillment.status-changed",
			AggregateId: order.OrderID,
			Timestamp:   time.Now().UTC(),
		},
		OrderID:        order.OrderID,
		OrderNumber:    order.OrderNumber,
		Action:         action,
		PreviousStatus: previous,
		NewStatus:      order.FulfillmentStatus,
		OrderStatus:    order.Status,
	}
}

// InventoryReservedEvent is raised after lot reservations commit for an order
type InventoryReservedEvent struct {
	BaseDomainEvent
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	AgencyID    string             `json:"agencyId"`
	Lots        []ReservedLotEvent `json:"lots"`
}

// ReservedLotEvent is the per-lot slice of an InventoryReservedEvent
type ReservedLotEvent struct {
	LotBatchID string `json:"lotBatchId"`
	LotNumber  string `json:"lotNumber"`
	ProductID  string `json:"productId"`
	Quantity   int    `json:"quantity"`
}

// NewInventoryReservedEvent creates a new InventoryReservedEvent
func NewInventoryReservedEvent(order *Order, lots []ReservedLotEvent) *InventoryReservedEvent {
	return &InventoryReservedEvent{
		BaseDomainEvent: BaseDomainEvent{
			ID:          uuid.New().String(),
			Type:        "orders.inventory.reserved",
			AggregateId: order.OrderID,
			Timestamp:   time.Now().UTC(),
		},
		OrderID:     order.OrderID,
		OrderNumber: order.OrderNumber,
		AgencyID:    order.AgencyID,
		Lots:        lots,
	}
}

// PaymentReceivedEvent is raised when a payment is applied to an order
type PaymentReceivedEvent struct {
	BaseDomainEvent
	OrderID       string        `json:"orderId"`
	OrderNumber   string        `json:"orderNumber"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}

// NewPaymentReceivedEvent creates a new PaymentReceivedEvent
func NewPaymentReceivedEvent(order *Order, amount Money) *PaymentReceivedEvent {
	return &PaymentReceivedEvent{
		BaseDomainEvent: BaseDomainEvent{
			ID:          uuid.New().String(),
			Type:        "orders.order.payment-received",
			AggregateId: order.OrderID,
			Timestamp:   time.Now().UTC(),
		},
		OrderID:       order.OrderID,
		OrderNumber:   order.OrderNumber,
		Amount:        amount.Amount(),
		Currency:      amount.Currency(),
		PaymentStatus: order.PaymentStatus,
	}
}
