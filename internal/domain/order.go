package domain

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus represents the commercial lifecycle of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus represents how much of the order has been paid
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

const maxOrderNumberLength = 50

// Order number: alphanumeric segments joined by single hyphens or
// underscores, no leading or trailing separator
var orderNumberPattern = regexp.MustCompile(`^[A-Za-z0-9]+(?:[-_][A-Za-z0-9]+)*$`)

// Order is the aggregate root for order fulfillment. Instances are
// immutable: every lifecycle or fulfillment operation validates its guard,
// deep-copies the order, mutates the copy and returns it. The receiver is
// never changed, so a constructed Order is safe to share across goroutines.
type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID     string             `bson:"orderId" json:"orderId"`
	OrderNumber string             `bson:"orderNumber" json:"orderNumber"`
	AgencyID    string             `bson:"agencyId" json:"agencyId"`

	Customer   CustomerSnapshot `bson:"customer" json:"customer"`
	AreaCode   string           `bson:"areaCode" json:"areaCode"`
	WorkerName string           `bson:"workerName" json:"workerName"`

	Items []OrderItem `bson:"items" json:"items"`

	// Derived financial totals, recomputed from items at construction and
	// after every clone; never set directly
	SubtotalAmount Money `bson:"subtotalAmount" json:"subtotalAmount"`
	DiscountAmount Money `bson:"discountAmount" json:"discountAmount"`
	TaxAmount      Money `bson:"taxAmount" json:"taxAmount"`
	TotalAmount    Money `bson:"totalAmount" json:"totalAmount"`
	PaidAmount     Money `bson:"paidAmount" json:"paidAmount"`

	DiscountPercentage float64 `bson:"discountPercentage" json:"discountPercentage"`
	CreditDays         int     `bson:"creditDays" json:"creditDays"`

	Status            OrderStatus       `bson:"status" json:"status"`
	FulfillmentStatus FulfillmentStatus `bson:"fulfillmentStatus" json:"fulfillmentStatus"`
	PaymentStatus     PaymentStatus     `bson:"paymentStatus" json:"paymentStatus"`

	FulfillmentAudit []FulfillmentAuditEntry `bson:"fulfillmentAudit" json:"fulfillmentAudit"`

	OrderDate    time.Time  `bson:"orderDate" json:"orderDate"`
	DeliveryDate *time.Time `bson:"deliveryDate,omitempty" json:"deliveryDate,omitempty"`

	CreatedBy string    `bson:"createdBy" json:"createdBy"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedBy string    `bson:"updatedBy" json:"updatedBy"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`

	// Domain events - transient, not persisted
	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewOrderParams carries the inputs to NewOrder
type NewOrderParams struct {
	OrderID            string
	OrderNumber        string
	AgencyID           string
	Customer           CustomerSnapshot
	AreaCode           string
	WorkerName         string
	Items              []OrderItem
	DiscountPercentage float64
	CreditDays         int
	OrderDate          time.Time
	DeliveryDate       *time.Time
	CreatedBy          string
}

// NewOrder is the sole constructor path for new orders. Validation order:
// order number format, customer info presence, item set, financial bounds,
// date ordering. Any failure aborts construction entirely.
func NewOrder(params NewOrderParams) (*Order, error) {
	if err := validateOrderNumber(params.OrderNumber); err != nil {
		return nil, err
	}

	if err := validateCustomerInfo(params); err != nil {
		return nil, err
	}

	if len(params.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range params.Items {
		if item.QuantityBoxes < 0 || item.QuantityLoose < 0 || item.TotalUnits < 0 {
			return nil, ErrNegativeQuantity
		}
		if item.UnitPrice.IsNegative() {
			return nil, ErrNegativeUnitPrice
		}
	}

	if params.DiscountPercentage < 0 || params.DiscountPercentage > 100 {
		return nil, ErrInvalidDiscount
	}
	if params.CreditDays < 0 {
		return nil, ErrInvalidCreditDays
	}

	if params.DeliveryDate != nil && params.DeliveryDate.Before(params.OrderDate) {
		return nil, ErrDeliveryBeforeOrder
	}

	currency := params.Items[0].UnitPrice.Currency()
	subtotal, discount, tax, total, err := computeTotals(params.Items, currency)
	if err != nil {
		return nil, err
	}
	if total.IsNegative() {
		return nil, ErrNegativeTotal
	}

	now := time.Now().UTC()
	order := &Order{
		ID:                 primitive.NewObjectID(),
		OrderID:            params.OrderID,
		OrderNumber:        params.OrderNumber,
		AgencyID:           params.AgencyID,
		Customer:           params.Customer,
		AreaCode:           params.AreaCode,
		WorkerName:         params.WorkerName,
		Items:              cloneItems(params.Items),
		SubtotalAmount:     subtotal,
		DiscountAmount:     discount,
		TaxAmount:          tax,
		TotalAmount:        total,
		PaidAmount:         ZeroMoney(currency),
		DiscountPercentage: params.DiscountPercentage,
		CreditDays:         params.CreditDays,
		Status:             OrderStatusPending,
		FulfillmentStatus:  FulfillmentPending,
		PaymentStatus:      PaymentStatusPending,
		FulfillmentAudit:   make([]FulfillmentAuditEntry, 0),
		OrderDate:          params.OrderDate,
		DeliveryDate:       params.DeliveryDate,
		CreatedBy:          params.CreatedBy,
		CreatedAt:          now,
		UpdatedBy:          params.CreatedBy,
		UpdatedAt:          now,
		domainEvents:       make([]DomainEvent, 0),
	}

	order.domainEvents = append(order.domainEvents, NewOrderCreatedEvent(order))

	return order, nil
}

func validateOrderNumber(number string) error {
	if number == "" {
		return &InvalidOrderNumberError{OrderNumber: number, Reason: "must not be empty"}
	}
	if len(number) > maxOrderNumberLength {
		return &InvalidOrderNumberError{OrderNumber: number, Reason: "must be at most 50 characters"}
	}
	if !orderNumberPattern.MatchString(number) {
		return &InvalidOrderNumberError{
			OrderNumber: number,
			Reason:      "must be alphanumeric with optional internal hyphens or underscores",
		}
	}
	return nil
}

func validateCustomerInfo(params NewOrderParams) error {
	checks := []struct {
		field string
		value string
	}{
		{"customerId", params.Customer.CustomerID},
		{"customerCode", params.Customer.Code},
		{"customerName", params.Customer.Name},
		{"areaCode", params.AreaCode},
		{"workerName", params.WorkerName},
	}
	for _, check := range checks {
		if check.value == "" {
			return &OrderValidationError{Field: check.field, Message: "must not be blank"}
		}
	}
	return nil
}

// computeTotals derives the order's financial totals from its items:
// subtotal = sum of unit totals, discount = sum of line discounts,
// tax = sum of line taxes, total = subtotal - discount + tax
func computeTotals(items []OrderItem, currency string) (subtotal, discount, tax, total Money, err error) {
	subtotal = ZeroMoney(currency)
	discount = ZeroMoney(currency)
	tax = ZeroMoney(currency)

	for _, item := range items {
		if subtotal, err = subtotal.Add(item.UnitTotal); err != nil {
			return
		}
		if discount, err = discount.Add(item.DiscountAmount); err != nil {
			return
		}
		if tax, err = tax.Add(item.TaxAmount); err != nil {
			return
		}
	}

	if total, err = subtotal.Subtract(discount); err != nil {
		return
	}
	total, err = total.Add(tax)
	return
}

// OrderTotalFor derives the payable total for a prospective item set using
// the same arithmetic as NewOrder. Callers use it to enforce financial
// ceilings before the aggregate exists.
func OrderTotalFor(items []OrderItem) (Money, error) {
	if len(items) == 0 {
		return Money{}, ErrEmptyOrder
	}
	_, _, _, total, err := computeTotals(items, items[0].UnitPrice.Currency())
	return total, err
}

// Confirm transitions a pending order to confirmed. Credit is re-validated
// here against the customer snapshot: the order total must not exceed
// creditLimit minus outstanding balance.
func (o *Order) Confirm(userID string) (*Order, error) {
	if o.Status != OrderStatusPending {
		return nil, &FulfillmentStatusError{
			Current:     o.FulfillmentStatus,
			OrderStatus: o.Status,
			Attempted:   "confirm",
		}
	}

	available, err := o.Customer.CreditLimit.Subtract(o.Customer.Balance)
	if err != nil {
		return nil, err
	}
	if available.IsNegative() {
		available = ZeroMoney(o.Customer.CreditLimit.Currency())
	}
	exceeds, err := o.TotalAmount.GreaterThan(available)
	if err != nil {
		return nil, err
	}
	if exceeds {
		return nil, &CreditLimitExceededError{
			CustomerCode: o.Customer.Code,
			OrderTotal:   o.TotalAmount,
			CreditLimit:  o.Customer.CreditLimit,
			Balance:      o.Customer.Balance,
		}
	}

	confirmed := o.clone()
	confirmed.Status = OrderStatusConfirmed
	confirmed.stamp(userID)
	confirmed.domainEvents = append(confirmed.domainEvents, NewOrderConfirmedEvent(confirmed))

	return confirmed, nil
}

// Cancel marks the order cancelled. Orders already shipped or delivered
// cannot be cancelled; inventory compensation for processing orders is
// handled outside the aggregate.
func (o *Order) Cancel(userID, reason string) (*Order, error) {
	if o.Status == OrderStatusShipped || o.Status == OrderStatusDelivered {
		return nil, &FulfillmentStatusError{
			Current:     o.FulfillmentStatus,
			OrderStatus: o.Status,
			Attempted:   "cancel",
		}
	}
	if o.Status == OrderStatusCancelled {
		return o, nil
	}

	cancelled := o.clone()
	cancelled.Status = OrderStatusCancelled
	cancelled.stamp(userID)
	cancelled.domainEvents = append(cancelled.domainEvents, NewOrderCancelledEvent(cancelled, reason))

	return cancelled, nil
}

// MarkPaymentReceived records a payment against the order and derives the
// payment status axis from the accumulated paid amount
func (o *Order) MarkPaymentReceived(amount Money, userID string) (*Order, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidMultiplier
	}

	paid, err := o.PaidAmount.Add(amount)
	if err != nil {
		return nil, err
	}

	updated := o.clone()
	updated.PaidAmount = paid

	covered, err := paid.GreaterThan(updated.TotalAmount)
	if err != nil {
		return nil, err
	}
	switch {
	case covered || paid.Equals(updated.TotalAmount):
		updated.PaymentStatus = PaymentStatusPaid
	case paid.IsPositive():
		updated.PaymentStatus = PaymentStatusPartial
	default:
		updated.PaymentStatus = PaymentStatusPending
	}
	updated.stamp(userID)
	updated.domainEvents = append(updated.domainEvents, NewPaymentReceivedEvent(updated, amount))

	return updated, nil
}

// TotalUnits returns the total ordered units across all items
func (o *Order) TotalUnits() int {
	total := 0
	for _, item := range o.Items {
		total += item.TotalUnits
	}
	return total
}

// FulfilledUnits returns the total fulfilled units across all items
func (o *Order) FulfilledUnits() int {
	total := 0
	for _, item := range o.Items {
		total += item.FulfilledUnits
	}
	return total
}

// DomainEvents returns all pending domain events
func (o *Order) DomainEvents() []DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents returns a copy of the order with no pending events
func (o *Order) ClearDomainEvents() *Order {
	cleared := o.clone()
	cleared.domainEvents = make([]DomainEvent, 0)
	return cleared
}

// clone deep-copies the order: items, audit trail and pending events get
// fresh backing arrays so the original can never be mutated through a copy
func (o *Order) clone() *Order {
	copied := *o
	copied.Items = cloneItems(o.Items)
	copied.FulfillmentAudit = make([]FulfillmentAuditEntry, len(o.FulfillmentAudit))
	copy(copied.FulfillmentAudit, o.FulfillmentAudit)
	copied.domainEvents = make([]DomainEvent, len(o.domainEvents))
	copy(copied.domainEvents, o.domainEvents)
	return &copied
}

func cloneItems(items []OrderItem) []OrderItem {
	copied := make([]OrderItem, len(items))
	for i, item := range items {
		copied[i] = item.clone()
	}
	return copied
}

func (o *Order) stamp(userID string) {
	o.UpdatedBy = userID
	o.UpdatedAt = time.Now().UTC()
}
