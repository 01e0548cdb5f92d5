package dto

import (
	"time"
)

// CreateOrderRequest represents the request to create an order
type CreateOrderRequest struct {
	OrderNumber        string             `json:"orderNumber" binding:"omitempty,max=50" example:"ORD-2026-000123"`
	AgencyID           string             `json:"agencyId" binding:"required" example:"agency-1"`
	CustomerID         string             `json:"customerId" binding:"required" example:"cust-001"`
	CustomerCode       string             `json:"customerCode" binding:"required" example:"C001"`
	CreditLimitCents   *int64             `json:"creditLimitCents" binding:"omitempty,gte=0" example:"100000"`
	AreaCode           string             `json:"areaCode" binding:"required" example:"KHI-05"`
	WorkerName         string             `json:"workerName" binding:"required" example:"Bilal"`
	Items              []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	DiscountPercentage float64            `json:"discountPercentage" binding:"gte=0,lte=100" example:"5"`
	CreditDays         int                `json:"creditDays" binding:"gte=0" example:"30"`
	OrderDate          time.Time          `json:"orderDate" binding:"required" example:"2026-03-10T09:00:00Z"`
	DeliveryDate       *time.Time         `json:"deliveryDate" example:"2026-03-14T09:00:00Z"`
}

// OrderItemRequest represents an order line item in the request
type OrderItemRequest struct {
	ProductID          string  `json:"productId" binding:"required" example:"prod-1"`
	QuantityBoxes      int     `json:"quantityBoxes" binding:"gte=0" example:"5"`
	QuantityLoose      int     `json:"quantityLoose" binding:"gte=0" example:"3"`
	DiscountPercentage float64 `json:"discountPercentage" binding:"gte=0,lte=100" example:"0"`
	TaxRate            float64 `json:"taxRate" binding:"gte=0,lte=100" example:"17"`
}

// CancelOrderRequest represents the request to cancel an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500" example:"Customer requested cancellation"`
}

// RecordPaymentRequest records a payment against an order
type RecordPaymentRequest struct {
	AmountCents int64  `json:"amountCents" binding:"required,gt=0" example:"4000"`
	Currency    string `json:"currency" binding:"required,len=3" example:"PKR"`
}

// StartPickingRequest begins warehouse picking
type StartPickingRequest struct {
	AssignedWorker string `json:"assignedWorker" binding:"required" example:"worker-7"`
}

// FulfillmentNotesRequest carries optional notes for a fulfillment checkpoint
type FulfillmentNotesRequest struct {
	Notes string `json:"notes" binding:"max=500" example:"Cold chain verified"`
}

// ShipOrderRequest dispatches a packed order
type ShipOrderRequest struct {
	TrackingNumber string `json:"trackingNumber" binding:"required" example:"TRK-100"`
	Carrier        string `json:"carrier" binding:"required" example:"TCS"`
}

// DeliverOrderRequest records delivery of a shipped order
type DeliverOrderRequest struct {
	RecipientName string `json:"recipientName" binding:"required" example:"Ahmed Raza"`
}

// PartialFulfillmentRequest flags an order as partially fulfillable
type PartialFulfillmentRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500" example:"Two lots quarantined"`
}

// RollbackFulfillmentRequest reverts fulfillment to an earlier stage
type RollbackFulfillmentRequest struct {
	Target string `json:"target" binding:"required,oneof=pending picking packed" example:"picking"`
	Reason string `json:"reason" binding:"required,min=3,max=500" example:"Repack required"`
}

// ItemFulfillmentRequest records picked quantities for one line item
type ItemFulfillmentRequest struct {
	ProductID string `json:"productId" binding:"required" example:"prod-1"`
	Boxes     int    `json:"boxes" binding:"gte=0" example:"2"`
	Loose     int    `json:"loose" binding:"gte=0" example:"4"`
}

// ListOrdersRequest filters the order list
type ListOrdersRequest struct {
	AgencyID          string    `form:"agencyId" binding:"required"`
	CustomerID        string    `form:"customerId"`
	Status            string    `form:"status" binding:"omitempty,oneof=pending confirmed processing shipped delivered cancelled"`
	FulfillmentStatus string    `form:"fulfillmentStatus" binding:"omitempty,oneof=pending picking packed shipped delivered partial"`
	PaymentStatus     string    `form:"paymentStatus" binding:"omitempty,oneof=pending partial paid"`
	OrderedAfter      time.Time `form:"orderedAfter" time_format:"2006-01-02"`
	OrderedBefore     time.Time `form:"orderedBefore" time_format:"2006-01-02"`
	Page              int       `form:"page" binding:"gte=0"`
	PageSize          int       `form:"pageSize" binding:"gte=0,lte=100"`
}
