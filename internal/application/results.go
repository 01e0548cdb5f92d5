package application

import (
	"time"

	"github.com/flowlytix/order-service/internal/domain"
)

// CreateOrderResult is the outcome of the order creation pipeline. The
// handler never returns an error; every failure is folded into this shape.
type CreateOrderResult struct {
	Success          bool              `json:"success"`
	OrderID          string            `json:"orderId,omitempty"`
	OrderNumber      string            `json:"orderNumber,omitempty"`
	TotalAmount      int64             `json:"totalAmount,omitempty"`
	Currency         string            `json:"currency,omitempty"`
	Error            string            `json:"error,omitempty"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

// OrderDTO is the read-side representation of an order
type OrderDTO struct {
	OrderID            string                         `json:"orderId"`
	OrderNumber        string                         `json:"orderNumber"`
	AgencyID           string                         `json:"agencyId"`
	CustomerID         string                         `json:"customerId"`
	CustomerCode       string                         `json:"customerCode"`
	CustomerName       string                         `json:"customerName"`
	AreaCode           string                         `json:"areaCode"`
	WorkerName         string                         `json:"workerName"`
	Items              []OrderItemDTO                 `json:"items"`
	SubtotalAmount     int64                          `json:"subtotalAmount"`
	DiscountAmount     int64                          `json:"discountAmount"`
	TaxAmount          int64                          `json:"taxAmount"`
	TotalAmount        int64                          `json:"totalAmount"`
	PaidAmount         int64                          `json:"paidAmount"`
	Currency           string                         `json:"currency"`
	DiscountPercentage float64                        `json:"discountPercentage"`
	CreditDays         int                            `json:"creditDays"`
	Status             domain.OrderStatus             `json:"status"`
	FulfillmentStatus  domain.FulfillmentStatus       `json:"fulfillmentStatus"`
	PaymentStatus      domain.PaymentStatus           `json:"paymentStatus"`
	FulfillmentAudit   []domain.FulfillmentAuditEntry `json:"fulfillmentAudit"`
	OrderDate          time.Time                      `json:"orderDate"`
	DeliveryDate       *time.Time                     `json:"deliveryDate,omitempty"`
	CreatedBy          string                         `json:"createdBy"`
	CreatedAt          time.Time                      `json:"createdAt"`
	UpdatedAt          time.Time                      `json:"updatedAt"`
}

// OrderItemDTO is the read-side representation of a line item
type OrderItemDTO struct {
	ItemID         string                          `json:"itemId"`
	ProductID      string                          `json:"productId"`
	ProductCode    string                          `json:"productCode"`
	ProductName    string                          `json:"productName"`
	UnitPrice      int64                           `json:"unitPrice"`
	BoxSize        int                             `json:"boxSize"`
	QuantityBoxes  int                             `json:"quantityBoxes"`
	QuantityLoose  int                             `json:"quantityLoose"`
	TotalUnits     int                             `json:"totalUnits"`
	ItemTotal      int64                           `json:"itemTotal"`
	FulfilledUnits int                             `json:"fulfilledUnits"`
	Status         domain.OrderItemStatus          `json:"status"`
	LotAllocations []domain.OrderItemLotAllocation `json:"lotAllocations,omitempty"`
}

// OrderListResult is a paginated list of orders
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
}

// ProductAvailabilityResult reports sellable quantity for a product
type ProductAvailabilityResult struct {
	ProductID         string `json:"productId"`
	AgencyID          string `json:"agencyId"`
	AvailableQuantity int    `json:"availableQuantity"`
}

// ToOrderDTO maps an order aggregate to its DTO
func ToOrderDTO(order *domain.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ItemID:         item.ItemID,
			ProductID:      item.ProductID,
			ProductCode:    item.ProductCode,
			ProductName:    item.ProductName,
			UnitPrice:      item.UnitPrice.Amount(),
			BoxSize:        item.BoxSize,
			QuantityBoxes:  item.QuantityBoxes,
			QuantityLoose:  item.QuantityLoose,
			TotalUnits:     item.TotalUnits,
			ItemTotal:      item.ItemTotal.Amount(),
			FulfilledUnits: item.FulfilledUnits,
			Status:         item.Status,
			LotAllocations: item.LotAllocations,
		})
	}

	return OrderDTO{
		OrderID:            order.OrderID,
		OrderNumber:        order.OrderNumber,
		AgencyID:           order.AgencyID,
		CustomerID:         order.Customer.CustomerID,
		CustomerCode:       order.Customer.Code,
		CustomerName:       order.Customer.Name,
		AreaCode:           order.AreaCode,
		WorkerName:         order.WorkerName,
		Items:              items,
		SubtotalAmount:     order.SubtotalAmount.Amount(),
		DiscountAmount:     order.DiscountAmount.Amount(),
		TaxAmount:          order.TaxAmount.Amount(),
		TotalAmount:        order.TotalAmount.Amount(),
		PaidAmount:         order.PaidAmount.Amount(),
		Currency:           order.TotalAmount.Currency(),
		DiscountPercentage: order.DiscountPercentage,
		CreditDays:         order.CreditDays,
		Status:             order.Status,
		FulfillmentStatus:  order.FulfillmentStatus,
		PaymentStatus:      order.PaymentStatus,
		FulfillmentAudit:   order.FulfillmentAudit,
		OrderDate:          order.OrderDate,
		DeliveryDate:       order.DeliveryDate,
		CreatedBy:          order.CreatedBy,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
}
