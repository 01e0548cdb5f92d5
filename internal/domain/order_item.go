package domain

import (
	"time"
)

// OrderItemStatus represents the fulfillment state of a single line item
type OrderItemStatus string

const (
	ItemStatusPending            OrderItemStatus = "pending"
	ItemStatusPartiallyFulfilled OrderItemStatus = "partially_fulfilled"
	ItemStatusFulfilled          OrderItemStatus = "fulfilled"
	ItemStatusCancelled          OrderItemStatus = "cancelled"
)

// OrderItemLotAllocation is the immutable record linking an order item to a
// reserved lot. Created only during order-creation reservation; a correction
// requires a new order-level operation.
type OrderItemLotAllocation struct {
	LotBatchID        string    `bson:"lotBatchId" json:"lotBatchId"`
	LotNumber         string    `bson:"lotNumber" json:"lotNumber"`
	BatchNumber       string    `bson:"batchNumber" json:"batchNumber"`
	AllocatedQuantity int       `bson:"allocatedQuantity" json:"allocatedQuantity"`
	ManufacturingDate time.Time `bson:"manufacturingDate" json:"manufacturingDate"`
	ExpiryDate        time.Time `bson:"expiryDate" json:"expiryDate"`
	ReservedAt        time.Time `bson:"reservedAt" json:"reservedAt"`
	ReservedBy        string    `bson:"reservedBy" json:"reservedBy"`
}

// OrderItem represents a line item with pricing snapshot, computed line
// totals and fulfillment progress counters. Owned exclusively by its Order.
type OrderItem struct {
	ItemID             string  `bson:"itemId" json:"itemId"`
	ProductID          string  `bson:"productId" json:"productId"`
	ProductCode        string  `bson:"productCode" json:"productCode"`
	ProductName        string  `bson:"productName" json:"productName"`
	UnitPrice          Money   `bson:"unitPrice" json:"unitPrice"`
	BoxSize            int     `bson:"boxSize" json:"boxSize"`
	QuantityBoxes      int     `bson:"quantityBoxes" json:"quantityBoxes"`
	QuantityLoose      int     `bson:"quantityLoose" json:"quantityLoose"`
	TotalUnits         int     `bson:"totalUnits" json:"totalUnits"`
	DiscountPercentage float64 `bson:"discountPercentage" json:"discountPercentage"`
	TaxRate            float64 `bson:"taxRate" json:"taxRate"`

	// Derived line totals, computed once at construction
	UnitTotal      Money `bson:"unitTotal" json:"unitTotal"`
	DiscountAmount Money `bson:"discountAmount" json:"discountAmount"`
	TaxAmount      Money `bson:"taxAmount" json:"taxAmount"`
	ItemTotal      Money `bson:"itemTotal" json:"itemTotal"`

	// Fulfillment progress
	FulfilledBoxes int             `bson:"fulfilledBoxes" json:"fulfilledBoxes"`
	FulfilledLoose int             `bson:"fulfilledLoose" json:"fulfilledLoose"`
	FulfilledUnits int             `bson:"fulfilledUnits" json:"fulfilledUnits"`
	Status         OrderItemStatus `bson:"status" json:"status"`

	LotAllocations []OrderItemLotAllocation `bson:"lotAllocations,omitempty" json:"lotAllocations,omitempty"`
}

// OrderItemParams carries the inputs to NewOrderItem
type OrderItemParams struct {
	ItemID             string
	ProductID          string
	ProductCode        string
	ProductName        string
	UnitPrice          Money
	BoxSize            int
	QuantityBoxes      int
	QuantityLoose      int
	DiscountPercentage float64
	TaxRate            float64
}

// NewOrderItem builds a line item and derives its totals.
// totalUnits = boxes*boxSize + loose; discount and tax are percentages of
// the unit total and the discounted total respectively.
func NewOrderItem(params OrderItemParams) (OrderItem, error) {
	if params.QuantityBoxes < 0 || params.QuantityLoose < 0 {
		return OrderItem{}, ErrNegativeQuantity
	}
	if params.UnitPrice.IsNegative() {
		return OrderItem{}, ErrNegativeUnitPrice
	}
	if params.DiscountPercentage < 0 || params.DiscountPercentage > 100 {
		return OrderItem{}, ErrInvalidDiscount
	}

	boxSize := params.BoxSize
	if boxSize <= 0 {
		boxSize = 1
	}
	totalUnits := params.QuantityBoxes*boxSize + params.QuantityLoose

	unitTotal, err := params.UnitPrice.Multiply(totalUnits)
	if err != nil {
		return OrderItem{}, err
	}

	discount, err := unitTotal.Percent(params.DiscountPercentage)
	if err != nil {
		return OrderItem{}, err
	}

	discounted, err := unitTotal.Subtract(discount)
	if err != nil {
		return OrderItem{}, err
	}

	tax, err := discounted.Percent(params.TaxRate)
	if err != nil {
		return OrderItem{}, err
	}

	itemTotal, err := discounted.Add(tax)
	if err != nil {
		return OrderItem{}, err
	}

	return OrderItem{
		ItemID:             params.ItemID,
		ProductID:          params.ProductID,
		ProductCode:        params.ProductCode,
		ProductName:        params.ProductName,
		UnitPrice:          params.UnitPrice,
		BoxSize:            boxSize,
		QuantityBoxes:      params.QuantityBoxes,
		QuantityLoose:      params.QuantityLoose,
		TotalUnits:         totalUnits,
		DiscountPercentage: params.DiscountPercentage,
		TaxRate:            params.TaxRate,
		UnitTotal:          unitTotal,
		DiscountAmount:     discount,
		TaxAmount:          tax,
		ItemTotal:          itemTotal,
		Status:             ItemStatusPending,
		LotAllocations:     nil,
	}, nil
}

// WithLotAllocations returns a copy of the item carrying the given allocations
func (i OrderItem) WithLotAllocations(allocations []OrderItemLotAllocation) OrderItem {
	copied := i
	copied.LotAllocations = make([]OrderItemLotAllocation, len(allocations))
	copy(copied.LotAllocations, allocations)
	return copied
}

// AllocatedQuantity returns the total units reserved across the item's lots
func (i OrderItem) AllocatedQuantity() int {
	total := 0
	for _, allocation := range i.LotAllocations {
		total += allocation.AllocatedQuantity
	}
	return total
}

// IsFullyAllocated returns true if lot allocations cover the item's units
func (i OrderItem) IsFullyAllocated() bool {
	return i.AllocatedQuantity() == i.TotalUnits
}

// IsFullyFulfilled returns true if all units have been physically fulfilled
func (i OrderItem) IsFullyFulfilled() bool {
	return i.FulfilledUnits >= i.TotalUnits && i.TotalUnits > 0
}

// clone deep-copies the item including its allocation records
func (i OrderItem) clone() OrderItem {
	copied := i
	if i.LotAllocations != nil {
		copied.LotAllocations = make([]OrderItemLotAllocation, len(i.LotAllocations))
		copy(copied.LotAllocations, i.LotAllocations)
	}
	return copied
}
