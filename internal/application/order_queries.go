package application

import (
	"context"

	"github.com/flowlytix/order-service/internal/domain"
	"github.com/flowlytix/order-service/pkg/logging"
)

// OrderQueryService serves the read side: single orders, filtered lists,
// fulfillment summaries, lot allocations and product availability
type OrderQueryService struct {
	orders      domain.OrderRepository
	allocations domain.OrderLotAllocationRepository
	lots        domain.LotBatchRepository
	logger      *logging.Logger
}

// NewOrderQueryService creates a new OrderQueryService
func NewOrderQueryService(
	orders domain.OrderRepository,
	allocations domain.OrderLotAllocationRepository,
	lots domain.LotBatchRepository,
	logger *logging.Logger,
) *OrderQueryService {
	return &OrderQueryService{
		orders:      orders,
		allocations: allocations,
		lots:        lots,
		logger:      logger,
	}
}

// GetOrder returns a single order by its identifier
func (s *OrderQueryService) GetOrder(ctx context.Context, orderID string) (*OrderDTO, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := ToOrderDTO(order)
	return &dto, nil
}

// GetOrderByNumber returns a single order by its business number within an agency
func (s *OrderQueryService) GetOrderByNumber(ctx context.Context, orderNumber, agencyID string) (*OrderDTO, error) {
	order, err := s.orders.FindByOrderNumber(ctx, orderNumber, agencyID)
	if err != nil {
		return nil, err
	}
	dto := ToOrderDTO(order)
	return &dto, nil
}

// ListOrders returns a filtered, paginated order page with the total count
func (s *OrderQueryService) ListOrders(ctx context.Context, query ListOrdersQuery) (*OrderListResult, error) {
	filter := domain.OrderFilter{
		AgencyID:   query.AgencyID,
		CustomerID: query.CustomerID,
	}
	if query.Status != "" {
		filter.Status = domain.OrderStatus(query.Status)
	}
	if query.FulfillmentStatus != "" {
		filter.FulfillmentStatus = domain.FulfillmentStatus(query.FulfillmentStatus)
	}
	if query.PaymentStatus != "" {
		filter.PaymentStatus = domain.PaymentStatus(query.PaymentStatus)
	}
	filter.OrderedAfter = query.OrderedAfter
	filter.OrderedBefore = query.OrderedBefore

	page := domain.Pagination{Page: query.Page, PageSize: query.PageSize}

	orders, err := s.orders.Find(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	total, err := s.orders.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, ToOrderDTO(order))
	}

	limit := page.Limit()
	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	currentPage := page.Page
	if currentPage < 1 {
		currentPage = 1
	}

	return &OrderListResult{
		Orders:     dtos,
		Total:      total,
		Page:       currentPage,
		PageSize:   limit,
		TotalPages: totalPages,
	}, nil
}

// GetFulfillmentSummary returns per-item and aggregate fulfillment progress
func (s *OrderQueryService) GetFulfillmentSummary(ctx context.Context, orderID string) (*domain.FulfillmentSummary, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	summary := order.GetFulfillmentSummary()
	return &summary, nil
}

// GetOrderAllocations returns the lot allocation records reserved for an order
func (s *OrderQueryService) GetOrderAllocations(ctx context.Context, orderID string) ([]domain.OrderLotAllocation, error) {
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.allocations.FindByOrderID(ctx, orderID)
}

// GetProductAvailability reports sellable units for a product within an agency
func (s *OrderQueryService) GetProductAvailability(ctx context.Context, productID, agencyID string) (*ProductAvailabilityResult, error) {
	available, err := s.lots.AvailableQuantityForProduct(ctx, productID, agencyID)
	if err != nil {
		return nil, err
	}
	return &ProductAvailabilityResult{
		ProductID:         productID,
		AgencyID:          agencyID,
		AvailableQuantity: available,
	}, nil
}
