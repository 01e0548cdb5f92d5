package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/flowlytix/order-service/internal/domain"
	"github.com/flowlytix/order-service/pkg/logging"
	"github.com/flowlytix/order-service/pkg/middleware"
)

const orderNumberPrefix = "ORD"

// CreateOrderHandler runs the order creation pipeline: validation, customer
// and product verification, availability pre-check, FIFO lot allocation,
// reservation, persistence and commit. All failures fold into the result;
// Execute never panics and never returns an error.
type CreateOrderHandler struct {
	orders      domain.OrderRepository
	customers   domain.CustomerRepository
	products    domain.ProductRepository
	lots        domain.LotBatchRepository
	allocations domain.OrderLotAllocationRepository
	publisher   domain.EventPublisher
	logger      *logging.Logger
	metrics     *middleware.BusinessMetrics
	validate    *validator.Validate
}

// NewCreateOrderHandler creates a new CreateOrderHandler
func NewCreateOrderHandler(
	orders domain.OrderRepository,
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	lots domain.LotBatchRepository,
	allocations domain.OrderLotAllocationRepository,
	publisher domain.EventPublisher,
	logger *logging.Logger,
	metrics *middleware.BusinessMetrics,
) *CreateOrderHandler {
	return &CreateOrderHandler{
		orders:      orders,
		customers:   customers,
		products:    products,
		lots:        lots,
		allocations: allocations,
		publisher:   publisher,
		logger:      logger,
		metrics:     metrics,
		validate:    validator.New(),
	}
}

// preparedItem carries an item through the pipeline: verified product, the
// priced line item and the lots reserved for it
type preparedItem struct {
	product  *domain.Product
	item     domain.OrderItem
	selected []domain.SelectedLot
}

// Execute runs the creation pipeline end to end
func (h *CreateOrderHandler) Execute(ctx context.Context, cmd CreateOrderCommand) *CreateOrderResult {
	log := h.logger.WithOperation("createOrder").WithContext(ctx)

	// Structural validation
	if err := h.validate.Struct(cmd); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return h.validationFailure(structuralErrors(fieldErrs))
		}
		return h.failure(ctx, nil, err)
	}

	// Business-rule validation beyond tags
	if fields := h.validateBusinessRules(cmd); len(fields) > 0 {
		return h.validationFailure(fields)
	}

	// Customer verification and anti-tamper cross-check
	customer, err := h.customers.FindByID(ctx, cmd.CustomerID)
	if err != nil {
		return h.failure(ctx, nil, err)
	}
	if !customer.CanPlaceOrders() {
		return h.failure(ctx, nil, &domain.CustomerIneligibleError{
			CustomerID: customer.CustomerID,
			Reason:     fmt.Sprintf("status is %s", customer.Status),
		})
	}
	if customer.Code != cmd.CustomerCode {
		return h.validationFailure(map[string]string{
			"customerCode": "does not match customer record",
		})
	}
	if cmd.CreditLimitCents != nil && *cmd.CreditLimitCents != customer.CreditLimit.Amount() {
		return h.validationFailure(map[string]string{
			"creditLimit": "does not match customer record",
		})
	}

	// Product verification, repository price override, availability pre-check
	prepared := make([]preparedItem, 0, len(cmd.Items))
	for _, input := range cmd.Items {
		product, err := h.products.FindByID(ctx, input.ProductID)
		if err != nil {
			return h.failure(ctx, nil, err)
		}
		if !product.IsActive() {
			return h.failure(ctx, nil, &domain.ProductUnavailableError{
				ProductID: product.ProductID,
				Reason:    fmt.Sprintf("status is %s", product.Status),
			})
		}

		item, err := domain.NewOrderItem(domain.OrderItemParams{
			ItemID:             uuid.New().String(),
			ProductID:          product.ProductID,
			ProductCode:        product.SKU,
			ProductName:        product.Name,
			UnitPrice:          product.SellingPrice,
			BoxSize:            product.BoxSize,
			QuantityBoxes:      input.QuantityBoxes,
			QuantityLoose:      input.QuantityLoose,
			DiscountPercentage: input.DiscountPercentage,
			TaxRate:            input.TaxRate,
		})
		if err != nil {
			return h.failure(ctx, nil, err)
		}

		available, err := h.lots.AvailableQuantityForProduct(ctx, product.ProductID, cmd.AgencyID)
		if err != nil {
			return h.failure(ctx, nil, err)
		}
		if available < item.TotalUnits {
			return h.failure(ctx, nil, &domain.InsufficientInventoryError{
				ProductID:   product.ProductID,
				ProductCode: product.SKU,
				Requested:   item.TotalUnits,
				Available:   available,
			})
		}

		prepared = append(prepared, preparedItem{product: product, item: item})
	}

	// Credit ceiling: the prospective total must fit the customer's
	// available credit before any reservation is opened
	if err := h.checkCreditCeiling(customer, prepared); err != nil {
		return h.failure(ctx, nil, err)
	}

	// Open the reservation transaction; from here every failure rolls back
	txn, err := h.lots.BeginTransaction(ctx)
	if err != nil {
		return h.failure(ctx, nil, err)
	}

	// FIFO allocation and per-lot reservation
	allocationRecords := make([]domain.OrderLotAllocation, 0)
	reservedLots := make([]domain.ReservedLotEvent, 0)
	for i := range prepared {
		prep := &prepared[i]

		allocation, err := h.lots.SelectFifoLots(ctx, domain.FifoCriteria{
			ProductID:         prep.product.ProductID,
			AgencyID:          cmd.AgencyID,
			RequestedQuantity: prep.item.TotalUnits,
			ExcludeStatuses:   domain.DefaultExcludedLotStatuses,
		})
		if err != nil {
			return h.failure(ctx, txn, err)
		}
		if !allocation.HasFullAllocation {
			return h.failure(ctx, txn, &domain.InsufficientAllocationError{
				ProductID:   prep.product.ProductID,
				ProductCode: prep.product.SKU,
				Requested:   prep.item.TotalUnits,
				Allocated:   allocation.TotalAllocatedQuantity,
			})
		}

		for _, lot := range allocation.SelectedLots {
			if err := txn.ReserveQuantity(ctx, lot.LotBatchID, lot.AllocatedQuantity, cmd.RequestedBy); err != nil {
				return h.failure(ctx, txn, err)
			}
			reservedLots = append(reservedLots, domain.ReservedLotEvent{
				LotBatchID: lot.LotBatchID,
				LotNumber:  lot.LotNumber,
				ProductID:  prep.product.ProductID,
				Quantity:   lot.AllocatedQuantity,
			})
		}
		prep.selected = allocation.SelectedLots
	}

	// Resolve a guaranteed-unique order number
	orderNumber, err := h.resolveOrderNumber(ctx, cmd)
	if err != nil {
		return h.failure(ctx, txn, err)
	}

	// Build the aggregate; items carry their lot allocations
	order, err := h.buildOrder(cmd, orderNumber, customer, prepared, &allocationRecords)
	if err != nil {
		return h.failure(ctx, txn, err)
	}

	saved, err := h.orders.Save(ctx, order)
	if err != nil {
		return h.failure(ctx, txn, err)
	}

	if err := h.allocations.SaveAll(ctx, allocationRecords); err != nil {
		// The order row outlives the failed allocation write; reservations
		// are rolled back so inventory stays consistent
		log.WithError(err).Warn("Allocation save failed after order save, order row orphaned",
			"orderId", saved.OrderID, "orderNumber", saved.OrderNumber)
		return h.failure(ctx, txn, err)
	}

	if err := txn.Commit(ctx); err != nil {
		return h.failure(ctx, txn, err)
	}
	h.metrics.RecordLotReservation("committed")

	// Best-effort tail: stats, events, metrics. Failures are logged, never
	// surfaced; the order is already committed.
	if err := h.customers.UpdateOrderStats(ctx, customer.CustomerID, saved.TotalAmount); err != nil {
		log.WithError(err).Warn("Failed to update customer order stats", "customerId", customer.CustomerID)
	}

	h.publishEvents(ctx, saved, reservedLots)
	h.metrics.RecordOrderCreated(cmd.AgencyID)

	log.Info("Order created",
		"orderId", saved.OrderID,
		"orderNumber", saved.OrderNumber,
		"totalAmount", saved.TotalAmount.Amount(),
		"items", len(saved.Items),
		"reservedLots", len(reservedLots),
	)

	return &CreateOrderResult{
		Success:     true,
		OrderID:     saved.OrderID,
		OrderNumber: saved.OrderNumber,
		TotalAmount: saved.TotalAmount.Amount(),
		Currency:    saved.TotalAmount.Currency(),
	}
}

func (h *CreateOrderHandler) validateBusinessRules(cmd CreateOrderCommand) map[string]string {
	fields := make(map[string]string)

	seen := make(map[string]bool, len(cmd.Items))
	for i, item := range cmd.Items {
		if item.QuantityBoxes == 0 && item.QuantityLoose == 0 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must order at least one unit"
		}
		if seen[item.ProductID] {
			fields[fmt.Sprintf("items[%d].productId", i)] = "duplicate product on order"
		}
		seen[item.ProductID] = true
	}

	if cmd.DeliveryDate != nil && cmd.DeliveryDate.Before(cmd.OrderDate) {
		fields["deliveryDate"] = "must not precede order date"
	}

	return fields
}

// checkCreditCeiling rejects the order when its prospective total exceeds
// the customer's available credit. The same rule runs again at confirmation
// against the snapshot taken here.
func (h *CreateOrderHandler) checkCreditCeiling(customer *domain.Customer, prepared []preparedItem) error {
	items := make([]domain.OrderItem, 0, len(prepared))
	for _, p := range prepared {
		items = append(items, p.item)
	}

	total, err := domain.OrderTotalFor(items)
	if err != nil {
		return err
	}

	exceeds, err := total.GreaterThan(customer.AvailableCredit())
	if err != nil {
		return err
	}
	if exceeds {
		return &domain.CreditLimitExceededError{
			CustomerCode: customer.Code,
			OrderTotal:   total,
			CreditLimit:  customer.CreditLimit,
			Balance:      customer.Balance,
		}
	}
	return nil
}

// resolveOrderNumber keeps a caller-supplied number when it is free and
// falls back to the repository sequence on collision or absence
func (h *CreateOrderHandler) resolveOrderNumber(ctx context.Context, cmd CreateOrderCommand) (string, error) {
	if cmd.OrderNumber == "" {
		return h.orders.NextOrderNumber(ctx, cmd.AgencyID, orderNumberPrefix)
	}

	exists, err := h.orders.ExistsByOrderNumber(ctx, cmd.OrderNumber, cmd.AgencyID)
	if err != nil {
		return "", err
	}
	if exists {
		return h.orders.NextOrderNumber(ctx, cmd.AgencyID, orderNumberPrefix)
	}
	return cmd.OrderNumber, nil
}

func (h *CreateOrderHandler) buildOrder(
	cmd CreateOrderCommand,
	orderNumber string,
	customer *domain.Customer,
	prepared []preparedItem,
	allocationRecords *[]domain.OrderLotAllocation,
) (*domain.Order, error) {
	orderID := uuid.New().String()

	items := make([]domain.OrderItem, 0, len(prepared))
	for _, p := range prepared {
		itemAllocations := make([]domain.OrderItemLotAllocation, 0, len(p.selected))
		for _, lot := range p.selected {
			expiry := lot.ExpiryDate
			reservedAt := time.Now().UTC()
			itemAllocations = append(itemAllocations, domain.OrderItemLotAllocation{
				LotBatchID:        lot.LotBatchID,
				LotNumber:         lot.LotNumber,
				BatchNumber:       lot.BatchNumber,
				AllocatedQuantity: lot.AllocatedQuantity,
				ManufacturingDate: lot.ManufacturingDate,
				ExpiryDate:        lot.ExpiryDate,
				ReservedAt:        reservedAt,
				ReservedBy:        cmd.RequestedBy,
			})
			*allocationRecords = append(*allocationRecords, domain.OrderLotAllocation{
				AllocationID:      uuid.New().String(),
				OrderID:           orderID,
				OrderItemID:       p.item.ItemID,
				ProductID:         p.product.ProductID,
				LotBatchID:        lot.LotBatchID,
				LotNumber:         lot.LotNumber,
				BatchNumber:       lot.BatchNumber,
				AllocatedQuantity: lot.AllocatedQuantity,
				ManufacturingDate: lot.ManufacturingDate,
				ExpiryDate:        &expiry,
				ReservedAt:        reservedAt,
				ReservedBy:        cmd.RequestedBy,
			})
		}
		items = append(items, p.item.WithLotAllocations(itemAllocations))
	}

	return domain.NewOrder(domain.NewOrderParams{
		OrderID:            orderID,
		OrderNumber:        orderNumber,
		AgencyID:           cmd.AgencyID,
		Customer:           customer.Snapshot(),
		AreaCode:           cmd.AreaCode,
		WorkerName:         cmd.WorkerName,
		Items:              items,
		DiscountPercentage: cmd.DiscountPercentage,
		CreditDays:         cmd.CreditDays,
		OrderDate:          cmd.OrderDate,
		DeliveryDate:       cmd.DeliveryDate,
		CreatedBy:          cmd.RequestedBy,
	})
}

func (h *CreateOrderHandler) publishEvents(ctx context.Context, order *domain.Order, lots []domain.ReservedLotEvent) {
	events := order.DomainEvents()
	events = append(events, domain.NewInventoryReservedEvent(order, lots))

	for _, event := range events {
		if err := h.publisher.Publish(ctx, event); err != nil {
			h.logger.WithError(err).Warn("Failed to publish domain event",
				"eventType", event.EventType(), "orderId", order.OrderID)
		}
	}
}

// failure rolls back an active reservation transaction and folds the error
// into the result. Rollback failures are logged and swallowed; the original
// error always wins.
func (h *CreateOrderHandler) failure(ctx context.Context, txn domain.ReservationTransaction, err error) *CreateOrderResult {
	if txn != nil && txn.IsActive() {
		if rbErr := txn.Rollback(ctx); rbErr != nil {
			h.logger.WithError(rbErr).Error("Reservation rollback failed")
		}
		h.metrics.RecordLotReservation("rolled_back")
	}

	h.metrics.RecordOrderFailed(failureReason(err))
	h.logger.WithError(err).WithOperation("createOrder").Warn("Order creation failed")

	if fields, ok := validationFields(err); ok {
		return &CreateOrderResult{
			Success:          false,
			Error:            "validation failed",
			ValidationErrors: fields,
		}
	}

	return &CreateOrderResult{
		Success: false,
		Error:   err.Error(),
	}
}

func (h *CreateOrderHandler) validationFailure(fields map[string]string) *CreateOrderResult {
	h.metrics.RecordOrderFailed("validation")
	return &CreateOrderResult{
		Success:          false,
		Error:            "validation failed",
		ValidationErrors: fields,
	}
}

// validationFields extracts a field error map from typed domain validation
// errors so API clients can render them per field
func validationFields(err error) (map[string]string, bool) {
	var fieldErr *domain.OrderValidationError
	if errors.As(err, &fieldErr) {
		return map[string]string{fieldErr.Field: fieldErr.Message}, true
	}

	var numberErr *domain.InvalidOrderNumberError
	if errors.As(err, &numberErr) {
		return map[string]string{"orderNumber": numberErr.Reason}, true
	}

	return nil, false
}

func structuralErrors(fieldErrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fe.Field()
		if len(name) > 0 {
			name = strings.ToLower(name[:1]) + name[1:]
		}
		fields[name] = fmt.Sprintf("failed %s validation", fe.Tag())
	}
	return fields
}

func failureReason(err error) string {
	var inventoryErr *domain.InsufficientInventoryError
	var allocationErr *domain.InsufficientAllocationError
	var creditErr *domain.CreditLimitExceededError
	var validationErr *domain.OrderValidationError
	var numberErr *domain.InvalidOrderNumberError

	switch {
	case errors.As(err, &inventoryErr), errors.As(err, &allocationErr):
		return "inventory"
	case errors.As(err, &creditErr):
		return "credit"
	case errors.As(err, &validationErr), errors.As(err, &numberErr):
		return "validation"
	case errors.Is(err, domain.ErrCustomerNotFound), errors.Is(err, domain.ErrProductNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
