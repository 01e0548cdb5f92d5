package application

import (
	"context"
	"errors"

	"github.com/flowlytix/order-service/internal/domain"
	"github.com/flowlytix/order-service/pkg/logging"
	"github.com/flowlytix/order-service/pkg/middleware"
)

// OrderLifecycleService drives every post-creation order operation:
// confirmation, cancellation, payment and the fulfillment state machine.
// Each operation follows the same shape: load the aggregate, apply the
// domain transition, persist the new revision, then publish events and
// record metrics best-effort.
type OrderLifecycleService struct {
	orders    domain.OrderRepository
	publisher domain.EventPublisher
	logger    *logging.Logger
	metrics   *middleware.BusinessMetrics
}

// NewOrderLifecycleService creates a new OrderLifecycleService
func NewOrderLifecycleService(
	orders domain.OrderRepository,
	publisher domain.EventPublisher,
	logger *logging.Logger,
	metrics *middleware.BusinessMetrics,
) *OrderLifecycleService {
	return &OrderLifecycleService{
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// ConfirmOrder moves a pending order to confirmed after the credit check
func (s *OrderLifecycleService) ConfirmOrder(ctx context.Context, cmd ConfirmOrderCommand) (*OrderDTO, error) {
	return s.apply(ctx, cmd.OrderID, "confirm", cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		updated, err := o.Confirm(cmd.RequestedBy)
		var creditErr *domain.CreditLimitExceededError
		if errors.As(err, &creditErr) {
			s.metrics.RecordCreditRejection(o.AgencyID)
		}
		return updated, err
	})
}

// CancelOrder cancels an order that has not shipped. Cancelling an already
// cancelled order is a no-op.
func (s *OrderLifecycleService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (*OrderDTO, error) {
	return s.apply(ctx, cmd.OrderID, "cancel", cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		return o.Cancel(cmd.RequestedBy, cmd.Reason)
	})
}

// RecordPayment applies a payment against the order total
func (s *OrderLifecycleService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (*OrderDTO, error) {
	amount, err := domain.NewMoney(cmd.AmountCents, cmd.Currency)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, cmd.OrderID, "recordPayment", cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		return o.MarkPaymentReceived(amount, cmd.RequestedBy)
	})
}

// StartPicking begins warehouse picking for a confirmed order
func (s *OrderLifecycleService) StartPicking(ctx context.Context, cmd FulfillmentCommand) (*OrderDTO, error) {
	return s.applyFulfillment(ctx, cmd.OrderID, string(domain.ActionPickingStarted), cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		return o.StartPicking(cmd.RequestedBy, cmd.AssignedWorker)
	})
}

// CompletePicking records the picking checkpoint; the order stays in picking
func (s *OrderLifecycleService) CompletePicking(ctx context.Context, cmd FulfillmentCommand) (*OrderDTO, error) {
	return s.applyFulfillment(ctx, cmd.OrderID, string(domain.ActionPickingCompleted), cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		return o.CompletePicking(cmd.RequestedBy, cmd.Notes)
	})
}

// StartPacking records the packing checkpoint; the order stays in picking
func (s *OrderLifecycleService) StartPacking(ctx context.Context, cmd FulfillmentCommand) (*OrderDTO, error) {
	return s.applyFulfillment(ctx, cmd.OrderID, string(domain.ActionPackingStarted), cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		return o.StartPacking(cmd.RequestedBy)
	})
}

// CompletePacking moves the order from picking or partial to packed
func (s *OrderLifecycleService) CompletePacking(ctx context.Context, cmd FulfillmentCommand) (*OrderDTO, error) {
	return s.applyFulfillment(ctx, cmd.OrderID, string(domain.ActionPackingCompleted), cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		return o.CompletePacking(cmd.RequestedBy)
	})
}

// ShipOrder dispatches a packed or partial order with carrier details
func (s *OrderLifecycleService) ShipOrder(ctx context.Context, cmd FulfillmentCommand) (*OrderDTO, error) {
	return s.applyFulfillment(ctx, cmd.OrderID, string(domain.ActionShipped), cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		return o.Ship(cmd.RequestedBy, cmd.TrackingNumber, cmd.Carrier)
	})
}

// DeliverOrder records delivery of a shipped order
func (s *OrderLifecycleService) DeliverOrder(ctx context.Context, cmd FulfillmentCommand) (*OrderDTO, error) {
	return s.applyFulfillment(ctx, cmd.OrderID, string(domain.ActionDelivered), cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		return o.Deliver(cmd.RequestedBy, cmd.RecipientName)
	})
}

// MarkPartialFulfillment flags the order as partially fulfillable
func (s *OrderLifecycleService) MarkPartialFulfillment(ctx context.Context, cmd FulfillmentCommand) (*OrderDTO, error) {
	return s.applyFulfillment(ctx, cmd.OrderID, string(domain.ActionPartialMarked), cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		return o.MarkPartialFulfillment(cmd.RequestedBy, cmd.Reason)
	})
}

// RollbackFulfillment reverts the fulfillment status to an earlier stage
func (s *OrderLifecycleService) RollbackFulfillment(ctx context.Context, cmd RollbackFulfillmentCommand) (*OrderDTO, error) {
	return s.applyFulfillment(ctx, cmd.OrderID, string(domain.ActionRollback), cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		return o.RollbackFulfillment(cmd.Target, cmd.RequestedBy, cmd.Reason)
	})
}

// RecordItemFulfillment records picked quantities against a single line item
func (s *OrderLifecycleService) RecordItemFulfillment(ctx context.Context, cmd RecordItemFulfillmentCommand) (*OrderDTO, error) {
	return s.applyFulfillment(ctx, cmd.OrderID, string(domain.ActionItemFulfillment), cmd.RequestedBy, func(o *domain.Order) (*domain.Order, error) {
		return o.RecordItemFulfillment(cmd.ProductID, cmd.Boxes, cmd.Loose, cmd.RequestedBy)
	})
}

// apply is the shared load-mutate-save-publish path
func (s *OrderLifecycleService) apply(
	ctx context.Context,
	orderID string,
	operation string,
	requestedBy string,
	mutate func(*domain.Order) (*domain.Order, error),
) (*OrderDTO, error) {
	log := s.logger.WithOperation(operation).WithContext(ctx)

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	updated, err := mutate(order)
	if err != nil {
		log.WithError(err).Warn("Order operation rejected", "orderId", orderID)
		return nil, err
	}

	saved, err := s.orders.Save(ctx, updated)
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, saved)
	s.logger.Audit(ctx, operation, "order", saved.OrderID, requestedBy, map[string]any{
		"orderNumber":       saved.OrderNumber,
		"status":            string(saved.Status),
		"fulfillmentStatus": string(saved.FulfillmentStatus),
	})
	log.Info("Order operation applied",
		"orderId", saved.OrderID,
		"orderNumber", saved.OrderNumber,
		"status", saved.Status,
		"fulfillmentStatus", saved.FulfillmentStatus,
	)

	dto := ToOrderDTO(saved)
	return &dto, nil
}

// applyFulfillment wraps apply with transition outcome metrics
func (s *OrderLifecycleService) applyFulfillment(
	ctx context.Context,
	orderID string,
	action string,
	requestedBy string,
	mutate func(*domain.Order) (*domain.Order, error),
) (*OrderDTO, error) {
	dto, err := s.apply(ctx, orderID, action, requestedBy, mutate)
	s.metrics.RecordFulfillmentTransition(action, err == nil)
	return dto, err
}

func (s *OrderLifecycleService) publishEvents(ctx context.Context, order *domain.Order) {
	for _, event := range order.DomainEvents() {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.WithError(err).Warn("Failed to publish domain event",
				"eventType", event.EventType(), "orderId", order.OrderID)
		}
	}
}
