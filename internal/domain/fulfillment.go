package domain

import (
	"time"
)

// FulfillmentStatus represents the physical-handling stage of an order,
// distinct from its commercial status
type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentPicking   FulfillmentStatus = "picking"
	FulfillmentPacked    FulfillmentStatus = "packed"
	FulfillmentShipped   FulfillmentStatus = "shipped"
	FulfillmentDelivered FulfillmentStatus = "delivered"
	FulfillmentPartial   FulfillmentStatus = "partial"
)

// FulfillmentAction identifies the operation recorded in an audit entry
type FulfillmentAction string

const (
	ActionPickingStarted   FulfillmentAction = "picking_started"
	ActionPickingCompleted FulfillmentAction = "picking_completed"
	ActionPackingStarted   FulfillmentAction = "packing_started"
	ActionPackingCompleted FulfillmentAction = "packing_completed"
	ActionShipped          FulfillmentAction = "shipped"
	ActionDelivered        FulfillmentAction = "delivered"
	ActionPartialMarked    FulfillmentAction = "partial_fulfillment"
	ActionRollback         FulfillmentAction = "rollback"
	ActionItemFulfillment  FulfillmentAction = "item_fulfillment"
)

// FulfillmentAuditEntry records a single fulfillment transition.
// Entries are append-only and never edited or removed.
type FulfillmentAuditEntry struct {
	ActionType     FulfillmentAction `bson:"actionType" json:"actionType"`
	PreviousStatus FulfillmentStatus `bson:"previousStatus" json:"previousStatus"`
	NewStatus      FulfillmentStatus `bson:"newStatus" json:"newStatus"`
	PerformedBy    string            `bson:"performedBy" json:"performedBy"`
	PerformedAt    time.Time         `bson:"performedAt" json:"performedAt"`
	Notes          string            `bson:"notes,omitempty" json:"notes,omitempty"`
	Metadata       map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// forwardTransitions is the legal transition table for the fulfillment
// state machine. Rollback targets have their own stricter table below.
var forwardTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentPending:   {FulfillmentPicking, FulfillmentPartial},
	FulfillmentPicking:   {FulfillmentPacked, FulfillmentPartial},
	FulfillmentPacked:    {FulfillmentShipped},
	FulfillmentShipped:   {FulfillmentDelivered},
	FulfillmentPartial:   {FulfillmentPicking, FulfillmentPacked, FulfillmentShipped},
	FulfillmentDelivered: {},
}

// rollbackTargets restricts which states a rollback may reach.
// Shipped and delivered orders can never roll back.
var rollbackTargets = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentPicking: {FulfillmentPending},
	FulfillmentPacked:  {FulfillmentPicking, FulfillmentPending},
	FulfillmentPartial: {FulfillmentPending, FulfillmentPicking},
}

func transitionAllowed(table map[FulfillmentStatus][]FulfillmentStatus, from, to FulfillmentStatus) bool {
	for _, target := range table[from] {
		if target == to {
			return true
		}
	}
	return false
}

// orderStatusFor keeps the commercial status axis in lockstep with the
// fulfillment axis. Centralized here so every transition applies the same
// synchronization rule.
func orderStatusFor(fulfillment FulfillmentStatus) OrderStatus {
	switch fulfillment {
	case FulfillmentPicking, FulfillmentPacked, FulfillmentPartial:
		return OrderStatusProcessing
	case FulfillmentShipped:
		return OrderStatusShipped
	case FulfillmentDelivered:
		return OrderStatusDelivered
	default:
		return OrderStatusConfirmed
	}
}

// CanStartPicking reports whether picking may begin. Picking requires a
// confirmed order, or a processing order that was marked partial.
func (o *Order) CanStartPicking() bool {
	if o.Status != OrderStatusConfirmed &&
		!(o.Status == OrderStatusProcessing && o.FulfillmentStatus == FulfillmentPartial) {
		return false
	}
	return transitionAllowed(forwardTransitions, o.FulfillmentStatus, FulfillmentPicking)
}

// CanStartPacking reports whether packing may begin
func (o *Order) CanStartPacking() bool {
	return o.Status == OrderStatusProcessing && o.FulfillmentStatus == FulfillmentPicking
}

// CanShip reports whether the order may be shipped
func (o *Order) CanShip() bool {
	if o.Status != OrderStatusProcessing {
		return false
	}
	return transitionAllowed(forwardTransitions, o.FulfillmentStatus, FulfillmentShipped)
}

// CanDeliver reports whether the order may be delivered
func (o *Order) CanDeliver() bool {
	return o.Status == OrderStatusShipped && o.FulfillmentStatus == FulfillmentShipped
}

// CanRollbackFulfillment reports whether the fulfillment state may be
// rolled back to the given target
func (o *Order) CanRollbackFulfillment(target FulfillmentStatus) bool {
	return transitionAllowed(rollbackTargets, o.FulfillmentStatus, target)
}

// StartPicking begins the picking stage, optionally recording the worker
// assigned to pick
func (o *Order) StartPicking(userID, assignedWorker string) (*Order, error) {
	if !o.CanStartPicking() {
		return nil, &FulfillmentStatusError{
			Current:     o.FulfillmentStatus,
			OrderStatus: o.Status,
			Attempted:   "startPicking",
		}
	}

	metadata := map[string]string{}
	if assignedWorker != "" {
		metadata["assignedWorker"] = assignedWorker
	}

	return o.transition(FulfillmentPicking, ActionPickingStarted, userID, "", metadata), nil
}

// CompletePicking records that picking finished. The order stays in
// picking until packing completes; this is an audited checkpoint.
func (o *Order) CompletePicking(userID, notes string) (*Order, error) {
	if o.FulfillmentStatus != FulfillmentPicking {
		return nil, &FulfillmentStatusError{
			Current:     o.FulfillmentStatus,
			OrderStatus: o.Status,
			Attempted:   "completePicking",
		}
	}

	return o.transition(FulfillmentPicking, ActionPickingCompleted, userID, notes, nil), nil
}

// StartPacking records that packing began
func (o *Order) StartPacking(userID string) (*Order, error) {
	if !o.CanStartPacking() {
		return nil, &FulfillmentStatusError{
			Current:     o.FulfillmentStatus,
			OrderStatus: o.Status,
			Attempted:   "startPacking",
		}
	}

	return o.transition(FulfillmentPicking, ActionPackingStarted, userID, "", nil), nil
}

// CompletePacking moves the order to packed. Reachable from picking and
// from partial, per the forward table.
func (o *Order) CompletePacking(userID string) (*Order, error) {
	if o.Status != OrderStatusProcessing ||
		!transitionAllowed(forwardTransitions, o.FulfillmentStatus, FulfillmentPacked) {
		return nil, &FulfillmentStatusError{
			Current:     o.FulfillmentStatus,
			OrderStatus: o.Status,
			Attempted:   "completePacking",
		}
	}

	return o.transition(FulfillmentPacked, ActionPackingCompleted, userID, "", nil), nil
}

// Ship marks the order shipped, recording carrier details
func (o *Order) Ship(userID, trackingNumber, carrier string) (*Order, error) {
	if !o.CanShip() {
		return nil, &FulfillmentStatusError{
			Current:     o.FulfillmentStatus,
			OrderStatus: o.Status,
			Attempted:   "ship",
		}
	}

	metadata := map[string]string{}
	if trackingNumber != "" {
		metadata["trackingNumber"] = trackingNumber
	}
	if carrier != "" {
		metadata["carrier"] = carrier
	}

	return o.transition(FulfillmentShipped, ActionShipped, userID, "", metadata), nil
}

// Deliver marks the order delivered, recording who received it.
// Delivered is terminal: no transition leaves it.
func (o *Order) Deliver(userID, recipientName string) (*Order, error) {
	if !o.CanDeliver() {
		return nil, &FulfillmentStatusError{
			Current:     o.FulfillmentStatus,
			OrderStatus: o.Status,
			Attempted:   "deliver",
		}
	}

	metadata := map[string]string{}
	if recipientName != "" {
		metadata["recipientName"] = recipientName
	}

	return o.transition(FulfillmentDelivered, ActionDelivered, userID, "", metadata), nil
}

// MarkPartialFulfillment flags the order as partially fulfillable
func (o *Order) MarkPartialFulfillment(userID, reason string) (*Order, error) {
	if !transitionAllowed(forwardTransitions, o.FulfillmentStatus, FulfillmentPartial) {
		return nil, &FulfillmentStatusError{
			Current:     o.FulfillmentStatus,
			OrderStatus: o.Status,
			Attempted:   "markPartialFulfillment",
		}
	}

	return o.transition(FulfillmentPartial, ActionPartialMarked, userID, reason, nil), nil
}

// RollbackFulfillment rolls the fulfillment state back to an earlier stage.
// The rollback table is stricter than the forward table; shipped and
// delivered orders can never roll back. The audit entry's metadata records
// the prior status and the rollback reason.
func (o *Order) RollbackFulfillment(target FulfillmentStatus, userID, reason string) (*Order, error) {
	if !o.CanRollbackFulfillment(target) {
		return nil, &FulfillmentStatusError{
			Current:     o.FulfillmentStatus,
			OrderStatus: o.Status,
			Attempted:   "rollbackFulfillment",
		}
	}

	metadata := map[string]string{
		"rolledBackFrom": string(o.FulfillmentStatus),
	}
	if reason != "" {
		metadata["reason"] = reason
	}

	rolled := o.clone()
	previous := rolled.FulfillmentStatus
	rolled.FulfillmentStatus = target
	rolled.Status = orderStatusFor(target)
	rolled.appendAudit(ActionRollback, previous, target, userID, "", metadata)
	rolled.stamp(userID)
	rolled.domainEvents = append(rolled.domainEvents,
		NewFulfillmentStatusChangedEvent(rolled, string(ActionRollback), previous))

	return rolled, nil
}

// RecordItemFulfillment updates an item's fulfillment progress counters.
// Counters are capped at the ordered quantities; the item status follows
// the counters.
func (o *Order) RecordItemFulfillment(productID string, boxes, loose int, userID string) (*Order, error) {
	if boxes < 0 || loose < 0 {
		return nil, ErrNegativeQuantity
	}

	updated := o.clone()
	found := false
	for i := range updated.Items {
		item := &updated.Items[i]
		if item.ProductID != productID {
			continue
		}
		found = true

		item.FulfilledBoxes += boxes
		item.FulfilledLoose += loose
		item.FulfilledUnits = item.FulfilledBoxes*item.BoxSize + item.FulfilledLoose
		if item.FulfilledUnits > item.TotalUnits {
			item.FulfilledUnits = item.TotalUnits
		}

		switch {
		case item.IsFullyFulfilled():
			item.Status = ItemStatusFulfilled
		case item.FulfilledUnits > 0:
			item.Status = ItemStatusPartiallyFulfilled
		}
		break
	}
	if !found {
		return nil, &ProductUnavailableError{ProductID: productID, Reason: "not present on order"}
	}

	updated.stamp(userID)
	return updated, nil
}

// transition performs the shared transition mechanics: clone, move both
// status axes, append exactly one audit entry, stamp, emit an event
func (o *Order) transition(
	target FulfillmentStatus,
	action FulfillmentAction,
	userID, notes string,
	metadata map[string]string,
) *Order {
	next := o.clone()
	previous := next.FulfillmentStatus
	next.FulfillmentStatus = target
	next.Status = orderStatusFor(target)
	next.appendAudit(action, previous, target, userID, notes, metadata)
	next.stamp(userID)
	next.domainEvents = append(next.domainEvents,
		NewFulfillmentStatusChangedEvent(next, string(action), previous))
	return next
}

func (o *Order) appendAudit(
	action FulfillmentAction,
	previous, next FulfillmentStatus,
	userID, notes string,
	metadata map[string]string,
) {
	o.FulfillmentAudit = append(o.FulfillmentAudit, FulfillmentAuditEntry{
		ActionType:     action,
		PreviousStatus: previous,
		NewStatus:      next,
		PerformedBy:    userID,
		PerformedAt:    time.Now().UTC(),
		Notes:          notes,
		Metadata:       metadata,
	})
}

// ItemFulfillmentSummary is the per-item slice of a fulfillment summary
type ItemFulfillmentSummary struct {
	ProductID      string          `json:"productId"`
	ProductCode    string          `json:"productCode"`
	TotalUnits     int             `json:"totalUnits"`
	FulfilledUnits int             `json:"fulfilledUnits"`
	Status         OrderItemStatus `json:"status"`
}

// FulfillmentSummary is a read-side report over item fulfillment counters
type FulfillmentSummary struct {
	OrderID           string                   `json:"orderId"`
	FulfillmentStatus FulfillmentStatus        `json:"fulfillmentStatus"`
	TotalUnits        int                      `json:"totalUnits"`
	FulfilledUnits    int                      `json:"fulfilledUnits"`
	ProgressPercent   float64                  `json:"progressPercent"`
	Items             []ItemFulfillmentSummary `json:"items"`
}

// GetFulfillmentSummary reports per-item fulfillment progress. Pure
// computation; safe before any fulfillment step has begun.
func (o *Order) GetFulfillmentSummary() FulfillmentSummary {
	summary := FulfillmentSummary{
		OrderID:           o.OrderID,
		FulfillmentStatus: o.FulfillmentStatus,
		TotalUnits:        o.TotalUnits(),
		FulfilledUnits:    o.FulfilledUnits(),
		ProgressPercent:   o.GetFulfillmentProgress(),
		Items:             make([]ItemFulfillmentSummary, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		summary.Items = append(summary.Items, ItemFulfillmentSummary{
			ProductID:      item.ProductID,
			ProductCode:    item.ProductCode,
			TotalUnits:     item.TotalUnits,
			FulfilledUnits: item.FulfilledUnits,
			Status:         item.Status,
		})
	}
	return summary
}

// GetFulfillmentProgress returns fulfilled units as a percentage of total
// units, zero for an empty or untouched order
func (o *Order) GetFulfillmentProgress() float64 {
	total := o.TotalUnits()
	if total == 0 {
		return 0
	}
	return float64(o.FulfilledUnits()) / float64(total) * 100.0
}

// IsFullyFulfilled returns true when every item is fully fulfilled
func (o *Order) IsFullyFulfilled() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, item := range o.Items {
		if !item.IsFullyFulfilled() {
			return false
		}
	}
	return true
}

// HasPartialFulfillment returns true when some but not all units are fulfilled
func (o *Order) HasPartialFulfillment() bool {
	fulfilled := o.FulfilledUnits()
	return fulfilled > 0 && fulfilled < o.TotalUnits()
}
