package domain

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LotStatus represents the handling status of a lot/batch
type LotStatus string

const (
	LotStatusActive     LotStatus = "active"
	LotStatusQuarantine LotStatus = "quarantine"
	LotStatusExpired    LotStatus = "expired"
	LotStatusDamaged    LotStatus = "damaged"
	LotStatusRecalled   LotStatus = "recalled"
)

// IsValid checks if the lot status is valid
func (s LotStatus) IsValid() bool {
	switch s {
	case LotStatusActive, LotStatusQuarantine, LotStatusExpired, LotStatusDamaged, LotStatusRecalled:
		return true
	default:
		return false
	}
}

// DefaultExcludedLotStatuses are never offered to order allocation
var DefaultExcludedLotStatuses = []LotStatus{
	LotStatusExpired,
	LotStatusDamaged,
	LotStatusRecalled,
}

// LotBatch is a tracked quantity of a product manufactured at a specific time.
// Reserved quantity bookkeeping is owned by the lot/batch repository; this
// type is the read model the FIFO selection engine operates on.
type LotBatch struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LotBatchID        string             `bson:"lotBatchId" json:"lotBatchId"`
	LotNumber         string             `bson:"lotNumber" json:"lotNumber"`
	BatchNumber       string             `bson:"batchNumber" json:"batchNumber"`
	ProductID         string             `bson:"productId" json:"productId"`
	AgencyID          string             `bson:"agencyId" json:"agencyId"`
	ManufacturingDate time.Time          `bson:"manufacturingDate" json:"manufacturingDate"`
	ExpiryDate        time.Time          `bson:"expiryDate" json:"expiryDate"`
	Quantity          int                `bson:"quantity" json:"quantity"`
	ReservedQuantity  int                `bson:"reservedQuantity" json:"reservedQuantity"`
	Status            LotStatus          `bson:"status" json:"status"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AvailableQuantity returns the quantity not yet reserved
func (l LotBatch) AvailableQuantity() int {
	available := l.Quantity - l.ReservedQuantity
	if available < 0 {
		return 0
	}
	return available
}

// FifoCriteria describes a FIFO lot selection request
type FifoCriteria struct {
	ProductID         string
	AgencyID          string
	RequestedQuantity int
	ExcludeStatuses   []LotStatus
	IncludeReserved   bool
}

// SelectedLot is one lot's contribution to a FIFO allocation
type SelectedLot struct {
	LotBatchID        string    `json:"lotBatchId"`
	LotNumber         string    `json:"lotNumber"`
	BatchNumber       string    `json:"batchNumber"`
	ManufacturingDate time.Time `json:"manufacturingDate"`
	ExpiryDate        time.Time `json:"expiryDate"`
	AllocatedQuantity int       `json:"allocatedQuantity"`
}

// FifoAllocationResult is the outcome of a FIFO lot selection.
// HasFullAllocation is the sole authority callers trust to decide success.
type FifoAllocationResult struct {
	SelectedLots           []SelectedLot `json:"selectedLots"`
	TotalAllocatedQuantity int           `json:"totalAllocatedQuantity"`
	RemainingQuantity      int           `json:"remainingQuantity"`
	HasFullAllocation      bool          `json:"hasFullAllocation"`
}

// SelectFifoLots greedily consumes candidate lots oldest-manufactured-first
// until the requested quantity is satisfied or supply is exhausted. Lots in
// an excluded status are never selected; reserved quantity is only offered
// when IncludeReserved is set. Partial coverage is reported, never hidden.
func SelectFifoLots(lots []LotBatch, criteria FifoCriteria) *FifoAllocationResult {
	result := &FifoAllocationResult{
		SelectedLots:      make([]SelectedLot, 0),
		RemainingQuantity: criteria.RequestedQuantity,
	}

	if criteria.RequestedQuantity <= 0 {
		result.HasFullAllocation = true
		result.RemainingQuantity = 0
		return result
	}

	excluded := make(map[LotStatus]bool, len(criteria.ExcludeStatuses))
	for _, status := range criteria.ExcludeStatuses {
		excluded[status] = true
	}

	candidates := make([]LotBatch, 0, len(lots))
	for _, lot := range lots {
		if excluded[lot.Status] {
			continue
		}
		if criteria.ProductID != "" && lot.ProductID != criteria.ProductID {
			continue
		}
		if criteria.AgencyID != "" && lot.AgencyID != criteria.AgencyID {
			continue
		}
		candidates = append(candidates, lot)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ManufacturingDate.Before(candidates[j].ManufacturingDate)
	})

	remaining := criteria.RequestedQuantity
	for _, lot := range candidates {
		if remaining == 0 {
			break
		}

		offered := lot.AvailableQuantity()
		if criteria.IncludeReserved {
			offered = lot.Quantity
		}
		if offered <= 0 {
			continue
		}

		take := offered
		if take > remaining {
			take = remaining
		}

		result.SelectedLots = append(result.SelectedLots, SelectedLot{
			LotBatchID:        lot.LotBatchID,
			LotNumber:         lot.LotNumber,
			BatchNumber:       lot.BatchNumber,
			ManufacturingDate: lot.ManufacturingDate,
			ExpiryDate:        lot.ExpiryDate,
			AllocatedQuantity: take,
		})
		result.TotalAllocatedQuantity += take
		remaining -= take
	}

	result.RemainingQuantity = remaining
	result.HasFullAllocation = remaining == 0

	return result
}
