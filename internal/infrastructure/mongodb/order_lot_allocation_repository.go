package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowlytix/order-service/internal/domain"
)

// OrderLotAllocationRepository implements domain.OrderLotAllocationRepository
// using MongoDB
type OrderLotAllocationRepository struct {
	collection *mongo.Collection
}

// NewOrderLotAllocationRepository creates a new OrderLotAllocationRepository
func NewOrderLotAllocationRepository(db *mongo.Database) *OrderLotAllocationRepository {
	collection := db.Collection("order_lot_allocations")

	// Create indexes
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "allocationId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "orderId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "lotBatchId", Value: 1}},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &OrderLotAllocationRepository{collection: collection}
}

// SaveAll persists the allocation records for one order
func (r *OrderLotAllocationRepository) SaveAll(ctx context.Context, allocations []domain.OrderLotAllocation) error {
	if len(allocations) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(allocations))
	for _, allocation := range allocations {
		docs = append(docs, allocation)
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to save lot allocations: %w", err)
	}
	return nil
}

// FindByOrderID retrieves the allocation records reserved for an order
func (r *OrderLotAllocationRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.OrderLotAllocation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "reservedAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"orderId": orderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find lot allocations: %w", err)
	}
	defer cursor.Close(ctx)

	allocations := make([]domain.OrderLotAllocation, 0)
	if err := cursor.All(ctx, &allocations); err != nil {
		return nil, fmt.Errorf("failed to decode lot allocations: %w", err)
	}
	return allocations, nil
}
