package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowlytix/order-service/internal/domain"
)

// OrderRepository implements domain.OrderRepository using MongoDB
type OrderRepository struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	collection := db.Collection("orders")

	// Create indexes
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "agencyId", Value: 1},
				{Key: "orderNumber", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "agencyId", Value: 1},
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "customer.customerId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "fulfillmentStatus", Value: 1}},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &OrderRepository{
		collection: collection,
		counters:   db.Collection("order_counters"),
	}
}

// Save upserts the order revision keyed by orderId
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"orderId": order.OrderID}
	update := bson.M{"$set": order}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateOrder
		}
		return nil, fmt.Errorf("failed to save order: %w", err)
	}
	return order, nil
}

// FindByID retrieves an order by its identifier
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &order, nil
}

// FindByOrderNumber retrieves an order by its business number within an agency
func (r *OrderRepository) FindByOrderNumber(ctx context.Context, orderNumber, agencyID string) (*domain.Order, error) {
	var order domain.Order
	filter := bson.M{"orderNumber": orderNumber, "agencyId": agencyID}

	err := r.collection.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by number: %w", err)
	}
	return &order, nil
}

// ExistsByOrderNumber reports whether an order number is already taken within an agency
func (r *OrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber, agencyID string) (bool, error) {
	filter := bson.M{"orderNumber": orderNumber, "agencyId": agencyID}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check order number: %w", err)
	}
	return count > 0, nil
}

// NextOrderNumber atomically advances the per-agency sequence and formats
// the next number as PREFIX-YYYY-NNNNNN
func (r *OrderRepository) NextOrderNumber(ctx context.Context, agencyID, prefix string) (string, error) {
	year := time.Now().UTC().Year()
	filter := bson.M{"agencyId": agencyID, "year": year}
	update := bson.M{"$inc": bson.M{"seq": 1}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	if err := r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&counter); err != nil {
		return "", fmt.Errorf("failed to advance order sequence: %w", err)
	}

	return fmt.Sprintf("%s-%d-%06d", prefix, year, counter.Seq), nil
}

// Find retrieves orders matching the filter, newest first
func (r *OrderRepository) Find(ctx context.Context, filter domain.OrderFilter, page domain.Pagination) ([]*domain.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Limit()))

	cursor, err := r.collection.Find(ctx, buildOrderFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// Count returns the number of orders matching the filter
func (r *OrderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, buildOrderFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

func buildOrderFilter(filter domain.OrderFilter) bson.M {
	mongoFilter := bson.M{}

	if filter.AgencyID != "" {
		mongoFilter["agencyId"] = filter.AgencyID
	}
	if filter.CustomerID != "" {
		mongoFilter["customer.customerId"] = filter.CustomerID
	}
	if filter.Status != "" {
		mongoFilter["status"] = filter.Status
	}
	if filter.FulfillmentStatus != "" {
		mongoFilter["fulfillmentStatus"] = filter.FulfillmentStatus
	}
	if filter.PaymentStatus != "" {
		mongoFilter["paymentStatus"] = filter.PaymentStatus
	}

	dateRange := bson.M{}
	if filter.OrderedAfter != nil {
		dateRange["$gte"] = *filter.OrderedAfter
	}
	if filter.OrderedBefore != nil {
		dateRange["$lte"] = *filter.OrderedBefore
	}
	if len(dateRange) > 0 {
		mongoFilter["orderDate"] = dateRange
	}

	return mongoFilter
}
