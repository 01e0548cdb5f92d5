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

// CustomerRepository implements domain.CustomerRepository using MongoDB
type CustomerRepository struct {
	collection *mongo.Collection
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *mongo.Database) *CustomerRepository {
	collection := db.Collection("customers")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "customerId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "agencyId", Value: 1},
				{Key: "code", Value: 1},
			},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &CustomerRepository{collection: collection}
}

// FindByID retrieves a customer by its identifier
func (r *CustomerRepository) FindByID(ctx context.Context, customerID string) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.collection.FindOne(ctx, bson.M{"customerId": customerID}).Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return &customer, nil
}

// UpdateOrderStats increments the customer's order counters after a
// successful order creation
func (r *CustomerRepository) UpdateOrderStats(ctx context.Context, customerID string, orderTotal domain.Money) error {
	filter := bson.M{"customerId": customerID}
	update := bson.M{
		"$inc": bson.M{
			"ordersCount":            1,
			"totalOrderValue.amount": orderTotal.Amount(),
		},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update customer order stats: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}
