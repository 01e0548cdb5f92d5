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

// ProductRepository implements domain.ProductRepository using MongoDB
type ProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *mongo.Database) *ProductRepository {
	collection := db.Collection("products")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "productId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "agencyId", Value: 1},
				{Key: "sku", Value: 1},
			},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &ProductRepository{collection: collection}
}

// FindByID retrieves a product by its identifier
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (*domain.Product, error) {
	var product domain.Product
	err := r.collection.FindOne(ctx, bson.M{"productId": productID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}
