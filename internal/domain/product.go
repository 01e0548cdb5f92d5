package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductStatus represents whether a product may be sold
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// Product is the collaborator view of a product used by order creation.
// The repository's selling price is authoritative; client-submitted prices
// are never trusted.
type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID    string             `bson:"productId" json:"productId"`
	SKU          string             `bson:"sku" json:"sku"`
	Name         string             `bson:"name" json:"name"`
	AgencyID     string             `bson:"agencyId" json:"agencyId"`
	Status       ProductStatus      `bson:"status" json:"status"`
	SellingPrice Money              `bson:"sellingPrice" json:"sellingPrice"`
	BoxSize      int                `bson:"boxSize" json:"boxSize"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsActive returns true if the product can be ordered
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}
