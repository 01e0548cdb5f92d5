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

// LotBatchRepository implements domain.LotBatchRepository using MongoDB.
// FIFO ordering itself is pure domain logic; this layer loads candidate
// lots and applies reservations with conditional atomic updates.
type LotBatchRepository struct {
	collection *mongo.Collection
	db         *mongo.Database
}

// NewLotBatchRepository creates a new LotBatchRepository
func NewLotBatchRepository(db *mongo.Database) *LotBatchRepository {
	collection := db.Collection("lot_batches")

	// Create indexes
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "lotBatchId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "productId", Value: 1},
				{Key: "agencyId", Value: 1},
				{Key: "status", Value: 1},
				{Key: "manufacturingDate", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "expiryDate", Value: 1}},
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &LotBatchRepository{
		collection: collection,
		db:         db,
	}
}

// AvailableQuantityForProduct sums sellable units across a product's lots
func (r *LotBatchRepository) AvailableQuantityForProduct(ctx context.Context, productID, agencyID string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"productId": productID,
			"agencyId":  agencyID,
			"status":    bson.M{"$nin": domain.DefaultExcludedLotStatuses},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"available": bson.M{"$sum": bson.M{
				"$max": bson.A{0, bson.M{"$subtract": bson.A{"$quantity", "$reservedQuantity"}}},
			}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate availability: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Available int `bson:"available"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode availability: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Available, nil
}

// SelectFifoLots loads candidate lots oldest-manufactured-first and delegates
// the selection to the domain engine
func (r *LotBatchRepository) SelectFifoLots(ctx context.Context, criteria domain.FifoCriteria) (*domain.FifoAllocationResult, error) {
	filter := bson.M{
		"productId": criteria.ProductID,
		"agencyId":  criteria.AgencyID,
	}
	if len(criteria.ExcludeStatuses) > 0 {
		filter["status"] = bson.M{"$nin": criteria.ExcludeStatuses}
	}

	opts := options.Find().SetSort(bson.D{{Key: "manufacturingDate", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate lots: %w", err)
	}
	defer cursor.Close(ctx)

	var lots []domain.LotBatch
	if err := cursor.All(ctx, &lots); err != nil {
		return nil, fmt.Errorf("failed to decode candidate lots: %w", err)
	}

	return domain.SelectFifoLots(lots, criteria), nil
}

// BeginTransaction opens a MongoDB session for reservation writes
func (r *LotBatchRepository) BeginTransaction(ctx context.Context) (domain.ReservationTransaction, error) {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return nil, &domain.ReservationError{Op: "begin", Err: err}
	}
	if err := session.StartTransaction(); err != nil {
		session.EndSession(ctx)
		return nil, &domain.ReservationError{Op: "begin", Err: err}
	}

	return &reservationTransaction{
		session:    session,
		collection: r.collection,
		active:     true,
	}, nil
}

// reservationTransaction applies reservations inside one MongoDB transaction.
// Each reserve is a conditional $inc that only matches while the lot still
// has the requested quantity available, so concurrent orders cannot oversell.
type reservationTransaction struct {
	session    mongo.Session
	collection *mongo.Collection
	active     bool
}

func (t *reservationTransaction) ReserveQuantity(ctx context.Context, lotBatchID string, quantity int, userID string) error {
	if !t.active {
		return domain.ErrTransactionInactive
	}
	if quantity <= 0 {
		return &domain.ReservationError{
			Op:         "reserve",
			LotBatchID: lotBatchID,
			Err:        errors.New("quantity must be positive"),
		}
	}

	sessCtx := mongo.NewSessionContext(ctx, t.session)

	filter := bson.M{
		"lotBatchId": lotBatchID,
		"$expr": bson.M{
			"$gte": bson.A{
				bson.M{"$subtract": bson.A{"$quantity", "$reservedQuantity"}},
				quantity,
			},
		},
	}
	update := bson.M{
		"$inc": bson.M{"reservedQuantity": quantity},
		"$set": bson.M{
			"updatedAt":      time.Now().UTC(),
			"lastReservedBy": userID,
		},
	}

	result, err := t.collection.UpdateOne(sessCtx, filter, update)
	if err != nil {
		return &domain.ReservationError{Op: "reserve", LotBatchID: lotBatchID, Err: err}
	}
	if result.MatchedCount == 0 {
		return &domain.ReservationError{
			Op:         "reserve",
			LotBatchID: lotBatchID,
			Err:        errors.New("insufficient available quantity"),
		}
	}
	return nil
}

func (t *reservationTransaction) Commit(ctx context.Context) error {
	if !t.active {
		return domain.ErrTransactionInactive
	}
	t.active = false
	defer t.session.EndSession(ctx)

	if err := t.session.CommitTransaction(ctx); err != nil {
		return &domain.ReservationError{Op: "commit", Err: err}
	}
	return nil
}

func (t *reservationTransaction) Rollback(ctx context.Context) error {
	if !t.active {
		return domain.ErrTransactionInactive
	}
	t.active = false
	defer t.session.EndSession(ctx)

	if err := t.session.AbortTransaction(ctx); err != nil {
		return &domain.ReservationError{Op: "rollback", Err: err}
	}
	return nil
}

func (t *reservationTransaction) IsActive() bool {
	return t.active
}
