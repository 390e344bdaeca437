package db

import (
	"context"
	"fmt"
	"time"

	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) repository.CartRepository {
	return &cartRepository{collection: db.Collection(cartsCollection)}
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart); err != nil {
		if err = translate(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

// GetOrCreate upserts on the unique user_id index, so concurrent first adds share one cart.
func (r *cartRepository) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	fresh := models.NewCart(userID)
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        fresh.ID,
		"items":      fresh.Items,
		"created_at": fresh.CreatedAt,
		"updated_at": fresh.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var cart models.Cart
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update, opts).Decode(&cart)
	if err != nil {
		if translate(err) == repository.ErrDuplicate {
			// lost the upsert race; the winner's cart exists now
			return r.FindByUserID(ctx, userID)
		}
		return nil, fmt.Errorf("failed to get or create cart for user %s: %w", userID, err)
	}
	if cart.Items == nil {
		cart.Items = make([]models.CartItem, 0)
	}
	return &cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart *models.Cart) error {
	// Mongo keeps milliseconds; truncating keeps the in-memory copy usable as a Clear precondition.
	cart.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"user_id": cart.UserID}, cart, opts); err != nil {
		return fmt.Errorf("failed to save cart for user %s: %w", cart.UserID, err)
	}
	return nil
}

// Clear matches on the updated_at that was read, so a line added after the read survives as a conflict.
func (r *cartRepository) Clear(ctx context.Context, cart *models.Cart, orderID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{
		"items":         bson.A{},
		"last_order_id": orderID,
		"updated_at":    time.Now().UTC(),
	}}
	filter := bson.M{"user_id": cart.UserID, "updated_at": cart.UpdatedAt}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %w", cart.UserID, err)
	}
	if res.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": cart.UserID})
		if err != nil {
			return fmt.Errorf("failed to check cart for user %s: %w", cart.UserID, err)
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	return nil
}

type orderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) repository.OrderRepository {
	return &orderRepository{collection: db.Collection(ordersCollection)}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		if err = translate(err); err == repository.ErrDuplicate {
			return err
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		if err = translate(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id.Hex(), err)
	}
	return &order, nil
}

func (r *orderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *orderRepository) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode listed orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *orderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *orderRepository) UpdateStatus(ctx context.Context, order *models.Order, from models.OrderStatus) error {
	filter := bson.M{"_id": order.ID, "status": from}
	set := bson.M{
		"status":     order.Status,
		"updated_at": order.UpdatedAt,
	}
	if order.TrackingNumber != "" {
		set["tracking_number"] = order.TrackingNumber
	}

	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update order status for ID %s: %w", order.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": order.ID})
		if err != nil {
			return fmt.Errorf("failed to check order %s: %w", order.ID.Hex(), err)
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	return nil
}
