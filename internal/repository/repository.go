// Package repository declares the persistence contracts the services depend on.
// Mongo implementations live in internal/db, in-process ones in repository/memory.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/arzan03/shopfront/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("entity not found")
	ErrDuplicate = errors.New("entity already exists")
	// ErrConflict means a conditional write lost to a concurrent change or a failed precondition.
	ErrConflict = errors.New("conditional update did not match")
	// ErrInvalidQuantity rejects stock movements of zero or fewer units.
	ErrInvalidQuantity = errors.New("stock quantity must be positive")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ProductFilter struct {
	CategoryID *primitive.ObjectID
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddImage(ctx context.Context, id primitive.ObjectID, url string) error
	RemoveImage(ctx context.Context, id primitive.ObjectID, url string) error
	// ReserveStock decrements quantity by n only if at least n are available.
	// It returns ErrConflict when stock is short and ErrNotFound when the product is gone.
	ReserveStock(ctx context.Context, id primitive.ObjectID, n int) error
	ReleaseStock(ctx context.Context, id primitive.ObjectID, n int) error
}

type CartRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Cart, error)
	// GetOrCreate returns the user's cart, creating an empty one atomically if absent.
	GetOrCreate(ctx context.Context, userID string) (*models.Cart, error)
	// Save replaces the whole cart document.
	Save(ctx context.Context, cart *models.Cart) error
	// Clear empties cart and records orderID, but only while the stored cart is still the one
	// that was read (same updated_at). Otherwise it returns ErrConflict and leaves the cart alone.
	Clear(ctx context.Context, cart *models.Cart, orderID primitive.ObjectID) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	// Delete removes an order that could not be completed.
	Delete(ctx context.Context, id primitive.ObjectID) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	// UpdateStatus writes order.Status and TrackingNumber only if the stored status still equals from.
	UpdateStatus(ctx context.Context, order *models.Order, from models.OrderStatus) error
}

// TxRunner runs fn so that all repository calls made with the ctx it receives commit or abort together.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ResetTokenStore keeps password reset tokens with an expiry.
type ResetTokenStore interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	// Consume returns the user id for token and deletes it. It returns ErrNotFound for unknown or expired tokens.
	Consume(ctx context.Context, token string) (string, error)
}

type ProductCache interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	Set(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}
