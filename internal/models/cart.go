package models

import (
	"time"

	"github.com/arzan03/shopfront/internal/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 999

// CartItem is one line of a cart. ID identifies the line itself, not the product.
type CartItem struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Cart holds at most one line per product.
type Cart struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	Items       []CartItem         `bson:"items" json:"items"`
	LastOrderID primitive.ObjectID `bson:"last_order_id,omitempty" json:"-"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

func NewCart(userID string) *Cart {
	now := time.Now().UTC()
	return &Cart{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Items:     make([]CartItem, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Cart) indexOfProduct(productID primitive.ObjectID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) indexOfItem(itemID primitive.ObjectID) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// AddItem increments the existing line for productID or appends a new one.
func (c *Cart) AddItem(productID primitive.ObjectID, quantity int) error {
	if quantity <= 0 {
		return apperr.Validation("quantity must be greater than 0")
	}
	if i := c.indexOfProduct(productID); i >= 0 {
		if quantity > MaxLineQuantity-c.Items[i].Quantity {
			return apperr.Validation("quantity per item cannot exceed %d", MaxLineQuantity)
		}
		c.Items[i].Quantity += quantity
	} else {
		if quantity > MaxLineQuantity {
			return apperr.Validation("quantity per item cannot exceed %d", MaxLineQuantity)
		}
		c.Items = append(c.Items, CartItem{
			ID:        primitive.NewObjectID(),
			ProductID: productID,
			Quantity:  quantity,
		})
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (c *Cart) UpdateItemQuantity(itemID primitive.ObjectID, quantity int) error {
	if quantity <= 0 {
		return apperr.Validation("quantity must be greater than 0")
	}
	if quantity > MaxLineQuantity {
		return apperr.Validation("quantity per item cannot exceed %d", MaxLineQuantity)
	}
	i := c.indexOfItem(itemID)
	if i < 0 {
		return apperr.NotFound("item not found")
	}
	c.Items[i].Quantity = quantity
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (c *Cart) RemoveItem(itemID primitive.ObjectID) error {
	i := c.indexOfItem(itemID)
	if i < 0 {
		return apperr.NotFound("item not found")
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// CartLine is a cart item with its product resolved for display.
// Product is nil when the product no longer exists.
type CartLine struct {
	ID        primitive.ObjectID `json:"id"`
	ProductID primitive.ObjectID `json:"product_id"`
	Quantity  int                `json:"quantity"`
	Product   *Product           `json:"product"`
	LineTotal float64            `json:"line_total"`
}

type CartView struct {
	ID        primitive.ObjectID `json:"id"`
	UserID    string             `json:"user_id"`
	Items     []CartLine         `json:"items"`
	Total     float64            `json:"total"`
	UpdatedAt time.Time          `json:"updated_at"`
}
