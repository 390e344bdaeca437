package models

import (
	"time"

	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions lists every allowed status change. Anything absent is rejected,
// including moving backwards or to the same status.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseAdminStatus accepts only the statuses an admin may set.
func ParseAdminStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", apperr.Validation("invalid status %q", s)
}

// OrderItem is a frozen copy of a cart line taken at checkout.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items          []OrderItem        `bson:"items" json:"items"`
	TotalAmount    float64            `bson:"total_amount" json:"total_amount"`
	Status         OrderStatus        `bson:"status" json:"status"`
	TrackingNumber string             `bson:"tracking_number,omitempty" json:"tracking_number,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

func NewOrder(userID primitive.ObjectID, items []OrderItem) (*Order, error) {
	if len(items) == 0 {
		return nil, apperr.ErrEmptyCart
	}
	now := time.Now().UTC()
	o := &Order{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Items:     items,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.TotalAmount = SumLines(items)
	return o, nil
}

// SumLines returns the sum of price × quantity over items.
func SumLines(items []OrderItem) float64 {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	f, _ := total.Float64()
	return f
}

// TransitionTo moves the order to next if the transition table allows it.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		if o.Status == StatusDelivered {
			return apperr.ErrInvalidTransition.WithMessage("delivered orders cannot be modified")
		}
		return apperr.ErrInvalidTransition.WithMessage("cannot change status from %s to %s", o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel is the customer-initiated cancellation, allowed only while pending.
func (o *Order) Cancel() error {
	if o.Status != StatusPending {
		return apperr.ErrInvalidTransition.WithMessage("only pending orders can be cancelled")
	}
	return o.TransitionTo(StatusCancelled)
}

type OrderOwner struct {
	ID    primitive.ObjectID `json:"id"`
	Email string             `json:"email"`
	Role  string             `json:"role"`
}

// OrderWithOwner is the admin listing shape. Owner is nil when the user was deleted.
type OrderWithOwner struct {
	Order
	Owner *OrderOwner `json:"owner"`
}
