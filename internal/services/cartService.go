package services

import (
	"context"
	"errors"

	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/repository"
	"github.com/arzan03/shopfront/internal/utils"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductFinder is the read-only catalog lookup the engines depend on.
type ProductFinder interface {
	FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
}

type CartService struct {
	carts    repository.CartRepository
	products ProductFinder
	log      logger.Logger
}

func NewCartService(carts repository.CartRepository, products ProductFinder, log logger.Logger) *CartService {
	return &CartService{carts: carts, products: products, log: log}
}

// authorize lets a caller touch only their own cart unless they are an admin.
func (s *CartService) authorize(actor Actor, userID string) error {
	if actor.UserID != userID && !actor.IsAdmin() {
		s.log.Warnf("CartService: user %s denied access to cart of %s", actor.UserID, userID)
		return apperr.Forbidden("you can only access your own cart")
	}
	if _, err := parseID(userID, "user"); err != nil {
		return err
	}
	return nil
}

func (s *CartService) findCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Errorf("CartService: failed to load cart for %s: %v", userID, err)
		}
		return nil, storeErr(err, "cart")
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) error {
	if err := s.carts.Save(ctx, cart); err != nil {
		s.log.Errorf("CartService: failed to save cart for %s: %v", cart.UserID, err)
		return storeErr(err, "cart")
	}
	return nil
}

// view resolves each line's product concurrently. A product that no longer exists shows as nil.
func (s *CartService) view(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	tasks := make([]func() (*models.Product, error), len(cart.Items))
	for i, item := range cart.Items {
		productID := item.ProductID
		tasks[i] = func() (*models.Product, error) {
			return s.products.FindProduct(ctx, productID)
		}
	}
	products, errs := utils.RunParallel(tasks)

	view := &models.CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     make([]models.CartLine, 0, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt,
	}
	total := decimal.Zero
	for i, item := range cart.Items {
		if err := errs[i]; err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return nil, err
		}
		line := models.CartLine{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   products[i],
		}
		if line.Product != nil {
			lineTotal := decimal.NewFromFloat(line.Product.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
			line.LineTotal, _ = lineTotal.Float64()
			total = total.Add(lineTotal)
		}
		view.Items = append(view.Items, line)
	}
	view.Total, _ = total.Float64()
	return view, nil
}

// GetCart fails with NotFound until the first item is added or the cart is created explicitly.
func (s *CartService) GetCart(ctx context.Context, actor Actor, userID string) (*models.CartView, error) {
	s.log.Infof("CartService: GetCart called for user %s", userID)

	if err := s.authorize(actor, userID); err != nil {
		return nil, err
	}
	cart, err := s.findCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// EnsureCart returns the user's cart, creating an empty one if needed.
func (s *CartService) EnsureCart(ctx context.Context, actor Actor, userID string) (*models.CartView, error) {
	s.log.Infof("CartService: EnsureCart called for user %s", userID)

	if err := s.authorize(actor, userID); err != nil {
		return nil, err
	}
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		s.log.Errorf("CartService: failed to get or create cart for %s: %v", userID, err)
		return nil, storeErr(err, "cart")
	}
	return s.view(ctx, cart)
}

func (s *CartService) AddItem(ctx context.Context, actor Actor, userID, productID string, quantity int) (*models.CartView, error) {
	s.log.Infof("CartService: AddItem called for user %s, product %s, quantity %d", userID, productID, quantity)

	if err := s.authorize(actor, userID); err != nil {
		return nil, err
	}
	pid, err := parseID(productID, "product")
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, apperr.Validation("quantity must be greater than 0")
	}
	if _, err := s.products.FindProduct(ctx, pid); err != nil {
		s.log.Warnf("CartService: product %s not available: %v", productID, err)
		return nil, err
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		s.log.Errorf("CartService: failed to get or create cart for %s: %v", userID, err)
		return nil, storeErr(err, "cart")
	}
	if err := cart.AddItem(pid, quantity); err != nil {
		return nil, err
	}
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, actor Actor, userID, itemID string, quantity int) (*models.CartView, error) {
	s.log.Infof("CartService: UpdateItemQuantity called for user %s, item %s, quantity %d", userID, itemID, quantity)

	if err := s.authorize(actor, userID); err != nil {
		return nil, err
	}
	iid, err := parseID(itemID, "item")
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, apperr.Validation("quantity must be greater than 0")
	}
	cart, err := s.findCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := cart.UpdateItemQuantity(iid, quantity); err != nil {
		return nil, err
	}
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, actor Actor, userID, itemID string) (*models.CartView, error) {
	s.log.Infof("CartService: RemoveItem called for user %s, item %s", userID, itemID)

	if err := s.authorize(actor, userID); err != nil {
		return nil, err
	}
	iid, err := parseID(itemID, "item")
	if err != nil {
		return nil, err
	}
	cart, err := s.findCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := cart.RemoveItem(iid); err != nil {
		return nil, err
	}
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}
