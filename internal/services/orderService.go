package services

import (
	"context"
	"errors"
	"time"

	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/arzan03/shopfront/internal/events"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/arzan03/shopfront/internal/metrics"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/notify"
	"github.com/arzan03/shopfront/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Catalog is what the order engine needs from the catalog: cache invalidation after stock changes.
type Catalog interface {
	Invalidate(ctx context.Context, id primitive.ObjectID)
}

type OrderService struct {
	orders    repository.OrderRepository
	carts     repository.CartRepository
	products  repository.ProductRepository
	users     repository.UserRepository
	catalog   Catalog
	tx        repository.TxRunner
	notifier  Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       logger.Logger
}

type OrderDeps struct {
	Orders    repository.OrderRepository
	Carts     repository.CartRepository
	Products  repository.ProductRepository
	Users     repository.UserRepository
	Catalog   Catalog
	Tx        repository.TxRunner
	Notifier  Notifier
	Publisher events.Publisher
	Metrics   *metrics.Metrics
}

func NewOrderService(deps OrderDeps, log logger.Logger) *OrderService {
	s := &OrderService{
		orders:    deps.Orders,
		carts:     deps.Carts,
		products:  deps.Products,
		users:     deps.Users,
		catalog:   deps.Catalog,
		tx:        deps.Tx,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		log:       log,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	return s
}

type reservation struct {
	productID primitive.ObjectID
	quantity  int
}

// releaseStock returns reserved units. Failures are logged: under-counted stock never oversells.
func (s *OrderService) releaseStock(ctx context.Context, reserved []reservation) {
	for _, r := range reserved {
		if err := s.products.ReleaseStock(ctx, r.productID, r.quantity); err != nil {
			s.log.Warnf("OrderService: failed to release %d units of product %s: %v", r.quantity, r.productID.Hex(), err)
		}
	}
}

func (s *OrderService) invalidate(ctx context.Context, reserved []reservation) {
	for _, r := range reserved {
		s.catalog.Invalidate(ctx, r.productID)
	}
}

// CreateOrderFromCart snapshots the caller's cart into a pending order, reserving stock for every line.
func (s *OrderService) CreateOrderFromCart(ctx context.Context, actor Actor) (*models.Order, error) {
	s.log.Infof("OrderService: CreateOrderFromCart called for user %s", actor.UserID)

	userID, err := parseID(actor.UserID, "user")
	if err != nil {
		return nil, err
	}

	var (
		order    *models.Order
		reserved []reservation
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		order, reserved = nil, nil

		cart, err := s.carts.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.ErrEmptyCart
			}
			return storeErr(err, "cart")
		}
		if cart.IsEmpty() {
			return apperr.ErrEmptyCart
		}

		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			// The snapshot reads the store directly; a cached copy may carry an old price.
			product, err := s.products.FindByID(ctx, line.ProductID)
			if err != nil {
				s.releaseStock(ctx, reserved)
				return storeErr(err, "product")
			}
			if err := s.products.ReserveStock(ctx, product.ID, line.Quantity); err != nil {
				s.releaseStock(ctx, reserved)
				if errors.Is(err, repository.ErrConflict) {
					return apperr.ErrInsufficientStock.WithMessage("insufficient stock for %s", product.Name)
				}
				return storeErr(err, "product")
			}
			reserved = append(reserved, reservation{productID: product.ID, quantity: line.Quantity})
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  line.Quantity,
			})
		}

		o, err := models.NewOrder(userID, items)
		if err != nil {
			s.releaseStock(ctx, reserved)
			return err
		}
		if err := s.orders.Create(ctx, o); err != nil {
			s.releaseStock(ctx, reserved)
			return storeErr(err, "order")
		}
		// Clear only succeeds on the cart as read. Otherwise the order is undone so it cannot be placed twice.
		if err := s.carts.Clear(ctx, cart, o.ID); err != nil {
			s.log.Warnf("OrderService: cart of %s not cleared, rolling back order %s: %v", actor.UserID, o.ID.Hex(), err)
			if derr := s.orders.Delete(ctx, o.ID); derr != nil {
				s.log.Errorf("OrderService: failed to remove order %s: %v", o.ID.Hex(), derr)
			}
			s.releaseStock(ctx, reserved)
			return storeErr(err, "cart")
		}
		order = o
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnavailable || apperr.KindOf(err) == apperr.KindInternal {
			s.log.Errorf("OrderService: checkout failed for user %s: %v", actor.UserID, err)
		} else {
			s.log.Warnf("OrderService: checkout rejected for user %s: %v", actor.UserID, err)
		}
		if _, ok := apperr.As(err); !ok {
			return nil, apperr.Unavailable(err, "checkout failed")
		}
		return nil, err
	}

	s.invalidate(ctx, reserved)
	s.metrics.OrderCreated()
	s.log.Infof("OrderService: order %s created for user %s, total %.2f", order.ID.Hex(), actor.UserID, order.TotalAmount)

	s.notifyOwner(order, notify.KindOrderConfirmation)
	s.publish(ctx, events.SubjectOrderCreated, order, "")
	return order, nil
}

func (s *OrderService) GetMyOrders(ctx context.Context, actor Actor) ([]models.Order, error) {
	s.log.Infof("OrderService: GetMyOrders called for user %s", actor.UserID)

	userID, err := parseID(actor.UserID, "user")
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		s.log.Errorf("OrderService: failed to list orders for %s: %v", actor.UserID, err)
		return nil, storeErr(err, "order")
	}
	return orders, nil
}

// loadOwned checks existence before ownership, so a foreign order yields Forbidden rather than NotFound.
func (s *OrderService) loadOwned(ctx context.Context, actor Actor, orderID string) (*models.Order, error) {
	oid, err := parseID(orderID, "order")
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, oid)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Errorf("OrderService: failed to load order %s: %v", orderID, err)
		}
		return nil, storeErr(err, "order")
	}
	if order.UserID.Hex() != actor.UserID {
		s.log.Warnf("OrderService: user %s denied access to order %s", actor.UserID, orderID)
		return nil, apperr.Forbidden("you do not have access to this order")
	}
	return order, nil
}

func (s *OrderService) GetOrderById(ctx context.Context, actor Actor, orderID string) (*models.Order, error) {
	s.log.Infof("OrderService: GetOrderById called for order %s by user %s", orderID, actor.UserID)
	return s.loadOwned(ctx, actor, orderID)
}

// CancelOrder is the customer path: only pending orders, and only the owner.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, orderID string) (*models.Order, error) {
	s.log.Infof("OrderService: CancelOrder called for order %s by user %s", orderID, actor.UserID)

	var order *models.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.loadOwned(ctx, actor, orderID)
		if err != nil {
			return err
		}
		from := o.Status
		if err := o.Cancel(); err != nil {
			return err
		}
		if err := s.orders.UpdateStatus(ctx, o, from); err != nil {
			return storeErr(err, "order")
		}
		s.releaseStock(ctx, reservationsOf(o))
		order = o
		return nil
	})
	if err != nil {
		s.log.Warnf("OrderService: cancel of order %s failed: %v", orderID, err)
		return nil, err
	}

	s.afterStatusChange(ctx, order, models.StatusPending)
	return order, nil
}

func (s *OrderService) AdminListAllOrders(ctx context.Context) ([]models.OrderWithOwner, error) {
	s.log.Infof("OrderService: AdminListAllOrders called")

	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		s.log.Errorf("OrderService: failed to list all orders: %v", err)
		return nil, storeErr(err, "order")
	}

	seen := make(map[primitive.ObjectID]bool)
	ids := make([]primitive.ObjectID, 0)
	for _, o := range orders {
		if !seen[o.UserID] {
			seen[o.UserID] = true
			ids = append(ids, o.UserID)
		}
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		s.log.Errorf("OrderService: failed to resolve order owners: %v", err)
		return nil, storeErr(err, "user")
	}
	owners := make(map[primitive.ObjectID]*models.OrderOwner, len(users))
	for _, u := range users {
		owners[u.ID] = &models.OrderOwner{ID: u.ID, Email: u.Email, Role: u.Role}
	}

	out := make([]models.OrderWithOwner, 0, len(orders))
	for _, o := range orders {
		out = append(out, models.OrderWithOwner{Order: o, Owner: owners[o.UserID]})
	}
	return out, nil
}

// AdminUpdateStatus moves an order along the transition table. Cancelling returns the reserved stock.
func (s *OrderService) AdminUpdateStatus(ctx context.Context, orderID, status, trackingNumber string) (*models.Order, error) {
	s.log.Infof("OrderService: AdminUpdateStatus called for order %s, status %s", orderID, status)

	oid, err := parseID(orderID, "order")
	if err != nil {
		return nil, err
	}
	next, err := models.ParseAdminStatus(status)
	if err != nil {
		return nil, err
	}

	var (
		order *models.Order
		from  models.OrderStatus
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.FindByID(ctx, oid)
		if err != nil {
			return storeErr(err, "order")
		}
		from = o.Status
		if err := o.TransitionTo(next); err != nil {
			return err
		}
		if trackingNumber != "" {
			o.TrackingNumber = trackingNumber
		}
		if err := s.orders.UpdateStatus(ctx, o, from); err != nil {
			return storeErr(err, "order")
		}
		if next == models.StatusCancelled {
			s.releaseStock(ctx, reservationsOf(o))
		}
		order = o
		return nil
	})
	if err != nil {
		s.log.Warnf("OrderService: status update of order %s to %s failed: %v", orderID, status, err)
		return nil, err
	}

	s.afterStatusChange(ctx, order, from)
	return order, nil
}

func reservationsOf(o *models.Order) []reservation {
	out := make([]reservation, 0, len(o.Items))
	for _, item := range o.Items {
		out = append(out, reservation{productID: item.ProductID, quantity: item.Quantity})
	}
	return out
}

func (s *OrderService) afterStatusChange(ctx context.Context, order *models.Order, from models.OrderStatus) {
	if order.Status == models.StatusCancelled {
		s.invalidate(ctx, reservationsOf(order))
	}
	s.metrics.OrderStatusChanged(string(order.Status))
	s.log.Infof("OrderService: order %s moved from %s to %s", order.ID.Hex(), from, order.Status)

	s.notifyOwner(order, notify.KindOrderStatus)
	s.publish(ctx, events.SubjectOrderStatusUpdated, order, from)
}

// notifyOwner queues the email. The owner lookup runs on the notification worker, and a failed
// lookup only skips the email.
func (s *OrderService) notifyOwner(order *models.Order, kind notify.Kind) {
	items := make([]notify.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, notify.LineItem{Name: item.Name, Quantity: item.Quantity, Price: item.Price})
	}
	data := notify.Data{
		OrderID:        order.ID.Hex(),
		TotalAmount:    order.TotalAmount,
		Items:          items,
		Status:         string(order.Status),
		TrackingNumber: order.TrackingNumber,
	}
	ownerID := order.UserID

	s.notifier.DispatchFunc(kind, func(ctx context.Context) (string, notify.Data, error) {
		user, err := s.users.FindByID(ctx, ownerID)
		if err != nil {
			s.log.Warnf("OrderService: cannot notify owner of order %s: %v", data.OrderID, err)
			return "", data, err
		}
		data.Name = user.Name
		data.Email = user.Email
		return user.Email, data, nil
	})
}

func (s *OrderService) publish(ctx context.Context, subject string, order *models.Order, from models.OrderStatus) {
	event := events.OrderEvent{
		OrderID:        order.ID.Hex(),
		UserID:         order.UserID.Hex(),
		Status:         string(order.Status),
		PreviousStatus: string(from),
		TotalAmount:    order.TotalAmount,
		TrackingNumber: order.TrackingNumber,
		OccurredAt:     time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.log.Warnf("OrderService: failed to publish %s for order %s: %v", subject, order.ID.Hex(), err)
	}
}
