// Package memory implements the repository contracts in process memory.
// It backs STORAGE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tx runs fn directly. The memory store has no rollback, so the order service's compensation handles failures.
type Tx struct{}

func (Tx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type UserRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[primitive.ObjectID]models.User)}
}

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *UserRepository) List(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, u := range r.users {
		if id != user.ID && u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type CategoryRepository struct {
	mu         sync.RWMutex
	categories map[primitive.ObjectID]models.Category
}

func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{categories: make(map[primitive.ObjectID]models.Category)}
}

func (r *CategoryRepository) Create(_ context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *CategoryRepository) List(_ context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *CategoryRepository) Update(_ context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[c.ID]; !ok {
		return repository.ErrNotFound
	}
	r.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

type ProductRepository struct {
	mu       sync.RWMutex
	products map[primitive.ObjectID]models.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[primitive.ObjectID]models.Product)}
}

func copyProduct(p models.Product) *models.Product {
	p.Images = append([]string(nil), p.Images...)
	return &p
}

func (r *ProductRepository) Create(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.products[p.ID] = *copyProduct(*p)
	return nil
}

func (r *ProductRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyProduct(p), nil
}

func (r *ProductRepository) List(_ context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		out = append(out, *copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ProductRepository) Update(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	r.products[p.ID] = *copyProduct(*p)
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *ProductRepository) AddImage(_ context.Context, id primitive.ObjectID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Images = append(append([]string(nil), p.Images...), url)
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

func (r *ProductRepository) RemoveImage(_ context.Context, id primitive.ObjectID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	kept := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if img != url {
			kept = append(kept, img)
		}
	}
	p.Images = kept
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

func (r *ProductRepository) ReserveStock(_ context.Context, id primitive.ObjectID, n int) error {
	if n <= 0 {
		return repository.ErrInvalidQuantity
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Quantity < n {
		return repository.ErrConflict
	}
	p.Quantity -= n
	p.InStock = p.Quantity > 0
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

func (r *ProductRepository) ReleaseStock(_ context.Context, id primitive.ObjectID, n int) error {
	if n <= 0 {
		return repository.ErrInvalidQuantity
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Quantity += n
	p.InStock = p.Quantity > 0
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

type CartRepository struct {
	mu    sync.Mutex
	carts map[string]models.Cart
}

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]models.Cart)}
}

func copyCart(c models.Cart) *models.Cart {
	c.Items = append(make([]models.CartItem, 0, len(c.Items)), c.Items...)
	return &c
}

func (r *CartRepository) FindByUserID(_ context.Context, userID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyCart(c), nil
}

func (r *CartRepository) GetOrCreate(_ context.Context, userID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		c = *models.NewCart(userID)
		r.carts[userID] = c
	}
	return copyCart(c), nil
}

func (r *CartRepository) Save(_ context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart.UpdatedAt = time.Now().UTC()
	r.carts[cart.UserID] = *copyCart(*cart)
	return nil
}

func (r *CartRepository) Clear(_ context.Context, cart *models.Cart, orderID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[cart.UserID]
	if !ok {
		return repository.ErrNotFound
	}
	if !c.UpdatedAt.Equal(cart.UpdatedAt) {
		return repository.ErrConflict
	}
	c.Items = make([]models.CartItem, 0)
	c.LastOrderID = orderID
	c.UpdatedAt = time.Now().UTC()
	r.carts[cart.UserID] = c
	return nil
}

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[primitive.ObjectID]models.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[primitive.ObjectID]models.Order)}
}

func copyOrder(o models.Order) *models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return &o
}

func (r *OrderRepository) Create(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if _, exists := r.orders[o.ID]; exists {
		return repository.ErrDuplicate
	}
	r.orders[o.ID] = *copyOrder(*o)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *OrderRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *OrderRepository) list(match func(models.Order) bool) []models.Order {
	out := make([]models.Order, 0)
	for _, o := range r.orders {
		if match(o) {
			out = append(out, *copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *OrderRepository) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (r *OrderRepository) ListAll(_ context.Context) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(func(models.Order) bool { return true }), nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, order *models.Order, from models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != from {
		return repository.ErrConflict
	}
	stored.Status = order.Status
	stored.TrackingNumber = order.TrackingNumber
	stored.UpdatedAt = order.UpdatedAt
	r.orders[order.ID] = stored
	return nil
}

type resetEntry struct {
	userID    string
	expiresAt time.Time
}

// ResetTokenStore expires entries lazily on read.
type ResetTokenStore struct {
	mu      sync.Mutex
	entries map[string]resetEntry
	now     func() time.Time
}

func NewResetTokenStore() *ResetTokenStore {
	return &ResetTokenStore{entries: make(map[string]resetEntry), now: time.Now}
}

func (s *ResetTokenStore) Save(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = resetEntry{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *ResetTokenStore) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok {
		return "", repository.ErrNotFound
	}
	delete(s.entries, token)
	if s.now().After(e.expiresAt) {
		return "", repository.ErrNotFound
	}
	return e.userID, nil
}
