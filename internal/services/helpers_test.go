package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arzan03/shopfront/internal/auth"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/arzan03/shopfront/internal/metrics"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/notify"
	"github.com/arzan03/shopfront/internal/repository"
	"github.com/arzan03/shopfront/internal/repository/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Dispatch(email string, kind notify.Kind, data notify.Data) {
	m.Called(email, kind, data)
}

// DispatchFunc resolves inline and records the result as a Dispatch call.
func (m *MockNotifier) DispatchFunc(kind notify.Kind, resolve notify.Resolver) {
	email, data, err := resolve(context.Background())
	if err != nil {
		return
	}
	m.Dispatch(email, kind, data)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	args := m.Called(ctx, subject, payload)
	return args.Error(0)
}

func (m *MockPublisher) Close() {}

type fakeImageStore struct {
	mu      sync.Mutex
	objects map[string]int
	removed []string
	next    int
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{objects: make(map[string]int)}
}

func (f *fakeImageStore) Upload(_ context.Context, prefix, filename, _ string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	url := "http://images.test/" + prefix + "/" + strings.Repeat("x", f.next) + "-" + filename
	f.objects[url] = len(data)
	return url, nil
}

func (f *fakeImageStore) Remove(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, url)
	f.removed = append(f.removed, url)
	return nil
}

// mapCache is an in-process ProductCache that counts hits.
type mapCache struct {
	mu    sync.Mutex
	items map[string]models.Product
	hits  int
}

func newMapCache() *mapCache { return &mapCache{items: make(map[string]models.Product)} }

func (c *mapCache) Get(_ context.Context, id string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.hits++
	return &p, nil
}

func (c *mapCache) Set(_ context.Context, p *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID.Hex()] = *p
	return nil
}

func (c *mapCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	return nil
}

type testEnv struct {
	users      *memory.UserRepository
	categories *memory.CategoryRepository
	products   *memory.ProductRepository
	carts      *memory.CartRepository
	orders     *memory.OrderRepository
	tokens     *memory.ResetTokenStore
	cache      *mapCache
	images     *fakeImageStore
	notifier   *MockNotifier
	publisher  *MockPublisher
	issuer     *auth.TokenIssuer

	auth     *AuthService
	user     *UserService
	password *PasswordService
	catalog  *CatalogService
	cart     *CartService
	order    *OrderService
}

// newTestEnv wires every service over the memory repositories. Notifier and publisher
// accept any call unless a test sets stricter expectations first.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewNop()
	env := &testEnv{
		users:      memory.NewUserRepository(),
		categories: memory.NewCategoryRepository(),
		products:   memory.NewProductRepository(),
		carts:      memory.NewCartRepository(),
		orders:     memory.NewOrderRepository(),
		tokens:     memory.NewResetTokenStore(),
		cache:      newMapCache(),
		images:     newFakeImageStore(),
		notifier:   new(MockNotifier),
		publisher:  new(MockPublisher),
		issuer:     auth.NewTokenIssuer("test-secret", time.Hour),
	}

	env.auth = NewAuthService(env.users, env.issuer, env.notifier, bcrypt.MinCost, log)
	env.user = NewUserService(env.users, env.images, env.notifier, bcrypt.MinCost, log)
	env.password = NewPasswordService(env.users, env.tokens, env.notifier, PasswordConfig{
		TokenTTL:   30 * time.Minute,
		ResetURL:   "http://shop.test/reset",
		BcryptCost: bcrypt.MinCost,
	}, log)
	env.catalog = NewCatalogService(env.categories, env.products, env.cache, env.images, log)
	env.cart = NewCartService(env.carts, env.catalog, log)
	env.order = NewOrderService(OrderDeps{
		Orders:    env.orders,
		Carts:     env.carts,
		Products:  env.products,
		Users:     env.users,
		Catalog:   env.catalog,
		Tx:        memory.Tx{},
		Notifier:  env.notifier,
		Publisher: env.publisher,
		Metrics:   metrics.New(),
	}, log)
	return env
}

func (e *testEnv) allowNotifications() {
	e.notifier.On("Dispatch", mock.Anything, mock.Anything, mock.Anything).Maybe()
	e.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (e *testEnv) newUser(t *testing.T, role string) (*models.User, Actor) {
	t.Helper()
	hash, err := auth.HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Name:      role + " user",
		Email:     primitive.NewObjectID().Hex() + "@example.com",
		Password:  hash,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u, Actor{UserID: u.ID.Hex(), Role: role}
}

func (e *testEnv) newProduct(t *testing.T, name string, price float64, quantity int) *models.Product {
	t.Helper()
	ctx := context.Background()
	c, err := e.catalog.CreateCategory(ctx, CategoryInput{Name: "cat-" + name})
	require.NoError(t, err)
	p, err := e.catalog.CreateProduct(ctx, ProductInput{
		Name:       name,
		Price:      price,
		CategoryID: c.ID.Hex(),
		Quantity:   quantity,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) stockOf(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := e.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}
