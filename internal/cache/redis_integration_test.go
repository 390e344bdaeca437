package cache

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/arzan03/shopfront/internal/config"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/repository"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	testClient *redis.Client
	skipReason string
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		skipReason = "integration tests skipped in -short mode"
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		skipReason = fmt.Sprintf("docker unavailable: %v", err)
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start Redis resource: %s", err)
	}
	_ = resource.Expire(120)

	cfg := config.RedisConfig{Addr: resource.GetHostPort("6379/tcp")}
	if err := pool.Retry(func() error {
		var errRetry error
		testClient, errRetry = NewClient(context.Background(), cfg)
		return errRetry
	}); err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("Could not connect to Redis: %s", err)
	}

	code := m.Run()

	_ = testClient.Close()
	_ = pool.Purge(resource)
	os.Exit(code)
}

func requireRedis(t *testing.T) context.Context {
	t.Helper()
	if testClient == nil {
		t.Skip(skipReason)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestResetTokenStore_SingleUse(t *testing.T) {
	ctx := requireRedis(t)
	store := NewResetTokenStore(testClient)

	require.NoError(t, store.Save(ctx, "tok-1", "user-1", time.Minute))

	raw, err := testClient.Exists(ctx, "reset:tok-1").Result()
	require.NoError(t, err)
	assert.Zero(t, raw, "raw token must not be used as key")

	userID, err := store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = store.Consume(ctx, "tok-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestResetTokenStore_Expires(t *testing.T) {
	ctx := requireRedis(t)
	store := NewResetTokenStore(testClient)

	require.NoError(t, store.Save(ctx, "tok-2", "user-2", 50*time.Millisecond))
	time.Sleep(200 * time.Millisecond)

	_, err := store.Consume(ctx, "tok-2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProductCache_SetGetDelete(t *testing.T) {
	ctx := requireRedis(t)
	c := NewProductCache(testClient, time.Minute)

	p := &models.Product{
		ID:         primitive.NewObjectID(),
		Name:       "kettle",
		Price:      19.99,
		CategoryID: primitive.NewObjectID(),
		Quantity:   4,
		InStock:    true,
		Images:     []string{"http://img/k"},
	}
	require.NoError(t, c.Set(ctx, p))

	got, err := c.Get(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.CategoryID, got.CategoryID)
	assert.Equal(t, p.Price, got.Price)
	assert.Equal(t, p.Images, got.Images)

	require.NoError(t, c.Delete(ctx, p.ID.Hex()))
	_, err = c.Get(ctx, p.ID.Hex())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
