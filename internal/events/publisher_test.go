package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/arzan03/shopfront/internal/config"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/nats-io/nats.go"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNATSPublisher_EmptyURLIsNop(t *testing.T) {
	pub, err := NewNATSPublisher(config.NATSConfig{}, logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, pub)
	assert.NoError(t, pub.Publish(context.Background(), SubjectOrderCreated, OrderEvent{OrderID: "x"}))
	pub.Close()
}

func TestNATSPublisher_Publish(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "nats",
		Tag:        "2.10",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	url := fmt.Sprintf("nats://%s", resource.GetHostPort("4222/tcp"))
	var sub *nats.Conn
	require.NoError(t, pool.Retry(func() error {
		var errRetry error
		sub, errRetry = nats.Connect(url)
		return errRetry
	}))
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe(SubjectOrderCreated, msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	pub, err := NewNATSPublisher(config.NATSConfig{URL: url}, logger.NewNop())
	require.NoError(t, err)
	defer pub.Close()

	event := OrderEvent{OrderID: "o1", UserID: "u1", Status: "pending", TotalAmount: 25}
	require.NoError(t, pub.Publish(context.Background(), SubjectOrderCreated, event))

	select {
	case msg := <-msgs:
		var got OrderEvent
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, event.OrderID, got.OrderID)
		assert.Equal(t, event.TotalAmount, got.TotalAmount)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}
