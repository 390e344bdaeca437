package notify

import (
	"context"
	"testing"
	"time"

	"github.com/arzan03/shopfront/internal/config"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/arzan03/shopfront/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Send(ctx context.Context, email string, kind Kind, data Data) bool {
	args := m.Called(ctx, email, kind, data)
	return args.Bool(0)
}

func TestRender_AllKinds(t *testing.T) {
	data := Data{
		Name:           "Ann",
		Email:          "ann@example.com",
		ResetLink:      "http://x/reset?token=abc",
		ResetTTL:       "30m0s",
		OrderID:        "order-1",
		TotalAmount:    25,
		Items:          []LineItem{{Name: "P1", Quantity: 2, Price: 10}},
		Status:         "shipped",
		TrackingNumber: "TRK-9",
	}
	for _, kind := range []Kind{KindWelcome, KindPasswordReset, KindPasswordChanged, KindOrderConfirmation, KindOrderStatus} {
		subject, body, err := Render(kind, data)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, subject, kind)
		assert.Contains(t, body, "Ann", kind)
	}

	_, body, err := Render(KindOrderConfirmation, data)
	require.NoError(t, err)
	assert.Contains(t, body, "$25.00")

	_, body, err = Render(KindOrderStatus, data)
	require.NoError(t, err)
	assert.Contains(t, body, "TRK-9")
}

func TestRender_EscapesHTML(t *testing.T) {
	_, body, err := Render(KindWelcome, Data{Name: "<script>x</script>"})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestRender_UnknownKind(t *testing.T) {
	_, _, err := Render(Kind("nope"), Data{})
	assert.Error(t, err)
}

func TestSMTPGateway_UnconfiguredSkips(t *testing.T) {
	g := NewSMTPGateway(config.SMTPConfig{}, logger.NewNop())
	assert.False(t, g.Send(context.Background(), "a@example.com", KindWelcome, Data{}))
}

func TestDispatcher_SendsAndCounts(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Send", mock.Anything, "a@example.com", KindWelcome, mock.Anything).Return(true).Once()
	gw.On("Send", mock.Anything, "b@example.com", KindOrderStatus, mock.Anything).Return(false).Once()

	m := metrics.New()
	d := NewDispatcher(gw, 2, 10, time.Second, logger.NewNop(), m)

	d.Dispatch("a@example.com", KindWelcome, Data{Name: "A"})
	d.Dispatch("b@example.com", KindOrderStatus, Data{Name: "B"})
	d.Dispatch("", KindWelcome, Data{})
	d.Close()

	gw.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("welcome", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("order_status", "failed")))
}

func TestDispatcher_DoesNotBlockWhenFull(t *testing.T) {
	release := make(chan struct{})
	gw := new(MockGateway)
	gw.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).Return(true)

	m := metrics.New()
	d := NewDispatcher(gw, 1, 1, time.Second, logger.NewNop(), m)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Dispatch("a@example.com", KindWelcome, Data{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked")
	}
	close(release)
	d.Close()

	assert.GreaterOrEqual(t, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("welcome", "dropped")), 3.0)
}

func TestDispatcher_DispatchFuncResolvesOnWorker(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Send", mock.Anything, "owner@example.com", KindOrderStatus, mock.MatchedBy(func(d Data) bool {
		return d.Name == "Owner" && d.OrderID == "o1"
	})).Return(true).Once()

	m := metrics.New()
	d := NewDispatcher(gw, 1, 4, time.Second, logger.NewNop(), m)

	d.DispatchFunc(KindOrderStatus, func(ctx context.Context) (string, Data, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return "owner@example.com", Data{Name: "Owner", OrderID: "o1"}, nil
	})
	d.DispatchFunc(KindOrderStatus, func(context.Context) (string, Data, error) {
		return "", Data{}, assert.AnError
	})
	d.Close()

	gw.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("order_status", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("order_status", "skipped")))
}
