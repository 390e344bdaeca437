package notify

import (
	"context"
	"time"

	"github.com/arzan03/shopfront/internal/logger"
	"github.com/arzan03/shopfront/internal/metrics"
	"github.com/arzan03/shopfront/internal/utils"
)

// Dispatcher sends emails in the background on a bounded worker pool.
// Dispatch never blocks; when the queue is full the message is dropped.
type Dispatcher struct {
	gateway Gateway
	pool    *utils.WorkerPool
	timeout time.Duration
	log     logger.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(gateway Gateway, workers, queueSize int, timeout time.Duration, log logger.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		gateway: gateway,
		pool:    utils.NewWorkerPool(workers, queueSize),
		timeout: timeout,
		log:     log,
		metrics: m,
	}
}

// Resolver produces the recipient and template data on the worker, under the send timeout.
type Resolver func(ctx context.Context) (email string, data Data, err error)

func (d *Dispatcher) Dispatch(email string, kind Kind, data Data) {
	if email == "" {
		return
	}
	if !d.enqueue(kind, func(context.Context) (string, Data, error) { return email, data, nil }) {
		d.log.Warnf("Notification queue full, dropping %s email to %s", kind, email)
	}
}

// DispatchFunc is Dispatch for callers that have not loaded the recipient yet.
func (d *Dispatcher) DispatchFunc(kind Kind, resolve Resolver) {
	if !d.enqueue(kind, resolve) {
		d.log.Warnf("Notification queue full, dropping %s email", kind)
	}
}

func (d *Dispatcher) enqueue(kind Kind, resolve Resolver) bool {
	queued := d.pool.TryAddTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		email, data, err := resolve(ctx)
		if err != nil || email == "" {
			d.metrics.Notification(string(kind), "skipped")
			return
		}
		if d.gateway.Send(ctx, email, kind, data) {
			d.metrics.Notification(string(kind), "sent")
			return
		}
		d.metrics.Notification(string(kind), "failed")
	})
	if !queued {
		d.metrics.Notification(string(kind), "dropped")
	}
	return queued
}

// Wait blocks until every queued notification has been attempted.
func (d *Dispatcher) Wait() {
	d.pool.Wait()
}

// Close drains the queue and stops the workers.
func (d *Dispatcher) Close() {
	d.pool.Close()
}
