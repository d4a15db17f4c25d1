// Package dispatcher runs outbound NSI requests on a bounded worker pool,
// decoupled from the http handlers and reservation service that enqueue
// them. Built on caffix/queue, drained by a
// fixed pool of worker goroutines since NSI job bodies perform their own
// blocking network I/O and must not serialize behind one goroutine.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/caffix/queue"

	"github.com/workfloworchestrator/nsi-aura/internal/db"
	"github.com/workfloworchestrator/nsi-aura/internal/metrics"
	"github.com/workfloworchestrator/nsi-aura/internal/nsi"
)

// Dispatcher decouples reservation state transitions from the network
// I/O those transitions authorize: Enqueue only ever pushes onto an
// in-memory queue, so a job outlives the request that created it but is
// processed by a small fixed pool of workers instead of inline.
type Dispatcher struct {
	queue   queue.Queue
	store   *db.Store
	client  *nsi.Client
	log     *slog.Logger
	workers int

	wg sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher with workers worker goroutines:
// a small fixed pool, not one goroutine per reservation.
func NewDispatcher(store *db.Store, client *nsi.Client, log *slog.Logger, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	return &Dispatcher{
		queue:   queue.NewQueue(),
		store:   store,
		client:  client,
		log:     log,
		workers: workers,
	}
}

// Enqueue submits job for asynchronous processing. It never blocks.
func (d *Dispatcher) Enqueue(job Job) {
	d.queue.Append(job)
	metrics.DispatcherQueueDepth.Set(float64(d.queue.Len()))
}

// Start launches the worker pool. Each worker runs until ctx is
// cancelled, then drains whatever remains queued before exiting, so a
// shutdown does not silently drop an already-accepted job.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Wait blocks until every worker goroutine has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case <-d.queue.Signal():
		}

		for {
			item, ok := d.queue.Next()
			if !ok {
				break
			}
			job, ok := item.(Job)
			if !ok {
				continue
			}
			metrics.DispatcherQueueDepth.Set(float64(d.queue.Len()))
			d.process(ctx, job)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		item, ok := d.queue.Next()
		if !ok {
			return
		}
		job, ok := item.(Job)
		if !ok {
			continue
		}
		d.process(context.Background(), job)
	}
}

func (d *Dispatcher) process(ctx context.Context, job Job) {
	var err error
	if job.Kind == JobSendReserve {
		err = sendReserve(ctx, d.store, d.client, d.log, job.ReservationID)
	} else {
		err = sendSimple(ctx, d.store, d.client, d.log, job.Kind, job.ReservationID)
	}
	if err != nil {
		d.log.Error("job failed", "kind", job.Kind, "reservation_id", job.ReservationID, "error", err)
	}
}
