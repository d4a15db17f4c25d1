package dispatcher

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/workfloworchestrator/nsi-aura/internal/metrics"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewDispatcherDefaultsWorkerCount(t *testing.T) {
	d := NewDispatcher(nil, nil, silentLogger(), 0)
	if d.workers != 4 {
		t.Errorf("workers = %d, want default of 4", d.workers)
	}

	d2 := NewDispatcher(nil, nil, silentLogger(), 7)
	if d2.workers != 7 {
		t.Errorf("workers = %d, want 7", d2.workers)
	}
}

func TestEnqueueUpdatesQueueDepthMetric(t *testing.T) {
	d := NewDispatcher(nil, nil, silentLogger(), 2)

	before := testutil.ToFloat64(metrics.DispatcherQueueDepth)
	d.Enqueue(Job{Kind: JobSendReserve, ReservationID: 1})
	d.Enqueue(Job{Kind: JobSendProvision, ReservationID: 2})
	after := testutil.ToFloat64(metrics.DispatcherQueueDepth)

	if after-before != 2 {
		t.Errorf("queue depth gauge moved by %v, want 2", after-before)
	}
}
