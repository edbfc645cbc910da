package queue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/caseperl/caseperl-api/internal/api/metrics"
	"github.com/caseperl/caseperl-api/internal/core/domain"
	"github.com/caseperl/caseperl-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	recordTimeout  = 5 * time.Second
)

// Dispatcher records case audit events asynchronously. Events are routed to
// a fixed set of workers by case ID, so events of one case are recorded in
// publish order.
type Dispatcher struct {
	workers []chan domain.CaseEvent
	service ports.EventService
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.EventService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.CaseEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.CaseEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit once Close has been
// called and their channel is drained.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Publish hands event to the worker responsible for its case. It never
// blocks: when the worker's buffer is full, or the dispatcher is closed, the
// event is dropped and logged.
func (d *Dispatcher) Publish(event domain.CaseEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	idx := d.shardIndex(event.CaseID)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.drop(event, "worker queue full")
	}
}

// Close stops accepting events and waits until every queued event has been
// recorded or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a case ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(caseID int64) int {
	n := int64(len(d.workers))
	idx := caseID % n
	if idx < 0 {
		idx += n
	}
	return int(idx)
}

func (d *Dispatcher) drop(event domain.CaseEvent, reason string) {
	metrics.AuditEventsErrorsTotal.WithLabelValues("dropped").Inc()
	d.log.Warn().
		Int64("case_id", event.CaseID).
		Str("kind", string(event.Kind)).
		Str("reason", reason).
		Msg("audit event dropped")
}

func (d *Dispatcher) runWorker(id int, ch <-chan domain.CaseEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)

	for event := range ch {
		metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		err := d.service.Record(ctx, event)
		cancel()

		if err != nil {
			metrics.AuditEventsErrorsTotal.WithLabelValues("record_failed").Inc()
			metrics.AuditRecordDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
			d.log.Error().Err(err).
				Int64("case_id", event.CaseID).
				Str("kind", string(event.Kind)).
				Int("worker_id", id).
				Msg("audit event recording failed")
			continue
		}
		metrics.AuditEventsRecordedTotal.WithLabelValues(string(event.Kind)).Inc()
		metrics.AuditRecordDuration.WithLabelValues(string(event.Kind)).Observe(time.Since(start).Seconds())
	}
}
