package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/core/ports"
	"github.com/conversia/admin-platform/internal/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	writeTimeout   = 5 * time.Second
)

// AuditDispatcher persists audit events off the request path. Events are
// routed to a fixed set of workers by hashing the actor id, so one actor's
// events are written in the order they were recorded.
type AuditDispatcher struct {
	workers []chan domain.AuditEvent
	repo    ports.AuditRepository
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewAuditDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewAuditDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers: make([]chan domain.AuditEvent, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled
// after draining what is already queued.
func (d *AuditDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *AuditDispatcher) Wait() {
	d.wg.Wait()
}

// Record queues e for its actor's worker. It never blocks: when the worker
// channel is full the event is dropped and counted.
func (d *AuditDispatcher) Record(e domain.AuditEvent) {
	idx := d.shardIndex(e.ActorID)
	select {
	case d.workers[idx] <- e:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("action", e.Action).Str("actor_id", e.ActorID).Msg("audit queue full, event dropped")
	}
}

// shardIndex maps an actor id deterministically to a worker index.
func (d *AuditDispatcher) shardIndex(actorID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(actorID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *AuditDispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.drain(id, label, ch)
			return
		case event := <-ch:
			metrics.AuditQueueDepth.WithLabelValues(label).Dec()
			d.write(context.Background(), id, event)
		}
	}
}

// drain writes whatever is still buffered once shutdown has begun.
func (d *AuditDispatcher) drain(id int, label string, ch <-chan domain.AuditEvent) {
	for {
		select {
		case event := <-ch:
			metrics.AuditQueueDepth.WithLabelValues(label).Dec()
			d.write(context.Background(), id, event)
		default:
			return
		}
	}
}

func (d *AuditDispatcher) write(ctx context.Context, id int, event domain.AuditEvent) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	start := time.Now()
	err := d.repo.Insert(ctx, &event)
	metrics.AuditWriteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AuditEventsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("action", event.Action).
			Str("actor_id", event.ActorID).
			Int("worker_id", id).
			Msg("audit event write failed")
		return
	}
	metrics.AuditEventsTotal.WithLabelValues("stored").Inc()
}
