package queue

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"underwriting/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Handler consumes one batch of monthly actuals.
type Handler func([]*models.MonthlyActual) error

type period struct {
	year, month int
}

// pending is the not yet delivered batch of one deal.
type pending struct {
	records []*models.MonthlyActual
	index   map[period]int
}

func newPending() *pending {
	return &pending{index: make(map[period]int)}
}

// merge adds records, replacing any earlier record for the same month.
func (p *pending) merge(records []*models.MonthlyActual) (replaced int) {
	for _, r := range records {
		key := period{r.Year, r.Month}
		if i, ok := p.index[key]; ok {
			p.records[i] = r
			replaced++
			continue
		}
		p.index[key] = len(p.records)
		p.records = append(p.records, r)
	}
	return replaced
}

// ActualsQueue buffers monthly actuals batches per deal. While a deal's batch
// waits for delivery, later pushes for that deal are merged into it, the newer
// entry winning for a repeated month. Batches are delivered one at a time, so
// writes for a batch never interleave with another. Close delivers whatever is
// still buffered before returning.
type ActualsQueue struct {
	mu       sync.Mutex
	ready    chan uuid.UUID
	pending  map[uuid.UUID]*pending
	maxSize  int
	closed   bool
	started  bool
	finished chan struct{}
	logger   *logrus.Logger
	handlers []Handler
}

// NewActualsQueue creates a queue buffering batches for up to bufferSize deals.
func NewActualsQueue(bufferSize int, logger *logrus.Logger) *ActualsQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &ActualsQueue{
		ready:    make(chan uuid.UUID, bufferSize),
		pending:  make(map[uuid.UUID]*pending),
		maxSize:  bufferSize,
		finished: make(chan struct{}),
		logger:   logger,
		handlers: make([]Handler, 0),
	}
}

// Push enqueues a batch for the deal of its first record without blocking.
// An empty batch is a no-op.
func (q *ActualsQueue) Push(batch []*models.MonthlyActual) error {
	if len(batch) == 0 {
		return nil
	}
	dealID := batch[0].DealID

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	log := q.logger.WithFields(logrus.Fields{"deal_id": dealID, "batch_size": len(batch)})
	if p, ok := q.pending[dealID]; ok {
		replaced := p.merge(batch)
		log.WithField("replaced", replaced).Debug("Merged actuals batch into pending batch")
		return nil
	}
	if len(q.pending) >= q.maxSize {
		return ErrQueueFull
	}

	p := newPending()
	p.merge(batch)
	q.pending[dealID] = p
	// never blocks: the channel holds at most one id per pending deal
	q.ready <- dealID
	log.Debug("Pushed actuals batch to queue")
	return nil
}

// Subscribe adds a handler called for every batch.
func (q *ActualsQueue) Subscribe(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins delivering batches to the subscribed handlers. Calling it again
// has no effect.
func (q *ActualsQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	go q.process()
}

func (q *ActualsQueue) process() {
	defer close(q.finished)
	for dealID := range q.ready {
		q.mu.Lock()
		p := q.pending[dealID]
		delete(q.pending, dealID)
		handlers := q.handlers
		q.mu.Unlock()

		if p == nil {
			continue
		}
		q.deliver(handlers, p.records)
	}
}

func (q *ActualsQueue) deliver(handlers []Handler, batch []*models.MonthlyActual) {
	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).WithField("batch_size", len(batch)).Error("Handler failed to process actuals batch")
		}
	}
}

// Close stops accepting batches and waits until the buffered ones have been
// delivered. A queue that was never started drops its buffer.
func (q *ActualsQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ready)
	started := q.started
	buffered := len(q.pending)
	q.mu.Unlock()

	if !started {
		if buffered > 0 {
			q.logger.WithField("deals", buffered).Warn("Dropping actuals batches of a queue that never started")
		}
		return nil
	}
	<-q.finished
	return nil
}

// Len returns the number of deals with a batch awaiting delivery.
func (q *ActualsQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *ActualsQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
