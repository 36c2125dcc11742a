package processor

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"underwriting/server/config"
	"underwriting/server/internal/database"
	"underwriting/server/internal/models"
	"underwriting/server/internal/queue"
)

// Transactor runs a function inside a database transaction. *gorm.DB satisfies it.
type Transactor interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// BatchProcessor writes queued monthly actuals batches to the database
type BatchProcessor struct {
	db         Transactor
	logger     *logrus.Logger
	config     *config.Config
	queue      *queue.ActualsQueue
	retryDelay time.Duration
	startOnce  sync.Once
	stateMutex sync.Mutex // orders handle's Add against Stop's Wait
	stopped    bool
	waitGroup  sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db Transactor, queue *queue.ActualsQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:         db,
		queue:      queue,
		config:     config,
		logger:     logger,
		retryDelay: time.Duration(config.BatchProcessing.RetryDelay) * time.Second,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start subscribes the processor to the queue. Calling it again has no effect.
func (p *BatchProcessor) Start() {
	p.startOnce.Do(func() {
		p.queue.Subscribe(p.handle)
	})
}

// Stop cancels pending retries and waits for the batch in flight.
func (p *BatchProcessor) Stop() {
	p.stateMutex.Lock()
	p.stopped = true
	p.cancel()
	p.stateMutex.Unlock()
	p.waitGroup.Wait()
}

func (p *BatchProcessor) handle(batch []*models.MonthlyActual) error {
	p.stateMutex.Lock()
	if p.stopped {
		p.stateMutex.Unlock()
		return context.Canceled
	}
	p.waitGroup.Add(1)
	p.stateMutex.Unlock()

	defer p.waitGroup.Done()
	return p.processBatch(batch)
}

// prepare drops invalid records and refreshes the derived totals of the rest.
func (p *BatchProcessor) prepare(batch []*models.MonthlyActual) []*models.MonthlyActual {
	valid := make([]*models.MonthlyActual, 0, len(batch))
	for _, a := range batch {
		if a == nil {
			continue
		}
		if err := a.Validate(); err != nil {
			p.logger.WithError(err).WithFields(logrus.Fields{
				"deal_id": a.DealID,
				"year":    a.Year,
				"month":   a.Month,
			}).Warn("Skipping invalid monthly actual")
			continue
		}
		a.Recalculate()
		valid = append(valid, a)
	}
	return valid
}

// processBatch upserts a single batch in a transaction, retrying on failure
func (p *BatchProcessor) processBatch(batch []*models.MonthlyActual) error {
	valid := p.prepare(batch)
	if len(valid) == 0 {
		return nil
	}

	maxRetries := p.config.BatchProcessing.MaxRetries
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying actuals batch, attempt %d of %d", attempt, maxRetries)
			select {
			case <-p.ctx.Done():
				return fmt.Errorf("batch abandoned during shutdown: %w", err)
			case <-time.After(p.retryDelay):
			}
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertActuals(tx, valid); err != nil {
				return fmt.Errorf("failed to upsert actuals batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.WithField("batch_size", len(valid)).Info("Stored monthly actuals batch")
			return nil
		}

		p.logger.WithError(err).Error("Actuals batch failed")
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", maxRetries+1, err)
}
