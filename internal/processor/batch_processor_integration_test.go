package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"underwriting/server/internal/database"
	"underwriting/server/internal/models"
	"underwriting/server/internal/queue"
)

func setupTestDB(t testing.TB) *gorm.DB {
	db, err := database.NewTestDB()
	require.NoError(t, err)

	err = database.MigrateSchema(db)
	require.NoError(t, err)

	return db
}

func countActuals(db *gorm.DB) int64 {
	var count int64
	if err := db.Model(&models.MonthlyActual{}).Count(&count).Error; err != nil {
		return -1
	}
	return count
}

func TestBatchProcessingIntegration(t *testing.T) {
	db := setupTestDB(t)
	q := queue.NewActualsQueue(10, testLogger())
	processor := NewBatchProcessor(db, q, testConfig(3), testLogger())

	processor.Start()
	q.Start()
	defer q.Close()
	defer processor.Stop()

	dealID := uuid.New()
	batch := []*models.MonthlyActual{actual(dealID, 2025, 1), actual(dealID, 2025, 2), actual(dealID, 2025, 14)}
	require.NoError(t, q.Push(batch))

	assert.Eventually(t, func() bool { return countActuals(db) == 2 }, 2*time.Second, 20*time.Millisecond)

	var stored models.MonthlyActual
	require.NoError(t, db.Where("deal_id = ? AND month = ?", dealID, 2).First(&stored).Error)
	assert.True(t, stored.NetOperatingIncome.Equal(batch[1].NetOperatingIncome))
	assert.Equal(t, "90000", stored.NetOperatingIncome.String())

	// a resubmitted month replaces the stored one
	revised := actual(dealID, 2025, 2)
	revised.Notes = "restated"
	require.NoError(t, q.Push([]*models.MonthlyActual{revised}))
	assert.Eventually(t, func() bool {
		var m models.MonthlyActual
		err := db.Where("deal_id = ? AND month = ?", dealID, 2).First(&m).Error
		return err == nil && m.Notes == "restated"
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, int64(2), countActuals(db))
}

func TestBatchProcessingWithConcurrentProducers(t *testing.T) {
	db := setupTestDB(t)
	q := queue.NewActualsQueue(50, testLogger())
	processor := NewBatchProcessor(db, q, testConfig(3), testLogger())

	processor.Start()
	q.Start()
	defer q.Close()
	defer processor.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(deal int) {
			defer wg.Done()
			dealID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("deal-%d", deal)))
			batch := make([]*models.MonthlyActual, 12)
			for m := range batch {
				batch[m] = actual(dealID, 2024, m+1)
			}
			assert.NoError(t, q.Push(batch))
		}(i)
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return countActuals(db) == 60 }, 5*time.Second, 50*time.Millisecond)
}

func TestBatchProcessingErrorRecovery(t *testing.T) {
	db := setupTestDB(t)
	mockDB := &MockDB{}
	q := queue.NewActualsQueue(10, testLogger())
	processor := NewBatchProcessor(mockDB, q, testConfig(3), testLogger())
	processor.retryDelay = 10 * time.Millisecond

	// fail twice, then commit against the real database
	mockDB.On("Transaction", mock.Anything).Return(errors.New("database is locked")).Twice()
	mockDB.On("Transaction", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		fc := args.Get(0).(func(*gorm.DB) error)
		assert.NoError(t, db.WithContext(context.Background()).Transaction(fc))
	}).Once()

	processor.Start()
	q.Start()
	defer q.Close()
	defer processor.Stop()

	require.NoError(t, q.Push([]*models.MonthlyActual{actual(uuid.New(), 2025, 3)}))

	assert.Eventually(t, func() bool { return countActuals(db) == 1 }, 2*time.Second, 20*time.Millisecond)
	mockDB.AssertNumberOfCalls(t, "Transaction", 3)
}
