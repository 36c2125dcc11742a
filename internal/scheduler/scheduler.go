package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is a unit of periodic maintenance work.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Scheduler runs jobs on their intervals. Jobs never overlap: a job that is
// due while another runs waits for it.
type Scheduler struct {
	logger   *logrus.Logger
	jobs     []Job
	jobMutex sync.Mutex
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
}

func NewScheduler(logger *logrus.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger: logger,
		jobs:   jobs,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches one ticker per job. Jobs with a non-positive interval are skipped.
func (s *Scheduler) Start() {
	s.once.Do(func() {
		for _, job := range s.jobs {
			if job.Every <= 0 || job.Run == nil {
				s.logger.WithField("job", job.Name).Warn("Skipping job without interval")
				continue
			}
			s.wg.Add(1)
			go s.loop(job)
		}
	})
}

func (s *Scheduler) loop(job Job) {
	defer s.wg.Done()
	ticker := time.NewTicker(job.Every)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.execute(job)
		}
	}
}

func (s *Scheduler) execute(job Job) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()
	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	log := s.logger.WithField("job", job.Name)
	if err := job.Run(s.ctx); err != nil {
		log.WithError(err).Error("Scheduled job failed")
		return
	}
	log.WithField("duration", time.Since(start).String()).Debug("Scheduled job completed")
}

// Stop cancels pending runs and waits for a running job to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}
