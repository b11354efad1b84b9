package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetentionManager periodically deletes audit entries older than a cutoff
type RetentionManager struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	running bool

	repo    Repository
	maxAge  time.Duration
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewRetentionManager keeps entries for retentionDays days
func NewRetentionManager(repo Repository, retentionDays int, logger *zap.Logger) *RetentionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionManager{
		cron:    cron.New(),
		repo:    repo,
		maxAge:  time.Duration(retentionDays) * 24 * time.Hour,
		timeout: 10 * time.Minute,
		logger:  logger,
		now:     time.Now,
	}
}

// Start schedules Prune with a standard five-field expression or descriptor
// such as "@daily".
func (m *RetentionManager) Start(schedule string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("retention manager already running")
	}
	if m.maxAge <= 0 {
		return fmt.Errorf("retention must be at least one day")
	}

	entryID, err := m.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		_, _ = m.Prune(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	m.entryID = entryID
	m.cron.Start()
	m.running = true

	m.logger.Info("Started audit retention",
		zap.String("schedule", schedule),
		zap.Duration("max_age", m.maxAge),
		zap.Time("next_run", m.cron.Entry(entryID).Next))
	return nil
}

// Stop waits for a running prune to finish
func (m *RetentionManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.logger.Info("Stopping audit retention")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.cron.Remove(m.entryID)
	m.running = false
}

// NextRun returns the next scheduled prune, or the zero time when stopped
func (m *RetentionManager) NextRun() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return time.Time{}
	}
	return m.cron.Entry(m.entryID).Next
}

// Prune deletes every entry created before now minus the retention period
func (m *RetentionManager) Prune(ctx context.Context) (int64, error) {
	cutoff := m.now().Add(-m.maxAge)

	deleted, err := m.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		m.logger.Error("Failed to prune audit entries", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}

	m.logger.Info("Pruned audit entries", zap.Time("cutoff", cutoff), zap.Int64("deleted", deleted))
	return deleted, nil
}
