package services

import (
	"context"
	"sync"
	"time"

	"github.com/amaumene/movieshelf/internal/constants"
	"github.com/amaumene/movieshelf/pkg/logger"
)

// GarbageCollector drops cache entries whose retention window has elapsed.
type GarbageCollector interface {
	GarbageCollect() int
}

// CleanupService periodically garbage-collects the query cache.
type CleanupService struct {
	cache    GarbageCollector
	logger   logger.Logger
	interval time.Duration
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(cache GarbageCollector, log logger.Logger) *CleanupService {
	if log == nil {
		log = logger.New()
	}
	return &CleanupService{
		cache:    cache,
		logger:   log,
		interval: constants.CacheCleanupInterval,
		stopChan: make(chan struct{}),
	}
}

// SetInterval sets how often cleanup runs
func (c *CleanupService) SetInterval(duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if duration > 0 {
		c.interval = duration
	}
}

// Start begins the cleanup service
func (c *CleanupService) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopChan = make(chan struct{})
	interval := c.interval
	stop := c.stopChan
	c.mu.Unlock()

	c.logger.Infof("[Cleanup] starting cache cleanup with interval: %v", interval)

	go c.cleanupLoop(ctx, interval, stop)

	return nil
}

// Stop stops the cleanup service
func (c *CleanupService) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	c.running = false
	close(c.stopChan)
	c.logger.Infof("[Cleanup] cache cleanup stopped")
}

// stopIfCurrent stops the service unless it was restarted with a new loop.
func (c *CleanupService) stopIfCurrent(stop <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || (<-chan struct{})(c.stopChan) != stop {
		return
	}
	c.running = false
	close(c.stopChan)
	c.logger.Infof("[Cleanup] cache cleanup stopped")
}

func (c *CleanupService) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *CleanupService) cleanupLoop(ctx context.Context, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.stopIfCurrent(stop)
			return
		case <-stop:
			return
		case <-ticker.C:
			c.performCleanup()
		}
	}
}

func (c *CleanupService) performCleanup() int {
	removed := c.cache.GarbageCollect()
	if removed > 0 {
		c.logger.Debugf("[Cleanup] removed %d expired cache entries", removed)
	}
	return removed
}

// CleanupNow performs immediate cleanup and returns the number of entries removed.
func (c *CleanupService) CleanupNow() int {
	return c.performCleanup()
}
