package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"docscan/config"
)

const defaultPool = "default"

// ErrQueueTimeout is returned when no slot frees up within the queue timeout.
var ErrQueueTimeout = errors.New("too many requests in queue")

// PoolMetrics holds the metrics for a specific pool.
type PoolMetrics struct {
	Pool                   string
	QueueSize              int
	ProcessingCount        int
	LastLogTime            time.Time
	queueSizeChanged       bool
	processingCountChanged bool
	mu                     sync.Mutex
}

// ConcurrencyManager limits how many model calls and extractions run at once.
type ConcurrencyManager struct {
	semMap       map[string]chan struct{}
	metricsMap   map[string]*PoolMetrics
	mu           sync.Mutex
	queueTimeout time.Duration
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewConcurrencyManager initializes a new ConcurrencyManager with pool configurations and a default pool size.
func NewConcurrencyManager(poolConfigs []config.PoolConfigEntry, defaultSize int, queueTimeout time.Duration) *ConcurrencyManager {
	cm := &ConcurrencyManager{
		semMap:       make(map[string]chan struct{}),
		metricsMap:   make(map[string]*PoolMetrics),
		queueTimeout: queueTimeout,
		shutdownCh:   make(chan struct{}),
	}

	for _, cfg := range poolConfigs {
		size := cfg.Size
		if size <= 0 {
			size = defaultSize
			log.Warnf("Pool '%s' has invalid size %d. Setting to default size %d.", cfg.Name, cfg.Size, size)
		}
		cm.semMap[cfg.Name] = make(chan struct{}, size)
		cm.metricsMap[cfg.Name] = &PoolMetrics{
			Pool: cfg.Name,
		}
	}

	if _, exists := cm.semMap[defaultPool]; !exists {
		cm.semMap[defaultPool] = make(chan struct{}, defaultSize)
		cm.metricsMap[defaultPool] = &PoolMetrics{
			Pool: defaultPool,
		}
	}

	for _, metrics := range cm.metricsMap {
		cm.wg.Add(1)
		go cm.monitorMetrics(metrics)
	}

	return cm
}

// Acquire waits for a slot in the named pool. Unknown names share the default pool.
// On success the returned function must be called to release the slot.
func (cm *ConcurrencyManager) Acquire(ctx context.Context, pool string) (func(), error) {
	cm.mu.Lock()
	sem, exists := cm.semMap[pool]
	if !exists {
		pool = defaultPool
		sem = cm.semMap[pool]
	}
	metrics := cm.metricsMap[pool]
	cm.mu.Unlock()

	metrics.incrementQueue()

	// A non-positive timeout waits until a slot frees up or ctx is done.
	var timeout <-chan time.Time
	if cm.queueTimeout > 0 {
		timer := time.NewTimer(cm.queueTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case sem <- struct{}{}:
		metrics.incrementProcessing()
		metrics.decrementQueue()

		var once sync.Once
		return func() {
			once.Do(func() {
				metrics.decrementProcessing()
				<-sem
			})
		}, nil
	case <-timeout:
		metrics.decrementQueue()
		return nil, ErrQueueTimeout
	case <-ctx.Done():
		metrics.decrementQueue()
		return nil, ctx.Err()
	}
}

// snapshot returns the current queued and processing counts of a pool.
func (cm *ConcurrencyManager) snapshot(pool string) (queued, processing int) {
	cm.mu.Lock()
	metrics, exists := cm.metricsMap[pool]
	cm.mu.Unlock()
	if !exists {
		return 0, 0
	}
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	return metrics.QueueSize, metrics.ProcessingCount
}

// monitorMetrics monitors changes in the metrics and logs them appropriately.
func (cm *ConcurrencyManager) monitorMetrics(metrics *PoolMetrics) {
	defer cm.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond) // Check twice every second
	defer ticker.Stop()

	for {
		select {
		case <-cm.shutdownCh:
			return
		case currentTime := <-ticker.C:
			metrics.mu.Lock()
			if (metrics.queueSizeChanged || metrics.processingCountChanged) &&
				currentTime.Sub(metrics.LastLogTime) >= time.Second {
				log.Infof("Pool: %s | Queued: %d | Processing: %d",
					metrics.Pool, metrics.QueueSize, metrics.ProcessingCount)
				metrics.LastLogTime = currentTime
				metrics.resetChangeFlags()
			}
			metrics.mu.Unlock()
		}
	}
}

// Shutdown stops the metric monitors. Slots already handed out stay valid.
func (cm *ConcurrencyManager) Shutdown() {
	cm.shutdownOnce.Do(func() {
		close(cm.shutdownCh)
	})
	cm.wg.Wait()
}

// Methods for PoolMetrics

func (m *PoolMetrics) incrementQueue() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueueSize++
	m.queueSizeChanged = true
}

func (m *PoolMetrics) decrementQueue() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueueSize > 0 {
		m.QueueSize--
		m.queueSizeChanged = true
	}
}

func (m *PoolMetrics) incrementProcessing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProcessingCount++
	m.processingCountChanged = true
}

func (m *PoolMetrics) decrementProcessing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ProcessingCount > 0 {
		m.ProcessingCount--
		m.processingCountChanged = true
	}
}

func (m *PoolMetrics) resetChangeFlags() {
	m.queueSizeChanged = false
	m.processingCountChanged = false
}
