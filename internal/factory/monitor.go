package factory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/chessgame-go/internal/storage"
)

const defaultStoreRetryInterval = 10 * time.Second

// storeMonitor pings the game store on an interval. Operations keep
// failing with ErrStoreUnavailable while it is down; the monitor only
// reports transitions and runs onRecover when the store comes back.
type storeMonitor struct {
	store     storage.GameStore
	onRecover func(context.Context) error
	interval  time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	down bool
}

func newStoreMonitor(store storage.GameStore, onRecover func(context.Context) error, interval time.Duration, logger *slog.Logger) *storeMonitor {
	if interval <= 0 {
		interval = defaultStoreRetryInterval
	}
	return &storeMonitor{
		store:     store,
		onRecover: onRecover,
		interval:  interval,
		logger:    logger.With(slog.String("component", "store_monitor")),
	}
}

func (m *storeMonitor) markDown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = true
}

func (m *storeMonitor) isDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.down
}

func (m *storeMonitor) run(ctx context.Context) {
	m.check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// check pings once and records the result
func (m *storeMonitor) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.store.Ping(pingCtx)
	if err == nil && m.isDown() && m.onRecover != nil {
		err = m.onRecover(pingCtx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case err != nil && !m.down:
		m.down = true
		m.logger.Error("game store unreachable", slog.String("error", err.Error()))
	case err == nil && m.down:
		m.down = false
		m.logger.Info("game store reachable again")
	}
}
