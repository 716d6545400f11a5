package gtfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tripsearch.onebusaway.org/internal/clock"
	"tripsearch.onebusaway.org/internal/logging"
	"tripsearch.onebusaway.org/internal/network"
)

// ErrNotReady is returned by the snapshot getters before the first successful load.
var ErrNotReady = errors.New("GTFS network not loaded")

// SnapshotStore persists converted snapshots. networkdb.Client implements it.
type SnapshotStore interface {
	ImportSnapshot(ctx context.Context, source string, stops []network.Stop, lines []network.Line) (bool, error)
}

// LoadObserver is told about every load attempt. metrics.Metrics implements it.
type LoadObserver interface {
	RecordNetworkLoad(stops, lines int, at time.Time)
	RecordNetworkReloadError()
}

// Stats describes the currently served snapshot.
type Stats struct {
	ConversionStats
	Source      string    `json:"source"`
	LastUpdated time.Time `json:"lastUpdated"`
	Healthy     bool      `json:"healthy"`
}

// Manager owns the network converted from a static GTFS feed and serves it as
// a planner repository.
type Manager struct {
	config   Config
	store    SnapshotStore
	observer LoadObserver
	clock    clock.Clock
	logger   *slog.Logger

	staticMutex       sync.RWMutex
	staticUpdateMutex sync.Mutex
	snapshot          *network.StaticRepository
	stats             ConversionStats
	lastUpdated       time.Time
	isHealthy         bool

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStore mirrors every loaded snapshot into store.
func WithStore(store SnapshotStore) ManagerOption {
	return func(m *Manager) { m.store = store }
}

func WithObserver(observer LoadObserver) ManagerOption {
	return func(m *Manager) { m.observer = observer }
}

func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) { m.clock = c }
}

// InitGTFSManager performs the initial load and, for remote feeds with a
// refresh interval, starts the periodic updater.
func InitGTFSManager(config Config, opts ...ManagerOption) (*Manager, error) {
	manager := &Manager{
		config:       config,
		clock:        clock.RealClock{},
		logger:       slog.Default().With(slog.String("component", "gtfs_manager")),
		shutdownChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(manager)
	}

	if err := manager.ForceUpdate(context.Background()); err != nil {
		return nil, err
	}

	if !config.isLocalFile() && config.RefreshInterval > 0 {
		manager.wg.Add(1)
		go manager.updateStaticGTFS()
	}

	return manager, nil
}

// ForceUpdate loads, converts and validates the feed, then swaps it in. On any
// failure the previous snapshot keeps being served.
func (manager *Manager) ForceUpdate(ctx context.Context) error {
	manager.staticUpdateMutex.Lock()
	defer manager.staticUpdateMutex.Unlock()

	err := manager.update(ctx)
	if err != nil {
		logging.LogError(manager.logger, "Error updating GTFS data", err,
			slog.String("source", manager.config.GtfsURL))
		if manager.observer != nil {
			manager.observer.RecordNetworkReloadError()
		}
	}
	return err
}

func (manager *Manager) update(ctx context.Context) error {
	staticData, err := loadGTFSData(ctx, manager.config)
	if err != nil {
		return err
	}

	stops, lines, stats := ConvertStatic(staticData)
	if _, err := network.BuildIndex(stops, lines); err != nil {
		return fmt.Errorf("converted GTFS network is unusable: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if manager.store != nil {
		if _, err := manager.store.ImportSnapshot(ctx, manager.config.GtfsURL, stops, lines); err != nil {
			return fmt.Errorf("failed to store network snapshot: %w", err)
		}
	}

	now := manager.clock.Now()

	manager.staticMutex.Lock()
	manager.snapshot = network.NewStaticRepository(stops, lines)
	manager.stats = stats
	manager.lastUpdated = now
	manager.isHealthy = true
	manager.staticMutex.Unlock()

	if manager.observer != nil {
		manager.observer.RecordNetworkLoad(len(stops), len(lines), now)
	}

	logging.LogOperation(manager.logger, "gtfs_network_loaded",
		slog.String("source", manager.config.GtfsURL),
		slog.Int("stops", stats.Stops),
		slog.Int("lines", stats.Lines),
		slog.Int("skipped_lines", stats.SkippedLines),
		slog.Int("feed_warnings", stats.FeedWarnings))

	return nil
}

func (manager *Manager) updateStaticGTFS() {
	defer manager.wg.Done()

	logger := slog.Default().With(slog.String("component", "gtfs_static_updater"))

	ticker := time.NewTicker(manager.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			err := manager.ForceUpdate(ctx)
			cancel()
			if err != nil {
				manager.MarkUnhealthy()
			}
		case <-manager.shutdownChan:
			logging.LogOperation(logger, "shutting_down_static_gtfs_updates")
			return
		}
	}
}

func (manager *Manager) current() (*network.StaticRepository, error) {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	if manager.snapshot == nil {
		return nil, ErrNotReady
	}
	return manager.snapshot, nil
}

func (manager *Manager) GetStopsSnapshot(ctx context.Context) ([]network.Stop, error) {
	snapshot, err := manager.current()
	if err != nil {
		return nil, err
	}
	return snapshot.GetStopsSnapshot(ctx)
}

func (manager *Manager) GetLinesSnapshot(ctx context.Context) ([]network.Line, error) {
	snapshot, err := manager.current()
	if err != nil {
		return nil, err
	}
	return snapshot.GetLinesSnapshot(ctx)
}

// Snapshot returns the stops and lines of one loaded network. A reload running
// concurrently never mixes versions.
func (manager *Manager) Snapshot(ctx context.Context) ([]network.Stop, []network.Line, error) {
	snapshot, err := manager.current()
	if err != nil {
		return nil, nil, err
	}
	return snapshot.Snapshot(ctx)
}

// IsReady reports whether a snapshot has been loaded.
func (manager *Manager) IsReady() bool {
	_, err := manager.current()
	return err == nil
}

// IsHealthy is false after a failed periodic reload until the next success.
func (manager *Manager) IsHealthy() bool {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.isHealthy
}

func (manager *Manager) MarkHealthy() {
	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()
	manager.isHealthy = true
}

func (manager *Manager) MarkUnhealthy() {
	manager.staticMutex.Lock()
	defer manager.staticMutex.Unlock()
	manager.isHealthy = false
}

func (manager *Manager) LastUpdated() time.Time {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return manager.lastUpdated
}

func (manager *Manager) Stats() Stats {
	manager.staticMutex.RLock()
	defer manager.staticMutex.RUnlock()
	return Stats{
		ConversionStats: manager.stats,
		Source:          manager.config.GtfsURL,
		LastUpdated:     manager.lastUpdated,
		Healthy:         manager.isHealthy,
	}
}

// Shutdown stops the periodic updater and waits for it to exit. It is safe to
// call more than once.
func (manager *Manager) Shutdown() {
	manager.shutdownOnce.Do(func() {
		close(manager.shutdownChan)
	})
	manager.wg.Wait()
}
