package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/config"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/service"
)

// defaultPollInterval applies to enabled crawlers with no interval set
const defaultPollInterval = 24 * time.Hour

// SessionFunc opens a session whose events go to events. Each crawler run
// gets its own session.
type SessionFunc func(ctx context.Context, events *service.EventBus) (*service.Session, error)

// Registry manages all registered crawlers and their schedules
type Registry struct {
	mu       sync.RWMutex
	crawlers map[string]Crawler
	configs  map[string]config.CrawlerConfig
	open     SessionFunc
	logger   *log.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewRegistry creates a new crawler registry
func NewRegistry(open SessionFunc) *Registry {
	return &Registry{
		crawlers: make(map[string]Crawler),
		configs:  make(map[string]config.CrawlerConfig),
		open:     open,
		logger:   log.With("component", "crawlers"),
	}
}

// Register adds a crawler to the registry
func (r *Registry) Register(c Crawler, cfg config.CrawlerConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.crawlers[name]; exists {
		return fmt.Errorf("crawler %s already registered", name)
	}

	r.crawlers[name] = c
	r.configs[name] = cfg
	r.logger.Debug("registered crawler", "name", name, "enabled", cfg.Enabled, "interval", cfg.PollInterval.Duration())
	return nil
}

// Start begins a polling loop for every enabled crawler. Each loop runs
// its crawler immediately, then on every tick until Stop.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ctx, r.cancel = context.WithCancel(ctx)

	for _, name := range r.namesLocked(true) {
		r.startPollingLoop(name, r.crawlers[name], r.configs[name])
	}
	return nil
}

// Stop cancels every polling loop and waits for in-flight runs
func (r *Registry) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	return nil
}

// Run runs one crawler once in a fresh session
func (r *Registry) Run(ctx context.Context, name string) (*RunResult, error) {
	r.mu.RLock()
	c, exists := r.crawlers[name]
	cfg := r.configs[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("crawler %s not found", name)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("crawler %s is disabled", name)
	}

	return r.runOnce(ctx, c)
}

// Enabled returns the names of enabled crawlers, sorted
func (r *Registry) Enabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked(true)
}

// List returns information about registered crawlers, sorted by name
func (r *Registry) List() []CrawlerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []CrawlerInfo
	for _, name := range r.namesLocked(false) {
		cfg := r.configs[name]
		infos = append(infos, CrawlerInfo{
			Name:         name,
			Enabled:      cfg.Enabled,
			PollInterval: cfg.PollInterval.Duration(),
		})
	}
	return infos
}

// CrawlerInfo provides read-only information about a crawler
type CrawlerInfo struct {
	Name         string        `json:"name"`
	Enabled      bool          `json:"enabled"`
	PollInterval time.Duration `json:"poll_interval,omitempty"`
}

// RunResult summarizes one crawler run from its session events
type RunResult struct {
	Name     string
	Duration time.Duration
	Nodes    int
	Links    int
}

func (r *Registry) namesLocked(enabledOnly bool) []string {
	names := make([]string, 0, len(r.crawlers))
	for name := range r.crawlers {
		if enabledOnly && !r.configs[name].Enabled {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// startPollingLoop starts a goroutine that runs the crawler on schedule
func (r *Registry) startPollingLoop(name string, c Crawler, cfg config.CrawlerConfig) {
	interval := cfg.PollInterval.Duration()
	if interval <= 0 {
		interval = defaultPollInterval
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if _, err := r.runOnce(r.ctx, c); err != nil {
			r.logger.Error("initial run failed", "crawler", name, "err", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.ctx.Done():
				r.logger.Debug("stopping polling loop", "crawler", name)
				return
			case <-ticker.C:
				if _, err := r.runOnce(r.ctx, c); err != nil {
					r.logger.Error("run failed", "crawler", name, "err", err)
				}
			}
		}
	}()

	r.logger.Info("started polling loop", "crawler", name, "interval", interval)
}

// runOnce opens a session, runs the crawler in it and closes it
func (r *Registry) runOnce(ctx context.Context, c Crawler) (result *RunResult, err error) {
	name := c.Name()
	start := time.Now()
	r.logger.Info("running crawler", "crawler", name)

	bus := service.NewEventBus()
	stats := service.NewStats(bus)

	sess, err := r.open(ctx, bus)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := c.Run(ctx, sess); err != nil {
		return nil, fmt.Errorf("crawler %s: %w", name, err)
	}

	result = &RunResult{
		Name:     name,
		Duration: time.Since(start),
		Nodes:    stats.Count(service.EventNodeResolved) + stats.Count(service.EventNodesResolved),
		Links:    stats.Count(service.EventLinksWritten),
	}
	r.logger.Info("crawler finished",
		"crawler", name,
		"nodes", result.Nodes,
		"links", result.Links,
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}
