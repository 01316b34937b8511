package browser

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/use-agent/iwsa/config"
	"github.com/use-agent/iwsa/models"
)

// Pool is the browser-instance pool (spec §4.5): pools whole browser
// instances, each with its own process, context, and page, rather than pages
// within one shared browser.
type Pool struct {
	cfg        config.BrowserPoolConfig
	browserCfg config.BrowserConfig
	proxies    []string
	launchFunc func(cfg config.BrowserConfig, userAgent, proxy string) (*rod.Browser, *rod.Page, error)

	mu   sync.Mutex
	idle []*Instance
	all  map[int64]*Instance

	nextID   int64
	active   int32
	calls    int64
	notify   chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewPool creates a pool and pre-creates MinInstances instances.
func NewPool(cfg config.BrowserPoolConfig, browserCfg config.BrowserConfig, proxies []string) *Pool {
	return newPool(cfg, browserCfg, proxies, launch)
}

// newPool is NewPool with the instance launcher supplied by the caller, so
// the pre-created instances use it too.
func newPool(cfg config.BrowserPoolConfig, browserCfg config.BrowserConfig, proxies []string, launchFn func(cfg config.BrowserConfig, userAgent, proxy string) (*rod.Browser, *rod.Page, error)) *Pool {
	if cfg.MaxInstances < 1 {
		cfg.MaxInstances = 1
	}
	if cfg.MinInstances < 0 {
		cfg.MinInstances = 0
	}
	if cfg.MinInstances > cfg.MaxInstances {
		cfg.MinInstances = cfg.MaxInstances
	}
	if cfg.MemThreshold <= 0 {
		cfg.MemThreshold = 0.9
	}
	if cfg.ScaleStep <= 0 {
		cfg.ScaleStep = 0.05
	}
	if cfg.AcquireWait <= 0 {
		cfg.AcquireWait = 30 * time.Second
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 60 * time.Second
	}

	p := &Pool{
		cfg:        cfg,
		browserCfg: browserCfg,
		proxies:    proxies,
		launchFunc: launchFn,
		all:        make(map[int64]*Instance),
		notify:     make(chan struct{}, 1),
		stopped:    make(chan struct{}),
	}

	for i := 0; i < cfg.MinInstances; i++ {
		inst, err := p.createLocked()
		if err != nil {
			slog.Warn("browser pool: failed to pre-create instance", "error", err)
			continue
		}
		p.idle = append(p.idle, inst)
	}

	go p.scalingLoop()
	return p
}

// Acquire returns an exclusively-owned instance (spec §4.5 contract): it
// reuses a fresh idle instance, creates a new one under capacity, otherwise
// blocks up to AcquireWait before evicting one idle LRU instance to make
// room, failing outright after AcquireTimeout.
func (p *Pool) Acquire(ctx context.Context, forceNew bool) (*Instance, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	evictTimer := time.NewTimer(p.cfg.AcquireWait)
	defer evictTimer.Stop()
	triedEvict := false

	for {
		if !forceNew {
			if inst := p.takeFreshIdle(); inst != nil {
				return inst, nil
			}
		}

		inst, atCapacity, err := p.tryCreate()
		if err != nil {
			return nil, err
		}
		if inst != nil {
			return inst, nil
		}
		_ = atCapacity

		select {
		case <-p.notify:
			continue
		case <-evictTimer.C:
			if !triedEvict {
				triedEvict = true
				if p.evictLRUIdle() {
					continue
				}
			}
			// Nothing evictable; keep waiting until the hard deadline.
			select {
			case <-p.notify:
				continue
			case <-deadlineCtx.Done():
				return nil, models.NewScrapeError(models.ErrCodeTimeout, "browser pool acquire timed out", deadlineCtx.Err())
			}
		case <-deadlineCtx.Done():
			return nil, models.NewScrapeError(models.ErrCodeTimeout, "browser pool acquire timed out", deadlineCtx.Err())
		}
	}
}

// Release returns instance to the pool, retiring it first if it has
// exceeded its request or age budget (spec §4.5 invariant).
func (p *Pool) Release(inst *Instance) {
	inst.touch()
	inst.inUse.Store(false)

	p.mu.Lock()
	p.active--
	p.mu.Unlock()

	if inst.expired(p.cfg.MaxPerInstance, p.cfg.MaxAge) {
		p.destroy(inst)
		p.backfillToMin()
		p.wake()
		return
	}

	p.mu.Lock()
	p.idle = append(p.idle, inst)
	p.mu.Unlock()
	p.wake()
}

// Size returns the number of live instances.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all)
}

// ActiveCount returns the number of currently checked-out instances.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.active)
}

// MaxInstances returns the configured upper bound on pool size.
func (p *Pool) MaxInstances() int {
	return p.cfg.MaxInstances
}

// Shutdown closes every instance and stops the scaling loop.
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() { close(p.stopped) })

	p.mu.Lock()
	defer p.mu.Unlock()
	for id, inst := range p.all {
		inst.close()
		delete(p.all, id)
	}
	p.idle = nil
}

func (p *Pool) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// takeFreshIdle pops the first non-expired idle instance, discarding
// (and replacing bookkeeping for) any expired ones it encounters along the way.
func (p *Pool) takeFreshIdle() *Instance {
	for {
		p.mu.Lock()
		if len(p.idle) == 0 {
			p.mu.Unlock()
			return nil
		}
		inst := p.idle[0]
		p.idle = p.idle[1:]
		p.mu.Unlock()

		if inst.expired(p.cfg.MaxPerInstance, p.cfg.MaxAge) {
			p.destroy(inst)
			continue
		}

		inst.inUse.Store(true)
		p.mu.Lock()
		p.active++
		p.mu.Unlock()
		return inst
	}
}

// evictLRUIdle closes the least-recently-used idle instance to free room
// for a new one. Returns false if nothing idle is evictable.
func (p *Pool) evictLRUIdle() bool {
	p.mu.Lock()
	if len(p.idle) == 0 {
		p.mu.Unlock()
		return false
	}
	lruIdx := 0
	for i, inst := range p.idle {
		if inst.LastUsed().Before(p.idle[lruIdx].LastUsed()) {
			lruIdx = i
		}
	}
	victim := p.idle[lruIdx]
	p.idle = append(p.idle[:lruIdx], p.idle[lruIdx+1:]...)
	p.mu.Unlock()

	p.destroy(victim)
	return true
}

// tryCreate creates a new instance if under MaxInstances. Returns
// (nil, true, nil) when the pool is at capacity — not an error, just "wait".
func (p *Pool) tryCreate() (*Instance, bool, error) {
	p.mu.Lock()
	if len(p.all) >= p.cfg.MaxInstances {
		p.mu.Unlock()
		return nil, true, nil
	}
	p.mu.Unlock()

	inst, err := p.createLocked()
	if err != nil {
		return nil, false, err
	}
	p.mu.Lock()
	inst.inUse.Store(true)
	p.active++
	p.mu.Unlock()
	return inst, false, nil
}

// createLocked launches one new instance and registers it in p.all.
// Despite the name it acquires p.mu itself; the "Locked" suffix marks it as
// the low-level counterpart to tryCreate's lock-then-call wrapper.
func (p *Pool) createLocked() (*Instance, error) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	calls := p.calls
	p.calls++
	p.mu.Unlock()

	ua := pickUserAgent(p.cfg.UserAgents)
	proxy := pickProxy(p.proxies, int(calls))

	b, page, err := p.launchFunc(p.browserCfg, ua, proxy)
	if err != nil {
		return nil, err
	}

	inst := &Instance{ID: id, Browser: b, Page: page, UserAgent: ua, createdAt: time.Now()}
	inst.lastUsed.Store(time.Now().UnixNano())

	p.mu.Lock()
	p.all[id] = inst
	p.mu.Unlock()
	return inst, nil
}

func (p *Pool) destroy(inst *Instance) {
	p.mu.Lock()
	delete(p.all, inst.ID)
	p.mu.Unlock()
	inst.close()
}

// backfillToMin replaces a retired instance when the live count has fallen
// below MinInstances.
func (p *Pool) backfillToMin() {
	p.mu.Lock()
	below := len(p.all) < p.cfg.MinInstances
	p.mu.Unlock()
	if !below {
		return
	}
	inst, err := p.createLocked()
	if err != nil {
		slog.Warn("browser pool: failed to backfill to minimum", "error", err)
		return
	}
	p.mu.Lock()
	p.idle = append(p.idle, inst)
	p.mu.Unlock()
}

// scalingLoop periodically checks memory pressure and grows or shrinks the
// pool of live browser instances accordingly.
func (p *Pool) scalingLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopped:
			return
		case <-ticker.C:
			p.scaleCheck()
		}
	}
}

func (p *Pool) scaleCheck() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var memPressure float64
	if m.HeapSys > 0 {
		memPressure = float64(m.HeapInuse) / float64(m.HeapSys)
	}

	p.mu.Lock()
	total := len(p.all)
	active := int(p.active)
	p.mu.Unlock()

	var activeRate float64
	if total > 0 {
		activeRate = float64(active) / float64(total)
	}

	switch {
	case memPressure > p.cfg.MemThreshold:
		shrinkCount := int(math.Ceil(float64(total) * p.cfg.ScaleStep))
		for i := 0; i < shrinkCount; i++ {
			p.mu.Lock()
			if len(p.all) <= p.cfg.MinInstances {
				p.mu.Unlock()
				break
			}
			p.mu.Unlock()
			if !p.evictLRUIdle() {
				break
			}
			slog.Debug("browser pool: shrinking under memory pressure")
		}
	case activeRate > 0.8:
		growCount := int(math.Ceil(float64(total) * p.cfg.ScaleStep))
		for i := 0; i < growCount; i++ {
			p.mu.Lock()
			if len(p.all) >= p.cfg.MaxInstances {
				p.mu.Unlock()
				break
			}
			p.mu.Unlock()
			inst, err := p.createLocked()
			if err != nil {
				slog.Warn("browser pool: failed to grow", "error", err)
				break
			}
			p.mu.Lock()
			p.idle = append(p.idle, inst)
			p.mu.Unlock()
			slog.Debug("browser pool: grew pool", "id", inst.ID)
		}
	}
}
