package netmon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"fieldsync/internal/config"
	"fieldsync/internal/logging"
)

// Prober performs a single connectivity check. A nil error means the media
// server answered.
type Prober interface {
	Probe(ctx context.Context) error
}

// Subscriber receives connectivity transitions.
type Subscriber func(online bool)

type httpProber struct {
	client *http.Client
	url    string
}

func (p *httpProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	// Any answer proves reachability. Server-side errors still mean the
	// network path is up; the upload worker deals with HTTP status itself.
	return nil
}

// Monitor polls connectivity and fans out state transitions to subscribers.
type Monitor struct {
	prober           Prober
	interval         time.Duration
	probeTimeout     time.Duration
	failureThreshold int
	logger           *slog.Logger

	mu          sync.Mutex
	running     bool
	online      bool
	observed    bool
	failures    int
	subscribers []Subscriber

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// consecutive probe failures before the monitor reports offline.
const defaultFailureThreshold = 2

// NewMonitor builds a Monitor probing the configured endpoint over HTTP.
func NewMonitor(cfg *config.Config, logger *slog.Logger) *Monitor {
	probeTimeout := time.Duration(cfg.Network.ProbeTimeout) * time.Second
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	prober := &httpProber{
		client: &http.Client{Timeout: probeTimeout},
		url:    cfg.Network.ProbeURL,
	}
	return NewMonitorWithProber(prober, time.Duration(cfg.Network.ProbeInterval)*time.Second, logger)
}

// NewMonitorWithProber builds a Monitor around a custom prober. Tests use this
// to script connectivity without a network.
func NewMonitorWithProber(prober Prober, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		prober:           prober,
		interval:         interval,
		probeTimeout:     interval,
		failureThreshold: defaultFailureThreshold,
		logger:           logger.With(logging.String("component", "network-monitor")),
	}
}

// Subscribe registers fn for connectivity transitions. The monitor assumes
// offline until the first successful probe, so subscribers registered before
// Start see an online notification as the first event on a healthy network.
func (m *Monitor) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Online reports the last observed connectivity state. Before the first probe
// completes the monitor reports offline.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observed && m.online
}

// Start launches the probe loop.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return errors.New("network monitor unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("network monitor already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.loop()
	return nil
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// CheckNow runs a probe immediately and returns the resulting state. Manual
// sync triggers use this to avoid waiting out the poll interval.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	return m.probe(ctx)
}

func (m *Monitor) loop() {
	defer m.wg.Done()

	m.probe(m.ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.probe(m.ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.prober.Probe(probeCtx)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			m.mu.Lock()
			online := m.observed && m.online
			m.mu.Unlock()
			return online
		}
		return m.recordFailure(err)
	}
	return m.recordSuccess()
}

func (m *Monitor) recordSuccess() bool {
	m.mu.Lock()
	m.failures = 0
	wasObserved := m.observed
	wasOnline := m.online
	m.observed = true
	m.online = true
	subscribers := m.snapshotSubscribersLocked()
	m.mu.Unlock()

	if !wasObserved || !wasOnline {
		m.logger.Info("network online",
			logging.String(logging.FieldEventType, "network_online"),
		)
		notify(subscribers, true)
	}
	return true
}

func (m *Monitor) recordFailure(err error) bool {
	m.mu.Lock()
	m.failures++
	failures := m.failures
	wasObserved := m.observed
	wasOnline := m.online

	confirmed := failures >= m.failureThreshold || !wasObserved
	if confirmed {
		m.observed = true
		m.online = false
	}
	subscribers := m.snapshotSubscribersLocked()
	online := m.observed && m.online
	m.mu.Unlock()

	if !confirmed {
		m.logger.Debug("probe failed; awaiting confirmation",
			logging.Error(err),
			logging.Int("consecutive_failures", failures),
		)
		return online
	}

	if !wasObserved || wasOnline {
		m.logger.Warn("network offline",
			logging.Error(err),
			logging.String(logging.FieldEventType, "network_offline"),
			logging.Int("consecutive_failures", failures),
		)
		if wasObserved {
			notify(subscribers, false)
		}
	}
	return online
}

func (m *Monitor) snapshotSubscribersLocked() []Subscriber {
	subscribers := make([]Subscriber, len(m.subscribers))
	copy(subscribers, m.subscribers)
	return subscribers
}

func notify(subscribers []Subscriber, online bool) {
	for _, fn := range subscribers {
		fn(online)
	}
}
