package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pairstats/analytics-backend/internal/service"
)

// MetricsSource computes the merged month-to-date view the monitor
// watches; the service package satisfies it.
type MetricsSource interface {
	Performance(ctx context.Context, req service.Request) (*service.Result, error)
}

// AlertSink receives drawdown notifications; notifications.Sender
// satisfies it.
type AlertSink interface {
	SendDrawdownAlert(accounts []string, currentPct, thresholdPct float64, windowStart string)
	SendDrawdownRecovered(accounts []string, currentPct float64)
}

type MonitorConfig struct {
	Interval     time.Duration // e.g. 15*time.Minute
	ThresholdPct float64       // alert when current drawdown magnitude exceeds this, e.g. 10
	RearmPct     float64       // re-arm once magnitude shrinks below Threshold-Rearm, e.g. 2
	Accounts     []string
	DayStartHour int
	TZOffset     int
}

// Monitor periodically recomputes the merged current drawdown over the
// month to date and alerts once per breach. After alerting it stays
// silent until the drawdown shrinks back through the re-arm band, which
// keeps a curve oscillating around the threshold from spamming the sink.
type Monitor struct {
	src  MetricsSource
	sink AlertSink
	cfg  MonitorConfig
	log  *zap.SugaredLogger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	armed   bool
}

func NewMonitor(src MetricsSource, sink AlertSink, cfg MonitorConfig, log *zap.SugaredLogger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.ThresholdPct <= 0 {
		cfg.ThresholdPct = 10
	}
	if cfg.RearmPct <= 0 {
		cfg.RearmPct = 2
	}
	return &Monitor{
		src:   src,
		sink:  sink,
		cfg:   cfg,
		log:   log,
		armed: true,
	}
}

func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		fmt.Println("[MONITOR] Already running")
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	// Initial check on startup (fire-and-forget)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := m.CheckNow(ctx); err != nil {
			m.log.Warnw("initial drawdown check failed", "error", err)
		}
	}()

	// Recurring ticker
	go func() {
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
				if err := m.CheckNow(ctx); err != nil {
					m.log.Warnw("drawdown check failed", "error", err)
				}
				cancel()
			}
		}
	}()

	fmt.Printf("[MONITOR] Started (every %s, threshold -%.1f%%, re-arm band %.1f%%)\n",
		m.cfg.Interval, m.cfg.ThresholdPct, m.cfg.RearmPct)
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	close(m.stopCh)
	m.running = false
	fmt.Println("[MONITOR] Stopped")
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// CheckNow runs one drawdown evaluation outside the normal schedule.
func (m *Monitor) CheckNow(ctx context.Context) error {
	res, err := m.src.Performance(ctx, service.Request{
		Accounts:      m.cfg.Accounts,
		MTD:           true,
		DayStartHour:  m.cfg.DayStartHour,
		TZOffsetHours: m.cfg.TZOffset,
		IncludeLive:   true,
	})
	if err != nil {
		return fmt.Errorf("compute merged drawdown: %w", err)
	}

	// CurrentDrawdownPct is a fraction <= 0; thresholds are magnitudes
	// in percent.
	currentPct := res.Merged.Drawdown.CurrentDrawdownPct * 100
	magnitude := -currentPct

	m.mu.Lock()
	armed := m.armed
	m.mu.Unlock()

	switch {
	case armed && magnitude >= m.cfg.ThresholdPct:
		m.sink.SendDrawdownAlert(m.cfg.Accounts, currentPct, m.cfg.ThresholdPct, res.Merged.WindowStart)
		m.setArmed(false)
	case !armed && magnitude <= m.cfg.ThresholdPct-m.cfg.RearmPct:
		m.sink.SendDrawdownRecovered(m.cfg.Accounts, currentPct)
		m.setArmed(true)
	default:
		m.log.Debugw("drawdown within bounds",
			"current_pct", currentPct, "armed", armed)
	}
	return nil
}

func (m *Monitor) setArmed(v bool) {
	m.mu.Lock()
	m.armed = v
	m.mu.Unlock()
}
