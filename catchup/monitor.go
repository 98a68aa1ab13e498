package catchup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// ErrCatchupStart indicates the node rejected the catchup request itself.
// This is fatal: the monitor aborts before any polling begins.
var ErrCatchupStart = errors.New("catchup start failed")

const (
	defaultInterval      = 100 * time.Millisecond
	defaultPendingTotal  = 1000
	defaultFetchAttempts = 3
	defaultFetchDelay    = 250 * time.Millisecond
)

// Config controls the polling behavior of a Monitor. The zero value is
// usable; unset fields fall back to defaults.
type Config struct {
	// Interval is the fixed delay between poll ticks.
	Interval time.Duration

	// PendingTotal is the placeholder total used before a phase's marker
	// first appears, so the bar renders a plausible pending state.
	PendingTotal uint64

	// AbsentPolls is the number of consecutive marker-absent polls, after
	// the marker has been seen, required to declare the phase complete.
	// The default of 1 mirrors the node's own tooling: completion is
	// inferred from a single disappearance, which is inherently racy.
	AbsentPolls int

	// FetchAttempts bounds retries of a single status fetch before the
	// failure is treated as fatal. FetchDelay seeds the backoff.
	FetchAttempts uint
	FetchDelay    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.PendingTotal == 0 {
		c.PendingTotal = defaultPendingTotal
	}
	if c.AbsentPolls <= 0 {
		c.AbsentPolls = 1
	}
	if c.FetchAttempts == 0 {
		c.FetchAttempts = defaultFetchAttempts
	}
	if c.FetchDelay <= 0 {
		c.FetchDelay = defaultFetchDelay
	}
	return c
}

// phaseText holds the status labels and user-facing strings for one phase.
type phaseText struct {
	marker         string
	totalLabel     string
	processedLabel string
	barLabel       string
	doneMessage    string
}

var phaseTexts = map[Phase]phaseText{
	PhaseAccounts: {
		marker:         labelTotalAccounts,
		totalLabel:     labelTotalAccounts,
		processedLabel: labelAccountsProcessed,
		barLabel:       "processing accounts",
		doneMessage:    "Account processing complete.",
	},
	PhaseBlocks: {
		marker:         labelDownloadedBlocks,
		totalLabel:     labelTotalBlocks,
		processedLabel: labelDownloadedBlocks,
		barLabel:       "downloading blocks",
		doneMessage:    "Blocks downloaded.",
	},
}

// Monitor polls a node's status during fast catchup and renders progress
// until both phases complete. It owns no shared state; one monitor drives one
// catchup on a single goroutine.
type Monitor struct {
	node     Node
	reporter Reporter
	logger   *zap.Logger
	cfg      Config
}

// NewMonitor creates a Monitor over the given node and reporter.
func NewMonitor(node Node, reporter Reporter, logger *zap.Logger, cfg Config) *Monitor {
	return &Monitor{
		node:     node,
		reporter: reporter,
		logger:   logger,
		cfg:      cfg.withDefaults(),
	}
}

// Run starts a fast catchup towards label and blocks until both phases
// complete, the context is canceled, or a fatal error occurs. A failed
// catchup-start request aborts immediately with ErrCatchupStart; no polls are
// issued in that case.
func (m *Monitor) Run(ctx context.Context, label string) error {
	if err := m.node.StartCatchup(ctx, label); err != nil {
		return fmt.Errorf("%w: %v", ErrCatchupStart, err)
	}
	m.logger.Info("catchup started", zap.String("catchpoint", label))

	for _, phase := range []Phase{PhaseAccounts, PhaseBlocks} {
		if err := m.runPhase(ctx, phase); err != nil {
			return fmt.Errorf("monitoring %s phase: %w", phase, err)
		}
	}
	return nil
}

// phaseState is the per-phase progress sample, recreated at every phase
// entry and mutated on each tick.
type phaseState struct {
	started     bool
	total       uint64
	processed   uint64
	absentPolls int
}

func (m *Monitor) runPhase(ctx context.Context, phase Phase) error {
	text := phaseTexts[phase]
	var st phaseState

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		snapshot, err := m.fetchStatus(ctx)
		if err != nil {
			return fmt.Errorf("fetching node status: %w", err)
		}

		switch {
		case hasMarker(snapshot, text.marker):
			st.started = true
			st.absentPolls = 0
			st.total = extractCount(snapshot, text.totalLabel)
			st.processed = extractCount(snapshot, text.processedLabel)
		case st.started:
			// The marker vanished after having been seen. The node offers
			// no explicit completion signal, so disappearance is the
			// completion signal once it persists for enough polls.
			st.absentPolls++
			if st.absentPolls >= m.cfg.AbsentPolls {
				st.processed = st.total
			}
		default:
			// Phase has not begun reporting yet; render a pending state.
			st.total = m.cfg.PendingTotal
			st.processed = 0
		}

		if st.processed == st.total {
			m.reporter.Complete(text.doneMessage)
			m.logger.Debug("phase complete",
				zap.Stringer("phase", phase),
				zap.Uint64("total", st.total),
			)
			return nil
		}
		m.reporter.Render(text.barLabel, st.processed, st.total)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// fetchStatus wraps a single status query with bounded backoff so a
// transient fetch glitch does not kill the loop or masquerade as phase
// completion.
func (m *Monitor) fetchStatus(ctx context.Context) (string, error) {
	return retry.DoWithData(
		func() (string, error) {
			return m.node.Status(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(m.cfg.FetchAttempts),
		retry.Delay(m.cfg.FetchDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}
