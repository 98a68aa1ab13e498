package catchup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedNode serves a fixed sequence of status snapshots. The last
// snapshot repeats once the script is exhausted.
type scriptedNode struct {
	snapshots   []string
	statusCalls int

	startErr    error
	startCalls  int
	startedWith string
}

func (n *scriptedNode) StartCatchup(_ context.Context, label string) error {
	n.startCalls++
	n.startedWith = label
	return n.startErr
}

func (n *scriptedNode) Status(context.Context) (string, error) {
	i := n.statusCalls
	n.statusCalls++
	if i >= len(n.snapshots) {
		i = len(n.snapshots) - 1
	}
	return n.snapshots[i], nil
}

// recordingReporter captures render and completion calls.
type recordingReporter struct {
	renders   []string
	completes []string
}

func (r *recordingReporter) Render(label string, processed, total uint64) {
	r.renders = append(r.renders, fmt.Sprintf("%s %d/%d", label, processed, total))
}

func (r *recordingReporter) Complete(message string) {
	r.completes = append(r.completes, message)
}

func testConfig() Config {
	return Config{
		Interval:      time.Millisecond,
		FetchAttempts: 1,
	}
}

func accountsSnapshot(total, processed uint64) string {
	return fmt.Sprintf("Catchpoint: 100#X\nCatchpoint total accounts: %d\nCatchpoint accounts processed: %d\n", total, processed)
}

func blocksSnapshot(total, downloaded uint64) string {
	return fmt.Sprintf("Catchpoint total blocks: %d\nCatchpoint downloaded blocks: %d\n", total, downloaded)
}

const idleSnapshot = "Last committed block: 1000\nSync Time: 0.0s\n"

func TestMonitorRunBothPhases(t *testing.T) {
	node := &scriptedNode{
		snapshots: []string{
			idleSnapshot,
			accountsSnapshot(10, 0),
			accountsSnapshot(10, 4),
			accountsSnapshot(10, 10),
			blocksSnapshot(20, 5),
			blocksSnapshot(20, 20),
		},
	}
	reporter := &recordingReporter{}
	m := NewMonitor(node, reporter, zaptest.NewLogger(t), testConfig())

	require.NoError(t, m.Run(context.Background(), "100#X"))
	require.Equal(t, 1, node.startCalls)
	require.Equal(t, "100#X", node.startedWith)
	require.Equal(t, []string{"Account processing complete.", "Blocks downloaded."}, reporter.completes)

	// the idle tick renders the placeholder pending state.
	require.Equal(t, "processing accounts 0/1000", reporter.renders[0])
}

func TestMonitorPhaseCompletesInThreeTicks(t *testing.T) {
	node := &scriptedNode{
		snapshots: []string{
			idleSnapshot,
			accountsSnapshot(10, 0),
			accountsSnapshot(10, 10),
		},
	}
	reporter := &recordingReporter{}
	m := NewMonitor(node, reporter, zaptest.NewLogger(t), testConfig())

	require.NoError(t, m.runPhase(context.Background(), PhaseAccounts))
	require.Equal(t, 3, node.statusCalls)
	require.Equal(t, []string{
		"processing accounts 0/1000",
		"processing accounts 0/10",
	}, reporter.renders)
	require.Equal(t, []string{"Account processing complete."}, reporter.completes)
}

func TestMonitorMarkerDisappearanceMeansComplete(t *testing.T) {
	node := &scriptedNode{
		snapshots: []string{
			accountsSnapshot(500, 120),
			idleSnapshot,
		},
	}
	reporter := &recordingReporter{}
	m := NewMonitor(node, reporter, zaptest.NewLogger(t), testConfig())

	require.NoError(t, m.runPhase(context.Background(), PhaseAccounts))

	// processed is forced to the last known total on disappearance.
	require.Equal(t, []string{"processing accounts 120/500"}, reporter.renders)
	require.Equal(t, []string{"Account processing complete."}, reporter.completes)
}

func TestMonitorAbsentPollsThreshold(t *testing.T) {
	node := &scriptedNode{
		snapshots: []string{
			accountsSnapshot(500, 120),
			idleSnapshot, // first absence: not yet complete
			idleSnapshot, // second absence: complete
		},
	}
	reporter := &recordingReporter{}
	cfg := testConfig()
	cfg.AbsentPolls = 2
	m := NewMonitor(node, reporter, zaptest.NewLogger(t), cfg)

	require.NoError(t, m.runPhase(context.Background(), PhaseAccounts))
	require.Equal(t, 3, node.statusCalls)
	require.Equal(t, []string{
		"processing accounts 120/500",
		"processing accounts 120/500",
	}, reporter.renders)
}

func TestMonitorStartFailureIsFatal(t *testing.T) {
	node := &scriptedNode{
		startErr:  errors.New("node not running"),
		snapshots: []string{idleSnapshot},
	}
	reporter := &recordingReporter{}
	m := NewMonitor(node, reporter, zaptest.NewLogger(t), testConfig())

	err := m.Run(context.Background(), "100#X")
	require.ErrorIs(t, err, ErrCatchupStart)
	require.Zero(t, node.statusCalls)
	require.Empty(t, reporter.renders)
}

func TestMonitorContextCancellation(t *testing.T) {
	node := &scriptedNode{snapshots: []string{idleSnapshot}}
	reporter := &recordingReporter{}
	m := NewMonitor(node, reporter, zaptest.NewLogger(t), testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.runPhase(ctx, PhaseAccounts)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMonitorUnparsableCountsCoerceToZero(t *testing.T) {
	node := &scriptedNode{
		snapshots: []string{
			"Catchpoint total accounts: pending\nCatchpoint accounts processed: pending\n",
		},
	}
	reporter := &recordingReporter{}
	m := NewMonitor(node, reporter, zaptest.NewLogger(t), testConfig())

	// both counts parse to 0, 0 == 0, so the phase completes at once.
	require.NoError(t, m.runPhase(context.Background(), PhaseAccounts))
	require.Empty(t, reporter.renders)
	require.Equal(t, []string{"Account processing complete."}, reporter.completes)
}

type failingNode struct {
	scriptedNode
	failures int
}

func (n *failingNode) Status(ctx context.Context) (string, error) {
	if n.failures > 0 {
		n.failures--
		return "", errors.New("connection refused")
	}
	return n.scriptedNode.Status(ctx)
}

func TestMonitorRetriesTransientFetchFailures(t *testing.T) {
	node := &failingNode{
		scriptedNode: scriptedNode{
			snapshots: []string{accountsSnapshot(5, 5)},
		},
		failures: 2,
	}
	reporter := &recordingReporter{}
	cfg := testConfig()
	cfg.FetchAttempts = 3
	cfg.FetchDelay = time.Millisecond
	m := NewMonitor(node, reporter, zaptest.NewLogger(t), cfg)

	require.NoError(t, m.runPhase(context.Background(), PhaseAccounts))
	require.Equal(t, []string{"Account processing complete."}, reporter.completes)
}
