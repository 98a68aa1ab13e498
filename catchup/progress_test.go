package catchup

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// lastBarLine returns the most recent rendering of the bar: everything after
// the final carriage return.
func lastBarLine(buf *bytes.Buffer) string {
	s := buf.String()
	if i := strings.LastIndexByte(s, '\r'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func TestBarReporterOverwritesInPlace(t *testing.T) {
	var buf bytes.Buffer
	r := NewBarReporter(&buf)

	r.Render("processing accounts", 120, 500)
	r.Render("processing accounts", 250, 500)

	// each tick rewrites the same line instead of appending a new one.
	require.NotContains(t, buf.String(), "\n")
	require.Contains(t, lastBarLine(&buf), "50%")
}

func TestBarReporterRenderIsIdempotent(t *testing.T) {
	var once, twice bytes.Buffer

	r1 := NewBarReporter(&once)
	r1.Render("downloading blocks", 5, 10)

	r2 := NewBarReporter(&twice)
	r2.Render("downloading blocks", 5, 10)
	r2.Render("downloading blocks", 5, 10)

	require.Equal(t, lastBarLine(&once), lastBarLine(&twice))
}

func TestBarReporterZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	r := NewBarReporter(&buf)

	// must not divide by zero; nothing to draw is acceptable.
	require.NotPanics(t, func() {
		r.Render("processing accounts", 0, 0)
	})
	require.Empty(t, buf.String())
}

func TestBarReporterCompleteStartsFreshLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewBarReporter(&buf)

	r.Render("processing accounts", 500, 500)
	r.Complete("Account processing complete.")

	out := buf.String()
	require.True(t, strings.HasSuffix(out, "\n"))

	// the completion message replaces the bar line rather than following
	// it: the last overwrite leaves only the message on the line.
	require.Equal(t, "Account processing complete.\n", lastBarLine(&buf))
}

func TestBarReporterTotalGrowsMidPhase(t *testing.T) {
	var buf bytes.Buffer
	r := NewBarReporter(&buf)

	r.Render("downloading blocks", 0, 10)
	r.Render("downloading blocks", 20, 40)

	require.Contains(t, lastBarLine(&buf), "50%")
}
