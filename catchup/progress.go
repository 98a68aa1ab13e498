package catchup

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

const barWidth = 40

// Reporter renders catchup progress for a single phase at a time.
type Reporter interface {
	// Render draws the progress line for the given phase label, overwriting
	// the previous line in place. It must tolerate total == 0.
	Render(label string, processed, total uint64)

	// Complete replaces the progress line with a final message and starts a
	// fresh line for whatever comes next.
	Complete(message string)
}

// barReporter renders progress with a fixed-width terminal bar. The bar line
// is rewritten in place on every call rather than accumulating output.
type barReporter struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	label string
}

// NewBarReporter returns a Reporter drawing a terminal progress bar to out.
func NewBarReporter(out io.Writer) Reporter {
	return &barReporter{out: out}
}

func (r *barReporter) Render(label string, processed, total uint64) {
	if total == 0 {
		// nothing meaningful to draw and no denominator to divide by.
		return
	}
	if r.bar == nil || r.label != label {
		r.bar = r.newBar(label, total)
		r.label = label
	}
	if uint64(r.bar.GetMax64()) != total {
		r.bar.ChangeMax64(int64(total))
	}
	_ = r.bar.Set64(int64(processed))
}

func (r *barReporter) Complete(message string) {
	if r.bar != nil {
		_ = r.bar.Finish()
		_ = r.bar.Clear()
		r.bar = nil
		r.label = ""
	}
	fmt.Fprintln(r.out, message)
}

func (r *barReporter) newBar(label string, total uint64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		int64(total),
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetWidth(barWidth),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetRenderBlankState(true),
	)
}
