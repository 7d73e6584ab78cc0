package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"syscall"
	"time"

	"github.com/MrWong99/hesitate/internal/recorder"
)

// errAbortedBeforeCapture is returned when the user interrupts during the
// preparation countdown.
var errAbortedBeforeCapture = errors.New("aborted before recording started")

// watchSignals turns the process signal stream into the two run controls.
// The first SIGINT closes the returned interrupt channel, which ends capture
// normally and lets transcription proceed. A second SIGINT, or any SIGTERM,
// cancels the returned context and aborts the run.
func watchSignals(parent context.Context, sigs <-chan os.Signal, out io.Writer) (<-chan struct{}, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	interrupt := make(chan struct{})

	go func() {
		interrupted := false
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				if sig == syscall.SIGTERM || interrupted {
					slog.Warn("aborting run", "signal", sig.String())
					cancel()
					return
				}
				interrupted = true
				close(interrupt)
				fmt.Fprintln(out, "\nStopping... press Ctrl+C again to abort.")
			}
		}
	}()
	return interrupt, ctx, cancel
}

// countdown prints the preparation countdown, one line update per second.
// It returns early with errAbortedBeforeCapture when interrupt fires and with
// the context error when ctx is cancelled.
func countdown(ctx context.Context, out io.Writer, seconds int, interrupt <-chan struct{}, tick time.Duration) error {
	fmt.Fprintln(out, "Prepare to speak...")
	if seconds <= 0 {
		return nil
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for i := seconds; i > 0; i-- {
		fmt.Fprintf(out, "\rRecording will start in %d seconds.", i)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		case <-interrupt:
			fmt.Fprintln(out)
			return errAbortedBeforeCapture
		case <-t.C:
		}
	}
	fmt.Fprintln(out, "\nRecording started!")
	return nil
}

// progressPrinter renders capture progress on a single terminal line.
type progressPrinter struct {
	out       io.Writer
	lastShown int
	printed   bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, lastShown: -1}
}

// update is a [recorder.ProgressFunc]. Bounded captures show whole seconds
// remaining; unbounded ones show elapsed time.
func (p *progressPrinter) update(pr recorder.Progress) {
	var shown int
	var line string
	if pr.ChunksTotal > 0 {
		shown = int(math.Ceil(pr.Remaining.Seconds()))
		line = fmt.Sprintf("\rRecording... %d seconds remaining ", shown)
	} else {
		shown = int(pr.Elapsed.Seconds())
		line = fmt.Sprintf("\rRecording... %d seconds elapsed ", shown)
	}
	if shown == p.lastShown {
		return
	}
	p.lastShown = shown
	p.printed = true
	fmt.Fprint(p.out, line)
}

// finish terminates the progress line, if one was written.
func (p *progressPrinter) finish() {
	if p.printed {
		fmt.Fprintln(p.out)
		p.printed = false
	}
}

// consoleRecorder closes the progress line once capture returns so later
// output starts on a fresh line.
type consoleRecorder struct {
	*recorder.Recorder
	progress *progressPrinter
}

func (c consoleRecorder) Record(ctx context.Context, req recorder.Request) (*recorder.Artifact, error) {
	defer c.progress.finish()
	return c.Recorder.Record(ctx, req)
}
