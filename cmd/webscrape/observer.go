package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/nao1215/webscrape/internal/progress"
)

// observer renders the progress events of one run. Log lines are printed
// as they arrive; the file counter drives a progress bar when enabled.
type observer struct {
	out    io.Writer
	prefix string
	bar    *progressbar.ProgressBar

	// mu serializes output of concurrent runs sharing out.
	mu *sync.Mutex

	files  int
	errors []string
}

// newObserver creates an observer writing to out. prefix labels every
// line when several runs print to the same writer. showBar adds a
// spinner counting saved files.
func newObserver(out io.Writer, mu *sync.Mutex, prefix string, showBar bool) *observer {
	o := &observer{out: out, prefix: prefix, mu: mu}
	if o.mu == nil {
		o.mu = &sync.Mutex{}
	}
	if showBar {
		o.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("files saved"),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
	}
	return o
}

// consume reads events until Completed arrives or events is closed.
func (o *observer) consume(events <-chan progress.Event) {
	for ev := range events {
		if !o.handle(ev) {
			break
		}
	}
	if o.bar != nil {
		_ = o.bar.Finish()
	}
	// Drain anything a producer emitted after Completed so the channel's
	// forwarder can exit.
	for range events {
	}
}

// handle applies one event and reports whether more are expected.
func (o *observer) handle(ev progress.Event) bool {
	switch e := ev.(type) {
	case progress.LogLine:
		if e.Level == progress.LevelError {
			o.errors = append(o.errors, e.Text)
		}
		o.printf("%s%s\n", levelTag(e.Level), e.Text)
	case progress.CountIncrement:
		o.files += e.N
		if o.bar != nil {
			_ = o.bar.Add(e.N)
		}
	case progress.Completed:
		return false
	}
	return true
}

func (o *observer) printf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.bar != nil {
		_ = o.bar.Clear()
	}
	if o.prefix != "" {
		fmt.Fprintf(o.out, "[%s] ", o.prefix)
	}
	fmt.Fprintf(o.out, format, args...)
	if o.bar != nil {
		_ = o.bar.RenderBlank()
	}
}

// Errors returns the error lines seen so far, in arrival order.
func (o *observer) Errors() []string {
	return o.errors
}

// Files returns the sum of count increments.
func (o *observer) Files() int {
	return o.files
}

func levelTag(l progress.Level) string {
	switch l {
	case progress.LevelSkip:
		return "SKIP "
	case progress.LevelError:
		return "ERROR "
	default:
		return ""
	}
}
