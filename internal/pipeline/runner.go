package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/znacky/internal/crawler"
	"github.com/nao1215/znacky/internal/model"
)

// ErrRunnerUsed is returned when Run is called a second time on a Runner.
var ErrRunnerUsed = errors.New("runner already used")

// EventKind identifies a Runner event.
type EventKind int

const (
	// EventProgress is posted after every appended entry.
	EventProgress EventKind = iota
	// EventCompleted is posted once when the pipeline finished without error.
	EventCompleted
	// EventFailed is posted once when the pipeline returned an error.
	EventFailed
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a notification from the pipeline goroutine.
type Event struct {
	Kind EventKind

	// Count is the number of entries in the result when the event was posted.
	Count int

	// Err is the pipeline error for EventFailed.
	Err error
}

// Runner executes one pipeline on a background goroutine and delivers its
// events to a handler running on the caller's goroutine.
// A Runner is single use.
type Runner struct {
	events chan Event
	used   atomic.Bool
	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets a custom logger for the runner.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		events: make(chan Event),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ProgressSink returns a sink that posts an EventProgress carrying the
// current length of result. It must only be invoked from the pipeline that
// is passed to Run, since posting blocks until the handler receives it.
func (r *Runner) ProgressSink(result *model.CrawlResult) crawler.ProgressFunc {
	return func() {
		r.events <- Event{Kind: EventProgress, Count: result.Len()}
	}
}

// Run executes p against session on a background goroutine and calls handle
// for every event, in order, on the calling goroutine. It returns after the
// final EventCompleted or EventFailed was handled, with the pipeline error.
// session is finished before the final event is posted.
func (r *Runner) Run(ctx context.Context, p *Pipeline, session *model.Session, handle func(Event)) error {
	if !r.used.CompareAndSwap(false, true) {
		return ErrRunnerUsed
	}

	var g errgroup.Group
	g.Go(func() error {
		defer close(r.events)

		err := p.Execute(ctx, session)
		session.Finish(err)

		final := Event{Kind: EventCompleted, Count: session.Result.Len()}
		if err != nil {
			final = Event{Kind: EventFailed, Count: session.Result.Len(), Err: err}
		}
		r.logger.Debug("pipeline finished", "event", final.Kind.String(), "entries", final.Count)
		r.events <- final
		return err
	})

	for ev := range r.events {
		if handle != nil {
			handle(ev)
		}
	}

	return g.Wait()
}
