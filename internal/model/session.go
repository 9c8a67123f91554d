package model

import "time"

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	// StatusRunning means the pipeline has not finished yet.
	StatusRunning SessionStatus = "running"

	// StatusCompleted means the crawl reached a page without a next link.
	StatusCompleted SessionStatus = "completed"

	// StatusFailed means a page fetch or caption format error aborted the crawl.
	StatusFailed SessionStatus = "failed"
)

// Session is one run of the crawl pipeline. It owns the CrawlResult it
// produces; nothing else appends to it.
type Session struct {
	// ID is the database identifier, zero until the session is saved.
	ID int64 `json:"id,omitempty"`

	// SeedURL is the first page fetched.
	SeedURL string `json:"seed_url"`

	// StartedAt is when the session was created.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the pipeline returned. Zero while running.
	FinishedAt time.Time `json:"finished_at"`

	// Status is the current lifecycle state.
	Status SessionStatus `json:"status"`

	// PagesVisited counts successfully fetched pages.
	PagesVisited int `json:"pages_visited"`

	// Truncated is true when the page limit stopped the crawl early.
	Truncated bool `json:"truncated,omitempty"`

	// Result holds the extracted entries in crawl order.
	Result *CrawlResult `json:"-"`

	// Download is the outcome of the download step, nil if it did not run.
	Download *DownloadSummary `json:"download,omitempty"`

	// PerformedSteps lists pipeline steps that finished, in order.
	PerformedSteps []string `json:"performed_steps"`

	// Error is the error that aborted the pipeline.
	Error error `json:"-"`

	// ErrorMessage is Error as a string for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewSession creates a running session for seedURL with an empty result.
func NewSession(seedURL string) *Session {
	return &Session{
		SeedURL:        seedURL,
		StartedAt:      time.Now(),
		Status:         StatusRunning,
		Result:         NewCrawlResult(),
		PerformedSteps: make([]string, 0),
	}
}

// Finish records the end of the session. A nil err marks it completed.
func (s *Session) Finish(err error) {
	s.FinishedAt = time.Now()
	if err != nil {
		s.Status = StatusFailed
		s.Error = err
		s.ErrorMessage = err.Error()
		return
	}
	s.Status = StatusCompleted
}

// Duration returns how long the session ran, or zero while it is running.
func (s *Session) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Entries is a shortcut for s.Result.Entries().
func (s *Session) Entries() []ImageEntry {
	if s.Result == nil {
		return nil
	}
	return s.Result.Entries()
}
