package crawler

// ProgressSink is notified once after every entry the extractor appends.
// It takes no arguments; implementations read the current count from the
// CrawlResult they observe. UpdateProgress is called on the crawl goroutine,
// so implementations that drive a UI must hand the call off themselves.
type ProgressSink interface {
	UpdateProgress()
}

// ProgressFunc adapts a plain function to ProgressSink.
type ProgressFunc func()

// UpdateProgress calls f.
func (f ProgressFunc) UpdateProgress() {
	f()
}

// noopSink is used when the caller passes a nil sink.
type noopSink struct{}

func (noopSink) UpdateProgress() {}
