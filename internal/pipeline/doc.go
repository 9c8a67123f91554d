// Package pipeline runs a crawl session through a sequence of steps.
//
// A Pipeline executes Steps in order against one model.Session: CrawlStep
// fills the session's result by following next-page links, and DownloadStep
// saves the images. A Runner executes the pipeline on a background goroutine
// and posts progress, completed and failed events onto a channel that the
// caller drains on its own goroutine, so presentation code never runs on the
// crawl goroutine.
package pipeline
