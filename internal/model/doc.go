// Package model defines the core data structures used throughout znacky.
//
// This package contains the following main types:
//   - ImageEntry: One extracted (caption, image URL) pair for a traffic sign
//   - CrawlResult: The ordered, append-only collection built during a crawl
//   - Session: One run of the crawl/download pipeline and its outcome
//   - DownloadSummary: What the downloader saved and what it skipped
//
// Models live in their own package so that crawler, download, database and
// report can share them without import cycles. All exported types are
// serializable to JSON for report output and database storage.
package model
