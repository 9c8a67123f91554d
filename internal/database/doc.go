// Package database provides SQLite-based storage for znacky.
//
// HistoryDB records every crawl session: its seed URL, timing and outcome,
// the extracted entries in crawl order, and the result of the download
// pass when one ran. The database is a single file opened through the
// CGO-free modernc.org/sqlite driver.
package database
