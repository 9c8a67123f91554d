// Package main provides the entry point for the znacky CLI.
//
// znacky walks the celysvet.cz traffic-sign catalogue page by page,
// lists every sign with its caption and full-size image URL, and can
// download the images into a directory.
//
// Usage:
//
//	znacky load
//	znacky load --download --dir ./signs
//	znacky folder ~/Pictures/signs
//
// See --help for all available options.
package main

func main() {
	Execute()
}
