// Package crawler fetches the traffic-sign catalogue pages and extracts
// image entries from them.
//
// # Components
//
//   - Fetcher: HTTP GET of one page, decoded to UTF-8 text
//   - Extractor: DOM selection of <img> entries and the "další :" next link
//   - Crawler: the page-following loop that ties the two together
//
// # Flow
//
// The crawler fetches the seed page, hands the HTML to the extractor, appends
// every entry to the session's CrawlResult, notifies the ProgressSink after
// each entry and then follows the next-page link. A page without such a link
// ends the crawl. The loop is iterative, so the number of pages does not
// grow the call stack.
//
// # Errors
//
// A failed page fetch returns a *NetworkError and aborts the remainder of the
// crawl; there is no retry. An alt text that cannot be split into a sign
// code and a description returns a *FormatError, which also aborts the crawl.
//
// # Usage
//
//	fetcher := crawler.NewFetcher(http.DefaultClient)
//	c := crawler.New(fetcher, crawler.NewExtractor())
//	result := model.NewCrawlResult()
//	stats, err := c.Crawl(ctx, config.DefaultSeedURL, result, sink)
package crawler
