package crawler

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/znacky/internal/model"
)

// DefaultBaseURL is prepended to next-page hrefs, which the catalogue
// serves as document-relative paths.
const DefaultBaseURL = "http://www.celysvet.cz/"

// Literals the catalogue markup is matched against.
const (
	// altPrefix is removed from every alt text.
	altPrefix = "Dopravní značka:"

	// nextLinkText marks the anchor that points at the following page.
	nextLinkText = "další :"

	// lowResMarker is replaced with hiResMarker in every image src.
	lowResMarker = "low"
	hiResMarker  = "hi"

	// relativeDotPrefix is stripped from the start of next-page hrefs.
	relativeDotPrefix = "././"
)

// EntryFunc receives each entry as soon as it is extracted.
type EntryFunc func(model.ImageEntry)

// Extractor turns one catalogue page into image entries and the URL of the
// next page.
type Extractor struct {
	// baseURL is prepended to the next-page href.
	baseURL string

	logger *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(baseURL string) ExtractorOption {
	return func(e *Extractor) {
		e.baseURL = baseURL
	}
}

// WithExtractorLogger sets the logger.
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		baseURL: DefaultBaseURL,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Extract parses html and returns its entries in document order together with
// the next-page URL. An empty next-page URL means the page has no next link.
//
// If an alt text cannot be formatted, the entries before it are returned
// along with the *FormatError.
func (e *Extractor) Extract(html string) ([]model.ImageEntry, string, error) {
	entries := make([]model.ImageEntry, 0)
	next, err := e.ExtractEach(html, func(entry model.ImageEntry) {
		entries = append(entries, entry)
	})
	return entries, next, err
}

// ExtractEach is like Extract but hands every entry to emit as soon as it is
// built instead of collecting them. The crawler uses it to append to the
// shared result and report progress entry by entry.
func (e *Extractor) ExtractEach(html string, emit EntryFunc) (string, error) {
	// The parser recovers from malformed markup; an error here can only
	// come from the reader, and a strings.Reader never fails.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var formatErr error
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		entry, err := newEntry(img.AttrOr("alt", ""), img.AttrOr("src", ""))
		if err != nil {
			formatErr = err
			return false
		}
		emit(entry)
		return true
	})
	if formatErr != nil {
		return "", formatErr
	}

	return e.nextPageURL(doc), nil
}

// nextPageURL returns the absolute URL of the first anchor whose text
// contains "další :" in any letter case, or "" when there is none.
func (e *Extractor) nextPageURL(doc *goquery.Document) string {
	link := doc.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(normalizeSpace(a.Text())), nextLinkText)
	}).First()
	if link.Length() == 0 {
		return ""
	}

	href := strings.ReplaceAll(link.AttrOr("href", ""), "&amp;", "&")
	href = strings.TrimPrefix(href, relativeDotPrefix)
	e.logger.Debug("next page link found", "href", href)

	return e.baseURL + href
}

// newEntry builds an entry from the raw alt and src attribute values.
func newEntry(alt, src string) (model.ImageEntry, error) {
	description := strings.TrimSpace(strings.ReplaceAll(alt, altPrefix, ""))
	caption, err := FormatCaption(description)
	if err != nil {
		return model.ImageEntry{}, err
	}
	return model.ImageEntry{
		Caption:  caption,
		ImageURL: HighResolutionURL(src),
	}, nil
}

// HighResolutionURL replaces every "low" in src with "hi". The replacement is
// a plain substring replace, so "/low/b1low.gif" becomes "/hi/b1hi.gif".
func HighResolutionURL(src string) string {
	return strings.ReplaceAll(src, lowResMarker, hiResMarker)
}

// FormatCaption joins the sign code and the description of a trimmed alt
// text without a separator.
//
// The text is split at its first space. The part before it starts the code;
// following words that begin with a digit belong to the code as well, since
// the catalogue writes codes as "B 1" or "IP 4b". Spaces inside the code are
// removed. "B 1 Zákaz vjezdu všech vozidel" becomes "B1Zákaz vjezdu všech vozidel".
//
// Text without any space returns *FormatError.
func FormatCaption(description string) (string, error) {
	code, rest, found := strings.Cut(description, " ")
	if !found {
		return "", &FormatError{Input: description}
	}

	for {
		word, tail, more := strings.Cut(rest, " ")
		if !startsWithDigit(word) {
			break
		}
		code += " " + word
		rest = tail
		if !more {
			rest = ""
			break
		}
	}

	return strings.ReplaceAll(code, " ", "") + rest, nil
}

// startsWithDigit reports whether s begins with a decimal digit.
func startsWithDigit(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && unicode.IsDigit(r)
}

// normalizeSpace collapses whitespace runs, including no-break spaces, into
// single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
