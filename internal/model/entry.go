package model

// ImageEntry is a single traffic-sign image discovered by the extractor.
// Entries are immutable once created; copy them by value.
type ImageEntry struct {
	// Caption is the sign code followed directly by its description,
	// for example "B1Zákaz vjezdu všech vozidel".
	Caption string `json:"caption"`

	// ImageURL is the high-resolution image address taken from the <img> src.
	ImageURL string `json:"image_url"`
}

// DisplayRow formats an entry as the two strings shown for one list row:
// the caption on the first line and the image URL on the second.
func DisplayRow(e ImageEntry) (string, string) {
	return e.Caption, e.ImageURL
}
