package types

import "github.com/PuerkitoBio/goquery"

// CatalogEntry is one product row from the source listing.
type CatalogEntry struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
	Price string `json:"price"`
	Index int    `json:"index"`
}

// MatchResult is the outcome of locating a product on a page.
// Selection is only set when Found is true; Best always holds the highest
// score observed so callers can report near misses.
type MatchResult struct {
	Selection *goquery.Selection
	Score     float64
	Best      float64
	Found     bool
}

// DownloadedImage is an image persisted in the local store.
type DownloadedImage struct {
	// LocalPath is the root-relative reference written to product records.
	LocalPath string `json:"local_path"`
	// FilePath is where the file lives on disk.
	FilePath  string `json:"file_path"`
	SourceURL string `json:"source_url"`
	Size      int64  `json:"size"`
	Cached    bool   `json:"cached"`
}

// ProductRecord is the normalized output for one processed entry.
type ProductRecord struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Series           string   `json:"series,omitempty"`
	Price            string   `json:"price"`
	Stock            int      `json:"stock"`
	Images           []string `json:"images"`
	Description      string   `json:"description"`
	MatchScore       float64  `json:"matchScore"`
	OriginalURL      string   `json:"originalUrl,omitempty"`
	ImagesFound      int      `json:"imagesFound"`
	ImagesDownloaded int      `json:"imagesDownloaded"`
	Error            string   `json:"error,omitempty"`
}

// Failed reports whether the record carries an error.
func (p *ProductRecord) Failed() bool { return p.Error != "" }

// Book is one row of the books listing.
type Book struct {
	Editorial string `json:"editorial"`
	Name      string `json:"name"`
	Author    string `json:"author"`
}
