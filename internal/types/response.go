package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response represents a fetched page.
type Response struct {
	// URL is the URL that was requested.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the raw (decompressed) response body.
	Body []byte

	// ContentType is the MIME type of the response.
	ContentType string

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	doc *goquery.Document
}

// NewResponse creates a Response from an http.Response.
func NewResponse(rawURL string, httpResp *http.Response, body []byte, duration time.Duration) *Response {
	finalURL := rawURL
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}
	return &Response{
		URL:           rawURL,
		FinalURL:      finalURL,
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FetchDuration: duration,
	}
}

// Document returns a parsed goquery document, lazily initializing it.
// The returned document is shared and must be treated as read-only.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, &ParseError{URL: r.URL, Err: err}
	}
	r.doc = doc
	return doc, nil
}

// BaseURL returns the URL relative references on the page resolve against.
func (r *Response) BaseURL() string {
	if r.FinalURL != "" {
		return r.FinalURL
	}
	return r.URL
}
