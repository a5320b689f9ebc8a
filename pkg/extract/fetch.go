// Package extract retrieves the source HTML document, locates the target
// table inside it, and converts the markup into the raw in-memory table the
// transform stage consumes.
package extract

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/quarrydata/quarry/pkg/errors"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "quarry/1.0 (+https://github.com/quarrydata/quarry)"

	// maxBodyBytes caps response bodies; table pages are a few MB at most
	maxBodyBytes = 20 << 20
)

// Fetcher performs HTTP GET requests for source documents and auxiliary
// files. One attempt per call: transient failures are fatal to the run.
type Fetcher struct {
	client  *http.Client
	maxBody int64
}

// NewFetcher creates a fetcher with the given request timeout.
// A zero timeout uses the default.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		maxBody: maxBodyBytes,
	}
}

// Document fetches url and parses the body into a goquery document,
// converting to UTF-8 based on the response content type.
func (f *Fetcher) Document(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, f.maxBody)
	reader, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "failed to decode response body").
			WithDetail("url", url)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "failed to parse HTML document").
			WithDetail("url", url)
	}
	return doc, nil
}

// Get fetches url and returns the raw body.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "failed to read response body").
			WithDetail("url", url)
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "failed to build request").
			WithDetail("url", url)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeNetwork, "failed to fetch webpage").
			WithDetail("url", url)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Newf(errors.ErrorTypeNetwork, "fetch returned status %d", resp.StatusCode).
			WithDetail("url", url).
			WithDetail("status", resp.StatusCode)
	}

	return resp, nil
}
