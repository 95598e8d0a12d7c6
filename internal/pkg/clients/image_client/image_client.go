// Package image_client retrieves remote images over HTTP and decodes them
// into pixel buffers.
package image_client

import (
	"fmt"
	"net/http"
	"time"

	"face-swap/internal/pkg/imaging"
)

const fetchTimeout = 30 * time.Second

// FetchError reports a failure to download or decode a single image. It is
// a per-item error: callers skip the item or reply 400, never crash.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch image %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client downloads images by URL.
type Client struct {
	httpClient *http.Client
}

// New creates an image client with the service fetch timeout.
func New() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch performs an HTTP GET on the URL and decodes the body as a color
// raster image. Network failures, non-2xx statuses and undecodable bodies
// all surface as *FetchError.
func (c *Client) Fetch(url string) (*imaging.ImageBuffer, error) {
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("server returned status: %s", resp.Status)}
	}

	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	return img, nil
}
