package masks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"labelsheet/internal/services"
)

const defaultFetchTimeout = 30 * time.Second

// Downloader retrieves mask images over HTTP.
type Downloader struct {
	client *http.Client
}

// DownloaderOption customizes a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// NewDownloader builds a Downloader with a bounded request timeout.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client: &http.Client{Timeout: defaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads the image at url and returns its first channel as a
// bitmap. Network failures are transient; a non-200 response is not retried
// here but still surfaces as transient so callers can decide.
func (d *Downloader) Fetch(ctx context.Context, url string) (Bitmap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "masks", "fetch", fmt.Sprintf("build request for %s", url), err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "masks", "fetch", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "masks", "fetch",
			fmt.Sprintf("%s returned status %d", url, resp.StatusCode), nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "masks", "fetch", fmt.Sprintf("read body from %s", url), err)
	}
	return DecodeImage(data)
}
