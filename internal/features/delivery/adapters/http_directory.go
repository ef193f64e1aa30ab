package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kmerzone/internal/core/httpclient"
	"kmerzone/internal/features/delivery/domain"
	"kmerzone/internal/features/delivery/ports"
)

// HTTPDirectory implements ports.VendorDirectory against a remote directory
// serving GET {base}/vendors/{name}. A 404 means the vendor is unknown.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDirectory creates a client for the directory at baseURL.
func NewHTTPDirectory(baseURL string, timeout time.Duration) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpclient.NewClient("vendor-directory", timeout),
	}
}

// Lookup implements ports.VendorDirectory.
func (d *HTTPDirectory) Lookup(ctx context.Context, name string) (domain.Vendor, error) {
	endpoint := d.baseURL + "/vendors/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Vendor{}, fmt.Errorf("build vendor request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return domain.Vendor{}, fmt.Errorf("vendor directory: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Vendor{}, ports.ErrVendorNotFound
	default:
		return domain.Vendor{}, fmt.Errorf("vendor directory: unexpected status %d", resp.StatusCode)
	}

	var v domain.Vendor
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return domain.Vendor{}, fmt.Errorf("decode vendor: %w", err)
	}
	if v.Name == "" {
		v.Name = name
	}
	return v, nil
}
