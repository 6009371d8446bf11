package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Fetch retrieves and decodes the catalog document at source, which is
// either an http(s) URL or a local file path. It makes exactly one attempt.
func Fetch(ctx context.Context, client *http.Client, source string) ([]Item, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetchURL(ctx, client, source)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open catalog source: %w", err)
	}
	defer f.Close()
	return DecodeCatalog(f)
}

func fetchURL(ctx context.Context, client *http.Client, url string) ([]Item, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode)
	}
	return DecodeCatalog(resp.Body)
}
