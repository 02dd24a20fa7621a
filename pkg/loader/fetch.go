package loader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vanderheijden86/familytree/pkg/metrics"
	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/version"
)

// DefaultFetchTimeout bounds a remote fetch when the client has no timeout.
const DefaultFetchTimeout = 15 * time.Second

// Fetch loads a family document from a remote endpoint with a GET request.
// Any non-2xx status is an error.
func Fetch(ctx context.Context, client *http.Client, url string, opts Options) (model.FamilyData, error) {
	defer metrics.Timer(metrics.DataLoad)()

	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Empty(), fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return model.Empty(), fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Empty(), fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	data, err := Parse(resp.Body, opts)
	if err != nil {
		return model.Empty(), fmt.Errorf("fetching %s: %w", url, err)
	}
	return data, nil
}
