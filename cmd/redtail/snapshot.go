package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modoterra/redtail/pkg/providers/logs/filetail"
)

// maxSnapshotLines bounds how much of a snapshot response is kept.
const maxSnapshotLines = 10000

// fetchSnapshot reads a plain-text snapshot, one entry per line.
func fetchSnapshot(ctx context.Context, client *http.Client, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch snapshot: unexpected status %s", resp.Status)
	}
	return filetail.LastLines(resp.Body, maxSnapshotLines)
}
