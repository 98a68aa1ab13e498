package sandbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// LatestCatchpoint fetches the most recent catchpoint label for channel from
// the profile's catchpoint URL. Labels look like "23470000#ABCD...".
func LatestCatchpoint(ctx context.Context, baseURL, channel string) (string, error) {
	u := fmt.Sprintf("%s/%s/latest.catchpoint", strings.TrimSuffix(baseURL, "/"), channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching latest catchpoint: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching latest catchpoint: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("reading catchpoint response: %w", err)
	}
	label := strings.TrimSpace(string(body))
	if !strings.Contains(label, "#") {
		return "", fmt.Errorf("malformed catchpoint label %q", label)
	}
	return label, nil
}
