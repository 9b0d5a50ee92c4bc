package bridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var wrapperKeyPattern = regexp.MustCompile(`wrapper_key\s*=\s*"([^"]+)"`)

// maxWrapperPage bounds how much of the wrapper page is read while looking for the key.
const maxWrapperPage = 1 << 20

// DiscoverWrapperKey loads the site's wrapper page from the ZeroNet UI server and
// extracts the wrapper_key it embeds for the page's websocket.
func DiscoverWrapperKey(ctx context.Context, client *http.Client, uiURL, site string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if site == "" {
		return "", fmt.Errorf("%s - site address is required to discover the wrapper key", wsLogPrefix)
	}

	base, err := url.Parse(uiURL)
	if err != nil {
		return "", fmt.Errorf("%s - invalid UI URL: %w", wsLogPrefix, err)
	}
	page := base.JoinPath(strings.TrimPrefix(site, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, page.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%s - failed to build wrapper request: %w", wsLogPrefix, err)
	}
	// The UI server only serves the wrapper to clients that accept HTML.
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s - failed to load wrapper page: %w", wsLogPrefix, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s - wrapper page returned HTTP %d", wsLogPrefix, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWrapperPage))
	if err != nil {
		return "", fmt.Errorf("%s - failed to read wrapper page: %w", wsLogPrefix, err)
	}

	m := wrapperKeyPattern.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("%s - wrapper_key not found on %s", wsLogPrefix, page.Path)
	}
	return string(m[1]), nil
}
