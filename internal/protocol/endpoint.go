package protocol

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint derives the websocket endpoint for a page URL.
// The scheme is upgraded to wss when the page is served over https, and
// "/ws" is appended to the page path. args is the page query string with
// its leading "?", or "" when the page has no query; it is sent as the init
// Arguments.
func Endpoint(page *url.URL) (ws *url.URL, args string, err error) {
	if page == nil || page.Host == "" {
		return nil, "", fmt.Errorf("page url must be absolute")
	}

	ws = &url.URL{
		Scheme: "ws",
		Host:   page.Host,
		Path:   strings.TrimSuffix(page.Path, "/") + "/ws",
	}
	switch strings.ToLower(page.Scheme) {
	case "https", "wss":
		ws.Scheme = "wss"
	}

	if page.RawQuery != "" {
		args = "?" + page.RawQuery
	}

	return ws, args, nil
}
