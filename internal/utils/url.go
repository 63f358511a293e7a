package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var linkPattern = regexp.MustCompile(`(?i)(https?://|discord\.gg/|discord\.com/invite/)[\w\-._~:/?#\[\]@!$&'()*+,;=%]+`)

// FindLink returns the first link-looking token in content, or "".
func FindLink(content string) string {
	return linkPattern.FindString(content)
}

// LinkHost extracts a lowercased ASCII host from a matched link, for
// log and alert output. Best effort: on parse failure the raw match
// is returned unchanged.
func LinkHost(raw string) string {
	withScheme := raw
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		withScheme = "https://" + raw
	}

	parsed, err := url.Parse(withScheme)
	if err != nil || parsed.Hostname() == "" {
		return raw
	}

	host := strings.ToLower(parsed.Hostname())
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	return host
}
