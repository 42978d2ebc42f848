// Package outputfmt prepares text for chat output: scrubbing error strings
// that may quote provider URLs, and splitting long text into sendable chunks.
package outputfmt

import (
	"net/url"
	"regexp"
	"strings"
)

var urlInTextRE = regexp.MustCompile(`https?://[^\s"'<>]+`)

// SanitizeErrorText strips URL hosts from arbitrary text, keeping only the
// path, query and fragment. Error strings from HTTP clients tend to quote
// full request URLs, which can carry internal hostnames or credentials.
func SanitizeErrorText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return urlInTextRE.ReplaceAllStringFunc(raw, stripURLHost)
}

func stripURLHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if q := u.Query(); len(q) > 0 {
		for k := range q {
			if sensitiveQueryKey(k) {
				q.Set(k, "[redacted]")
			}
		}
		path += "?" + q.Encode()
	}
	if frag := u.EscapedFragment(); frag != "" {
		path += "#" + frag
	}
	return path
}

func sensitiveQueryKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.ReplaceAll(strings.ReplaceAll(k, "-", ""), "_", "")
	if k == "key" {
		return true
	}
	for _, marker := range []string{"apikey", "authorization", "token", "secret", "password", "cookie"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}
