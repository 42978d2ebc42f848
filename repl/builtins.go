package repl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.starlark.net/starlark"
	"golang.org/x/net/html"
)

const (
	fetchTimeout  = 30 * time.Second
	fetchMaxBytes = 512 * 1024
	fetchAgent    = "jishaku/1.0 (+https://github.com/dolfies/jishaku)"
)

// FetchResult is what the fetch builtin hands back to interpreted code.
type FetchResult struct {
	Status int
	Body   string
	JSON   any
	Title  string
}

// Fetch performs a bounded GET against an http(s) URL. JSON responses are
// decoded; HTML responses get their <title> extracted.
func Fetch(rawURL string) (*FetchResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fetchAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes))
	if err != nil {
		return nil, err
	}

	out := &FetchResult{Status: resp.StatusCode, Body: string(raw)}
	ct := resp.Header.Get("Content-Type")
	switch {
	case strings.Contains(ct, "application/json"):
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			out.JSON = decoded
		}
	case strings.Contains(ct, "text/html"):
		out.Title = htmlTitle(raw)
	}
	return out, nil
}

// htmlTitle walks an HTML document for its <title> text.
func htmlTitle(raw []byte) string {
	doc, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			title = strings.TrimSpace(b.String())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// starlarkFetch adapts Fetch for Starlark: fetch(url) -> dict.
func starlarkFetch(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var rawURL string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &rawURL); err != nil {
		return nil, err
	}
	res, err := Fetch(rawURL)
	if err != nil {
		return nil, err
	}
	d := starlark.NewDict(4)
	_ = d.SetKey(starlark.String("status"), starlark.MakeInt(res.Status))
	_ = d.SetKey(starlark.String("body"), starlark.String(res.Body))
	if res.JSON != nil {
		_ = d.SetKey(starlark.String("json"), ToStarlark(res.JSON))
	}
	if res.Title != "" {
		_ = d.SetKey(starlark.String("title"), starlark.String(res.Title))
	}
	return d, nil
}
