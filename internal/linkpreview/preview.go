// Package linkpreview fetches Open Graph metadata for a URL.
package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
	userAgent      = "community-link-preview/1.0"
)

var (
	ErrUnsupportedURL = errors.New("only absolute http and https urls are supported")
	ErrNotHTML        = errors.New("response is not an html document")
)

type Preview struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Site        string `json:"site"`
	URL         string `json:"url"`
}

type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads at most 1 MiB of the page at raw and extracts its preview.
func (f *Fetcher) Fetch(ctx context.Context, raw string) (Preview, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Preview{}, ErrUnsupportedURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Preview{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Preview{}, fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Preview{}, fmt.Errorf("fetch %s: status %d", u.Host, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || (mt != "text/html" && mt != "application/xhtml+xml") {
			return Preview{}, ErrNotHTML
		}
	}
	// redirects may have moved us
	return Parse(io.LimitReader(resp.Body, maxBodyBytes), resp.Request.URL)
}

// Parse extracts og:* tags, falling back to <title>, the description meta
// tag and the host name. Relative image and url values resolve against base.
func Parse(r io.Reader, base *url.URL) (Preview, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Preview{}, err
	}
	var (
		p        Preview
		title    string
		metaDesc string
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case atom.Meta:
				key, content := metaPair(n)
				switch key {
				case "og:title":
					p.Title = content
				case "og:description":
					p.Description = content
				case "og:image":
					p.Image = content
				case "og:site_name":
					p.Site = content
				case "og:url":
					p.URL = content
				case "description":
					metaDesc = content
				}
			case atom.Body:
				// metadata lives in head
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if p.Title == "" {
		p.Title = title
	}
	if p.Description == "" {
		p.Description = metaDesc
	}
	if base != nil {
		if p.Site == "" {
			p.Site = base.Hostname()
		}
		p.URL = resolve(base, p.URL)
		if p.URL == "" {
			p.URL = base.String()
		}
		p.Image = resolve(base, p.Image)
	}
	return p, nil
}

func metaPair(n *html.Node) (string, string) {
	var key, content string
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "property", "name":
			if key == "" {
				key = strings.ToLower(strings.TrimSpace(a.Val))
			}
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}
	return key, content
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}
