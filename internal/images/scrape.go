package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxPageBytes bounds how much of a recipe page is tokenized.
const maxPageBytes = 2 << 20

const maxRedirects = 10

var (
	errNoSourceURL  = errors.New("recipe has no source URL")
	errNotHTTP      = errors.New("source URL is not an absolute http(s) URL")
	errSearchEngine = errors.New("source URL points at a search engine")
	errNoImageTag   = errors.New("page has no og:image, twitter:image or image_src")
)

// searchEngineLabels excludes any host with one of these labels, whatever the TLD.
var searchEngineLabels = map[string]bool{
	"google": true,
	"yandex": true,
}

var searchEngineDomains = []string{
	"bing.com",
	"duckduckgo.com",
	"search.yahoo.com",
	"baidu.com",
	"search.brave.com",
	"ecosia.org",
}

type scraper struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// newScraper copies client so the redirect check does not leak into other
// users of it.
func newScraper(client *http.Client, userAgent string, timeout time.Duration) *scraper {
	c := *client
	next := client.CheckRedirect
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		// A recipe page that bounces to a search engine is treated like a
		// search engine link.
		if isSearchEngine(req.URL.Hostname()) {
			return errSearchEngine
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return &scraper{client: &c, userAgent: userAgent, timeout: timeout}
}

// eligible reports whether sourceURL may be scraped, and why not.
func eligible(sourceURL string) (*url.URL, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, errNoSourceURL
	}
	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errNotHTTP
	}
	if isSearchEngine(u.Hostname()) {
		return nil, errSearchEngine
	}
	return u, nil
}

func isSearchEngine(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, label := range strings.Split(host, ".") {
		if searchEngineLabels[label] {
			return true
		}
	}
	for _, domain := range searchEngineDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// fetch downloads the page with its own timeout and returns the preferred
// image URL found in its markup.
func (s *scraper) fetch(ctx context.Context, u *url.URL) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch source page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("source page returned status %d", resp.StatusCode)
	}

	base := u
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	image := ExtractImage(io.LimitReader(resp.Body, maxPageBytes), base)
	if image == "" {
		return "", errNoImageTag
	}
	return image, nil
}

// ExtractImage scans markup for, in order of preference, an og:image meta
// tag, a twitter:image meta tag, or a legacy <link rel="image_src">.
// Relative values are resolved against base when it is non-nil.
func ExtractImage(r io.Reader, base *url.URL) string {
	var og, twitter, imageSrc string

	z := html.NewTokenizer(r)
	for og == "" {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, hasAttr := z.TagName()
		if !hasAttr {
			continue
		}
		attrs := readAttrs(z)

		switch string(name) {
		case "meta":
			key := strings.ToLower(strings.TrimSpace(attrs["property"]))
			if key == "" {
				key = strings.ToLower(strings.TrimSpace(attrs["name"]))
			}
			content := strings.TrimSpace(attrs["content"])
			if content == "" {
				continue
			}
			switch key {
			case "og:image", "og:image:url", "og:image:secure_url":
				og = content
			case "twitter:image", "twitter:image:src":
				if twitter == "" {
					twitter = content
				}
			}
		case "link":
			href := strings.TrimSpace(attrs["href"])
			if imageSrc == "" && href != "" && hasRel(attrs["rel"], "image_src") {
				imageSrc = href
			}
		}
	}

	for _, candidate := range []string{og, twitter, imageSrc} {
		if candidate != "" {
			return absolute(candidate, base)
		}
	}
	return ""
}

func readAttrs(z *html.Tokenizer) map[string]string {
	attrs := map[string]string{}
	for {
		key, val, more := z.TagAttr()
		k := string(key)
		if _, seen := attrs[k]; !seen {
			attrs[k] = string(val)
		}
		if !more {
			return attrs
		}
	}
}

func hasRel(rel, want string) bool {
	for _, r := range strings.Fields(rel) {
		if strings.EqualFold(r, want) {
			return true
		}
	}
	return false
}

func absolute(ref string, base *url.URL) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
