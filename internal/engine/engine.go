// Package engine defines the search-engine scraping abstraction and a
// goquery-based CSS selector implementation (spec §4.4).
package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sniffdognode/internal/searchresult"
)

// Descriptor configures one CSSEngine instance against a specific
// search provider's result page layout.
type Descriptor struct {
	Name                string
	QueryURLTemplate    string // must contain exactly one "%s" for the escaped query
	ResultSelector      string
	TitleSelector       string
	URLSelector         string
	URLAttr             string // defaults to "href" when empty
	DescriptionSelector string
	UserAgent           string
}

// Engine fetches and scrapes search results for a query.
type Engine interface {
	Name() string
	Search(ctx context.Context, query string) ([]searchresult.Result, error)
}

// CSSEngine scrapes a provider's HTML result page with goquery CSS
// selectors, per the Descriptor.
type CSSEngine struct {
	descriptor Descriptor
	client     *http.Client
}

// NewCSSEngine builds a CSSEngine bound to descriptor, using client for
// requests (a nil client defaults to a 10s-timeout *http.Client).
func NewCSSEngine(descriptor Descriptor, client *http.Client) *CSSEngine {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CSSEngine{descriptor: descriptor, client: client}
}

// Name identifies the engine, e.g. for per-engine error logging.
func (e *CSSEngine) Name() string {
	return e.descriptor.Name
}

// Search fetches the provider's result page for query and scrapes it
// per the descriptor's selectors. Results whose URL doesn't parse as
// http/https are skipped (spec §4.4).
func (e *CSSEngine) Search(ctx context.Context, query string) ([]searchresult.Result, error) {
	target := fmt.Sprintf(e.descriptor.QueryURLTemplate, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("engine %s: build request: %w", e.descriptor.Name, err)
	}
	if e.descriptor.UserAgent != "" {
		req.Header.Set("User-Agent", e.descriptor.UserAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine %s: fetch: %w", e.descriptor.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine %s: unexpected status %d", e.descriptor.Name, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("engine %s: parse: %w", e.descriptor.Name, err)
	}

	urlAttr := e.descriptor.URLAttr
	if urlAttr == "" {
		urlAttr = "href"
	}

	var out []searchresult.Result
	doc.Find(e.descriptor.ResultSelector).Each(func(_ int, sel *goquery.Selection) {
		rawURL, ok := sel.Find(e.descriptor.URLSelector).Attr(urlAttr)
		if !ok {
			return
		}
		parsed, err := url.Parse(rawURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return
		}

		title := strings.TrimSpace(sel.Find(e.descriptor.TitleSelector).First().Text())
		if title == "" {
			title = rawURL
		}

		description := e.fetchMetaDescription(ctx, rawURL)
		if description == "" && e.descriptor.DescriptionSelector != "" {
			description = strings.TrimSpace(sel.Find(e.descriptor.DescriptionSelector).First().Text())
		}
		if description == "" {
			description = title
		}

		out = append(out, searchresult.New(title, rawURL, description, searchresult.DefaultContentType))
	})

	return out, nil
}

// fetchMetaDescription best-effort fetches target and reads its
// <meta name="description"> content, per spec §4.4 ("best-effort
// description fetched from the target page's meta-description"). Any
// failure yields an empty string so the caller falls back to the
// selector-scraped description or the title.
func (e *CSSEngine) fetchMetaDescription(ctx context.Context, target string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return ""
	}
	if e.descriptor.UserAgent != "" {
		req.Header.Set("User-Agent", e.descriptor.UserAgent)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}
	content, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return strings.TrimSpace(content)
}
