package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	bravesearch "github.com/cnosuke/go-brave-search"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html"
)

const (
	defaultSearchCount = 5
	maxSearchCount     = 20
	maxFetchBytes      = 100 * 1024
)

// WebSearcher is the part of the Brave client Web uses.
type WebSearcher interface {
	WebSearch(ctx context.Context, query string, params *bravesearch.WebSearchParams) (*bravesearch.WebSearchResponse, error)
}

// NewBraveSearcher builds a Brave client whose requests are traced.
func NewBraveSearcher(apiKey string) (WebSearcher, error) {
	client, err := bravesearch.NewClient(apiKey, bravesearch.WithHTTPClient(tracedHTTPClient()))
	if err != nil {
		return nil, fmt.Errorf("brave client: %w", err)
	}
	return client, nil
}

func tracedHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Web looks things up for the orchestrator: a Brave web search, or a plain
// text fetch of one page. Fetches are limited to http(s) and, when hosts
// are configured, to those hosts and their subdomains.
type Web struct {
	searcher WebSearcher
	http     *http.Client
	hosts    []string
}

type WebOption func(*Web)

// WithFetchClient replaces the HTTP client used for fetches.
func WithFetchClient(c *http.Client) WebOption {
	return func(w *Web) { w.http = c }
}

// WithAllowedHosts scopes fetches to the given hosts.
func WithAllowedHosts(hosts []string) WebOption {
	return func(w *Web) {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				w.hosts = append(w.hosts, h)
			}
		}
	}
}

func NewWeb(searcher WebSearcher, opts ...WebOption) *Web {
	w := &Web{searcher: searcher, http: tracedHTTPClient()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Web) Name() string { return "web" }
func (w *Web) Description() string {
	return "Search the web for public documentation, or fetch one page as plain text"
}

func (w *Web) InputSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{"search", "fetch"},
				"description": "search runs a web search; fetch reads one URL",
			},
			"query": stringProp("Search terms, for search"),
			"url":   stringProp("http or https URL, for fetch"),
			"count": map[string]any{
				"type":        "integer",
				"description": "Number of search results (default 5, max 20)",
			},
		},
		"required": []string{"action"},
	}
}

// WebHit is one search result.
type WebHit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// WebResult is what the web tool hands back to the model. Failures set
// Success false and Error; Execute itself never fails.
type WebResult struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Query   string   `json:"query,omitempty"`
	Results []WebHit `json:"results,omitempty"`
	URL     string   `json:"url,omitempty"`
	Status  int      `json:"status,omitempty"`
	Content string   `json:"content,omitempty"`
}

func webFailure(format string, args ...any) WebResult {
	return WebResult{Error: fmt.Sprintf(format, args...)}
}

func (w *Web) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Action string `json:"action"`
		Query  string `json:"query"`
		URL    string `json:"url"`
		Count  int    `json:"count"`
	}
	var res WebResult
	if err := decode(w.Name(), input, &args); err != nil {
		res = webFailure("%v", err)
	} else {
		switch args.Action {
		case "search":
			res = w.Search(ctx, args.Query, args.Count)
		case "fetch":
			res = w.Fetch(ctx, args.URL)
		default:
			res = webFailure("unknown action %q: use search or fetch", args.Action)
		}
	}
	if !res.Success {
		slog.Warn("web: failed", "action", args.Action, "error", res.Error)
	}
	return encode(res)
}

func (w *Web) Search(ctx context.Context, query string, count int) WebResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return webFailure("query is required for search")
	}
	count = min(max(count, 0), maxSearchCount)
	if count == 0 {
		count = defaultSearchCount
	}

	params := bravesearch.NewWebSearchParams()
	params.Count = count
	resp, err := w.searcher.WebSearch(ctx, query, params)
	if err != nil {
		return webFailure("search failed: %v", err)
	}

	hits := resp.GetWebResults()
	res := WebResult{Success: true, Query: query, Results: make([]WebHit, 0, len(hits))}
	for _, h := range hits {
		res.Results = append(res.Results, WebHit{
			Title:       h.Title,
			URL:         h.URL,
			Description: textOf(h.Description),
		})
	}
	slog.Debug("web: search done", "query", query, "results", len(res.Results))
	return res
}

func (w *Web) Fetch(ctx context.Context, rawURL string) WebResult {
	u, err := w.checkURL(rawURL)
	if err != nil {
		return webFailure("%v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return webFailure("building request: %v", err)
	}
	req.Header.Set("User-Agent", "laila/1.0")

	resp, err := w.http.Do(req)
	if err != nil {
		return webFailure("fetch failed: %v", err)
	}
	defer resp.Body.Close()

	res := WebResult{URL: u.String(), Status: resp.StatusCode}
	if resp.StatusCode >= http.StatusBadRequest {
		res.Error = "HTTP " + resp.Status
		return res
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		res.Error = fmt.Sprintf("reading body: %v", err)
		return res
	}
	res.Success = true
	res.Content = truncate([]byte(textOf(string(body))))
	slog.Debug("web: fetch done", "url", res.URL, "status", res.Status, "bytes", len(res.Content))
	return res
}

func (w *Web) checkURL(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("url is required for fetch")
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("url has no host")
	}
	if len(w.hosts) == 0 {
		return u, nil
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range w.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("host %s is not in the allowed hosts", host)
}

// textOf returns the visible text of an HTML fragment or page with
// whitespace collapsed. Script and style contents are skipped.
func textOf(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isHidden(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHidden(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func isHidden(tag []byte) bool {
	switch string(tag) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}
