// Package scraper finds recipe pages on a recipe site and extracts their
// ingredients and instructions.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	nethtml "golang.org/x/net/html"
)

const (
	defaultSite      = "https://www.allrecipes.com"
	defaultUserAgent = "Mozilla/5.0 (compatible; pantryscout/1.0)"
	maxPageBytes     = 5 << 20
)

var (
	// ErrNoResults is returned when a search yields no recipe links
	ErrNoResults = errors.New("no recipe links found")
	// ErrNoRecipe is returned when a page has neither structured data nor recognisable markup
	ErrNoRecipe = errors.New("no recipe found on page")
)

// Recipe is the content scraped from a recipe page
type Recipe struct {
	URL          string   `json:"url"`
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Yield        string   `json:"yield,omitempty"`
	TotalTime    string   `json:"total_time,omitempty"`
}

// Empty reports whether nothing usable was extracted
func (r *Recipe) Empty() bool {
	return len(r.Ingredients) == 0 && len(r.Instructions) == 0
}

// Config configures a Scraper
type Config struct {
	SiteURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// Scraper fetches and parses recipe pages
type Scraper struct {
	site      *url.URL
	userAgent string
	client    *http.Client
}

func New(cfg Config) (*Scraper, error) {
	site := cfg.SiteURL
	if site == "" {
		site = defaultSite
	}
	u, err := url.Parse(strings.TrimRight(site, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid recipe site url: %w", err)
	}
	s := &Scraper{site: u, userAgent: cfg.UserAgent, client: cfg.HTTPClient}
	if s.userAgent == "" {
		s.userAgent = defaultUserAgent
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 20 * time.Second}
	}
	return s, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (*nethtml.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := nethtml.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// Search returns up to limit recipe page URLs for a query
func (s *Scraper) Search(ctx context.Context, query string, limit int) ([]string, error) {
	searchURL := *s.site
	searchURL.Path = strings.TrimRight(searchURL.Path, "/") + "/search"
	searchURL.RawQuery = url.Values{"q": {query}}.Encode()

	doc, err := s.fetch(ctx, searchURL.String())
	if err != nil {
		return nil, err
	}

	links := s.recipeLinks(doc, func(n *nethtml.Node) bool { return hasClass(n, "card__titleLink") }, limit)
	if len(links) == 0 {
		links = s.recipeLinks(doc, func(*nethtml.Node) bool { return true }, limit)
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoResults, query)
	}
	return links, nil
}

func (s *Scraper) recipeLinks(doc *nethtml.Node, match func(*nethtml.Node) bool, limit int) []string {
	seen := make(map[string]bool)
	var links []string
	walk(doc, func(n *nethtml.Node) bool {
		if limit > 0 && len(links) >= limit {
			return false
		}
		if n.Type != nethtml.ElementNode || n.Data != "a" || !match(n) {
			return true
		}
		href := attr(n, "href")
		if !strings.Contains(href, "/recipe/") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := s.site.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
		return true
	})
	return links
}

// Extract scrapes a recipe page. Structured schema.org data is preferred;
// pages without it fall back to class name heuristics.
func (s *Scraper) Extract(ctx context.Context, pageURL string) (*Recipe, error) {
	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	recipe := fromJSONLD(doc)
	if recipe == nil || recipe.Empty() {
		recipe = fromMarkup(doc)
	}
	if recipe.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrNoRecipe, pageURL)
	}
	recipe.URL = pageURL
	if recipe.Title == "" {
		recipe.Title = pageTitle(doc)
	}
	return recipe, nil
}

var (
	ingredientClass  = regexp.MustCompile(`(?i)ingredient`)
	instructionClass = regexp.MustCompile(`(?i)instruction|step|direction`)
)

// fromMarkup collects list items under elements whose class names look like
// ingredient or instruction containers.
func fromMarkup(doc *nethtml.Node) *Recipe {
	r := &Recipe{}
	r.Ingredients = collectText(doc, ingredientClass, []string{"li", "span"}, 3)
	r.Instructions = collectText(doc, instructionClass, []string{"li", "p"}, 5)
	return r
}

func collectText(doc *nethtml.Node, class *regexp.Regexp, tags []string, minLen int) []string {
	seen := make(map[string]bool)
	var out []string
	walk(doc, func(n *nethtml.Node) bool {
		if n.Type != nethtml.ElementNode || !class.MatchString(attr(n, "class")) {
			return true
		}
		walk(n, func(c *nethtml.Node) bool {
			if c.Type != nethtml.ElementNode || !contains(tags, c.Data) {
				return true
			}
			text := CleanText(textContent(c))
			if len(text) > minLen && !seen[text] {
				seen[text] = true
				out = append(out, text)
			}
			// nested spans inside an li would repeat the same text
			return false
		})
		return false
	})
	return out
}

func pageTitle(doc *nethtml.Node) string {
	var title string
	walk(doc, func(n *nethtml.Node) bool {
		if title != "" {
			return false
		}
		if n.Type == nethtml.ElementNode && n.Data == "h1" {
			title = CleanText(textContent(n))
			return false
		}
		return true
	})
	if title != "" {
		return title
	}
	walk(doc, func(n *nethtml.Node) bool {
		if title == "" && n.Type == nethtml.ElementNode && n.Data == "title" {
			title = CleanText(textContent(n))
		}
		return title == ""
	})
	return title
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
	spaces     = regexp.MustCompile(`\s+`)
)

// CleanText strips markup and entities and collapses whitespace
func CleanText(s string) string {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	s = html.UnescapeString(policy.Sanitize(s))
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// walk visits nodes depth first; returning false skips the node's children
func walk(n *nethtml.Node, visit func(*nethtml.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func textContent(n *nethtml.Node) string {
	var b strings.Builder
	walk(n, func(c *nethtml.Node) bool {
		if c.Type == nethtml.ElementNode && (c.Data == "script" || c.Data == "style") {
			return false
		}
		if c.Type == nethtml.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		return true
	})
	return b.String()
}

func attr(n *nethtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *nethtml.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
