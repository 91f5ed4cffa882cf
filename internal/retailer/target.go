package retailer

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultTargetURL     = "https://redsky.target.com/redsky_aggregations/v1/web/plp_search_v2"
	defaultTargetKey     = "9f36aeafbe60771e321a7cc95a78140772ab3e96"
	defaultTargetStore   = "3309"
	targetStoreIDs       = "3309,1762,111,1366,1063"
	targetVisitorID      = "019603CB251B020186DC9640FEF301B9"
	targetUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"
	defaultTargetResults = 10
)

// TargetConfig configures the Redsky search client
type TargetConfig struct {
	BaseURL    string
	APIKey     string
	StoreID    string
	Count      int
	HTTPClient *http.Client
}

// Target searches Target's Redsky product listing API
type Target struct {
	baseURL string
	apiKey  string
	storeID string
	count   int
	client  *http.Client
}

func NewTarget(cfg TargetConfig) *Target {
	t := &Target{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		storeID: cfg.StoreID,
		count:   cfg.Count,
		client:  defaultHTTPClient(cfg.HTTPClient),
	}
	if t.baseURL == "" {
		t.baseURL = defaultTargetURL
	}
	if t.apiKey == "" {
		t.apiKey = defaultTargetKey
	}
	if t.storeID == "" {
		t.storeID = defaultTargetStore
	}
	if t.count <= 0 {
		t.count = defaultTargetResults
	}
	return t
}

func (t *Target) Name() string {
	return ProviderTarget
}

// searchURL builds the listing query. Redsky is sensitive to parameter
// order, so the query string is assembled by hand instead of url.Values.
func (t *Target) searchURL(term, zip string) string {
	params := [][2]string{
		{"key", t.apiKey},
		{"channel", "WEB"},
		{"count", strconv.Itoa(t.count)},
		{"default_purchasability_filter", "true"},
		{"include_dmc_dmr", "true"},
		{"include_sponsored", "true"},
		{"include_review_summarization", "false"},
		{"keyword", term},
		{"new_search", "true"},
		{"offset", "0"},
		{"page", "/s/" + term},
		{"platform", "desktop"},
		{"pricing_store_id", t.storeID},
		{"scheduled_delivery_store_id", t.storeID},
		{"spellcheck", "true"},
		{"store_ids", targetStoreIDs},
		{"visitor_id", targetVisitorID},
		{"zip", zip},
	}

	var b strings.Builder
	b.WriteString(t.baseURL)
	b.WriteByte('?')
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}

// Search returns the products Redsky lists for a keyword near a zip code
func (t *Target) Search(ctx context.Context, term, zip string) ([]RawProduct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.searchURL(term, zip), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create target request: %w", err)
	}
	req.Header.Set("User-Agent", targetUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query target: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(ProviderTarget, resp)
	}

	var body interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode target response: %w", err)
	}

	items, _ := lookup(body, "data.search.products").([]interface{})
	products := make([]RawProduct, 0, len(items))
	for _, item := range items {
		if p, ok := parseTargetProduct(item); ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func parseTargetProduct(item interface{}) (RawProduct, bool) {
	title := html.UnescapeString(pickString(item, "item.product_description.title"))
	if title == "" {
		return RawProduct{}, false
	}

	p := RawProduct{
		Provider:           ProviderTarget,
		Title:              title,
		Brand:              html.UnescapeString(pickString(item, "item.primary_brand.name")),
		Price:              pickFloat(item, "price.current_retail", "price.current_retail_min", "price.formatted_current_price"),
		PriceFormatted:     pickString(item, "price.formatted_current_price"),
		UnitPrice:          pickString(item, "price.formatted_unit_price"),
		UnitPriceSuffix:    pickString(item, "price.formatted_unit_price_suffix"),
		BulletDescriptions: stripBullets(pickStrings(item, "item.product_description.bullet_descriptions")),
		SoftBullets:        pickStrings(item, "item.product_description.soft_bullets.bullets"),
	}
	if c := pickString(item, "item.product_classification.item_type.name"); c != "" {
		p.Categories = []string{html.UnescapeString(c)}
	}
	if p.PriceFormatted == "" && p.Price > 0 {
		p.PriceFormatted = fmt.Sprintf("$%.2f", p.Price)
	}
	for _, b := range p.BulletDescriptions {
		if k, v, ok := strings.Cut(b, ":"); ok && strings.EqualFold(strings.TrimSpace(k), "net weight") {
			p.Size = strings.TrimSpace(v)
			break
		}
	}
	if raw, err := json.Marshal(item); err == nil {
		p.Raw = raw
	}
	return p, true
}

// stripBullets removes the inline markup Redsky puts in bullet descriptions
// ("<B>Net weight:</B> 14 Ounces").
func stripBullets(in []string) []string {
	out := make([]string, 0, len(in))
	for _, b := range in {
		b = html.UnescapeString(b)
		for _, tag := range []string{"<B>", "</B>", "<b>", "</b>"} {
			b = strings.ReplaceAll(b, tag, "")
		}
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
