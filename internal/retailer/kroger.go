package retailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pantryscout/backend/internal/cache"
	"github.com/pantryscout/backend/internal/logger"
	"go.uber.org/zap"
)

const (
	defaultKrogerURL   = "https://api.kroger.com/v1"
	krogerScope        = "product.compact"
	krogerOutOfStock   = "TEMPORARILY_OUT_OF_STOCK"
	krogerTokenKey     = "kroger:token"
	krogerLocationTTL  = 24 * time.Hour
	tokenRefreshMargin = time.Minute
)

var errTokenRejected = errors.New("kroger rejected the access token")

// KrogerConfig configures the Kroger public API client
type KrogerConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// Limit caps the number of products requested per search, 0 uses the API default
	Limit      int
	HTTPClient *http.Client
	// Cache shares tokens and store locations between processes; optional
	Cache cache.Store
}

// Kroger searches the Kroger product API
type Kroger struct {
	baseURL      string
	clientID     string
	clientSecret string
	limit        int
	client       *http.Client
	cache        cache.Store

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

func NewKroger(cfg KrogerConfig) *Kroger {
	k := &Kroger{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		limit:        cfg.Limit,
		client:       defaultHTTPClient(cfg.HTTPClient),
		cache:        cfg.Cache,
		now:          time.Now,
	}
	if k.baseURL == "" {
		k.baseURL = defaultKrogerURL
	}
	return k
}

func (k *Kroger) Name() string {
	return ProviderKroger
}

type krogerToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Token returns a client-credentials access token, reusing the cached one
// until shortly before it expires.
func (k *Kroger) Token(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.token != "" && k.now().Before(k.tokenExpiry) {
		return k.token, nil
	}

	if k.cache != nil {
		var cached krogerToken
		if err := cache.GetJSON(ctx, k.cache, krogerTokenKey, &cached); err == nil && k.now().Before(cached.ExpiresAt) {
			k.token, k.tokenExpiry = cached.AccessToken, cached.ExpiresAt
			return k.token, nil
		}
	}

	if k.clientID == "" || k.clientSecret == "" {
		return "", errors.New("kroger client credentials are not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", krogerScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"/connect/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(k.clientID, k.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch kroger token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", upstreamError(ProviderKroger, resp)
	}

	var tok krogerToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode kroger token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("kroger token response has no access_token")
	}

	ttl := time.Duration(tok.ExpiresIn)*time.Second - tokenRefreshMargin
	if ttl <= 0 {
		ttl = time.Duration(tok.ExpiresIn) * time.Second
	}
	tok.ExpiresAt = k.now().Add(ttl)
	k.token, k.tokenExpiry = tok.AccessToken, tok.ExpiresAt

	if k.cache != nil {
		if err := cache.SetJSON(ctx, k.cache, krogerTokenKey, tok, ttl); err != nil {
			logger.Warn("failed to cache kroger token", zap.Error(err))
		}
	}
	return k.token, nil
}

// get calls a Kroger API path. A 401 drops the token everywhere it is cached
// and the request is retried once with a fresh one.
func (k *Kroger) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	err := k.getOnce(ctx, path, query, out)
	if !errors.Is(err, errTokenRejected) {
		return err
	}
	k.invalidateToken(ctx)
	err = k.getOnce(ctx, path, query, out)
	if errors.Is(err, errTokenRejected) {
		k.invalidateToken(ctx)
	}
	return err
}

func (k *Kroger) getOnce(ctx context.Context, path string, query url.Values, out interface{}) error {
	token, err := k.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create kroger request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to query kroger %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", errTokenRejected, upstreamError(ProviderKroger, resp))
	}
	if resp.StatusCode != http.StatusOK {
		return upstreamError(ProviderKroger, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode kroger %s response: %w", path, err)
	}
	return nil
}

func (k *Kroger) invalidateToken(ctx context.Context) {
	k.mu.Lock()
	k.token = ""
	k.tokenExpiry = time.Time{}
	k.mu.Unlock()

	if k.cache != nil {
		if err := k.cache.Delete(ctx, krogerTokenKey); err != nil {
			logger.Warn("failed to drop cached kroger token", zap.Error(err))
		}
	}
}

// NearestLocation returns the id of the first store within 50 miles of a zip code
func (k *Kroger) NearestLocation(ctx context.Context, zip string) (string, error) {
	cacheKey := "kroger:location:" + zip
	if k.cache != nil {
		if id, err := k.cache.Get(ctx, cacheKey); err == nil && id != "" {
			return id, nil
		}
	}

	q := url.Values{}
	q.Set("filter.zipcode.near", zip)
	q.Set("filter.radiusInMiles", "50")
	q.Set("filter.limit", "1")

	var body struct {
		Data []struct {
			LocationID string `json:"locationId"`
		} `json:"data"`
	}
	if err := k.get(ctx, "/locations", q, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 || body.Data[0].LocationID == "" {
		return "", fmt.Errorf("%w: %s", ErrNoLocation, zip)
	}

	id := body.Data[0].LocationID
	if k.cache != nil {
		if err := k.cache.Set(ctx, cacheKey, id, krogerLocationTTL); err != nil {
			logger.Warn("failed to cache kroger location", zap.Error(err))
		}
	}
	return id, nil
}

type krogerProduct struct {
	ProductID   string   `json:"productId"`
	Description string   `json:"description"`
	Brand       string   `json:"brand"`
	Categories  []string `json:"categories"`
	Items       []struct {
		Size  string `json:"size"`
		Price *struct {
			Regular float64 `json:"regular"`
			Promo   float64 `json:"promo"`
		} `json:"price"`
		Inventory *struct {
			StockLevel string `json:"stockLevel"`
		} `json:"inventory"`
		Fulfillment struct {
			InStore bool `json:"inStore"`
		} `json:"fulfillment"`
	} `json:"items"`
}

// available reports whether any item can be bought in store
func (p krogerProduct) available() bool {
	for _, item := range p.Items {
		inStock := item.Inventory == nil || item.Inventory.StockLevel != krogerOutOfStock
		if inStock && item.Fulfillment.InStore {
			return true
		}
	}
	return false
}

// price is the regular shelf price of the first item, falling back to the promo price
func (p krogerProduct) price() float64 {
	if len(p.Items) == 0 || p.Items[0].Price == nil {
		return 0
	}
	if p.Items[0].Price.Regular > 0 {
		return p.Items[0].Price.Regular
	}
	return p.Items[0].Price.Promo
}

func (p krogerProduct) sortKey() float64 {
	if price := p.price(); price > 0 {
		return price
	}
	return math.Inf(1)
}

// Products searches a store's catalogue. Only products available in store are
// returned, cheapest first.
func (k *Kroger) Products(ctx context.Context, term, locationID, brand string) ([]RawProduct, error) {
	q := url.Values{}
	q.Set("filter.term", term)
	q.Set("filter.locationId", locationID)
	if brand != "" {
		q.Set("filter.brand", brand)
	}
	if k.limit > 0 {
		q.Set("filter.limit", strconv.Itoa(k.limit))
	}

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := k.get(ctx, "/products", q, &body); err != nil {
		return nil, err
	}

	type candidate struct {
		product krogerProduct
		raw     json.RawMessage
	}
	var available []candidate
	for _, raw := range body.Data {
		var p krogerProduct
		if err := json.Unmarshal(raw, &p); err != nil {
			logger.Warn("skipping malformed kroger product", zap.Error(err))
			continue
		}
		if p.available() {
			available = append(available, candidate{product: p, raw: raw})
		}
	}

	sort.SliceStable(available, func(i, j int) bool {
		return available[i].product.sortKey() < available[j].product.sortKey()
	})

	products := make([]RawProduct, 0, len(available))
	for _, c := range available {
		products = append(products, refineKroger(c.product, c.raw))
	}
	return products, nil
}

func refineKroger(p krogerProduct, raw json.RawMessage) RawProduct {
	out := RawProduct{
		Provider:   ProviderKroger,
		Title:      strings.TrimSpace(p.Description),
		Brand:      strings.TrimSpace(p.Brand),
		Price:      p.price(),
		Categories: p.Categories,
		Raw:        raw,
	}
	if len(p.Items) > 0 {
		out.Size = strings.TrimSpace(p.Items[0].Size)
	}
	if out.Price > 0 {
		out.PriceFormatted = fmt.Sprintf("$%.2f", out.Price)
		if oz, ok := ParseSize(out.Size); ok {
			out.UnitPrice = fmt.Sprintf("$%.2f", out.Price/oz)
			out.UnitPriceSuffix = "/oz"
		}
	}
	return out
}

// Search finds the nearest store for the zip code and searches its catalogue
func (k *Kroger) Search(ctx context.Context, term, zip string) ([]RawProduct, error) {
	locationID, err := k.NearestLocation(ctx, zip)
	if err != nil {
		return nil, err
	}
	return k.Products(ctx, term, locationID, "")
}
