package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pantryscout/backend/internal/cache"
	"github.com/pantryscout/backend/internal/llm"
	"github.com/pantryscout/backend/internal/logger"
	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/retailer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrIncompleteProduct is returned when neither the retailer data nor the LLM
// could supply a name and a price
var ErrIncompleteProduct = errors.New("product is missing a name or price")

// RefinerConfig tunes the refinement pipeline
type RefinerConfig struct {
	// Relevant is how many products per retailer survive the relevance filter
	Relevant int
	// Concurrency bounds the number of refinements in flight
	Concurrency int
	// CacheTTL is how long LLM refinements are kept
	CacheTTL time.Duration
}

// Refiner turns retailer search hits into canonical products
type Refiner struct {
	llm         llm.Client
	cache       cache.Store
	relevant    int
	concurrency int
	ttl         time.Duration
	log         *zap.Logger
}

// NewRefiner creates a Refiner. store may be nil to disable caching.
func NewRefiner(client llm.Client, store cache.Store, cfg RefinerConfig) *Refiner {
	r := &Refiner{
		llm:         client,
		cache:       store,
		relevant:    cfg.Relevant,
		concurrency: cfg.Concurrency,
		ttl:         cfg.CacheTTL,
		log:         logger.Named("refine"),
	}
	if r.relevant <= 0 {
		r.relevant = 5
	}
	if r.concurrency <= 0 {
		r.concurrency = 4
	}
	if r.ttl <= 0 {
		r.ttl = 24 * time.Hour
	}
	return r
}

// DetermineRelevant keeps the products whose titles the LLM ranks as the best
// matches for the query, in retailer order. When the LLM fails or answers with
// nothing usable the first products are kept instead.
func (r *Refiner) DetermineRelevant(ctx context.Context, products []retailer.RawProduct, query string) []retailer.RawProduct {
	if len(products) <= r.relevant {
		return products
	}
	fallback := products[:r.relevant]

	titles := make([]string, len(products))
	for i, p := range products {
		titles[i] = p.Title
	}

	var answer struct {
		Products []string `json:"products"`
	}
	prompt := fmt.Sprintf(
		"A shopper is looking for %q. From the product titles below pick the %d that best match what they want.\n"+
			"Return {\"products\": [...]} using the titles exactly as written.\n\nTitles:\n- %s",
		query, r.relevant, strings.Join(titles, "\n- "),
	)
	if err := r.llm.GenerateJSON(ctx, prompt, &answer); err != nil {
		r.log.Warn("relevance filter failed, keeping first products", zap.String("query", query), zap.Error(err))
		return fallback
	}

	chosen := make(map[string]bool, len(answer.Products))
	for _, t := range answer.Products {
		chosen[normalizeTitle(t)] = true
	}

	var kept []retailer.RawProduct
	for _, p := range products {
		if chosen[normalizeTitle(p.Title)] {
			kept = append(kept, p)
			if len(kept) == r.relevant {
				break
			}
		}
	}
	if len(kept) == 0 {
		r.log.Warn("relevance filter matched no titles, keeping first products", zap.String("query", query))
		return fallback
	}
	return kept
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Normalize extracts a product from retailer data without calling the LLM.
// The size is taken from the size field, then the title, then the bullet
// descriptions, then derived from the unit price.
func Normalize(raw retailer.RawProduct, query string) model.Product {
	p := model.Product{
		Provider: raw.Provider,
		ItemName: strings.TrimSpace(raw.Title),
		Brand:    strings.TrimSpace(raw.Brand),
		Category: strings.TrimSpace(raw.Category()),
		Price:    raw.Price,
	}
	if p.Brand == "" {
		p.Brand = p.Provider
	}
	if p.Category == "" {
		p.Category = strings.TrimSpace(query)
	}
	if p.Price <= 0 {
		p.Price, _ = retailer.ParsePrice(raw.PriceFormatted)
	}
	p.Price = model.RoundCents(p.Price)
	p.UnitAmountOz = roundOz(sizeOf(raw, p.Price))
	return p
}

func sizeOf(raw retailer.RawProduct, price float64) float64 {
	candidates := append([]string{raw.Size, raw.Title}, raw.BulletDescriptions...)
	for _, c := range candidates {
		if oz, ok := retailer.ParseSize(c); ok {
			return oz
		}
	}
	if oz, ok := retailer.OuncesFromUnitPrice(price, raw.UnitPrice, raw.UnitPriceSuffix); ok {
		return oz
	}
	return 0
}

func roundOz(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// llmProduct is the schema the LLM fills in. Numbers may come back as
// strings such as "$3.99".
type llmProduct struct {
	ItemName     string     `json:"itemName"`
	Category     string     `json:"category"`
	Brand        string     `json:"brand"`
	Price        looseFloat `json:"price"`
	UnitAmountOz looseFloat `json:"unitAmountOz"`
	Unit         string     `json:"unit,omitempty"`
}

type looseFloat float64

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = looseFloat(num)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		v, _ := retailer.ParsePrice(str)
		*f = looseFloat(v)
		return nil
	}
	*f = 0
	return nil
}

const refineSchema = `{"provider": string, "itemName": string, "category": string, "brand": string, "price": number (USD, no currency sign), "unitAmountOz": number (package size in ounces)}`

// Refine normalizes a product and asks the LLM for whatever the retailer
// data could not supply. LLM values only fill missing fields and the provider
// always stays the retailer's own.
func (r *Refiner) Refine(ctx context.Context, raw retailer.RawProduct, query string) (model.Product, error) {
	p := Normalize(raw, query)
	if p.Complete() {
		return p, nil
	}

	key := "refine:" + strings.ToLower(raw.Provider) + ":" + normalizeTitle(raw.Title)
	var filled llmProduct
	cached := false
	if r.cache != nil {
		if err := cache.GetJSON(ctx, r.cache, key, &filled); err == nil {
			cached = true
		} else if !errors.Is(err, cache.ErrMiss) {
			r.log.Warn("refine cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	if !cached {
		record, err := json.Marshal(raw)
		if err != nil {
			return p, fmt.Errorf("failed to encode raw product: %w", err)
		}
		prompt := fmt.Sprintf(
			"Extract a grocery product from this %s search result for %q.\nReturn JSON matching %s.\n\n%s",
			raw.Provider, query, refineSchema, record,
		)
		if err := r.llm.GenerateJSON(ctx, prompt, &filled); err != nil {
			return p, fmt.Errorf("failed to refine %q: %w", raw.Title, err)
		}
		if r.cache != nil {
			if err := cache.SetJSON(ctx, r.cache, key, filled, r.ttl); err != nil {
				r.log.Warn("refine cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}

	merge(&p, filled, raw)
	if p.ItemName == "" || p.Price <= 0 {
		return p, fmt.Errorf("%w: %q", ErrIncompleteProduct, raw.Title)
	}
	return p, nil
}

func merge(p *model.Product, f llmProduct, raw retailer.RawProduct) {
	if p.ItemName == "" {
		p.ItemName = strings.TrimSpace(f.ItemName)
	}
	if strings.TrimSpace(raw.Brand) == "" {
		if b := strings.TrimSpace(f.Brand); b != "" {
			p.Brand = b
		}
	}
	if raw.Category() == "" {
		if c := strings.TrimSpace(f.Category); c != "" {
			p.Category = c
		}
	}
	if p.Price <= 0 && f.Price > 0 {
		p.Price = model.RoundCents(float64(f.Price))
	}
	if p.UnitAmountOz <= 0 {
		if f.UnitAmountOz > 0 {
			p.UnitAmountOz = roundOz(float64(f.UnitAmountOz))
		} else if oz, ok := retailer.ParseSize(f.Unit); ok {
			p.UnitAmountOz = roundOz(oz)
		}
	}
}

// RefineAll refines products concurrently. Products that cannot be refined
// are logged and left out; the order of the input is preserved.
func (r *Refiner) RefineAll(ctx context.Context, raws []retailer.RawProduct, query string) ([]model.Product, error) {
	results := make([]*model.Product, len(raws))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, raw := range raws {
		i, raw := i, raw
		g.Go(func() error {
			p, err := r.Refine(gctx, raw, query)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.log.Warn("skipping product", zap.String("provider", raw.Provider), zap.String("title", raw.Title), zap.Error(err))
				return nil
			}
			results[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	products := make([]model.Product, 0, len(raws))
	for _, p := range results {
		if p != nil {
			products = append(products, *p)
		}
	}
	return products, nil
}

// Dedupe collapses products with the same item name, brand and provider,
// keeping the cheapest. First-seen order is preserved.
func Dedupe(products []model.Product) []model.Product {
	index := make(map[model.ProductKey]int, len(products))
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		k := p.Key()
		if i, ok := index[k]; ok {
			if p.Price > 0 && (out[i].Price <= 0 || p.Price < out[i].Price) {
				out[i] = p
			}
			continue
		}
		index[k] = len(out)
		out = append(out, p)
	}
	return out
}

// CheapestPerProvider returns, per provider, the product with the lowest
// unit cost. Products without a unit cost are ignored; ties keep the first.
func CheapestPerProvider(products []model.Product) map[string]model.Product {
	best := make(map[string]model.Product)
	bestCost := make(map[string]float64)
	for _, p := range products {
		cost, ok := p.UnitCost()
		if !ok {
			continue
		}
		if current, seen := bestCost[p.Provider]; !seen || cost < current {
			best[p.Provider] = p
			bestCost[p.Provider] = cost
		}
	}
	return best
}
