package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/pantryscout/backend/internal/logger"
	"github.com/pantryscout/backend/internal/model"
	"github.com/pantryscout/backend/internal/retailer"
	"github.com/pantryscout/backend/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	// ErrAllProvidersFailed is returned when no retailer could be searched
	ErrAllProvidersFailed = errors.New("all retailers failed")
	// ErrNoProducts is returned when no stored product matches an ingredient
	ErrNoProducts = errors.New("no products found")
)

const (
	defaultProductLimit = 100
	maxProductLimit     = 500
)

// ScrapeResult is the outcome of scraping one search term
type ScrapeResult struct {
	Term       string                   `json:"term"`
	Zip        string                   `json:"zip_code"`
	Products   []model.Product          `json:"products"`
	Cheapest   map[string]model.Product `json:"cheapest"`
	Created    int                      `json:"created"`
	Duplicates int                      `json:"duplicates"`
	Errors     map[string]string        `json:"errors,omitempty"`
}

// ProductOffer quotes one stored product for a requested ingredient amount
type ProductOffer struct {
	model.Product
	UnitCost     float64 `json:"unitCost"`
	Packages     int     `json:"packages"`
	Cost         float64 `json:"cost"`
	ProratedCost float64 `json:"proratedCost,omitempty"`
}

// IngredientQuote lists the cheapest offer per provider for an ingredient
type IngredientQuote struct {
	Ingredient string         `json:"ingredient"`
	Amount     float64        `json:"amount,omitempty"`
	Unit       string         `json:"unit,omitempty"`
	AmountOz   float64        `json:"amountOz,omitempty"`
	Offers     []ProductOffer `json:"offers"`
}

// ProductService scrapes, stores and prices grocery products
type ProductService struct {
	db        *gorm.DB
	refiner   *Refiner
	providers []retailer.Provider
	log       *zap.Logger
}

// NewProductService creates a new ProductService instance
func NewProductService(db *gorm.DB, refiner *Refiner, providers ...retailer.Provider) *ProductService {
	return &ProductService{
		db:        db,
		refiner:   refiner,
		providers: providers,
		log:       logger.Named("products"),
	}
}

// Collect searches every retailer concurrently and refines the results
// without storing them. A failing retailer is reported in the result; only
// the failure of every retailer is an error.
func (s *ProductService) Collect(ctx context.Context, term, zip string) (*ScrapeResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrInvalidInput)
	}

	perProvider := make([][]model.Product, len(s.providers))
	failures := make(map[string]string)
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	for i, provider := range s.providers {
		i, provider := i, provider
		g.Go(func() error {
			products, err := s.collectFrom(ctx, provider, term, zip)
			if err != nil {
				s.log.Error("retailer search failed", zap.String("provider", provider.Name()), zap.String("term", term), zap.Error(err))
				mu.Lock()
				failures[provider.Name()] = err.Error()
				errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
				mu.Unlock()
				return nil
			}
			perProvider[i] = products
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.providers) > 0 && len(errs) == len(s.providers) {
		return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
	}

	var all []model.Product
	for _, products := range perProvider {
		all = append(all, products...)
	}
	all = Dedupe(all)

	result := &ScrapeResult{
		Term:     term,
		Zip:      zip,
		Products: all,
		Cheapest: CheapestPerProvider(all),
	}
	if len(failures) > 0 {
		result.Errors = failures
	}
	return result, nil
}

func (s *ProductService) collectFrom(ctx context.Context, provider retailer.Provider, term, zip string) ([]model.Product, error) {
	raws, err := provider.Search(ctx, term, zip)
	if err != nil {
		return nil, err
	}
	relevant := s.refiner.DetermineRelevant(ctx, raws, term)
	return s.refiner.RefineAll(ctx, relevant, term)
}

// Scrape collects products for a term and stores them. Products that are
// already stored are counted as duplicates.
func (s *ProductService) Scrape(ctx context.Context, term, zip string) (*ScrapeResult, error) {
	result, err := s.Collect(ctx, term, zip)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Save stores the products of a scrape result and updates its counters
func (s *ProductService) Save(ctx context.Context, result *ScrapeResult) error {
	for i := range result.Products {
		p := result.Products[i]
		err := s.Create(ctx, &p)
		switch {
		case err == nil:
			result.Created++
			result.Products[i] = p
		case errors.Is(err, model.ErrDuplicateProduct):
			result.Duplicates++
		default:
			return err
		}
	}
	s.log.Info("stored scraped products",
		zap.String("term", result.Term),
		zap.Int("created", result.Created),
		zap.Int("duplicates", result.Duplicates),
	)
	return nil
}

// Create stores a product. An existing product with the same item name,
// brand and provider is reported as model.ErrDuplicateProduct.
func (s *ProductService) Create(ctx context.Context, p *model.Product) error {
	p.ItemName = strings.TrimSpace(p.ItemName)
	p.Provider = strings.TrimSpace(p.Provider)
	p.Brand = strings.TrimSpace(p.Brand)
	if p.ItemName == "" || p.Provider == "" {
		return fmt.Errorf("%w: itemName and provider are required", ErrInvalidInput)
	}
	if p.Price < 0 || p.UnitAmountOz < 0 {
		return fmt.Errorf("%w: price and unitAmountOz must not be negative", ErrInvalidInput)
	}
	if p.Brand == "" {
		p.Brand = p.Provider
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Product{}).
		Where("item_name = ? AND brand = ? AND provider = ?", p.ItemName, p.Brand, p.Provider).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if count > 0 {
		return model.ErrDuplicateProduct
	}

	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.ErrDuplicateProduct
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// List returns stored products, cheapest first
func (s *ProductService) List(ctx context.Context, q types.ProductListQuery) ([]model.Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultProductLimit
	}
	if limit > maxProductLimit {
		limit = maxProductLimit
	}

	query := s.db.WithContext(ctx).Model(&model.Product{})
	if q.Provider != "" {
		query = query.Where("LOWER(provider) = ?", strings.ToLower(q.Provider))
	}
	if q.Category != "" {
		query = query.Where("LOWER(category) LIKE ? "+likeEscape, containsPattern(q.Category))
	}

	var products []model.Product
	if err := query.Order("price ASC").Order("item_name ASC").Limit(limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Lookup quotes the cheapest stored product per provider for an ingredient.
// When the unit is a weight or volume the amount is converted to ounces and
// the number of packages to buy is worked out.
func (s *ProductService) Lookup(ctx context.Context, ingredient string, amount float64, unit string) (*IngredientQuote, error) {
	ingredient = strings.TrimSpace(ingredient)
	if ingredient == "" {
		return nil, fmt.Errorf("%w: ingredient is required", ErrInvalidInput)
	}

	like := containsPattern(ingredient)
	var candidates []model.Product
	if err := s.db.WithContext(ctx).
		Where("LOWER(item_name) LIKE ? "+likeEscape+" OR LOWER(category) LIKE ? "+likeEscape, like, like).
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to look up products: %w", err)
	}

	cheapest := CheapestPerProvider(candidates)
	if len(cheapest) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoProducts, ingredient)
	}

	quote := &IngredientQuote{Ingredient: ingredient, Amount: amount, Unit: unit}
	if oz, ok := retailer.ToOunces(amount, unit); ok {
		quote.AmountOz = roundOz(oz)
	}

	for _, p := range cheapest {
		unitCost, _ := p.UnitCost()
		offer := ProductOffer{Product: p, UnitCost: math.Round(unitCost*10000) / 10000, Packages: 1, Cost: p.Price}
		if quote.AmountOz > 0 {
			offer.Packages = int(math.Ceil(quote.AmountOz / p.UnitAmountOz))
			offer.Cost = model.RoundCents(float64(offer.Packages) * p.Price)
			offer.ProratedCost = model.RoundCents(unitCost * quote.AmountOz)
		}
		quote.Offers = append(quote.Offers, offer)
	}
	sort.Slice(quote.Offers, func(i, j int) bool {
		if quote.Offers[i].Cost != quote.Offers[j].Cost {
			return quote.Offers[i].Cost < quote.Offers[j].Cost
		}
		return quote.Offers[i].Provider < quote.Offers[j].Provider
	})
	return quote, nil
}
