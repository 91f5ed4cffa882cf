// Package retailer talks to the grocery retailers' product search APIs and
// turns their responses into RawProduct records.
package retailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	ProviderTarget = "Target"
	ProviderKroger = "Kroger"
)

var (
	// ErrUpstream is returned when a retailer answers with a non-success status
	ErrUpstream = errors.New("retailer request failed")
	// ErrNoLocation is returned when no store is found near a zip code
	ErrNoLocation = errors.New("no store location near zip code")
)

// Provider searches one retailer's catalogue
type Provider interface {
	Name() string
	Search(ctx context.Context, term, zip string) ([]RawProduct, error)
}

// RawProduct is a retailer search hit before normalization
type RawProduct struct {
	Provider           string          `json:"provider"`
	Title              string          `json:"title"`
	Brand              string          `json:"brand"`
	Price              float64         `json:"price"`
	PriceFormatted     string          `json:"price_formatted,omitempty"`
	UnitPrice          string          `json:"unit_price,omitempty"`
	UnitPriceSuffix    string          `json:"unit_price_suffix,omitempty"`
	Size               string          `json:"size,omitempty"`
	Categories         []string        `json:"categories,omitempty"`
	BulletDescriptions []string        `json:"bullet_descriptions,omitempty"`
	SoftBullets        []string        `json:"soft_bullets,omitempty"`
	Raw                json.RawMessage `json:"-"`
}

// Category returns the most specific category reported by the retailer
func (p RawProduct) Category() string {
	if len(p.Categories) == 0 {
		return ""
	}
	return p.Categories[0]
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func upstreamError(provider string, resp *http.Response) error {
	return fmt.Errorf("%w: %s returned status %d", ErrUpstream, provider, resp.StatusCode)
}
