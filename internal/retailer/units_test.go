package retailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
		ok   bool
	}{
		{"ounces", "14 oz", 14, true},
		{"pound", "1 lb", 16, true},
		{"fractional pounds", "1.5 lbs", 24, true},
		{"fluid ounces", "16 fl oz", 16, true},
		{"grams", "500 g", 17.637, true},
		{"gallon", "1 gal", 128, true},
		{"multipack", "2 x 8 oz", 16, true},
		{"size inside title", "Firm Tofu - 14oz - Good & Gather", 14, true},
		{"spelled out", "12 Ounces", 12, true},
		{"count is not a weight", "12 ct", 0, false},
		{"each is not a weight", "1 each", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSize(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestOuncesFromUnitPrice(t *testing.T) {
	oz, ok := OuncesFromUnitPrice(3.5, "$0.25", "/ounce")
	assert.True(t, ok)
	assert.InDelta(t, 14, oz, 1e-9)

	oz, ok = OuncesFromUnitPrice(4, "$2.00", "/pound")
	assert.True(t, ok)
	assert.InDelta(t, 32, oz, 1e-9)

	oz, ok = OuncesFromUnitPrice(5.12, "$0.04", "/fluid ounce")
	assert.True(t, ok)
	assert.InDelta(t, 128, oz, 1e-9)

	_, ok = OuncesFromUnitPrice(3, "$0.50", "/count")
	assert.False(t, ok)
	_, ok = OuncesFromUnitPrice(3, "", "/ounce")
	assert.False(t, ok)
}

func TestParsePrice(t *testing.T) {
	p, ok := ParsePrice("$3.49")
	assert.True(t, ok)
	assert.Equal(t, 3.49, p)

	p, ok = ParsePrice("$2.99 - $4.99")
	assert.True(t, ok)
	assert.Equal(t, 2.99, p)

	p, ok = ParsePrice("$1,299.00")
	assert.True(t, ok)
	assert.Equal(t, 1299.0, p)

	_, ok = ParsePrice("see price in cart")
	assert.False(t, ok)
}

func TestToOunces(t *testing.T) {
	oz, ok := ToOunces(2, "cups")
	assert.True(t, ok)
	assert.Equal(t, 16.0, oz)

	_, ok = ToOunces(3, "cloves")
	assert.False(t, ok)
	_, ok = ToOunces(0, "oz")
	assert.False(t, ok)
}
