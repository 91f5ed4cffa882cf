package retailer

import (
	"regexp"
	"strconv"
	"strings"
)

// ouncesPer maps a unit of measure to ounces. Fluid ounces are treated as
// ounces so liquids and solids compare on the same scale.
var ouncesPer = map[string]float64{
	"oz":          1,
	"ounce":       1,
	"fl oz":       1,
	"fluid ounce": 1,
	"lb":          16,
	"pound":       16,
	"g":           0.035274,
	"gram":        0.035274,
	"kg":          35.274,
	"kilogram":    35.274,
	"ml":          0.033814,
	"milliliter":  0.033814,
	"l":           33.814,
	"liter":       33.814,
	"gal":         128,
	"gallon":      128,
	"qt":          32,
	"quart":       32,
	"pt":          16,
	"pint":        16,
	"cup":         8,
	"tbsp":        0.5,
	"tablespoon":  0.5,
	"tsp":         1.0 / 6,
	"teaspoon":    1.0 / 6,
}

var sizePattern = regexp.MustCompile(`(?i)(?:(\d+)\s*[x×]\s*)?(\d+(?:\.\d+)?|\.\d+)\s*(fl\.?\s*oz|fluid\s+ounces?|ounces?|oz|pounds?|lbs?|kilograms?|kg|grams?|g|milliliters?|ml|liters?|litres?|l|gallons?|gal|quarts?|qt|pints?|pt)\b`)

// ParseSize extracts a weight or volume from a size string or a product
// title ("14 oz", "1.5 lbs", "2 x 8 oz", "Tofu - 14oz - Brand") and converts
// it to ounces. Counts such as "12 ct" are not a size.
func ParseSize(s string) (float64, bool) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	qty, err := strconv.ParseFloat(m[2], 64)
	if err != nil || qty <= 0 {
		return 0, false
	}
	factor, ok := UnitOunces(m[3])
	if !ok {
		return 0, false
	}
	oz := qty * factor
	if m[1] != "" {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			oz *= float64(n)
		}
	}
	return oz, true
}

// UnitOunces returns how many ounces one of the given unit holds
func UnitOunces(unit string) (float64, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimPrefix(u, "/")
	u = strings.TrimPrefix(u, "per ")
	u = strings.ReplaceAll(u, ".", "")
	u = strings.Join(strings.Fields(u), " ")
	if f, ok := ouncesPer[u]; ok {
		return f, true
	}
	switch {
	case u == "litre" || u == "litres":
		return ouncesPer["liter"], true
	case u == "lbs":
		return ouncesPer["lb"], true
	case strings.HasSuffix(u, "es") && ouncesPer[strings.TrimSuffix(u, "es")] > 0:
		return ouncesPer[strings.TrimSuffix(u, "es")], true
	case strings.HasSuffix(u, "s") && ouncesPer[strings.TrimSuffix(u, "s")] > 0:
		return ouncesPer[strings.TrimSuffix(u, "s")], true
	}
	return 0, false
}

// ToOunces converts an amount in the given unit to ounces
func ToOunces(amount float64, unit string) (float64, bool) {
	if amount <= 0 {
		return 0, false
	}
	f, ok := UnitOunces(unit)
	if !ok {
		return 0, false
	}
	return amount * f, true
}

// OuncesFromUnitPrice derives the package size from the shelf price and the
// unit price ("$0.25" with suffix "/ounce").
func OuncesFromUnitPrice(price float64, unitPrice, suffix string) (float64, bool) {
	per, ok := ParsePrice(unitPrice)
	if !ok || price <= 0 {
		return 0, false
	}
	factor, ok := UnitOunces(suffix)
	if !ok {
		return 0, false
	}
	return price / per * factor, true
}

var pricePattern = regexp.MustCompile(`\d+(?:,\d{3})*(?:\.\d+)?`)

// ParsePrice reads the first amount from a formatted price such as "$3.49"
// or "$2.99 - $4.99".
func ParsePrice(s string) (float64, bool) {
	m := pricePattern.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}
