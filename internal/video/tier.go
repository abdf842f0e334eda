package video

import (
	"strings"

	"order_video/internal/apperr"

	"github.com/shopspring/decimal"
)

// Tier is the size of the video assigned to an order. Its value is the asset name.
type Tier string

const (
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
)

var (
	mediumFloor = decimal.NewFromInt(50)
	largeFloor  = decimal.NewFromInt(200)
)

// ParsePrice parses a platform money string such as "75.00".
// Empty, non-numeric and negative values are rejected.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, apperr.Validation("total_price is required")
	}
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Validation("total_price is not a number")
	}
	if p.IsNegative() {
		return decimal.Zero, apperr.Validation("total_price must not be negative")
	}
	return p, nil
}

// ClassifyVideo picks the tier: below 50 small, below 200 medium, otherwise large.
func ClassifyVideo(totalPrice decimal.Decimal) Tier {
	switch {
	case totalPrice.LessThan(mediumFloor):
		return TierSmall
	case totalPrice.LessThan(largeFloor):
		return TierMedium
	default:
		return TierLarge
	}
}

// AssetURL is the static asset for a tier under baseURL.
func AssetURL(baseURL string, t Tier) string {
	return strings.TrimRight(baseURL, "/") + "/" + string(t) + ".mp4"
}

// ResolveURL parses the price and returns the asset URL for it.
func ResolveURL(baseURL, totalPrice string) (string, Tier, error) {
	p, err := ParsePrice(totalPrice)
	if err != nil {
		return "", "", err
	}
	t := ClassifyVideo(p)
	return AssetURL(baseURL, t), t, nil
}
