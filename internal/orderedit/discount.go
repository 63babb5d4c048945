package orderedit

import (
	"context"

	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// DiscountPercent computes the percentage needed to bring the replacement
// variant down to the subscription item's price:
//
//	max(0, (replacement - original) / replacement * 100)
//
// A cheaper or equal replacement yields 0. Prices arrive as decimal strings
// from the platform; anything unparsable or non-positive yields 0 with a
// warning, never an error. The discount is a best-effort adjustment.
func DiscountPercent(ctx context.Context, logg *logger.Logger, originalPrice, replacementPrice string) float64 {
	original, err := decimal.NewFromString(originalPrice)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "price", originalPrice), "unparsable original price; skipping discount")
		return 0
	}
	replacement, err := decimal.NewFromString(replacementPrice)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "price", replacementPrice), "unparsable replacement price; skipping discount")
		return 0
	}
	if !original.IsPositive() || !replacement.IsPositive() {
		logg.Warn(ctx, "non-positive price; skipping discount")
		return 0
	}
	if replacement.LessThanOrEqual(original) {
		return 0
	}
	percent := replacement.Sub(original).Div(replacement).Mul(decimal.NewFromInt(100))
	return percent.InexactFloat64()
}
