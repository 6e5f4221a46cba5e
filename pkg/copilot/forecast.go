package copilot

import (
	"context"
	"math"
	"time"

	"storeops-api/pkg/models"
)

// ForecastStore provides the two reads the forecast engine needs.
type ForecastStore interface {
	// UnitsSold sums the quantity sold for a SKU over an inclusive range.
	UnitsSold(ctx context.Context, sku string, from, to time.Time) (int, error)
	// GetProductStock returns the product's inventory view, or (nil, nil)
	// for an unknown SKU.
	GetProductStock(ctx context.Context, sku string) (*models.ProductStock, error)
}

// salesLookbackDays is the trailing window the daily average is computed over.
const salesLookbackDays = 30

// ForecastEngine computes stockout risk from recent sales velocity.
type ForecastEngine struct {
	store ForecastStore
	// now is swappable for tests.
	now func() time.Time
}

// NewForecastEngine creates a forecast engine over the given store.
func NewForecastEngine(store ForecastStore) *ForecastEngine {
	return &ForecastEngine{store: store, now: time.Now}
}

// Forecast estimates how many days of cover remain for a SKU and flags the
// stockout risk against the requested horizon. An unknown SKU yields a zero
// quantity and a nil name rather than an error. The risk comparison uses
// unrounded values; the returned figures are rounded for display.
func (e *ForecastEngine) Forecast(ctx context.Context, sku string, horizonDays int) (*models.ForecastResult, error) {
	if horizonDays < 1 {
		horizonDays = 1
	}

	now := e.now().UTC()
	sold, err := e.store.UnitsSold(ctx, sku, now.AddDate(0, 0, -salesLookbackDays), now)
	if err != nil {
		return nil, err
	}

	product, err := e.store.GetProductStock(ctx, sku)
	if err != nil {
		return nil, err
	}

	currentQty := 0
	threshold := 0
	var name *string
	if product != nil {
		currentQty = product.Qty
		threshold = product.Threshold
		name = product.Name
	}

	dailyAvg := 0.0
	if sold > 0 {
		dailyAvg = float64(sold) / float64(salesLookbackDays)
	}
	denom := dailyAvg
	if denom <= 0 {
		denom = 0.01 // avoid division by zero for SKUs with no sales
	}
	daysLeft := float64(currentQty) / denom

	risk := models.RiskLow
	if daysLeft < float64(horizonDays) {
		risk = models.RiskHigh
	}

	return &models.ForecastResult{
		SKU:              sku,
		Name:             name,
		CurrentQty:       currentQty,
		Threshold:        threshold,
		AvgDailySales30d: round(dailyAvg, 2),
		DaysLeftEst:      round(daysLeft, 1),
		HorizonDays:      horizonDays,
		StockoutRisk:     risk,
	}, nil
}

func round(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
