package copilot

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"

	"storeops-api/pkg/models"
)

// Classifier turns a free-text question into an ExtractionResult.
type Classifier interface {
	Classify(ctx context.Context, question string) (*models.ExtractionResult, error)
}

// IntentExtractor is the language-model call the ModelClassifier depends on.
type IntentExtractor interface {
	ExtractIntent(ctx context.Context, question string) (*models.ExtractionResult, error)
}

const defaultHorizonDays = 7

var (
	// "order"/"tracking" followed somewhere by '#' or the word "id" and digits.
	orderRefPattern = regexp.MustCompile(`(?:order|tracking).*(?:#|\bid\b)\s*\d+`)
	orderIDPattern  = regexp.MustCompile(`(?:#|id\s*)(\d+)`)
	// Catalog SKUs carry the VLM- prefix.
	skuPattern     = regexp.MustCompile(`\b[Vv][Ll][Mm]-[A-Za-z0-9-]+\b`)
	horizonPattern = regexp.MustCompile(`(\d+)\s*(?:day|days|week|weeks)`)

	postFixOrderIDPattern = regexp.MustCompile(`(?i)(?:#|id\s*)(\d+)`)
)

var (
	stockForecastKeywords = []string{"stock-out", "stock out", "forecast", "run out", "days left"}
	inventoryKeywords     = []string{"in stock", "out of stock", "not in stock", "available now", "which items are in stock", "which items are not in stock"}
	policyKeywords        = []string{"policy", "refund", "exchange", "warranty", "shipping"}
)

// HeuristicClassifier is the deterministic, dependency-free fallback.
// Rules are applied in order; the first match wins.
type HeuristicClassifier struct{}

// Classify never fails.
func (HeuristicClassifier) Classify(_ context.Context, question string) (*models.ExtractionResult, error) {
	q := strings.ToLower(question)
	result := &models.ExtractionResult{Intent: models.IntentUnknown}
	horizon := defaultHorizonDays
	result.HorizonDays = &horizon

	switch {
	case orderRefPattern.MatchString(q):
		result.Intent = models.IntentOrderStatus
		if m := orderIDPattern.FindStringSubmatch(q); m != nil {
			if id, err := strconv.Atoi(m[1]); err == nil {
				result.OrderID = &id
			}
		}

	case containsAny(q, stockForecastKeywords):
		result.Intent = models.IntentStockForecast
		if m := skuPattern.FindString(question); m != "" {
			sku := m
			result.SKU = &sku
		}
		if m := horizonPattern.FindStringSubmatch(q); m != nil {
			// Quirk kept from the shipped behavior: a week unit only maps to
			// seven days when the captured count is literally "1"; any other
			// count is taken verbatim whatever the unit says.
			if strings.Contains(q, "week") && m[1] == "1" {
				horizon = 7
			} else if n, err := strconv.Atoi(m[1]); err == nil {
				horizon = n
			}
			result.HorizonDays = &horizon
		}

	case containsAny(q, inventoryKeywords):
		result.Intent = models.IntentInventory
		stockQuery := inferStockQuery(q, false)
		result.StockQuery = &stockQuery

	case containsAny(q, policyKeywords):
		result.Intent = models.IntentPolicyQ
	}

	return result, nil
}

// ModelClassifier asks the language model once; any failure is surfaced so
// the composite can fall back.
type ModelClassifier struct {
	extractor IntentExtractor
}

// NewModelClassifier creates a model-backed classifier.
func NewModelClassifier(extractor IntentExtractor) *ModelClassifier {
	return &ModelClassifier{extractor: extractor}
}

// Classify delegates to the language model. One attempt, no retry.
func (c *ModelClassifier) Classify(ctx context.Context, question string) (*models.ExtractionResult, error) {
	return c.extractor.ExtractIntent(ctx, question)
}

// FallbackClassifier tries the primary classifier and degrades to the
// fallback on any error. With a heuristic fallback it never fails.
type FallbackClassifier struct {
	primary  Classifier
	fallback Classifier
}

// NewFallbackClassifier composes two classifiers.
func NewFallbackClassifier(primary, fallback Classifier) *FallbackClassifier {
	return &FallbackClassifier{primary: primary, fallback: fallback}
}

// Classify tries primary then fallback.
func (c *FallbackClassifier) Classify(ctx context.Context, question string) (*models.ExtractionResult, error) {
	if c.primary != nil {
		result, err := c.primary.Classify(ctx, question)
		if err == nil && result != nil {
			return result, nil
		}
		if err != nil {
			log.Printf("primary classifier failed, falling back to heuristics: %v", err)
		}
	}
	return c.fallback.Classify(ctx, question)
}

// PostFixExtraction repairs slots that either classifier may have missed.
// It is a pure function of (question, extraction) and is idempotent.
func PostFixExtraction(question string, ext models.ExtractionResult) models.ExtractionResult {
	if ext.OrderID == nil {
		if m := postFixOrderIDPattern.FindStringSubmatch(question); m != nil {
			if id, err := strconv.Atoi(m[1]); err == nil {
				ext.OrderID = &id
			}
		}
	}

	if ext.Intent == models.IntentInventory && ext.StockQuery == nil {
		q := strings.ToLower(question)
		stockQuery := inferStockQuery(q, true)
		ext.StockQuery = &stockQuery
	}

	return ext
}

// inferStockQuery maps availability keywords to a stock query. The post-fix
// variant also accepts the "oos" shorthand.
func inferStockQuery(q string, acceptOOS bool) string {
	switch {
	case strings.Contains(q, "not in stock") || strings.Contains(q, "out of stock") || (acceptOOS && strings.Contains(q, "oos")):
		return models.StockQueryOutOfStock
	case strings.Contains(q, "in stock") || strings.Contains(q, "available now"):
		return models.StockQueryInStock
	default:
		return models.StockQueryAll
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
