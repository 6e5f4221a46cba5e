package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"storeops-api/pkg/models"
)

// AnswerWriter is the language-model call the composer uses to phrase a
// grounded answer. It may be nil or unavailable; composition still succeeds.
type AnswerWriter interface {
	ComposeAnswer(ctx context.Context, question, structured, snippets string) (string, error)
}

// maxCitations bounds the citation list on every response.
const maxCitations = 3

// snippetQuoteLimit bounds how much of a snippet the fallback answer quotes.
const snippetQuoteLimit = 300

// Composer produces the final answer and citation list from whatever the
// pipeline collected. It never returns an empty answer.
type Composer struct {
	writer AnswerWriter
}

// NewComposer creates a composer. writer may be nil for a model-free setup.
func NewComposer(writer AnswerWriter) *Composer {
	return &Composer{writer: writer}
}

// Compose fills state.Answer and state.Citations.
func (c *Composer) Compose(ctx context.Context, state *models.QueryState) {
	answer := ""
	if c.writer != nil {
		composed, err := c.writer.ComposeAnswer(ctx, state.Question, formatStructured(state.SQLResult), formatSnippets(state.Snippets))
		if err != nil {
			log.Printf("model composition failed, using template answer: %v", err)
		} else {
			answer = strings.TrimSpace(composed)
		}
	}
	if answer == "" {
		answer = c.templateAnswer(state)
	}

	state.Answer = answer
	state.Citations = buildCitations(state.Snippets)
}

// templateAnswer is the deterministic composition used when no model is
// configured or the model call failed.
func (c *Composer) templateAnswer(state *models.QueryState) string {
	switch result := state.SQLResult.(type) {
	case *models.OrderStatus:
		return fmt.Sprintf("Order #%d is %s (total %.2f, placed %s).",
			result.ID, result.Status, result.Total, result.CreatedAt.Format("2006-01-02"))

	case *models.ForecastResult:
		name := result.SKU
		if result.Name != nil && *result.Name != "" {
			name = fmt.Sprintf("%s (%s)", *result.Name, result.SKU)
		}
		if result.StockoutRisk == models.RiskHigh {
			return fmt.Sprintf("%s has %d units on hand, selling %.2f/day on average. That is an estimated %.1f days of cover, below your %d-day horizon. Stock-out risk is high.",
				name, result.CurrentQty, result.AvgDailySales30d, result.DaysLeftEst, result.HorizonDays)
		}
		return fmt.Sprintf("%s has %d units on hand, selling %.2f/day on average. That is an estimated %.1f days of cover against a %d-day horizon. Stock-out risk is low.",
			name, result.CurrentQty, result.AvgDailySales30d, result.DaysLeftEst, result.HorizonDays)

	case []models.StockItem:
		if len(result) == 0 {
			return "No items matched that inventory query."
		}
		parts := make([]string, 0, len(result))
		for i, item := range result {
			if i == 10 {
				parts = append(parts, fmt.Sprintf("and %d more", len(result)-10))
				break
			}
			parts = append(parts, fmt.Sprintf("%s (qty %d)", item.SKU, item.Qty))
		}
		return fmt.Sprintf("%d items matched: %s.", len(result), strings.Join(parts, ", "))
	}

	if state.Error != nil {
		return fmt.Sprintf("I couldn't complete that request: %s.", *state.Error)
	}

	if len(state.Snippets) > 0 {
		quote := strings.TrimSpace(state.Snippets[0].Text)
		if len(quote) > snippetQuoteLimit {
			quote = quote[:snippetQuoteLimit]
		}
		return fmt.Sprintf("From our policy documents: %s", quote)
	}

	return "I don't have information on that yet. Try asking about an order (#id), a SKU stock-out forecast, or current inventory."
}

// buildCitations collects up to maxCitations source identifiers from the
// retrieved snippets. No snippets means no citations.
func buildCitations(snippets []models.Snippet) []string {
	citations := make([]string, 0, maxCitations)
	for _, snippet := range snippets {
		if len(citations) == maxCitations {
			break
		}
		source := snippet.Source
		if source == "" {
			source = "policy"
		}
		citations = append(citations, source)
	}
	return citations
}

func formatStructured(result interface{}) string {
	if result == nil {
		return "null"
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%+v", result)
	}
	return string(encoded)
}

func formatSnippets(snippets []models.Snippet) string {
	if len(snippets) == 0 {
		return "none"
	}
	var b strings.Builder
	for i, snippet := range snippets {
		source := snippet.Source
		if source == "" {
			source = "policy"
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, source, snippet.Text)
	}
	return b.String()
}
