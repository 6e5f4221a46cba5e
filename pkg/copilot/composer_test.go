package copilot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storeops-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	answer string
	err    error
}

func (f fakeWriter) ComposeAnswer(context.Context, string, string, string) (string, error) {
	return f.answer, f.err
}

func TestComposerUsesWriterAnswer(t *testing.T) {
	composer := NewComposer(fakeWriter{answer: "Your order shipped yesterday."})
	state := &models.QueryState{Question: "where is my order?"}

	composer.Compose(context.Background(), state)

	assert.Equal(t, "Your order shipped yesterday.", state.Answer)
}

func TestComposerFallsBackOnWriterError(t *testing.T) {
	composer := NewComposer(fakeWriter{err: errors.New("rate limited")})
	state := &models.QueryState{
		Question: "where is order #60?",
		SQLResult: &models.OrderStatus{
			ID:        60,
			Status:    "shipped",
			Total:     42.5,
			CreatedAt: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC),
		},
	}

	composer.Compose(context.Background(), state)

	assert.Contains(t, state.Answer, "Order #60")
	assert.Contains(t, state.Answer, "shipped")
}

func TestComposerNeverReturnsEmptyAnswer(t *testing.T) {
	// An empty writer answer counts as a failure; the template takes over.
	composer := NewComposer(fakeWriter{answer: "   "})

	states := []*models.QueryState{
		{Question: "what's the handstand policy?"},
		{Question: "inventory?", SQLResult: []models.StockItem{}},
		{Question: "order?", Error: stringPtr("Missing order id")},
	}
	for _, state := range states {
		composer.Compose(context.Background(), state)
		assert.NotEmpty(t, strings.TrimSpace(state.Answer), state.Question)
	}
}

func TestComposerTemplateForecast(t *testing.T) {
	name := "Velmora Tee"
	composer := NewComposer(nil)
	state := &models.QueryState{
		Question: "will the tee run out?",
		SQLResult: &models.ForecastResult{
			SKU:              "VLM-TEE-001",
			Name:             &name,
			CurrentQty:       5,
			AvgDailySales30d: 1.0,
			DaysLeftEst:      5.0,
			HorizonDays:      10,
			StockoutRisk:     models.RiskHigh,
		},
	}

	composer.Compose(context.Background(), state)

	assert.Contains(t, state.Answer, "Velmora Tee (VLM-TEE-001)")
	assert.Contains(t, state.Answer, "high")
}

func TestComposerTemplateStockListCapped(t *testing.T) {
	items := make([]models.StockItem, 15)
	for i := range items {
		items[i] = models.StockItem{SKU: "VLM-X", Qty: i}
	}
	composer := NewComposer(nil)
	state := &models.QueryState{Question: "inventory", SQLResult: items}

	composer.Compose(context.Background(), state)

	assert.Contains(t, state.Answer, "15 items matched")
	assert.Contains(t, state.Answer, "and 5 more")
}

func TestComposerQuotesSnippetWithoutStructuredResult(t *testing.T) {
	composer := NewComposer(nil)
	state := &models.QueryState{
		Question: "what is your refund policy?",
		Snippets: []models.Snippet{{Text: "Refunds are accepted within 30 days.", Source: "refunds.md"}},
	}

	composer.Compose(context.Background(), state)

	assert.Contains(t, state.Answer, "Refunds are accepted within 30 days.")
	assert.Equal(t, []string{"refunds.md"}, state.Citations)
}

func TestComposerCitationsCappedAtThree(t *testing.T) {
	snippets := []models.Snippet{
		{Text: "a", Source: "one.md"},
		{Text: "b", Source: ""},
		{Text: "c", Source: "three.md"},
		{Text: "d", Source: "four.md"},
		{Text: "e", Source: "five.md"},
	}
	composer := NewComposer(nil)
	state := &models.QueryState{Question: "policy?", Snippets: snippets}

	composer.Compose(context.Background(), state)

	require.Len(t, state.Citations, 3)
	assert.Equal(t, []string{"one.md", "policy", "three.md"}, state.Citations)
}

func TestComposerNoSnippetsNoCitations(t *testing.T) {
	composer := NewComposer(nil)
	state := &models.QueryState{Question: "what is your refund policy?", Snippets: []models.Snippet{}}

	composer.Compose(context.Background(), state)

	assert.NotNil(t, state.Citations)
	assert.Empty(t, state.Citations)
	assert.NotEmpty(t, state.Answer)
}
