package copilot

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storeops-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpsStore struct {
	orders     map[int]*models.OrderStatus
	inStock    []models.StockItem
	outOfStock []models.StockItem
	err        error
	panics     bool
}

func (f *fakeOpsStore) GetOrderStatus(_ context.Context, orderID int) (*models.OrderStatus, error) {
	if f.panics {
		panic("store exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.orders[orderID], nil
}

func (f *fakeOpsStore) ListInStock(context.Context) ([]models.StockItem, error) {
	return f.inStock, f.err
}

func (f *fakeOpsStore) ListOutOfStock(context.Context) ([]models.StockItem, error) {
	return f.outOfStock, f.err
}

type fakeRetriever struct {
	snippets []models.Snippet
	err      error
	called   bool
	gotQuery string
	gotTopK  int
}

func (f *fakeRetriever) Search(_ context.Context, query string, topK int) ([]models.Snippet, error) {
	f.called = true
	f.gotQuery = query
	f.gotTopK = topK
	return f.snippets, f.err
}

func newTestPipeline(store *fakeOpsStore, forecastStore ForecastStore, retriever Retriever) *Pipeline {
	var forecaster *ForecastEngine
	if forecastStore != nil {
		forecaster = NewForecastEngine(forecastStore)
	}
	return NewPipeline(HeuristicClassifier{}, store, forecaster, retriever, NewComposer(nil))
}

func TestPipelineOrderStatus(t *testing.T) {
	store := &fakeOpsStore{orders: map[int]*models.OrderStatus{
		60: {ID: 60, Status: "shipped", Total: 99.5, CreatedAt: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)},
	}}
	pipeline := newTestPipeline(store, nil, nil)

	resp := pipeline.Ask(context.Background(), models.AskRequest{Question: "Where is order #60?"})

	require.NotNil(t, resp.Intent)
	assert.Equal(t, models.IntentOrderStatus, *resp.Intent)
	require.NotNil(t, resp.OrderID)
	assert.Equal(t, 60, *resp.OrderID)
	status, ok := resp.SQLResult.(*models.OrderStatus)
	require.True(t, ok)
	assert.Equal(t, "shipped", status.Status)
	require.NotNil(t, resp.Answer)
	assert.Contains(t, *resp.Answer, "shipped")
	assert.Nil(t, resp.Error)
}

func TestPipelineOrderNotFound(t *testing.T) {
	pipeline := newTestPipeline(&fakeOpsStore{orders: map[int]*models.OrderStatus{}}, nil, nil)

	resp := pipeline.Ask(context.Background(), models.AskRequest{Question: "Where is order #404?"})

	assert.Nil(t, resp.SQLResult)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Answer)
	assert.NotEmpty(t, *resp.Answer)
}

func TestPipelineMissingOrderID(t *testing.T) {
	extraction := &models.ExtractionResult{Intent: models.IntentOrderStatus}
	pipeline := NewPipeline(canned{result: extraction}, &fakeOpsStore{}, nil, nil, NewComposer(nil))

	resp := pipeline.Ask(context.Background(), models.AskRequest{Question: "where is my package?"})

	require.NotNil(t, resp.Error)
	assert.Equal(t, "Missing order id", *resp.Error)
	assert.Nil(t, resp.SQLResult)
	require.NotNil(t, resp.Answer)
	assert.NotEmpty(t, *resp.Answer)
}

func TestPipelineStockForecast(t *testing.T) {
	forecastStore := &fakeForecastStore{
		sold:    30,
		product: &models.ProductStock{SKU: "VLM-TEE-001", Qty: 5, Threshold: 3},
	}
	pipeline := newTestPipeline(&fakeOpsStore{}, forecastStore, nil)

	resp := pipeline.Ask(context.Background(), models.AskRequest{Question: "Will VLM-TEE-001 run out in 10 days?"})

	require.NotNil(t, resp.Intent)
	assert.Equal(t, models.IntentStockForecast, *resp.Intent)
	require.NotNil(t, resp.SKU)
	assert.Equal(t, "VLM-TEE-001", *resp.SKU)
	require.NotNil(t, resp.HorizonDays)
	assert.Equal(t, 10, *resp.HorizonDays)
	forecast, ok := resp.SQLResult.(*models.ForecastResult)
	require.True(t, ok)
	assert.Equal(t, models.RiskHigh, forecast.StockoutRisk)
}

func TestPipelineInventoryOutOfStock(t *testing.T) {
	store := &fakeOpsStore{
		inStock:    []models.StockItem{{SKU: "VLM-TEE-001", Qty: 20}},
		outOfStock: []models.StockItem{{SKU: "VLM-MUG-002", Qty: 0}},
	}
	pipeline := newTestPipeline(store, nil, nil)

	resp := pipeline.Ask(context.Background(), models.AskRequest{Question: "which items are not in stock?"})

	require.NotNil(t, resp.Intent)
	assert.Equal(t, models.IntentInventory, *resp.Intent)
	items, ok := resp.SQLResult.([]models.StockItem)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "VLM-MUG-002", items[0].SKU)
}

func TestPipelineInventoryAll(t *testing.T) {
	store := &fakeOpsStore{
		inStock:    []models.StockItem{{SKU: "VLM-TEE-001", Qty: 20}},
		outOfStock: []models.StockItem{{SKU: "VLM-MUG-002", Qty: 0}},
	}
	// A model extraction can name the inventory intent without an
	// availability keyword; the post-fixer then defaults the query to "all".
	classifier := canned{result: &models.ExtractionResult{Intent: models.IntentInventory}}
	pipeline := NewPipeline(classifier, store, nil, nil, NewComposer(nil))

	resp := pipeline.Ask(context.Background(), models.AskRequest{Question: "show me the inventory"})

	items, ok := resp.SQLResult.([]models.StockItem)
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestPipelinePolicyQuestion(t *testing.T) {
	retriever := &fakeRetriever{snippets: []models.Snippet{
		{Text: "Refunds are accepted within 30 days.", Source: "refunds.md", Score: 0.9},
	}}
	pipeline := newTestPipeline(&fakeOpsStore{}, nil, retriever)

	resp := pipeline.Ask(context.Background(), models.AskRequest{Question: "what is your refund policy?"})

	require.NotNil(t, resp.Intent)
	assert.Equal(t, models.IntentPolicyQ, *resp.Intent)
	assert.True(t, retriever.called)
	assert.Equal(t, 3, retriever.gotTopK)
	assert.Equal(t, []string{"refunds.md"}, resp.Citations)
	require.NotNil(t, resp.Answer)
	assert.Contains(t, *resp.Answer, "Refunds are accepted within 30 days.")
}

func TestPipelinePolicyWithoutDocuments(t *testing.T) {
	pipeline := newTestPipeline(&fakeOpsStore{}, nil, nil)

	resp := pipeline.Ask(context.Background(), models.AskRequest{Question: "what is your refund policy?"})

	require.NotNil(t, resp.Answer)
	assert.NotEmpty(t, *resp.Answer)
	assert.NotNil(t, resp.Citations)
	assert.Empty(t, resp.Citations)
	assert.Nil(t, resp.Error)
}

func TestPipelineRetrieverErrorDegrades(t *testing.T) {
	retriever := &fakeRetriever{err: context.DeadlineExceeded}
	pipeline := newTestPipeline(&fakeOpsStore{}, nil, retriever)

	resp := pipeline.Ask(context.Background(), models.AskRequest{Question: "what is your refund policy?"})

	assert.Nil(t, resp.Error)
	assert.Empty(t, resp.Citations)
	require.NotNil(t, resp.Answer)
	assert.NotEmpty(t, *resp.Answer)
}

func TestPipelineUseRAGFalseSkipsRetrieval(t *testing.T) {
	retriever := &fakeRetriever{snippets: []models.Snippet{{Text: "x", Source: "x.md"}}}
	pipeline := newTestPipeline(&fakeOpsStore{}, nil, retriever)
	useRAG := false

	resp := pipeline.Ask(context.Background(), models.AskRequest{
		Question: "what is your refund policy?",
		UseRAG:   &useRAG,
	})

	assert.False(t, retriever.called)
	assert.Empty(t, resp.Citations)
}

func TestPipelineTopKOverride(t *testing.T) {
	retriever := &fakeRetriever{}
	pipeline := newTestPipeline(&fakeOpsStore{}, nil, retriever)
	topK := 5

	pipeline.Ask(context.Background(), models.AskRequest{Question: "refund policy?", TopK: &topK})

	assert.Equal(t, 5, retriever.gotTopK)

	// Nonsense values fall back to the default.
	topK = 0
	pipeline.Ask(context.Background(), models.AskRequest{Question: "refund policy?", TopK: &topK})
	assert.Equal(t, 3, retriever.gotTopK)
}

func TestPipelinePanicIsRecovered(t *testing.T) {
	pipeline := newTestPipeline(&fakeOpsStore{panics: true}, nil, nil)

	var resp models.AskResponse
	assert.NotPanics(t, func() {
		resp = pipeline.Ask(context.Background(), models.AskRequest{Question: "Where is order #60?"})
	})

	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "internal pipeline failure")
	assert.Nil(t, resp.SQLResult)
	assert.NotNil(t, resp.Citations)
}

func TestPipelineResponseHasAllFields(t *testing.T) {
	pipeline := newTestPipeline(&fakeOpsStore{}, nil, nil)

	questions := []string{
		"Where is order #60?",
		"Will VLM-TEE-001 run out in 10 days?",
		"which items are not in stock?",
		"what is your refund policy?",
		"tell me a joke",
	}
	keys := []string{"intent", "order_id", "sku", "horizon_days", "answer", "sql_result", "citations", "error"}

	for _, question := range questions {
		resp := pipeline.Ask(context.Background(), models.AskRequest{Question: question})

		body, err := json.Marshal(resp)
		require.NoError(t, err, question)

		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(body, &decoded), question)
		for _, key := range keys {
			assert.Contains(t, decoded, key, "%s missing from %q response", key, question)
		}
	}
}

func TestPipelineClassifierFailureRoutesToRetrieval(t *testing.T) {
	retriever := &fakeRetriever{}
	pipeline := NewPipeline(failingClassifier{}, &fakeOpsStore{}, nil, retriever, NewComposer(nil))

	resp := pipeline.Ask(context.Background(), models.AskRequest{Question: "anything at all"})

	require.NotNil(t, resp.Intent)
	assert.Equal(t, models.IntentUnknown, *resp.Intent)
	assert.True(t, retriever.called)
	assert.Nil(t, resp.Error)
}
