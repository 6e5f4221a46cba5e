package copilot

import (
	"context"
	"fmt"
	"log"

	"storeops-api/pkg/models"
)

// OpsStore provides the point reads the domain handlers need.
type OpsStore interface {
	// GetOrderStatus returns (nil, nil) when the order does not exist.
	GetOrderStatus(ctx context.Context, orderID int) (*models.OrderStatus, error)
	ListInStock(ctx context.Context) ([]models.StockItem, error)
	ListOutOfStock(ctx context.Context) ([]models.StockItem, error)
}

// Retriever fetches policy snippets for a free-text query.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]models.Snippet, error)
}

const defaultTopK = 3

// Pipeline is the copilot's query orchestrator: classify, route to exactly
// one domain handler, compose. One instance serves concurrent requests; all
// per-request state lives in the QueryState.
type Pipeline struct {
	classifier Classifier
	store      OpsStore
	forecaster *ForecastEngine
	retriever  Retriever
	composer   *Composer
}

// NewPipeline wires the pipeline stages.
func NewPipeline(classifier Classifier, store OpsStore, forecaster *ForecastEngine, retriever Retriever, composer *Composer) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		store:      store,
		forecaster: forecaster,
		retriever:  retriever,
		composer:   composer,
	}
}

// Ask runs one question through the pipeline. It never panics: any escape is
// recovered into a response with null structured fields and Error set.
func (p *Pipeline) Ask(ctx context.Context, req models.AskRequest) (resp models.AskResponse) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("copilot pipeline panic: %v", r)
			message := fmt.Sprintf("internal pipeline failure: %v", r)
			resp = models.AskResponse{
				Citations: []string{},
				Error:     &message,
			}
		}
	}()

	state := newQueryState(req)

	p.classify(ctx, state)

	// The single routing point. Anything that is not one of the three
	// structured intents, including policy_q and unknown, goes to retrieval.
	switch state.Intent {
	case models.IntentOrderStatus:
		p.handleOrderStatus(ctx, state)
	case models.IntentStockForecast:
		p.handleStockForecast(ctx, state)
	case models.IntentInventory:
		p.handleInventory(ctx, state)
	default:
		p.handleRetrieval(ctx, state)
	}

	// Compose always runs, even after a handler error.
	p.composer.Compose(ctx, state)

	return buildResponse(state)
}

func newQueryState(req models.AskRequest) *models.QueryState {
	topK := defaultTopK
	if req.TopK != nil && *req.TopK >= 1 {
		topK = *req.TopK
	}
	return &models.QueryState{
		Question:    req.Question,
		HorizonDays: defaultHorizonDays,
		TopK:        topK,
		UseRAG:      req.UseRAG,
	}
}

// classify runs the classifier chain and the slot post-fixer, then copies the
// extraction into the state. Intent is set exactly once here.
func (p *Pipeline) classify(ctx context.Context, state *models.QueryState) {
	extraction, err := p.classifier.Classify(ctx, state.Question)
	if err != nil || extraction == nil {
		// The fallback classifier cannot fail; a custom classifier might.
		if err != nil {
			log.Printf("classification failed: %v", err)
		}
		extraction = &models.ExtractionResult{Intent: models.IntentUnknown}
	}

	fixed := PostFixExtraction(state.Question, *extraction)

	state.Intent = fixed.Intent
	state.OrderID = fixed.OrderID
	state.SKU = fixed.SKU
	if fixed.HorizonDays != nil && *fixed.HorizonDays > 0 {
		state.HorizonDays = *fixed.HorizonDays
	}
	if fixed.StockQuery != nil {
		state.StockQuery = *fixed.StockQuery
	}
}

func (p *Pipeline) handleOrderStatus(ctx context.Context, state *models.QueryState) {
	if state.OrderID == nil {
		state.Error = stringPtr("Missing order id")
		return
	}
	if p.store == nil {
		state.Error = stringPtr("order store is not available")
		return
	}

	orderStatus, err := p.store.GetOrderStatus(ctx, *state.OrderID)
	if err != nil {
		state.Error = stringPtr(err.Error())
		return
	}
	if orderStatus == nil {
		// Not found is not an error; the composer reports it.
		return
	}
	state.SQLResult = orderStatus
}

func (p *Pipeline) handleStockForecast(ctx context.Context, state *models.QueryState) {
	if state.SKU == nil {
		state.Error = stringPtr("Missing SKU")
		return
	}
	if p.forecaster == nil {
		state.Error = stringPtr("forecast engine is not available")
		return
	}

	forecast, err := p.forecaster.Forecast(ctx, *state.SKU, state.HorizonDays)
	if err != nil {
		state.Error = stringPtr(err.Error())
		return
	}
	state.HorizonDays = forecast.HorizonDays
	state.SQLResult = forecast
}

func (p *Pipeline) handleInventory(ctx context.Context, state *models.QueryState) {
	if p.store == nil {
		state.Error = stringPtr("inventory store is not available")
		return
	}

	var items []models.StockItem
	var err error
	switch state.StockQuery {
	case models.StockQueryInStock:
		items, err = p.store.ListInStock(ctx)
	case models.StockQueryOutOfStock:
		items, err = p.store.ListOutOfStock(ctx)
	default:
		var inStock, outOfStock []models.StockItem
		inStock, err = p.store.ListInStock(ctx)
		if err == nil {
			outOfStock, err = p.store.ListOutOfStock(ctx)
			items = append(inStock, outOfStock...)
		}
	}
	if err != nil {
		state.Error = stringPtr(err.Error())
		return
	}
	state.SQLResult = items
}

func (p *Pipeline) handleRetrieval(ctx context.Context, state *models.QueryState) {
	state.Snippets = []models.Snippet{}

	if state.UseRAG != nil && !*state.UseRAG {
		return
	}
	if p.retriever == nil {
		return
	}

	snippets, err := p.retriever.Search(ctx, state.Question, state.TopK)
	if err != nil {
		// Retriever unavailability degrades to zero snippets, not an error.
		log.Printf("retrieval failed, answering without snippets: %v", err)
		return
	}
	state.Snippets = snippets
}

// buildResponse maps the final state onto the outbound shape. All eight
// fields are present; unset ones are null.
func buildResponse(state *models.QueryState) models.AskResponse {
	resp := models.AskResponse{
		OrderID:   state.OrderID,
		SKU:       state.SKU,
		SQLResult: state.SQLResult,
		Citations: state.Citations,
		Error:     state.Error,
	}
	if state.Intent != "" {
		intent := state.Intent
		resp.Intent = &intent
	}
	horizon := state.HorizonDays
	resp.HorizonDays = &horizon
	answer := state.Answer
	resp.Answer = &answer
	if resp.Citations == nil {
		resp.Citations = []string{}
	}
	return resp
}

func stringPtr(s string) *string {
	return &s
}
