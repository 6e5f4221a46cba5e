package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storeops-api/pkg/azure"
	"storeops-api/pkg/models"
)

// extractionSystemPrompt instructs the model to classify a question and emit
// one JSON object matching the extraction schema.
const extractionSystemPrompt = `You are an intent classifier for a retail operations assistant.
Classify the user's question into exactly ONE intent from:
- order_status: queries about a specific order ID (#123 or id 123)
- stock_forecast: predict stock-out risk for a SKU (e.g., VLM-TEE-001) with a timeframe
- inventory: questions like 'which items are in stock/out of stock?'
- policy_q: questions about policy or SOPs
- unknown: anything else

If intent is inventory, set 'stock_query' to one of: 'in_stock', 'out_of_stock', or 'all'.
If an order ID is present (e.g., 'where is order #60'), extract it as integer 'order_id'.
If a SKU is present (e.g., 'VLM-TEE-001'), put it under 'sku'.
Set 'horizon_days' to a number if the user mentions a timeframe; default 7.

Return ONLY a single JSON object with the keys: intent, order_id, sku, horizon_days, stock_query.`

// composeSystemPrompt mirrors the copilot persona used when grounding an
// answer in SQL-backed facts and retrieved policy snippets.
const composeSystemPrompt = `You are Velmora StoreOps assistant. Answer briefly with any SQL-backed facts and cite policy snippets when used. ` +
	`If policy docs were retrieved, include 1 short quote with section/source if available. ` +
	`If the SQL result is a list of items (inventory), summarise the items.`

// AzureOpenAIService wraps the Azure OpenAI client for the copilot's two
// model calls (intent extraction, answer composition) and for embeddings.
type AzureOpenAIService struct {
	client *azure.OpenAIClient
}

// NewAzureOpenAIService creates a new Azure OpenAI service.
func NewAzureOpenAIService(endpoint, apiKey, apiVersion, chatDeploymentName, embeddingDeploymentName string) *AzureOpenAIService {
	client := azure.NewOpenAIClient(endpoint, apiKey, apiVersion, chatDeploymentName, embeddingDeploymentName)
	return &AzureOpenAIService{
		client: client,
	}
}

// Ready reports whether the underlying client is configured for calls.
func (aos *AzureOpenAIService) Ready() bool {
	return aos.client.Configured()
}

// ExtractIntent asks the model to classify the question and extract slots.
// The model is attempted once; any call or parse failure is returned to the
// caller so it can fall back to heuristic classification.
func (aos *AzureOpenAIService) ExtractIntent(ctx context.Context, question string) (*models.ExtractionResult, error) {
	messages := []azure.ChatMessage{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: question},
	}

	content, err := aos.client.ChatContent(ctx, messages, 300, 0.0, true)
	if err != nil {
		return nil, fmt.Errorf("intent extraction call failed: %w", err)
	}

	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(stripJSONFences(content)), &result); err != nil {
		return nil, fmt.Errorf("intent extraction returned malformed JSON: %w", err)
	}

	if !models.ValidIntent(result.Intent) {
		return nil, fmt.Errorf("intent extraction returned unknown intent %q", result.Intent)
	}

	return &result, nil
}

// ComposeAnswer asks the model for a grounded natural-language answer.
// structured and snippets are preformatted text blocks; either may be empty.
func (aos *AzureOpenAIService) ComposeAnswer(ctx context.Context, question, structured, snippets string) (string, error) {
	userPrompt := fmt.Sprintf("Question: %s\nSQL result: %s\nDocs: %s", question, structured, snippets)

	messages := []azure.ChatMessage{
		{Role: "system", Content: composeSystemPrompt},
		{Role: "user", Content: userPrompt},
	}

	content, err := aos.client.ChatContent(ctx, messages, 600, 0.2, false)
	if err != nil {
		return "", fmt.Errorf("answer composition call failed: %w", err)
	}

	return strings.TrimSpace(content), nil
}

// CreateEmbedding generates the vector representation of a text.
func (aos *AzureOpenAIService) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return aos.client.CreateEmbedding(ctx, text)
}

// stripJSONFences removes a surrounding markdown code fence and trims to the
// outermost JSON object, so fence-wrapped model output still parses.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
