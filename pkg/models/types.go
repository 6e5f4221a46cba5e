package models

import "time"

// Intent values produced by classification. Any other value routes to RAG.
const (
	IntentOrderStatus   = "order_status"
	IntentStockForecast = "stock_forecast"
	IntentInventory     = "inventory"
	IntentPolicyQ       = "policy_q"
	IntentUnknown       = "unknown"
)

// StockQuery values for the inventory intent.
const (
	StockQueryInStock    = "in_stock"
	StockQueryOutOfStock = "out_of_stock"
	StockQueryAll        = "all"
)

// ValidIntent reports whether s is one of the known intent values.
func ValidIntent(s string) bool {
	switch s {
	case IntentOrderStatus, IntentStockForecast, IntentInventory, IntentPolicyQ, IntentUnknown:
		return true
	}
	return false
}

// ExtractionResult is the structured output of a classifier: the intent plus
// whatever slots could be pulled out of the question.
type ExtractionResult struct {
	Intent      string  `json:"intent"`
	OrderID     *int    `json:"order_id,omitempty"`
	SKU         *string `json:"sku,omitempty"`
	HorizonDays *int    `json:"horizon_days,omitempty"`
	StockQuery  *string `json:"stock_query,omitempty"`
}

// Snippet is one retrieved policy-document fragment.
type Snippet struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float32 `json:"score"`
}

// QueryState is the per-request record threaded through the copilot pipeline.
// Stages only add or overwrite fields; a set Error does not stop the pipeline.
type QueryState struct {
	Question    string
	Intent      string
	OrderID     *int
	SKU         *string
	HorizonDays int
	StockQuery  string
	TopK        int
	UseRAG      *bool
	SQLResult   interface{}
	Snippets    []Snippet
	Answer      string
	Citations   []string
	Error       *string
}

// AskRequest is the inbound copilot question.
type AskRequest struct {
	Question string `json:"question"`
	UseRAG   *bool  `json:"use_rag"`
	TopK     *int   `json:"top_k"`
}

// AskResponse is the copilot answer. All fields are always present in the
// JSON body; absent values are null.
type AskResponse struct {
	Intent      *string     `json:"intent"`
	OrderID     *int        `json:"order_id"`
	SKU         *string     `json:"sku"`
	HorizonDays *int        `json:"horizon_days"`
	Answer      *string     `json:"answer"`
	SQLResult   interface{} `json:"sql_result"`
	Citations   []string    `json:"citations"`
	Error       *string     `json:"error"`
}

// OrderStatus is the point-lookup result for a single order.
type OrderStatus struct {
	ID        int       `json:"id"`
	Status    string    `json:"status"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// StockItem is one row of an inventory listing.
type StockItem struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	Threshold int    `json:"threshold"`
}

// ProductStock is the inventory view of a single product used by the
// forecast engine. Name is nil for an unknown SKU.
type ProductStock struct {
	SKU       string  `json:"sku"`
	Name      *string `json:"name"`
	Qty       int     `json:"qty"`
	Threshold int     `json:"threshold"`
}

// ForecastResult is a stockout-risk estimate for one SKU.
type ForecastResult struct {
	SKU              string  `json:"sku"`
	Name             *string `json:"name"`
	CurrentQty       int     `json:"current_qty"`
	Threshold        int     `json:"threshold"`
	AvgDailySales30d float64 `json:"avg_daily_sales_30d"`
	DaysLeftEst      float64 `json:"days_left_est"`
	HorizonDays      int     `json:"horizon_days"`
	StockoutRisk     string  `json:"stockout_risk"`
}

// Stockout risk levels.
const (
	RiskHigh = "high"
	RiskLow  = "low"
)

// Customer is a store customer record.
type Customer struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// CustomerInput is the create/update payload for a customer.
type CustomerInput struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Product is a catalog product joined with its inventory quantity.
type Product struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Threshold int     `json:"threshold"`
	Qty       int     `json:"qty"`
}

// ProductInput is the create (upsert) payload for a product.
type ProductInput struct {
	SKU       string  `json:"sku" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Price     float64 `json:"price"`
	Threshold int     `json:"threshold"`
	Qty       int     `json:"qty"`
}

// OrderItem is one line of an order. Price falls back to the product price
// when omitted on creation.
type OrderItem struct {
	SKU   string   `json:"sku"`
	Qty   int      `json:"qty"`
	Price *float64 `json:"price"`
	Name  string   `json:"name,omitempty"`
}

// Order is a store order with its line items.
type Order struct {
	ID         int         `json:"id"`
	CustomerID *int        `json:"customer_id"`
	Status     string      `json:"status"`
	Total      float64     `json:"total"`
	CreatedAt  time.Time   `json:"created_at"`
	Items      []OrderItem `json:"items"`
}

// OrderInput is the create payload for an order.
type OrderInput struct {
	CustomerID *int        `json:"customer_id"`
	Items      []OrderItem `json:"items" binding:"required"`
}

// WeekBucket is an order count + revenue total over one seven-day window.
type WeekBucket struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// WeekOverWeek compares the trailing seven days against the seven before.
type WeekOverWeek struct {
	PrevWeek WeekBucket `json:"prev_week"`
	CurrWeek WeekBucket `json:"curr_week"`
}
