package domain

import "time"

const (
	OptionPricedEventType          = "OptionPriced"
	GreeksCalculatedEventType      = "GreeksCalculated"
	StrategyAnalyzedEventType      = "StrategyAnalyzed"
	PricingErrorEventType          = "PricingError"
	BatchPricingCompletedEventType = "BatchPricingCompleted"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	EventID       string         `json:"event_id"`
	Underlying    string         `json:"underlying,omitempty"`
	Contract      OptionContract `json:"contract"`
	Market        MarketState    `json:"market"`
	Value         float64        `json:"value"`
	StandardError *float64       `json:"standard_error,omitempty"`
	Model         ModelKind      `json:"model"`
	Converged     bool           `json:"converged"`
	OccurredOn    time.Time      `json:"occurred_on"`
}

// GreeksCalculatedEvent 希腊字母计算完成事件
type GreeksCalculatedEvent struct {
	EventID    string         `json:"event_id"`
	Contract   OptionContract `json:"contract"`
	Market     MarketState    `json:"market"`
	Greeks     GreeksResult   `json:"greeks"`
	Model      ModelKind      `json:"model"`
	OccurredOn time.Time      `json:"occurred_on"`
}

// StrategyAnalyzedEvent 策略分析完成事件
type StrategyAnalyzedEvent struct {
	EventID    string       `json:"event_id"`
	Name       string       `json:"name"`
	Legs       int          `json:"legs"`
	NetPremium float64      `json:"net_premium"`
	MaxProfit  Bound        `json:"max_profit"`
	MaxLoss    Bound        `json:"max_loss"`
	BreakEvens []float64    `json:"break_evens"`
	Greeks     GreeksResult `json:"greeks"`
	OccurredOn time.Time    `json:"occurred_on"`
}

// PricingErrorEvent 定价错误事件
type PricingErrorEvent struct {
	EventID    string         `json:"event_id"`
	Operation  string         `json:"operation"`
	Kind       string         `json:"kind"`
	Message    string         `json:"message"`
	Inputs     map[string]any `json:"inputs,omitempty"`
	OccurredOn time.Time      `json:"occurred_on"`
}

// BatchPricingCompletedEvent 批量定价完成事件
type BatchPricingCompletedEvent struct {
	EventID    string    `json:"event_id"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	DurationMs int64     `json:"duration_ms"`
	OccurredOn time.Time `json:"occurred_on"`
}
