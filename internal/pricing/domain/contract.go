package domain

import (
	"math"
	"time"
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "CALL" // 看涨期权
	OptionTypePut  OptionType = "PUT"  // 看跌期权
)

// ExerciseStyle 行权方式
type ExerciseStyle string

const (
	StyleEuropean ExerciseStyle = "EUROPEAN" // 欧式期权
	StyleAmerican ExerciseStyle = "AMERICAN" // 美式期权
)

// Position 头寸方向
type Position string

const (
	PositionLong  Position = "LONG"
	PositionShort Position = "SHORT"
)

// Sign 多头为 +1，空头为 -1
func (p Position) Sign() float64 {
	if p == PositionShort {
		return -1
	}
	return 1
}

const daysPerYear = 365.0

// OptionContract 期权合约（值对象）
// Expiry 为剩余期限（年），Underlying 仅用于策略腿一致性校验
type OptionContract struct {
	Underlying string        `json:"underlying,omitempty"`
	Type       OptionType    `json:"type"`
	Strike     float64       `json:"strike"`
	Expiry     float64       `json:"expiry"`
	Style      ExerciseStyle `json:"style"`
}

// NewOptionContract 创建并校验合约
func NewOptionContract(optionType OptionType, strike, expiry float64, style ExerciseStyle) (OptionContract, error) {
	c := OptionContract{Type: optionType, Strike: strike, Expiry: expiry, Style: style}
	if c.Style == "" {
		c.Style = StyleEuropean
	}
	return c, c.Validate()
}

// Validate 校验合约字段
func (c OptionContract) Validate() error {
	if c.Type != OptionTypeCall && c.Type != OptionTypePut {
		return invalidInput("contract", "unknown option type", map[string]any{"type": c.Type})
	}
	if c.Style != StyleEuropean && c.Style != StyleAmerican {
		return invalidInput("contract", "unknown exercise style", map[string]any{"style": c.Style})
	}
	if !isFinite(c.Strike) || c.Strike <= 0 {
		return invalidInput("contract", "strike must be positive", map[string]any{"strike": c.Strike})
	}
	if !isFinite(c.Expiry) {
		return invalidInput("contract", "expiry must be finite", map[string]any{"expiry": c.Expiry})
	}
	return nil
}

// IsCall 是否为看涨期权
func (c OptionContract) IsCall() bool { return c.Type == OptionTypeCall }

// Intrinsic 给定标的价格下的内在价值
func (c OptionContract) Intrinsic(spot float64) float64 {
	if c.IsCall() {
		return math.Max(spot-c.Strike, 0)
	}
	return math.Max(c.Strike-spot, 0)
}

// WithExpiry 返回替换剩余期限后的副本
func (c OptionContract) WithExpiry(expiry float64) OptionContract {
	c.Expiry = expiry
	return c
}

// ExpiryFromDate 把绝对到期日换算为年化剩余期限（ACT/365），已过期返回 0
func ExpiryFromDate(expiry, now time.Time) float64 {
	years := expiry.Sub(now).Hours() / 24 / daysPerYear
	if years < 0 {
		return 0
	}
	return years
}

// MarketState 市场状态快照（值对象）
// 每次定价使用新的快照，With* 方法返回副本而非原地修改
type MarketState struct {
	Spot          float64 `json:"spot"`
	RiskFreeRate  float64 `json:"risk_free_rate"`
	DividendYield float64 `json:"dividend_yield"`
	Volatility    float64 `json:"volatility"`
}

// NewMarketState 创建并校验市场状态
func NewMarketState(spot, rate, dividend, vol float64) (MarketState, error) {
	m := MarketState{Spot: spot, RiskFreeRate: rate, DividendYield: dividend, Volatility: vol}
	return m, m.Validate()
}

// Validate 校验市场状态；波动率为 0 合法（退化极限），负数不合法
func (m MarketState) Validate() error {
	if !allFinite(m.Spot, m.RiskFreeRate, m.DividendYield, m.Volatility) {
		return invalidInput("market", "fields must be finite", m.inputs())
	}
	if m.Spot <= 0 {
		return invalidInput("market", "spot must be positive", m.inputs())
	}
	if m.DividendYield < 0 {
		return invalidInput("market", "dividend yield must be non-negative", m.inputs())
	}
	if m.Volatility < 0 {
		return invalidInput("market", "volatility must be non-negative", m.inputs())
	}
	return nil
}

func (m MarketState) inputs() map[string]any {
	return map[string]any{
		"spot":           m.Spot,
		"risk_free_rate": m.RiskFreeRate,
		"dividend_yield": m.DividendYield,
		"volatility":     m.Volatility,
	}
}

func (m MarketState) WithSpot(spot float64) MarketState {
	m.Spot = spot
	return m
}

func (m MarketState) WithVolatility(vol float64) MarketState {
	m.Volatility = vol
	return m
}

func (m MarketState) WithRate(rate float64) MarketState {
	m.RiskFreeRate = rate
	return m
}

// requirePositiveVol 供不支持退化极限的模型使用
func requirePositiveVol(op string, c OptionContract, m MarketState) error {
	if m.Volatility <= 0 {
		return invalidInput(op, "volatility must be positive for this model", merge(c.inputs(), m.inputs()))
	}
	return nil
}

func (c OptionContract) inputs() map[string]any {
	return map[string]any{
		"type":   c.Type,
		"strike": c.Strike,
		"expiry": c.Expiry,
		"style":  c.Style,
	}
}

func merge(maps ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func validatePair(op string, c OptionContract, m MarketState) error {
	if err := c.Validate(); err != nil {
		return withOp(err, op)
	}
	if err := m.Validate(); err != nil {
		return withOp(err, op)
	}
	return nil
}

func withOp(err error, op string) error {
	if pe, ok := AsPricingError(err); ok {
		cp := *pe
		cp.Op = op + "." + pe.Op
		return &cp
	}
	return err
}
