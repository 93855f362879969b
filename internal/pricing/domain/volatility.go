package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear 日频收益年化系数
const TradingDaysPerYear = 252

// HistoricalVolatility 对数收益率样本标准差年化
func HistoricalVolatility(closes []float64, periodsPerYear float64) (float64, error) {
	const op = "historical_volatility"
	if len(closes) < 3 {
		return 0, invalidInput(op, "need at least three prices", map[string]any{"count": len(closes)})
	}
	if periodsPerYear <= 0 {
		periodsPerYear = TradingDaysPerYear
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return 0, invalidInput(op, "prices must be positive", map[string]any{"index": i})
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	return stat.StdDev(returns, nil) * math.Sqrt(periodsPerYear), nil
}

// ChainQuote 期权链快照中的一行，由外部行情提供
type ChainQuote struct {
	Strike            float64    `json:"strike"`
	Expiry            float64    `json:"expiry"`
	Type              OptionType `json:"type"`
	Bid               float64    `json:"bid"`
	Ask               float64    `json:"ask"`
	ImpliedVolatility float64    `json:"implied_volatility,omitempty"`
}

// Mid 买卖中间价；单边报价时取有效的一侧
func (q ChainQuote) Mid() float64 {
	switch {
	case q.Bid > 0 && q.Ask > 0:
		return 0.5 * (q.Bid + q.Ask)
	case q.Ask > 0:
		return q.Ask
	default:
		return q.Bid
	}
}

// SmilePoint 波动率微笑上的一个点
type SmilePoint struct {
	Strike            float64    `json:"strike"`
	Expiry            float64    `json:"expiry"`
	Type              OptionType `json:"type"`
	Mid               float64    `json:"mid"`
	ImpliedVolatility float64    `json:"implied_volatility"`
	QuotedVolatility  float64    `json:"quoted_volatility,omitempty"`
	Method            string     `json:"method,omitempty"`
	Error             string     `json:"error,omitempty"`
}

// VolatilitySmile 用中间价逐行反推隐含波动率
// 单行失败记录在该行的 Error 中，不中断整条曲线
func VolatilitySmile(chain []ChainQuote, m MarketState, solver IVSolver) []SmilePoint {
	out := make([]SmilePoint, 0, len(chain))
	for _, q := range chain {
		pt := SmilePoint{Strike: q.Strike, Expiry: q.Expiry, Type: q.Type, Mid: q.Mid(), QuotedVolatility: q.ImpliedVolatility}
		c := OptionContract{Type: q.Type, Strike: q.Strike, Expiry: q.Expiry, Style: StyleEuropean}
		res, err := solver.Solve(pt.Mid, c, m)
		if err != nil {
			pt.Error = err.Error()
		} else {
			pt.ImpliedVolatility = res.Volatility
			pt.Method = res.Method
		}
		out = append(out, pt)
	}
	return out
}
