package domain

import "fmt"

// 模型选择阈值
const (
	ShortDatedThreshold     = 0.1 // 年
	LongDatedThreshold      = 2.0 // 年
	HighVolatilityThreshold = 0.5
	// S/K 落在 [ExtremeMoneynessLow, ExtremeMoneynessHigh] 之外视为深度实值或虚值
	ExtremeMoneynessLow  = 0.8
	ExtremeMoneynessHigh = 1.2
)

// Heston 推荐参数：以当前波动率的平方作为初始与长期方差
const (
	recommendedHestonKappa  = 2.0
	recommendedHestonSigmaV = 0.5
	recommendedHestonRho    = -0.5
)

// 事件风险的默认跳跃参数
const (
	recommendedJumpIntensity = 1.0
	recommendedJumpMean      = -0.05
	recommendedJumpStdDev    = 0.1
)

// RecommendedHeston 以 vol 的平方为初始与长期方差的 Heston 参数
func RecommendedHeston(vol float64) Heston {
	v := vol * vol
	return Heston{Kappa: recommendedHestonKappa, Theta: v, SigmaV: recommendedHestonSigmaV, Rho: recommendedHestonRho, V0: v}
}

// RecommendedJumpDiffusion 事件风险的默认跳跃参数
func RecommendedJumpDiffusion() JumpDiffusion {
	return JumpDiffusion{Intensity: recommendedJumpIntensity, Mean: recommendedJumpMean, StdDev: recommendedJumpStdDev, MaxTerms: DefaultJumpMaxTerms}
}

// SelectionHints 合约与市场状态之外的选择信号
type SelectionHints struct {
	EventRisk     bool `json:"event_risk"`
	PathDependent bool `json:"path_dependent"`
}

// SelectionRule 规则表中的一行：条件 → 模型
type SelectionRule struct {
	Name    string
	Reason  string
	Matches func(c OptionContract, m MarketState, h SelectionHints) bool
	Model   func(c OptionContract, m MarketState) PricingModel
}

// Recommendation 推荐结果
type Recommendation struct {
	Model  PricingModel
	Rule   string
	Reason string
}

// selectionRules 按顺序匹配：行权方式与显式信号优先，其次期限、价值状态、波动率
var selectionRules = []SelectionRule{
	{
		Name:   "early_exercise",
		Reason: "american exercise needs a lattice for early-exercise checks",
		Matches: func(c OptionContract, _ MarketState, _ SelectionHints) bool {
			return c.Style == StyleAmerican
		},
		Model: func(OptionContract, MarketState) PricingModel { return Binomial{Steps: DefaultBinomialSteps} },
	},
	{
		Name:   "event_risk",
		Reason: "known event risk is modelled with poisson jumps",
		Matches: func(_ OptionContract, _ MarketState, h SelectionHints) bool {
			return h.EventRisk
		},
		Model: func(OptionContract, MarketState) PricingModel { return RecommendedJumpDiffusion() },
	},
	{
		Name:   "path_dependent",
		Reason: "path-dependent payoffs need simulated trajectories",
		Matches: func(_ OptionContract, _ MarketState, h SelectionHints) bool {
			return h.PathDependent
		},
		Model: func(OptionContract, MarketState) PricingModel { return DefaultMonteCarlo() },
	},
	{
		Name:   "short_dated",
		Reason: fmt.Sprintf("expiry within %.1f years is priced on a lattice", ShortDatedThreshold),
		Matches: func(c OptionContract, _ MarketState, _ SelectionHints) bool {
			return c.Expiry > 0 && c.Expiry < ShortDatedThreshold
		},
		Model: func(OptionContract, MarketState) PricingModel { return Binomial{Steps: DefaultBinomialSteps} },
	},
	{
		Name:   "long_dated",
		Reason: fmt.Sprintf("expiry beyond %.1f years", LongDatedThreshold),
		Matches: func(c OptionContract, _ MarketState, _ SelectionHints) bool {
			return c.Expiry > LongDatedThreshold
		},
		Model: func(OptionContract, MarketState) PricingModel { return DefaultMonteCarlo() },
	},
	{
		Name:   "extreme_moneyness",
		Reason: fmt.Sprintf("moneyness outside [%.1f, %.1f] is priced by simulation", ExtremeMoneynessLow, ExtremeMoneynessHigh),
		Matches: func(c OptionContract, m MarketState, _ SelectionHints) bool {
			mny := m.Spot / c.Strike
			return mny < ExtremeMoneynessLow || mny > ExtremeMoneynessHigh
		},
		Model: func(OptionContract, MarketState) PricingModel { return DefaultMonteCarlo() },
	},
	{
		Name:   "high_volatility",
		Reason: fmt.Sprintf("volatility above %.2f calls for stochastic variance", HighVolatilityThreshold),
		Matches: func(_ OptionContract, m MarketState, _ SelectionHints) bool {
			return m.Volatility > HighVolatilityThreshold
		},
		Model: func(_ OptionContract, m MarketState) PricingModel { return RecommendedHeston(m.Volatility) },
	},
	{
		Name:    "default",
		Reason:  "plain european contract",
		Matches: func(OptionContract, MarketState, SelectionHints) bool { return true },
		Model:   func(OptionContract, MarketState) PricingModel { return BlackScholes{} },
	},
}

// Rules 返回规则表副本，按匹配顺序排列
func Rules() []SelectionRule {
	out := make([]SelectionRule, len(selectionRules))
	copy(out, selectionRules)
	return out
}

// Recommend 按规则表推荐模型
func Recommend(c OptionContract, m MarketState) Recommendation {
	return RecommendWith(c, m, SelectionHints{})
}

// RecommendWith 带附加信号的推荐；第一条匹配的规则胜出
func RecommendWith(c OptionContract, m MarketState, h SelectionHints) Recommendation {
	for _, rule := range selectionRules {
		if !rule.Matches(c, m, h) {
			continue
		}
		return Recommendation{Model: rule.Model(c, m), Rule: rule.Name, Reason: rule.Reason}
	}
	// 默认规则总是匹配
	return Recommendation{Model: BlackScholes{}, Rule: "default"}
}
