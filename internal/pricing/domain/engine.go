package domain

import (
	"context"
	"math"
)

// 数值 Greeks 的扰动步长
const (
	spotBumpRatio = 0.01
	volBump       = 0.01
	rateBump      = 1e-4
	timeBump      = 1.0 / daysPerYear
)

// Price 使用指定模型定价，model 为 nil 时使用 Black-Scholes
func Price(c OptionContract, m MarketState, model PricingModel) (PricingResult, error) {
	if model == nil {
		model = BlackScholes{}
	}
	return model.Price(c, m)
}

// Greeks 计算 Greeks：模型提供解析解时直接使用，否则做中心差分
func Greeks(c OptionContract, m MarketState, model PricingModel) (GreeksResult, error) {
	if model == nil {
		model = BlackScholes{}
	}
	if gm, ok := model.(GreeksModel); ok {
		return gm.Greeks(c, m)
	}
	return NumericalGreeks(c, m, model)
}

// varianceModel 波动率来自模型自身参数而非 MarketState 的模型
// volatilityBump 返回 vega 差分的上下两个模型及二者之间的波动率距离
type varianceModel interface {
	PricingModel
	volatilityBump() (up, down PricingModel, width float64)
}

// NumericalGreeks 通过重定价的中心差分估计 Greeks
// 蒙特卡洛模型在每次重定价中复用同一种子（公共随机数）
func NumericalGreeks(c OptionContract, m MarketState, model PricingModel) (GreeksResult, error) {
	base, err := model.Price(c, m)
	if err != nil {
		return GreeksResult{}, err
	}
	v0 := base.Value
	price := func(cc OptionContract, mm MarketState) (float64, error) {
		r, err := model.Price(cc, mm)
		return r.Value, err
	}

	var g GreeksResult
	hs := spotBumpRatio * m.Spot
	up, err := price(c, m.WithSpot(m.Spot+hs))
	if err != nil {
		return GreeksResult{}, err
	}
	dn, err := price(c, m.WithSpot(m.Spot-hs))
	if err != nil {
		return GreeksResult{}, err
	}
	g.Delta = (up - dn) / (2 * hs)
	g.Gamma = (up - 2*v0 + dn) / (hs * hs)

	if vm, ok := model.(varianceModel); ok {
		upModel, dnModel, width := vm.volatilityBump()
		upRes, err := upModel.Price(c, m)
		if err != nil {
			return GreeksResult{}, err
		}
		dnRes, err := dnModel.Price(c, m)
		if err != nil {
			return GreeksResult{}, err
		}
		g.Vega = (upRes.Value - dnRes.Value) / width
	} else if m.Volatility > 0 {
		hv := math.Min(volBump, m.Volatility/2)
		up, err = price(c, m.WithVolatility(m.Volatility+hv))
		if err != nil {
			return GreeksResult{}, err
		}
		dn, err = price(c, m.WithVolatility(m.Volatility-hv))
		if err != nil {
			return GreeksResult{}, err
		}
		g.Vega = (up - dn) / (2 * hv)
	}

	up, err = price(c, m.WithRate(m.RiskFreeRate+rateBump))
	if err != nil {
		return GreeksResult{}, err
	}
	dn, err = price(c, m.WithRate(m.RiskFreeRate-rateBump))
	if err != nil {
		return GreeksResult{}, err
	}
	g.Rho = (up - dn) / (2 * rateBump)

	if c.Expiry > 0 {
		later, err := price(c.WithExpiry(c.Expiry+timeBump), m)
		if err != nil {
			return GreeksResult{}, err
		}
		if c.Expiry > timeBump {
			earlier, err := price(c.WithExpiry(c.Expiry-timeBump), m)
			if err != nil {
				return GreeksResult{}, err
			}
			g.Theta = (earlier - later) / (2 * timeBump)
		} else {
			g.Theta = (v0 - later) / timeBump
		}
	}
	return g, nil
}

// PricePayoff 对收益函数定价；路径依赖收益只能由蒙特卡洛处理
func PricePayoff(ctx context.Context, payoff Payoff, expiry float64, m MarketState, model PricingModel) (PricingResult, error) {
	const op = "price_payoff"
	if model == nil {
		model = BlackScholes{}
	}
	if mc, ok := model.(MonteCarlo); ok {
		return mc.PricePayoff(ctx, payoff, expiry, m)
	}
	if err := validatePayoff(op, payoff); err != nil {
		return PricingResult{}, err
	}
	vanilla, ok := payoff.(VanillaPayoff)
	if !ok || payoff.PathDependent() {
		return PricingResult{}, notApplicable(op, "payoff requires path simulation", map[string]any{"payoff": payoff.Name(), "model": model.Kind()})
	}
	c := OptionContract{Type: vanilla.Type, Strike: vanilla.Strike, Expiry: expiry, Style: StyleEuropean}
	return model.Price(c, m)
}

// ModelComparison 多模型对比中的一行
type ModelComparison struct {
	Model  ModelKind     `json:"model"`
	Result PricingResult `json:"result"`
	// DiffFromBlackScholes 相对 Black-Scholes 的价差，参考价不可得时为 nil
	DiffFromBlackScholes *float64 `json:"diff_from_black_scholes,omitempty"`
	Err                  error    `json:"-"`
}

// CompareModels 用多个模型对同一合约定价，单个模型失败不影响其他模型
func CompareModels(c OptionContract, m MarketState, models ...PricingModel) []ModelComparison {
	ref, refErr := BlackScholes{}.Price(c, m)
	out := make([]ModelComparison, 0, len(models))
	for _, model := range models {
		res, err := Price(c, m, model)
		row := ModelComparison{Model: model.Kind(), Result: res, Err: err}
		if err == nil && refErr == nil {
			row.DiffFromBlackScholes = float64Ptr(res.Value - ref.Value)
		}
		out = append(out, row)
	}
	return out
}
