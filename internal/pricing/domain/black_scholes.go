package domain

import "math"

// BlackScholes 欧式期权闭式解
type BlackScholes struct{}

func (BlackScholes) Kind() ModelKind { return ModelBlackScholes }
func (BlackScholes) pricingModel()   {}

// Price 计算 Black-Scholes 价格
// T<=0 返回内在价值；σ=0 返回按确定性远期计算的贴现内在价值
func (BlackScholes) Price(c OptionContract, m MarketState) (PricingResult, error) {
	if err := checkBlackScholes(c, m); err != nil {
		return PricingResult{}, err
	}
	v := bsPrice(c.IsCall(), m.Spot, c.Strike, c.Expiry, m.RiskFreeRate, m.DividendYield, m.Volatility)
	if !isFinite(v) {
		return PricingResult{}, instability("black_scholes", "closed form overflowed", merge(c.inputs(), m.inputs()), nil)
	}
	return PricingResult{Value: v, Model: ModelBlackScholes, Converged: true}, nil
}

// Greeks 计算解析 Greeks
func (BlackScholes) Greeks(c OptionContract, m MarketState) (GreeksResult, error) {
	if err := checkBlackScholes(c, m); err != nil {
		return GreeksResult{}, err
	}
	g := bsGreeks(c.IsCall(), m.Spot, c.Strike, c.Expiry, m.RiskFreeRate, m.DividendYield, m.Volatility)
	if !allFinite(g.Delta, g.Gamma, g.Theta, g.Vega, g.Rho) {
		return GreeksResult{}, instability("black_scholes", "greeks overflowed", merge(c.inputs(), m.inputs()), nil)
	}
	return g, nil
}

func checkBlackScholes(c OptionContract, m MarketState) error {
	if err := validatePair("black_scholes", c, m); err != nil {
		return err
	}
	if c.Style == StyleAmerican {
		return notApplicable("black_scholes", "closed form only prices european exercise", c.inputs())
	}
	return nil
}

func d1d2(s, k, t, r, q, sigma float64) (float64, float64) {
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	return d1, d1 - sigma*sqrtT
}

// bsPrice 不做参数校验，q 可为负（跳扩散各项调整后的有效股息率）
func bsPrice(isCall bool, s, k, t, r, q, sigma float64) float64 {
	if t <= 0 {
		if isCall {
			return math.Max(s-k, 0)
		}
		return math.Max(k-s, 0)
	}
	df := math.Exp(-r * t)
	fwd := s * math.Exp(-q*t)
	if sigma <= 0 {
		if isCall {
			return math.Max(fwd-k*df, 0)
		}
		return math.Max(k*df-fwd, 0)
	}
	d1, d2 := d1d2(s, k, t, r, q, sigma)
	if isCall {
		return fwd*normCDF(d1) - k*df*normCDF(d2)
	}
	return k*df*normCDF(-d2) - fwd*normCDF(-d1)
}

func bsGreeks(isCall bool, s, k, t, r, q, sigma float64) GreeksResult {
	if t <= 0 {
		var g GreeksResult
		switch {
		case isCall && s > k:
			g.Delta = 1
		case !isCall && s < k:
			g.Delta = -1
		}
		return g
	}
	df := math.Exp(-r * t)
	dq := math.Exp(-q * t)
	if sigma <= 0 {
		var g GreeksResult
		fwd := s * dq
		switch {
		case isCall && fwd > k*df:
			g.Delta = dq
		case !isCall && fwd < k*df:
			g.Delta = -dq
		}
		return g
	}

	sqrtT := math.Sqrt(t)
	d1, d2 := d1d2(s, k, t, r, q, sigma)
	pdf := normPDF(d1)

	g := GreeksResult{
		Gamma: dq * pdf / (s * sigma * sqrtT),
		Vega:  s * dq * pdf * sqrtT,
	}
	decay := -s * dq * pdf * sigma / (2 * sqrtT)
	if isCall {
		g.Delta = dq * normCDF(d1)
		g.Theta = decay - r*k*df*normCDF(d2) + q*s*dq*normCDF(d1)
		g.Rho = k * t * df * normCDF(d2)
	} else {
		g.Delta = dq * (normCDF(d1) - 1)
		g.Theta = decay + r*k*df*normCDF(-d2) - q*s*dq*normCDF(-d1)
		g.Rho = -k * t * df * normCDF(-d2)
	}
	return g
}
