package domain

import "math"

const (
	DefaultBinomialSteps = 200
	MaxBinomialSteps     = 20000
)

// Binomial Cox-Ross-Rubinstein 二叉树，支持美式提前行权
type Binomial struct {
	Steps int `json:"steps"`
}

func (Binomial) Kind() ModelKind { return ModelBinomial }
func (Binomial) pricingModel()   {}

// Price 逆向归纳定价，美式节点取 max(持有价值, 内在价值)
func (b Binomial) Price(c OptionContract, m MarketState) (PricingResult, error) {
	const op = "binomial"
	if err := validatePair(op, c, m); err != nil {
		return PricingResult{}, err
	}
	if b.Steps <= 0 || b.Steps > MaxBinomialSteps {
		return PricingResult{}, invalidInput(op, "steps out of range", map[string]any{"steps": b.Steps, "max_steps": MaxBinomialSteps})
	}
	if c.Expiry <= 0 {
		return PricingResult{Value: c.Intrinsic(m.Spot), Model: ModelBinomial, Converged: true}, nil
	}
	if err := requirePositiveVol(op, c, m); err != nil {
		return PricingResult{}, err
	}

	n := b.Steps
	dt := c.Expiry / float64(n)
	u := math.Exp(m.Volatility * math.Sqrt(dt))
	d := 1 / u
	growth := math.Exp((m.RiskFreeRate - m.DividendYield) * dt)
	p := (growth - d) / (u - d)
	if !isFinite(p) || p < 0 || p > 1 {
		in := merge(c.inputs(), m.inputs(), map[string]any{"steps": n, "p": p})
		return PricingResult{}, instability(op, "risk-neutral probability outside [0,1], increase steps", in, nil)
	}
	disc := math.Exp(-m.RiskFreeRate * dt)
	pu, pd := disc*p, disc*(1-p)
	american := c.Style == StyleAmerican

	// values[j] 对应第 i 步上升 j 次的节点
	values := make([]float64, n+1)
	for j := 0; j <= n; j++ {
		values[j] = c.Intrinsic(m.Spot * math.Pow(u, float64(2*j-n)))
	}
	for i := n - 1; i >= 0; i-- {
		for j := 0; j <= i; j++ {
			cont := pu*values[j+1] + pd*values[j]
			if american {
				cont = math.Max(cont, c.Intrinsic(m.Spot*math.Pow(u, float64(2*j-i))))
			}
			values[j] = cont
		}
	}

	if !isFinite(values[0]) {
		return PricingResult{}, instability(op, "non-finite tree value", merge(c.inputs(), m.inputs()), nil)
	}
	return PricingResult{Value: values[0], Model: ModelBinomial, Converged: true, Iterations: n}, nil
}
