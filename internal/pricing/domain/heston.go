package domain

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/integrate/quad"
)

// Heston 积分默认参数
const (
	DefaultHestonIntegrationLimit = 200.0
	DefaultHestonPanels           = 40
	DefaultHestonNodesPerPanel    = 16
	DefaultHestonTolerance        = 1e-8
)

// Heston 随机波动率模型
// 定价使用 Gil-Pelaez 反演，对 [0, IntegrationLimit] 做分段 Gauss-Legendre 积分；
// 截断点处被积函数未衰减到 Tolerance 以下时 Converged=false。
type Heston struct {
	Kappa  float64 `json:"kappa"`
	Theta  float64 `json:"theta"`
	SigmaV float64 `json:"sigma_v"`
	Rho    float64 `json:"rho"`
	V0     float64 `json:"v0"`

	IntegrationLimit float64 `json:"integration_limit,omitempty"`
	Panels           int     `json:"panels,omitempty"`
	NodesPerPanel    int     `json:"nodes_per_panel,omitempty"`
	Tolerance        float64 `json:"tolerance,omitempty"`
}

func (Heston) Kind() ModelKind { return ModelHeston }
func (Heston) pricingModel()   {}

func (h Heston) withDefaults() Heston {
	if h.IntegrationLimit <= 0 {
		h.IntegrationLimit = DefaultHestonIntegrationLimit
	}
	if h.Panels <= 0 {
		h.Panels = DefaultHestonPanels
	}
	if h.NodesPerPanel <= 0 {
		h.NodesPerPanel = DefaultHestonNodesPerPanel
	}
	if h.Tolerance <= 0 {
		h.Tolerance = DefaultHestonTolerance
	}
	return h
}

// volatilityBump 对瞬时波动率 √V0 与长期波动率 √Theta 做同幅平移
// V0 为 0 时只能向上扰动，退化为前向差分
func (h Heston) volatilityBump() (PricingModel, PricingModel, float64) {
	s0, st := math.Sqrt(h.V0), math.Sqrt(h.Theta)
	step := math.Min(volBump, st/2)
	if s0 > 0 {
		step = math.Min(step, s0/2)
	}
	up := h
	up.V0 = (s0 + step) * (s0 + step)
	up.Theta = (st + step) * (st + step)
	if s0 == 0 {
		return up, h, step
	}
	dn := h
	dn.V0 = (s0 - step) * (s0 - step)
	dn.Theta = (st - step) * (st - step)
	return up, dn, 2 * step
}

func (h Heston) inputs() map[string]any {
	return map[string]any{
		"kappa":   h.Kappa,
		"theta":   h.Theta,
		"sigma_v": h.SigmaV,
		"rho":     h.Rho,
		"v0":      h.V0,
	}
}

// Validate 校验模型参数
func (h Heston) Validate() error {
	switch {
	case !allFinite(h.Kappa, h.Theta, h.SigmaV, h.Rho, h.V0):
		return invalidInput("heston", "parameters must be finite", h.inputs())
	case h.Kappa <= 0 || h.Theta <= 0 || h.SigmaV <= 0:
		return invalidInput("heston", "kappa, theta and sigma_v must be positive", h.inputs())
	case h.V0 < 0:
		return invalidInput("heston", "v0 must be non-negative", h.inputs())
	case h.Rho < -1 || h.Rho > 1:
		return invalidInput("heston", "rho must lie in [-1, 1]", h.inputs())
	}
	return nil
}

// Price 计算欧式期权价格；市场状态中的波动率被 V0 取代，vega 见 volatilityBump
func (h Heston) Price(c OptionContract, m MarketState) (PricingResult, error) {
	const op = "heston"
	if err := validatePair(op, c, m); err != nil {
		return PricingResult{}, err
	}
	if err := h.Validate(); err != nil {
		return PricingResult{}, err
	}
	if c.Style == StyleAmerican {
		return PricingResult{}, notApplicable(op, "characteristic function pricing is european only", c.inputs())
	}
	if c.Expiry <= 0 {
		return PricingResult{Value: c.Intrinsic(m.Spot), Model: ModelHeston, Converged: true}, nil
	}
	h = h.withDefaults()

	t := c.Expiry
	fwd := m.Spot * math.Exp((m.RiskFreeRate-m.DividendYield)*t)
	logK := math.Log(c.Strike)
	x0 := math.Log(m.Spot) + (m.RiskFreeRate-m.DividendYield)*t

	integrand := func(j int) func(float64) float64 {
		return func(u float64) float64 {
			iu := complex(0, u)
			var phi complex128
			if j == 1 {
				phi = h.charFunc(complex(u, -1), x0, t) / complex(fwd, 0)
			} else {
				phi = h.charFunc(complex(u, 0), x0, t)
			}
			return real(cmplx.Exp(-iu*complex(logK, 0)) * phi / iu)
		}
	}

	f1, f2 := integrand(1), integrand(2)
	i1 := h.integrate(f1)
	i2 := h.integrate(f2)
	p1 := 0.5 + i1/math.Pi
	p2 := 0.5 + i2/math.Pi

	in := merge(c.inputs(), m.inputs(), h.inputs())
	if !allFinite(p1, p2) {
		return PricingResult{}, instability(op, "characteristic function integral is not finite", in, nil)
	}

	dq := math.Exp(-m.DividendYield * t)
	df := math.Exp(-m.RiskFreeRate * t)
	call := m.Spot*dq*p1 - c.Strike*df*p2
	value, lower := call, math.Max(m.Spot*dq-c.Strike*df, 0)
	if !c.IsCall() {
		value = call - m.Spot*dq + c.Strike*df
		lower = math.Max(c.Strike*df-m.Spot*dq, 0)
	}

	tail := math.Max(math.Abs(f1(h.IntegrationLimit)), math.Abs(f2(h.IntegrationLimit)))
	res := PricingResult{
		Value:           value,
		Model:           ModelHeston,
		Converged:       isFinite(tail) && tail < h.Tolerance,
		Iterations:      2 * h.Panels * h.NodesPerPanel,
		TruncationError: tail,
	}
	if value < lower-1e-6 {
		partial := res
		return PricingResult{}, instability(op, "price below no-arbitrage bound", merge(in, map[string]any{"value": value, "lower_bound": lower}), &partial)
	}
	if value < lower {
		res.Value = lower
	}
	return res, nil
}

func (h Heston) integrate(f func(float64) float64) float64 {
	width := h.IntegrationLimit / float64(h.Panels)
	var sum float64
	for p := 0; p < h.Panels; p++ {
		a := float64(p) * width
		sum += quad.Fixed(f, a, a+width, h.NodesPerPanel, quad.Legendre{}, 0)
	}
	return sum
}

// charFunc ln(S_T) 的特征函数，采用 "little trap" 形式避免复对数跨越分支切割
func (h Heston) charFunc(u complex128, x0, t float64) complex128 {
	i := complex(0, 1)
	kappa := complex(h.Kappa, 0)
	sigma := complex(h.SigmaV, 0)
	sigma2 := sigma * sigma
	rho := complex(h.Rho, 0)
	tc := complex(t, 0)

	xi := kappa - rho*sigma*i*u
	d := cmplx.Sqrt(xi*xi + sigma2*(i*u+u*u))
	g := (xi - d) / (xi + d)
	edt := cmplx.Exp(-d * tc)

	cTerm := complex(h.Kappa*h.Theta, 0) / sigma2 * ((xi-d)*tc - 2*cmplx.Log((1-g*edt)/(1-g)))
	dTerm := (xi - d) / sigma2 * (1 - edt) / (1 - g*edt)
	return cmplx.Exp(i*u*complex(x0, 0) + cTerm + dTerm*complex(h.V0, 0))
}
