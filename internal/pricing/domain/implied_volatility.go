package domain

import "math"

// 隐含波动率求解器默认参数
const (
	DefaultIVInitialGuess        = 0.3
	DefaultIVTolerance           = 1e-6
	DefaultIVMaxIterations       = 100
	DefaultIVVegaFloor           = 1e-8
	DefaultIVLowerBound          = 1e-4
	DefaultIVUpperBound          = 5.0
	DefaultIVBisectionIterations = 200
)

// ivStepTolerance Newton 步长小于该值（相对 σ）即视为收敛
const ivStepTolerance = 1e-12

const (
	IVMethodNewton    = "newton"
	IVMethodBisection = "bisection"
)

// IVSolver 隐含波动率求解器
// 先用 Newton-Raphson，vega 过小或迭代耗尽时退化为有界区间二分
type IVSolver struct {
	InitialGuess        float64
	Tolerance           float64
	MaxIterations       int
	VegaFloor           float64
	Lower               float64
	Upper               float64
	BisectionIterations int
	// Model 为目标定价函数，nil 时使用 Black-Scholes；模型必须依赖 MarketState.Volatility
	Model PricingModel
}

// IVResult 求解结果
type IVResult struct {
	Volatility float64 `json:"volatility"`
	Iterations int     `json:"iterations"`
	Method     string  `json:"method"`
	Converged  bool    `json:"converged"`
}

// DefaultIVSolver 返回默认配置的求解器
func DefaultIVSolver() IVSolver {
	return IVSolver{
		InitialGuess:        DefaultIVInitialGuess,
		Tolerance:           DefaultIVTolerance,
		MaxIterations:       DefaultIVMaxIterations,
		VegaFloor:           DefaultIVVegaFloor,
		Lower:               DefaultIVLowerBound,
		Upper:               DefaultIVUpperBound,
		BisectionIterations: DefaultIVBisectionIterations,
	}
}

// ImpliedVolatility 使用默认求解器反推 Black-Scholes 隐含波动率
func ImpliedVolatility(observed float64, c OptionContract, m MarketState) (IVResult, error) {
	return DefaultIVSolver().Solve(observed, c, m)
}

func (s IVSolver) withDefaults() IVSolver {
	d := DefaultIVSolver()
	if s.InitialGuess <= 0 {
		s.InitialGuess = d.InitialGuess
	}
	if s.Tolerance <= 0 {
		s.Tolerance = d.Tolerance
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = d.MaxIterations
	}
	if s.VegaFloor <= 0 {
		s.VegaFloor = d.VegaFloor
	}
	if s.Lower <= 0 {
		s.Lower = d.Lower
	}
	if s.Upper <= s.Lower {
		s.Upper = d.Upper
	}
	if s.BisectionIterations <= 0 {
		s.BisectionIterations = d.BisectionIterations
	}
	if s.Model == nil {
		s.Model = BlackScholes{}
	}
	return s
}

// Solve 反推隐含波动率；市场状态中的波动率字段被忽略
func (s IVSolver) Solve(observed float64, c OptionContract, m MarketState) (IVResult, error) {
	s = s.withDefaults()
	const op = "implied_volatility"
	inputs := merge(c.inputs(), map[string]any{"observed_price": observed, "spot": m.Spot})

	if err := validatePair(op, c, m.WithVolatility(s.InitialGuess)); err != nil {
		return IVResult{}, err
	}
	if !isFinite(observed) || observed <= 0 {
		return IVResult{}, invalidInput(op, "observed price must be positive", inputs)
	}
	if c.Expiry <= 0 {
		return IVResult{}, invalidInput(op, "volatility is undefined at expiry", inputs)
	}
	if s.Model.Kind() == ModelBlackScholes && c.Style == StyleAmerican {
		return IVResult{}, notApplicable(op, "black-scholes objective cannot invert an american price", inputs)
	}

	price := func(sigma float64) (float64, error) {
		r, err := s.Model.Price(c, m.WithVolatility(sigma))
		return r.Value, err
	}
	vega := func(sigma float64) (float64, error) {
		if s.Model.Kind() == ModelBlackScholes {
			return bsGreeks(c.IsCall(), m.Spot, c.Strike, c.Expiry, m.RiskFreeRate, m.DividendYield, sigma).Vega, nil
		}
		h := math.Min(1e-4, sigma/2)
		up, err := price(sigma + h)
		if err != nil {
			return 0, err
		}
		dn, err := price(sigma - h)
		if err != nil {
			return 0, err
		}
		return (up - dn) / (2 * h), nil
	}

	// 相对容差：深度虚值报价同样按价格量级收敛
	tol := s.Tolerance * observed
	iterations := 0

	sigma := s.InitialGuess
	for iterations < s.MaxIterations {
		iterations++
		p, err := price(sigma)
		if err != nil {
			return IVResult{}, err
		}
		diff := p - observed
		if math.Abs(diff) < tol {
			return IVResult{Volatility: sigma, Iterations: iterations, Method: IVMethodNewton, Converged: true}, nil
		}
		v, err := vega(sigma)
		if err != nil {
			return IVResult{}, err
		}
		if !isFinite(v) || v < s.VegaFloor {
			break
		}
		next := sigma - diff/v
		if !isFinite(next) || next < s.Lower || next > s.Upper {
			break
		}
		if math.Abs(next-sigma) < ivStepTolerance*math.Max(1, sigma) {
			return IVResult{Volatility: next, Iterations: iterations, Method: IVMethodNewton, Converged: true}, nil
		}
		sigma = next
	}

	return s.bisect(op, observed, tol, iterations, price, inputs)
}

func (s IVSolver) bisect(op string, observed, tol float64, iterations int, price func(float64) (float64, error), inputs map[string]any) (IVResult, error) {
	lo, hi := s.Lower, s.Upper
	pl, err := price(lo)
	if err != nil {
		return IVResult{}, err
	}
	ph, err := price(hi)
	if err != nil {
		return IVResult{}, err
	}
	fl, fh := pl-observed, ph-observed
	if math.Abs(fl) < tol {
		return IVResult{Volatility: lo, Iterations: iterations, Method: IVMethodBisection, Converged: true}, nil
	}
	if math.Abs(fh) < tol {
		return IVResult{Volatility: hi, Iterations: iterations, Method: IVMethodBisection, Converged: true}, nil
	}
	if fl*fh > 0 {
		in := merge(inputs, map[string]any{"lower": lo, "upper": hi, "price_at_lower": pl, "price_at_upper": ph})
		return IVResult{}, nonConvergence(op, "observed price is outside the bracketed volatility range", in)
	}

	for i := 0; i < s.BisectionIterations; i++ {
		iterations++
		mid := 0.5 * (lo + hi)
		pm, err := price(mid)
		if err != nil {
			return IVResult{}, err
		}
		fm := pm - observed
		if math.Abs(fm) < tol || 0.5*(hi-lo) < 1e-12 {
			return IVResult{Volatility: mid, Iterations: iterations, Method: IVMethodBisection, Converged: true}, nil
		}
		if fl*fm < 0 {
			hi = mid
		} else {
			lo, fl = mid, fm
		}
	}
	in := merge(inputs, map[string]any{"iterations": iterations, "last_lower": lo, "last_upper": hi})
	return IVResult{}, nonConvergence(op, "bisection iteration budget exhausted", in)
}
