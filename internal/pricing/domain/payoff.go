package domain

import "math"

// Payoff 蒙特卡洛收益函数
// path[0] 为初始价格，path[len(path)-1] 为到期价格
type Payoff interface {
	Name() string
	Evaluate(path []float64) float64
	PathDependent() bool
}

// VanillaPayoff 普通欧式收益，只依赖到期价格
type VanillaPayoff struct {
	Type   OptionType `json:"type"`
	Strike float64    `json:"strike"`
}

func (p VanillaPayoff) Name() string        { return "vanilla_" + string(p.Type) }
func (p VanillaPayoff) PathDependent() bool { return false }

func (p VanillaPayoff) Evaluate(path []float64) float64 {
	return intrinsic(p.Type, p.Strike, path[len(path)-1])
}

// BarrierKind 障碍类型
type BarrierKind string

const (
	BarrierDownAndOut BarrierKind = "DOWN_AND_OUT"
	BarrierDownAndIn  BarrierKind = "DOWN_AND_IN"
	BarrierUpAndOut   BarrierKind = "UP_AND_OUT"
	BarrierUpAndIn    BarrierKind = "UP_AND_IN"
)

// BarrierPayoff 离散监控的障碍期权
type BarrierPayoff struct {
	Type    OptionType  `json:"type"`
	Strike  float64     `json:"strike"`
	Barrier float64     `json:"barrier"`
	Kind    BarrierKind `json:"kind"`
}

func (p BarrierPayoff) Name() string        { return "barrier_" + string(p.Kind) + "_" + string(p.Type) }
func (p BarrierPayoff) PathDependent() bool { return true }

func (p BarrierPayoff) Evaluate(path []float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range path {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	var active bool
	switch p.Kind {
	case BarrierDownAndOut:
		active = lo > p.Barrier
	case BarrierDownAndIn:
		active = lo <= p.Barrier
	case BarrierUpAndOut:
		active = hi < p.Barrier
	case BarrierUpAndIn:
		active = hi >= p.Barrier
	}
	if !active {
		return 0
	}
	return intrinsic(p.Type, p.Strike, path[len(path)-1])
}

// AsianPayoff 算术平均价格期权，平均不含初始价格
type AsianPayoff struct {
	Type   OptionType `json:"type"`
	Strike float64    `json:"strike"`
}

func (p AsianPayoff) Name() string        { return "asian_" + string(p.Type) }
func (p AsianPayoff) PathDependent() bool { return true }

func (p AsianPayoff) Evaluate(path []float64) float64 {
	if len(path) < 2 {
		return intrinsic(p.Type, p.Strike, path[0])
	}
	var sum float64
	for _, s := range path[1:] {
		sum += s
	}
	return intrinsic(p.Type, p.Strike, sum/float64(len(path)-1))
}

func intrinsic(t OptionType, strike, spot float64) float64 {
	if t == OptionTypeCall {
		return math.Max(spot-strike, 0)
	}
	return math.Max(strike-spot, 0)
}

// validatePayoff 校验内置收益类型的参数
func validatePayoff(op string, p Payoff) error {
	check := func(t OptionType, strike float64) error {
		if t != OptionTypeCall && t != OptionTypePut {
			return invalidInput(op, "unknown option type", map[string]any{"payoff": p.Name()})
		}
		if !isFinite(strike) || strike <= 0 {
			return invalidInput(op, "strike must be positive", map[string]any{"payoff": p.Name(), "strike": strike})
		}
		return nil
	}
	switch v := p.(type) {
	case nil:
		return invalidInput(op, "payoff is required", nil)
	case VanillaPayoff:
		return check(v.Type, v.Strike)
	case AsianPayoff:
		return check(v.Type, v.Strike)
	case BarrierPayoff:
		if err := check(v.Type, v.Strike); err != nil {
			return err
		}
		if !isFinite(v.Barrier) || v.Barrier <= 0 {
			return invalidInput(op, "barrier must be positive", map[string]any{"barrier": v.Barrier})
		}
		switch v.Kind {
		case BarrierDownAndOut, BarrierDownAndIn, BarrierUpAndOut, BarrierUpAndIn:
			return nil
		}
		return invalidInput(op, "unknown barrier kind", map[string]any{"kind": v.Kind})
	}
	return nil
}
