package domain

import (
	"math"
	"sort"
	"strconv"
)

const (
	breakEvenTolerance  = 1e-10
	breakEvenIterations = 200
	// candidateEpsilon 行权价两侧的采样偏移（相对行权价）
	candidateEpsilon = 1e-6
)

// StrategyLeg 策略腿
// EntryPremium 为实际成交价（单位期权），区别于理论价值
type StrategyLeg struct {
	Contract     OptionContract `json:"contract"`
	Position     Position       `json:"position"`
	Quantity     int            `json:"quantity"`
	EntryPremium float64        `json:"entry_premium"`
}

// signedQty 多头 +q，空头 -q
func (l StrategyLeg) signedQty() float64 {
	return l.Position.Sign() * float64(l.Quantity)
}

// PnL 到期价格 x 下该腿的损益
func (l StrategyLeg) PnL(x float64) float64 {
	return l.signedQty() * (l.Contract.Intrinsic(x) - l.EntryPremium)
}

// Strategy 多腿期权策略，所有腿共享同一市场状态
type Strategy struct {
	Name   string        `json:"name"`
	Type   StrategyType  `json:"type,omitempty"`
	Legs   []StrategyLeg `json:"legs"`
	Market MarketState   `json:"market"`
}

// Validate 校验策略结构
func (s Strategy) Validate() error {
	const op = "strategy"
	if len(s.Legs) == 0 {
		return invalidInput(op, "strategy needs at least one leg", map[string]any{"name": s.Name})
	}
	if err := s.Market.Validate(); err != nil {
		return withOp(err, op)
	}
	underlying := ""
	for i, leg := range s.Legs {
		in := map[string]any{"leg": i, "quantity": leg.Quantity, "position": leg.Position}
		if err := leg.Contract.Validate(); err != nil {
			return withOp(err, op+".leg"+strconv.Itoa(i))
		}
		if leg.Position != PositionLong && leg.Position != PositionShort {
			return invalidInput(op, "unknown position", in)
		}
		if leg.Quantity < 1 {
			return invalidInput(op, "quantity must be a positive integer", in)
		}
		if !isFinite(leg.EntryPremium) {
			return invalidInput(op, "entry premium must be finite", in)
		}
		if leg.Contract.Underlying == "" {
			continue
		}
		if underlying == "" {
			underlying = leg.Contract.Underlying
		} else if leg.Contract.Underlying != underlying {
			return invalidInput(op, "legs reference different underlyings", map[string]any{"leg": i, "expected": underlying, "got": leg.Contract.Underlying})
		}
	}
	return nil
}

// Bound 最大盈亏，Unbounded 为无界哨兵，不使用 ±Inf
type Bound struct {
	Value     float64 `json:"value"`
	Unbounded bool    `json:"unbounded"`
}

func Bounded(v float64) Bound {
	// -0 归一为 0
	if v == 0 {
		v = 0
	}
	return Bound{Value: v}
}

// UnboundedBound 无界哨兵
func UnboundedBound() Bound { return Bound{Unbounded: true} }

func (b Bound) String() string {
	if b.Unbounded {
		return "unbounded"
	}
	return strconv.FormatFloat(b.Value, 'f', 4, 64)
}

// PayoffPoint 损益曲线上的一个点
type PayoffPoint struct {
	Price float64 `json:"price"`
	PnL   float64 `json:"pnl"`
}

// PayoffProfile 到期损益函数（惰性求值）及派生量
// MaxLoss 以正数表示亏损幅度
type PayoffProfile struct {
	legs       []StrategyLeg
	MaxProfit  Bound     `json:"max_profit"`
	MaxLoss    Bound     `json:"max_loss"`
	BreakEvens []float64 `json:"break_evens"`
}

// At 计算到期价格 x 的净损益
func (p *PayoffProfile) At(x float64) float64 {
	var total float64
	for _, leg := range p.legs {
		total += leg.PnL(x)
	}
	return total
}

// Sample 在 [lo, hi] 上等距采样 n 个点
func (p *PayoffProfile) Sample(lo, hi float64, n int) []PayoffPoint {
	if n < 2 || hi <= lo {
		return []PayoffPoint{{Price: lo, PnL: p.At(lo)}}
	}
	out := make([]PayoffPoint, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		x := lo + float64(i)*step
		out[i] = PayoffPoint{Price: x, PnL: p.At(x)}
	}
	return out
}

// StrategyAnalysis 策略分析结果
type StrategyAnalysis struct {
	Profile    *PayoffProfile `json:"profile"`
	Greeks     GreeksResult   `json:"greeks"`
	MaxProfit  Bound          `json:"max_profit"`
	MaxLoss    Bound          `json:"max_loss"`
	BreakEvens []float64      `json:"break_evens"`
	// NetPremium 为正表示净支出（debit），为负表示净收入（credit）
	NetPremium float64 `json:"net_premium"`
}

// NewPayoffProfile 只构建损益曲线，不计算 Greeks
func NewPayoffProfile(legs []StrategyLeg) *PayoffProfile {
	p := &PayoffProfile{legs: append([]StrategyLeg(nil), legs...)}
	knots := p.knots()

	var slope float64
	for _, leg := range legs {
		if leg.Contract.IsCall() {
			slope += leg.signedQty()
		}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range candidates(knots) {
		v := p.At(x)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	p.MaxProfit = Bounded(hi)
	if slope > 0 {
		p.MaxProfit = UnboundedBound()
	}
	p.MaxLoss = Bounded(-lo)
	if slope < 0 {
		p.MaxLoss = UnboundedBound()
	}
	p.BreakEvens = p.breakEvens(knots, slope)
	return p
}

// knots 升序去重的行权价
func (p *PayoffProfile) knots() []float64 {
	seen := make(map[float64]struct{}, len(p.legs))
	ks := make([]float64, 0, len(p.legs))
	for _, leg := range p.legs {
		if _, ok := seen[leg.Contract.Strike]; ok {
			continue
		}
		seen[leg.Contract.Strike] = struct{}{}
		ks = append(ks, leg.Contract.Strike)
	}
	sort.Float64s(ks)
	return ks
}

// candidates 价格下界 0、各行权价及其两侧的候选点；分段线性函数的极值必在其中
func candidates(knots []float64) []float64 {
	out := []float64{0}
	for _, k := range knots {
		eps := candidateEpsilon * k
		out = append(out, math.Max(0, k-eps), k, k+eps)
	}
	return out
}

func (p *PayoffProfile) breakEvens(knots []float64, slope float64) []float64 {
	points := append([]float64{0}, knots...)
	var roots []float64
	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]
		fa, fb := p.At(a), p.At(b)
		if fa == 0 {
			roots = append(roots, a)
		}
		if fa*fb < 0 {
			roots = append(roots, p.bisect(a, b))
		}
	}
	last := points[len(points)-1]
	fl := p.At(last)
	if fl == 0 {
		roots = append(roots, last)
	}
	// 上尾：最高行权价之外斜率恒定
	if slope != 0 && fl*slope < 0 {
		hi := last + 2*math.Abs(fl/slope) + 1
		roots = append(roots, p.bisect(last, hi))
	}
	return dedupe(roots)
}

func (p *PayoffProfile) bisect(lo, hi float64) float64 {
	flo := p.At(lo)
	for i := 0; i < breakEvenIterations; i++ {
		mid := 0.5 * (lo + hi)
		fm := p.At(mid)
		if fm == 0 || 0.5*(hi-lo) < breakEvenTolerance*math.Max(1, math.Abs(mid)) {
			return mid
		}
		if flo*fm < 0 {
			hi = mid
		} else {
			lo, flo = mid, fm
		}
	}
	return 0.5 * (lo + hi)
}

func dedupe(xs []float64) []float64 {
	sort.Float64s(xs)
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if len(out) > 0 && math.Abs(x-out[len(out)-1]) < 1e-8 {
			continue
		}
		out = append(out, x)
	}
	return out
}

// Analyze 计算策略的损益曲线、聚合 Greeks、最大盈亏和盈亏平衡点
// 欧式腿使用 Black-Scholes 解析 Greeks，美式腿使用二叉树差分 Greeks
func Analyze(s Strategy) (StrategyAnalysis, error) {
	if err := s.Validate(); err != nil {
		return StrategyAnalysis{}, err
	}
	var greeks GreeksResult
	var net float64
	for _, leg := range s.Legs {
		var model PricingModel = BlackScholes{}
		if leg.Contract.Style == StyleAmerican {
			model = Binomial{Steps: DefaultBinomialSteps}
		}
		g, err := Greeks(leg.Contract, s.Market, model)
		if err != nil {
			return StrategyAnalysis{}, err
		}
		greeks = greeks.Add(g.Scale(leg.signedQty()))
		net += leg.signedQty() * leg.EntryPremium
	}

	profile := NewPayoffProfile(s.Legs)
	return StrategyAnalysis{
		Profile:    profile,
		Greeks:     greeks,
		MaxProfit:  profile.MaxProfit,
		MaxLoss:    profile.MaxLoss,
		BreakEvens: profile.BreakEvens,
		NetPremium: net,
	}, nil
}
