package domain

import (
	"context"
	"math"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMCPaths = 50000
	DefaultMCSeed  = 42
	// mcBatchSize 固定批大小，保证结果与并发度无关
	mcBatchSize = 8192
	// minPathSteps 路径依赖收益的最少时间步
	minPathSteps = 50
)

// MonteCarlo 风险中性 GBM 路径模拟
// Paths 为模拟的终值数量；开启对偶变量时 Paths 必须为偶数，独立样本数为 Paths/2。
// Steps 为 0 时自动选择：普通收益 1 步，路径依赖收益 max(50, ceil(252T)) 步。
type MonteCarlo struct {
	Paths      int    `json:"paths"`
	Seed       uint64 `json:"seed"`
	Antithetic bool   `json:"antithetic"`
	Steps      int    `json:"steps,omitempty"`
	Workers    int    `json:"workers,omitempty"`
	// Payoff 为空时使用合约对应的普通收益
	Payoff Payoff `json:"-"`
}

// DefaultMonteCarlo 默认模拟参数
func DefaultMonteCarlo() MonteCarlo {
	return MonteCarlo{Paths: DefaultMCPaths, Seed: DefaultMCSeed, Antithetic: true, Workers: 1}
}

func (MonteCarlo) Kind() ModelKind { return ModelMonteCarlo }
func (MonteCarlo) pricingModel()   {}

func (mc MonteCarlo) Price(c OptionContract, m MarketState) (PricingResult, error) {
	return mc.PriceContext(context.Background(), c, m)
}

// PriceContext 与 Price 相同，但在批次之间响应 ctx 取消
func (mc MonteCarlo) PriceContext(ctx context.Context, c OptionContract, m MarketState) (PricingResult, error) {
	const op = "monte_carlo"
	if err := validatePair(op, c, m); err != nil {
		return PricingResult{}, err
	}
	if c.Style == StyleAmerican {
		if mc.Payoff != nil {
			return PricingResult{}, notApplicable(op, "early exercise is only supported for vanilla payoffs", map[string]any{"payoff": mc.Payoff.Name()})
		}
		return mc.priceAmerican(ctx, c, m)
	}
	payoff := mc.Payoff
	if payoff == nil {
		payoff = VanillaPayoff{Type: c.Type, Strike: c.Strike}
	}
	return mc.PricePayoff(ctx, payoff, c.Expiry, m)
}

// PricePayoff 对任意收益函数定价
func (mc MonteCarlo) PricePayoff(ctx context.Context, payoff Payoff, expiry float64, m MarketState) (PricingResult, error) {
	const op = "monte_carlo"
	if err := validatePayoff(op, payoff); err != nil {
		return PricingResult{}, err
	}
	if err := m.Validate(); err != nil {
		return PricingResult{}, withOp(err, op)
	}
	samples, err := mc.samples(op)
	if err != nil {
		return PricingResult{}, err
	}
	if !isFinite(expiry) {
		return PricingResult{}, invalidInput(op, "expiry must be finite", map[string]any{"expiry": expiry})
	}
	if expiry <= 0 {
		return PricingResult{
			Value:              payoff.Evaluate([]float64{m.Spot}),
			StandardError:      float64Ptr(0),
			Model:              ModelMonteCarlo,
			Converged:          true,
			Paths:              mc.Paths,
			IndependentSamples: samples,
		}, nil
	}
	if m.Volatility <= 0 {
		return PricingResult{}, invalidInput(op, "volatility must be positive for simulation", m.inputs())
	}
	steps, err := mc.steps(op, payoff, expiry)
	if err != nil {
		return PricingResult{}, err
	}

	workers := mc.Workers
	if workers <= 0 {
		workers = 1
	}
	nBatches := (samples + mcBatchSize - 1) / mcBatchSize
	stats := make([]runningStats, nBatches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for b := 0; b < nBatches; b++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n := min(mcBatchSize, samples-b*mcBatchSize)
			st, ok := mc.runBatch(b, n, steps, payoff, expiry, m)
			if !ok {
				return instability(op, "payoff produced a non-finite value", map[string]any{"payoff": payoff.Name(), "batch": b}, nil)
			}
			stats[b] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PricingResult{}, err
	}

	var total runningStats
	for _, st := range stats {
		total = total.merge(st)
	}
	disc := math.Exp(-m.RiskFreeRate * expiry)
	return PricingResult{
		Value:              disc * total.mean,
		StandardError:      float64Ptr(disc * total.stdErr()),
		Model:              ModelMonteCarlo,
		Converged:          true,
		Paths:              mc.Paths,
		IndependentSamples: samples,
		Iterations:         steps,
	}, nil
}

func (mc MonteCarlo) samples(op string) (int, error) {
	in := map[string]any{"paths": mc.Paths, "antithetic": mc.Antithetic}
	if mc.Paths < 2 {
		return 0, invalidInput(op, "paths must be at least 2", in)
	}
	if !mc.Antithetic {
		return mc.Paths, nil
	}
	if mc.Paths%2 != 0 {
		return 0, invalidInput(op, "antithetic sampling needs an even path count", in)
	}
	if mc.Paths < 4 {
		return 0, invalidInput(op, "antithetic sampling needs at least 4 paths", in)
	}
	return mc.Paths / 2, nil
}

func (mc MonteCarlo) steps(op string, payoff Payoff, expiry float64) (int, error) {
	switch {
	case mc.Steps < 0:
		return 0, invalidInput(op, "steps must be positive", map[string]any{"steps": mc.Steps})
	case mc.Steps > 0:
		return mc.Steps, nil
	case payoff.PathDependent():
		return max(minPathSteps, int(math.Ceil(252*expiry))), nil
	default:
		return 1, nil
	}
}

// runBatch 使用独立派生的子种子模拟一个批次，返回未贴现收益的统计量
func (mc MonteCarlo) runBatch(batch, n, steps int, payoff Payoff, expiry float64, m MarketState) (runningStats, bool) {
	rng := rand.New(rand.NewSource(deriveSeed(mc.Seed, batch)))
	dt := expiry / float64(steps)
	drift := (m.RiskFreeRate - m.DividendYield - 0.5*m.Volatility*m.Volatility) * dt
	vol := m.Volatility * math.Sqrt(dt)

	z := make([]float64, steps)
	path := make([]float64, steps+1)
	var st runningStats
	for i := 0; i < n; i++ {
		for k := range z {
			z[k] = rng.NormFloat64()
		}
		x := payoff.Evaluate(buildPath(path, m.Spot, drift, vol, z, 1))
		if mc.Antithetic {
			x = 0.5 * (x + payoff.Evaluate(buildPath(path, m.Spot, drift, vol, z, -1)))
		}
		if !isFinite(x) {
			return st, false
		}
		st.push(x)
	}
	return st, true
}

func buildPath(path []float64, s0, drift, vol float64, z []float64, sign float64) []float64 {
	path[0] = s0
	logS := math.Log(s0)
	for k, zk := range z {
		logS += drift + vol*sign*zk
		path[k+1] = math.Exp(logS)
	}
	return path
}

// deriveSeed splitmix64 派生批次子种子
func deriveSeed(seed uint64, batch int) uint64 {
	x := seed + uint64(batch+1)*0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// runningStats Welford 累加器，merge 使用 Chan 合并公式
type runningStats struct {
	n    int
	mean float64
	m2   float64
}

func (s *runningStats) push(x float64) {
	s.n++
	d := x - s.mean
	s.mean += d / float64(s.n)
	s.m2 += d * (x - s.mean)
}

func (s runningStats) merge(o runningStats) runningStats {
	if s.n == 0 {
		return o
	}
	if o.n == 0 {
		return s
	}
	n := s.n + o.n
	d := o.mean - s.mean
	return runningStats{
		n:    n,
		mean: s.mean + d*float64(o.n)/float64(n),
		m2:   s.m2 + o.m2 + d*d*float64(s.n)*float64(o.n)/float64(n),
	}
}

func (s runningStats) stdErr() float64 {
	if s.n < 2 {
		return 0
	}
	return math.Sqrt(s.m2/float64(s.n-1)) / math.Sqrt(float64(s.n))
}
