package domain

import (
	"context"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// lsmDefaultSteps 美式模拟默认行权时点数
const lsmDefaultSteps = 50

// lsmBasisDegree 回归基函数 {1, x, x²}
const lsmBasisDegree = 2

// priceAmerican 实现 Longstaff-Schwartz (LSM) 最小二乘蒙特卡洛
// 回归需要全部路径，因此在单个 goroutine 内完成
func (mc MonteCarlo) priceAmerican(ctx context.Context, c OptionContract, m MarketState) (PricingResult, error) {
	const op = "monte_carlo.lsm"
	samples, err := mc.samples(op)
	if err != nil {
		return PricingResult{}, err
	}
	if c.Expiry <= 0 {
		return PricingResult{Value: c.Intrinsic(m.Spot), StandardError: float64Ptr(0), Model: ModelMonteCarlo, Converged: true, Paths: mc.Paths, IndependentSamples: samples}, nil
	}
	if err := requirePositiveVol(op, c, m); err != nil {
		return PricingResult{}, err
	}
	steps := mc.Steps
	if steps < 0 {
		return PricingResult{}, invalidInput(op, "steps must be positive", map[string]any{"steps": steps})
	}
	if steps == 0 {
		steps = lsmDefaultSteps
	}

	nPaths := mc.Paths
	dt := c.Expiry / float64(steps)
	drift := (m.RiskFreeRate - m.DividendYield - 0.5*m.Volatility*m.Volatility) * dt
	vol := m.Volatility * math.Sqrt(dt)
	disc := math.Exp(-m.RiskFreeRate * dt)

	// prices[p*steps+k] 为第 p 条路径在 t_{k+1} 的价格
	prices := make([]float64, nPaths*steps)
	rng := rand.New(rand.NewSource(deriveSeed(mc.Seed, 0)))
	logS0 := math.Log(m.Spot)
	for i := 0; i < samples; i++ {
		a, b := logS0, logS0
		for k := 0; k < steps; k++ {
			z := rng.NormFloat64()
			if mc.Antithetic {
				a += drift + vol*z
				b += drift - vol*z
				prices[(2*i)*steps+k] = math.Exp(a)
				prices[(2*i+1)*steps+k] = math.Exp(b)
			} else {
				a += drift + vol*z
				prices[i*steps+k] = math.Exp(a)
			}
		}
	}

	cash := make([]float64, nPaths)
	for p := 0; p < nPaths; p++ {
		cash[p] = c.Intrinsic(prices[p*steps+steps-1])
	}

	k := float64(lsmBasisDegree + 1)
	for t := steps - 2; t >= 0; t-- {
		if err := ctx.Err(); err != nil {
			return PricingResult{}, err
		}
		for p := range cash {
			cash[p] *= disc
		}
		itm := make([]int, 0, nPaths)
		for p := 0; p < nPaths; p++ {
			if c.Intrinsic(prices[p*steps+t]) > 0 {
				itm = append(itm, p)
			}
		}
		if float64(len(itm)) <= k {
			continue
		}
		beta, ok := regressContinuation(itm, prices, cash, steps, t, c.Strike)
		if !ok {
			continue
		}
		for _, p := range itm {
			s := prices[p*steps+t]
			x := s / c.Strike
			cont := beta[0] + beta[1]*x + beta[2]*x*x
			if ex := c.Intrinsic(s); ex > cont {
				cash[p] = ex
			}
		}
	}

	var st runningStats
	for i := 0; i < samples; i++ {
		var x float64
		if mc.Antithetic {
			x = 0.5 * disc * (cash[2*i] + cash[2*i+1])
		} else {
			x = disc * cash[i]
		}
		st.push(x)
	}
	value := math.Max(st.mean, c.Intrinsic(m.Spot))
	if !isFinite(value) {
		return PricingResult{}, instability(op, "non-finite regression estimate", merge(c.inputs(), m.inputs()), nil)
	}
	return PricingResult{
		Value:              value,
		StandardError:      float64Ptr(st.stdErr()),
		Model:              ModelMonteCarlo,
		Converged:          true,
		Paths:              mc.Paths,
		IndependentSamples: samples,
		Iterations:         steps,
	}, nil
}

// regressContinuation 对实值路径做最小二乘回归，估计持有价值
func regressContinuation(itm []int, prices, cash []float64, steps, t int, strike float64) ([]float64, bool) {
	cols := lsmBasisDegree + 1
	x := mat.NewDense(len(itm), cols, nil)
	y := mat.NewVecDense(len(itm), nil)
	for row, p := range itm {
		v := prices[p*steps+t] / strike
		x.Set(row, 0, 1)
		x.Set(row, 1, v)
		x.Set(row, 2, v*v)
		y.SetVec(row, cash[p])
	}
	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return nil, false
	}
	out := []float64{beta.AtVec(0), beta.AtVec(1), beta.AtVec(2)}
	return out, allFinite(out...)
}
