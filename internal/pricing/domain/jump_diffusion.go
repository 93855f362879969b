package domain

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	DefaultJumpMaxTerms = 50
	// jumpWeightFloor 越过众数后权重低于该值即提前截断
	jumpWeightFloor = 1e-12
	// jumpTailTolerance 剩余尾部概率不超过该值视为收敛
	jumpTailTolerance = 1e-9
)

// JumpDiffusion Merton 跳扩散模型
// Mean/StdDev 为对数跳幅的均值与标准差，Intensity 为年化跳跃强度
type JumpDiffusion struct {
	Intensity float64 `json:"jump_intensity"`
	Mean      float64 `json:"jump_mean"`
	StdDev    float64 `json:"jump_std"`
	MaxTerms  int     `json:"max_terms"`
}

func (JumpDiffusion) Kind() ModelKind { return ModelJumpDiffusion }
func (JumpDiffusion) pricingModel()   {}

func (j JumpDiffusion) inputs() map[string]any {
	return map[string]any{
		"jump_intensity": j.Intensity,
		"jump_mean":      j.Mean,
		"jump_std":       j.StdDev,
		"max_terms":      j.MaxTerms,
	}
}

// Validate 校验跳跃参数
func (j JumpDiffusion) Validate() error {
	switch {
	case !allFinite(j.Intensity, j.Mean, j.StdDev):
		return invalidInput("jump_diffusion", "parameters must be finite", j.inputs())
	case j.Intensity < 0 || j.StdDev < 0:
		return invalidInput("jump_diffusion", "intensity and jump std must be non-negative", j.inputs())
	case j.MaxTerms < 0:
		return invalidInput("jump_diffusion", "max terms must be positive", j.inputs())
	}
	return nil
}

// Price 泊松加权的 Black-Scholes 级数
// 第 n 项：方差 σ²+nσJ²/T，漂移经 λk 补偿，贴现率保持 r
func (j JumpDiffusion) Price(c OptionContract, m MarketState) (PricingResult, error) {
	const op = "jump_diffusion"
	if err := validatePair(op, c, m); err != nil {
		return PricingResult{}, err
	}
	if err := j.Validate(); err != nil {
		return PricingResult{}, err
	}
	if c.Style == StyleAmerican {
		return PricingResult{}, notApplicable(op, "poisson mixture of closed forms is european only", c.inputs())
	}
	t := c.Expiry
	if t <= 0 || j.Intensity == 0 {
		v := bsPrice(c.IsCall(), m.Spot, c.Strike, t, m.RiskFreeRate, m.DividendYield, m.Volatility)
		return PricingResult{Value: v, Model: ModelJumpDiffusion, Converged: true, Terms: 1}, nil
	}
	maxTerms := j.MaxTerms
	if maxTerms == 0 {
		maxTerms = DefaultJumpMaxTerms
	}

	lt := j.Intensity * t
	pois := distuv.Poisson{Lambda: lt}
	gamma := j.Mean + 0.5*j.StdDev*j.StdDev
	k := math.Exp(gamma) - 1
	sigma2 := m.Volatility * m.Volatility

	var value, mass float64
	terms := 0
	for n := 0; n <= maxTerms; n++ {
		w := pois.Prob(float64(n))
		if float64(n) > lt && w < jumpWeightFloor {
			break
		}
		fn := float64(n)
		volN := math.Sqrt(sigma2 + fn*j.StdDev*j.StdDev/t)
		qN := m.DividendYield + j.Intensity*k - fn*gamma/t
		value += w * bsPrice(c.IsCall(), m.Spot, c.Strike, t, m.RiskFreeRate, qN, volN)
		mass += w
		terms++
	}

	tail := math.Max(0, 1-mass)
	if !isFinite(value) {
		return PricingResult{}, instability(op, "series sum is not finite", merge(c.inputs(), m.inputs(), j.inputs()), nil)
	}
	return PricingResult{
		Value:           value,
		Model:           ModelJumpDiffusion,
		Converged:       tail <= jumpTailTolerance,
		TruncationError: tail,
		Terms:           terms,
	}, nil
}
