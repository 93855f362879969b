package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommendRuleTable(t *testing.T) {
	calm := MarketState{Spot: 100, RiskFreeRate: 0.05, Volatility: 0.2}
	eu := OptionContract{Type: OptionTypeCall, Strike: 100, Expiry: 1, Style: StyleEuropean}
	am := eu
	am.Style = StyleAmerican
	long := eu
	long.Expiry = 3
	short := eu
	short.Expiry = 0.05
	deepOTM := eu
	deepOTM.Strike = 130
	deepITM := eu
	deepITM.Strike = 80
	nearITM := eu
	nearITM.Strike = 85
	shortOTM := short
	shortOTM.Strike = 200

	tests := []struct {
		name     string
		contract OptionContract
		market   MarketState
		hints    SelectionHints
		rule     string
		kind     ModelKind
	}{
		{"american", am, calm, SelectionHints{}, "early_exercise", ModelBinomial},
		{"american wins over event risk", am, calm, SelectionHints{EventRisk: true}, "early_exercise", ModelBinomial},
		{"event risk", eu, calm, SelectionHints{EventRisk: true}, "event_risk", ModelJumpDiffusion},
		{"path dependent", eu, calm, SelectionHints{PathDependent: true}, "path_dependent", ModelMonteCarlo},
		{"short dated", short, calm, SelectionHints{}, "short_dated", ModelBinomial},
		{"short dated wins over moneyness", shortOTM, calm, SelectionHints{}, "short_dated", ModelBinomial},
		{"long dated", long, calm, SelectionHints{}, "long_dated", ModelMonteCarlo},
		{"deep out of the money", deepOTM, calm, SelectionHints{}, "extreme_moneyness", ModelMonteCarlo},
		{"deep in the money", deepITM, calm, SelectionHints{}, "extreme_moneyness", ModelMonteCarlo},
		{"moneyness wins over high vol", deepOTM, calm.WithVolatility(0.65), SelectionHints{}, "extreme_moneyness", ModelMonteCarlo},
		{"moderately in the money", nearITM, calm, SelectionHints{}, "default", ModelBlackScholes},
		{"high vol", eu, calm.WithVolatility(0.65), SelectionHints{}, "high_volatility", ModelHeston},
		{"default", eu, calm, SelectionHints{}, "default", ModelBlackScholes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := RecommendWith(tt.contract, tt.market, tt.hints)
			assert.Equal(t, tt.rule, rec.Rule)
			assert.Equal(t, tt.kind, rec.Model.Kind())
			assert.NotEmpty(t, rec.Reason)
		})
	}
}

func TestRecommendHestonParametersFollowMarketVolatility(t *testing.T) {
	c := OptionContract{Type: OptionTypePut, Strike: 100, Expiry: 1, Style: StyleEuropean}
	rec := Recommend(c, MarketState{Spot: 100, Volatility: 0.6})
	h, ok := rec.Model.(Heston)
	assert.True(t, ok)
	assert.InDelta(t, 0.36, h.V0, 1e-12)
	assert.InDelta(t, 0.36, h.Theta, 1e-12)
	assert.NoError(t, h.Validate())
}

func TestRecommendExpiredContractSkipsLattice(t *testing.T) {
	c := OptionContract{Type: OptionTypeCall, Strike: 100, Expiry: 0, Style: StyleEuropean}
	rec := Recommend(c, MarketState{Spot: 105, Volatility: 0.2})
	assert.Equal(t, "default", rec.Rule)
	assert.Equal(t, ModelBlackScholes, rec.Model.Kind())
}

func TestRulesEndWithDefault(t *testing.T) {
	rules := Rules()
	assert.Len(t, rules, 8)
	assert.Equal(t, "default", rules[len(rules)-1].Name)

	rules[0].Name = "mutated"
	assert.Equal(t, "early_exercise", Rules()[0].Name)
}
