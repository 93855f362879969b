package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustContract(t *testing.T, typ OptionType, strike, expiry float64) OptionContract {
	t.Helper()
	c, err := NewOptionContract(typ, strike, expiry, StyleEuropean)
	require.NoError(t, err)
	return c
}

func mustMarket(t *testing.T, spot, r, q, vol float64) MarketState {
	t.Helper()
	m, err := NewMarketState(spot, r, q, vol)
	require.NoError(t, err)
	return m
}

func TestBlackScholesReferenceValues(t *testing.T) {
	m := mustMarket(t, 100, 0.05, 0, 0.2)

	call, err := BlackScholes{}.Price(mustContract(t, OptionTypeCall, 100, 1), m)
	require.NoError(t, err)
	assert.InDelta(t, 10.450583572185565, call.Value, 1e-9)
	assert.True(t, call.Converged)
	assert.Equal(t, ModelBlackScholes, call.Model)
	assert.False(t, call.HasStandardError())

	put, err := BlackScholes{}.Price(mustContract(t, OptionTypePut, 100, 1), m)
	require.NoError(t, err)
	assert.InDelta(t, 5.573526022256971, put.Value, 1e-9)
}

func TestBlackScholesPutCallParity(t *testing.T) {
	cases := []struct {
		s, k, t, r, q, vol float64
	}{
		{100, 100, 1, 0.05, 0, 0.2},
		{100, 80, 0.25, 0.01, 0.02, 0.35},
		{50, 65, 2, -0.005, 0, 0.6},
		{250, 240, 0.02, 0.03, 0.015, 0.12},
		{10, 10, 5, 0.08, 0.04, 1.2},
	}
	for _, tc := range cases {
		m := mustMarket(t, tc.s, tc.r, tc.q, tc.vol)
		call, err := BlackScholes{}.Price(mustContract(t, OptionTypeCall, tc.k, tc.t), m)
		require.NoError(t, err)
		put, err := BlackScholes{}.Price(mustContract(t, OptionTypePut, tc.k, tc.t), m)
		require.NoError(t, err)

		want := tc.s*math.Exp(-tc.q*tc.t) - tc.k*math.Exp(-tc.r*tc.t)
		assert.InDelta(t, want, call.Value-put.Value, 1e-9, "case %+v", tc)
	}
}

func TestBlackScholesGreeksMatchFiniteDifferences(t *testing.T) {
	for _, typ := range []OptionType{OptionTypeCall, OptionTypePut} {
		c := mustContract(t, typ, 105, 0.75)
		m := mustMarket(t, 100, 0.03, 0.01, 0.25)
		g, err := BlackScholes{}.Greeks(c, m)
		require.NoError(t, err)

		price := func(s, k, tt, r, q, v float64) float64 {
			return bsPrice(typ == OptionTypeCall, s, k, tt, r, q, v)
		}
		const h = 1e-4
		s, k, tt, r, q, v := m.Spot, c.Strike, c.Expiry, m.RiskFreeRate, m.DividendYield, m.Volatility

		delta := (price(s+h, k, tt, r, q, v) - price(s-h, k, tt, r, q, v)) / (2 * h)
		gamma := (price(s+h, k, tt, r, q, v) - 2*price(s, k, tt, r, q, v) + price(s-h, k, tt, r, q, v)) / (h * h)
		vega := (price(s, k, tt, r, q, v+h) - price(s, k, tt, r, q, v-h)) / (2 * h)
		rho := (price(s, k, tt, r+h, q, v) - price(s, k, tt, r-h, q, v)) / (2 * h)
		theta := (price(s, k, tt-h, r, q, v) - price(s, k, tt+h, r, q, v)) / (2 * h)

		assert.InDelta(t, delta, g.Delta, 1e-6, string(typ))
		assert.InDelta(t, gamma, g.Gamma, 1e-4, string(typ))
		assert.InDelta(t, vega, g.Vega, 1e-5, string(typ))
		assert.InDelta(t, rho, g.Rho, 1e-5, string(typ))
		assert.InDelta(t, theta, g.Theta, 1e-5, string(typ))
	}
}

func TestBlackScholesDegenerateExpiry(t *testing.T) {
	m := mustMarket(t, 105, 0.05, 0, 0.2)

	res, err := BlackScholes{}.Price(mustContract(t, OptionTypeCall, 100, 0), m)
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Value)

	g, err := BlackScholes{}.Greeks(mustContract(t, OptionTypeCall, 100, 0), m)
	require.NoError(t, err)
	assert.Equal(t, GreeksResult{Delta: 1}, g)

	g, err = BlackScholes{}.Greeks(mustContract(t, OptionTypePut, 100, 0), m)
	require.NoError(t, err)
	assert.Equal(t, GreeksResult{}, g)

	res, err = BlackScholes{}.Price(mustContract(t, OptionTypePut, 110, -0.5), m)
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Value)
}

func TestBlackScholesZeroVolatilityUsesForward(t *testing.T) {
	m := mustMarket(t, 100, 0.05, 0, 0)
	c := mustContract(t, OptionTypeCall, 100, 1)

	res, err := BlackScholes{}.Price(c, m)
	require.NoError(t, err)
	assert.InDelta(t, 100-100*math.Exp(-0.05), res.Value, 1e-12)

	g, err := BlackScholes{}.Greeks(c, m)
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.Delta)
	assert.Zero(t, g.Gamma)

	put, err := BlackScholes{}.Price(mustContract(t, OptionTypePut, 100, 1), m)
	require.NoError(t, err)
	assert.Zero(t, put.Value)
}

func TestBlackScholesRejectsAmerican(t *testing.T) {
	c, err := NewOptionContract(OptionTypePut, 100, 1, StyleAmerican)
	require.NoError(t, err)

	_, err = BlackScholes{}.Price(c, mustMarket(t, 100, 0.05, 0, 0.2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelNotApplicable))

	pe, ok := AsPricingError(err)
	require.True(t, ok)
	assert.Equal(t, StyleAmerican, pe.Inputs["style"])
}

func TestInvalidInputs(t *testing.T) {
	_, err := NewOptionContract(OptionTypeCall, -1, 1, StyleEuropean)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewOptionContract("STRADDLE", 100, 1, StyleEuropean)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewMarketState(0, 0.05, 0, 0.2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewMarketState(100, 0.05, 0, -0.2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewMarketState(100, math.NaN(), 0, 0.2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// 负利率合法
	_, err = NewMarketState(100, -0.01, 0, 0.2)
	assert.NoError(t, err)
}

func TestPricingErrorMessageCarriesInputs(t *testing.T) {
	_, err := NewMarketState(-5, 0.01, 0, 0.2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spot=-5")
	assert.Equal(t, "InvalidInput", KindName(err))
}

func TestBlackScholesOverflowIsNumericalInstability(t *testing.T) {
	c := mustContract(t, OptionTypePut, 100, 1)
	m := mustMarket(t, 100, -800, 0, 0.2)

	_, err := BlackScholes{}.Price(c, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNumericalInstability)
	pe, ok := AsPricingError(err)
	require.True(t, ok)
	assert.Equal(t, -800.0, pe.Inputs["risk_free_rate"])

	_, err = BlackScholes{}.Greeks(c, m)
	assert.ErrorIs(t, err, ErrNumericalInstability)
}
