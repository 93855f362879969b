package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJumpDiffusionWithoutJumpsIsBlackScholes(t *testing.T) {
	m := mustMarket(t, 100, 0.05, 0.01, 0.2)
	c := mustContract(t, OptionTypeCall, 105, 1)
	bs, err := BlackScholes{}.Price(c, m)
	require.NoError(t, err)

	res, err := JumpDiffusion{Intensity: 0, Mean: -0.1, StdDev: 0.2}.Price(c, m)
	require.NoError(t, err)
	assert.InDelta(t, bs.Value, res.Value, 1e-12)
	assert.True(t, res.Converged)
}

func TestJumpDiffusionAddsValueAndKeepsParity(t *testing.T) {
	m := mustMarket(t, 100, 0.05, 0, 0.2)
	j := JumpDiffusion{Intensity: 1, Mean: 0, StdDev: 0.2, MaxTerms: 50}

	call, err := j.Price(mustContract(t, OptionTypeCall, 100, 1), m)
	require.NoError(t, err)
	put, err := j.Price(mustContract(t, OptionTypePut, 100, 1), m)
	require.NoError(t, err)
	bs, err := BlackScholes{}.Price(mustContract(t, OptionTypeCall, 100, 1), m)
	require.NoError(t, err)

	assert.Greater(t, call.Value, bs.Value)
	assert.True(t, call.Converged)
	assert.Less(t, call.TruncationError, 1e-9)
	assert.Less(t, call.Terms, 51)
	assert.InDelta(t, 100-100*math.Exp(-0.05), call.Value-put.Value, 1e-6)
}

func TestJumpDiffusionTruncationBound(t *testing.T) {
	m := mustMarket(t, 100, 0.05, 0, 0.2)
	res, err := JumpDiffusion{Intensity: 5, Mean: -0.05, StdDev: 0.1, MaxTerms: 3}.Price(mustContract(t, OptionTypeCall, 100, 1), m)
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, 4, res.Terms)
	// P(N > 3), N ~ Poisson(5)
	assert.InDelta(t, 0.7349740847026385, res.TruncationError, 1e-9)
}

func TestJumpDiffusionValidation(t *testing.T) {
	m := mustMarket(t, 100, 0.05, 0, 0.2)
	c := mustContract(t, OptionTypeCall, 100, 1)

	_, err := JumpDiffusion{Intensity: -1, StdDev: 0.1}.Price(c, m)
	assert.ErrorIs(t, err, ErrInvalidInput)

	am, err := NewOptionContract(OptionTypeCall, 100, 1, StyleAmerican)
	require.NoError(t, err)
	_, err = JumpDiffusion{Intensity: 1, StdDev: 0.1}.Price(am, m)
	assert.ErrorIs(t, err, ErrModelNotApplicable)
}
