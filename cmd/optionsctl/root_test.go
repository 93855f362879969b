package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/optionsrisk/internal/pricing/application"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPriceJSON(t *testing.T) {
	out, err := execute(t, "price", "--model", "BS", "-o", "json")
	require.NoError(t, err)

	var res application.PriceResultDTO
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 10.450584, res.Value, 1e-6)
	assert.Equal(t, "BlackScholes", res.ModelUsed)
	assert.True(t, res.Converged)
}

func TestGreeksTable(t *testing.T) {
	out, err := execute(t, "greeks", "--model", "BS")
	require.NoError(t, err)
	assert.Contains(t, out, "0.636831")
	assert.Contains(t, out, "0.018762")
}

func TestImpliedVolatilityRoundTrip(t *testing.T) {
	out, err := execute(t, "iv", "--price", "10.450584", "-o", "json")
	require.NoError(t, err)

	var res application.ImpliedVolatilityDTO
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 0.2, res.Volatility, 1e-5)
	assert.True(t, res.Converged)
}

func TestImpliedVolatilityRequiresPrice(t *testing.T) {
	_, err := execute(t, "iv")
	assert.Error(t, err)
}

func TestRecommendAmerican(t *testing.T) {
	out, err := execute(t, "recommend", "--style", "AMERICAN", "--type", "PUT", "-o", "json")
	require.NoError(t, err)

	var res application.RecommendationDTO
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Binomial", res.Model)
}

func TestStrategyStraddle(t *testing.T) {
	out, err := execute(t, "strategy", "--template", "STRADDLE", "--strikes", "100", "--premiums", "5,4", "-o", "json")
	require.NoError(t, err)

	var res application.StrategyAnalysisDTO
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.BreakEvens, 2)
	assert.InDelta(t, 91, res.BreakEvens[0], 1e-6)
	assert.InDelta(t, 109, res.BreakEvens[1], 1e-6)
	assert.True(t, res.MaxProfit.Unbounded)
	require.NotNil(t, res.MaxLoss.Value)
	assert.InDelta(t, 9, *res.MaxLoss.Value, 1e-6)
}

func TestStrategyList(t *testing.T) {
	out, err := execute(t, "strategy", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "IRON_CONDOR")
}

func TestSmileFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.csv")
	csv := "strike,expiry,type,bid,ask\n100,1,C,10.40,10.50\n100,1,P,5.53,5.63\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	out, err := execute(t, "smile", "--chain", path, "-o", "json")
	require.NoError(t, err)

	var res application.SmileDTO
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Points, 2)
	assert.Zero(t, res.Failed)
	for _, p := range res.Points {
		assert.InDelta(t, 0.2, p.ImpliedVolatility, 5e-3)
	}
}

func TestHistoricalVolatility(t *testing.T) {
	out, err := execute(t, "hv", "100", "101", "99", "102", "-o", "json")
	require.NoError(t, err)

	var res application.HistoricalVolatilityDTO
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.Samples)
	assert.Greater(t, res.Volatility, 0.0)
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := execute(t, "price", "--model", "BS", "-o", "yaml")
	assert.Error(t, err)
}

func TestInvalidInputSurfaces(t *testing.T) {
	_, err := execute(t, "price", "--strike=-1")
	assert.Error(t, err)
}
