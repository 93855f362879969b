package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/wyfcoding/optionsrisk/internal/pricing/application"
	"github.com/wyfcoding/optionsrisk/pkg/config"
	"github.com/wyfcoding/optionsrisk/pkg/logger"
)

// globalFlags 所有子命令共享的参数
type globalFlags struct {
	configPath string
	output     string
	verbose    bool

	spot     float64
	rate     float64
	dividend float64
	vol      float64
}

func (g *globalFlags) market() application.MarketDTO {
	return application.MarketDTO{Spot: g.spot, RiskFreeRate: g.rate, DividendYield: g.dividend, Volatility: g.vol}
}

// service 按配置构造不带缓存与消息的定价服务
func (g *globalFlags) service() (*application.PricingService, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	level := "warn"
	if g.verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Level: level, Format: "text", Writer: os.Stderr}); err != nil {
		return nil, err
	}
	appCfg := application.ConfigFrom(cfg)
	appCfg.CacheTTL = 0
	return application.NewPricingService(appCfg), nil
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "optionsctl",
		Short:         "Price options, compute Greeks and analyze strategies",
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to config file (engine defaults)")
	pf.StringVarP(&g.output, "output", "o", outputTable, "output format: table or json")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging to stderr")
	pf.Float64Var(&g.spot, "spot", 100, "underlying spot price")
	pf.Float64Var(&g.rate, "rate", 0.05, "continuously compounded risk-free rate")
	pf.Float64Var(&g.dividend, "dividend", 0, "continuous dividend yield")
	pf.Float64Var(&g.vol, "vol", 0.2, "annualized volatility")

	root.AddCommand(
		newPriceCmd(g),
		newGreeksCmd(g),
		newIVCmd(g),
		newRecommendCmd(g),
		newCompareCmd(g),
		newStrategyCmd(g),
		newSmileCmd(g),
		newHistoricalCmd(g),
	)
	return root
}
