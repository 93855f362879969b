// Package http 定价服务的 HTTP 接口
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionsrisk/internal/pricing/application"
	"github.com/wyfcoding/optionsrisk/internal/pricing/domain"
)

// maxBatchItems 单次批量定价的上限
const maxBatchItems = 500

// PricingHandler 定价 HTTP 处理器
type PricingHandler struct {
	svc *application.PricingService
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(svc *application.PricingService) *PricingHandler {
	return &PricingHandler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *PricingHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/option/greeks", h.CalculateGreeks)
		api.POST("/option/implied-volatility", h.ImpliedVolatility)
		api.POST("/option/recommend", h.RecommendModel)
		api.POST("/option/compare", h.CompareModels)
		api.POST("/option/batch", h.BatchPrice)
		api.POST("/strategy/analyze", h.AnalyzeStrategy)
		api.GET("/strategy/templates", h.StrategyTemplates)
		api.POST("/chain/smile", h.VolatilitySmile)
		api.POST("/volatility/historical", h.HistoricalVolatility)
	}
}

// statusFor 错误类别到 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrModelNotApplicable),
		errors.Is(err, domain.ErrNonConvergence),
		errors.Is(err, domain.ErrNumericalInstability):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func renderError(c *gin.Context, err error) {
	dto := application.NewErrorDTO(err)
	ErrorWithStatus(c, statusFor(err), dto.Message, dto)
}

// bind 解析请求体，失败时按 InvalidInput 返回 400
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		ErrorWithStatus(c, http.StatusBadRequest, err.Error(), &application.ErrorDTO{Kind: "InvalidInput", Message: err.Error()})
		return false
	}
	return true
}

// PriceOption 期权定价
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var req application.PriceOptionCommand
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.PriceOption(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	Success(c, res)
}

// CalculateGreeks 计算希腊字母
func (h *PricingHandler) CalculateGreeks(c *gin.Context) {
	var req application.PriceOptionCommand
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.CalculateGreeks(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	Success(c, res)
}

// ImpliedVolatility 反推隐含波动率
func (h *PricingHandler) ImpliedVolatility(c *gin.Context) {
	var req application.ImpliedVolatilityCommand
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.ImpliedVolatility(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	Success(c, res)
}

// RecommendModel 模型推荐
func (h *PricingHandler) RecommendModel(c *gin.Context) {
	var req application.RecommendModelCommand
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.RecommendModel(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	Success(c, res)
}

// CompareModels 多模型对比
func (h *PricingHandler) CompareModels(c *gin.Context) {
	var req application.CompareModelsCommand
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.CompareModels(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	Success(c, gin.H{"comparisons": res})
}

// BatchPrice 批量定价
func (h *PricingHandler) BatchPrice(c *gin.Context) {
	var req application.BatchPriceCommand
	if !bind(c, &req) {
		return
	}
	if len(req.Items) > maxBatchItems {
		ErrorWithStatus(c, http.StatusBadRequest, "too many items", &application.ErrorDTO{
			Kind:    "InvalidInput",
			Message: "too many items",
			Inputs:  map[string]any{"items": len(req.Items), "max": maxBatchItems},
		})
		return
	}
	res, err := h.svc.BatchPriceOptions(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	Success(c, res)
}

// AnalyzeStrategy 策略分析
func (h *PricingHandler) AnalyzeStrategy(c *gin.Context) {
	var req application.AnalyzeStrategyCommand
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.AnalyzeStrategy(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	Success(c, res)
}

// StrategyTemplates 列出支持的策略模板及各腿
func (h *PricingHandler) StrategyTemplates(c *gin.Context) {
	out := make(map[string][]string)
	for _, t := range domain.StrategyTypes() {
		legs, err := domain.TemplateLegs(t)
		if err != nil {
			renderError(c, err)
			return
		}
		out[string(t)] = legs
	}
	Success(c, out)
}

// VolatilitySmile 构造波动率微笑
func (h *PricingHandler) VolatilitySmile(c *gin.Context) {
	var req application.VolatilitySmileCommand
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.BuildVolatilitySmile(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	Success(c, res)
}

// HistoricalVolatility 历史波动率
func (h *PricingHandler) HistoricalVolatility(c *gin.Context) {
	var req application.HistoricalVolatilityCommand
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.HistoricalVolatility(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	Success(c, res)
}
