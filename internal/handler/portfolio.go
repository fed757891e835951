package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"InvestLogic/internal/auth"
	"InvestLogic/internal/tracker"
)

type PortfolioHandler struct {
	Tracker *tracker.Service
	Auth    *auth.Service
	Log     *zap.Logger
}

type capitalRequest struct {
	TotalCapital *float64 `json:"total_capital"`
}

type allocationRequest struct {
	Percent   *float64 `json:"percent"`
	BasePrice *float64 `json:"base_price"`
}

func (h *PortfolioHandler) Register(r *gin.Engine) {
	g := r.Group("/api/portfolio", RequireAuth(h.Auth, h.Log))
	g.GET("", h.get)
	g.PUT("/capital", h.updateCapital)
	g.PUT("/allocations/:symbol", h.updateAllocation)
}

func (h *PortfolioHandler) get(c *gin.Context) {
	p, err := h.Tracker.Portfolio(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, p, nil)
}

func (h *PortfolioHandler) updateCapital(c *gin.Context) {
	var req capitalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TotalCapital == nil {
		Error(c, http.StatusBadRequest, "total_capital is required", nil)
		return
	}
	p, err := h.Tracker.UpdateCapital(c.Request.Context(), currentUser(c).ID, *req.TotalCapital)
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, p, nil)
}

func (h *PortfolioHandler) updateAllocation(c *gin.Context) {
	var req allocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	p, err := h.Tracker.UpdateAllocation(c.Request.Context(), currentUser(c).ID, c.Param("symbol"), req.Percent, req.BasePrice)
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, p, nil)
}
