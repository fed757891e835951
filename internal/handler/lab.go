package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"InvestLogic/internal/admin"
	"InvestLogic/internal/auth"
	"InvestLogic/internal/model"
)

// LabHandler serves the PRO research links.
type LabHandler struct {
	Admin     *admin.Service
	Auth      *auth.Service
	StocksURL string
	Log       *zap.Logger
}

func (h *LabHandler) Register(r *gin.Engine) {
	g := r.Group("/api/lab", RequireAuth(h.Auth, h.Log), RequireTier(model.TierPro))
	g.GET("/stocks", h.stocks)
}

func (h *LabHandler) stocks(c *gin.Context) {
	settings, err := h.Admin.Settings(c.Request.Context())
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, gin.H{
		"stocks_url": h.StocksURL,
		"csv_url":    settings.CSVURL,
	}, nil)
}
