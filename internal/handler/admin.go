package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"InvestLogic/internal/admin"
	"InvestLogic/internal/auth"
	"InvestLogic/internal/model"
)

type AdminHandler struct {
	Admin *admin.Service
	Auth  *auth.Service
	Log   *zap.Logger
}

type settingsRequest struct {
	CSVURL       string `json:"csv_url"`
	MarketStatus string `json:"market_status"`
}

type tierRequest struct {
	Tier string `json:"tier"`
}

func (h *AdminHandler) Register(r *gin.Engine) {
	g := r.Group("/api/admin", RequireAuth(h.Auth, h.Log), RequireTier(model.TierAdmin))
	g.GET("/settings", h.getSettings)
	g.PUT("/settings", h.saveSettings)
	g.GET("/users", h.listUsers)
	g.PUT("/users/:id/tier", h.setTier)
}

func (h *AdminHandler) getSettings(c *gin.Context) {
	s, err := h.Admin.Settings(c.Request.Context())
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, s, map[string]any{"statuses": h.Admin.Statuses()})
}

func (h *AdminHandler) saveSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	s, err := h.Admin.SaveSettings(c.Request.Context(), req.CSVURL, req.MarketStatus)
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, s, nil)
}

func (h *AdminHandler) listUsers(c *gin.Context) {
	users, err := h.Admin.Users(c.Request.Context())
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, users, map[string]any{"total": len(users)})
}

func (h *AdminHandler) setTier(c *gin.Context) {
	var req tierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	u, err := h.Admin.SetTier(c.Request.Context(), c.Param("id"), req.Tier)
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, u, nil)
}
