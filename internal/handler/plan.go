package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"InvestLogic/internal/auth"
	"InvestLogic/internal/model"
	"InvestLogic/internal/strategy"
	"InvestLogic/internal/tracker"
)

type PlanHandler struct {
	Tracker *tracker.Service
	Auth    *auth.Service
	Log     *zap.Logger
}

func (h *PlanHandler) Register(r *gin.Engine) {
	r.POST("/api/plan/preview", h.preview)
	r.GET("/api/plan/:symbol", RequireAuth(h.Auth, h.Log), h.plan)
}

func (h *PlanHandler) preview(c *gin.Context) {
	var in tracker.PreviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	plan, err := h.Tracker.Preview(c.Request.Context(), in)
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, plan, planMeta(plan))
}

func (h *PlanHandler) plan(c *gin.Context) {
	u := currentUser(c)
	plan, err := h.Tracker.Plan(c.Request.Context(), u.ID, c.Param("symbol"))
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, plan, planMeta(plan))
}

// planMeta carries the PRO comparison figures shown beside a plan.
func planMeta(p *model.Plan) map[string]any {
	return map[string]any{
		"pro_avg":             strategy.ProjectedProAverage(p.FinalExpectedAvg),
		"pro_defense_percent": strategy.ProDefensePercent(),
	}
}
