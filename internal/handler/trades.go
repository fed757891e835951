package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"InvestLogic/internal/auth"
	"InvestLogic/internal/tracker"
)

const streamKeepAlive = 25 * time.Second

type TradesHandler struct {
	Tracker *tracker.Service
	Auth    *auth.Service
	Log     *zap.Logger
}

type executeRequest struct {
	Symbol string `json:"symbol"`
	Turn   int    `json:"turn"`
}

type fillPriceRequest struct {
	Price *float64 `json:"price"`
}

func (h *TradesHandler) Register(r *gin.Engine) {
	g := r.Group("/api/trades", RequireAuth(h.Auth, h.Log))
	g.GET("", h.list)
	g.POST("", h.execute)
	g.GET("/stream", h.stream)
	g.PUT("/:id/price", h.updatePrice)
	g.DELETE("/:id", h.delete)
}

func (h *TradesHandler) list(c *gin.Context) {
	trades, err := h.Tracker.Trades(c.Request.Context(), currentUser(c).ID, c.Query("symbol"))
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, trades, map[string]any{"total": len(trades)})
}

func (h *TradesHandler) execute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	rec, err := h.Tracker.RegisterExecution(c.Request.Context(), currentUser(c).ID, req.Symbol, req.Turn)
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, apiResponse{Code: 0, Message: "ok", Data: rec})
}

func (h *TradesHandler) updatePrice(c *gin.Context) {
	var req fillPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Price == nil {
		Error(c, http.StatusBadRequest, "price is required", nil)
		return
	}
	rec, err := h.Tracker.UpdateFillPrice(c.Request.Context(), currentUser(c).ID, c.Param("id"), *req.Price)
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, rec, nil)
}

func (h *TradesHandler) delete(c *gin.Context) {
	if err := h.Tracker.DeleteTrade(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, gin.H{"id": c.Param("id")}, nil)
}

// stream pushes the user's trade list as server-sent events: the current list
// first, then a fresh list after every write.
func (h *TradesHandler) stream(c *gin.Context) {
	ctx := c.Request.Context()
	u := currentUser(c)

	trades, err := h.Tracker.Trades(ctx, u.ID, "")
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	sub := h.Tracker.Feed().Subscribe(u.ID)
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("trades", tracker.Snapshot{UserID: u.ID, Trades: trades, At: time.Now().UTC()})
	c.Writer.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			c.SSEvent("trades", snap)
			c.Writer.Flush()
		case t := <-ticker.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
			c.Writer.Flush()
		}
	}
}
