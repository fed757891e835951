package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"InvestLogic/internal/calculator"
	"InvestLogic/internal/calendar"
	"InvestLogic/internal/collector"
	"InvestLogic/internal/strategy"
	"InvestLogic/internal/tracker"
)

type MarketHandler struct {
	Collector *collector.Collector
	Tracker   *tracker.Service
	Registry  *strategy.Registry
	Log       *zap.Logger

	now func() time.Time
}

func (h *MarketHandler) Register(r *gin.Engine) {
	g := r.Group("/api/market")
	g.GET("/snapshot", h.snapshot)
	g.GET("/ndx", h.ndx)
	g.GET("/zone", h.zone)
	g.GET("/status", h.status)
	g.GET("/option-expiry", h.optionExpiry)
}

func (h *MarketHandler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

func (h *MarketHandler) snapshot(c *gin.Context) {
	snap, err := h.Collector.Snapshot(c.Request.Context())
	if err != nil {
		h.Log.Warn("snapshot failed", zap.Error(err))
		Error(c, http.StatusBadGateway, "quote fetch failed", nil)
		return
	}
	Ok(c, snap, nil)
}

func (h *MarketHandler) ndx(c *gin.Context) {
	days := collector.ClampDays(intQuery(c, "days", collector.DefaultSeriesDays))
	series, err := h.Collector.IndexSeries(c.Request.Context(), days)
	if err != nil {
		h.Log.Warn("index series failed", zap.Error(err))
		Error(c, http.StatusBadGateway, "index fetch failed", nil)
		return
	}
	Ok(c, series, map[string]any{"days": days})
}

// zone classifies current against high. Missing values are taken from the
// index series: its last close and its peak close.
func (h *MarketHandler) zone(c *gin.Context) {
	current := floatQueryPtr(c, "current")
	high := floatQueryPtr(c, "high")
	meta := map[string]any{"source": "query"}

	var position *float64
	if current == nil || high == nil {
		series, err := h.Collector.IndexSeries(c.Request.Context(), intQuery(c, "days", collector.DefaultSeriesDays))
		if err != nil {
			h.Log.Warn("index series for zone failed", zap.Error(err))
			Error(c, http.StatusBadGateway, "index fetch failed", nil)
			return
		}
		hi, lo, err := calculator.SeriesRange(series.Series, 0)
		if err != nil {
			Error(c, http.StatusBadGateway, "index series is empty", nil)
			return
		}
		if current == nil {
			v := series.LastClose
			current = &v
		}
		if high == nil {
			high = &hi
		}
		if pos, err := calculator.RangePosition(*current, hi, lo); err == nil {
			position = &pos
		}
		meta = map[string]any{"source": series.Source, "symbol": series.Symbol, "low": lo, "days": len(series.Series)}
	}

	z, err := calculator.DrawdownZone(*current, *high)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Ok(c, gin.H{
		"current":        *current,
		"high":           *high,
		"zone":           z,
		"range_position": position,
	}, meta)
}

func (h *MarketHandler) status(c *gin.Context) {
	status, err := h.Tracker.MarketStatus(c.Request.Context())
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, gin.H{
		"gauge":    h.Registry.ReadGauge(status),
		"template": h.Registry.Lookup(status),
	}, map[string]any{"statuses": h.Registry.Statuses()})
}

func (h *MarketHandler) optionExpiry(c *gin.Context) {
	year := intQuery(c, "year", 0)
	month := intQuery(c, "month", 0)
	if year == 0 && month == 0 {
		Ok(c, calendar.NextExpiries(h.clock()), nil)
		return
	}
	if year < 1970 || month < 1 || month > 12 {
		Error(c, http.StatusBadRequest, "year and month are required", nil)
		return
	}
	Ok(c, calendar.OptionExpiry(year, time.Month(month)), nil)
}
