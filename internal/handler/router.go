package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"InvestLogic/internal/admin"
	"InvestLogic/internal/auth"
	"InvestLogic/internal/collector"
	"InvestLogic/internal/strategy"
	"InvestLogic/internal/tracker"
)

// Deps are the services the HTTP API is built from.
type Deps struct {
	Auth      *auth.Service
	Tracker   *tracker.Service
	Admin     *admin.Service
	Collector *collector.Collector
	Registry  *strategy.Registry
	Cache     Pinger
	StocksURL string
	Log       *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(d.Log))

	handlers := []interface{ Register(*gin.Engine) }{
		&HealthHandler{Cache: d.Cache},
		&AuthHandler{Auth: d.Auth, Log: d.Log},
		&PlanHandler{Tracker: d.Tracker, Auth: d.Auth, Log: d.Log},
		&PortfolioHandler{Tracker: d.Tracker, Auth: d.Auth, Log: d.Log},
		&TradesHandler{Tracker: d.Tracker, Auth: d.Auth, Log: d.Log},
		&MarketHandler{Collector: d.Collector, Tracker: d.Tracker, Registry: d.Registry, Log: d.Log},
		&LabHandler{Admin: d.Admin, Auth: d.Auth, StocksURL: d.StocksURL, Log: d.Log},
		&AdminHandler{Admin: d.Admin, Auth: d.Auth, Log: d.Log},
	}
	for _, h := range handlers {
		h.Register(engine)
	}
	return engine
}
