package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"InvestLogic/internal/auth"
	"InvestLogic/internal/model"
)

const userKey = "investlogic.user"

// RequireAuth resolves the bearer token to the stored user. The token may
// also be passed as the access_token query parameter for EventSource clients.
func RequireAuth(svc *auth.Service, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			Error(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}
		u, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				log.Error("authenticate failed", zap.Error(err))
				Error(c, http.StatusInternalServerError, "internal error", nil)
			} else {
				Error(c, http.StatusUnauthorized, err.Error(), nil)
			}
			c.Abort()
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// RequireTier rejects users below min. It must run after RequireAuth.
func RequireTier(min model.Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			Error(c, http.StatusUnauthorized, "login required", nil)
			c.Abort()
			return
		}
		if !u.Tier.AtLeast(min) {
			Error(c, http.StatusForbidden, "requires "+string(min)+" tier", map[string]any{"tier": u.Tier})
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *model.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if u := currentUser(c); u != nil {
			fields = append(fields, zap.String("user", u.ID))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("http request", fields...)
			return
		}
		log.Debug("http request", fields...)
	}
}
