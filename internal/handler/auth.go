package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"InvestLogic/internal/auth"
)

type AuthHandler struct {
	Auth *auth.Service
	Log  *zap.Logger
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(r *gin.Engine) {
	r.POST("/api/auth/register", h.register)
	r.POST("/api/auth/login", h.login)
	r.GET("/api/me", RequireAuth(h.Auth, h.Log), h.me)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	sess, err := h.Auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, apiResponse{Code: 0, Message: "ok", Data: sess})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	sess, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, h.Log, err)
		return
	}
	Ok(c, sess, nil)
}

func (h *AuthHandler) me(c *gin.Context) {
	Ok(c, currentUser(c), nil)
}
