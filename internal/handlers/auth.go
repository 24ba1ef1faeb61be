package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"transitadmin/internal/middleware"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type accessKeyRequest struct {
	Username  string `json:"username" binding:"required"`
	AccessKey string `json:"accessKey" binding:"required"`
}

func (h HandlerSet) AccessKeyLogin(c *gin.Context) {
	var req accessKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.auth.AccessKeyLogin(c.Request.Context(), req.Username, req.AccessKey)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HandlerSet) Logout(c *gin.Context) {
	session, _ := middleware.CurrentSession(c)
	if err := h.auth.Logout(c.Request.Context(), session.SessionID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	session, _ := middleware.CurrentSession(c)
	c.JSON(http.StatusOK, gin.H{"user": session})
}
