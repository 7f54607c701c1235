package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/api/middleware"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

// Signup 注册并直接登录
// @Summary 注册
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body service.Credentials true "用户名与口令"
// @Success 201 {object} response.Response{data=service.Session}
// @Failure 400 {object} response.Response
// @Router /api/v1/auth/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var in service.Credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s, err := h.authService.Signup(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	setTokenCookie(c, s)
	response.Created(c, s)
}

// Login 登录，令牌同时写入 cookie
// @Summary 登录
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body service.Credentials true "用户名与口令"
// @Success 200 {object} response.Response{data=service.Session}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in service.Credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	s, err := h.authService.Login(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	setTokenCookie(c, s)
	response.Success(c, s)
}

// Logout 清除 cookie
// @Summary 退出登录
// @Tags 用户
// @Success 200 {object} response.Response
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
	response.Success(c, nil)
}

func setTokenCookie(c *gin.Context, s *service.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, s.Token, maxAge, "/", "", c.Request.TLS != nil, true)
}
