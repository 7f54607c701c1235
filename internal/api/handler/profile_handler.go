package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/api/middleware"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

// Profile 作者主页
// @Summary 作者主页
// @Tags 用户
// @Produce json
// @Param username path string true "用户名"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.Profile}
// @Failure 404 {object} response.Response
// @Router /api/v1/profiles/{username} [get]
func (h *Handler) Profile(c *gin.Context) {
	p, err := h.profileService.Get(c.Request.Context(), middleware.ViewerID(c), c.Param("username"), pageParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.decorate(p.Feed.Posts)
	response.Success(c, p)
}
