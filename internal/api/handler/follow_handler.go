package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/api/middleware"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

// Follow 关注作者（重复关注无副作用）
// @Summary 关注作者
// @Tags 关注
// @Produce json
// @Security BearerAuth
// @Param username path string true "作者用户名"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/profiles/{username}/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	if err := h.followService.Follow(c.Request.Context(), middleware.ViewerID(c), c.Param("username")); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"following": true})
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关注
// @Produce json
// @Security BearerAuth
// @Param username path string true "作者用户名"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/profiles/{username}/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	if err := h.followService.Unfollow(c.Request.Context(), middleware.ViewerID(c), c.Param("username")); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"following": false})
}

// ListFollowing 当前用户关注的作者
// @Summary 我关注的作者
// @Tags 关注
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量，最大 100" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/follow/authors [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	page := pageParam(c)
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	pageSize = service.FollowingPageSize(pageSize)
	list, err := h.followService.ListFollowing(c.Request.Context(), middleware.ViewerID(c), page, pageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}
