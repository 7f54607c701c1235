package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

// ListGroups 全部分组（发帖表单的可选项）
// @Summary 分组列表
// @Tags 分组
// @Produce json
// @Success 200 {object} response.Response{data=[]service.GroupView}
// @Router /api/v1/groups [get]
func (h *Handler) ListGroups(c *gin.Context) {
	list, err := h.groupService.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, list)
}

// CreateGroup 管理员创建分组
// @Summary 创建分组
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.GroupInput true "分组信息"
// @Success 201 {object} response.Response{data=service.GroupView}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/admin/groups [post]
func (h *Handler) CreateGroup(c *gin.Context) {
	var in service.GroupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	g, err := h.groupService.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, g)
}

// DeleteGroup 管理员删除分组，帖子保留
// @Summary 删除分组
// @Tags 管理
// @Security BearerAuth
// @Param slug path string true "分组 slug"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/admin/groups/{slug} [delete]
func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.groupService.Delete(c.Request.Context(), c.Param("slug")); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}
