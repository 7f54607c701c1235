package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/gin-blog/internal/api/middleware"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

// ListComments 帖子评论，新评论在前
// @Summary 评论列表
// @Tags 评论
// @Produce json
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response{data=[]service.CommentView}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.NotFound(c, "not found")
		return
	}
	list, err := h.commentService.List(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, list)
}

// AddComment 发表评论
// @Summary 发表评论
// @Tags 评论
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "帖子ID"
// @Param request body service.CommentInput true "评论内容"
// @Success 201 {object} response.Response{data=service.CommentView}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.NotFound(c, "not found")
		return
	}
	var in service.CommentInput
	if err := c.ShouldBind(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cv, err := h.commentService.Add(c.Request.Context(), middleware.ViewerID(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, cv)
}
