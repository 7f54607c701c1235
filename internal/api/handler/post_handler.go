package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/d60-Lab/gin-blog/internal/api/middleware"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/media"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

type postRequest struct {
	Text  string `json:"text" form:"text"`
	Group *uint  `json:"group" form:"group"`
}

// ListPosts 首页帖子列表（缓存 20 秒）
// @Summary 全部帖子
// @Tags 帖子
// @Produce json
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.FeedPage}
// @Router /api/v1/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	h.feed(c, service.FeedAll, "")
}

// GroupPosts 分组帖子列表
// @Summary 分组帖子
// @Tags 分组
// @Produce json
// @Param slug path string true "分组 slug"
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.FeedPage}
// @Failure 404 {object} response.Response
// @Router /api/v1/groups/{slug}/posts [get]
func (h *Handler) GroupPosts(c *gin.Context) {
	h.feed(c, service.FeedByGroup, c.Param("slug"))
}

// FollowFeed 关注作者的帖子
// @Summary 关注的作者的帖子
// @Tags 关注
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Success 200 {object} response.Response{data=service.FeedPage}
// @Failure 401 {object} response.Response
// @Router /api/v1/follow [get]
func (h *Handler) FollowFeed(c *gin.Context) {
	claims, _ := middleware.CurrentUser(c)
	h.feed(c, service.FeedFollowedBy, claims.Username)
}

func (h *Handler) feed(c *gin.Context, kind service.FeedKind, arg string) {
	fp, err := h.listingService.List(c.Request.Context(), kind, arg, pageParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.decorate(fp.Posts)
	response.Success(c, fp)
}

// CreatePost 发布帖子，支持 JSON 或 multipart（image 字段）
// @Summary 发布帖子
// @Tags 帖子
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body postRequest false "帖子内容"
// @Param image formData file false "图片"
// @Success 201 {object} response.Response{data=service.PostView}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	in, ok := h.bindPost(c)
	if !ok {
		return
	}
	defer closeUpload(in)
	p, err := h.postService.Create(c.Request.Context(), middleware.ViewerID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.decorateOne(p)
	response.Created(c, p)
}

// GetPost 帖子详情：评论、作者发帖数、粉丝数与当前用户是否已关注
// @Summary 帖子详情
// @Tags 帖子
// @Produce json
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response{data=service.PostDetail}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.NotFound(c, "not found")
		return
	}
	d, err := h.postService.Get(c.Request.Context(), middleware.ViewerID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.decorateOne(&d.Post)
	response.Success(c, d)
}

// EditPost 编辑帖子；非作者被重定向到详情页
// @Summary 编辑帖子
// @Tags 帖子
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "帖子ID"
// @Param request body postRequest false "帖子内容"
// @Success 200 {object} response.Response{data=service.PostView}
// @Success 303 "非作者，重定向到帖子详情"
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [put]
func (h *Handler) EditPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.NotFound(c, "not found")
		return
	}
	// 先判定归属，非作者的请求体不做解析
	if err := h.postService.CanEdit(c.Request.Context(), middleware.ViewerID(c), id); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			c.Redirect(http.StatusSeeOther, postPath(id))
			return
		}
		h.fail(c, err)
		return
	}
	in, ok := h.bindPost(c)
	if !ok {
		return
	}
	defer closeUpload(in)
	p, err := h.postService.Edit(c.Request.Context(), middleware.ViewerID(c), id, in)
	if errors.Is(err, service.ErrForbidden) {
		c.Redirect(http.StatusSeeOther, postPath(id))
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.decorateOne(p)
	response.Success(c, p)
}

// DeletePost 作者删除帖子，评论一并删除
// @Summary 删除帖子
// @Tags 帖子
// @Security BearerAuth
// @Param id path int true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		response.NotFound(c, "not found")
		return
	}
	if err := h.postService.Delete(c.Request.Context(), middleware.ViewerID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) bindPost(c *gin.Context) (service.PostInput, bool) {
	var in service.PostInput
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if h.maxUpload > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)
		}
		in.Text = c.PostForm("text")
		if g := c.PostForm("group"); g != "" {
			gid, err := strconv.ParseUint(g, 10, 64)
			if err != nil {
				response.Invalid(c, "invalid input", map[string]string{"group": "select a valid choice"})
				return in, false
			}
			v := uint(gid)
			in.GroupID = &v
		}
		fh, err := c.FormFile("image")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			response.Invalid(c, "invalid input", map[string]string{"image": "upload a valid image"})
			return in, false
		}
		if fh != nil {
			if h.maxUpload > 0 && fh.Size > h.maxUpload {
				response.Invalid(c, "invalid input", map[string]string{"image": fmt.Sprintf("image exceeds %d bytes", h.maxUpload)})
				return in, false
			}
			f, err := fh.Open()
			if err != nil {
				response.InternalError(c, err)
				return in, false
			}
			in.Image = &media.Upload{Body: f}
		}
		return in, true
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return in, false
	}
	in.Text = req.Text
	in.GroupID = req.Group
	return in, true
}

func closeUpload(in service.PostInput) {
	if in.Image == nil {
		return
	}
	if cl, ok := in.Image.Body.(io.Closer); ok {
		_ = cl.Close()
	}
}

func postPath(id uint) string {
	return "/api/v1/posts/" + strconv.FormatUint(uint64(id), 10)
}
