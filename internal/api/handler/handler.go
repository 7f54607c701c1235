package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/media"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

// Handler 聚合全部 HTTP 处理器
type Handler struct {
	authService    service.AuthService
	listingService service.ListingService
	postService    service.PostService
	commentService service.CommentService
	followService  service.FollowService
	groupService   service.GroupService
	profileService service.ProfileService
	media          media.Store
	maxUpload      int64
}

type Services struct {
	Auth      service.AuthService
	Listing   service.ListingService
	Post      service.PostService
	Comment   service.CommentService
	Follow    service.FollowService
	Group     service.GroupService
	Profile   service.ProfileService
	Media     media.Store
	MaxUpload int64
}

func NewHandler(s Services) *Handler {
	return &Handler{
		authService:    s.Auth,
		listingService: s.Listing,
		postService:    s.Post,
		commentService: s.Comment,
		followService:  s.Follow,
		groupService:   s.Group,
		profileService: s.Profile,
		media:          s.Media,
		maxUpload:      s.MaxUpload,
	}
}

// fail 把服务层错误映射为 HTTP 响应
func (h *Handler) fail(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		response.Invalid(c, "invalid input", ve.Fields)
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, "forbidden")
	case errors.Is(err, service.ErrUnauthorized):
		response.Unauthorized(c, "invalid credentials")
	default:
		response.InternalError(c, err)
	}
}

// pageParam 非数字页码按第一页处理，越界由服务层收敛
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		return 1
	}
	return page
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) decorate(posts []service.PostView) {
	if h.media == nil {
		return
	}
	for i := range posts {
		posts[i].ImageURL = h.media.URL(posts[i].Image)
	}
}

func (h *Handler) decorateOne(p *service.PostView) {
	if h.media != nil && p != nil {
		p.ImageURL = h.media.URL(p.Image)
	}
}
