package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/logger"
	"github.com/d60-Lab/gin-blog/pkg/media"
	"github.com/d60-Lab/gin-blog/pkg/metrics"
)

// 上传图片保存目录
const postImageDir = "posts"

// PostInput 创建/编辑帖子的表单；GroupID 为空表示不属于任何分组
type PostInput struct {
	Text    string        `json:"text" validate:"required"`
	GroupID *uint         `json:"group"`
	Image   *media.Upload `json:"-"`
}

// PostDetail 帖子详情页
type PostDetail struct {
	Post            PostView      `json:"post"`
	Comments        []CommentView `json:"comments"`
	AuthorPostCount int64         `json:"author_post_count"`
	FollowerCount   int64         `json:"follower_count"`
	Following       bool          `json:"following"`
}

type PostService interface {
	Create(ctx context.Context, authorID uint, in PostInput) (*PostView, error)
	// Edit 非作者返回 ErrForbidden，帖子保持不变
	Edit(ctx context.Context, requesterID, postID uint, in PostInput) (*PostView, error)
	// CanEdit 与 Edit 相同的 NotFound/Forbidden 判定，不读取输入
	CanEdit(ctx context.Context, requesterID, postID uint) error
	Delete(ctx context.Context, requesterID, postID uint) error
	// Get viewerID 为 0 表示匿名访问
	Get(ctx context.Context, viewerID, postID uint) (*PostDetail, error)
}

type postService struct {
	posts    repository.PostRepository
	groups   repository.GroupRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository
	store    media.Store
}

func NewPostService(posts repository.PostRepository, groups repository.GroupRepository, comments repository.CommentRepository, follows repository.FollowRepository, store media.Store) PostService {
	return &postService{posts: posts, groups: groups, comments: comments, follows: follows, store: store}
}

func (s *postService) Create(ctx context.Context, authorID uint, in PostInput) (*PostView, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	p := &model.Post{Text: in.Text, AuthorID: authorID, GroupID: in.GroupID}
	if in.Image != nil {
		key, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		p.Image = key
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create post")
	}
	metrics.PostsCreated.Inc()
	logger.Info("post created", zap.Uint("post_id", p.ID), zap.Uint("author_id", authorID), zap.String("preview", p.Preview()))
	return s.view(ctx, p.ID)
}

func (s *postService) Edit(ctx context.Context, requesterID, postID uint, in PostInput) (*PostView, error) {
	p, err := s.owned(ctx, requesterID, postID)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	p.Text = in.Text
	p.GroupID = in.GroupID
	// 未上传新图片时保留原图
	if in.Image != nil {
		key, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		p.Image = key
	}
	if err := s.posts.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update post")
	}
	return s.view(ctx, p.ID)
}

func (s *postService) CanEdit(ctx context.Context, requesterID, postID uint) error {
	_, err := s.owned(ctx, requesterID, postID)
	return err
}

func (s *postService) Delete(ctx context.Context, requesterID, postID uint) error {
	if _, err := s.owned(ctx, requesterID, postID); err != nil {
		return err
	}
	return errors.Wrap(s.posts.Delete(ctx, postID), "delete post")
}

func (s *postService) owned(ctx context.Context, requesterID, postID uint) (*model.Post, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, notFound(err, "post")
	}
	if p.AuthorID != requesterID {
		return nil, errors.Wrapf(ErrForbidden, "user %d is not the author of post %d", requesterID, postID)
	}
	return p, nil
}

func (s *postService) Get(ctx context.Context, viewerID, postID uint) (*PostDetail, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, notFound(err, "post")
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	postCount, err := s.posts.Count(ctx, repository.PostFilter{AuthorID: p.AuthorID})
	if err != nil {
		return nil, errors.Wrap(err, "count author posts")
	}
	followers, err := s.follows.CountFollowers(ctx, p.AuthorID)
	if err != nil {
		return nil, errors.Wrap(err, "count followers")
	}
	following := false
	if viewerID != 0 {
		if following, err = s.follows.Exists(ctx, viewerID, p.AuthorID); err != nil {
			return nil, errors.Wrap(err, "check following")
		}
	}
	return &PostDetail{
		Post:            toPostView(p),
		Comments:        toCommentViews(comments),
		AuthorPostCount: postCount,
		FollowerCount:   followers,
		Following:       following,
	}, nil
}

// check 清理并校验输入，分组必须存在
func (s *postService) check(ctx context.Context, in *PostInput) error {
	in.Text = strings.TrimSpace(in.Text)
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.GroupID != nil {
		if _, err := s.groups.GetByID(ctx, *in.GroupID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("group", "select a valid choice")
			}
			return errors.Wrap(err, "load group")
		}
	}
	return nil
}

func (s *postService) saveImage(ctx context.Context, up *media.Upload) (string, error) {
	if s.store == nil {
		return "", invalid("image", "image uploads are disabled")
	}
	key, err := s.store.Save(ctx, postImageDir, up)
	if errors.Is(err, media.ErrNotImage) {
		return "", invalid("image", "upload a valid image")
	}
	if err != nil {
		return "", errors.Wrap(err, "save image")
	}
	return key, nil
}

func (s *postService) view(ctx context.Context, id uint) (*PostView, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "post")
	}
	v := toPostView(p)
	return &v, nil
}
