package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/metrics"
)

type CommentInput struct {
	Text string `json:"text" form:"text" validate:"required"`
}

// CommentService 评论只追加
type CommentService interface {
	Add(ctx context.Context, authorID, postID uint, in CommentInput) (*CommentView, error)
	List(ctx context.Context, postID uint) ([]CommentView, error)
}

type commentService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	users    repository.UserRepository
}

func NewCommentService(posts repository.PostRepository, comments repository.CommentRepository, users repository.UserRepository) CommentService {
	return &commentService{posts: posts, comments: comments, users: users}
}

func (s *commentService) Add(ctx context.Context, authorID, postID uint, in CommentInput) (*CommentView, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, notFound(err, "post")
	}
	in.Text = strings.TrimSpace(in.Text)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, notFound(err, "author")
	}
	c := &model.Comment{PostID: postID, AuthorID: authorID, Text: in.Text}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create comment")
	}
	metrics.CommentsCreated.Inc()
	c.Author = *author
	v := toCommentView(c)
	return &v, nil
}

func (s *commentService) List(ctx context.Context, postID uint) ([]CommentView, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, notFound(err, "post")
	}
	items, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	return toCommentViews(items), nil
}
