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
)

type GroupInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Slug        string `json:"slug" validate:"required,max=50,slug"`
	Description string `json:"description" validate:"max=1000"`
}

// GroupService 分组管理，仅管理员调用写操作
type GroupService interface {
	Create(ctx context.Context, in GroupInput) (*GroupView, error)
	// Delete 帖子保留，分组引用被清空
	Delete(ctx context.Context, slug string) error
	List(ctx context.Context) ([]GroupView, error)
}

type groupService struct {
	groups repository.GroupRepository
}

func NewGroupService(groups repository.GroupRepository) GroupService {
	return &groupService{groups: groups}
}

func (s *groupService) Create(ctx context.Context, in GroupInput) (*GroupView, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	_, err := s.groups.GetBySlug(ctx, in.Slug)
	if err == nil {
		return nil, invalid("slug", "group with this slug already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "check slug")
	}

	g := &model.Group{Title: in.Title, Slug: in.Slug, Description: in.Description}
	if err := s.groups.Create(ctx, g); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("slug", "group with this slug already exists")
		}
		return nil, errors.Wrap(err, "create group")
	}
	logger.Info("group created", zap.String("slug", g.Slug))
	return toGroupView(g), nil
}

func (s *groupService) Delete(ctx context.Context, slug string) error {
	g, err := s.groups.GetBySlug(ctx, slug)
	if err != nil {
		return notFound(err, "group "+slug)
	}
	if err := s.groups.Delete(ctx, g.ID); err != nil {
		return errors.Wrap(err, "delete group")
	}
	logger.Info("group deleted", zap.String("slug", slug))
	return nil
}

func (s *groupService) List(ctx context.Context) ([]GroupView, error) {
	items, err := s.groups.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list groups")
	}
	res := make([]GroupView, len(items))
	for i, g := range items {
		res[i] = *toGroupView(g)
	}
	return res, nil
}
