package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/logger"
	"github.com/d60-Lab/gin-blog/pkg/metrics"
)

// FollowService 关注关系；允许关注自己
type FollowService interface {
	// Follow 重复关注不报错
	Follow(ctx context.Context, followerID uint, username string) error
	// Unfollow 未关注时同样成功
	Unfollow(ctx context.Context, followerID uint, username string) error
	IsFollowing(ctx context.Context, followerID, authorID uint) (bool, error)
	FollowerCount(ctx context.Context, authorID uint) (int64, error)
	FollowingCount(ctx context.Context, userID uint) (int64, error)
	ListFollowing(ctx context.Context, userID uint, page, pageSize int) ([]AuthorView, error)
}

type followService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
}

func NewFollowService(follows repository.FollowRepository, users repository.UserRepository) FollowService {
	return &followService{follows: follows, users: users}
}

func (s *followService) Follow(ctx context.Context, followerID uint, username string) error {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return notFound(err, "user "+username)
	}
	if err := s.follows.Create(ctx, followerID, author.ID); err != nil {
		return errors.Wrap(err, "create follow")
	}
	metrics.Follows.WithLabelValues("follow").Inc()
	logger.Debug("follow", zap.Uint("follower_id", followerID), zap.Uint("author_id", author.ID))
	return nil
}

func (s *followService) Unfollow(ctx context.Context, followerID uint, username string) error {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return notFound(err, "user "+username)
	}
	if err := s.follows.Delete(ctx, followerID, author.ID); err != nil {
		return errors.Wrap(err, "delete follow")
	}
	metrics.Follows.WithLabelValues("unfollow").Inc()
	return nil
}

func (s *followService) IsFollowing(ctx context.Context, followerID, authorID uint) (bool, error) {
	if followerID == 0 {
		return false, nil
	}
	ok, err := s.follows.Exists(ctx, followerID, authorID)
	return ok, errors.Wrap(err, "check following")
}

func (s *followService) FollowerCount(ctx context.Context, authorID uint) (int64, error) {
	n, err := s.follows.CountFollowers(ctx, authorID)
	return n, errors.Wrap(err, "count followers")
}

func (s *followService) FollowingCount(ctx context.Context, userID uint) (int64, error) {
	n, err := s.follows.CountFollowing(ctx, userID)
	return n, errors.Wrap(err, "count following")
}

const (
	defaultFollowingPageSize = 10
	maxFollowingPageSize     = 100
)

// FollowingPageSize 收敛关注列表的每页数量到 [1, 100]，非正数取默认值
func FollowingPageSize(n int) int {
	switch {
	case n < 1:
		return defaultFollowingPageSize
	case n > maxFollowingPageSize:
		return maxFollowingPageSize
	default:
		return n
	}
}

func (s *followService) ListFollowing(ctx context.Context, userID uint, page, pageSize int) ([]AuthorView, error) {
	if page < 1 {
		page = 1
	}
	pageSize = FollowingPageSize(pageSize)
	items, err := s.follows.ListFollowings(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, errors.Wrap(err, "list following")
	}
	res := make([]AuthorView, len(items))
	for i, it := range items {
		res[i] = toAuthorView(&it.Followee)
	}
	return res, nil
}
