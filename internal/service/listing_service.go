package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/cache"
	"github.com/d60-Lab/gin-blog/pkg/logger"
	"github.com/d60-Lab/gin-blog/pkg/metrics"
)

// IndexCacheKey 首页全量列表的缓存键
const IndexCacheKey = "posts:index"

// FeedKind 列表类型
type FeedKind string

const (
	FeedAll        FeedKind = "all"
	FeedByGroup    FeedKind = "by-group"
	FeedByAuthor   FeedKind = "by-author"
	FeedFollowedBy FeedKind = "followed-by"
)

// FeedPage 一页帖子；按分组/作者查询时附带对应实体
type FeedPage struct {
	Posts  []PostView  `json:"posts"`
	Page   Page        `json:"page"`
	Group  *GroupView  `json:"group,omitempty"`
	Author *AuthorView `json:"author,omitempty"`
}

// ListingService 帖子列表
//
// arg 的含义随 kind 变化：by-group 为分组 slug，by-author 与 followed-by 为用户名，all 忽略。
type ListingService interface {
	List(ctx context.Context, kind FeedKind, arg string, page int) (*FeedPage, error)
}

type listingService struct {
	posts  repository.PostRepository
	groups repository.GroupRepository
	users  repository.UserRepository
	cache  cache.Cache
	feed   config.FeedConfig
}

func NewListingService(posts repository.PostRepository, groups repository.GroupRepository, users repository.UserRepository, c cache.Cache, feed config.FeedConfig) ListingService {
	return &listingService{posts: posts, groups: groups, users: users, cache: c, feed: feed}
}

func (s *listingService) List(ctx context.Context, kind FeedKind, arg string, page int) (*FeedPage, error) {
	switch kind {
	case FeedAll:
		return s.all(ctx, page)
	case FeedByGroup:
		g, err := s.groups.GetBySlug(ctx, arg)
		if err != nil {
			return nil, notFound(err, "group "+arg)
		}
		fp, err := s.filtered(ctx, repository.PostFilter{GroupID: g.ID}, page)
		if err != nil {
			return nil, err
		}
		fp.Group = toGroupView(g)
		return fp, nil
	case FeedByAuthor:
		u, err := s.users.GetByUsername(ctx, arg)
		if err != nil {
			return nil, notFound(err, "user "+arg)
		}
		fp, err := s.filtered(ctx, repository.PostFilter{AuthorID: u.ID}, page)
		if err != nil {
			return nil, err
		}
		av := toAuthorView(u)
		fp.Author = &av
		return fp, nil
	case FeedFollowedBy:
		u, err := s.users.GetByUsername(ctx, arg)
		if err != nil {
			return nil, notFound(err, "user "+arg)
		}
		return s.filtered(ctx, repository.PostFilter{FollowerID: u.ID}, page)
	default:
		return nil, invalid("kind", "unknown feed kind "+string(kind))
	}
}

// all 读取首页快照；写入不会清理缓存，新帖最多延迟一个 TTL 才出现
func (s *listingService) all(ctx context.Context, page int) (*FeedPage, error) {
	var posts []PostView
	hit, err := s.cache.Get(ctx, IndexCacheKey, &posts)
	if err != nil {
		metrics.FeedCache.WithLabelValues("error").Inc()
		logger.Warn("index cache get failed", zap.Error(err))
		hit = false
	}
	if hit {
		metrics.FeedCache.WithLabelValues("hit").Inc()
	} else {
		if err == nil {
			metrics.FeedCache.WithLabelValues("miss").Inc()
		}
		all, err := s.posts.ListAll(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "list all posts")
		}
		posts = ToPostViews(all)
		if err := s.cache.Set(ctx, IndexCacheKey, posts, s.feed.IndexCacheTTL); err != nil {
			logger.Warn("index cache set failed", zap.Error(err))
		}
	}

	if posts == nil {
		posts = []PostView{}
	}
	pg := NewPage(page, int64(len(posts)), s.feed.PageSize)
	start := pg.Offset()
	end := start + pg.PageSize
	if start > len(posts) {
		start = len(posts)
	}
	if end > len(posts) {
		end = len(posts)
	}
	return &FeedPage{Posts: posts[start:end], Page: pg}, nil
}

func (s *listingService) filtered(ctx context.Context, f repository.PostFilter, page int) (*FeedPage, error) {
	count, err := s.posts.Count(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "count posts")
	}
	pg := NewPage(page, count, s.feed.PageSize)
	if count == 0 {
		return &FeedPage{Posts: []PostView{}, Page: pg}, nil
	}
	items, err := s.posts.List(ctx, f, pg.Offset(), pg.PageSize)
	if err != nil {
		return nil, errors.Wrap(err, "list posts")
	}
	return &FeedPage{Posts: ToPostViews(items), Page: pg}, nil
}
