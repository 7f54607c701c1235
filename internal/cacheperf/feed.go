// Package cacheperf compares caching strategies for the index feed so the
// single-key snapshot used by the listing service can be measured against
// per-page caching and no caching at all.
package cacheperf

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/cache"
)

// Strategy selects how FeedBench.Fetch reads a page.
type Strategy string

const (
	NoCache       Strategy = "no-cache"
	PerPageCache  Strategy = "per-page"
	SnapshotCache Strategy = "snapshot"
)

// FeedBench wraps the post repository and counts every DB round trip.
type FeedBench struct {
	posts    repository.PostRepository
	cache    cache.Cache
	listing  service.ListingService
	pageSize int
	ttl      time.Duration

	pageQueries atomic.Int64
	fullLoads   atomic.Int64
}

// NewFeedBench builds the listing service on top of a counting repository so
// snapshot loads are recorded as well.
func NewFeedBench(posts repository.PostRepository, groups repository.GroupRepository, users repository.UserRepository, c cache.Cache, feed config.FeedConfig) *FeedBench {
	b := &FeedBench{cache: c, pageSize: feed.PageSize, ttl: feed.IndexCacheTTL}
	b.posts = &countingPosts{PostRepository: posts, b: b}
	b.listing = service.NewListingService(b.posts, groups, users, c, feed)
	return b
}

func (b *FeedBench) Fetch(ctx context.Context, s Strategy, page int) ([]service.PostView, error) {
	switch s {
	case NoCache:
		return b.queryPage(ctx, page)
	case PerPageCache:
		key := fmt.Sprintf("posts:index:%d", page)
		var out []service.PostView
		if hit, err := b.cache.Get(ctx, key, &out); err == nil && hit {
			return out, nil
		}
		out, err := b.queryPage(ctx, page)
		if err != nil {
			return nil, err
		}
		_ = b.cache.Set(ctx, key, out, b.ttl)
		return out, nil
	case SnapshotCache:
		fp, err := b.listing.List(ctx, service.FeedAll, "", page)
		if err != nil {
			return nil, err
		}
		return fp.Posts, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", s)
	}
}

func (b *FeedBench) queryPage(ctx context.Context, page int) ([]service.PostView, error) {
	count, err := b.posts.Count(ctx, repository.PostFilter{})
	if err != nil {
		return nil, err
	}
	pg := service.NewPage(page, count, b.pageSize)
	items, err := b.posts.List(ctx, repository.PostFilter{}, pg.Offset(), pg.PageSize)
	if err != nil {
		return nil, err
	}
	return service.ToPostViews(items), nil
}

// ResetCounters clears recorded db call counters.
func (b *FeedBench) ResetCounters() {
	b.pageQueries.Store(0)
	b.fullLoads.Store(0)
}

// Counters reports how many underlying DB loads were executed.
func (b *FeedBench) Counters() DBCounters {
	return DBCounters{PageQueries: b.pageQueries.Load(), FullLoads: b.fullLoads.Load()}
}

// DBCounters summarises DB hits during a run.
type DBCounters struct {
	PageQueries int64
	FullLoads   int64
}

type countingPosts struct {
	repository.PostRepository
	b *FeedBench
}

func (c *countingPosts) List(ctx context.Context, f repository.PostFilter, offset, limit int) ([]*model.Post, error) {
	c.b.pageQueries.Add(1)
	return c.PostRepository.List(ctx, f, offset, limit)
}

func (c *countingPosts) ListAll(ctx context.Context) ([]*model.Post, error) {
	c.b.fullLoads.Add(1)
	return c.PostRepository.ListAll(ctx)
}
