package cacheperf

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/internal/testutil"
	"github.com/d60-Lab/gin-blog/pkg/cache"
)

func newBench(t *testing.T) *FeedBench {
	db := testutil.NewDB(t)
	_, client := testutil.NewRedis(t)
	a := testutil.CreateUser(t, db, "alice")
	g := testutil.CreateGroup(t, db, "news")
	for i := 0; i < 25; i++ {
		p := testutil.CreatePost(t, db, a, fmt.Sprintf("post %d", i))
		if i%3 == 0 {
			require.NoError(t, db.Model(p).Update("group_id", g.ID).Error)
		}
	}
	return NewFeedBench(
		repository.NewPostRepository(db),
		repository.NewGroupRepository(db),
		repository.NewUserRepository(db),
		cache.NewRedisCache(client, "bench:"),
		config.FeedConfig{PageSize: 10, IndexCacheTTL: time.Minute},
	)
}

func TestStrategiesReturnSamePages(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	for page := 1; page <= 3; page++ {
		want, err := b.Fetch(ctx, NoCache, page)
		require.NoError(t, err)
		for _, s := range []Strategy{PerPageCache, SnapshotCache} {
			got, err := b.Fetch(ctx, s, page)
			require.NoError(t, err)
			assert.Equal(t, normalize(want), normalize(got), "%s page %d", s, page)
		}
	}
	first, err := b.Fetch(ctx, NoCache, 1)
	require.NoError(t, err)
	require.NotNil(t, first[0].Group)
	assert.Equal(t, "news", first[0].Group.Slug)
}

func TestSnapshotLoadsOnce(t *testing.T) {
	b := newBench(t)
	ctx := context.Background()
	b.ResetCounters()

	for i := 0; i < 5; i++ {
		for page := 1; page <= 3; page++ {
			_, err := b.Fetch(ctx, SnapshotCache, page)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, DBCounters{FullLoads: 1}, b.Counters())

	b.ResetCounters()
	for i := 0; i < 2; i++ {
		for page := 1; page <= 3; page++ {
			_, err := b.Fetch(ctx, PerPageCache, page)
			require.NoError(t, err)
		}
	}
	assert.EqualValues(t, 3, b.Counters().PageQueries)
}

func TestUnknownStrategy(t *testing.T) {
	b := newBench(t)
	_, err := b.Fetch(context.Background(), Strategy("bogus"), 1)
	assert.Error(t, err)
}

// 缓存经过 JSON 往返，时间统一到 UTC 再比较
func normalize(views []service.PostView) []service.PostView {
	out := make([]service.PostView, len(views))
	for i, v := range views {
		v.CreatedAt = v.CreatedAt.UTC()
		out[i] = v
	}
	return out
}
