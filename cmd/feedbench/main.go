package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/cacheperf"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/cache"
	"github.com/d60-Lab/gin-blog/pkg/database"
)

func main() {
	authors := flag.Int("authors", 50, "number of seeded authors")
	posts := flag.Int("posts", 5000, "number of seeded posts")
	requests := flag.Int("requests", 3000, "requests per strategy")
	seed := flag.Bool("seed", true, "seed posts before running")
	flag.Parse()

	ctx := context.Background()

	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer database.Close(db)

	if *seed {
		fmt.Println("Seeding posts...")
		seedPosts(db, *authors, *posts)
	}

	c, flush := newCache(ctx, cfg)
	bench := cacheperf.NewFeedBench(
		repository.NewPostRepository(db),
		repository.NewGroupRepository(db),
		repository.NewUserRepository(db),
		c,
		cfg.Feed,
	)

	count := must(repository.NewPostRepository(db).Count(ctx, repository.PostFilter{}))
	pages := int(math.Ceil(float64(count) / float64(cfg.Feed.PageSize)))
	reqs := makeRequests(*requests, pages)

	fmt.Printf("\nIndex feed latency (%d req, %d posts, page_size=%d, ttl=%v)\n",
		len(reqs), count, cfg.Feed.PageSize, cfg.Feed.IndexCacheTTL)
	for _, s := range []cacheperf.Strategy{cacheperf.NoCache, cacheperf.PerPageCache, cacheperf.SnapshotCache} {
		mustDo(flush(ctx))
		res := run(ctx, bench, s, reqs)
		fmt.Printf("%-10s avg=%v p95=%v p99=%v db_page=%d db_full=%d\n",
			s, avg(res.durations), pct(res.durations, 0.95), pct(res.durations, 0.99),
			res.counters.PageQueries, res.counters.FullLoads)
	}
}

type result struct {
	durations []time.Duration
	counters  cacheperf.DBCounters
}

func run(ctx context.Context, b *cacheperf.FeedBench, s cacheperf.Strategy, pages []int) result {
	b.ResetCounters()
	out := make([]time.Duration, 0, len(pages))
	for _, p := range pages {
		start := time.Now()
		if _, err := b.Fetch(ctx, s, p); err != nil {
			panic(err)
		}
		out = append(out, time.Since(start))
	}
	return result{durations: out, counters: b.Counters()}
}

// 有 redis 用 redis，否则退回进程内缓存
func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(context.Context) error) {
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err == nil {
			rc := cache.NewRedisCache(client, cfg.Redis.KeyPrefix+"bench:")
			return rc, rc.Clear
		}
		fmt.Printf("redis %s unreachable, using memory cache\n", cfg.Redis.Addr)
	}
	mc := cache.NewMemoryCache()
	return mc, mc.Clear
}

func seedPosts(db *gorm.DB, authors, posts int) {
	users := make([]model.User, authors)
	for i := range users {
		users[i] = model.User{
			Username: fmt.Sprintf("bench_%d_%d", time.Now().UnixNano(), i),
			Password: "x",
		}
	}
	mustDo(db.CreateInBatches(&users, 500).Error)

	base := time.Now()
	rows := make([]model.Post, posts)
	for i := range rows {
		rows[i] = model.Post{
			Text:      fmt.Sprintf("bench post %d", i),
			AuthorID:  users[i%authors].ID,
			CreatedAt: base.Add(-time.Duration(i) * time.Second),
		}
	}
	mustDo(db.CreateInBatches(&rows, 1000).Error)
}

// 大部分请求落在前几页，少量深翻页
func makeRequests(n, pages int) []int {
	if pages < 1 {
		pages = 1
	}
	rnd := rand.New(rand.NewSource(42))
	out := make([]int, n)
	for i := range out {
		out[i] = 1
		if rnd.Float64() > 0.72 {
			out[i] = 1 + rnd.Intn(pages)
		}
	}
	return out
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}
