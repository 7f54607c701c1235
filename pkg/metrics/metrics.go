package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 指标：
// - blog_http_requests_total：按路由/方法/状态码计数
// - blog_http_request_duration_seconds：按路由/方法的耗时分布
// - blog_feed_cache_total：首页列表缓存命中情况（hit/miss/error）
// - blog_posts_created_total / blog_comments_created_total / blog_follows_total
var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "blog_http_requests_total", Help: "HTTP 请求计数（按路由/方法/状态）"},
		[]string{"path", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "blog_http_request_duration_seconds", Help: "HTTP 请求耗时（秒）", Buckets: prometheus.DefBuckets},
		[]string{"path", "method"},
	)
	FeedCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "blog_feed_cache_total", Help: "首页列表缓存读取结果"},
		[]string{"result"},
	)
	PostsCreated    = prometheus.NewCounter(prometheus.CounterOpts{Name: "blog_posts_created_total", Help: "新建帖子数"})
	CommentsCreated = prometheus.NewCounter(prometheus.CounterOpts{Name: "blog_comments_created_total", Help: "新建评论数"})
	Follows         = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "blog_follows_total", Help: "关注/取关操作数"},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, FeedCache, PostsCreated, CommentsCreated, Follows)
}

// Handler 记录每个请求的计数与耗时
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPLatency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
		HTTPRequests.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Exposer /metrics
func Exposer() gin.HandlerFunc { return gin.WrapH(promhttp.Handler()) }
