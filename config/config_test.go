package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Feed.PageSize)
	assert.Equal(t, 20*time.Second, cfg.Feed.IndexCacheTTL)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BLOG_FEED_PAGE_SIZE", "3")
	t.Setenv("BLOG_REDIS_ENABLED", "true")
	t.Setenv("BLOG_FEED_INDEX_CACHE_TTL", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Feed.PageSize)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Feed.IndexCacheTTL)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BLOG_DATABASE_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}

func TestS3BackendRequiresBucket(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BLOG_MEDIA_BACKEND", "s3")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("BLOG_MEDIA_S3_BUCKET", "blog-media")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "blog-media", cfg.Media.S3.Bucket)
}

func TestReleaseModeRequiresSecret(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BLOG_SERVER_MODE", "release")

	_, err := Load()
	assert.Error(t, err)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
