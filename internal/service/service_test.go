package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/testutil"
	"github.com/d60-Lab/gin-blog/pkg/cache"
	"github.com/d60-Lab/gin-blog/pkg/media"
)

type env struct {
	db       *gorm.DB
	cache    *cache.MemoryCache
	listing  ListingService
	posts    PostService
	comments CommentService
	follows  FollowService
	groups   GroupService
	profiles ProfileService
	auth     AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	c := cache.NewMemoryCache()
	store, err := media.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	feed := config.FeedConfig{PageSize: 10, IndexCacheTTL: 20 * time.Second}
	listing := NewListingService(postRepo, groupRepo, userRepo, c, feed)
	follows := NewFollowService(followRepo, userRepo)
	return &env{
		db:       db,
		cache:    c,
		listing:  listing,
		posts:    NewPostService(postRepo, groupRepo, commentRepo, followRepo, store),
		comments: NewCommentService(postRepo, commentRepo, userRepo),
		follows:  follows,
		groups:   NewGroupService(groupRepo),
		profiles: NewProfileService(userRepo, listing, follows),
		auth:     NewAuthService(userRepo, config.JWTConfig{Secret: "test-secret", Expire: time.Hour}),
	}
}

func (e *env) post(t *testing.T, author *model.User, text string) *PostView {
	t.Helper()
	p, err := e.posts.Create(context.Background(), author.ID, PostInput{Text: text})
	require.NoError(t, err)
	return p
}

func TestCreateThenByAuthorIsFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "leo")

	e.post(t, a, "older")
	created := e.post(t, a, "newest")

	fp, err := e.listing.List(ctx, FeedByAuthor, "leo", 1)
	require.NoError(t, err)
	require.Len(t, fp.Posts, 2)
	assert.Equal(t, created.ID, fp.Posts[0].ID)
	assert.Equal(t, "leo", fp.Author.Username)
}

func TestAuthorFollowScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	e.post(t, a, "Hello")

	fp, err := e.listing.List(ctx, FeedByAuthor, "alice", 1)
	require.NoError(t, err)
	require.Len(t, fp.Posts, 1)
	assert.Equal(t, "Hello", fp.Posts[0].Text)

	require.NoError(t, e.follows.Follow(ctx, b.ID, "alice"))
	fp, err = e.listing.List(ctx, FeedFollowedBy, "bob", 1)
	require.NoError(t, err)
	require.Len(t, fp.Posts, 1)
	assert.Equal(t, "Hello", fp.Posts[0].Text)

	require.NoError(t, e.follows.Unfollow(ctx, b.ID, "alice"))
	fp, err = e.listing.List(ctx, FeedFollowedBy, "bob", 1)
	require.NoError(t, err)
	assert.Empty(t, fp.Posts)
}

func TestIndexFeedIsStaleUntilCleared(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")

	fp, err := e.listing.List(ctx, FeedAll, "", 1)
	require.NoError(t, err)
	assert.Empty(t, fp.Posts)

	e.post(t, a, "fresh")

	fp, err = e.listing.List(ctx, FeedAll, "", 1)
	require.NoError(t, err)
	assert.Empty(t, fp.Posts, "cached index is served until it expires")

	require.NoError(t, e.cache.Clear(ctx))
	fp, err = e.listing.List(ctx, FeedAll, "", 1)
	require.NoError(t, err)
	require.Len(t, fp.Posts, 1)
	assert.Equal(t, "fresh", fp.Posts[0].Text)
}

func TestListingNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.listing.List(ctx, FeedByGroup, "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.listing.List(ctx, FeedByAuthor, "ghost", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.listing.List(ctx, FeedKind("weird"), "", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListingByGroupAndClamping(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	g := testutil.CreateGroup(t, e.db, "cats")

	for i := 0; i < 13; i++ {
		_, err := e.posts.Create(ctx, a.ID, PostInput{Text: "cat post", GroupID: &g.ID})
		require.NoError(t, err)
	}
	e.post(t, a, "no group")

	fp, err := e.listing.List(ctx, FeedByGroup, "cats", 99)
	require.NoError(t, err)
	assert.Equal(t, 2, fp.Page.Number)
	assert.Equal(t, 2, fp.Page.NumPages)
	assert.EqualValues(t, 13, fp.Page.Count)
	assert.Len(t, fp.Posts, 3)
	assert.False(t, fp.Page.HasNext)
	assert.True(t, fp.Page.HasPrevious)
	assert.Equal(t, "cats", fp.Group.Slug)

	fp, err = e.listing.List(ctx, FeedByGroup, "cats", -3)
	require.NoError(t, err)
	assert.Equal(t, 1, fp.Page.Number)
	assert.Len(t, fp.Posts, 10)
	require.NotNil(t, fp.Posts[0].Group)
	assert.Equal(t, "cats", fp.Posts[0].Group.Slug)

	fp, err = e.listing.List(ctx, FeedAll, "", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, fp.Page.Number)
	assert.Len(t, fp.Posts, 4)
}

func TestFollowedByEmptyWhenFollowingNobody(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	testutil.CreateUser(t, e.db, "bob")
	e.post(t, a, "hi")

	fp, err := e.listing.List(context.Background(), FeedFollowedBy, "bob", 1)
	require.NoError(t, err)
	assert.Empty(t, fp.Posts)
	assert.Equal(t, 1, fp.Page.NumPages)
}

func TestCreateRejectsEmptyText(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")

	_, err := e.posts.Create(context.Background(), a.ID, PostInput{Text: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "text")
}

func TestCreateRejectsUnknownGroup(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	missing := uint(404)

	_, err := e.posts.Create(context.Background(), a.ID, PostInput{Text: "x", GroupID: &missing})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "group")
}

func TestCreateWithImage(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")
	gif := []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

	p, err := e.posts.Create(context.Background(), a.ID, PostInput{
		Text:  "with picture",
		Image: &media.Upload{Body: bytes.NewReader(gif)},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^posts/.+\.gif$`, p.Image)

	_, err = e.posts.Create(context.Background(), a.ID, PostInput{
		Text:  "not a picture",
		Image: &media.Upload{Body: bytes.NewReader([]byte("hello"))},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEditByAuthorKeepsCreatedAt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	g := testutil.CreateGroup(t, e.db, "news")
	orig := e.post(t, a, "draft")

	edited, err := e.posts.Edit(ctx, a.ID, orig.ID, PostInput{Text: "final", GroupID: &g.ID})
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Text)
	require.NotNil(t, edited.Group)
	assert.Equal(t, "news", edited.Group.Slug)
	assert.Equal(t, a.ID, edited.Author.ID)
	assert.True(t, orig.CreatedAt.Equal(edited.CreatedAt))
}

func TestEditByNonOwnerChangesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "mallory")
	g := testutil.CreateGroup(t, e.db, "news")
	orig, err := e.posts.Create(ctx, a.ID, PostInput{Text: "mine", GroupID: &g.ID})
	require.NoError(t, err)

	_, err = e.posts.Edit(ctx, b.ID, orig.ID, PostInput{Text: "hijacked"})
	require.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, e.posts.CanEdit(ctx, b.ID, orig.ID), ErrForbidden)
	assert.NoError(t, e.posts.CanEdit(ctx, a.ID, orig.ID))
	assert.ErrorIs(t, e.posts.CanEdit(ctx, a.ID, 9999), ErrNotFound)

	var stored model.Post
	require.NoError(t, e.db.First(&stored, orig.ID).Error)
	assert.Equal(t, "mine", stored.Text)
	require.NotNil(t, stored.GroupID)
	assert.Equal(t, g.ID, *stored.GroupID)
	assert.Equal(t, a.ID, stored.AuthorID)
	assert.Empty(t, stored.Image)
}

func TestEditUnknownPost(t *testing.T) {
	e := newEnv(t)
	a := testutil.CreateUser(t, e.db, "alice")

	_, err := e.posts.Edit(context.Background(), a.ID, 9999, PostInput{Text: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePostCascadesComments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	g := testutil.CreateGroup(t, e.db, "news")
	p, err := e.posts.Create(ctx, a.ID, PostInput{Text: "bye", GroupID: &g.ID})
	require.NoError(t, err)
	_, err = e.comments.Add(ctx, b.ID, p.ID, CommentInput{Text: "first"})
	require.NoError(t, err)

	require.ErrorIs(t, e.posts.Delete(ctx, b.ID, p.ID), ErrForbidden)
	require.NoError(t, e.posts.Delete(ctx, a.ID, p.ID))

	var n int64
	e.db.Model(&model.Comment{}).Count(&n)
	assert.Zero(t, n)
	e.db.Model(&model.User{}).Where("id = ?", a.ID).Count(&n)
	assert.EqualValues(t, 1, n)
	e.db.Model(&model.Group{}).Where("id = ?", g.ID).Count(&n)
	assert.EqualValues(t, 1, n)
}

func TestPostDetail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	p := e.post(t, a, "look")
	e.post(t, a, "another")
	_, err := e.comments.Add(ctx, b.ID, p.ID, CommentInput{Text: "one"})
	require.NoError(t, err)
	_, err = e.comments.Add(ctx, b.ID, p.ID, CommentInput{Text: "two"})
	require.NoError(t, err)
	require.NoError(t, e.follows.Follow(ctx, b.ID, "alice"))

	d, err := e.posts.Get(ctx, b.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "look", d.Post.Text)
	require.Len(t, d.Comments, 2)
	assert.Equal(t, "two", d.Comments[0].Text)
	assert.Equal(t, "bob", d.Comments[0].Author.Username)
	assert.EqualValues(t, 2, d.AuthorPostCount)
	assert.EqualValues(t, 1, d.FollowerCount)
	assert.True(t, d.Following)

	anon, err := e.posts.Get(ctx, 0, p.ID)
	require.NoError(t, err)
	assert.False(t, anon.Following)

	_, err = e.posts.Get(ctx, 0, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddComment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	p := e.post(t, a, "post")

	c, err := e.comments.Add(ctx, a.ID, p.ID, CommentInput{Text: "  nice  "})
	require.NoError(t, err)
	assert.Equal(t, "nice", c.Text)
	assert.Equal(t, "alice", c.Author.Username)

	_, err = e.comments.Add(ctx, a.ID, p.ID, CommentInput{Text: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.comments.Add(ctx, a.ID, 777, CommentInput{Text: "lost"})
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := e.comments.List(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFollowIdempotentAndCounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")

	require.NoError(t, e.follows.Follow(ctx, b.ID, "alice"))
	require.NoError(t, e.follows.Follow(ctx, b.ID, "alice"))

	var edges int64
	e.db.Model(&model.Follow{}).Where("follower_id = ? AND followee_id = ?", b.ID, a.ID).Count(&edges)
	assert.EqualValues(t, 1, edges)

	n, err := e.follows.FollowerCount(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = e.follows.FollowingCount(ctx, b.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ok, err := e.follows.IsFollowing(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.follows.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := e.follows.ListFollowing(ctx, b.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Username)

	require.NoError(t, e.follows.Unfollow(ctx, b.ID, "alice"))
	require.NoError(t, e.follows.Unfollow(ctx, b.ID, "alice"))
	e.db.Model(&model.Follow{}).Count(&edges)
	assert.Zero(t, edges)

	assert.ErrorIs(t, e.follows.Follow(ctx, b.ID, "nobody"), ErrNotFound)
	assert.ErrorIs(t, e.follows.Unfollow(ctx, b.ID, "nobody"), ErrNotFound)
}

func TestSelfFollowAllowed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "narcissus")

	require.NoError(t, e.follows.Follow(ctx, a.ID, "narcissus"))
	ok, err := e.follows.IsFollowing(ctx, a.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGroupLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")

	g, err := e.groups.Create(ctx, GroupInput{Title: "Cats", Slug: "cats", Description: "meow"})
	require.NoError(t, err)

	_, err = e.groups.Create(ctx, GroupInput{Title: "Cats again", Slug: "cats"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "slug")

	_, err = e.groups.Create(ctx, GroupInput{Title: "Bad", Slug: "no spaces"})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "slug")

	long := make([]rune, model.GroupTitleMaxLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = e.groups.Create(ctx, GroupInput{Title: string(long), Slug: "long"})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")

	p, err := e.posts.Create(ctx, a.ID, PostInput{Text: "in cats", GroupID: &g.ID})
	require.NoError(t, err)

	list, err := e.groups.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, e.groups.Delete(ctx, "cats"))
	assert.ErrorIs(t, e.groups.Delete(ctx, "cats"), ErrNotFound)

	var stored model.Post
	require.NoError(t, e.db.First(&stored, p.ID).Error)
	assert.Nil(t, stored.GroupID)
}

func TestProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, e.db, "alice")
	b := testutil.CreateUser(t, e.db, "bob")
	e.post(t, a, "one")
	require.NoError(t, e.follows.Follow(ctx, b.ID, "alice"))
	require.NoError(t, e.follows.Follow(ctx, a.ID, "bob"))

	p, err := e.profiles.Get(ctx, b.ID, "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Author.Username)
	assert.EqualValues(t, 1, p.Feed.Page.Count)
	assert.EqualValues(t, 1, p.FollowerCount)
	assert.EqualValues(t, 1, p.FollowingCount)
	assert.True(t, p.Following)

	_, err = e.profiles.Get(ctx, 0, "ghost", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthSignupLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	s, err := e.auth.Signup(ctx, Credentials{Username: "newbie", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token)

	claims, err := e.auth.ParseToken(s.Token)
	require.NoError(t, err)
	assert.Equal(t, "newbie", claims.Username)
	assert.Equal(t, s.User.ID, claims.UserID)

	_, err = e.auth.Signup(ctx, Credentials{Username: "newbie", Password: "another-pass"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.auth.Signup(ctx, Credentials{Username: "bad name", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.auth.Login(ctx, Credentials{Username: "newbie", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.auth.Login(ctx, Credentials{Username: "nobody", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	s2, err := e.auth.Login(ctx, Credentials{Username: "newbie", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, s2.Token)

	_, err = e.auth.ParseToken(s2.Token + "x")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	e := newEnv(t)
	testutil.CreateUser(t, e.db, "alice")
	svc := e.auth.(*authService)

	s, err := svc.Login(context.Background(), Credentials{Username: "alice", Password: "password"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ParseToken(s.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEnsureAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.auth.EnsureAdmin(ctx, Credentials{Username: "root", Password: "rootpass1"}))
	s, err := e.auth.Login(ctx, Credentials{Username: "root", Password: "rootpass1"})
	require.NoError(t, err)
	claims, err := e.auth.ParseToken(s.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)

	u := testutil.CreateUser(t, e.db, "alice")
	require.NoError(t, e.auth.EnsureAdmin(ctx, Credentials{Username: "alice"}))
	var stored model.User
	require.NoError(t, e.db.First(&stored, u.ID).Error)
	assert.True(t, stored.IsAdmin)
}

func TestSignupPasswordLimitCountsBytes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// 30 个汉字 = 90 字节
	_, err := e.auth.Signup(ctx, Credentials{Username: "zhang", Password: strings.Repeat("密", 30)})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "password")

	_, err = e.auth.Signup(ctx, Credentials{Username: "zhang", Password: strings.Repeat("密", 24)})
	assert.NoError(t, err)
}

// 模拟并发：存在性检查放行后由唯一索引兜底
type blindUsers struct{ repository.UserRepository }

func (blindUsers) GetByUsername(context.Context, string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}

type blindGroups struct{ repository.GroupRepository }

func (blindGroups) GetBySlug(context.Context, string) (*model.Group, error) {
	return nil, gorm.ErrRecordNotFound
}

func TestSignupDuplicateCaughtByUniqueIndex(t *testing.T) {
	db := testutil.NewDB(t)
	auth := NewAuthService(blindUsers{repository.NewUserRepository(db)}, config.JWTConfig{Secret: "s", Expire: time.Hour})
	ctx := context.Background()

	_, err := auth.Signup(ctx, Credentials{Username: "twin", Password: "password1"})
	require.NoError(t, err)

	_, err = auth.Signup(ctx, Credentials{Username: "twin", Password: "password2"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "username")
}

func TestGroupDuplicateCaughtByUniqueIndex(t *testing.T) {
	db := testutil.NewDB(t)
	groups := NewGroupService(blindGroups{repository.NewGroupRepository(db)})
	ctx := context.Background()

	_, err := groups.Create(ctx, GroupInput{Title: "Cats", Slug: "cats"})
	require.NoError(t, err)

	_, err = groups.Create(ctx, GroupInput{Title: "Other cats", Slug: "cats"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "slug")
}

func TestFollowingPageSize(t *testing.T) {
	for in, want := range map[int]int{-1: 10, 0: 10, 1: 1, 25: 25, 100: 100, 101: 100, 1 << 30: 100} {
		assert.Equal(t, want, FollowingPageSize(in), "input %d", in)
	}
}
