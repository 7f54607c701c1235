package service

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/d60-Lab/gin-blog/internal/model"
)

// AuthorView 对外展示的用户信息（不含口令）
type AuthorView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type GroupView struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type PostView struct {
	ID        uint       `json:"id"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
	Image     string     `json:"image,omitempty"`
	ImageURL  string     `json:"image_url,omitempty" copier:"-"`
	Author    AuthorView `json:"author" copier:"-"`
	Group     *GroupView `json:"group,omitempty" copier:"-"`
}

type CommentView struct {
	ID        uint       `json:"id"`
	PostID    uint       `json:"post_id"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
	Author    AuthorView `json:"author" copier:"-"`
}

func toAuthorView(u *model.User) AuthorView {
	var v AuthorView
	_ = copier.Copy(&v, u)
	return v
}

func toGroupView(g *model.Group) *GroupView {
	if g == nil {
		return nil
	}
	v := &GroupView{}
	_ = copier.Copy(v, g)
	return v
}

func toPostView(p *model.Post) PostView {
	var v PostView
	_ = copier.Copy(&v, p)
	v.Author = toAuthorView(&p.Author)
	v.Group = toGroupView(p.Group)
	return v
}

// ToPostViews 列表视图，Author/Group 需已预加载
func ToPostViews(posts []*model.Post) []PostView {
	res := make([]PostView, len(posts))
	for i, p := range posts {
		res[i] = toPostView(p)
	}
	return res
}

func toCommentView(c *model.Comment) CommentView {
	var v CommentView
	_ = copier.Copy(&v, c)
	v.Author = toAuthorView(&c.Author)
	return v
}

func toCommentViews(comments []*model.Comment) []CommentView {
	res := make([]CommentView, len(comments))
	for i, c := range comments {
		res[i] = toCommentView(c)
	}
	return res
}
