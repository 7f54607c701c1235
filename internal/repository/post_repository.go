package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/internal/model"
)

// PostFilter 列表过滤条件，零值表示不过滤
type PostFilter struct {
	GroupID    uint
	AuthorID   uint
	FollowerID uint // 只看 FollowerID 关注的作者
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id uint) (*model.Post, error)
	// Update 只更新可编辑字段（text/group_id/image）
	Update(ctx context.Context, post *model.Post) error
	// Delete 删除帖子及其评论（同一事务）
	Delete(ctx context.Context, id uint) error
	ListAll(ctx context.Context) ([]*model.Post, error)
	List(ctx context.Context, f PostFilter, offset, limit int) ([]*model.Post, error)
	Count(ctx context.Context, f PostFilter) (int64, error)
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").Preload("Group").
		First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).
		Model(&model.Post{ID: post.ID}).
		Updates(map[string]any{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		}).Error
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Post{}, id).Error
	})
}

func (r *postRepository) ListAll(ctx context.Context) ([]*model.Post, error) {
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Preload("Author").Preload("Group").
		Order("created_at DESC, id DESC").
		Find(&res).Error
	return res, err
}

func (r *postRepository) List(ctx context.Context, f PostFilter, offset, limit int) ([]*model.Post, error) {
	var res []*model.Post
	err := r.scope(ctx, f).
		Preload("Author").Preload("Group").
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *postRepository) Count(ctx context.Context, f PostFilter) (int64, error) {
	var cnt int64
	err := r.scope(ctx, f).Count(&cnt).Error
	return cnt, err
}

func (r *postRepository) scope(ctx context.Context, f PostFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Post{})
	if f.GroupID != 0 {
		q = q.Where("group_id = ?", f.GroupID)
	}
	if f.AuthorID != 0 {
		q = q.Where("author_id = ?", f.AuthorID)
	}
	if f.FollowerID != 0 {
		sub := r.db.Model(&model.Follow{}).Select("followee_id").Where("follower_id = ?", f.FollowerID)
		q = q.Where("author_id IN (?)", sub)
	}
	return q
}
