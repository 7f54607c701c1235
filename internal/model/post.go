package model

import "time"

// Post 帖子；CreatedAt 即发布时间，创建后不再变化
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index:idx_post_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	AuthorID  uint      `gorm:"not null;index:idx_post_author" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	// 分组被删除时置空，帖子保留
	GroupID *uint  `gorm:"index:idx_post_group" json:"group_id,omitempty"`
	Group   *Group `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	Image   string `gorm:"type:varchar(255)" json:"image,omitempty"`
}

func (Post) TableName() string { return "posts" }

// Preview 前 15 个字符，用于日志与管理展示
func (p Post) Preview() string {
	r := []rune(p.Text)
	if len(r) > 15 {
		return string(r[:15])
	}
	return p.Text
}
