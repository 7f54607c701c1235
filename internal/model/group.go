package model

import "time"

const (
	GroupTitleMaxLen       = 200
	GroupDescriptionMaxLen = 1000
)

// Group 帖子分组，由管理员维护
type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	Slug        string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"-"`
}

func (Group) TableName() string { return "groups" }

func (g Group) String() string { return g.Title }
