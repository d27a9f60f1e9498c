package models

import (
	"time"

	"gorm.io/gorm"
)

type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	Likes     int            `gorm:"not null;default:0" json:"likes"`
	Dislikes  int            `gorm:"not null;default:0" json:"dislikes"`
	AuthorID  uint           `gorm:"not null;index" json:"author_id"`
	Author    User           `gorm:"foreignKey:AuthorID" json:"author"`
	StoryID   uint           `gorm:"not null;index" json:"story_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type CommentRequest struct {
	Body string `json:"body" binding:"required"`
}
