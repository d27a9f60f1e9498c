package models

import "time"

// VoteAction is the single current choice stored in a vote ledger row.
type VoteAction string

const (
	ActionLike    VoteAction = "like"
	ActionDislike VoteAction = "dislike"
)

func (a VoteAction) Valid() bool {
	return a == ActionLike || a == ActionDislike
}

// StoryVote tracks one user's vote on a story. The (user, story) pair is unique.
type StoryVote struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;uniqueIndex:idx_story_votes_user_story,priority:1" json:"user_id"`
	StoryID   uint       `gorm:"not null;uniqueIndex:idx_story_votes_user_story,priority:2;index" json:"story_id"`
	Action    VoteAction `gorm:"size:8;not null" json:"action"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CommentVote tracks one user's vote on a comment. The (user, comment) pair is unique.
type CommentVote struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;uniqueIndex:idx_comment_votes_user_comment,priority:1" json:"user_id"`
	CommentID uint       `gorm:"not null;uniqueIndex:idx_comment_votes_user_comment,priority:2;index" json:"comment_id"`
	Action    VoteAction `gorm:"size:8;not null" json:"action"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type VoteRequest struct {
	Action VoteAction `json:"action" binding:"required"`
}

// VoteResult is returned by both the toggle and the status endpoints.
type VoteResult struct {
	Likes      int         `json:"likes"`
	Dislikes   int         `json:"dislikes"`
	UserAction *VoteAction `json:"userAction"`
}
