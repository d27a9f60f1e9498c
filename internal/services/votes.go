package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
	"github.com/emilythestrangee/storymap/backend/internal/authz"
	"github.com/emilythestrangee/storymap/backend/internal/metrics"
	"github.com/emilythestrangee/storymap/backend/internal/models"
	"github.com/emilythestrangee/storymap/backend/internal/vote"
)

// maxVoteAttempts bounds retries after a unique violation on the ledger insert.
const maxVoteAttempts = 3

// ledger describes one target table and its vote table. storyCol names the
// column holding the story that decides whether the target is visible.
type ledger struct {
	label       string
	targetTable string
	voteTable   string
	targetCol   string
	storyCol    string
}

var (
	storyLedger   = ledger{label: "Story", targetTable: "stories", voteTable: "story_votes", targetCol: "story_id", storyCol: "id"}
	commentLedger = ledger{label: "Comment", targetTable: "comments", voteTable: "comment_votes", targetCol: "comment_id", storyCol: "story_id"}
)

type targetCounts struct {
	ID       uint
	StoryID  uint
	Likes    int
	Dislikes int
}

type ledgerRow struct {
	ID     uint
	Action models.VoteAction
}

type VoteService struct {
	db *gorm.DB
}

func NewVoteService(db *gorm.DB) *VoteService {
	return &VoteService{db: db}
}

func (s *VoteService) ToggleStory(ctx context.Context, actor authz.Actor, storyID uint, action models.VoteAction) (*models.VoteResult, error) {
	return s.toggle(ctx, storyLedger, actor, storyID, action)
}

func (s *VoteService) ToggleComment(ctx context.Context, actor authz.Actor, commentID uint, action models.VoteAction) (*models.VoteResult, error) {
	return s.toggle(ctx, commentLedger, actor, commentID, action)
}

// StoryStatus reports counters and the caller's vote; UserAction stays nil for
// anonymous callers.
func (s *VoteService) StoryStatus(ctx context.Context, actor authz.Actor, storyID uint) (*models.VoteResult, error) {
	return s.status(ctx, storyLedger, actor, storyID)
}

func (s *VoteService) CommentStatus(ctx context.Context, actor authz.Actor, commentID uint) (*models.VoteResult, error) {
	return s.status(ctx, commentLedger, actor, commentID)
}

func (s *VoteService) toggle(ctx context.Context, l ledger, actor authz.Actor, targetID uint, action models.VoteAction) (*models.VoteResult, error) {
	if !action.Valid() {
		return nil, apperr.Validation(`Action must be "like" or "dislike"`)
	}
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("User not authenticated")
	}
	userID := actor.UserID

	var err error
	for attempt := 1; attempt <= maxVoteAttempts; attempt++ {
		var res *models.VoteResult
		res, err = s.toggleOnce(ctx, l, actor, targetID, action)
		if err == nil {
			return res, nil
		}
		if _, dup := uniqueViolation(err); !dup {
			return nil, err
		}
		metrics.VoteRetries.WithLabelValues(l.targetTable).Inc()
		zap.L().Warn("vote ledger insert raced, retrying",
			zap.String("target", l.targetTable),
			zap.Uint("target_id", targetID),
			zap.Uint("user_id", userID),
			zap.Int("attempt", attempt),
		)
	}
	return nil, fmt.Errorf("toggle %s vote: %w", l.targetTable, err)
}

// toggleOnce runs one read-check-write cycle in a transaction. The target row
// is locked first so concurrent votes on the same target are serialized.
func (s *VoteService) toggleOnce(ctx context.Context, l ledger, actor authz.Actor, targetID uint, action models.VoteAction) (*models.VoteResult, error) {
	var result *models.VoteResult
	userID := actor.UserID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.visibleTarget(tx, l, actor, targetID, true); err != nil {
			return err
		}

		current, rowID, err := s.currentVote(tx, l, targetID, userID)
		if err != nil {
			return err
		}

		plan := vote.Decide(current, action)

		switch plan.Op {
		case vote.OpCreate:
			err = tx.Exec(
				"INSERT INTO "+l.voteTable+" (user_id, "+l.targetCol+", action, created_at, updated_at) VALUES (?, ?, ?, NOW(), NOW())",
				userID, targetID, action,
			).Error
		case vote.OpDelete:
			err = tx.Exec("DELETE FROM "+l.voteTable+" WHERE id = ?", rowID).Error
		case vote.OpUpdate:
			err = tx.Exec("UPDATE "+l.voteTable+" SET action = ?, updated_at = NOW() WHERE id = ?", action, rowID).Error
		}
		if err != nil {
			return err
		}

		var after targetCounts
		err = tx.Raw(
			"UPDATE "+l.targetTable+" SET likes = GREATEST(likes + ?, 0), dislikes = GREATEST(dislikes + ?, 0) WHERE id = ? RETURNING id, likes, dislikes",
			plan.LikesDelta, plan.DislikesDelta, targetID,
		).Scan(&after).Error
		if err != nil {
			return err
		}

		metrics.Votes.WithLabelValues(l.targetTable, plan.Op.String()).Inc()
		result = &models.VoteResult{Likes: after.Likes, Dislikes: after.Dislikes, UserAction: plan.Result}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// visibleTarget loads the live target row, locking it when asked, and applies
// the story visibility rule: drafts, and comments on drafts, are NotFound
// unless the actor may modify the story.
func (s *VoteService) visibleTarget(db *gorm.DB, l ledger, actor authz.Actor, targetID uint, lock bool) (*targetCounts, error) {
	q := db.Table(l.targetTable)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var counts targetCounts
	err := q.Select(fmt.Sprintf("id, %s AS story_id, likes, dislikes", l.storyCol)).
		Where("id = ? AND deleted_at IS NULL", targetID).
		Take(&counts).Error
	if err != nil {
		return nil, notFoundOr(err, l.label)
	}
	if err := visibleStory(db, actor, counts.StoryID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("%s not found", l.label)
		}
		return nil, err
	}
	return &counts, nil
}

func (s *VoteService) currentVote(tx *gorm.DB, l ledger, targetID, userID uint) (*models.VoteAction, uint, error) {
	var row ledgerRow
	err := tx.Table(l.voteTable).
		Select("id", "action").
		Where("user_id = ? AND "+l.targetCol+" = ?", userID, targetID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return &row.Action, row.ID, nil
}

func (s *VoteService) status(ctx context.Context, l ledger, actor authz.Actor, targetID uint) (*models.VoteResult, error) {
	db := s.db.WithContext(ctx)

	counts, err := s.visibleTarget(db, l, actor, targetID, false)
	if err != nil {
		return nil, err
	}

	res := &models.VoteResult{Likes: counts.Likes, Dislikes: counts.Dislikes}
	if actor.Authenticated() {
		current, _, err := s.currentVote(db, l, targetID, actor.UserID)
		if err != nil {
			return nil, err
		}
		res.UserAction = current
	}
	return res, nil
}
