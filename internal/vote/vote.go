// Package vote holds the like/dislike toggle state machine shared by story
// and comment votes. It decides what has to happen to the ledger row and the
// counters; applying that plan to storage is the caller's job.
package vote

import "github.com/emilythestrangee/storymap/backend/internal/models"

// LedgerOp is the mutation required on the (user, target) ledger row.
type LedgerOp int

const (
	OpCreate LedgerOp = iota + 1
	OpDelete
	OpUpdate
)

func (op LedgerOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpDelete:
		return "delete"
	case OpUpdate:
		return "update"
	}
	return "unknown"
}

// Counts are the cached aggregates stored on the target.
type Counts struct {
	Likes    int
	Dislikes int
}

// Plan is the outcome of a single vote request.
type Plan struct {
	Op            LedgerOp
	LikesDelta    int
	DislikesDelta int
	// Result is the user's vote after the plan is applied; nil means no vote.
	Result *models.VoteAction
}

// Decide maps the user's current vote (nil if none) and the requested action
// onto a plan:
//
//	none      -> create row, +1 on action
//	same      -> delete row, -1 on action
//	different -> update row, -1 on old, +1 on new
func Decide(current *models.VoteAction, requested models.VoteAction) Plan {
	if current == nil {
		p := Plan{Op: OpCreate, Result: actionPtr(requested)}
		p.add(requested, 1)
		return p
	}
	if *current == requested {
		p := Plan{Op: OpDelete}
		p.add(requested, -1)
		return p
	}
	p := Plan{Op: OpUpdate, Result: actionPtr(requested)}
	p.add(*current, -1)
	p.add(requested, 1)
	return p
}

func (p *Plan) add(a models.VoteAction, delta int) {
	switch a {
	case models.ActionLike:
		p.LikesDelta += delta
	case models.ActionDislike:
		p.DislikesDelta += delta
	}
}

// Apply returns the counts after the plan, never going below zero.
func (c Counts) Apply(p Plan) Counts {
	return Counts{
		Likes:    floor(c.Likes + p.LikesDelta),
		Dislikes: floor(c.Dislikes + p.DislikesDelta),
	}
}

func floor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func actionPtr(a models.VoteAction) *models.VoteAction {
	return &a
}
