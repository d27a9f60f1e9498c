package vote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/storymap/backend/internal/models"
)

func ptr(a models.VoteAction) *models.VoteAction { return &a }

func TestDecide_Transitions(t *testing.T) {
	tests := []struct {
		name      string
		current   *models.VoteAction
		requested models.VoteAction
		op        LedgerOp
		likes     int
		dislikes  int
		result    *models.VoteAction
	}{
		{"none to liked", nil, models.ActionLike, OpCreate, 1, 0, ptr(models.ActionLike)},
		{"none to disliked", nil, models.ActionDislike, OpCreate, 0, 1, ptr(models.ActionDislike)},
		{"liked to none", ptr(models.ActionLike), models.ActionLike, OpDelete, -1, 0, nil},
		{"disliked to none", ptr(models.ActionDislike), models.ActionDislike, OpDelete, 0, -1, nil},
		{"liked to disliked", ptr(models.ActionLike), models.ActionDislike, OpUpdate, -1, 1, ptr(models.ActionDislike)},
		{"disliked to liked", ptr(models.ActionDislike), models.ActionLike, OpUpdate, 1, -1, ptr(models.ActionLike)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Decide(tt.current, tt.requested)
			assert.Equal(t, tt.op, p.Op)
			assert.Equal(t, tt.likes, p.LikesDelta)
			assert.Equal(t, tt.dislikes, p.DislikesDelta)
			assert.Equal(t, tt.result, p.Result)
		})
	}
}

func TestApply_FloorsAtZero(t *testing.T) {
	p := Decide(ptr(models.ActionLike), models.ActionDislike)

	got := Counts{Likes: 0, Dislikes: 0}.Apply(p)
	assert.Equal(t, Counts{Likes: 0, Dislikes: 1}, got)

	retract := Decide(ptr(models.ActionDislike), models.ActionDislike)
	got = got.Apply(retract).Apply(retract)
	assert.Equal(t, Counts{}, got)
}

// Replays the like -> like -> dislike -> like sequence by one user on one story.
func TestScenario(t *testing.T) {
	var (
		counts  Counts
		current *models.VoteAction
	)

	steps := []struct {
		action models.VoteAction
		want   Counts
		result *models.VoteAction
	}{
		{models.ActionLike, Counts{Likes: 1}, ptr(models.ActionLike)},
		{models.ActionLike, Counts{}, nil},
		{models.ActionDislike, Counts{Dislikes: 1}, ptr(models.ActionDislike)},
		{models.ActionLike, Counts{Likes: 1}, ptr(models.ActionLike)},
	}

	for i, s := range steps {
		p := Decide(current, s.action)
		counts = counts.Apply(p)
		current = p.Result
		require.Equal(t, s.want, counts, "step %d", i)
		require.Equal(t, s.result, current, "step %d", i)
	}
}

func TestToggleTwiceRestoresCounts(t *testing.T) {
	start := Counts{Likes: 4, Dislikes: 2}
	for _, a := range []models.VoteAction{models.ActionLike, models.ActionDislike} {
		first := Decide(nil, a)
		second := Decide(first.Result, a)
		assert.Equal(t, start, start.Apply(first).Apply(second))
		assert.Nil(t, second.Result)
	}
}
