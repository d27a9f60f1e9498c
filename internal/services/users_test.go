package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
	"github.com/emilythestrangee/storymap/backend/internal/authz"
	"github.com/emilythestrangee/storymap/backend/internal/models"
	"github.com/emilythestrangee/storymap/backend/internal/storage"
)

func TestUserModeration(t *testing.T) {
	db := freshDB(t)
	ctx := context.Background()
	svc := NewUserService(db, storage.Unavailable{})

	super := seedUser(t, db, "super", models.RoleSuperAdmin)
	admin := seedUser(t, db, "root", models.RoleAdmin)
	other := seedUser(t, db, "root2", models.RoleAdmin)
	user := seedUser(t, db, "alice", models.RoleUser)

	_, err := svc.Update(ctx, actorOf(user), admin.ID, models.UpdateUserRequest{IsActive: ptr(false)})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.Update(ctx, actorOf(admin), other.ID, models.UpdateUserRequest{IsActive: ptr(false)})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.Update(ctx, actorOf(admin), admin.ID, models.UpdateUserRequest{Role: ptr(models.RoleSuperAdmin)})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	banned, err := svc.Update(ctx, actorOf(admin), user.ID, models.UpdateUserRequest{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, banned.IsActive)

	demoted, err := svc.Update(ctx, actorOf(super), other.ID, models.UpdateUserRequest{Role: ptr(models.RoleUser)})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, demoted.Role)

	_, err = svc.Update(ctx, actorOf(super), user.ID, models.UpdateUserRequest{Role: ptr(models.Role("Owner"))})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUserGet_HidesEmail(t *testing.T) {
	db := freshDB(t)
	ctx := context.Background()
	svc := NewUserService(db, storage.Unavailable{})

	user := seedUser(t, db, "alice", models.RoleUser)

	public, err := svc.Get(ctx, authz.Anonymous, user.ID)
	require.NoError(t, err)
	assert.Empty(t, public.Email)

	own, err := svc.Get(ctx, actorOf(user), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, own.Email)

	_, err = svc.List(ctx, actorOf(user))
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestUserDelete_RetractsVotes(t *testing.T) {
	db := freshDB(t)
	ctx := context.Background()
	svc := NewUserService(db, storage.Unavailable{})
	votes := NewVoteService(db)

	author := seedUser(t, db, "author", models.RoleUser)
	voter := seedUser(t, db, "voter", models.RoleUser)
	story := seedStory(t, db, author)
	comment := seedComment(t, db, story, author)
	own := seedStory(t, db, voter)

	_, err := votes.ToggleStory(ctx, actorOf(voter), story.ID, models.ActionLike)
	require.NoError(t, err)
	_, err = votes.ToggleStory(ctx, actorOf(author), story.ID, models.ActionDislike)
	require.NoError(t, err)
	_, err = votes.ToggleComment(ctx, actorOf(voter), comment.ID, models.ActionDislike)
	require.NoError(t, err)

	err = svc.Delete(ctx, actorOf(author), voter.ID)
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	require.NoError(t, svc.Delete(ctx, actorOf(voter), voter.ID))

	status, err := votes.StoryStatus(ctx, authz.Anonymous, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Likes)
	assert.Equal(t, 1, status.Dislikes)

	cstatus, err := votes.CommentStatus(ctx, authz.Anonymous, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cstatus.Dislikes)

	assert.EqualValues(t, 0, countRows(t, db, "users", "id = ?", voter.ID))
	assert.EqualValues(t, 0, countRows(t, db, "stories", "id = ?", own.ID))
	assert.EqualValues(t, 0, countRows(t, db, "story_votes", "user_id = ?", voter.ID))
}

func TestUpdateProfile(t *testing.T) {
	db := freshDB(t)
	ctx := context.Background()
	svc := NewUserService(db, storage.Unavailable{})

	user := seedUser(t, db, "alice", models.RoleUser)

	p, err := svc.UpdateProfile(ctx, actorOf(user), models.UpdateProfileRequest{FirstName: ptr(" Alice "), Bio: ptr("Walker")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.FirstName)
	assert.Equal(t, "Walker", p.Bio)

	p, err = svc.UpdateProfile(ctx, actorOf(user), models.UpdateProfileRequest{LastName: ptr("Liddell")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.FirstName)
	assert.Equal(t, "Liddell", p.LastName)

	_, err = svc.SetAvatar(ctx, actorOf(user), storage.File{Name: "me.png"})
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestActiveRole(t *testing.T) {
	db := freshDB(t)
	ctx := context.Background()
	svc := NewUserService(db, storage.Unavailable{})

	admin := seedUser(t, db, "root", models.RoleAdmin)
	user := seedUser(t, db, "alice", models.RoleUser)

	role, err := svc.ActiveRole(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	_, err = svc.Update(ctx, actorOf(seedUser(t, db, "super", models.RoleSuperAdmin)), admin.ID, models.UpdateUserRequest{Role: ptr(models.RoleUser)})
	require.NoError(t, err)
	role, err = svc.ActiveRole(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)

	_, err = svc.Update(ctx, actorOf(seedUser(t, db, "mod", models.RoleAdmin)), user.ID, models.UpdateUserRequest{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = svc.ActiveRole(ctx, user.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	require.NoError(t, svc.Delete(ctx, actorOf(admin), admin.ID))
	_, err = svc.ActiveRole(ctx, admin.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestSetRole(t *testing.T) {
	db := freshDB(t)
	ctx := context.Background()
	svc := NewUserService(db, storage.Unavailable{})

	admin := seedUser(t, db, "root", models.RoleAdmin)

	u, err := svc.SetRole(ctx, " ROOT@example.com ", models.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, u.ID)
	assert.Equal(t, models.RoleSuperAdmin, u.Role)

	role, err := svc.ActiveRole(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, role)

	// the new SuperAdmin can now appoint further admins
	other := seedUser(t, db, "alice", models.RoleUser)
	promoted, err := svc.Update(ctx, authz.Actor{UserID: admin.ID, Role: role}, other.ID, models.UpdateUserRequest{Role: ptr(models.RoleAdmin)})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	_, err = svc.SetRole(ctx, "nobody@example.com", models.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = svc.SetRole(ctx, "root@example.com", models.Role("Owner"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
