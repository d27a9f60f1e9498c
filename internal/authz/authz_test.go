package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emilythestrangee/storymap/backend/internal/models"
)

func TestCanModify(t *testing.T) {
	const author = uint(7)

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"author", Actor{UserID: author, Role: models.RoleUser}, true},
		{"other user", Actor{UserID: 8, Role: models.RoleUser}, false},
		{"admin", Actor{UserID: 9, Role: models.RoleAdmin}, true},
		{"super admin", Actor{UserID: 10, Role: models.RoleSuperAdmin}, true},
		{"anonymous", Anonymous, false},
		{"unknown role", Actor{UserID: 11, Role: "Moderator"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanModify(tt.actor, author))
		})
	}
}

func TestCanAssignRole(t *testing.T) {
	user := &models.User{ID: 2, Role: models.RoleUser}
	admin := &models.User{ID: 3, Role: models.RoleAdmin}

	admActor := Actor{UserID: 1, Role: models.RoleAdmin}
	superActor := Actor{UserID: 1, Role: models.RoleSuperAdmin}

	assert.True(t, CanAssignRole(admActor, user, models.RoleUser))
	assert.False(t, CanAssignRole(admActor, user, models.RoleAdmin))
	assert.False(t, CanAssignRole(admActor, admin, models.RoleUser))
	assert.True(t, CanAssignRole(superActor, user, models.RoleAdmin))
	assert.True(t, CanAssignRole(superActor, admin, models.RoleUser))
	assert.False(t, CanAssignRole(Actor{UserID: 3, Role: models.RoleAdmin}, admin, models.RoleSuperAdmin))
	assert.False(t, CanAssignRole(Actor{UserID: 5, Role: models.RoleUser}, user, models.RoleUser))
}

func TestCanDeleteUser(t *testing.T) {
	user := &models.User{ID: 2, Role: models.RoleUser}

	assert.True(t, CanDeleteUser(Actor{UserID: 2, Role: models.RoleUser}, user))
	assert.False(t, CanDeleteUser(Actor{UserID: 4, Role: models.RoleUser}, user))
	assert.True(t, CanDeleteUser(Actor{UserID: 1, Role: models.RoleAdmin}, user))
	assert.False(t, CanDeleteUser(Actor{UserID: 1, Role: models.RoleAdmin}, &models.User{ID: 3, Role: models.RoleSuperAdmin}))
}
