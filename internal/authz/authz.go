// Package authz holds the permission predicates evaluated before every
// mutating service call.
package authz

import "github.com/emilythestrangee/storymap/backend/internal/models"

// Actor is the authenticated caller, passed explicitly into services.
type Actor struct {
	UserID uint
	Role   models.Role
}

// Anonymous is the zero actor used for unauthenticated reads.
var Anonymous = Actor{}

func (a Actor) Authenticated() bool {
	return a.UserID != 0
}

func IsAdmin(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleSuperAdmin
}

// CanModify reports whether actor may update or delete a resource authored by authorID.
func CanModify(actor Actor, authorID uint) bool {
	if !actor.Authenticated() {
		return false
	}
	return IsAdmin(actor.Role) || actor.UserID == authorID
}

// CanAssignRole reports whether actor may move target from its current role to newRole.
// Admins manage plain users only; privileged roles are granted and revoked by SuperAdmin.
func CanAssignRole(actor Actor, target *models.User, newRole models.Role) bool {
	if !IsAdmin(actor.Role) || actor.UserID == target.ID {
		return false
	}
	if actor.Role == models.RoleSuperAdmin {
		return true
	}
	return !IsAdmin(target.Role) && !IsAdmin(newRole)
}

// CanModerateUser reports whether actor may activate or deactivate target.
func CanModerateUser(actor Actor, target *models.User) bool {
	if !IsAdmin(actor.Role) || actor.UserID == target.ID {
		return false
	}
	return actor.Role == models.RoleSuperAdmin || !IsAdmin(target.Role)
}

// CanDeleteUser allows self-deletion and moderation by an admin.
func CanDeleteUser(actor Actor, target *models.User) bool {
	if actor.Authenticated() && actor.UserID == target.ID {
		return true
	}
	return CanModerateUser(actor, target)
}
