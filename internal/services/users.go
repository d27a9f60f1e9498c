package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
	"github.com/emilythestrangee/storymap/backend/internal/authz"
	"github.com/emilythestrangee/storymap/backend/internal/models"
	"github.com/emilythestrangee/storymap/backend/internal/storage"
)

type UserService struct {
	db       *gorm.DB
	uploader storage.Uploader
}

func NewUserService(db *gorm.DB, uploader storage.Uploader) *UserService {
	return &UserService{db: db, uploader: uploader}
}

// List returns every user with profile. Administrators only.
func (s *UserService) List(ctx context.Context, actor authz.Actor) ([]models.User, error) {
	if !authz.IsAdmin(actor.Role) {
		return nil, apperr.Forbidden("Only administrators can list users")
	}
	users := []models.User{}
	if err := s.db.WithContext(ctx).Preload("Profile").Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Get returns the public view of a user; the email is only kept for the
// user themself and administrators.
func (s *UserService) Get(ctx context.Context, actor authz.Actor, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").Take(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User")
	}
	if !authz.CanModify(actor, user.ID) {
		user.Email = ""
	}
	return &user, nil
}

// ActiveRole returns the stored role of an active account. Missing and
// deactivated accounts are Unauthorized so that outstanding tokens stop
// working as soon as an account is moderated or removed.
func (s *UserService) ActiveRole(ctx context.Context, id uint) (models.Role, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "role", "is_active").Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.Unauthorized("Account no longer exists")
	}
	if err != nil {
		return "", fmt.Errorf("load user %d: %w", id, err)
	}
	if !user.IsActive {
		return "", apperr.Unauthorized("Account is inactive")
	}
	return user.Role, nil
}

// Update applies moderation changes: role and active flag.
func (s *UserService) Update(ctx context.Context, actor authz.Actor, id uint, req models.UpdateUserRequest) (*models.User, error) {
	if !authz.IsAdmin(actor.Role) {
		return nil, apperr.Forbidden("Only administrators can moderate users")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.Take(&target, id).Error; err != nil {
			return notFoundOr(err, "User")
		}

		changes := map[string]any{}
		if req.Role != nil {
			if !req.Role.Valid() {
				return apperr.Validation("Role must be one of User, Admin, SuperAdmin")
			}
			if !authz.CanAssignRole(actor, &target, *req.Role) {
				return apperr.Forbidden("You cannot assign this role")
			}
			changes["role"] = *req.Role
		}
		if req.IsActive != nil {
			if !authz.CanModerateUser(actor, &target) {
				return apperr.Forbidden("You cannot change this account's status")
			}
			changes["is_active"] = *req.IsActive
		}
		if len(changes) == 0 {
			return apperr.Validation("Nothing to update")
		}
		return tx.Model(&target).Updates(changes).Error
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("user moderated",
		zap.Uint("actor_id", actor.UserID),
		zap.Uint("user_id", id),
		zap.Any("role", req.Role),
		zap.Any("is_active", req.IsActive),
	)
	return s.Get(ctx, actor, id)
}

// SetRole changes an account's role without an acting user. It backs the
// grant-role console command, the only way to create a SuperAdmin.
func (s *UserService) SetRole(ctx context.Context, email string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperr.Validation("Role must be one of User, Admin, SuperAdmin")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).Take(&user).Error; err != nil {
			return notFoundOr(err, "User")
		}
		return tx.Model(&user).Update("role", role).Error
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("role granted from console",
		zap.Uint("user_id", user.ID),
		zap.String("role", string(role)),
	)
	return &user, nil
}

// deleteUserStatements remove a user and everything they own. The user's
// votes are retracted first so the remaining counters stay in step with the
// ledger.
var deleteUserStatements = []string{
	`UPDATE stories SET likes = GREATEST(likes - 1, 0) WHERE id IN (SELECT story_id FROM story_votes WHERE user_id = @user AND action = 'like')`,
	`UPDATE stories SET dislikes = GREATEST(dislikes - 1, 0) WHERE id IN (SELECT story_id FROM story_votes WHERE user_id = @user AND action = 'dislike')`,
	`UPDATE comments SET likes = GREATEST(likes - 1, 0) WHERE id IN (SELECT comment_id FROM comment_votes WHERE user_id = @user AND action = 'like')`,
	`UPDATE comments SET dislikes = GREATEST(dislikes - 1, 0) WHERE id IN (SELECT comment_id FROM comment_votes WHERE user_id = @user AND action = 'dislike')`,
	`DELETE FROM story_votes WHERE user_id = @user`,
	`DELETE FROM comment_votes WHERE user_id = @user`,
	`DELETE FROM comment_votes WHERE comment_id IN (SELECT id FROM comments WHERE author_id = @user OR story_id IN (SELECT id FROM stories WHERE author_id = @user))`,
	`DELETE FROM comments WHERE author_id = @user OR story_id IN (SELECT id FROM stories WHERE author_id = @user)`,
	`DELETE FROM story_votes WHERE story_id IN (SELECT id FROM stories WHERE author_id = @user)`,
	`DELETE FROM story_categories WHERE story_id IN (SELECT id FROM stories WHERE author_id = @user)`,
	`DELETE FROM stories WHERE author_id = @user`,
	`DELETE FROM profiles WHERE user_id = @user`,
	`DELETE FROM users WHERE id = @user`,
}

// Delete removes the account. Users may delete themselves; admins may delete
// accounts they are allowed to moderate.
func (s *UserService) Delete(ctx context.Context, actor authz.Actor, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.Take(&target, id).Error; err != nil {
			return notFoundOr(err, "User")
		}
		if !authz.CanDeleteUser(actor, &target) {
			return apperr.Forbidden("You cannot delete this account")
		}
		for _, stmt := range deleteUserStatements {
			if err := tx.Exec(stmt, map[string]any{"user": id}).Error; err != nil {
				return fmt.Errorf("delete user %d: %w", id, err)
			}
		}
		return nil
	})
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error; err != nil {
		return nil, notFoundOr(err, "Profile")
	}
	return &profile, nil
}

// UpdateProfile edits the caller's own profile, creating it if missing.
func (s *UserService) UpdateProfile(ctx context.Context, actor authz.Actor, req models.UpdateProfileRequest) (*models.Profile, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("User not authenticated")
	}

	changes := map[string]any{}
	if req.FirstName != nil {
		changes["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		changes["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Bio != nil {
		if len(*req.Bio) > 2000 {
			return nil, apperr.Validation("Bio must be at most 2000 characters")
		}
		changes["bio"] = *req.Bio
	}
	return s.saveProfile(ctx, actor.UserID, changes)
}

// SetAvatar uploads an image and stores its reference on the caller's profile.
func (s *UserService) SetAvatar(ctx context.Context, actor authz.Actor, file storage.File) (*models.Profile, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("User not authenticated")
	}
	ref, err := s.uploader.Upload(ctx, fmt.Sprintf("avatars/%d", actor.UserID), file)
	if err != nil {
		return nil, err
	}
	return s.saveProfile(ctx, actor.UserID, map[string]any{"avatar": ref})
}

func (s *UserService) saveProfile(ctx context.Context, userID uint, changes map[string]any) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where(models.Profile{UserID: userID}).FirstOrCreate(&profile).Error
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		return tx.Model(&profile).Updates(changes).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}
