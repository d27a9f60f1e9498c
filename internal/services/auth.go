package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
	"github.com/emilythestrangee/storymap/backend/internal/auth"
	"github.com/emilythestrangee/storymap/backend/internal/models"
)

// firstAdminLock is the advisory lock key serializing first-admin bootstrap.
const firstAdminLock = 0x5708_ad31

type AuthService struct {
	db     *gorm.DB
	tokens *auth.Tokens
}

func NewAuthService(db *gorm.DB, tokens *auth.Tokens) *AuthService {
	return &AuthService{db: db, tokens: tokens}
}

// ValidateCredentials checks the registration payload shape.
func ValidateCredentials(username, email, password string) error {
	if n := len(strings.TrimSpace(username)); n < 3 || n > 50 {
		return apperr.Validation("Username must be between 3 and 50 characters")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apperr.Validation("Email is invalid")
	}
	if len(password) < 6 {
		return apperr.Validation("Password must be at least 6 characters")
	}
	return nil
}

// Register creates a plain user with an empty profile and returns a token.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	user, err := s.createUser(ctx, req, models.RoleUser, nil)
	if err != nil {
		return nil, err
	}
	return s.respond(user)
}

// CreateFirstAdmin creates the initial administrator. It fails once any
// Admin or SuperAdmin exists.
func (s *AuthService) CreateFirstAdmin(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	guard := func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", firstAdminLock).Error; err != nil {
			return err
		}
		var admins int64
		err := tx.Model(&models.User{}).
			Where("role IN ?", []models.Role{models.RoleAdmin, models.RoleSuperAdmin}).
			Count(&admins).Error
		if err != nil {
			return err
		}
		if admins > 0 {
			return apperr.Conflict("An administrator already exists")
		}
		return nil
	}

	user, err := s.createUser(ctx, req, models.RoleAdmin, guard)
	if err != nil {
		return nil, err
	}
	zap.L().Info("first administrator created", zap.Uint("user_id", user.ID))
	return s.respond(user)
}

func (s *AuthService) createUser(ctx context.Context, req models.RegisterRequest, role models.Role, guard func(*gorm.DB) error) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := ValidateCredentials(req.Username, req.Email, req.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hash,
		Role:     role,
		IsActive: true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if guard != nil {
			if err := guard(tx); err != nil {
				return err
			}
		}
		if err := checkUserUnique(tx, user.Email, user.Username); err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return conflictFor(err)
		}
		profile := models.Profile{UserID: user.ID}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		user.Profile = &profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func checkUserUnique(tx *gorm.DB, email, username string) error {
	var existing models.User
	err := tx.Select("id", "email", "username").
		Where("email = ? OR username = ?", email, username).
		Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Email == email {
		return apperr.Conflict("Email already registered")
	}
	return apperr.Conflict("Username already taken")
}

// Login verifies the password and active flag. Unknown email, wrong password
// and inactive accounts are all Unauthorized.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, err
	}

	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("Account is inactive")
	}
	return s.respond(&user)
}

// Me returns the caller with their profile.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").Take(&user, userID).Error
	if err != nil {
		return nil, notFoundOr(err, "User")
	}
	return &user, nil
}

func (s *AuthService) respond(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: *user}, nil
}
