package services

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
)

const pgUniqueViolation = "23505"

// uniqueViolation reports whether err is a Postgres unique-constraint
// violation and, if so, which constraint fired.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}
	return "", false
}

// conflictFor turns unique violations on user and category columns into
// Conflict errors naming the offending field. Other errors pass through.
func conflictFor(err error) error {
	constraint, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	switch {
	case strings.Contains(constraint, "email"):
		return apperr.Wrap(apperr.KindConflict, err, "Email already registered")
	case strings.Contains(constraint, "username"):
		return apperr.Wrap(apperr.KindConflict, err, "Username already taken")
	case strings.Contains(constraint, "categories"):
		return apperr.Wrap(apperr.KindConflict, err, "Category already exists")
	}
	return apperr.Wrap(apperr.KindConflict, err, "Resource already exists")
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.KindNotFound, err, "%s not found", what)
	}
	return err
}
