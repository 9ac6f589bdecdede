package repository

import (
	"errors"
	"strings"

	"github.com/aiverse-platform/publish-engine/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation       = "23505"
	pgInsufficientPrivilege = "42501"
)

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key")
}

func isPermissionError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgInsufficientPrivilege
	}
	return false
}

// translate 把驱动错误映射为 domain 哨兵错误，notFound 为 nil 时不处理记录不存在。
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case isUniqueConstraintError(err):
		return domain.ErrAlreadyExists
	case isPermissionError(err):
		return errors.Join(domain.ErrPermissionDenied, err)
	}
	return err
}
