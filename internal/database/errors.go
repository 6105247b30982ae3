package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/localnerve/salesops/internal/types"
	"gorm.io/gorm"
)

const (
	mysqlDuplicateEntry   = 1062
	postgresUniqueViolate = "23505"
)

// IsUniqueViolation reports whether err came from a unique index or primary key collision.
// GORM's translation covers most dialects; the driver checks catch paths that bypass it (raw Exec, sqlx).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolate {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Cannot insert duplicate key")
}

// Translate turns a unique violation into a domain conflict naming what collided;
// other errors pass through unchanged.
func Translate(err error, what string) error {
	if IsUniqueViolation(err) {
		return types.Conflict("%s already exists", what)
	}
	return err
}
