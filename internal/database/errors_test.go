package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/localnerve/salesops/internal/types"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", &mysql.MySQLError{Number: 1213, Message: "Deadlock"}, false},
		{"postgres", &pgconn.PgError{Code: "23505"}, true},
		{"sqlite", errors.New("UNIQUE constraint failed: quotes.quote_no"), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestTranslate(t *testing.T) {
	err := Translate(gorm.ErrDuplicatedKey, "quote number 20240115-001")
	if !errors.Is(err, types.ErrConflict) {
		t.Errorf("Expected conflict, got %v", err)
	}
	plain := errors.New("boom")
	if Translate(plain, "x") != plain {
		t.Error("Expected non-unique errors to pass through")
	}
	if Translate(nil, "x") != nil {
		t.Error("Expected nil to stay nil")
	}
}
