package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}

// dbtx abstracts *sqlx.DB and *sqlx.Tx so one repository implementation
// serves direct reads and transactional transitions alike.
type dbtx interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}
