package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// PostgresStore is the relational Store backed by PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx runs fn inside a READ COMMITTED transaction. Stock mutations rely on
// row locks and conditional updates, not on a stricter isolation level.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Str("component", "store").Msg("rollback after panic failed")
			}
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Str("component", "store").Msg("rollback failed")
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("store: commit transaction: %w", translate(cErr))
		}
	}()

	return fn(&pgTx{tx: tx})
}

// pgTx implements Tx over one sqlx transaction.
type pgTx struct {
	tx *sqlx.Tx
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(ctx context.Context, connStr string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
