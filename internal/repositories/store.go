package repositories

import (
	"database/sql"
	"fmt"
)

// Store is the database handle the services hold. It executes single
// statements directly and runs multi-statement work inside a transaction,
// exposed to the callback as an SQLExecutor so the same repository methods
// work on both sides.
type Store interface {
	SQLExecutor
	// InTx runs fn inside one transaction, committing when fn returns nil
	// and rolling back otherwise.
	InTx(fn func(tx SQLExecutor) error) error
}

type sqlStore struct {
	*sql.DB
}

// NewStore wraps an open database connection pool.
func NewStore(db *sql.DB) Store {
	return &sqlStore{DB: db}
}

func (s *sqlStore) InTx(fn func(tx SQLExecutor) error) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit database transaction: %w", err)
	}
	return nil
}
