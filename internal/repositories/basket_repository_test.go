package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ae-utbm/sith-pos/internal/models"
)

// recordingExecutor captures the queries it receives and fails them, so a
// test can assert which handle a repository method talks to.
type recordingExecutor struct {
	queries []string
}

func (e *recordingExecutor) Exec(query string, _ ...interface{}) (sql.Result, error) {
	e.queries = append(e.queries, query)
	return nil, errors.New("recording executor")
}

func (e *recordingExecutor) QueryRow(string, ...interface{}) *sql.Row {
	return nil
}

func (e *recordingExecutor) Query(query string, _ ...interface{}) (*sql.Rows, error) {
	e.queries = append(e.queries, query)
	return nil, errors.New("recording executor")
}

func TestLoadItemsReadsThroughCallerExecutor(t *testing.T) {
	// a nil db guarantees any read outside the given executor panics
	repo := &basketRepository{db: nil}
	executor := &recordingExecutor{}

	err := repo.loadItems(executor, &models.Basket{ID: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatabaseError)
	require.Len(t, executor.queries, 1)
	assert.Contains(t, executor.queries[0], "FROM basket_items")
}
