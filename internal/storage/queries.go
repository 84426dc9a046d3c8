package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// EntryRow mirrors a row of the entries table.
type EntryRow struct {
	ID          string
	Date        string
	Type        string
	Category    string
	Subcategory string
	Concept     string
	AmountCents int64
	CreatedAt   string
}

const insertEntry = `INSERT INTO entries (id, date, type, category, subcategory, concept, amount_cents, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertEntry(ctx context.Context, arg EntryRow) error {
	_, err := q.db.ExecContext(ctx, insertEntry,
		arg.ID,
		arg.Date,
		arg.Type,
		arg.Category,
		arg.Subcategory,
		arg.Concept,
		arg.AmountCents,
		arg.CreatedAt,
	)
	return err
}

const deleteEntry = `DELETE FROM entries WHERE id = ?`

// DeleteEntry returns the number of deleted rows.
func (q *Queries) DeleteEntry(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEntry, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const entryColumns = `id, date, type, category, subcategory, concept, amount_cents, created_at`

const listEntries = `SELECT ` + entryColumns + ` FROM entries ORDER BY date DESC, seq ASC`

func (q *Queries) ListEntries(ctx context.Context) ([]EntryRow, error) {
	return q.queryEntries(ctx, listEntries)
}

const listEntriesByYear = `SELECT ` + entryColumns + ` FROM entries
WHERE substr(date, 1, 4) = ?
ORDER BY date DESC, seq ASC`

func (q *Queries) ListEntriesByYear(ctx context.Context, year string) ([]EntryRow, error) {
	return q.queryEntries(ctx, listEntriesByYear, year)
}

const listYears = `SELECT DISTINCT substr(date, 1, 4) AS year FROM entries ORDER BY year DESC`

func (q *Queries) ListYears(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listYears)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var year string
		if err := rows.Scan(&year); err != nil {
			return nil, err
		}
		items = append(items, year)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countEntries = `SELECT COUNT(*) FROM entries`

func (q *Queries) CountEntries(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countEntries).Scan(&n)
	return n, err
}

func (q *Queries) queryEntries(ctx context.Context, query string, args ...interface{}) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EntryRow
	for rows.Next() {
		var i EntryRow
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Type,
			&i.Category,
			&i.Subcategory,
			&i.Concept,
			&i.AmountCents,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
