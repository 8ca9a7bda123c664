package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/insightdelivered/sms-transaction-parser/internal/models"
)

const schemaSQL = `
-- transactions: parsed SMS and manual records
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL CHECK (type IN ('CREDIT', 'DEBIT', 'TRANSFER', 'INVESTMENT')),
    source TEXT NOT NULL CHECK (source IN ('SMS', 'MANUAL')),
    amount TEXT NOT NULL,
    merchant TEXT,
    channel TEXT,
    account_tail TEXT,
    bank_name TEXT,
    reference_id TEXT,
    balance_after TEXT,
    sender TEXT NOT NULL,
    body TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    excluded BOOLEAN NOT NULL DEFAULT FALSE,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_message ON transactions(sender, body, timestamp);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp);
`

const recordColumns = `id, type, source, amount, merchant, channel, account_tail, bank_name,
	reference_id, balance_after, sender, body, timestamp, excluded`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert implements Store.
func (s *SQLiteStore) Insert(ctx context.Context, rec models.TransactionRecord) (bool, error) {
	if rec.ID == "" {
		return false, fmt.Errorf("record ID is required")
	}
	var balance sql.NullString
	if rec.BalanceAfter != nil {
		balance = sql.NullString{String: rec.BalanceAfter.String(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO transactions (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Type, rec.Source, rec.Amount.String(), rec.Merchant, string(rec.Channel),
		rec.AccountTail, rec.BankName, rec.ReferenceID, balance,
		rec.Sender, rec.Body, rec.TimestampMillis, rec.Excluded,
	)
	if err != nil {
		return false, fmt.Errorf("inserting record %s: %w", rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting record %s: %w", rec.ID, err)
	}
	return n == 1, nil
}

// MarkExcluded implements Store.
func (s *SQLiteStore) MarkExcluded(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET excluded = TRUE WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("marking records excluded: %w", err)
	}
	return nil
}

// Range implements Store.
func (s *SQLiteStore) Range(ctx context.Context, from, to int64) ([]models.TransactionRecord, error) {
	query := "SELECT " + recordColumns + " FROM transactions WHERE timestamp >= ?"
	args := []any{from}
	if to > 0 {
		query += " AND timestamp <= ?"
		args = append(args, to)
	}
	query += " ORDER BY timestamp, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return records, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (models.TransactionRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM transactions WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TransactionRecord{}, ErrNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (models.TransactionRecord, error) {
	var (
		rec     models.TransactionRecord
		amount  string
		balance sql.NullString
	)
	var merchant, channel, tail, bank, ref sql.NullString
	err := sc.Scan(&rec.ID, &rec.Type, &rec.Source, &amount, &merchant, &channel, &tail, &bank,
		&ref, &balance, &rec.Sender, &rec.Body, &rec.TimestampMillis, &rec.Excluded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scanning record: %w", err)
	}

	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return rec, fmt.Errorf("record %s amount %q: %w", rec.ID, amount, err)
	}
	if balance.Valid && balance.String != "" {
		bal, err := decimal.NewFromString(balance.String)
		if err != nil {
			return rec, fmt.Errorf("record %s balance %q: %w", rec.ID, balance.String, err)
		}
		rec.BalanceAfter = &bal
	}
	rec.Merchant = merchant.String
	rec.Channel = models.Channel(channel.String)
	rec.AccountTail = tail.String
	rec.BankName = bank.String
	rec.ReferenceID = ref.String
	return rec, nil
}
