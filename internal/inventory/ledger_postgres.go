package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const stockSchema = `
CREATE TABLE IF NOT EXISTS stock (
	code     TEXT PRIMARY KEY,
	quantity INTEGER NOT NULL CHECK (quantity >= 0)
)`

// PostgresLedger keeps stock in a single table. Rows are locked FOR UPDATE in
// code order, so two reservations touching the same products never deadlock.
type PostgresLedger struct {
	DB *pgxpool.Pool
}

func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	if _, err := l.DB.Exec(ctx, stockSchema); err != nil {
		return fmt.Errorf("create stock table: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Get(ctx context.Context, codes []string) (map[string]int, error) {
	out := make(map[string]int, len(codes))
	for _, c := range codes {
		out[c] = 0
	}
	rows, err := l.DB.Query(ctx, `SELECT code, quantity FROM stock WHERE code = ANY($1)`, codes)
	if err != nil {
		return nil, fmt.Errorf("read stock: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			code string
			qty  int
		)
		if err := rows.Scan(&code, &qty); err != nil {
			return nil, err
		}
		out[code] = qty
	}
	return out, rows.Err()
}

func (l *PostgresLedger) CompareAndDeduct(ctx context.Context, observed, requested map[string]int) (bool, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	for _, code := range sortedCodes(requested) {
		var stock int
		err := tx.QueryRow(ctx, `SELECT quantity FROM stock WHERE code = $1 FOR UPDATE`, code).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			stock = 0
		} else if err != nil {
			return false, fmt.Errorf("lock stock %s: %w", code, err)
		}
		if stock != observed[code] {
			return false, nil // rollback via defer
		}
		ct, err := tx.Exec(ctx, `UPDATE stock SET quantity = quantity - $2 WHERE code = $1`, code, requested[code])
		if err != nil {
			return false, fmt.Errorf("deduct stock %s: %w", code, err)
		}
		if ct.RowsAffected() != 1 {
			return false, fmt.Errorf("deduct stock %s: no stock row", code)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (l *PostgresLedger) Seed(ctx context.Context, stock map[string]int) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for code, qty := range stock {
		if _, err := tx.Exec(ctx, `
			INSERT INTO stock(code, quantity) VALUES ($1, $2)
			ON CONFLICT (code) DO UPDATE SET quantity = EXCLUDED.quantity
		`, code, qty); err != nil {
			return fmt.Errorf("seed %s: %w", code, err)
		}
	}
	return tx.Commit(ctx)
}

func (l *PostgresLedger) Snapshot(ctx context.Context) (map[string]int, error) {
	rows, err := l.DB.Query(ctx, `SELECT code, quantity FROM stock`)
	if err != nil {
		return nil, fmt.Errorf("snapshot stock: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			code string
			qty  int
		)
		if err := rows.Scan(&code, &qty); err != nil {
			return nil, err
		}
		out[code] = qty
	}
	return out, rows.Err()
}
