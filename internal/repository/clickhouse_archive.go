package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CoinPulse/internal/domain/models"
)

// ClickHouseTickArchive appends every applied price update to a MergeTree
// table for offline analysis. Writes are batched per update pass.
type ClickHouseTickArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseTickArchive creates the archive against an initialized pool.
// table is the fully qualified "<database>.<table>" name.
func NewClickHouseTickArchive(db *sql.DB, table string) *ClickHouseTickArchive {
	return &ClickHouseTickArchive{db: db, table: table}
}

// ArchiveSchema returns the idempotent DDL for the archive table, run
// through the client's InitSchema on startup.
func ArchiveSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (ts DateTime64(3), symbol String, price Float64, change_percent Float64) ENGINE=MergeTree ORDER BY (symbol, ts)", database, table),
	}
}

func (a *ClickHouseTickArchive) Append(ctx context.Context, events []models.QuoteEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Multi-row VALUES to keep one round-trip per update pass. Chunked so a
	// very large population stays under statement limits.
	const chunkSize = 2000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, ev := range events[start:end] {
			values = append(values, "(?, ?, ?, ?)")
			args = append(args,
				time.UnixMilli(ev.Timestamp),
				ev.Symbol,
				ev.Price,
				ev.ChangePercent,
			)
		}

		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, change_percent) VALUES %s",
			a.table, strings.Join(values, ","))
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("archive insert: %w", err)
		}
	}
	return nil
}

func (a *ClickHouseTickArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseTickArchive) Close() error {
	return nil // pool is owned by the client
}
