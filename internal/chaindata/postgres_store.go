package chaindata

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore implements Store with PostgreSQL. Schema is managed by
// the goose migrations under migrations/.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed activity store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// InsertBlock records a block and its transactions in one transaction.
// Re-inserting an already recorded block is a no-op, so the collector
// can safely replay after a restart.
func (p *PostgresStore) InsertBlock(ctx context.Context, block *Block, txs []*Transaction) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO blocks (number, hash, parent_hash, miner, tx_count, gas_used, gas_limit, base_fee, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (number) DO NOTHING
	`, block.Number, block.Hash, block.ParentHash, block.Miner,
		block.TxCount, block.GasUsed, block.GasLimit, block.BaseFee, block.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert block %d: %w", block.Number, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return tx.Commit()
	}

	for _, t := range txs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (hash, block_number, from_address, to_address, value, gas_price, nonce, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (hash) DO NOTHING
		`, t.Hash, t.BlockNumber, t.FromAddress, t.ToAddress, t.Value, t.GasPrice, t.Nonce, t.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", t.Hash, err)
		}
	}

	return tx.Commit()
}

// RecentBlocks returns up to limit blocks, newest first.
func (p *PostgresStore) RecentBlocks(ctx context.Context, limit int) ([]*Block, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT number, hash, parent_hash, miner, tx_count, gas_used, gas_limit, base_fee, timestamp
		FROM blocks
		ORDER BY number DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := []*Block{}
	for rows.Next() {
		b := &Block{}
		if err := rows.Scan(&b.Number, &b.Hash, &b.ParentHash, &b.Miner,
			&b.TxCount, &b.GasUsed, &b.GasLimit, &b.BaseFee, &b.Timestamp); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// RecentTransactions returns up to limit transactions, newest first.
func (p *PostgresStore) RecentTransactions(ctx context.Context, limit int) ([]*Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT hash, block_number, from_address, to_address, value, gas_price, nonce, timestamp
		FROM transactions
		ORDER BY block_number DESC, hash
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []*Transaction{}
	for rows.Next() {
		t := &Transaction{}
		if err := rows.Scan(&t.Hash, &t.BlockNumber, &t.FromAddress, &t.ToAddress,
			&t.Value, &t.GasPrice, &t.Nonce, &t.Timestamp); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// LatestBlockNumber returns the highest recorded block number.
func (p *PostgresStore) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var number uint64
	err := p.db.QueryRowContext(ctx, `SELECT MAX(number) FROM blocks`).Scan(&number)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		// MAX over an empty table scans NULL into a non-nullable target.
		return 0, ErrNotFound
	}
	return number, nil
}

// Stats aggregates the recorded window in one query.
func (p *PostgresStore) Stats(ctx context.Context) (*NetworkStats, error) {
	stats := &NetworkStats{UpdatedAt: time.Now()}

	var (
		latest    sql.NullInt64
		blocks    int
		txs       int
		avgTxs    sql.NullFloat64
		avgUtil   sql.NullFloat64
		spanSecs  sql.NullFloat64
		intervals sql.NullInt64
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT
			MAX(number),
			COUNT(*),
			COALESCE(SUM(tx_count), 0),
			AVG(tx_count),
			AVG(CASE WHEN gas_limit > 0 THEN gas_used::float / gas_limit ELSE 0 END),
			EXTRACT(EPOCH FROM MAX(timestamp) - MIN(timestamp)),
			COUNT(*) - 1
		FROM blocks
	`).Scan(&latest, &blocks, &txs, &avgTxs, &avgUtil, &spanSecs, &intervals)
	if err != nil {
		return nil, err
	}

	stats.TrackedBlocks = blocks
	stats.TrackedTxs = txs
	if latest.Valid {
		stats.LatestBlock = uint64(latest.Int64)
	}
	if avgTxs.Valid {
		stats.AvgTxsPerBlock = avgTxs.Float64
	}
	if avgUtil.Valid {
		stats.AvgGasUtilization = avgUtil.Float64
	}
	if spanSecs.Valid && intervals.Valid && intervals.Int64 > 0 {
		stats.AvgBlockTimeSecs = spanSecs.Float64 / float64(intervals.Int64)
	}
	return stats, nil
}
