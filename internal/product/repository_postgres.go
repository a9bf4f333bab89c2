package product

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	loadSnapshotQuery = `
		SELECT product_id, p_name, p_description, images, fetched_at
		FROM product_snapshots
		WHERE query_key = $1
		ORDER BY position
	`
	deleteSnapshotQuery = `DELETE FROM product_snapshots WHERE query_key = $1`
	insertSnapshotQuery = `
		INSERT INTO product_snapshots (query_key, position, product_id, p_name, p_description, images, fetched_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save replaces the stored snapshot for key in a single transaction.
func (r *PostgresRepository) Save(ctx context.Context, key string, products []Product, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, deleteSnapshotQuery, key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	for i, p := range products {
		images := p.Images
		if images == nil {
			images = []string{}
		}
		if _, err := tx.ExecContext(ctx, insertSnapshotQuery,
			key, i, p.ID, p.Name, p.Description, pq.Array(images), at.UTC(),
		); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", key, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load returns the stored snapshot for key. ok is false when none is stored.
func (r *PostgresRepository) Load(ctx context.Context, key string) ([]Product, time.Time, bool, error) {
	rows, err := r.db.QueryContext(ctx, loadSnapshotQuery, key)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	defer rows.Close()

	var (
		out []Product
		at  time.Time
	)
	for rows.Next() {
		p, fetchedAt, err := scanProduct(rows)
		if err != nil {
			return nil, time.Time{}, false, err
		}
		out = append(out, p)
		at = fetchedAt
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, false, err
	}
	if len(out) == 0 {
		return nil, time.Time{}, false, nil
	}
	return out, at, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(scanner rowScanner) (Product, time.Time, error) {
	var (
		p         Product
		images    []string
		fetchedAt time.Time
	)
	if err := scanner.Scan(&p.ID, &p.Name, &p.Description, pq.Array(&images), &fetchedAt); err != nil {
		return Product{}, time.Time{}, err
	}
	p.Images = images
	return p, fetchedAt, nil
}
