package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"storefront/internal/catalog/models"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/platform/tx"
)

// PostgresStore persists products in the products table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed product store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const productColumns = `id, name, description, price, image_url, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	var (
		p   models.Product
		uid uuid.UUID
	)
	if err := row.Scan(&uid, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = id.ProductID(uid)
	return &p, nil
}

// List returns every product, oldest first.
func (s *PostgresStore) List(ctx context.Context) ([]*models.Product, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

// FindByID returns sentinel.ErrNotFound for unknown products.
func (s *PostgresStore) FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, uuid.UUID(productID))
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}

// Create inserts a product; an existing ID is a sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, p *models.Product) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		uuid.UUID(p.ID), p.Name, p.Description, p.Price, p.ImageURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return expectOne(res, sentinel.ErrConflict)
}

// Update replaces an existing product.
func (s *PostgresStore) Update(ctx context.Context, p *models.Product) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, image_url = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(p.ID), p.Name, p.Description, p.Price, p.ImageURL, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return expectOne(res, sentinel.ErrNotFound)
}

// Delete removes a product.
func (s *PostgresStore) Delete(ctx context.Context, productID id.ProductID) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, uuid.UUID(productID))
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectOne(res, sentinel.ErrNotFound)
}

func expectOne(res sql.Result, otherwise error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return otherwise
	}
	return nil
}
