package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"storefront/internal/order/models"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/platform/tx"
)

// PostgresStore persists orders in the orders and order_lines tables.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed order store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert writes the order header and its lines in one transaction. The
// database assigns the id and creation time, which are copied back onto o.
func (s *PostgresStore) Insert(ctx context.Context, o *models.Order) (id.OrderID, error) {
	var (
		orderID uuid.UUID
		created = o.CreatedAt
	)
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		conn := tx.Conn(ctx, s.db)
		if err := conn.QueryRowContext(ctx, `
			INSERT INTO orders (user_id, total)
			VALUES ($1, $2)
			RETURNING id, created_at`,
			uuid.UUID(o.OwnerID), o.Total,
		).Scan(&orderID, &created); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i, l := range o.Lines {
			if _, err := conn.ExecContext(ctx, `
				INSERT INTO order_lines (order_id, position, product_id, name, unit_price, quantity)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				orderID, i, uuid.UUID(l.ProductID), l.Name, l.UnitPrice, l.Quantity,
			); err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return id.OrderID{}, err
	}

	o.ID = id.OrderID(orderID)
	o.CreatedAt = created
	return o.ID, nil
}

// ListByOwner returns the owner's orders, newest first.
func (s *PostgresStore) ListByOwner(ctx context.Context, owner id.UserID) ([]*models.Order, error) {
	conn := tx.Conn(ctx, s.db)
	rows, err := conn.QueryContext(ctx, `
		SELECT id, user_id, total, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, uuid.UUID(owner))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		out   []*models.Order
		ids   []string
		index = make(map[uuid.UUID]*models.Order)
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
		ids = append(ids, o.ID.String())
		index[uuid.UUID(o.ID)] = o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	lineRows, err := conn.QueryContext(ctx, `
		SELECT order_id, product_id, name, unit_price, quantity
		FROM order_lines
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var orderID uuid.UUID
		l, err := scanLine(lineRows, &orderID)
		if err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if o, ok := index[orderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return out, nil
}

// FindByID returns sentinel.ErrNotFound for unknown orders.
func (s *PostgresStore) FindByID(ctx context.Context, orderID id.OrderID) (*models.Order, error) {
	conn := tx.Conn(ctx, s.db)
	o, err := scanOrder(conn.QueryRowContext(ctx, `
		SELECT id, user_id, total, created_at
		FROM orders
		WHERE id = $1`, uuid.UUID(orderID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT order_id, product_id, name, unit_price, quantity
		FROM order_lines
		WHERE order_id = $1
		ORDER BY position`, uuid.UUID(orderID))
	if err != nil {
		return nil, fmt.Errorf("find order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ignored uuid.UUID
		l, err := scanLine(rows, &ignored)
		if err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return o, nil
}

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var (
		o       models.Order
		orderID uuid.UUID
		owner   uuid.UUID
	)
	if err := row.Scan(&orderID, &owner, &o.Total, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.ID = id.OrderID(orderID)
	o.OwnerID = id.UserID(owner)
	return &o, nil
}

func scanLine(row interface{ Scan(...any) error }, orderID *uuid.UUID) (models.Line, error) {
	var (
		l   models.Line
		pid uuid.UUID
	)
	if err := row.Scan(orderID, &pid, &l.Name, &l.UnitPrice, &l.Quantity); err != nil {
		return models.Line{}, err
	}
	l.ProductID = id.ProductID(pid)
	return l, nil
}
