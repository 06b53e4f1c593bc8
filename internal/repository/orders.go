package repository

import (
	"context"
	"fmt"

	"storefront/app/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type OrderRepository interface {
	EnsureSchema(ctx context.Context) error
	SaveOrder(ctx context.Context, order *domain.Order) error
}

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) OrderRepository {
	return &orderRepository{
		db: db,
	}
}

const createOrdersTable = `
	CREATE TABLE IF NOT EXISTS orders (
		id           TEXT PRIMARY KEY,
		session_id   TEXT NOT NULL,
		email        TEXT NOT NULL,
		currency     TEXT NOT NULL,
		total_cents  BIGINT NOT NULL,
		confirmed_at TIMESTAMPTZ NOT NULL,
		data         JSONB NOT NULL
	)`

func (r *orderRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createOrdersTable); err != nil {
		return fmt.Errorf("failed to create orders table: %w", err)
	}
	return nil
}

func (r *orderRepository) SaveOrder(ctx context.Context, order *domain.Order) error {
	query := `
	INSERT INTO orders (id, session_id, email, currency, total_cents, confirmed_at, data)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id)
	DO UPDATE SET email = $3, currency = $4, total_cents = $5, confirmed_at = $6, data = $7`
	_, err := r.db.Exec(ctx, query,
		order.ID,
		order.SessionID,
		order.Contact.Email,
		order.Currency,
		order.Totals.TotalCents,
		order.ConfirmedAt,
		order,
	)
	if err != nil {
		return fmt.Errorf("failed to save order %s: %w", order.ID, err)
	}

	return nil
}
