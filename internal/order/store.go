package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Order is a persisted order row.
type Order struct {
	ID        int64     `json:"id"`
	UserName  string    `json:"user_name"`
	Product   string    `json:"product"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ErrNotFound is returned for operations against a missing order id.
var ErrNotFound = errors.New("orderflow: order not found")

// Store is the persistence boundary of the order service.
type Store interface {
	Insert(ctx context.Context, userName, product string, price float64) (Order, error)
	List(ctx context.Context) ([]Order, error)
	Get(ctx context.Context, id int64) (Order, error)
	Update(ctx context.Context, id int64, userName, product string, price float64) (Order, error)
	Delete(ctx context.Context, id int64) (Order, error)
}

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the orders table exists.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("order: parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("order: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("order: ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id SERIAL PRIMARY KEY,
			user_name VARCHAR(255) NOT NULL,
			product VARCHAR(255) NOT NULL,
			price DECIMAL(10, 2) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("order: init schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Insert(ctx context.Context, userName, product string, price float64) (Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx, `
		INSERT INTO orders (user_name, product, price)
		VALUES ($1, $2, $3)
		RETURNING id, user_name, product, price, created_at
	`, userName, product, price).Scan(&o.ID, &o.UserName, &o.Product, &o.Price, &o.CreatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("order: insert: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_name, product, price, created_at
		FROM orders
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("order: list: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserName, &o.Product, &o.Price, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("order: scan: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order: list: %w", err)
	}
	return orders, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_name, product, price, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&o.ID, &o.UserName, &o.Product, &o.Price, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("order: get: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, userName, product string, price float64) (Order, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET user_name = $1, product = $2, price = $3
		WHERE id = $4
	`, userName, product, price, id)
	if err != nil {
		return Order{}, fmt.Errorf("order: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Order{}, ErrNotFound
	}
	return Order{ID: id, UserName: userName, Product: product, Price: price}, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) (Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return Order{}, fmt.Errorf("order: delete: %w", err)
	}
	return o, nil
}
