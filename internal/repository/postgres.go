// Package repository implements PostgreSQL persistence for the storefront.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/tconnectmw/store-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Sentinel errors mapped to HTTP statuses at the handler layer.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrChatNotFound         = errors.New("chat not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInsufficientPoints   = errors.New("insufficient points balance")
	ErrStaleChatState       = errors.New("chat state changed concurrently")
)

// PostgresRepository provides access to the storefront's data in PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates the repository and initializes the schema
// through embedded migrations.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry re-runs fn on serialization failures, deadlocks and transient
// connection errors with fixed delays. Context errors abort immediately.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// UpsertUser creates the profile for an email or refreshes its display name,
// returning the stored row either way. Called on every login sync.
func (r *PostgresRepository) UpsertUser(ctx context.Context, email, displayName string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, display_name) VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET display_name = EXCLUDED.display_name
		 RETURNING id, email, display_name, points, created_at`,
		email, displayName,
	)

	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Points, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	return &u, nil
}

// GetUserByEmail returns the profile for an email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, display_name, points, created_at FROM users WHERE email = $1`,
		email,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Points, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// ListProducts returns the catalog, newest first.
func (r *PostgresRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, category, type, price_usd, in_stock, image_url, created_at
		 FROM products
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		var typ string
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &typ, &p.PriceUSD, &p.InStock, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Type = model.ProductType(typ)
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// CreateProduct inserts a catalog entry and returns its ID.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, category, type, price_usd, in_stock, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.Name, p.Category, string(p.Type), p.PriceUSD, p.InStock, p.ImageURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

// AddRate appends one record to the rate history.
func (r *PostgresRepository) AddRate(ctx context.Context, category model.RateCategory, value float64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rates (category, value) VALUES ($1, $2)`,
		string(category), value,
	)
	if err != nil {
		return fmt.Errorf("insert rate: %w", err)
	}
	return nil
}

// RateRecords returns the full rate history, oldest first. It implements the
// rate cache's Source contract.
func (r *PostgresRepository) RateRecords(ctx context.Context) ([]model.RateRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, value, created_at FROM rates ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("select rates: %w", err)
	}
	defer rows.Close()

	var records []model.RateRecord
	for rows.Next() {
		var rec model.RateRecord
		var category string
		if err := rows.Scan(&category, &rec.Value, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		rec.Category = model.RateCategory(category)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}
