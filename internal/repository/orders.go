package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tconnectmw/store-system/internal/model"
)

// CreateOrder persists a submission inside one transaction. The client_ref
// unique index makes retries idempotent: a duplicate ref returns the already
// stored order with created=false and debits nothing. Points payments lock
// the customer row and debit the balance only when the order row is new.
func (r *PostgresRepository) CreateOrder(ctx context.Context, sub model.OrderSubmission) (*model.Order, bool, error) {
	var (
		order   *model.Order
		created bool
	)

	err := r.withRetry(ctx, func() error {
		var err error
		order, created, err = r.createOrderTx(ctx, sub)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return order, created, nil
}

func (r *PostgresRepository) createOrderTx(ctx context.Context, sub model.OrderSubmission) (*model.Order, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	orderID := uuid.NewString()

	tag, err := tx.Exec(ctx,
		`INSERT INTO orders (id, client_ref, email, total_usd, total_local, payment_method,
		                     sender_name, transaction_id, proof_of_payment_url,
		                     points_used, receipt_url, receipt_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (client_ref) DO NOTHING`,
		orderID, sub.ClientRef, sub.Email, sub.TotalUSD, sub.TotalLocal, string(sub.PaymentMethod),
		sub.SenderName, sub.TransactionID, sub.ProofOfPaymentURL,
		sub.PointsUsed, sub.ReceiptURL, sub.ReceiptID, string(model.OrderStatusPending),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert order: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Retry of an already accepted submission.
		existing, err := r.getOrderBy(ctx, tx, "client_ref", sub.ClientRef)
		if err != nil {
			return nil, false, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit tx: %w", err)
		}
		return existing, false, nil
	}

	if sub.PointsUsed > 0 {
		if err := debitPoints(ctx, tx, sub.Email, sub.PointsUsed); err != nil {
			return nil, false, err
		}
	}

	for _, item := range sub.Items {
		metadata, err := json.Marshal(item.Metadata)
		if err != nil {
			return nil, false, fmt.Errorf("marshal item metadata: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, name, category, type, unit_price_usd, quantity, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			orderID, item.Name, item.Category, string(item.Type), item.UnitPriceUSD, item.Quantity, metadata,
		)
		if err != nil {
			return nil, false, fmt.Errorf("insert order item: %w", err)
		}
	}

	order, err := r.getOrderBy(ctx, tx, "id", orderID)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit tx: %w", err)
	}

	return order, true, nil
}

func debitPoints(ctx context.Context, tx pgx.Tx, email string, points int) error {
	var balance int
	err := tx.QueryRow(ctx,
		`SELECT points FROM users WHERE email = $1 FOR UPDATE`, email,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lock user row: %w", err)
	}

	if balance < points {
		return ErrInsufficientPoints
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET points = points - $1 WHERE email = $2`, points, email,
	)
	if err != nil {
		return fmt.Errorf("debit points: %w", err)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PostgresRepository) getOrderBy(ctx context.Context, q querier, column, value string) (*model.Order, error) {
	row := q.QueryRow(ctx,
		`SELECT id, email, total_usd, total_local, payment_method,
		        sender_name, transaction_id, proof_of_payment_url,
		        points_used, receipt_url, receipt_id, status, created_at
		 FROM orders WHERE `+column+` = $1`,
		value,
	)

	var (
		o      model.Order
		method string
		status string
	)
	err := row.Scan(&o.ID, &o.Email, &o.TotalUSD, &o.TotalLocal, &method,
		&o.SenderName, &o.TransactionID, &o.ProofOfPaymentURL,
		&o.PointsUsed, &o.ReceiptURL, &o.ReceiptID, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.PaymentMethod = model.PaymentMethod(method)
	o.Status = model.OrderStatus(status)

	items, err := orderItems(ctx, q, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func orderItems(ctx context.Context, q querier, orderID string) ([]model.OrderItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, name, category, type, unit_price_usd, quantity, metadata, fulfillment_code
		 FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var (
			item     model.OrderItem
			typ      string
			metadata []byte
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &typ, &item.UnitPriceUSD, &item.Quantity, &metadata, &item.FulfillmentCode); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.Type = model.ProductType(typ)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal item metadata: %w", err)
			}
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// GetOrder returns one order with its items.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return r.getOrderBy(ctx, r.pool, "id", id)
}

// GetOrdersByEmail returns the customer's orders, newest first.
func (r *PostgresRepository) GetOrdersByEmail(ctx context.Context, email string) ([]model.Order, error) {
	return r.listOrders(ctx, `WHERE email = $1`, email)
}

// ListOrders returns every order for the back office, newest first.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	return r.listOrders(ctx, ``)
}

func (r *PostgresRepository) listOrders(ctx context.Context, where string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, total_usd, total_local, payment_method,
		        sender_name, transaction_id, proof_of_payment_url,
		        points_used, receipt_url, receipt_id, status, created_at
		 FROM orders `+where+` ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var (
			o      model.Order
			method string
			status string
		)
		err := rows.Scan(&o.ID, &o.Email, &o.TotalUSD, &o.TotalLocal, &method,
			&o.SenderName, &o.TransactionID, &o.ProofOfPaymentURL,
			&o.PointsUsed, &o.ReceiptURL, &o.ReceiptID, &status, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.PaymentMethod = model.PaymentMethod(method)
		o.Status = model.OrderStatus(status)
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for i := range orders {
		items, err := orderItems(ctx, r.pool, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

// UpdateOrderStatus moves an order to a new status and records fulfillment
// codes for its items, keyed by item row ID.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, codes map[int64]string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2`, string(status), id,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	for itemID, code := range codes {
		_, err := tx.Exec(ctx,
			`UPDATE order_items SET fulfillment_code = $1 WHERE id = $2 AND order_id = $3`,
			code, itemID, id,
		)
		if err != nil {
			return fmt.Errorf("update fulfillment code: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
