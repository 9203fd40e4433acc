package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, items, total, delivery, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	recentOrdersSQL = `SELECT id, items, total, delivery, created_at
		FROM orders ORDER BY created_at DESC LIMIT $1`
)

var (
	_ order.Repository = (*Store)(nil)
	_ order.Reader     = (*Store)(nil)
)

// orderItem is the JSONB layout of a stored line item.
type orderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
}

// Create persists a new order. Line items and delivery details are
// serialized to JSON for storage in JSONB columns.
func (s *Store) Create(ctx context.Context, o *order.Order) error {
	items := make([]orderItem, len(o.Items))
	for i, li := range o.Items {
		items[i] = orderItem{
			ProductID: li.ProductID,
			Name:      li.Name,
			Price:     li.Price,
			Category:  li.Category,
			Quantity:  li.Quantity,
		}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	deliveryJSON, err := json.Marshal(o.Delivery)
	if err != nil {
		return fmt.Errorf("marshaling delivery: %w", err)
	}

	if _, err := s.pool.Exec(ctx, insertOrderSQL, o.ID, itemsJSON, o.Total, deliveryJSON, o.CreatedAt); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Recent returns up to limit orders, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, recentOrdersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		itemsJSON    []byte
		deliveryJSON []byte
	)
	if err := row.Scan(&o.ID, &itemsJSON, &o.Total, &deliveryJSON, &o.CreatedAt); err != nil {
		return o, err
	}
	var items []orderItem
	if err := json.Unmarshal(itemsJSON, &items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(deliveryJSON, &o.Delivery); err != nil {
		return o, fmt.Errorf("unmarshaling delivery: %w", err)
	}
	o.Items = orderItems(items)
	return o, nil
}

func orderItems(items []orderItem) []cart.LineItem {
	out := make([]cart.LineItem, len(items))
	for i, it := range items {
		out[i] = cart.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Category:  it.Category,
			Quantity:  it.Quantity,
		}
	}
	return out
}
