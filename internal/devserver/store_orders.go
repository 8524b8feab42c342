package devserver

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/tiendashop/storefront-go/internal/domain"
)

// CreateOrder inserts the order and its items in one transaction. A repeat
// idempotency key returns the already-created order instead of a new one.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order, idempotencyKey string) (*domain.Order, error) {
	if idempotencyKey != "" {
		existing, err := s.orderByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	order.ID = uuid.New().String()

	addressJSON, err := json.Marshal(order.Address)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, user_id, subtotal, shipping, total, status, address, idempotency_key, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $9)
		`, order.ID, order.UserID, order.Subtotal, order.Shipping, order.Total, order.Status, addressJSON, idempotencyKey, order.CreatedAt)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, uuid.New().String(), order.ID, item.ProductID, item.Name, item.Quantity, item.UnitPrice)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (s *Store) orderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM orders WHERE idempotency_key = $1
	`, key).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s.OrderByID(ctx, id)
}

func (s *Store) OrderByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}
	var addressJSON []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, subtotal, shipping, total, status, address, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.UserID, &order.Subtotal, &order.Shipping, &order.Total, &order.Status, &addressJSON, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(addressJSON, &order.Address); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	return order, rows.Err()
}

func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, subtotal, shipping, total, status, address, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		var addressJSON []byte
		if err := rows.Scan(&order.ID, &order.UserID, &order.Subtotal, &order.Shipping, &order.Total, &order.Status, &addressJSON, &order.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(addressJSON, &order.Address); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		itemRows, err := s.db.QueryContext(ctx, `
			SELECT product_id, name, quantity, unit_price
			FROM order_items
			WHERE order_id = $1
		`, orders[i].ID)
		if err != nil {
			return nil, err
		}

		for itemRows.Next() {
			var item domain.OrderItem
			if err := itemRows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
				_ = itemRows.Close()
				return nil, err
			}
			orders[i].Items = append(orders[i].Items, item)
		}
		if err := itemRows.Err(); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		_ = itemRows.Close()
	}

	return orders, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	return s.OrderByID(ctx, id)
}

func (s *Store) CreatePayment(ctx context.Context, orderID string, backURLs map[string]string) (domain.Payment, error) {
	payment := domain.Payment{
		ID:      uuid.New().String(),
		OrderID: orderID,
		Status:  domain.PaymentStatusPending,
	}

	urlsJSON, err := json.Marshal(backURLs)
	if err != nil {
		return payment, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, status, type, back_urls)
		VALUES ($1, $2, $3, '', $4)
	`, payment.ID, payment.OrderID, payment.Status, urlsJSON)
	return payment, err
}

func (s *Store) PaymentByID(ctx context.Context, id string) (*domain.Payment, map[string]string, error) {
	payment := &domain.Payment{}
	var urlsJSON []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_id, status, type, back_urls
		FROM payments
		WHERE id = $1
	`, id).Scan(&payment.ID, &payment.OrderID, &payment.Status, &payment.Type, &urlsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	backURLs := map[string]string{}
	if err := json.Unmarshal(urlsJSON, &backURLs); err != nil {
		return nil, nil, err
	}

	return payment, backURLs, nil
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, orderID, paymentID string, status domain.PaymentStatus, paymentType string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, type = $2
		WHERE order_id = $3 AND ($4 = '' OR id = $4)
	`, status, paymentType, orderID, paymentID)
	return err
}

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	n.ID = uuid.New().String()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, subject, body, priority, type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`, n.ID, n.UserID, n.Subject, n.Body, n.Priority, n.Type, n.CreatedAt)
	return err
}

func (s *Store) NotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, subject, body, priority, type, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var list []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Subject, &n.Body, &n.Priority, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}

	return list, rows.Err()
}

func (s *Store) UnreadNotificationCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read
	`, userID).Scan(&count)
	return count, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE WHERE user_id = $1 AND id = $2
	`, userID, id)
	return err
}
