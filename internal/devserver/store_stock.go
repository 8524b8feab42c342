package devserver

import (
	"context"
	"errors"
)

var ErrInsufficientStock = errors.New("insufficient stock")

// ReserveStock decrements stock for one product. The WHERE clause makes the
// check and the decrement a single statement, so concurrent orders cannot
// oversell.
func (s *Store) ReserveStock(ctx context.Context, productID string, quantity int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`, productID, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}

func (s *Store) ReleaseStock(ctx context.Context, productID string, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1
	`, productID, quantity)
	return err
}
