package devserver

import (
	"context"

	"github.com/google/uuid"

	"github.com/tiendashop/storefront-go/internal/domain"
)

func (s *Store) ReviewsByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, user_id, rating, comment, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var list []domain.Review
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, r)
	}

	return list, rows.Err()
}

func (s *Store) CreateReview(ctx context.Context, r *domain.Review) error {
	r.ID = uuid.New().String()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, product_id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.ProductID, r.UserID, r.Rating, r.Comment, r.CreatedAt)
	return err
}

func (s *Store) DeleteReview(ctx context.Context, userID, productID, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM reviews WHERE id = $1 AND product_id = $2 AND user_id = $3
	`, id, productID, userID)
	return err
}
