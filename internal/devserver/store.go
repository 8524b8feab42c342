// Package devserver is a development stub of the remote storefront
// backend. It is Postgres-backed and deliberately mimics the production
// API's quirks (mixed response envelopes, 422 validation maps, 403 for
// deactivated accounts) so the SDK can be exercised end to end.
package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tiendashop/storefront-go/internal/domain"
)

var ErrDuplicateEmail = errors.New("email already registered")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// storedUser carries the password column next to the public user shape.
// The stub stores passwords in the clear; it never faces the internet.
type storedUser struct {
	domain.User
	Password string
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*storedUser, error) {
	user := &storedUser{}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, role, active
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Role, &user.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return user, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*storedUser, error) {
	user := &storedUser{}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, role, active
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Role, &user.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return user, nil
}

func (s *Store) CreateUser(ctx context.Context, name, email, password string) (domain.User, error) {
	user := domain.User{
		ID:     uuid.New().String(),
		Name:   name,
		Email:  email,
		Role:   domain.RoleCustomer,
		Active: true,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password, role, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`, user.ID, user.Name, user.Email, password, user.Role)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, err
	}

	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, id, name, email string) (*storedUser, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = $1, email = $2 WHERE id = $3
	`, name, email, id)
	if err != nil {
		return nil, err
	}
	return s.UserByID(ctx, id)
}

func (s *Store) UpdatePassword(ctx context.Context, id, password string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $1 WHERE id = $2
	`, password, id)
	return err
}

func (s *Store) DeactivateUser(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET active = FALSE WHERE id = $1
	`, id)
	return err
}

func (s *Store) Users(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, role, active
		FROM users
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.Active); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (s *Store) Products(ctx context.Context, categoryID string) ([]domain.Product, error) {
	query := `
		SELECT id, name, description, price, sale_price, category_id, stock
		FROM products
	`
	args := []any{}
	if categoryID != "" {
		query += ` WHERE category_id = $1`
		args = append(args, categoryID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		var salePrice sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &salePrice, &p.CategoryID, &p.Stock); err != nil {
			return nil, err
		}
		if salePrice.Valid {
			p.SalePrice = &salePrice.Int64
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (s *Store) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}
	var salePrice sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, sale_price, category_id, stock
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &salePrice, &p.CategoryID, &p.Stock)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if salePrice.Valid {
		p.SalePrice = &salePrice.Int64
	}

	return p, nil
}

func (s *Store) AddressesByUser(ctx context.Context, userID string) ([]domain.Address, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, street, city, province, postal_code, country, is_default
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var list []domain.Address
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(&a.ID, &a.Street, &a.City, &a.Province, &a.PostalCode, &a.Country, &a.Default); err != nil {
			return nil, err
		}
		list = append(list, a)
	}

	return list, rows.Err()
}

func (s *Store) AddressByID(ctx context.Context, userID, id string) (*domain.Address, error) {
	a := &domain.Address{}

	err := s.db.QueryRowContext(ctx, `
		SELECT id, street, city, province, postal_code, country, is_default
		FROM addresses
		WHERE user_id = $1 AND id = $2
	`, userID, id).Scan(&a.ID, &a.Street, &a.City, &a.Province, &a.PostalCode, &a.Country, &a.Default)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return a, nil
}

func (s *Store) CreateAddress(ctx context.Context, userID string, a domain.Address) (domain.Address, error) {
	a.ID = uuid.New().String()

	if a.Default {
		return a, s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				UPDATE addresses SET is_default = FALSE WHERE user_id = $1
			`, userID); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO addresses (id, user_id, street, city, province, postal_code, country, is_default)
				VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
			`, a.ID, userID, a.Street, a.City, a.Province, a.PostalCode, a.Country)
			return err
		})
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO addresses (id, user_id, street, city, province, postal_code, country, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
	`, a.ID, userID, a.Street, a.City, a.Province, a.PostalCode, a.Country)
	return a, err
}

func (s *Store) UpdateAddress(ctx context.Context, userID string, a domain.Address) (*domain.Address, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE addresses
		SET street = $1, city = $2, province = $3, postal_code = $4, country = $5
		WHERE user_id = $6 AND id = $7
	`, a.Street, a.City, a.Province, a.PostalCode, a.Country, userID, a.ID)
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

	return s.AddressByID(ctx, userID, a.ID)
}

func (s *Store) DeleteAddress(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM addresses WHERE user_id = $1 AND id = $2
	`, userID, id)
	return err
}

// SetDefaultAddress flips the single-default flag transactionally; at most
// one default per user survives.
func (s *Store) SetDefaultAddress(ctx context.Context, userID, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE addresses SET is_default = FALSE WHERE user_id = $1
		`, userID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE addresses SET is_default = TRUE WHERE user_id = $1 AND id = $2
		`, userID, id)
		if err != nil {
			return err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return fmt.Errorf("tx: %w", err)
	}
	return tx.Commit()
}
