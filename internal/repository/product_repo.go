package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"voyager-api/internal/domain"
)

// ProductRepository define el contrato de persistencia para productos.
type ProductRepository interface {
	Create(ctx context.Context, product domain.Product) error
	GetByID(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// PgProductRepository implementa ProductRepository usando pgxpool.
type PgProductRepository struct {
	pool *pgxpool.Pool
}

func NewPgProductRepository(pool *pgxpool.Pool) *PgProductRepository {
	return &PgProductRepository{pool: pool}
}

func (r *PgProductRepository) Create(ctx context.Context, product domain.Product) error {
	const query = `
		INSERT INTO products (id, user_id, name, description, price, images, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		product.ID,
		product.UserID,
		product.Name,
		product.Description,
		product.Price,
		product.Images,
		product.CreatedAt,
	)
	return err
}

func (r *PgProductRepository) GetByID(ctx context.Context, id string) (domain.Product, error) {
	const query = `
		SELECT id, user_id, name, description, price, images, created_at
		FROM products
		WHERE id = $1
	`
	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Images,
		&p.CreatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p, nil
}

func (r *PgProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	const query = `
		SELECT id, user_id, name, description, price, images, created_at
		FROM products
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.Images,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		if p.Images == nil {
			p.Images = []string{}
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PgProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	const query = `
		UPDATE products
		SET name = $2, description = $3, price = $4, images = $5
		WHERE id = $1
		RETURNING id, user_id, name, description, price, images, created_at
	`
	var p domain.Product
	err := r.pool.QueryRow(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Images,
	).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Images,
		&p.CreatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (r *PgProductRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM products WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
