package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"voyager-api/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	UpdateProfile(ctx context.Context, id, name, email string) (domain.User, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error)
	UpdatePasswordClearReset(ctx context.Context, id, passwordHash string) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, COALESCE(reset_token_hash, ''), reset_expires_at, created_at`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE email = $1 AND id <> $2
		)
	`
	var taken bool
	err := r.pool.QueryRow(ctx, query, email, excludeID).Scan(&taken)
	return taken, err
}

func (r *PgUserRepository) UpdateProfile(ctx context.Context, id, name, email string) (domain.User, error) {
	const query = `
		UPDATE users
		SET name = COALESCE(NULLIF($2, ''), name),
		    email = COALESCE(NULLIF($3, ''), email)
		WHERE id = $1
		RETURNING ` + userColumns + `
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, id, name, email))
}

func (r *PgUserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET reset_token_hash = $2, reset_expires_at = $3
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, tokenHash, expiresAt)
	return err
}

func (r *PgUserRepository) ClearResetToken(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET reset_token_hash = NULL, reset_expires_at = NULL
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// GetByResetToken busca por digest y expiracion futura en un solo predicado
// para no distinguir "no existe" de "expirado".
func (r *PgUserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE reset_token_hash = $1 AND reset_expires_at > $2
	`
	return r.scanUser(r.pool.QueryRow(ctx, query, tokenHash, now))
}

func (r *PgUserRepository) UpdatePasswordClearReset(ctx context.Context, id, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $2, reset_token_hash = NULL, reset_expires_at = NULL
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, passwordHash)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PgUserRepository) scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.ResetTokenHash,
		&u.ResetExpiresAt,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}
