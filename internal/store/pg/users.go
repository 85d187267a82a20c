package pg

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellobridge/internal/domain/repository"
	"github.com/dropDatabas3/hellobridge/internal/security/password"
)

type userRepo struct{ pool *pgxpool.Pool }

func (r *userRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	const query = `
		SELECT id, first_name, last_name, phone, password_hash, created_at, updated_at
		FROM app_user WHERE id = $1
	`
	var u repository.User
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.Profile.FirstName, &u.Profile.LastName, &u.Profile.Phone,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, address string) (*repository.User, error) {
	const query = `SELECT user_id FROM user_email WHERE address = $1`
	var userID string
	err := r.pool.QueryRow(ctx, query, normalizeEmail(address)).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, userID)
}

func (r *userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	addr := normalizeEmail(input.Email)
	if addr == "" || input.Profile.FirstName == "" {
		return nil, repository.ErrInvalidInput
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u, err := createUserTx(ctx, tx, input.Profile, input.PasswordHash)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO user_email (user_id, address, verified, position, created_at)
		VALUES ($1, $2, $3, 1, NOW())`,
		u.ID, addr, input.EmailVerified,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	u.Emails = []repository.Email{{Address: addr, Verified: input.EmailVerified}}
	return u, nil
}

func (r *userRepo) AddEmail(ctx context.Context, userID, address string, verified bool) error {
	addr := normalizeEmail(address)
	if addr == "" {
		return repository.ErrInvalidInput
	}
	// Idempotente: si la dirección ya pertenece a este usuario solo puede
	// subir el flag verified; si pertenece a otro usuario es un no-op.
	const query = `
		INSERT INTO user_email (user_id, address, verified, position, created_at)
		VALUES ($1, $2, $3,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM user_email WHERE user_id = $1),
			NOW())
		ON CONFLICT (address) DO UPDATE
			SET verified = user_email.verified OR EXCLUDED.verified
			WHERE user_email.user_id = EXCLUDED.user_id
	`
	_, err := r.pool.Exec(ctx, query, userID, addr, verified)
	if isForeignKeyViolation(err) {
		return repository.ErrNotFound
	}
	return err
}

func (r *userRepo) UpdateProfile(ctx context.Context, userID string, input repository.UpdateProfileInput) error {
	const query = `
		UPDATE app_user SET
			first_name = COALESCE($2, first_name),
			last_name  = COALESCE($3, last_name),
			phone      = COALESCE($4, phone),
			updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, userID, input.FirstName, input.LastName, input.Phone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) CheckPassword(hash *string, plain string) bool {
	if hash == nil || *hash == "" {
		return false
	}
	return password.Verify(plain, *hash)
}

// loadRelations carga emails (en orden de precedencia) y providers.
func (r *userRepo) loadRelations(ctx context.Context, u *repository.User) error {
	rows, err := r.pool.Query(ctx, `
		SELECT address, verified FROM user_email
		WHERE user_id = $1 ORDER BY position`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var e repository.Email
		if err := rows.Scan(&e.Address, &e.Verified); err != nil {
			return err
		}
		u.Emails = append(u.Emails, e)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prows, err := r.pool.Query(ctx, `
		SELECT provider, provider_user_id FROM identity
		WHERE user_id = $1 ORDER BY created_at`, u.ID)
	if err != nil {
		return err
	}
	defer prows.Close()
	for prows.Next() {
		var p repository.ProviderRef
		if err := prows.Scan(&p.Provider, &p.ProviderUserID); err != nil {
			return err
		}
		u.Providers = append(u.Providers, p)
	}
	return prows.Err()
}

// createUserTx inserta el registro base de app_user dentro de una tx.
func createUserTx(ctx context.Context, tx pgx.Tx, profile repository.Profile, passwordHash string) (*repository.User, error) {
	now := time.Now()
	u := &repository.User{
		ID:        uuid.NewString(),
		Profile:   profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if passwordHash != "" {
		h := passwordHash
		u.PasswordHash = &h
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO app_user (id, first_name, last_name, phone, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		u.ID, profile.FirstName, profile.LastName, profile.Phone, u.PasswordHash, now,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
