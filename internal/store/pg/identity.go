package pg

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellobridge/internal/domain/repository"
)

type identityRepo struct{ pool *pgxpool.Pool }

func (r *identityRepo) GetByProvider(ctx context.Context, provider, providerUserID string) (*repository.SocialIdentity, error) {
	const query = `
		SELECT id, user_id, provider, provider_user_id, email, created_at
		FROM identity
		WHERE provider = $1 AND provider_user_id = $2
	`
	var id repository.SocialIdentity
	err := r.pool.QueryRow(ctx, query, strings.ToLower(provider), providerUserID).Scan(
		&id.ID, &id.UserID, &id.Provider, &id.ProviderUserID, &id.Email, &id.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *identityRepo) Link(ctx context.Context, userID string, ref repository.ProviderRef, email string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var existingUserID string
	err = tx.QueryRow(ctx,
		`SELECT user_id FROM identity WHERE provider = $1 AND provider_user_id = $2`,
		strings.ToLower(ref.Provider), ref.ProviderUserID,
	).Scan(&existingUserID)
	if err == nil {
		if existingUserID != userID {
			return repository.ErrConflict
		}
		return nil // ya vinculada: no-op
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if err := linkTx(ctx, tx, userID, ref, email); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *identityRepo) EnsureUser(ctx context.Context, input repository.EnsureIdentityInput) (string, bool, error) {
	provider := strings.ToLower(input.Provider)
	addr := normalizeEmail(input.Email)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback(ctx)

	// 1. ¿Identidad ya vinculada?
	var existingUserID string
	err = tx.QueryRow(ctx,
		`SELECT user_id FROM identity WHERE provider = $1 AND provider_user_id = $2`,
		provider, input.ProviderUserID,
	).Scan(&existingUserID)
	if err == nil {
		if cerr := tx.Commit(ctx); cerr != nil {
			return "", false, cerr
		}
		return existingUserID, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, err
	}

	// 2. ¿Usuario existente con ese email? Vincular sin tocar el perfil.
	// Una dirección vacía no identifica a nadie y nunca se persiste como
	// email: dos identidades sin email no deben colapsar en una cuenta.
	var userID string
	isNew := false
	matched := false
	if addr != "" {
		err = tx.QueryRow(ctx,
			`SELECT user_id FROM user_email WHERE address = $1 FOR UPDATE`,
			addr,
		).Scan(&userID)
		switch {
		case err == nil:
			matched = true
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return "", false, err
		}
	}
	if !matched {
		// 3. Primera vez: crear usuario con el perfil suministrado.
		if input.Profile.FirstName == "" {
			return "", false, repository.ErrInvalidInput
		}
		u, cerr := createUserTx(ctx, tx, input.Profile, "")
		if cerr != nil {
			return "", false, cerr
		}
		userID = u.ID
		isNew = true
		if addr != "" {
			if _, cerr := tx.Exec(ctx, `
				INSERT INTO user_email (user_id, address, verified, position, created_at)
				VALUES ($1, $2, FALSE, 1, NOW())`,
				userID, addr,
			); cerr != nil {
				if isUniqueViolation(cerr) {
					// Carrera perdida contra otro sign-up con el mismo email.
					return "", false, repository.ErrConflict
				}
				return "", false, cerr
			}
		}
	}

	ref := repository.ProviderRef{Provider: provider, ProviderUserID: input.ProviderUserID}
	if err := linkTx(ctx, tx, userID, ref, addr); err != nil {
		if isUniqueViolation(err) {
			// Carrera perdida: otro request vinculó la misma identidad.
			// Releer fuera de la tx y devolver el usuario existente.
			tx.Rollback(ctx)
			existing, gerr := r.GetByProvider(ctx, provider, input.ProviderUserID)
			if gerr != nil {
				return "", false, gerr
			}
			return existing.UserID, false, nil
		}
		return "", false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", false, err
	}
	return userID, isNew, nil
}

// linkTx inserta el vínculo y agrega el email del provider (sin verificar)
// dentro de la tx. El ON CONFLICT mantiene AddEmail idempotente.
func linkTx(ctx context.Context, tx pgx.Tx, userID string, ref repository.ProviderRef, email string) error {
	now := time.Now()
	if _, err := tx.Exec(ctx, `
		INSERT INTO identity (id, user_id, provider, provider_user_id, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), userID, strings.ToLower(ref.Provider), ref.ProviderUserID, email, now,
	); err != nil {
		return err
	}
	if email == "" {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO user_email (user_id, address, verified, position, created_at)
		VALUES ($1, $2, FALSE,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM user_email WHERE user_id = $1),
			NOW())
		ON CONFLICT (address) DO NOTHING`,
		userID, email,
	)
	return err
}
