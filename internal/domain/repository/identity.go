package repository

import (
	"context"
	"time"
)

// ProviderRef identifica una identidad externa vinculada a un usuario.
type ProviderRef struct {
	Provider       string // "google", "facebook"
	ProviderUserID string // ID del usuario en el provider
}

// SocialIdentity representa el vínculo completo usuario↔provider.
type SocialIdentity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	Email          string
	CreatedAt      time.Time
}

// EnsureIdentityInput contiene los datos para el upsert condicional del
// reconciler. Profile solo se usa en el camino que crea el usuario.
type EnsureIdentityInput struct {
	Provider       string
	ProviderUserID string
	Email          string
	Profile        Profile
}

// IdentityRepository define operaciones sobre identidades sociales.
// Complementa UserRepository con la relación consultable (provider, id externo).
type IdentityRepository interface {
	// GetByProvider busca una identidad por provider e ID externo.
	// Retorna ErrNotFound si no existe.
	GetByProvider(ctx context.Context, provider, providerUserID string) (*SocialIdentity, error)

	// Link vincula una identidad a un usuario existente. Add-only e
	// idempotente: si el vínculo ya existe es un no-op.
	Link(ctx context.Context, userID string, ref ProviderRef, email string) error

	// EnsureUser es el upsert condicional del reconciler, atómico por
	// (provider, providerUserID):
	//   - vínculo existente            → (userID, false)
	//   - usuario existente por email  → vincula y agrega email → (userID, false)
	//   - ninguno                      → crea usuario con Profile + email del
	//     provider (sin verificar) y vincula → (userID, true)
	// Dos llamadas concurrentes con la misma identidad nunca crean dos usuarios.
	EnsureUser(ctx context.Context, input EnsureIdentityInput) (userID string, isNew bool, err error)
}
