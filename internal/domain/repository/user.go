package repository

import (
	"context"
	"time"
)

// Email es una dirección asociada a un usuario.
// El orden de inserción define la precedencia para display.
type Email struct {
	Address  string
	Verified bool
}

// Profile contiene los campos de perfil editables por el usuario.
// FirstName es obligatorio al crear una cuenta; el resto es opcional.
type Profile struct {
	FirstName string
	LastName  string
	Phone     string
}

// User representa un usuario del sistema.
// Invariantes que los repositorios deben sostener:
//   - una dirección aparece en Emails a lo sumo una vez
//   - Verified es monotónico: nunca pasa de true a false
//   - Providers solo crece, nunca se desvincula desde el bridge
type User struct {
	ID           string
	Emails       []Email
	Providers    []ProviderRef
	Profile      Profile
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PrimaryEmail retorna la primera dirección del usuario (la de mayor
// precedencia), o "" si no tiene ninguna.
func (u *User) PrimaryEmail() string {
	if len(u.Emails) == 0 {
		return ""
	}
	return u.Emails[0].Address
}

// HasEmail indica si el usuario ya tiene registrada la dirección.
func (u *User) HasEmail(address string) bool {
	for _, e := range u.Emails {
		if e.Address == address {
			return true
		}
	}
	return false
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Profile       Profile
	Email         string
	EmailVerified bool
	PasswordHash  string // vacío para cuentas solo-social
}

// UpdateProfileInput contiene los campos actualizables del perfil.
// Punteros nil significan "no tocar".
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// GetByID busca un usuario por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, userID string) (*User, error)

	// GetByEmail busca un usuario que tenga registrada la dirección.
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, address string) (*User, error)

	// Create crea un usuario con su email inicial.
	// Retorna ErrConflict si la dirección ya pertenece a otro usuario.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// AddEmail agrega una dirección al usuario. Es idempotente: si la
	// dirección ya existe es un no-op, sin importar el flag verified
	// (verified solo puede subir, nunca bajar).
	AddEmail(ctx context.Context, userID, address string, verified bool) error

	// UpdateProfile actualiza campos del perfil.
	UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) error

	// CheckPassword verifica el password contra el hash almacenado.
	// No accede a la base: solo compara.
	CheckPassword(hash *string, password string) bool
}
