// Package memory implementa el Identity Store en memoria.
// Pensado para desarrollo y tests; un solo mutex serializa todas las
// mutaciones, lo que da gratis la atomicidad que el reconciler necesita.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/hellobridge/internal/domain/repository"
	"github.com/dropDatabas3/hellobridge/internal/security/password"
)

type Store struct {
	mu    sync.Mutex
	users map[string]*repository.User // por ID
	// identidades por clave provider + "\x00" + providerUserID
	identities map[string]*repository.SocialIdentity
}

// New crea un store en memoria vacío.
func New() *Store {
	return &Store{
		users:      make(map[string]*repository.User),
		identities: make(map[string]*repository.SocialIdentity),
	}
}

func (s *Store) Users() repository.UserRepository          { return (*userRepo)(s) }
func (s *Store) Identities() repository.IdentityRepository { return (*identityRepo)(s) }

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = nil
	s.identities = nil
	return nil
}

func identityKey(provider, providerUserID string) string {
	return strings.ToLower(provider) + "\x00" + providerUserID
}

// clone devuelve una copia para que los callers no muten estado interno.
func clone(u *repository.User) *repository.User {
	cp := *u
	cp.Emails = append([]repository.Email(nil), u.Emails...)
	cp.Providers = append([]repository.ProviderRef(nil), u.Providers...)
	if u.PasswordHash != nil {
		h := *u.PasswordHash
		cp.PasswordHash = &h
	}
	return &cp
}

// ─── UserRepository ───

type userRepo Store

func (r *userRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (r *userRepo) GetByEmail(ctx context.Context, address string) (*repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.findByEmailLocked(address)
	if u == nil {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (r *userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	addr := normalizeEmail(input.Email)
	if addr == "" || input.Profile.FirstName == "" {
		return nil, repository.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findByEmailLocked(addr) != nil {
		return nil, repository.ErrConflict
	}

	now := time.Now()
	u := &repository.User{
		ID:        uuid.NewString(),
		Emails:    []repository.Email{{Address: addr, Verified: input.EmailVerified}},
		Profile:   input.Profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.PasswordHash != "" {
		h := input.PasswordHash
		u.PasswordHash = &h
	}
	r.users[u.ID] = u
	return clone(u), nil
}

func (r *userRepo) AddEmail(ctx context.Context, userID, address string, verified bool) error {
	addr := normalizeEmail(address)
	if addr == "" {
		return repository.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range u.Emails {
		if u.Emails[i].Address == addr {
			// Ya existe: no-op. Verified solo sube, nunca baja.
			if verified && !u.Emails[i].Verified {
				u.Emails[i].Verified = true
				u.UpdatedAt = time.Now()
			}
			return nil
		}
	}
	u.Emails = append(u.Emails, repository.Email{Address: addr, Verified: verified})
	u.UpdatedAt = time.Now()
	return nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, userID string, input repository.UpdateProfileInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if input.FirstName != nil {
		u.Profile.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		u.Profile.LastName = *input.LastName
	}
	if input.Phone != nil {
		u.Profile.Phone = *input.Phone
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (r *userRepo) CheckPassword(hash *string, plain string) bool {
	if hash == nil || *hash == "" {
		return false
	}
	return password.Verify(plain, *hash)
}

func (r *userRepo) findByEmailLocked(address string) *repository.User {
	addr := normalizeEmail(address)
	if addr == "" {
		// Una dirección vacía no identifica a nadie.
		return nil
	}
	// Orden estable para que los tests sean deterministas.
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		u := r.users[id]
		for _, e := range u.Emails {
			if e.Address == addr {
				return u
			}
		}
	}
	return nil
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ─── IdentityRepository ───

type identityRepo Store

func (r *identityRepo) GetByProvider(ctx context.Context, provider, providerUserID string) (*repository.SocialIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.identities[identityKey(provider, providerUserID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *id
	return &cp, nil
}

func (r *identityRepo) Link(ctx context.Context, userID string, ref repository.ProviderRef, email string) error {
	email = normalizeEmail(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	key := identityKey(ref.Provider, ref.ProviderUserID)
	if existing, ok := r.identities[key]; ok {
		if existing.UserID != userID {
			return repository.ErrConflict
		}
		return nil // ya vinculada: no-op
	}
	r.linkLocked(u, ref, email)
	return nil
}

func (r *identityRepo) EnsureUser(ctx context.Context, input repository.EnsureIdentityInput) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := identityKey(input.Provider, input.ProviderUserID)
	if existing, ok := r.identities[key]; ok {
		return existing.UserID, false, nil
	}

	addr := normalizeEmail(input.Email)
	ur := (*userRepo)(r)
	if u := ur.findByEmailLocked(addr); u != nil {
		// Usuario existente: vincular sin tocar el perfil.
		r.linkLocked(u, repository.ProviderRef{Provider: input.Provider, ProviderUserID: input.ProviderUserID}, addr)
		return u.ID, false, nil
	}

	if input.Profile.FirstName == "" {
		return "", false, repository.ErrInvalidInput
	}

	now := time.Now()
	u := &repository.User{
		ID:        uuid.NewString(),
		Profile:   input.Profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if addr != "" {
		u.Emails = []repository.Email{{Address: addr, Verified: false}}
	}
	r.users[u.ID] = u
	r.linkLocked(u, repository.ProviderRef{Provider: input.Provider, ProviderUserID: input.ProviderUserID}, addr)
	return u.ID, true, nil
}

// linkLocked registra el vínculo y agrega el email del provider (sin
// verificar) respetando la unicidad de direcciones. Requiere mu tomado.
func (r *identityRepo) linkLocked(u *repository.User, ref repository.ProviderRef, email string) {
	key := identityKey(ref.Provider, ref.ProviderUserID)
	r.identities[key] = &repository.SocialIdentity{
		ID:             uuid.NewString(),
		UserID:         u.ID,
		Provider:       strings.ToLower(ref.Provider),
		ProviderUserID: ref.ProviderUserID,
		Email:          email,
		CreatedAt:      time.Now(),
	}
	for _, p := range u.Providers {
		if strings.EqualFold(p.Provider, ref.Provider) && p.ProviderUserID == ref.ProviderUserID {
			return
		}
	}
	u.Providers = append(u.Providers, repository.ProviderRef{
		Provider:       strings.ToLower(ref.Provider),
		ProviderUserID: ref.ProviderUserID,
	})
	if email != "" && !u.HasEmail(email) {
		u.Emails = append(u.Emails, repository.Email{Address: email, Verified: false})
	}
	u.UpdatedAt = time.Now()
}
