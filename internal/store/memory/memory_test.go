package memory

import (
	"context"
	"testing"

	"github.com/dropDatabas3/hellobridge/internal/domain/repository"
)

func createUser(t *testing.T, s *Store, email string) *repository.User {
	t.Helper()
	u, err := s.Users().Create(context.Background(), repository.CreateUserInput{
		Profile:       repository.Profile{FirstName: "Ana"},
		Email:         email,
		EmailVerified: true,
	})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	return u
}

func TestCreate_DuplicateEmailConflicts(t *testing.T) {
	s := New()
	createUser(t, s, "ana@ejemplo.com")

	_, err := s.Users().Create(context.Background(), repository.CreateUserInput{
		Profile: repository.Profile{FirstName: "Otra"},
		Email:   "ANA@ejemplo.com", // normaliza a la misma dirección
	})
	if !repository.IsConflict(err) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAddEmail_IdempotentAndMonotonic(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := createUser(t, s, "ana@ejemplo.com")

	// Repetir la misma dirección es un no-op
	if err := s.Users().AddEmail(ctx, u.ID, "ana@ejemplo.com", false); err != nil {
		t.Fatalf("AddEmail err: %v", err)
	}
	got, _ := s.Users().GetByID(ctx, u.ID)
	if len(got.Emails) != 1 {
		t.Fatalf("emails duplicated: %+v", got.Emails)
	}
	// verified=false no baja el flag existente
	if !got.Emails[0].Verified {
		t.Fatalf("verified regressed")
	}

	// Una segunda dirección sin verificar puede subir a verificada después
	if err := s.Users().AddEmail(ctx, u.ID, "alias@ejemplo.com", false); err != nil {
		t.Fatalf("AddEmail err: %v", err)
	}
	if err := s.Users().AddEmail(ctx, u.ID, "alias@ejemplo.com", true); err != nil {
		t.Fatalf("AddEmail err: %v", err)
	}
	got, _ = s.Users().GetByID(ctx, u.ID)
	if len(got.Emails) != 2 || !got.Emails[1].Verified {
		t.Fatalf("emails: %+v", got.Emails)
	}
}

func TestEnsureUser_CreatesOnceAndThenReuses(t *testing.T) {
	s := New()
	ctx := context.Background()
	in := repository.EnsureIdentityInput{
		Provider:       "google",
		ProviderUserID: "g-1",
		Email:          "nueva@ejemplo.com",
		Profile:        repository.Profile{FirstName: "Nueva"},
	}

	id1, isNew, err := s.Identities().EnsureUser(ctx, in)
	if err != nil || !isNew {
		t.Fatalf("first EnsureUser: id=%q isNew=%v err=%v", id1, isNew, err)
	}

	id2, isNew, err := s.Identities().EnsureUser(ctx, in)
	if err != nil || isNew {
		t.Fatalf("second EnsureUser: isNew=%v err=%v", isNew, err)
	}
	if id1 != id2 {
		t.Fatalf("user duplicated: %s != %s", id1, id2)
	}
}

func TestEnsureUser_LinksByEmailWithoutProfile(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := createUser(t, s, "ana@ejemplo.com")

	id, isNew, err := s.Identities().EnsureUser(ctx, repository.EnsureIdentityInput{
		Provider:       "facebook",
		ProviderUserID: "f-9",
		Email:          "ana@ejemplo.com",
		// sin perfil: no hace falta porque el usuario ya existe
	})
	if err != nil {
		t.Fatalf("EnsureUser err: %v", err)
	}
	if isNew || id != u.ID {
		t.Fatalf("expected link to existing user, got id=%s isNew=%v", id, isNew)
	}

	ident, err := s.Identities().GetByProvider(ctx, "facebook", "f-9")
	if err != nil {
		t.Fatalf("GetByProvider err: %v", err)
	}
	if ident.UserID != u.ID {
		t.Fatalf("identity user: %s", ident.UserID)
	}
}

func TestEnsureUser_EmptyEmailNeverAliases(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, isNew, err := s.Identities().EnsureUser(ctx, repository.EnsureIdentityInput{
		Provider:       "facebook",
		ProviderUserID: "f-1",
		Profile:        repository.Profile{FirstName: "Ana"},
	})
	if err != nil || !isNew {
		t.Fatalf("first EnsureUser: isNew=%v err=%v", isNew, err)
	}

	// Otra identidad sin email: la dirección vacía no matchea a nadie.
	id2, isNew, err := s.Identities().EnsureUser(ctx, repository.EnsureIdentityInput{
		Provider:       "facebook",
		ProviderUserID: "f-2",
		Profile:        repository.Profile{FirstName: "Lucía"},
	})
	if err != nil || !isNew {
		t.Fatalf("second EnsureUser: isNew=%v err=%v", isNew, err)
	}
	if id1 == id2 {
		t.Fatalf("identities without email collapsed into user %s", id1)
	}

	// Sin email no queda ninguna dirección registrada.
	u, err := s.Users().GetByID(ctx, id1)
	if err != nil {
		t.Fatalf("GetByID err: %v", err)
	}
	if len(u.Emails) != 0 {
		t.Fatalf("unexpected emails: %+v", u.Emails)
	}

	// Y una búsqueda por dirección vacía no devuelve a nadie.
	if _, err := s.Users().GetByEmail(ctx, ""); !repository.IsNotFound(err) {
		t.Fatalf("GetByEmail(\"\") should be not found, got %v", err)
	}
}

func TestEnsureUser_MissingFirstNameFails(t *testing.T) {
	s := New()

	_, _, err := s.Identities().EnsureUser(context.Background(), repository.EnsureIdentityInput{
		Provider:       "google",
		ProviderUserID: "g-2",
		Email:          "sinperfil@ejemplo.com",
	})
	if err != repository.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLink_AddOnlySemantics(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := createUser(t, s, "ana@ejemplo.com")
	otro := createUser(t, s, "otro@ejemplo.com")

	ref := repository.ProviderRef{Provider: "google", ProviderUserID: "g-1"}
	if err := s.Identities().Link(ctx, u.ID, ref, "ana@ejemplo.com"); err != nil {
		t.Fatalf("Link err: %v", err)
	}
	// Repetir el mismo link es un no-op
	if err := s.Identities().Link(ctx, u.ID, ref, "ana@ejemplo.com"); err != nil {
		t.Fatalf("repeat Link err: %v", err)
	}
	// La misma identidad no puede colgar de otro usuario
	if err := s.Identities().Link(ctx, otro.ID, ref, "otro@ejemplo.com"); !repository.IsConflict(err) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, _ := s.Users().GetByID(ctx, u.ID)
	if len(got.Providers) != 1 {
		t.Fatalf("providers duplicated: %+v", got.Providers)
	}
}

func TestLink_NormalizesEmail(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := createUser(t, s, "ana@ejemplo.com")

	ref := repository.ProviderRef{Provider: "google", ProviderUserID: "g-7"}
	if err := s.Identities().Link(ctx, u.ID, ref, "Ana@Ejemplo.com"); err != nil {
		t.Fatalf("Link err: %v", err)
	}

	got, _ := s.Users().GetByID(ctx, u.ID)
	if len(got.Emails) != 1 {
		t.Fatalf("case-variant address duplicated: %+v", got.Emails)
	}
}

func TestCheckPassword(t *testing.T) {
	s := New()
	users := s.Users()

	if users.CheckPassword(nil, "algo") {
		t.Fatalf("nil hash must not verify")
	}
	empty := ""
	if users.CheckPassword(&empty, "algo") {
		t.Fatalf("empty hash must not verify")
	}
}
