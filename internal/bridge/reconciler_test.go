package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/hellobridge/internal/domain/repository"
	"github.com/dropDatabas3/hellobridge/internal/store/memory"
)

func newTestReconciler(t *testing.T, requirePhone bool) (*Reconciler, *memory.Store) {
	t.Helper()
	st := memory.New()
	r := NewReconciler(ReconcilerDeps{
		Users:        st.Users(),
		Identities:   st.Identities(),
		RequirePhone: requirePhone,
	})
	return r, st
}

func googleIdentity() ExternalIdentity {
	return ExternalIdentity{
		Provider:       "google",
		ProviderUserID: "g-123",
		Email:          "ana@ejemplo.com",
		FamilyNameHint: "García",
	}
}

func TestReconcile_NewIdentityCreatesUser(t *testing.T) {
	r, st := newTestReconciler(t, false)
	ctx := context.Background()

	subj, err := r.Reconcile(ctx, googleIdentity(), &repository.Profile{FirstName: "Ana"})
	if err != nil {
		t.Fatalf("Reconcile err: %v", err)
	}
	if !subj.IsNew {
		t.Fatalf("expected IsNew=true")
	}

	u, err := st.Users().GetByID(ctx, subj.UserID)
	if err != nil {
		t.Fatalf("GetByID err: %v", err)
	}
	if u.Profile.FirstName != "Ana" {
		t.Fatalf("first name: got %q", u.Profile.FirstName)
	}
	// El hint rellena el apellido vacío
	if u.Profile.LastName != "García" {
		t.Fatalf("last name hint: got %q", u.Profile.LastName)
	}
	// El email del provider entra sin verificar
	if len(u.Emails) != 1 || u.Emails[0].Verified {
		t.Fatalf("emails: %+v", u.Emails)
	}
}

func TestReconcile_IncompleteProfileMutatesNothing(t *testing.T) {
	r, st := newTestReconciler(t, false)
	ctx := context.Background()

	_, err := r.Reconcile(ctx, googleIdentity(), nil)
	if !IsIncompleteProfile(err) {
		t.Fatalf("expected ErrIncompleteProfile, got %v", err)
	}

	if _, err := st.Users().GetByEmail(ctx, "ana@ejemplo.com"); !repository.IsNotFound(err) {
		t.Fatalf("user should not exist, got err=%v", err)
	}
	if _, err := st.Identities().GetByProvider(ctx, "google", "g-123"); !repository.IsNotFound(err) {
		t.Fatalf("identity should not exist, got err=%v", err)
	}
}

func TestReconcile_RequirePhone(t *testing.T) {
	r, _ := newTestReconciler(t, true)
	ctx := context.Background()

	_, err := r.Reconcile(ctx, googleIdentity(), &repository.Profile{FirstName: "Ana"})
	if !IsIncompleteProfile(err) {
		t.Fatalf("expected ErrIncompleteProfile without phone, got %v", err)
	}

	subj, err := r.Reconcile(ctx, googleIdentity(), &repository.Profile{FirstName: "Ana", Phone: "+54911"})
	if err != nil {
		t.Fatalf("Reconcile err: %v", err)
	}
	if !subj.IsNew {
		t.Fatalf("expected IsNew=true")
	}
}

func TestReconcile_HintsNeverSatisfyMandatoryFields(t *testing.T) {
	r, _ := newTestReconciler(t, false)
	ctx := context.Background()

	ext := googleIdentity()
	ext.GivenNameHint = "Ana"

	// El hint de nombre no cuenta como first_name cargado por el usuario.
	_, err := r.Reconcile(ctx, ext, nil)
	if !IsIncompleteProfile(err) {
		t.Fatalf("expected ErrIncompleteProfile, got %v", err)
	}
}

func TestReconcile_ExistingEmailLinksWithoutProfile(t *testing.T) {
	r, st := newTestReconciler(t, true)
	ctx := context.Background()

	existing, err := st.Users().Create(ctx, repository.CreateUserInput{
		Profile:       repository.Profile{FirstName: "Ana", Phone: "+54911"},
		Email:         "ana@ejemplo.com",
		EmailVerified: true,
		PasswordHash:  "$argon2id$fake",
	})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	// Sin perfil: la cuenta ya existe por email, solo se vincula.
	subj, err := r.Reconcile(ctx, googleIdentity(), nil)
	if err != nil {
		t.Fatalf("Reconcile err: %v", err)
	}
	if subj.IsNew {
		t.Fatalf("expected IsNew=false")
	}
	if subj.UserID != existing.ID {
		t.Fatalf("linked to wrong user: %s != %s", subj.UserID, existing.ID)
	}

	u, _ := st.Users().GetByID(ctx, existing.ID)
	if len(u.Providers) != 1 || u.Providers[0].Provider != "google" {
		t.Fatalf("providers: %+v", u.Providers)
	}
	// El verified existente no baja por el link social
	if !u.Emails[0].Verified {
		t.Fatalf("verified flag regressed")
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	r, st := newTestReconciler(t, false)
	ctx := context.Background()

	first, err := r.Reconcile(ctx, googleIdentity(), &repository.Profile{FirstName: "Ana"})
	if err != nil {
		t.Fatalf("first Reconcile err: %v", err)
	}

	// Re-login con la misma identidad: mismo usuario, sin perfil, sin IsNew.
	second, err := r.Reconcile(ctx, googleIdentity(), nil)
	if err != nil {
		t.Fatalf("second Reconcile err: %v", err)
	}
	if second.IsNew {
		t.Fatalf("expected IsNew=false on repeat")
	}
	if second.UserID != first.UserID {
		t.Fatalf("user changed between logins: %s != %s", second.UserID, first.UserID)
	}

	u, _ := st.Users().GetByID(ctx, first.UserID)
	if len(u.Providers) != 1 || len(u.Emails) != 1 {
		t.Fatalf("duplicated state: providers=%d emails=%d", len(u.Providers), len(u.Emails))
	}
}

func TestReconcile_EmptyEmailsNeverMerge(t *testing.T) {
	r, st := newTestReconciler(t, false)
	ctx := context.Background()

	first, err := r.Reconcile(ctx, ExternalIdentity{
		Provider:       "facebook",
		ProviderUserID: "f-1",
	}, &repository.Profile{FirstName: "Ana"})
	if err != nil {
		t.Fatalf("first Reconcile err: %v", err)
	}
	if !first.IsNew {
		t.Fatalf("expected IsNew=true")
	}

	// Segunda identidad distinta, también sin email: tiene que crear otra
	// cuenta, nunca colgarse de la primera.
	second, err := r.Reconcile(ctx, ExternalIdentity{
		Provider:       "facebook",
		ProviderUserID: "f-2",
	}, &repository.Profile{FirstName: "Lucía"})
	if err != nil {
		t.Fatalf("second Reconcile err: %v", err)
	}
	if !second.IsNew {
		t.Fatalf("expected IsNew=true for distinct identity")
	}
	if second.UserID == first.UserID {
		t.Fatalf("distinct identities merged into one user: %s", first.UserID)
	}

	// Ninguna cuenta registra una dirección vacía.
	for _, id := range []string{first.UserID, second.UserID} {
		u, err := st.Users().GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID err: %v", err)
		}
		for _, e := range u.Emails {
			if e.Address == "" {
				t.Fatalf("empty address stored for user %s", id)
			}
		}
	}
}

func TestReconcile_EmptyEmailStillRequiresProfile(t *testing.T) {
	r, _ := newTestReconciler(t, false)

	_, err := r.Reconcile(context.Background(), ExternalIdentity{
		Provider:       "facebook",
		ProviderUserID: "f-1",
	}, nil)
	if !IsIncompleteProfile(err) {
		t.Fatalf("expected ErrIncompleteProfile, got %v", err)
	}
}

func TestReconcile_InvalidInput(t *testing.T) {
	r, _ := newTestReconciler(t, false)

	_, err := r.Reconcile(context.Background(), ExternalIdentity{}, nil)
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
