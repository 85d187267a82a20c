package bridge

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/hellobridge/internal/domain/repository"
	"github.com/dropDatabas3/hellobridge/internal/observability/logger"
)

// LinkNotifier avisa al usuario que un nuevo método de ingreso quedó
// vinculado a su cuenta. Best-effort: el reconciler no falla por esto.
type LinkNotifier interface {
	NotifyProviderLinked(ctx context.Context, email, provider string)
}

// ReconcilerDeps contiene las dependencias del reconciler.
type ReconcilerDeps struct {
	Users      repository.UserRepository
	Identities repository.IdentityRepository

	// RequirePhone exige teléfono además de nombre al crear cuentas
	// desde un provider social (la superficie de sign-up lo pide).
	RequirePhone bool

	// Notifier es opcional.
	Notifier LinkNotifier
}

// Reconciler decide si una identidad externa mapea a un usuario local
// existente o requiere crear uno, y extiende el registro local con el email
// del provider sin pisar datos manuales.
type Reconciler struct {
	deps ReconcilerDeps

	// sf serializa reconciliaciones concurrentes de la misma identidad:
	// dos logins simultáneos del mismo (provider, id) no pueden creerse
	// ambos "primera vez".
	sf singleflight.Group
}

// NewReconciler crea un Reconciler.
func NewReconciler(deps ReconcilerDeps) *Reconciler {
	return &Reconciler{deps: deps}
}

type reconcileOutcome struct {
	userID string
	isNew  bool
}

// Reconcile mapea la identidad externa a un Subject local.
//
// profile son los campos que el caller ya recolectó (nil si no tiene
// ninguno). Si la identidad es nueva y faltan campos obligatorios retorna
// ErrIncompleteProfile sin crear ni mutar nada; el caller recolecta los
// campos y vuelve a llamar. Re-invocar con una identidad ya vinculada
// corta en corto al usuario existente: el linking es add-only.
func (r *Reconciler) Reconcile(ctx context.Context, ext ExternalIdentity, profile *repository.Profile) (Subject, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("bridge.reconciler"),
		logger.Provider(ext.Provider),
	)

	if ext.Provider == "" || ext.ProviderUserID == "" {
		return Subject{}, repository.ErrInvalidInput
	}

	// 1. Identidad ya vinculada → usuario existente, sin mutaciones.
	existing, err := r.deps.Identities.GetByProvider(ctx, ext.Provider, ext.ProviderUserID)
	if err == nil {
		log.Debug("identity already linked", logger.Subject(existing.UserID))
		return Subject{UserID: existing.UserID}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return Subject{}, err
	}

	// 2. Primera vez. Si hay usuario local con el mismo email solo se
	// vincula; si no, hace falta el perfil completo antes de crear.
	// Una dirección vacía no identifica a nadie: nunca participa del match.
	merged := r.mergedProfile(ext, profile)
	emailMatch := false
	if ext.Email != "" {
		if _, lookupErr := r.deps.Users.GetByEmail(ctx, ext.Email); lookupErr == nil {
			emailMatch = true
		} else if !errors.Is(lookupErr, repository.ErrNotFound) {
			return Subject{}, lookupErr
		}
	}
	if !emailMatch {
		if missing := r.missingFields(merged); len(missing) > 0 {
			log.Debug("profile incomplete", logger.String("missing", strings.Join(missing, ",")))
			return Subject{}, ErrIncompleteProfile
		}
	}

	// 3. Upsert condicional, colapsando llamadas concurrentes por clave.
	key := strings.ToLower(ext.Provider) + "\x00" + ext.ProviderUserID
	v, err, _ := r.sf.Do(key, func() (any, error) {
		userID, isNew, err := r.deps.Identities.EnsureUser(ctx, repository.EnsureIdentityInput{
			Provider:       ext.Provider,
			ProviderUserID: ext.ProviderUserID,
			Email:          ext.Email,
			Profile:        merged,
		})
		if err != nil {
			return nil, err
		}
		return reconcileOutcome{userID: userID, isNew: isNew}, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			// El store detectó el perfil incompleto dentro de la tx
			// (carrera contra un borrado de usuario, por ejemplo).
			return Subject{}, ErrIncompleteProfile
		}
		log.Error("reconcile failed", logger.Err(err))
		return Subject{}, err
	}
	out := v.(reconcileOutcome)

	if out.isNew {
		log.Info("account created from social identity", logger.Subject(out.userID))
	} else {
		log.Info("social identity linked to existing account", logger.Subject(out.userID))
		if r.deps.Notifier != nil && ext.Email != "" {
			r.deps.Notifier.NotifyProviderLinked(ctx, ext.Email, ext.Provider)
		}
	}
	return Subject{UserID: out.userID, IsNew: out.isNew}, nil
}

// mergedProfile combina el perfil del caller con los hints del provider.
// Los hints solo rellenan vacíos.
func (r *Reconciler) mergedProfile(ext ExternalIdentity, profile *repository.Profile) repository.Profile {
	var p repository.Profile
	if profile != nil {
		p = *profile
	}
	if p.LastName == "" {
		p.LastName = ext.FamilyNameHint
	}
	return p
}

// missingFields lista los campos obligatorios ausentes.
// FirstName siempre; Phone según la superficie que llama.
func (r *Reconciler) missingFields(p repository.Profile) []string {
	var missing []string
	if strings.TrimSpace(p.FirstName) == "" {
		missing = append(missing, "first_name")
	}
	if r.deps.RequirePhone && strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "phone")
	}
	return missing
}
