package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/hellobridge/internal/bridge"
	"github.com/dropDatabas3/hellobridge/internal/domain/repository"
	"github.com/dropDatabas3/hellobridge/internal/observability/logger"
	"github.com/dropDatabas3/hellobridge/internal/security/password"
	tokens "github.com/dropDatabas3/hellobridge/internal/security/token"
	"github.com/dropDatabas3/hellobridge/internal/session"
	"github.com/dropDatabas3/hellobridge/internal/store"
)

// CookieConfig controla la cookie de sesión local.
type CookieConfig struct {
	Name     string
	Domain   string
	SameSite string
	Secure   bool
	TTL      time.Duration
}

// HandlersDeps contiene las dependencias de los handlers.
type HandlersDeps struct {
	Store      store.Store
	Sessions   *session.Store
	Reconciler *bridge.Reconciler
	Flow       *bridge.Flow
	Signer     *StateSigner
	Providers  map[string]SocialProvider

	// CompletionURL es el form donde el browser completa campos faltantes.
	CompletionURL string
	RequirePhone  bool
	Cookie        CookieConfig
}

// Handlers expone los endpoints del bridge.
type Handlers struct {
	deps HandlersDeps
}

// NewHandlers crea los Handlers.
func NewHandlers(deps HandlersDeps) *Handlers {
	if deps.Cookie.Name == "" {
		deps.Cookie.Name = "sid"
	}
	return &Handlers{deps: deps}
}

// ───────────────────── Sign in ─────────────────────

type signInRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	LoginChallenge string `json:"login_challenge"`
}

type completedResponse struct {
	RedirectTo string `json:"redirect_to,omitempty"`
	OK         bool   `json:"ok"`
}

// SignIn autentica con email + password y, si vino un login challenge,
// lo consuma contra el Authorization Server.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	challenge := h.challengeFrom(req.LoginChallenge, r)

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "missing_field", "email y password son requeridos", codeMissingField)
		return
	}

	users := h.deps.Store.Users()
	user, err := users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			WriteError(w, http.StatusUnauthorized, "invalid_credentials", "credenciales inválidas", codeUnauthenticated)
			return
		}
		h.writeInternal(w, r, err)
		return
	}
	if !users.CheckPassword(user.PasswordHash, req.Password) {
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "credenciales inválidas", codeUnauthenticated)
		return
	}

	h.finish(w, r, challenge, bridge.Subject{UserID: user.ID})
}

// ───────────────────── Sign up ─────────────────────

type signUpRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	LoginChallenge string `json:"login_challenge"`
}

// SignUp registra una cuenta local y consuma el challenge si vino uno.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	challenge := h.challengeFrom(req.LoginChallenge, r)

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if strings.TrimSpace(req.FirstName) == "" {
		WriteError(w, http.StatusBadRequest, "missing_field", "El campo 'Primer Nombre' es requerido!", codeMissingField)
		return
	}
	if h.deps.RequirePhone && strings.TrimSpace(req.Phone) == "" {
		WriteError(w, http.StatusBadRequest, "missing_field", "El campo 'Teléfono' es requerido!", codeMissingField)
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "missing_field", "email y password son requeridos", codeMissingField)
		return
	}

	hash, err := password.Hash(password.Default, req.Password)
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}

	user, err := h.deps.Store.Users().Create(r.Context(), repository.CreateUserInput{
		Profile: repository.Profile{
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Phone:     strings.TrimSpace(req.Phone),
		},
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if repository.IsConflict(err) {
			WriteError(w, http.StatusConflict, "email_taken", "la dirección ya está registrada", codeMissingField)
			return
		}
		h.writeInternal(w, r, err)
		return
	}

	h.finish(w, r, challenge, bridge.Subject{UserID: user.ID, IsNew: true})
}

// ───────────────────── Social: start ─────────────────────

// SocialStart arma el state firmado y redirige al provider.
func (h *Handlers) SocialStart(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "provider"))
	provider, ok := h.deps.Providers[name]
	if !ok {
		WriteError(w, http.StatusNotFound, "unknown_provider", "provider no soportado", codeMissingField)
		return
	}
	challenge, _ := bridge.ResolveChallenge(r.URL.Query())

	nonce, err := tokens.GenerateOpaqueToken(16)
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	state, err := h.deps.Signer.SignState(StateClaims{
		Provider:  name,
		Challenge: string(challenge),
		Nonce:     nonce,
	})
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}

	authURL, err := provider.AuthURL(r.Context(), state, nonce)
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// ───────────────────── Social: callback ─────────────────────

// SocialCallback procesa el retorno del provider: valida el state, canjea el
// code, reconcilia la identidad y consuma el challenge. Si faltan campos de
// perfil redirige al form de completar sin mutar nada.
func (h *Handlers) SocialCallback(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "provider"))
	provider, ok := h.deps.Providers[name]
	if !ok {
		WriteError(w, http.StatusNotFound, "unknown_provider", "provider no soportado", codeMissingField)
		return
	}
	q := r.URL.Query()

	claims, err := h.deps.Signer.ParseState(q.Get("state"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_state", "state inválido o vencido", codeMissingField)
		return
	}
	if claims.Provider != name {
		WriteError(w, http.StatusBadRequest, "invalid_state", "state de otro provider", codeMissingField)
		return
	}
	challenge := bridge.Challenge(claims.Challenge)

	// El usuario canceló o el provider negó el acceso: el challenge se
	// rechaza para que el Authorization Server cierre el flujo prolijo.
	if errCode := q.Get("error"); errCode != "" {
		RecordChallenge("rejected")
		res, abortErr := h.deps.Flow.Abort(r.Context(), challenge, "access_denied", "el provider negó el acceso")
		if abortErr == nil && res.RedirectURL != "" {
			http.Redirect(w, r, res.RedirectURL, http.StatusFound)
			return
		}
		WriteError(w, http.StatusForbidden, "provider_denied", "el provider negó el acceso", codeProviderDenied)
		return
	}

	ext, err := provider.Identity(r.Context(), q.Get("code"), claims.Nonce)
	if err != nil {
		logger.From(r.Context()).Warn("provider identity failed",
			logger.Provider(name), logger.Err(err))
		WriteError(w, http.StatusBadGateway, "provider_error", "no se pudo verificar la identidad con el provider", codeProviderDenied)
		return
	}

	subject, err := h.deps.Reconciler.Reconcile(r.Context(), ext, nil)
	if err != nil {
		if bridge.IsIncompleteProfile(err) {
			RecordReconcile(name, "incomplete")
			h.redirectToCompletion(w, r, ext, challenge)
			return
		}
		RecordReconcile(name, "error")
		h.writeBridgeError(w, r, err)
		return
	}
	if subject.IsNew {
		RecordReconcile(name, "created")
	} else {
		RecordReconcile(name, "linked")
	}

	h.finish(w, r, challenge, subject)
}

// redirectToCompletion manda al browser al form de completar perfil con un
// token firmado que preserva la identidad externa ya verificada.
func (h *Handlers) redirectToCompletion(w http.ResponseWriter, r *http.Request, ext bridge.ExternalIdentity, challenge bridge.Challenge) {
	pending, err := h.deps.Signer.SignPending(PendingClaims{
		Provider:       ext.Provider,
		ProviderUserID: ext.ProviderUserID,
		Email:          ext.Email,
		GivenNameHint:  ext.GivenNameHint,
		FamilyNameHint: ext.FamilyNameHint,
		Challenge:      string(challenge),
	})
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}

	u, err := url.Parse(h.deps.CompletionURL)
	if err != nil || h.deps.CompletionURL == "" {
		// Sin form configurado el cliente igual puede completar por API.
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "incomplete_profile",
			"error_code": codeIncompleteProfile,
			"pending":    pending,
		})
		return
	}
	qq := u.Query()
	if challenge != "" {
		qq.Set("login_challenge", string(challenge))
	}
	qq.Set("pending", pending)
	u.RawQuery = qq.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// ───────────────────── Social: complete ─────────────────────

type socialCompleteRequest struct {
	Pending   string `json:"pending"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// SocialComplete recibe los campos de perfil que faltaban y retoma el flujo
// social donde quedó. El token pending evita repetir el round-trip al provider.
func (h *Handlers) SocialComplete(w http.ResponseWriter, r *http.Request) {
	var req socialCompleteRequest
	if !ReadJSON(w, r, &req) {
		return
	}

	claims, err := h.deps.Signer.ParsePending(req.Pending)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "invalid_pending", "token pending inválido o vencido", codeUnauthenticated)
		return
	}

	ext := bridge.ExternalIdentity{
		Provider:       claims.Provider,
		ProviderUserID: claims.ProviderUserID,
		Email:          claims.Email,
		GivenNameHint:  claims.GivenNameHint,
		FamilyNameHint: claims.FamilyNameHint,
	}
	profile := &repository.Profile{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
	}

	subject, err := h.deps.Reconciler.Reconcile(r.Context(), ext, profile)
	if err != nil {
		if bridge.IsIncompleteProfile(err) {
			RecordReconcile(claims.Provider, "incomplete")
			WriteError(w, http.StatusUnprocessableEntity, "incomplete_profile", "El campo 'Primer Nombre' es requerido!", codeIncompleteProfile)
			return
		}
		RecordReconcile(claims.Provider, "error")
		h.writeBridgeError(w, r, err)
		return
	}
	if subject.IsNew {
		RecordReconcile(claims.Provider, "created")
	} else {
		RecordReconcile(claims.Provider, "linked")
	}

	h.finish(w, r, bridge.Challenge(claims.Challenge), subject)
}

// ───────────────────── Health ─────────────────────

// Healthz responde 200 siempre que el proceso esté vivo.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz verifica las dependencias (storage).
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Store.Ping(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "not_ready", "storage no disponible", codeInternal)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ───────────────────── Helpers ─────────────────────

// challengeFrom toma el challenge del body si vino, si no de la query.
func (h *Handlers) challengeFrom(body string, r *http.Request) bridge.Challenge {
	if c := strings.TrimSpace(body); c != "" {
		return bridge.Challenge(c)
	}
	c, _ := bridge.ResolveChallenge(r.URL.Query())
	return c
}

// finish crea la sesión local, consuma el challenge si hay, y responde.
// El orden importa: la cuenta ya quedó consistente antes de llegar acá.
func (h *Handlers) finish(w http.ResponseWriter, r *http.Request, challenge bridge.Challenge, subject bridge.Subject) {
	sessionID, err := h.deps.Sessions.Create(r.Context(), subject.UserID)
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}

	res, err := h.deps.Flow.Complete(r.Context(), challenge, subject, sessionID)
	if err != nil {
		RecordChallenge("upstream_error")
		h.writeBridgeError(w, r, err)
		return
	}

	if res.RedirectURL != "" {
		RecordChallenge("accepted")
		// La sesión local ya fue destruida por el flow.
		if isBrowserNavigation(r) {
			http.Redirect(w, r, res.RedirectURL, http.StatusFound)
			return
		}
		WriteJSON(w, http.StatusOK, completedResponse{RedirectTo: res.RedirectURL, OK: true})
		return
	}

	// Sin challenge: autenticación local pura, la sesión queda viva.
	h.setSessionCookie(w, sessionID)
	WriteJSON(w, http.StatusOK, completedResponse{OK: true})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, sessionID string) {
	ss := http.SameSiteLaxMode
	switch strings.ToLower(h.deps.Cookie.SameSite) {
	case "strict":
		ss = http.SameSiteStrictMode
	case "none":
		ss = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.deps.Cookie.Name,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.deps.Cookie.Domain,
		MaxAge:   int(h.deps.Cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.deps.Cookie.Secure,
		SameSite: ss,
	})
}

// isBrowserNavigation decide si conviene un 302 (navegación) o JSON (fetch).
func isBrowserNavigation(r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}

func (h *Handlers) writeBridgeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, bridge.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, "unauthenticated", "credenciales inválidas", codeUnauthenticated)
	case errors.Is(err, bridge.ErrProviderDenied):
		WriteError(w, http.StatusForbidden, "provider_denied", "el provider negó el acceso", codeProviderDenied)
	case errors.Is(err, bridge.ErrUpstreamRejected):
		WriteError(w, http.StatusBadGateway, "upstream_rejected", "el Authorization Server rechazó el login", codeUpstreamRejected)
	case repository.IsConflict(err):
		WriteError(w, http.StatusConflict, "conflict", "conflicto con el estado actual", codeMissingField)
	default:
		h.writeInternal(w, r, err)
	}
}

func (h *Handlers) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	logger.From(r.Context()).Error("handler error", logger.Err(err))
	WriteError(w, http.StatusInternalServerError, "internal_error", "error interno", codeInternal)
}
