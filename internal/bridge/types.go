package bridge

import (
	"net/url"
	"strings"
)

// Challenge es el login challenge opaco emitido por el Authorization Server.
// Es de un solo uso y nunca se persiste ni se loguea: viaja por la pipeline
// como estado del request.
type Challenge string

// ResolveChallenge extrae el challenge de los query params si está presente.
// Es un parse puro: no consulta al Authorization Server.
//
// La ausencia de challenge no es un error: señala un flujo no delegado
// (ej: un registro directo sin client externo esperando autenticación) y
// las etapas posteriores saltean el accept.
func ResolveChallenge(params url.Values) (Challenge, bool) {
	v := strings.TrimSpace(params.Get("login_challenge"))
	return Challenge(v), v != ""
}

// Subject es el resultado de una autenticación exitosa.
// Vive lo que dura el request; nunca se cachea.
type Subject struct {
	UserID string
	IsNew  bool
}

// ExternalIdentity es la identidad verificada que devuelve un provider
// social. Los hints de nombre son opcionales: solo rellenan campos vacíos,
// nunca pisan datos que el usuario cargó a mano.
type ExternalIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	GivenNameHint  string
	FamilyNameHint string
}

// AcceptanceResult es el valor terminal de un flujo exitoso.
// RedirectURL queda vacía cuando no había challenge (flujo no delegado).
type AcceptanceResult struct {
	RedirectURL string
}
