package bridge

import "errors"

var (
	// ErrUnauthenticated: se intentó aceptar un challenge sin subject
	// autenticado. Fatal para el request.
	ErrUnauthenticated = errors.New("no authenticated subject")

	// ErrIncompleteProfile: falta algún campo obligatorio de perfil para
	// crear la cuenta. No es una falla dura: el caller debe pedir los
	// campos y reintentar la reconciliación. Nada fue mutado.
	ErrIncompleteProfile = errors.New("profile incomplete")

	// ErrProviderDenied: el usuario canceló o negó el consent en el
	// provider. Se presenta como resultado neutro, sin retry automático.
	ErrProviderDenied = errors.New("provider sign-in cancelled")

	// ErrUpstreamRejected: el Authorization Server rechazó el accept o la
	// red falló. El challenge debe pedirse de nuevo: no hay retry porque
	// los challenges son de un solo uso.
	ErrUpstreamRejected = errors.New("authorization server rejected")
)

// IsIncompleteProfile verifica si el error es la rama de perfil incompleto.
func IsIncompleteProfile(err error) bool {
	return errors.Is(err, ErrIncompleteProfile)
}
