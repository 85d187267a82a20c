package bridge

import (
	"context"

	"github.com/dropDatabas3/hellobridge/internal/observability/logger"
)

// Flow encadena las etapas finales del login: aceptar el challenge y
// cerrar la sesión local. La reconciliación corre antes y por separado,
// de modo que un accept nunca deja la cuenta a medio vincular.
type Flow struct {
	acceptor   *Acceptor
	terminator *Terminator
}

// NewFlow crea un Flow.
func NewFlow(acceptor *Acceptor, terminator *Terminator) *Flow {
	return &Flow{acceptor: acceptor, terminator: terminator}
}

// Complete cierra el flujo para un subject ya reconciliado.
//
// Sin challenge no hay nada que consumar: la autenticación local vale por
// sí sola y el caller decide a dónde mandar al browser. La sesión local
// queda viva en ese caso.
//
// Con challenge, el orden es accept primero y terminar después; si el
// upstream rechaza, la sesión local sobrevive y el error sube al caller.
func (f *Flow) Complete(ctx context.Context, challenge Challenge, subject Subject, sessionID string) (AcceptanceResult, error) {
	if challenge == "" {
		logger.From(ctx).Debug("no challenge present, skipping accept",
			logger.Layer("service"),
			logger.Component("bridge.flow"),
			logger.Subject(subject.UserID),
		)
		return AcceptanceResult{}, nil
	}

	res, err := f.acceptor.Accept(ctx, challenge, subject)
	if err != nil {
		return AcceptanceResult{}, err
	}
	f.terminator.Terminate(ctx, sessionID)

	logger.From(ctx).Info("login challenge accepted",
		logger.Layer("service"),
		logger.Component("bridge.flow"),
		logger.Subject(subject.UserID),
		logger.HasChallenge(true),
	)
	return res, nil
}

// Abort rechaza el challenge cuando el login no puede completarse, por
// ejemplo un deny del provider. Sin challenge es un no-op.
func (f *Flow) Abort(ctx context.Context, challenge Challenge, errCode, description string) (AcceptanceResult, error) {
	if challenge == "" {
		return AcceptanceResult{}, nil
	}
	return f.acceptor.Reject(ctx, challenge, errCode, description)
}
