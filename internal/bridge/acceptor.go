package bridge

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/hellobridge/internal/hydra"
	"github.com/dropDatabas3/hellobridge/internal/observability/logger"
)

// AdminAPI es la porción del admin API del Authorization Server que el
// acceptor consume. *hydra.Client la implementa.
type AdminAPI interface {
	AcceptLoginRequest(ctx context.Context, challenge string, in hydra.AcceptLoginInput) (*hydra.CompletedRequest, error)
	RejectLoginRequest(ctx context.Context, challenge string, in hydra.RejectLoginInput) (*hydra.CompletedRequest, error)
}

// AcceptorConfig controla los parámetros de la sesión remota.
type AcceptorConfig struct {
	// Remember pide al Authorization Server recordar la sesión del browser.
	Remember bool
	// RememberFor es la vida de esa sesión en segundos.
	RememberFor int
}

// Acceptor consuma challenges contra el admin API. Cada challenge se acepta
// a lo sumo una vez: los challenges son de un solo uso y el acceptor nunca
// reintenta por su cuenta.
type Acceptor struct {
	admin AdminAPI
	cfg   AcceptorConfig
}

// NewAcceptor crea un Acceptor.
func NewAcceptor(admin AdminAPI, cfg AcceptorConfig) *Acceptor {
	return &Acceptor{admin: admin, cfg: cfg}
}

// Accept consuma el challenge a nombre de subject. El subject tiene que
// estar ya autenticado: un subject vacío es un bug del caller y se corta
// acá antes de gastar el challenge.
func (a *Acceptor) Accept(ctx context.Context, challenge Challenge, subject Subject) (AcceptanceResult, error) {
	if subject.UserID == "" {
		return AcceptanceResult{}, ErrUnauthenticated
	}
	if challenge == "" {
		return AcceptanceResult{}, fmt.Errorf("%w: empty challenge", ErrUpstreamRejected)
	}

	completed, err := a.admin.AcceptLoginRequest(ctx, string(challenge), hydra.AcceptLoginInput{
		Subject:     subject.UserID,
		Remember:    a.cfg.Remember,
		RememberFor: a.cfg.RememberFor,
	})
	if err != nil {
		logger.From(ctx).Error("login request rejected by upstream",
			logger.Layer("service"),
			logger.Component("bridge.acceptor"),
			logger.Subject(subject.UserID),
			logger.Err(err),
		)
		return AcceptanceResult{}, fmt.Errorf("%w: %w", ErrUpstreamRejected, err)
	}
	return AcceptanceResult{RedirectURL: completed.RedirectTo}, nil
}

// Reject informa al Authorization Server que el login no va a completarse,
// por ejemplo porque el provider negó el consentimiento. También consume
// el challenge.
func (a *Acceptor) Reject(ctx context.Context, challenge Challenge, errCode, description string) (AcceptanceResult, error) {
	if challenge == "" {
		return AcceptanceResult{}, fmt.Errorf("%w: empty challenge", ErrUpstreamRejected)
	}
	completed, err := a.admin.RejectLoginRequest(ctx, string(challenge), hydra.RejectLoginInput{
		Error:            errCode,
		ErrorDescription: description,
	})
	if err != nil {
		return AcceptanceResult{}, fmt.Errorf("%w: %w", ErrUpstreamRejected, err)
	}
	return AcceptanceResult{RedirectURL: completed.RedirectTo}, nil
}
