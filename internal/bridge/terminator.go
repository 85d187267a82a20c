package bridge

import (
	"context"

	"github.com/dropDatabas3/hellobridge/internal/observability/logger"
	"github.com/dropDatabas3/hellobridge/internal/session"
)

// Terminator cierra la sesión local del bridge una vez que el control del
// login pasó al Authorization Server. La sesión local es un andamio del
// flujo, no el login del usuario: queda sin uso después del accept.
type Terminator struct {
	sessions *session.Store
}

// NewTerminator crea un Terminator. sessions puede ser nil si el bridge
// corre sin sesiones locales; Terminate es entonces un no-op.
func NewTerminator(sessions *session.Store) *Terminator {
	return &Terminator{sessions: sessions}
}

// Terminate borra la sesión local. Best-effort: el redirect al Authorization
// Server ya está en mano, así que un fallo no interrumpe el flujo.
func (t *Terminator) Terminate(ctx context.Context, sessionID string) {
	if t.sessions == nil || sessionID == "" {
		return
	}
	t.sessions.Delete(ctx, sessionID)
	logger.From(ctx).Debug("local session destroyed",
		logger.Layer("service"),
		logger.Component("bridge.terminator"),
	)
}
