package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/hellobridge/internal/observability/logger"
)

const linkedHTML = `<html><body>
<p>Hola,</p>
<p>Acabamos de vincular un nuevo método de ingreso (<b>%s</b>) a tu cuenta.
A partir de ahora podés iniciar sesión con él además de tus métodos actuales.</p>
<p>Si no fuiste vos, contactá a soporte.</p>
</body></html>`

const linkedText = `Hola,

Acabamos de vincular un nuevo método de ingreso (%s) a tu cuenta.
A partir de ahora podés iniciar sesión con él además de tus métodos actuales.

Si no fuiste vos, contactá a soporte.`

// Notifier manda avisos de seguridad de la cuenta. Envía en una goroutine
// y nunca propaga errores: el login no depende del SMTP.
type Notifier struct {
	sender Sender
}

// NewNotifier crea un Notifier. sender puede ser nil (notifier apagado).
func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// NotifyProviderLinked avisa al usuario que provider quedó vinculado.
func (n *Notifier) NotifyProviderLinked(ctx context.Context, to, provider string) {
	if n == nil || n.sender == nil || to == "" {
		return
	}
	log := logger.From(ctx).With(
		logger.Component("email.notifier"),
		logger.Provider(provider),
	)
	display := strings.Title(strings.ToLower(provider)) //nolint:staticcheck // nombres ASCII de providers
	go func() {
		if err := n.sender.Send(to,
			"Nuevo método de ingreso vinculado",
			fmt.Sprintf(linkedHTML, display),
			fmt.Sprintf(linkedText, display),
		); err != nil {
			log.Warn("provider linked notification failed", logger.Err(err))
		}
	}()
}
