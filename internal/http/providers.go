package http

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/hellobridge/internal/bridge"
	"github.com/dropDatabas3/hellobridge/internal/oauth/facebook"
	"github.com/dropDatabas3/hellobridge/internal/oauth/google"
)

// SocialProvider es lo que los handlers necesitan de un provider: construir
// la URL de autorización y convertir un code en una identidad verificada.
type SocialProvider interface {
	AuthURL(ctx context.Context, state, nonce string) (string, error)
	Identity(ctx context.Context, code, nonce string) (bridge.ExternalIdentity, error)
}

// GoogleProvider adapta el cliente OIDC de Google a SocialProvider.
type GoogleProvider struct {
	Client *google.OIDC
}

func (p *GoogleProvider) AuthURL(ctx context.Context, state, nonce string) (string, error) {
	return p.Client.AuthURL(ctx, state, nonce)
}

func (p *GoogleProvider) Identity(ctx context.Context, code, nonce string) (bridge.ExternalIdentity, error) {
	tr, err := p.Client.ExchangeCode(ctx, code)
	if err != nil {
		return bridge.ExternalIdentity{}, fmt.Errorf("google exchange: %w", err)
	}
	claims, err := p.Client.VerifyIDToken(ctx, tr.IDToken, nonce)
	if err != nil {
		return bridge.ExternalIdentity{}, fmt.Errorf("google id_token: %w", err)
	}
	return checkedIdentity(bridge.ExternalIdentity{
		Provider:       "google",
		ProviderUserID: claims.Sub,
		Email:          strings.ToLower(claims.Email),
		GivenNameHint:  claims.GivenName,
		FamilyNameHint: claims.FamilyName,
	})
}

// FacebookProvider adapta el cliente Graph de Facebook a SocialProvider.
// Facebook no emite id_token en este flujo: la identidad sale de /me.
type FacebookProvider struct {
	Client *facebook.OAuth
}

func (p *FacebookProvider) AuthURL(ctx context.Context, state, nonce string) (string, error) {
	return p.Client.AuthURL(ctx, state, nonce)
}

func (p *FacebookProvider) Identity(ctx context.Context, code, _ string) (bridge.ExternalIdentity, error) {
	tr, err := p.Client.ExchangeCode(ctx, code)
	if err != nil {
		return bridge.ExternalIdentity{}, fmt.Errorf("facebook exchange: %w", err)
	}
	info, err := p.Client.GetUserInfo(ctx, tr.AccessToken)
	if err != nil {
		return bridge.ExternalIdentity{}, fmt.Errorf("facebook userinfo: %w", err)
	}
	return checkedIdentity(bridge.ExternalIdentity{
		Provider:       "facebook",
		ProviderUserID: info.ID,
		Email:          strings.ToLower(info.Email),
		GivenNameHint:  info.FirstName,
		FamilyNameHint: info.LastName,
	})
}

// checkedIdentity rechaza identidades sin email: el reconciler matchea
// cuentas por dirección y una vacía no identifica a nadie. Facebook puede
// devolver perfiles sin email confirmado; esos logins no pueden avanzar.
func checkedIdentity(ext bridge.ExternalIdentity) (bridge.ExternalIdentity, error) {
	if strings.TrimSpace(ext.Email) == "" {
		return bridge.ExternalIdentity{}, fmt.Errorf("%s: la cuenta no tiene email confirmado", ext.Provider)
	}
	return ext, nil
}
