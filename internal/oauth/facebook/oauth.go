// Package facebook implementa OAuth 2.0 con Facebook.
// Facebook no emite id_token en este flujo: después del code exchange hay que
// pedir el perfil al Graph API con el access token.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	authEndpoint  = "https://www.facebook.com/v17.0/dialog/oauth"
	tokenEndpoint = "https://graph.facebook.com/v17.0/oauth/access_token"
	meEndpoint    = "https://graph.facebook.com/v17.0/me"
)

// OAuth es el cliente de Facebook.
type OAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	http *http.Client
}

// New crea el cliente. Scopes default: email public_profile.
func New(clientID, clientSecret, redirectURL string, scopes []string) *OAuth {
	if len(scopes) == 0 {
		scopes = []string{"email", "public_profile"}
	}
	return &OAuth{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL construye la URL del diálogo de consent.
// Facebook no soporta nonce; va embebido en nuestro state firmado.
func (f *OAuth) AuthURL(ctx context.Context, state, nonce string) (string, error) {
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("client_id", f.ClientID)
	q.Set("redirect_uri", f.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(f.Scopes, ","))
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// TokenResponse es la respuesta del token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode intercambia el authorization code por un access token.
func (f *OAuth) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	q := url.Values{}
	q.Set("client_id", f.ClientID)
	q.Set("client_secret", f.ClientSecret)
	q.Set("redirect_uri", f.RedirectURL)
	q.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, "GET", tokenEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var b struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		return nil, fmt.Errorf("facebook token http %d: %s (%s)", resp.StatusCode, b.Error.Message, b.Error.Type)
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("no access_token in response")
	}
	return &tr, nil
}

// UserInfo es el perfil que devuelve el Graph API.
// Email puede venir vacío si la cuenta no tiene email confirmado.
type UserInfo struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
}

// GetUserInfo pide el perfil al Graph API con el access token.
func (f *OAuth) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	q := url.Values{}
	q.Set("fields", "id,email,first_name,last_name,name")
	q.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, "GET", meEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("facebook me http %d", resp.StatusCode)
	}

	var ui UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if ui.ID == "" {
		return nil, fmt.Errorf("no id in user info")
	}
	return &ui, nil
}
