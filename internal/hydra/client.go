// Package hydra implementa el cliente del admin API del Authorization Server
// (ORY-Hydra compatible) para aceptar o rechazar login requests.
package hydra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client habla con el admin API. No reintenta nunca: los challenges son de un
// solo uso y un retry después de una falla parcial arriesga doble consumo.
type Client struct {
	AdminURL string

	// Observe recibe la latencia de cada operación, si está seteado.
	Observe func(operation string, d time.Duration)

	http *http.Client
}

// New crea un cliente con timeout razonable para un hop interno.
func New(adminURL string) *Client {
	return &Client{
		AdminURL: strings.TrimRight(adminURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SetTimeout ajusta el timeout de las llamadas al admin API.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.http.Timeout = d
	}
}

// UpstreamError es una respuesta no-2xx del admin API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("hydra: upstream status %d: %s", e.Status, e.Body)
}

// LoginRequest es la info del challenge pendiente.
// El happy path del bridge no la necesita; queda como punto de extensión
// (mostrar el client que originó el request, skip por sesión recordada, etc).
type LoginRequest struct {
	Challenge      string   `json:"challenge"`
	Subject        string   `json:"subject"`
	Skip           bool     `json:"skip"`
	RequestURL     string   `json:"request_url"`
	RequestedScope []string `json:"requested_scope"`
	Client         struct {
		ClientID string `json:"client_id"`
	} `json:"client"`
}

// AcceptLoginInput son los parámetros del accept.
type AcceptLoginInput struct {
	Subject     string `json:"subject"`
	Remember    bool   `json:"remember"`
	RememberFor int    `json:"remember_for"` // segundos
}

// CompletedRequest es la respuesta de accept/reject.
type CompletedRequest struct {
	RedirectTo string `json:"redirect_to"`
}

// RejectLoginInput describe por qué se rechaza el login request.
type RejectLoginInput struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// GetLoginRequest consulta el estado de un challenge pendiente.
func (c *Client) GetLoginRequest(ctx context.Context, challenge string) (*LoginRequest, error) {
	var lr LoginRequest
	if err := c.do(ctx, http.MethodGet, "/oauth2/auth/requests/login", challenge, nil, &lr); err != nil {
		return nil, err
	}
	return &lr, nil
}

// AcceptLoginRequest acepta el challenge en nombre del subject autenticado y
// retorna la URL a la que el browser debe navegar. El challenge queda
// consumido: el server rechaza repeticiones.
func (c *Client) AcceptLoginRequest(ctx context.Context, challenge string, input AcceptLoginInput) (*CompletedRequest, error) {
	var cr CompletedRequest
	if err := c.do(ctx, http.MethodPut, "/oauth2/auth/requests/login/accept", challenge, input, &cr); err != nil {
		return nil, err
	}
	if cr.RedirectTo == "" {
		return nil, &UpstreamError{Status: http.StatusBadGateway, Body: "missing redirect_to in accept response"}
	}
	return &cr, nil
}

// RejectLoginRequest rechaza el challenge (ej: el usuario canceló el consent).
func (c *Client) RejectLoginRequest(ctx context.Context, challenge string, input RejectLoginInput) (*CompletedRequest, error) {
	var cr CompletedRequest
	if err := c.do(ctx, http.MethodPut, "/oauth2/auth/requests/login/reject", challenge, input, &cr); err != nil {
		return nil, err
	}
	if cr.RedirectTo == "" {
		return nil, &UpstreamError{Status: http.StatusBadGateway, Body: "missing redirect_to in reject response"}
	}
	return &cr, nil
}

func (c *Client) do(ctx context.Context, method, path, challenge string, body, out any) error {
	if c.Observe != nil {
		start := time.Now()
		defer func() { c.Observe(path, time.Since(start)) }()
	}

	u := c.AdminURL + path + "?" + url.Values{"login_challenge": {challenge}}.Encode()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hydra: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		// El body de error va al caller para logging, truncado por si el
		// upstream devuelve HTML gigante.
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Status: resp.StatusCode, Body: "malformed response: " + err.Error()}
	}
	return nil
}
