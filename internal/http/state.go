package http

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Audiencias de los tokens firmados del flujo social.
const (
	// stateAudience viaja en el parámetro state del round-trip al provider.
	stateAudience = "social-state"
	// pendingAudience viaja al form de completar perfil cuando faltan campos.
	pendingAudience = "social-pending"
)

// StateClaims es lo que el bridge necesita recordar entre start y callback.
type StateClaims struct {
	Provider  string
	Challenge string
	Nonce     string
}

// PendingClaims es la identidad externa ya verificada, en espera de los
// campos de perfil que el browser todavía no entregó.
type PendingClaims struct {
	Provider       string
	ProviderUserID string
	Email          string
	GivenNameHint  string
	FamilyNameHint string
	Challenge      string
}

// Errores de validación de tokens de estado.
var (
	ErrStateInvalid = errors.New("invalid state token")
	ErrStateExpired = errors.New("state token expired")
)

// StateSigner firma y valida los tokens de estado del flujo social con HS256.
// El secreto es compartido solo entre instancias del bridge: el token nunca
// se interpreta fuera del servicio.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewStateSigner crea un StateSigner. ttl acota la ventana del round-trip.
func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{secret: []byte(secret), ttl: ttl}
}

// SignState firma el state del round-trip al provider.
func (s *StateSigner) SignState(c StateClaims) (string, error) {
	now := time.Now().UTC()
	claims := jwtv5.MapClaims{
		"aud":      stateAudience,
		"exp":      now.Add(s.ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"provider": c.Provider,
		"nonce":    c.Nonce,
	}
	if c.Challenge != "" {
		claims["chal"] = c.Challenge
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseState valida el state devuelto por el provider.
func (s *StateSigner) ParseState(tokenString string) (*StateClaims, error) {
	m, err := s.parse(tokenString, stateAudience)
	if err != nil {
		return nil, err
	}
	return &StateClaims{
		Provider:  getString(m, "provider"),
		Challenge: getString(m, "chal"),
		Nonce:     getString(m, "nonce"),
	}, nil
}

// SignPending firma la identidad verificada pendiente de perfil.
func (s *StateSigner) SignPending(c PendingClaims) (string, error) {
	now := time.Now().UTC()
	claims := jwtv5.MapClaims{
		"aud":      pendingAudience,
		"exp":      now.Add(s.ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"provider": c.Provider,
		"sub":      c.ProviderUserID,
		"email":    c.Email,
	}
	if c.GivenNameHint != "" {
		claims["gn"] = c.GivenNameHint
	}
	if c.FamilyNameHint != "" {
		claims["fn"] = c.FamilyNameHint
	}
	if c.Challenge != "" {
		claims["chal"] = c.Challenge
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParsePending valida el token del form de completar perfil.
func (s *StateSigner) ParsePending(tokenString string) (*PendingClaims, error) {
	m, err := s.parse(tokenString, pendingAudience)
	if err != nil {
		return nil, err
	}
	return &PendingClaims{
		Provider:       getString(m, "provider"),
		ProviderUserID: getString(m, "sub"),
		Email:          getString(m, "email"),
		GivenNameHint:  getString(m, "gn"),
		FamilyNameHint: getString(m, "fn"),
		Challenge:      getString(m, "chal"),
	}, nil
}

func (s *StateSigner) parse(tokenString, wantAud string) (jwtv5.MapClaims, error) {
	tk, err := jwtv5.Parse(tokenString,
		func(*jwtv5.Token) (any, error) { return s.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, ErrStateInvalid
	}
	if !tk.Valid {
		return nil, ErrStateInvalid
	}
	m, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrStateInvalid
	}
	if aud, _ := m["aud"].(string); aud != wantAud {
		return nil, ErrStateInvalid
	}
	return m, nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
