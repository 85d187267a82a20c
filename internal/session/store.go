// Package session maneja la sesión local transitoria del bridge.
//
// La sesión existe solo entre la autenticación y la aceptación del login
// challenge: el Authorization Server es el único dueño de sesiones una vez
// aceptado el challenge, así que el bridge la destruye apenas termina.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellobridge/internal/cache"
	tokens "github.com/dropDatabas3/hellobridge/internal/security/token"
)

// Payload es el contenido de una sesión local.
type Payload struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store crea, consulta y destruye sesiones locales sobre el cache.
type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

// New crea un Store. Si ttl <= 0 usa 15 minutos: la sesión local solo tiene
// que sobrevivir el flujo de login, no una visita completa.
func New(c cache.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Store{cache: c, ttl: ttl}
}

func key(sessionID string) string {
	// Se guarda el hash del ID, nunca el ID en claro.
	return "sid:" + tokens.SHA256Base64URL(sessionID)
}

// Create genera una sesión para el usuario y retorna el ID opaco.
func (s *Store) Create(ctx context.Context, userID string) (string, error) {
	sessionID, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", fmt.Errorf("session: generate id: %w", err)
	}
	payload := Payload{
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	b, _ := json.Marshal(payload)
	s.cache.Set(key(sessionID), b, s.ttl)
	return sessionID, nil
}

// Get retorna el payload de una sesión vigente, o false si no existe/expiró.
func (s *Store) Get(ctx context.Context, sessionID string) (*Payload, bool) {
	b, ok := s.cache.Get(key(sessionID))
	if !ok {
		return nil, false
	}
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, false
	}
	if time.Now().After(p.ExpiresAt) {
		s.cache.Delete(key(sessionID))
		return nil, false
	}
	return &p, true
}

// Delete destruye la sesión. Es idempotente.
func (s *Store) Delete(ctx context.Context, sessionID string) {
	s.cache.Delete(key(sessionID))
}
