package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingRegistration es un registro en curso a la espera de verificar OTP.
// El password ya llega hasheado; el texto plano nunca se guarda.
type PendingRegistration struct {
	Code         string    `json:"code"`
	ExpiresAt    time.Time `json:"expires_at"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
}

// PendingStore guarda registros pendientes por email normalizado.
// Las escrituras son de entrada completa: nunca se mezclan dos pares
// codigo/expiracion distintos.
type PendingStore interface {
	Put(email string, reg PendingRegistration) error
	Get(email string) (PendingRegistration, bool, error)
	Delete(email string) error
}

type memoryPendingStore struct {
	mu    sync.Mutex
	items map[string]PendingRegistration
}

// NewMemoryPendingStore crea un store en memoria con vida del proceso.
func NewMemoryPendingStore() PendingStore {
	return &memoryPendingStore{
		items: make(map[string]PendingRegistration),
	}
}

func (s *memoryPendingStore) Put(email string, reg PendingRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(email) == "" {
		return nil
	}
	s.items[email] = reg
	return nil
}

func (s *memoryPendingStore) Get(email string) (PendingRegistration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.items[email]
	return reg, ok, nil
}

func (s *memoryPendingStore) Delete(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, email)
	return nil
}

// Tope por operacion contra Redis; el flujo de registro no debe colgarse
// porque el store compartido este lento.
const redisOpTimeout = 500 * time.Millisecond

type redisPendingStore struct {
	client *redis.Client
	prefix string
}

// NewRedisPendingStore crea un store respaldado en Redis para despliegues
// con mas de una instancia del API.
func NewRedisPendingStore(client *redis.Client) PendingStore {
	if client == nil {
		return nil
	}
	return &redisPendingStore{
		client: client,
		prefix: "auth:pending:",
	}
}

func (s *redisPendingStore) Put(email string, reg PendingRegistration) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	payload, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	// TTL al doble de la expiracion para poder distinguir "expirado"
	// de "inexistente" en la lectura.
	ttl := 2 * time.Until(reg.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.client.Set(ctx, s.prefix+email, payload, ttl).Err()
}

func (s *redisPendingStore) Get(email string) (PendingRegistration, bool, error) {
	if strings.TrimSpace(email) == "" {
		return PendingRegistration{}, false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	payload, err := s.client.Get(ctx, s.prefix+email).Bytes()
	if err != nil {
		if err == redis.Nil {
			return PendingRegistration{}, false, nil
		}
		return PendingRegistration{}, false, err
	}
	var reg PendingRegistration
	if err := json.Unmarshal(payload, &reg); err != nil {
		return PendingRegistration{}, false, err
	}
	return reg, true, nil
}

func (s *redisPendingStore) Delete(email string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.client.Del(ctx, s.prefix+email).Err()
}
