package service

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryPendingStorePutGetDelete(t *testing.T) {
	store := NewMemoryPendingStore()

	reg := PendingRegistration{
		Code:         "482913",
		ExpiresAt:    time.Now().UTC().Add(5 * time.Minute),
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
	}
	if err := store.Put("alice@example.com", reg); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.Get("alice@example.com")
	if err != nil || !ok {
		t.Fatalf("expected entry, ok=%v err=%v", ok, err)
	}
	if got.Code != "482913" || got.Name != "Alice" {
		t.Fatalf("unexpected entry: %+v", got)
	}

	if err := store.Delete("alice@example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get("alice@example.com"); ok {
		t.Fatalf("expected entry deleted")
	}
}

func TestMemoryPendingStoreOverwrite(t *testing.T) {
	store := NewMemoryPendingStore()
	first := PendingRegistration{Code: "111111", Email: "a@example.com"}
	second := PendingRegistration{Code: "222222", Email: "a@example.com"}

	_ = store.Put("a@example.com", first)
	_ = store.Put("a@example.com", second)

	got, ok, _ := store.Get("a@example.com")
	if !ok || got.Code != "222222" {
		t.Fatalf("expected last write to win, got %+v", got)
	}
}

func TestMemoryPendingStoreIgnoresEmptyKey(t *testing.T) {
	store := NewMemoryPendingStore()
	if err := store.Put("", PendingRegistration{Code: "111111"}); err != nil {
		t.Fatalf("put empty key: %v", err)
	}
	if _, ok, _ := store.Get(""); ok {
		t.Fatalf("expected no entry for empty key")
	}
}

// Escrituras concurrentes sobre la misma clave quedan linearizadas: la
// entrada final siempre es un par codigo/expiracion coherente, nunca una
// mezcla de dos escrituras.
func TestMemoryPendingStoreConcurrentWritesStayCoherent(t *testing.T) {
	store := NewMemoryPendingStore()
	const writers = 16

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			code := fmt.Sprintf("%06d", n)
			_ = store.Put("race@example.com", PendingRegistration{
				Code:      code,
				Name:      code,
				Email:     "race@example.com",
				ExpiresAt: time.Now().UTC().Add(5 * time.Minute),
			})
		}(i)
	}
	wg.Wait()

	got, ok, _ := store.Get("race@example.com")
	if !ok {
		t.Fatalf("expected an entry")
	}
	if got.Code != got.Name {
		t.Fatalf("interleaved entry detected: code=%q name=%q", got.Code, got.Name)
	}
}
