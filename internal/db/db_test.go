package db

import (
	"context"
	"strings"
	"testing"

	"voyager-api/internal/config"
)

func TestNewPoolRejectsMalformedURL(t *testing.T) {
	_, err := NewPool(context.Background(), &config.Config{DatabaseURL: "://not-a-url"})
	if err == nil {
		t.Fatalf("expected error for malformed database url")
	}
	if !strings.Contains(err.Error(), "parse database url") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
