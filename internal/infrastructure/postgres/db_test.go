package postgres

import (
	"context"
	"testing"
	"time"
)

func TestNewPoolInvalidURL(t *testing.T) {
	if _, err := NewPool(context.Background(), "not-a-url", 1, 0, time.Second); err == nil {
		t.Fatalf("expected error when parsing invalid URL")
	}
}
