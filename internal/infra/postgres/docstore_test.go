package postgres

import (
	"context"
	"strings"
	"testing"

	"bookfair-service/internal/docstore"
)

func TestValidField(t *testing.T) {
	for _, field := range []string{"quiz_id", "is_active", "percentage", "score", "created_at"} {
		if !validField(field) {
			t.Fatalf("expected %q to be accepted", field)
		}
	}
	for _, field := range []string{"", "data' = ''; DROP TABLE documents; --", "Field", "a b", "a-b"} {
		if validField(field) {
			t.Fatalf("expected %q to be rejected", field)
		}
	}
}

func TestListRejectsInvalidFields(t *testing.T) {
	// The field check runs while building the query, before the pool is used.
	store := NewDocStore(nil)
	ctx := context.Background()

	_, err := store.List(ctx, docstore.Quizzes, docstore.Equal("bad' --", "x"))
	if err == nil || !strings.Contains(err.Error(), "invalid filter field") {
		t.Fatalf("expected invalid filter field error, got %v", err)
	}
	_, err = store.List(ctx, docstore.Attempts, docstore.OrderDesc("bad' --"))
	if err == nil || !strings.Contains(err.Error(), "invalid order field") {
		t.Fatalf("expected invalid order field error, got %v", err)
	}
}
