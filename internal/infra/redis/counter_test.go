package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestCounterNextIsMonotonic(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	counter := NewCounter(newClient(mr), "event:registrations")
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := counter.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestCounterSeedDoesNotRewind(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	counter := NewCounter(newClient(mr), "event:registrations")
	ctx := context.Background()

	if err := counter.Seed(ctx, 50); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got, _ := counter.Next(ctx); got != 51 {
		t.Fatalf("expected 51, got %d", got)
	}

	// The counter exists now, so a second seed is a no-op.
	if err := counter.Seed(ctx, 10); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got, _ := counter.Next(ctx); got != 52 {
		t.Fatalf("expected 52, got %d", got)
	}
}
