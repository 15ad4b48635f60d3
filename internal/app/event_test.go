package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"bookfair-service/internal/app"
	"bookfair-service/internal/docstore"
	"bookfair-service/internal/domain"
	"bookfair-service/internal/infra/memory"
)

func TestRegisterValidation(t *testing.T) {
	svc := app.NewEventService(memory.NewDocStore(), memory.NewCounter(), 0)

	_, err := svc.Register(context.Background(), "Ada", "", "ada@example.com")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisterFreeBookThreshold(t *testing.T) {
	svc := app.NewEventService(memory.NewDocStore(), memory.NewCounter(), 0)
	ctx := context.Background()

	for i := 1; i <= app.DefaultFreeBookLimit; i++ {
		result, err := svc.Register(ctx, fmt.Sprintf("User %d", i), "+100", "u@example.com")
		if err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
		if !result.GetsFreeBook {
			t.Fatalf("registrant %d should get a free book", i)
		}
		if !strings.Contains(result.Message, "Congratulations") {
			t.Fatalf("registrant %d got wrong message: %s", i, result.Message)
		}
	}

	result, err := svc.Register(ctx, "Late", "+100", "late@example.com")
	if err != nil {
		t.Fatalf("register 51: %v", err)
	}
	if result.GetsFreeBook {
		t.Fatal("registrant 51 must not get a free book")
	}
	if !strings.Contains(result.Message, "first 50 free books have been claimed") {
		t.Fatalf("registrant 51 got wrong message: %s", result.Message)
	}
}

func TestRegisterMessagesUseConfiguredLimit(t *testing.T) {
	svc := app.NewEventService(memory.NewDocStore(), memory.NewCounter(), 3)
	ctx := context.Background()

	first, err := svc.Register(ctx, "First", "+1", "a@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(first.Message, "first 3 people") {
		t.Fatalf("unexpected message: %s", first.Message)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Register(ctx, "Next", "+1", "b@example.com"); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	late, err := svc.Register(ctx, "Late", "+1", "c@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(late.Message, "first 3 free books") {
		t.Fatalf("unexpected message: %s", late.Message)
	}
}

func TestRegisterFlagSticksAfterDeletion(t *testing.T) {
	store := memory.NewDocStore()
	svc := app.NewEventService(store, memory.NewCounter(), 2)
	ctx := context.Background()

	first, err := svc.Register(ctx, "First", "+1", "a@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "Second", "+2", "b@example.com"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Deleting an early registration does not reopen the slot: the decision
	// comes from the counter, not from re-counting rows.
	if err := store.Delete(ctx, docstore.Events, first.Registration.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	third, err := svc.Register(ctx, "Third", "+3", "c@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if third.GetsFreeBook {
		t.Fatal("slot must not reopen after a deletion")
	}
}

func TestSeedCounterAlignsWithExistingRows(t *testing.T) {
	store := memory.NewDocStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, docstore.Events, domain.EventRegistration{Name: "n", WhatsApp: "+1", Email: "e@example.com", GetsFreeBook: true}); err != nil {
			t.Fatalf("seed row: %v", err)
		}
	}

	svc := app.NewEventService(store, memory.NewCounter(), 4)
	if err := svc.SeedCounter(ctx); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	fourth, err := svc.Register(ctx, "Fourth", "+4", "d@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !fourth.GetsFreeBook {
		t.Fatal("registrant 4 of limit 4 should get a free book")
	}
	fifth, err := svc.Register(ctx, "Fifth", "+5", "e@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if fifth.GetsFreeBook {
		t.Fatal("registrant 5 of limit 4 must not get a free book")
	}
}

func TestListRegistrationsOldestFirst(t *testing.T) {
	svc := app.NewEventService(memory.NewDocStore(), memory.NewCounter(), 0)
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		if _, err := svc.Register(ctx, name, "+1", "e@example.com"); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	registrations, err := svc.ListRegistrations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(registrations) != 3 {
		t.Fatalf("expected 3 registrations, got %d", len(registrations))
	}
	if registrations[0].Name != "first" || registrations[2].Name != "third" {
		t.Fatalf("unexpected order: %+v", registrations)
	}
}
