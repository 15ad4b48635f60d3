package app

import (
	"context"
	"fmt"

	"bookfair-service/internal/docstore"
	"bookfair-service/internal/domain"
)

// DefaultFreeBookLimit is how many registrants receive the complimentary
// book.
const DefaultFreeBookLimit = 50

// EventService handles launch-event registrations and the free-book
// allocation. The registrant's position comes from an atomic counter, so
// concurrent registrations cannot both claim the same slot and the limit
// cannot be exceeded under load.
type EventService struct {
	store   docstore.Store
	counter docstore.Counter
	limit   int64
}

func NewEventService(store docstore.Store, counter docstore.Counter, limit int64) *EventService {
	if limit <= 0 {
		limit = DefaultFreeBookLimit
	}
	return &EventService{store: store, counter: counter, limit: limit}
}

// SeedCounter aligns the counter with registrations that already exist, so
// existing deployments keep their position. No-op once the counter is live.
func (s *EventService) SeedCounter(ctx context.Context) error {
	count, err := s.store.Count(ctx, docstore.Events)
	if err != nil {
		return fmt.Errorf("count registrations: %w", err)
	}
	return s.counter.Seed(ctx, count)
}

// RegistrationResult reports the outcome to the registrant.
type RegistrationResult struct {
	Registration domain.EventRegistration `json:"registration"`
	GetsFreeBook bool                     `json:"gets_free_book"`
	Message      string                   `json:"message"`
}

// Register creates a registration. The free-book flag is decided from the
// registrant's sequence number at creation time and never recalculated, even
// if earlier registrations are later deleted.
func (s *EventService) Register(ctx context.Context, name, whatsapp, email string) (RegistrationResult, error) {
	if name == "" || whatsapp == "" || email == "" {
		return RegistrationResult{}, fmt.Errorf("%w: required fields missing", domain.ErrValidation)
	}

	seq, err := s.counter.Next(ctx)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("failed to register for the event: %w", err)
	}
	getsFreeBook := seq <= s.limit

	registration := domain.EventRegistration{
		Name:         name,
		WhatsApp:     whatsapp,
		Email:        email,
		GetsFreeBook: getsFreeBook,
	}
	doc, err := s.store.Create(ctx, docstore.Events, registration)
	if err != nil {
		return RegistrationResult{}, fmt.Errorf("failed to register for the event: %w", err)
	}
	registration.ID = doc.ID
	registration.CreatedAt = doc.CreatedAt

	message := fmt.Sprintf("Thank you for registering! The first %d free books have been claimed, but we'll be in touch.", s.limit)
	if getsFreeBook {
		message = fmt.Sprintf("Congratulations! You are one of the first %d people to register and will receive the new book for free!", s.limit)
	}
	return RegistrationResult{
		Registration: registration,
		GetsFreeBook: getsFreeBook,
		Message:      message,
	}, nil
}

// ListRegistrations returns all registrations, oldest first, for the admin
// page.
func (s *EventService) ListRegistrations(ctx context.Context) ([]domain.EventRegistration, error) {
	docs, err := s.store.List(ctx, docstore.Events, docstore.OrderAsc("created_at"))
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	registrations := make([]domain.EventRegistration, 0, len(docs))
	for _, doc := range docs {
		var registration domain.EventRegistration
		if err := doc.Decode(&registration); err != nil {
			return nil, fmt.Errorf("unmarshal registration: %w", err)
		}
		registration.ID = doc.ID
		registration.CreatedAt = doc.CreatedAt
		registrations = append(registrations, registration)
	}
	return registrations, nil
}
