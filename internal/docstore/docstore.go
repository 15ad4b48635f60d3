// Package docstore defines the collection/document persistence contract the
// application is written against. Entities are stored as JSON documents keyed
// by collection name and a store-assigned identifier, and listed through
// equality/order/limit query primitives.
package docstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// Collection names used by the application.
const (
	Books     = "books"
	Quizzes   = "quizzes"
	Questions = "questions"
	Attempts  = "attempts"
	Events    = "events"
)

// ErrNotFound is returned when a document or state key does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a stored entity: a JSON payload plus the store-assigned
// identifier and creation timestamp.
type Document struct {
	ID        string
	CreatedAt time.Time
	Data      json.RawMessage
}

// Decode unmarshals the document payload into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Filter is an equality predicate on a document field.
type Filter struct {
	Field string
	Value any
}

// Order sorts results by a document field. CreatedAt ordering uses the
// store timestamp rather than a payload field.
type Order struct {
	Field string
	Desc  bool
}

// Query collects list options.
type Query struct {
	Filters []Filter
	Orders  []Order
	Limit   int
}

// Option configures a List call.
type Option func(*Query)

// Equal keeps only documents whose field equals value.
func Equal(field string, value any) Option {
	return func(q *Query) { q.Filters = append(q.Filters, Filter{Field: field, Value: value}) }
}

// OrderAsc sorts ascending by field.
func OrderAsc(field string) Option {
	return func(q *Query) { q.Orders = append(q.Orders, Order{Field: field}) }
}

// OrderDesc sorts descending by field.
func OrderDesc(field string) Option {
	return func(q *Query) { q.Orders = append(q.Orders, Order{Field: field, Desc: true}) }
}

// Limit caps the number of returned documents.
func Limit(n int) Option {
	return func(q *Query) { q.Limit = n }
}

// Build applies opts to an empty query.
func Build(opts ...Option) Query {
	var q Query
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// Store is the generic document CRUD surface. Implementations assign the
// document ID and creation timestamp on Create.
type Store interface {
	Create(ctx context.Context, collection string, data any) (Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, opts ...Option) ([]Document, error)
	Count(ctx context.Context, collection string) (int64, error)
	Update(ctx context.Context, collection, id string, data any) error
	Delete(ctx context.Context, collection, id string) error
}

// StateStore persists small client-state blobs (cart, cached user) under a
// fixed storage key, with no expiry.
type StateStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context, key string) error
}

// Counter hands out strictly increasing sequence numbers. Next must be atomic
// so concurrent callers never observe the same value.
type Counter interface {
	Next(ctx context.Context) (int64, error)
	// Seed initializes the sequence to n if the counter has not been used yet.
	Seed(ctx context.Context, n int64) error
}

// NewID returns a random document identifier.
func NewID() string {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b)
}
