package app

import (
	"context"
	"errors"
	"fmt"

	"bookfair-service/internal/docstore"
	"bookfair-service/internal/domain"
)

// CatalogService manages the book catalog: admin create/delete plus the
// public listing the storefront renders.
type CatalogService struct {
	store docstore.Store
}

func NewCatalogService(store docstore.Store) *CatalogService {
	return &CatalogService{store: store}
}

// CreateBookInput carries the admin form fields. Cover/download references
// are opaque URLs; file upload itself happens outside this service.
type CreateBookInput struct {
	Title       string
	Description string
	Price       float64
	Type        domain.BookType
	ImageURL    string
	DownloadURL string
}

func (s *CatalogService) CreateBook(ctx context.Context, input CreateBookInput) (domain.Book, error) {
	if input.Title == "" || input.Description == "" || input.Type == "" {
		return domain.Book{}, fmt.Errorf("%w: required fields missing", domain.ErrValidation)
	}
	if input.Price < 0 {
		return domain.Book{}, fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	if input.Type != domain.BookDigital && input.Type != domain.BookPhysical {
		return domain.Book{}, fmt.Errorf("%w: type must be digital or physical", domain.ErrValidation)
	}

	book := domain.Book{
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Type:        input.Type,
		ImageURL:    input.ImageURL,
		DownloadURL: input.DownloadURL,
	}
	doc, err := s.store.Create(ctx, docstore.Books, book)
	if err != nil {
		return domain.Book{}, fmt.Errorf("failed to create book: %w", err)
	}
	book.ID = doc.ID
	book.CreatedAt = doc.CreatedAt
	return book, nil
}

func (s *CatalogService) GetBook(ctx context.Context, id string) (domain.Book, error) {
	doc, err := s.store.Get(ctx, docstore.Books, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.Book{}, domain.ErrBookNotFound
	}
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	return decodeBook(doc)
}

// ListBooks returns the catalog, newest first.
func (s *CatalogService) ListBooks(ctx context.Context) ([]domain.Book, error) {
	docs, err := s.store.List(ctx, docstore.Books, docstore.OrderDesc("created_at"))
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	books := make([]domain.Book, 0, len(docs))
	for _, doc := range docs {
		book, err := decodeBook(doc)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

func (s *CatalogService) DeleteBook(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, docstore.Books, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return domain.ErrBookNotFound
		}
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}

func decodeBook(doc docstore.Document) (domain.Book, error) {
	var book domain.Book
	if err := doc.Decode(&book); err != nil {
		return domain.Book{}, fmt.Errorf("unmarshal book: %w", err)
	}
	book.ID = doc.ID
	book.CreatedAt = doc.CreatedAt
	return book, nil
}
