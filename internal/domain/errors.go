package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrBookNotFound indicates the book does not exist in the catalog.
	ErrBookNotFound = errors.New("book not found")
	// ErrValidation is wrapped by synchronous form-validation failures,
	// raised before any remote call is made.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadySubmitted is returned when a quiz session is asked to submit
	// while a submission is in flight or already done.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
)
