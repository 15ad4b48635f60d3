package domain

import (
	"math"
	"time"
)

// BookType distinguishes downloadable titles from shipped ones.
type BookType string

const (
	BookDigital  BookType = "digital"
	BookPhysical BookType = "physical"
)

// Book is a purchasable title in the storefront catalog.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Type        BookType  `json:"type"`
	ImageURL    string    `json:"image_url,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CartItem is a cart line: a book plus its quantity.
// Lines with quantity zero are never retained.
type CartItem struct {
	Book     Book `json:"book"`
	Quantity int  `json:"quantity"`
}

// Quiz is a timed multiple-choice competition.
type Quiz struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Duration      int       `json:"duration"` // minutes
	IsActive      bool      `json:"is_active"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Question belongs to a quiz and has exactly one correct option index.
type Question struct {
	ID           string   `json:"id"`
	QuizID       string   `json:"quiz_id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// QuizContent bundles a quiz with its questions for the taking flow.
type QuizContent struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// Attempt is a scored record of one participant's completion of one quiz.
// Attempts are append-only and rank the leaderboard.
type Attempt struct {
	ID              string    `json:"id"`
	QuizID          string    `json:"quiz_id"`
	QuizTitle       string    `json:"quiz_title"`
	ParticipantName string    `json:"participant_name"`
	Score           int       `json:"score"`
	Total           int       `json:"total"`
	Percentage      int       `json:"percentage"`
	CreatedAt       time.Time `json:"created_at"`
}

// Percentage computes the rounded percentage for a score out of total.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

// EventRegistration records one signup for the launch event. GetsFreeBook is
// decided once at creation and never recalculated.
type EventRegistration struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	WhatsApp     string    `json:"whatsapp"`
	Email        string    `json:"email"`
	GetsFreeBook bool      `json:"gets_free_book"`
	CreatedAt    time.Time `json:"created_at"`
}

// User is the account record returned by the session endpoint.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Leaderboard is an ordered snapshot of the best attempts.
type Leaderboard struct {
	Entries   []Attempt `json:"entries"`
	UpdatedAt time.Time `json:"updatedAt"`
}
