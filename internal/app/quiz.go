package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookfair-service/internal/docstore"
	"bookfair-service/internal/domain"
)

// ContentRepository serves quiz content for the taking flow, typically
// through a cache in front of the document store.
type ContentRepository interface {
	GetContent(ctx context.Context, quizID string) (domain.QuizContent, error)
}

// ContentInvalidator is implemented by caches that can drop stale content
// after an admin mutation.
type ContentInvalidator interface {
	Invalidate(ctx context.Context, quizID string)
}

// leaderboardLimit matches the public leaderboard page.
const leaderboardLimit = 50

// QuizService contains the quiz platform use cases: admin CRUD, public
// reads, scoring, attempt recording, and the leaderboard.
type QuizService struct {
	store   docstore.Store
	content ContentRepository

	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewQuizService(store docstore.Store, content ContentRepository) *QuizService {
	return &QuizService{
		store:       store,
		content:     content,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// QuestionInput is one question of an admin quiz form.
type QuestionInput struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// CreateQuizInput carries the admin quiz form.
type CreateQuizInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Duration    int             `json:"duration"`
	Questions   []QuestionInput `json:"questions"`
}

// CreateQuiz creates the quiz and all its questions. The question count is
// denormalized onto the quiz.
func (s *QuizService) CreateQuiz(ctx context.Context, input CreateQuizInput) (domain.Quiz, error) {
	if input.Title == "" || input.Description == "" || len(input.Questions) == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: all fields are required", domain.ErrValidation)
	}
	if input.Duration <= 0 {
		return domain.Quiz{}, fmt.Errorf("%w: duration must be positive", domain.ErrValidation)
	}
	for i, q := range input.Questions {
		if q.Text == "" || len(q.Options) < 2 {
			return domain.Quiz{}, fmt.Errorf("%w: question %d needs text and at least two options", domain.ErrValidation, i+1)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return domain.Quiz{}, fmt.Errorf("%w: question %d correct index out of bounds", domain.ErrValidation, i+1)
		}
	}

	quiz := domain.Quiz{
		Title:         input.Title,
		Description:   input.Description,
		Duration:      input.Duration,
		IsActive:      true,
		QuestionCount: len(input.Questions),
	}
	doc, err := s.store.Create(ctx, docstore.Quizzes, quiz)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("failed to create quiz: %w", err)
	}
	quiz.ID = doc.ID
	quiz.CreatedAt = doc.CreatedAt

	for _, q := range input.Questions {
		question := domain.Question{
			QuizID:       quiz.ID,
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		}
		if _, err := s.store.Create(ctx, docstore.Questions, question); err != nil {
			return domain.Quiz{}, fmt.Errorf("failed to create question: %w", err)
		}
	}
	return quiz, nil
}

// UpdateQuizInput carries the editable quiz fields.
type UpdateQuizInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
}

func (s *QuizService) UpdateQuiz(ctx context.Context, id string, input UpdateQuizInput) error {
	if input.Title == "" || input.Description == "" || input.Duration <= 0 {
		return fmt.Errorf("%w: all fields are required", domain.ErrValidation)
	}
	doc, err := s.store.Get(ctx, docstore.Quizzes, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.ErrQuizNotFound
	}
	if err != nil {
		return fmt.Errorf("get quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := doc.Decode(&quiz); err != nil {
		return fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.Title = input.Title
	quiz.Description = input.Description
	quiz.Duration = input.Duration
	if err := s.store.Update(ctx, docstore.Quizzes, id, quiz); err != nil {
		return fmt.Errorf("failed to update quiz: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// DeleteQuiz removes the quiz and its questions. Question deletion failures
// do not block deleting the quiz itself.
func (s *QuizService) DeleteQuiz(ctx context.Context, id string) error {
	if docs, err := s.store.List(ctx, docstore.Questions, docstore.Equal("quiz_id", id)); err == nil {
		for _, doc := range docs {
			_ = s.store.Delete(ctx, docstore.Questions, doc.ID)
		}
	}
	if err := s.store.Delete(ctx, docstore.Quizzes, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return domain.ErrQuizNotFound
		}
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// ListActiveQuizzes returns the quizzes shown on the public quiz page.
func (s *QuizService) ListActiveQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	docs, err := s.store.List(ctx, docstore.Quizzes,
		docstore.Equal("is_active", true),
		docstore.OrderDesc("created_at"))
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	quizzes := make([]domain.Quiz, 0, len(docs))
	for _, doc := range docs {
		var quiz domain.Quiz
		if err := doc.Decode(&quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		quiz.ID = doc.ID
		quiz.CreatedAt = doc.CreatedAt
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

// GetQuiz loads one quiz through the content repository.
func (s *QuizService) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	content, err := s.content.GetContent(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	return content.Quiz, nil
}

// GetQuestions returns the quiz's questions in creation order. Failures
// degrade to an empty slice so the public page stays renderable.
func (s *QuizService) GetQuestions(ctx context.Context, quizID string) []domain.Question {
	content, err := s.content.GetContent(ctx, quizID)
	if err != nil {
		return []domain.Question{}
	}
	if content.Questions == nil {
		return []domain.Question{}
	}
	return content.Questions
}

// Unanswered is the sentinel answer value; it never scores as correct.
const Unanswered = -1

// Score counts answers matching the correct option index. Unanswered or
// out-of-range entries count as incorrect; extra answers beyond the question
// list are ignored.
func Score(answers []int, questions []domain.Question) int {
	score := 0
	for i, question := range questions {
		if i >= len(answers) {
			break
		}
		if answers[i] != Unanswered && answers[i] == question.CorrectIndex {
			score++
		}
	}
	return score
}

// SubmitInput carries a finished quiz run.
type SubmitInput struct {
	QuizID          string `json:"quiz_id"`
	QuizTitle       string `json:"quiz_title"`
	ParticipantName string `json:"participant_name"`
	Score           int    `json:"score"`
	Total           int    `json:"total"`
}

// SubmitResult is what the result view is reconstructed from. It carries the
// created attempt id so callers can link the stored record.
type SubmitResult struct {
	AttemptID       string `json:"attempt_id"`
	ParticipantName string `json:"participant_name"`
	Score           int    `json:"score"`
	Total           int    `json:"total"`
	Percentage      int    `json:"percentage"`
}

// Submit records an attempt and notifies leaderboard subscribers.
func (s *QuizService) Submit(ctx context.Context, input SubmitInput) (SubmitResult, error) {
	if input.QuizID == "" || input.ParticipantName == "" || input.Total <= 0 {
		return SubmitResult{}, fmt.Errorf("%w: missing required fields", domain.ErrValidation)
	}
	if input.Score < 0 || input.Score > input.Total {
		return SubmitResult{}, fmt.Errorf("%w: score out of range", domain.ErrValidation)
	}

	attempt := domain.Attempt{
		QuizID:          input.QuizID,
		QuizTitle:       input.QuizTitle,
		ParticipantName: input.ParticipantName,
		Score:           input.Score,
		Total:           input.Total,
		Percentage:      domain.Percentage(input.Score, input.Total),
	}
	doc, err := s.store.Create(ctx, docstore.Attempts, attempt)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to record attempt: %w", err)
	}

	if lb, err := s.Leaderboard(ctx); err == nil {
		s.broadcast(lb)
	}

	return SubmitResult{
		AttemptID:       doc.ID,
		ParticipantName: attempt.ParticipantName,
		Score:           attempt.Score,
		Total:           attempt.Total,
		Percentage:      attempt.Percentage,
	}, nil
}

// Leaderboard returns the best attempts: percentage desc, then score desc,
// capped at the page size.
func (s *QuizService) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	docs, err := s.store.List(ctx, docstore.Attempts,
		docstore.OrderDesc("percentage"),
		docstore.OrderDesc("score"),
		docstore.Limit(leaderboardLimit))
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("list attempts: %w", err)
	}
	entries := make([]domain.Attempt, 0, len(docs))
	for _, doc := range docs {
		var attempt domain.Attempt
		if err := doc.Decode(&attempt); err != nil {
			return domain.Leaderboard{}, fmt.Errorf("unmarshal attempt: %w", err)
		}
		attempt.ID = doc.ID
		attempt.CreatedAt = doc.CreatedAt
		entries = append(entries, attempt)
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: time.Now()}, nil
}

// Subscribe returns a channel receiving leaderboard snapshots as new
// attempts arrive. The caller must invoke cancel to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	initial, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Leaderboard, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *QuizService) broadcast(lb domain.Leaderboard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale snapshot so a slow client never blocks the rest.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

func (s *QuizService) invalidate(ctx context.Context, quizID string) {
	if inv, ok := s.content.(ContentInvalidator); ok {
		inv.Invalidate(ctx, quizID)
	}
}

// StoreContentLoader loads quiz content straight from the document store;
// caches wrap it for the hot quiz-taking path.
type StoreContentLoader struct {
	store docstore.Store
}

func NewStoreContentLoader(store docstore.Store) *StoreContentLoader {
	return &StoreContentLoader{store: store}
}

func (l *StoreContentLoader) LoadContent(ctx context.Context, quizID string) (domain.QuizContent, error) {
	doc, err := l.store.Get(ctx, docstore.Quizzes, quizID)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.QuizContent{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("load quiz: %w", err)
	}
	var content domain.QuizContent
	if err := doc.Decode(&content.Quiz); err != nil {
		return domain.QuizContent{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	content.Quiz.ID = doc.ID
	content.Quiz.CreatedAt = doc.CreatedAt

	qdocs, err := l.store.List(ctx, docstore.Questions,
		docstore.Equal("quiz_id", quizID),
		docstore.OrderAsc("created_at"),
		docstore.Limit(100))
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("load questions: %w", err)
	}
	for _, qdoc := range qdocs {
		var question domain.Question
		if err := qdoc.Decode(&question); err != nil {
			return domain.QuizContent{}, fmt.Errorf("unmarshal question: %w", err)
		}
		question.ID = qdoc.ID
		content.Questions = append(content.Questions, question)
	}
	return content, nil
}
