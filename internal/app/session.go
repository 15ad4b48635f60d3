package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"bookfair-service/internal/domain"
)

// SessionState is the lifecycle state of one quiz run.
type SessionState string

const (
	// SessionFailed: the quiz or its questions could not be loaded. Terminal.
	SessionFailed SessionState = "failed"
	// SessionNameEntry: content loaded, waiting for the participant's name.
	SessionNameEntry SessionState = "name-entry"
	// SessionInProgress: the countdown is running and answers are recorded.
	SessionInProgress SessionState = "in-progress"
	// SessionSubmitting: a submission is in flight; further submits are
	// suppressed.
	SessionSubmitting SessionState = "submitting"
	// SessionSubmitted: the attempt was recorded. Terminal.
	SessionSubmitted SessionState = "submitted"
)

// Session drives one participant through one quiz: name entry, a per-second
// countdown seeded from the quiz duration, answer tracking with an
// unanswered sentinel, and an exactly-once submit (manual from the final
// question, or automatic when the countdown reaches zero).
type Session struct {
	svc *QuizService

	mu        sync.Mutex
	state     SessionState
	loadErr   error
	quiz      domain.Quiz
	questions []domain.Question
	name      string
	answers   []int
	current   int
	remaining int // seconds
	result    *SubmitResult
}

// NewSession fetches the quiz content and parks in name entry. A load
// failure or a quiz with no questions yields the failed terminal state.
func NewSession(ctx context.Context, svc *QuizService, quizID string) *Session {
	s := &Session{svc: svc}
	content, err := svc.content.GetContent(ctx, quizID)
	if err != nil {
		s.state = SessionFailed
		s.loadErr = err
		return s
	}
	if len(content.Questions) == 0 {
		s.state = SessionFailed
		s.loadErr = domain.ErrQuizNotFound
		return s
	}
	s.quiz = content.Quiz
	s.questions = content.Questions
	s.state = SessionNameEntry
	return s
}

// Start begins the run: seeds the countdown from the quiz duration and
// initializes every answer to the unanswered sentinel.
func (s *Session) Start(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionNameEntry {
		return domain.ErrAlreadySubmitted
	}
	s.name = name
	s.remaining = s.quiz.Duration * 60
	s.answers = make([]int, len(s.questions))
	for i := range s.answers {
		s.answers[i] = Unanswered
	}
	s.state = SessionInProgress
	return nil
}

// SelectOption records the answer for the currently displayed question only,
// overwriting any prior selection. Out-of-range options are ignored.
func (s *Session) SelectOption(option int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionInProgress {
		return
	}
	if option < 0 || option >= len(s.questions[s.current].Options) {
		return
	}
	s.answers[s.current] = option
}

// Next advances the displayed question. Navigation never touches the timer.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionInProgress && s.current < len(s.questions)-1 {
		s.current++
	}
}

// Prev moves back one question.
func (s *Session) Prev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionInProgress && s.current > 0 {
		s.current--
	}
}

// Tick advances the countdown by one second. Reaching zero triggers the
// automatic submission exactly once; no further decrements occur afterwards.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.state != SessionInProgress {
		s.mu.Unlock()
		return
	}
	s.remaining--
	if s.remaining > 0 {
		s.mu.Unlock()
		return
	}
	s.remaining = 0
	s.mu.Unlock()

	_ = s.submit(ctx)
}

// Submit is the manual submission; it is only available from the final
// question. Duplicate clicks are suppressed by the submitting state.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.state == SessionInProgress && s.current != len(s.questions)-1 {
		s.mu.Unlock()
		return domain.ErrValidation
	}
	s.mu.Unlock()
	return s.submit(ctx)
}

func (s *Session) submit(ctx context.Context) error {
	s.mu.Lock()
	if s.state != SessionInProgress {
		s.mu.Unlock()
		return domain.ErrAlreadySubmitted
	}
	s.state = SessionSubmitting
	input := SubmitInput{
		QuizID:          s.quiz.ID,
		QuizTitle:       s.quiz.Title,
		ParticipantName: s.name,
		Score:           Score(s.answers, s.questions),
		Total:           len(s.questions),
	}
	s.mu.Unlock()

	result, err := s.svc.Submit(ctx, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// The guard stays engaged; a failed submission is not retried.
		return err
	}
	s.result = &result
	s.state = SessionSubmitted
	return nil
}

// Run drives the countdown, ticking once per interval until the session
// leaves the in-progress state or stop is closed. Stopping the loop clears
// the recurring schedule so no dangling timer can fire a late auto-submit.
func (s *Session) Run(ctx context.Context, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
			if st := s.State(); st != SessionInProgress && st != SessionSubmitting {
				return
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoadErr reports why the session failed to load, if it did.
func (s *Session) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Remaining returns the countdown in seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Current returns the displayed question index.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Answers returns a copy of the recorded answers.
func (s *Session) Answers() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := make([]int, len(s.answers))
	copy(answers, s.answers)
	return answers
}

// Result returns the submit result once the session is submitted, or nil.
func (s *Session) Result() *SubmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	result := *s.result
	return &result
}
