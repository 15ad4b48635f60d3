package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"bookfair-service/internal/app"
	"bookfair-service/internal/docstore"
	"bookfair-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

// cartTokenHeader identifies the client cart. Absent tokens share the
// anonymous cart, which mirrors a single-browser local store.
const cartTokenHeader = "X-Cart-Token"

// API bundles the application services behind the REST surface.
type API struct {
	catalog *app.CatalogService
	quizzes *app.QuizService
	events  *app.EventService
	auth    *app.Auth
	state   docstore.StateStore
}

func NewAPI(catalog *app.CatalogService, quizzes *app.QuizService, events *app.EventService, auth *app.Auth, state docstore.StateStore) *API {
	return &API{catalog: catalog, quizzes: quizzes, events: events, auth: auth, state: state}
}

type errorPayload struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Error: message})
}

// mutationStatus maps service errors per the propagation policy: validation
// failures are the caller's fault, everything else is reported as a server
// failure with the service's readable message.
func mutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrBookNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// GetQuiz handles GET /api/quiz/{id}.
func (a *API) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.quizzes.GetQuiz(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// GetQuizQuestions handles GET /api/quiz/{id}/questions. Failures degrade to
// an empty array, not an error.
func (a *API) GetQuizQuestions(w http.ResponseWriter, r *http.Request) {
	questions := a.quizzes.GetQuestions(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, questions)
}

// ListQuizzes handles GET /api/quizzes.
func (a *API) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.quizzes.ListActiveQuizzes(r.Context())
	if err != nil || quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

type submitRequest struct {
	QuizTitle       string `json:"quiz_title"`
	ParticipantName string `json:"participant_name"`
	Score           int    `json:"score"`
	Total           int    `json:"total"`
}

type submitResponse struct {
	app.SubmitResult
	Redirect string `json:"redirect"`
}

// SubmitQuiz handles POST /api/quiz/{id}/submit. The response carries the
// result-view navigation target with the score embedded in the query, plus
// the created attempt id.
func (a *API) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "id")
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := a.quizzes.Submit(r.Context(), app.SubmitInput{
		QuizID:          quizID,
		QuizTitle:       req.QuizTitle,
		ParticipantName: req.ParticipantName,
		Score:           req.Score,
		Total:           req.Total,
	})
	if err != nil {
		mutationError(w, err)
		return
	}
	query := url.Values{
		"name":  {result.ParticipantName},
		"score": {strconv.Itoa(result.Score)},
		"total": {strconv.Itoa(result.Total)},
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		SubmitResult: result,
		Redirect:     "/quiz/" + quizID + "/result?" + query.Encode(),
	})
}

// Leaderboard handles GET /api/leaderboard.
func (a *API) Leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := a.quizzes.Leaderboard(r.Context())
	if err != nil {
		lb = domain.Leaderboard{Entries: []domain.Attempt{}}
	}
	writeJSON(w, http.StatusOK, lb)
}

type createQuizRequest = app.CreateQuizInput

// CreateQuiz handles POST /api/admin/quizzes.
func (a *API) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	quiz, err := a.quizzes.CreateQuiz(r.Context(), req)
	if err != nil {
		mutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

// UpdateQuiz handles PATCH /api/admin/quizzes/{id}.
func (a *API) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateQuizInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.quizzes.UpdateQuiz(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteQuiz handles DELETE /api/admin/quizzes/{id}.
func (a *API) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := a.quizzes.DeleteQuiz(r.Context(), chi.URLParam(r, "id")); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBooks handles GET /api/books.
func (a *API) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := a.catalog.ListBooks(r.Context())
	if err != nil || books == nil {
		books = []domain.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

type createBookRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Type        string  `json:"type"`
	ImageURL    string  `json:"image_url"`
	DownloadURL string  `json:"download_url"`
}

// CreateBook handles POST /api/admin/books.
func (a *API) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	book, err := a.catalog.CreateBook(r.Context(), app.CreateBookInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Type:        domain.BookType(req.Type),
		ImageURL:    req.ImageURL,
		DownloadURL: req.DownloadURL,
	})
	if err != nil {
		mutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// DeleteBook handles DELETE /api/admin/books/{id}.
func (a *API) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := a.catalog.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		mutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type registerRequest struct {
	Name     string `json:"name"`
	WhatsApp string `json:"whatsapp"`
	Email    string `json:"email"`
}

// RegisterEvent handles POST /api/events/register.
func (a *API) RegisterEvent(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := a.events.Register(r.Context(), req.Name, req.WhatsApp, req.Email)
	if err != nil {
		mutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ListRegistrations handles GET /api/admin/events.
func (a *API) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	registrations, err := a.events.ListRegistrations(r.Context())
	if err != nil || registrations == nil {
		registrations = []domain.EventRegistration{}
	}
	writeJSON(w, http.StatusOK, registrations)
}

func (a *API) cart(r *http.Request) *app.Cart {
	token := r.Header.Get(cartTokenHeader)
	if token == "" {
		token = "anonymous"
	}
	return app.NewCart(r.Context(), a.state, token)
}

type cartResponse struct {
	Items []domain.CartItem `json:"items"`
	Total float64           `json:"total"`
}

func writeCart(w http.ResponseWriter, cart *app.Cart) {
	items := cart.Items()
	if items == nil {
		items = []domain.CartItem{}
	}
	writeJSON(w, http.StatusOK, cartResponse{Items: items, Total: cart.Total()})
}

// GetCart handles GET /api/cart.
func (a *API) GetCart(w http.ResponseWriter, r *http.Request) {
	writeCart(w, a.cart(r))
}

type addCartItemRequest struct {
	BookID string `json:"book_id"`
}

// AddCartItem handles POST /api/cart/items.
func (a *API) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	book, err := a.catalog.GetBook(r.Context(), req.BookID)
	if err != nil {
		mutationError(w, err)
		return
	}
	cart := a.cart(r)
	cart.AddItem(r.Context(), book)
	writeCart(w, cart)
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem handles PATCH /api/cart/items/{id}.
func (a *API) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cart := a.cart(r)
	cart.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	writeCart(w, cart)
}

// RemoveCartItem handles DELETE /api/cart/items/{id}.
func (a *API) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cart := a.cart(r)
	cart.RemoveItem(r.Context(), chi.URLParam(r, "id"))
	writeCart(w, cart)
}

// ClearCart handles DELETE /api/cart.
func (a *API) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart := a.cart(r)
	cart.Clear(r.Context())
	writeCart(w, cart)
}

type sessionResponse struct {
	User     *domain.User  `json:"user"`
	State    app.AuthState `json:"state"`
	Verified bool          `json:"verified"`
}

// GetSession handles GET /api/auth/session: runs a session check and reports
// the resulting state.
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	a.auth.CheckSession(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{
		User:     a.auth.User(),
		State:    a.auth.State(),
		Verified: a.auth.Verified(),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.auth.Login(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		User:     a.auth.User(),
		State:    a.auth.State(),
		Verified: a.auth.Verified(),
	})
}

// Logout handles POST /api/auth/logout.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	a.auth.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// requireAdmin guards the admin mutations: the shared auth store must hold a
// verified user.
func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.auth.Verified() || a.auth.User() == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
