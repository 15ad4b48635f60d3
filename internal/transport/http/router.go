package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewRouter wires the REST API and the websocket leaderboard feed.
func NewRouter(api *API, ws *WSHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", cartTokenHeader},
			AllowCredentials: true,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/quizzes", api.ListQuizzes)
		r.Route("/quiz/{id}", func(r chi.Router) {
			r.Get("/", api.GetQuiz)
			r.Get("/questions", api.GetQuizQuestions)
			r.Post("/submit", api.SubmitQuiz)
		})
		r.Get("/leaderboard", api.Leaderboard)

		r.Get("/books", api.ListBooks)

		r.Post("/events/register", api.RegisterEvent)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", api.GetCart)
			r.Delete("/", api.ClearCart)
			r.Post("/items", api.AddCartItem)
			r.Patch("/items/{id}", api.UpdateCartItem)
			r.Delete("/items/{id}", api.RemoveCartItem)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Get("/session", api.GetSession)
			r.Post("/login", api.Login)
			r.Post("/logout", api.Logout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(api.requireAdmin)
			r.Post("/books", api.CreateBook)
			r.Delete("/books/{id}", api.DeleteBook)
			r.Post("/quizzes", api.CreateQuiz)
			r.Patch("/quizzes/{id}", api.UpdateQuiz)
			r.Delete("/quizzes/{id}", api.DeleteQuiz)
			r.Get("/events", api.ListRegistrations)
		})
	})

	r.Get("/ws/leaderboard", ws.ServeWS)

	return r
}
