package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookfair-service/internal/account"
	"bookfair-service/internal/app"
	"bookfair-service/internal/config"
	"bookfair-service/internal/docstore"
	"bookfair-service/internal/domain"
	"bookfair-service/internal/infra/memory"
	pgstore "bookfair-service/internal/infra/postgres"
	redisinfra "bookfair-service/internal/infra/redis"
	transport "bookfair-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var store docstore.Store
	if pool != nil {
		store = pgstore.NewDocStore(pool)
	} else {
		memStore := memory.NewDocStore()
		seedSampleData(ctx, memStore)
		store = memStore
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	loader := app.NewStoreContentLoader(store)
	var content app.ContentRepository
	if redisClient != nil {
		content = redisinfra.NewQuizCache(redisClient, loader, quizTTL)
	} else {
		content = memory.NewQuizCache(loader, quizTTL)
	}

	var state docstore.StateStore
	var counter docstore.Counter
	if redisClient != nil {
		state = redisinfra.NewStateStore(redisClient)
		counter = redisinfra.NewCounter(redisClient, "event:registrations:seq")
	} else {
		state = memory.NewStateStore()
		counter = memory.NewCounter()
	}

	var accountClient account.Client
	if cfg.Account.Endpoint != "" {
		accountClient = account.NewHTTPClient(cfg.Account.Endpoint)
	} else {
		static := account.NewStatic()
		if cfg.Account.AdminEmail != "" {
			static.AddUser(domain.User{
				ID:    "admin",
				Name:  cfg.Account.AdminName,
				Email: cfg.Account.AdminEmail,
			}, cfg.Account.AdminPassword)
		}
		accountClient = static
	}

	catalog := app.NewCatalogService(store)
	quizzes := app.NewQuizService(store, content)
	events := app.NewEventService(store, counter, cfg.Event.FreeBookLimit)
	if err := events.SeedCounter(ctx); err != nil {
		return err
	}
	auth := app.NewAuth(ctx, accountClient, state)

	api := transport.NewAPI(catalog, quizzes, events, auth, state)
	wsHandler := transport.NewWSHandler(quizzes)
	router := transport.NewRouter(api, wsHandler, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting bookfair service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedSampleData provides a minimal catalog and quiz for the no-database
// demo mode.
func seedSampleData(ctx context.Context, store docstore.Store) {
	_, _ = store.Create(ctx, docstore.Books, domain.Book{
		Title:       "The Silent Library",
		Description: "A debut mystery set among forgotten archives.",
		Price:       12.99,
		Type:        domain.BookDigital,
	})
	_, _ = store.Create(ctx, docstore.Books, domain.Book{
		Title:       "Paper Cities",
		Description: "Hardcover collection of urban short fiction.",
		Price:       24.50,
		Type:        domain.BookPhysical,
	})

	quizDoc, err := store.Create(ctx, docstore.Quizzes, domain.Quiz{
		Title:         "Literary Trivia",
		Description:   "Five minutes of book lore.",
		Duration:      5,
		IsActive:      true,
		QuestionCount: 2,
	})
	if err != nil {
		return
	}
	_, _ = store.Create(ctx, docstore.Questions, domain.Question{
		QuizID:       quizDoc.ID,
		Text:         "Who wrote 'One Hundred Years of Solitude'?",
		Options:      []string{"Jorge Luis Borges", "Gabriel Garcia Marquez", "Isabel Allende"},
		CorrectIndex: 1,
	})
	_, _ = store.Create(ctx, docstore.Questions, domain.Question{
		QuizID:       quizDoc.ID,
		Text:         "What year was 'Don Quixote' first published?",
		Options:      []string{"1605", "1701", "1555"},
		CorrectIndex: 0,
	})
}
