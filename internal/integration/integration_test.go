package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"bookfair-service/internal/app"
	"bookfair-service/internal/domain"
	pgstore "bookfair-service/internal/infra/postgres"
	pgmigrations "bookfair-service/internal/infra/postgres/migrations"
	infraredis "bookfair-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestQuizRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	store := pgstore.NewDocStore(pool)
	cache := infraredis.NewQuizCache(redisClient, app.NewStoreContentLoader(store), 5*time.Minute)
	service := app.NewQuizService(store, cache)

	quiz, err := service.CreateQuiz(ctx, app.CreateQuizInput{
		Title:       "Literary Trivia",
		Description: "Test your knowledge",
		Duration:    5,
		Questions: []app.QuestionInput{
			{Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectIndex: 1},
			{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectIndex: 0},
			{Text: "Largest planet?", Options: []string{"Mars", "Jupiter"}, CorrectIndex: 1},
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	sess := app.NewSession(ctx, service, quiz.ID)
	if sess.State() != app.SessionNameEntry {
		t.Fatalf("expected name entry, got %s (%v)", sess.State(), sess.LoadErr())
	}
	if err := sess.Start("Alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess.SelectOption(1)
	sess.Next()
	sess.SelectOption(1)
	sess.Next()
	sess.SelectOption(1)
	if err := sess.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	result := sess.Result()
	if result == nil {
		t.Fatal("expected result")
	}
	if result.Score != 2 || result.Total != 3 || result.Percentage != 67 {
		t.Fatalf("unexpected result: %+v", result)
	}

	lb, err := service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].ParticipantName != "Alice" {
		t.Fatalf("unexpected leaderboard: %+v", lb.Entries)
	}

	// The content hash is warm after the run.
	if n, err := redisClient.Exists(ctx, "quiz:"+quiz.ID+":content").Result(); err != nil || n != 1 {
		t.Fatalf("expected cached content, exists=%d err=%v", n, err)
	}
}

func TestEventRegistrationEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	store := pgstore.NewDocStore(pool)
	counter := infraredis.NewCounter(redisClient, "event:registrations")
	events := app.NewEventService(store, counter, 2)
	if err := events.SeedCounter(ctx); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	for i := 1; i <= 2; i++ {
		result, err := events.Register(ctx, fmt.Sprintf("User %d", i), "+100", "u@example.com")
		if err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
		if !result.GetsFreeBook {
			t.Fatalf("registrant %d should get a free book", i)
		}
	}
	third, err := events.Register(ctx, "Late", "+100", "late@example.com")
	if err != nil {
		t.Fatalf("register 3: %v", err)
	}
	if third.GetsFreeBook {
		t.Fatal("registrant 3 of limit 2 must not get a free book")
	}

	registrations, err := events.ListRegistrations(ctx)
	if err != nil {
		t.Fatalf("list registrations: %v", err)
	}
	if len(registrations) != 3 {
		t.Fatalf("expected 3 registrations, got %d", len(registrations))
	}
	if registrations[0].Name != "User 1" || !registrations[0].GetsFreeBook {
		t.Fatalf("unexpected first registration: %+v", registrations[0])
	}

	// The cart survives a reconnect through the Redis-backed state store.
	state := infraredis.NewStateStore(redisClient)
	catalog := app.NewCatalogService(store)
	book, err := catalog.CreateBook(ctx, app.CreateBookInput{
		Title: "Launch Title", Description: "d", Price: 12.5, Type: domain.BookDigital,
	})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	cart := app.NewCart(ctx, state, "visitor-1")
	cart.AddItem(ctx, book)
	cart.AddItem(ctx, book)

	reloaded := app.NewCart(ctx, state, "visitor-1")
	items := reloaded.Items()
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("expected restored cart, got %+v", items)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "bookfair", "POSTGRES_PASSWORD": "bookfairpass", "POSTGRES_DB": "bookfairdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://bookfair:bookfairpass@%s:%s/bookfairdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
