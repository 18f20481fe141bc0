package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/tasktracker/internal/auth"
	"github.com/geocoder89/tasktracker/internal/config"
	"github.com/geocoder89/tasktracker/internal/db"
	apphttp "github.com/geocoder89/tasktracker/internal/http"
	"github.com/geocoder89/tasktracker/internal/observability"
	"github.com/geocoder89/tasktracker/internal/repo/memory"
	"github.com/geocoder89/tasktracker/internal/repo/postgres"
	"github.com/geocoder89/tasktracker/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const testSecret = "test-secret-key"

type backend struct {
	name   string
	router *gin.Engine
	// deleteUser removes a user out of band, the way an administrator would.
	deleteUser func(ctx context.Context, id int64) error
}

func testConfig() config.Config {
	return config.Config{
		Env:                    "test",
		StoreDriver:            "memory",
		JWTSecret:              testSecret,
		JWTAccessTTLMinutes:    60,
		CORSAllowedOrigins:     []string{"*"},
		RateLimitAuthPerMinute: 1000,
		RateLimitAPIPerMinute:  1000,
	}
}

func build(cfg config.Config, users service.UserStore, tasks service.TaskStore, prom *observability.Prom, reg *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	jwt := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())

	deps := apphttp.Deps{
		Auth:   service.NewAuthService(users, jwt, prom),
		Tasks:  service.NewTaskService(tasks),
		Tokens: jwt,
		Prom:   prom,
	}
	if reg != nil {
		deps.Gatherer = reg
	}

	return apphttp.NewRouter(logger, cfg, deps)
}

func memoryBackend(t *testing.T) backend {
	t.Helper()

	store := memory.NewStore()
	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	return backend{
		name:       "memory",
		router:     build(testConfig(), store.Users(), store.Tasks(), prom, reg),
		deleteUser: store.Users().Delete,
	}
}

// postgresBackend needs a reachable database in TEST_DB_DSN; tables are
// truncated before every test.
func postgresBackend(t *testing.T) (backend, bool) {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		return backend{}, false
	}

	pool, err := db.NewPool(dsn, 4)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := pool.Exec(ctx, `TRUNCATE tasks, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)
	users := postgres.NewUsersRepo(pool, prom)

	cfg := testConfig()
	cfg.StoreDriver = "postgres"

	return backend{
		name:       "postgres",
		router:     build(cfg, users, postgres.NewTasksRepo(pool, prom), prom, reg),
		deleteUser: users.Delete,
	}, true
}

// eachBackend runs fn against the memory store and, when configured, Postgres.
func eachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	t.Run("memory", func(t *testing.T) { fn(t, memoryBackend(t)) })

	t.Run("postgres", func(t *testing.T) {
		b, ok := postgresBackend(t)
		if !ok {
			t.Skip("TEST_DB_DSN not set; skipping postgres integration")
		}
		fn(t, b)
	})
}

func call(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
	return out
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()

	if w.Code != status {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, status, w.Body.String())
	}
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	} `json:"user"`
}

// registerAndLogin returns an access token and the new user's id.
func registerAndLogin(t *testing.T, r http.Handler, username, email, password string) (string, int64) {
	t.Helper()

	wantStatus(t, call(t, r, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username, "email": email, "password": password,
	}), http.StatusCreated)

	w := call(t, r, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username, "password": password,
	})
	wantStatus(t, w, http.StatusOK)

	resp := decode[loginResponse](t, w)
	return resp.AccessToken, resp.User.ID
}
