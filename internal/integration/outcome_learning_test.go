package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"talent-match/internal/config"
	"talent-match/internal/database"
	"talent-match/internal/database/migration"
	dbpostgres "talent-match/internal/database/postgres"
	"talent-match/internal/delivery/http/handler"
	"talent-match/internal/delivery/http/middleware"
	"talent-match/internal/delivery/http/routes"
	"talent-match/internal/domain/matching"
	"talent-match/internal/pipeline"
	"talent-match/internal/preference"
	"talent-match/internal/repository"
	"talent-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type semanticResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func TestIntegration_ScoreTrackOutcome_LearnsPreferences(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := connectTestDB(t, ctx)
	defer func() { _ = db.Close() }()

	if err := (migration.Runner{}).Run(ctx, db.SQLDB()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	clientID := "it-" + uuid.NewString()
	defer cleanup(t, db, clientID)

	store := repository.NewPostgresOutcomeStore(db)
	learner := preference.NewLearner(store, preference.Options{LearningRate: 0.5, WritesPerSecond: 1000})
	learner.Start(ctx)

	vocab, err := matching.DefaultVocabulary()
	if err != nil {
		t.Fatalf("vocabulary: %v", err)
	}
	scorer := matching.NewMultiFactorScorer(matching.NewBaseMatcher(matching.NewSkillExtractor(vocab), nil), matching.ScorerOptions{})
	engine := pipeline.NewBatchEngine(scorer, pipeline.Options{Workers: 2})
	uc := usecase.NewMatchingUsecase(scorer, engine, learner, usecase.MatchingOptions{})

	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(nil).Middleware())
	routes.NewRegistry(
		handler.NewHealthHandler(scorer),
		handler.NewMatchHandler(uc),
		handler.NewOutcomeHandler(uc),
		nil,
	).Register(app)

	jobID, candID := uuid.New(), uuid.New()
	var scored matching.MatchResult
	call(t, app, http.MethodPost, "/api/v1/match/score", map[string]any{
		"job":       map[string]any{"id": jobID, "requirements": "Python, Django, PostgreSQL", "client_id": clientID},
		"candidate": map[string]any{"id": candID, "skills": "Python, Django, PostgreSQL", "experience_years": 4},
	}, http.StatusOK, &scored)
	if scored.ClientID != clientID {
		t.Fatalf("score: expected client_id %s, got %s", clientID, scored.ClientID)
	}

	call(t, app, http.MethodPost, "/api/v1/outcomes", map[string]any{
		"job_id":       jobID,
		"candidate_id": candID,
		"rating":       5,
	}, http.StatusAccepted, nil)

	learner.Close()

	w, found, err := store.GetPreferences(ctx, clientID)
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if !found {
		t.Fatalf("expected saved preferences for %s", clientID)
	}
	if w.Get(matching.FactorSkill) <= 1 {
		t.Fatalf("expected skill weight above 1 after a top rating, got %v", w.Get(matching.FactorSkill))
	}

	var n int
	if err := db.QueryRow(ctx, `SELECT count(*) FROM match_outcomes WHERE client_id = $1`, clientID).Scan(&n); err != nil {
		t.Fatalf("count outcomes: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 outcome row, got %d", n)
	}
}

func connectTestDB(t *testing.T, ctx context.Context) database.DB {
	t.Helper()

	host := stringsOrDefault(os.Getenv("MATCHER_TEST_DB_HOST"), os.Getenv("DB_HOST"))
	port := stringsOrDefault(os.Getenv("MATCHER_TEST_DB_PORT"), os.Getenv("DB_PORT"))
	name := stringsOrDefault(os.Getenv("MATCHER_TEST_DB_NAME"), os.Getenv("DB_NAME"))
	user := stringsOrDefault(os.Getenv("MATCHER_TEST_DB_USER"), os.Getenv("DB_USER"))
	pass := stringsOrDefault(os.Getenv("MATCHER_TEST_DB_PASSWORD"), os.Getenv("DB_PASSWORD"))

	if host == "" || port == "" || name == "" || user == "" {
		t.Skip("missing test DB env vars: set MATCHER_TEST_DB_HOST/PORT/NAME/USER/PASSWORD (or DB_HOST/DB_PORT/DB_NAME/DB_USER/DB_PASSWORD)")
	}

	db, err := dbpostgres.Connect(ctx, config.DatabaseConfig{
		DBHost:     host,
		DBPort:     port,
		DBName:     name,
		DBUser:     user,
		DBPassword: pass,
		DBSSLMode:  os.Getenv("DB_SSL_MODE"),
	})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

func cleanup(t *testing.T, db database.DB, clientID string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.Exec(ctx, `DELETE FROM match_outcomes WHERE client_id = $1`, clientID); err != nil {
		t.Logf("cleanup outcomes: %v", err)
	}
	if _, err := db.Exec(ctx, `DELETE FROM company_preferences WHERE client_id = $1`, clientID); err != nil {
		t.Logf("cleanup preferences: %v", err)
	}
}

func call(t *testing.T, app *fiber.App, method, path string, body any, wantStatus int, out any) {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d (%s)", method, path, wantStatus, resp.StatusCode, env.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}

func stringsOrDefault(primary, fallback string) string {
	if s := strings.TrimSpace(primary); s != "" {
		return s
	}
	return strings.TrimSpace(fallback)
}
