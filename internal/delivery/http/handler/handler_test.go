package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"talent-match/internal/delivery/http/middleware"
	"talent-match/internal/domain/matching"
	"talent-match/internal/pipeline"
	"talent-match/internal/pkg/jwt"
	"talent-match/internal/pkg/response"
	"talent-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMatchingUsecase struct {
	scoreErr error
	rankErr  error
	outcomes []usecase.OutcomeInput
	prefs    matching.Weights
}

func (m *mockMatchingUsecase) ScoreOne(_ context.Context, job matching.JobProfile, cand matching.CandidateProfile) (matching.MatchResult, error) {
	if m.scoreErr != nil {
		return matching.MatchResult{}, m.scoreErr
	}
	return matching.MatchResult{JobID: job.ID, CandidateID: cand.ID, NormalizedScore: 0.5, TotalScore: 50}, nil
}

func (m *mockMatchingUsecase) Rank(_ context.Context, job matching.JobProfile, cands []matching.CandidateProfile, _ int) ([]matching.MatchResult, pipeline.RankReport, error) {
	if m.rankErr != nil {
		return nil, pipeline.RankReport{}, m.rankErr
	}
	out := make([]matching.MatchResult, 0, len(cands))
	for _, c := range cands {
		out = append(out, matching.MatchResult{JobID: job.ID, CandidateID: c.ID})
	}
	return out, pipeline.RankReport{JobID: job.ID, Attempted: len(cands), Succeeded: len(cands)}, nil
}

func (m *mockMatchingUsecase) RankMany(_ context.Context, jobs []matching.JobProfile, _ []matching.CandidateProfile, _ int) (map[uuid.UUID][]matching.MatchResult, pipeline.BatchReport, error) {
	if m.rankErr != nil {
		return nil, pipeline.BatchReport{}, m.rankErr
	}
	out := make(map[uuid.UUID][]matching.MatchResult, len(jobs))
	for _, j := range jobs {
		out[j.ID] = []matching.MatchResult{}
	}
	return out, pipeline.BatchReport{Jobs: len(jobs)}, nil
}

func (m *mockMatchingUsecase) TrackOutcome(in usecase.OutcomeInput) (bool, error) {
	if in.JobID == uuid.Nil {
		return false, usecase.ErrInvalidInput
	}
	m.outcomes = append(m.outcomes, in)
	return true, nil
}

func (m *mockMatchingUsecase) GetCompanyPreferences(context.Context, string) matching.Weights {
	if m.prefs != nil {
		return m.prefs
	}
	return matching.DefaultWeights()
}

func newTestApp(uc usecase.MatchingUsecase, auth fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(nil).Middleware())
	NewHealthHandler(nil).RegisterRoutes(app)
	v1 := app.Group("/api/v1")
	if auth != nil {
		v1.Use(auth)
	}
	NewMatchHandler(uc).RegisterRoutes(v1)
	NewOutcomeHandler(uc).RegisterRoutes(v1)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any, headers ...string) (int, response.SemanticResponse) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env response.SemanticResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func TestScore_OK(t *testing.T) {
	app := newTestApp(&mockMatchingUsecase{}, nil)
	status, env := do(t, app, http.MethodPost, "/api/v1/match/score", map[string]any{
		"job":       map[string]any{"id": uuid.NewString(), "title": "Backend Engineer"},
		"candidate": map[string]any{"id": uuid.NewString(), "skills": "Go"},
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, response.MessageOK, env.Message)
}

func TestScore_InvalidProfileIsBadRequest(t *testing.T) {
	app := newTestApp(&mockMatchingUsecase{scoreErr: matching.ErrInvalidProfile}, nil)
	status, env := do(t, app, http.MethodPost, "/api/v1/match/score", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestRank_ErrorMapping(t *testing.T) {
	body := map[string]any{"job": map[string]any{"id": uuid.NewString()}, "candidates": []any{}}

	status, _ := do(t, newTestApp(&mockMatchingUsecase{rankErr: pipeline.ErrBatchTooLarge}, nil), http.MethodPost, "/api/v1/match/rank", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)

	status, env := do(t, newTestApp(&mockMatchingUsecase{rankErr: pipeline.ErrSchedulingFailed}, nil), http.MethodPost, "/api/v1/match/rank", body)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, response.MessageServiceUnavailable, env.Message)

	status, _ = do(t, newTestApp(&mockMatchingUsecase{}, nil), http.MethodPost, "/api/v1/match/rank", map[string]any{"top_k": -1})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRankMany_OK(t *testing.T) {
	app := newTestApp(&mockMatchingUsecase{}, nil)
	jobID := uuid.NewString()
	status, env := do(t, app, http.MethodPost, "/api/v1/match/rank-many", map[string]any{
		"jobs":       []any{map[string]any{"id": jobID}},
		"candidates": []any{map[string]any{"id": uuid.NewString()}},
	})
	require.Equal(t, http.StatusOK, status)
	data := env.Data.(map[string]any)
	assert.Contains(t, data["results"], jobID)
}

func TestTrackOutcome_Accepted(t *testing.T) {
	uc := &mockMatchingUsecase{}
	app := newTestApp(uc, nil)
	status, env := do(t, app, http.MethodPost, "/api/v1/outcomes", map[string]any{
		"job_id":       uuid.NewString(),
		"candidate_id": uuid.NewString(),
		"rating":       4,
	})
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, response.MessageAccepted, env.Message)
	require.Len(t, uc.outcomes, 1)
	assert.Equal(t, 4.0, uc.outcomes[0].Rating)
}

func TestTrackOutcome_MissingRating(t *testing.T) {
	status, _ := do(t, newTestApp(&mockMatchingUsecase{}, nil), http.MethodPost, "/api/v1/outcomes", map[string]any{
		"job_id":       uuid.NewString(),
		"candidate_id": uuid.NewString(),
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPreferences(t *testing.T) {
	app := newTestApp(&mockMatchingUsecase{prefs: matching.Weights{matching.FactorSkill: 1.2}}, nil)
	status, env := do(t, app, http.MethodGet, "/api/v1/preferences/acme", nil)
	require.Equal(t, http.StatusOK, status)
	data := env.Data.(map[string]any)
	assert.Equal(t, "acme", data["client_id"])
	assert.Equal(t, false, data["default"])
}

func TestAuth_ScopedToken(t *testing.T) {
	svc := jwt.NewHMACService("secret", time.Hour)
	tok, err := svc.GenerateServiceToken("ats", "acme")
	require.NoError(t, err)
	app := newTestApp(&mockMatchingUsecase{}, middleware.NewAuthMiddleware(svc).Middleware())

	status, _ := do(t, app, http.MethodGet, "/api/v1/preferences/acme", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, app, http.MethodGet, "/api/v1/preferences/acme", nil, "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodGet, "/api/v1/preferences/globex", nil, "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestMetrics_PrometheusExposition(t *testing.T) {
	app := newTestApp(&mockMatchingUsecase{}, nil)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(b), "talent_match_pairs_total")
}
