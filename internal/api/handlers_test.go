package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/metrics"
	"alcyxob/fitness-coach/internal/repository/memory"
	"alcyxob/fitness-coach/internal/service"
)

type stubGenerator struct {
	result service.GenerationResult
	last   *domain.UserProfile
}

func (g *stubGenerator) Generate(_ context.Context, profile *domain.UserProfile) service.GenerationResult {
	g.last = profile
	return g.result
}

type stubTranscription struct {
	result *service.TranscriptionResult
	err    error
	audio  []byte
	stage  domain.Stage
}

func (s *stubTranscription) Transcribe(_ context.Context, stage domain.Stage, _, _ string, audio io.Reader) (*service.TranscriptionResult, error) {
	s.stage = stage
	s.audio, _ = io.ReadAll(audio)
	return s.result, s.err
}

type testServer struct {
	router    *gin.Engine
	generator *stubGenerator
	speech    *stubTranscription
}

func newTestServer(t *testing.T, tokens service.TokenService) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gen := &stubGenerator{result: service.GenerationResult{
		Status:     service.StatusSuccess,
		Workout:    "🏋️ TEST WORKOUT",
		RawWorkout: &domain.WorkoutPlan{Title: "Test Workout"},
		Attempts:   1,
	}}
	speech := &stubTranscription{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	conv := service.NewConversationService(memory.NewSessionRepository(100, time.Hour), gen, nil, m)

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Conversation:   conv,
		Generator:      gen,
		Transcription:  speech,
		Tokens:         tokens,
		Gatherer:       reg,
		MaxUploadBytes: 1 << 20,
	})
	return &testServer{router: router, generator: gen, speech: speech}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func basicAnswers() map[string]any {
	return map[string]any{
		"age":            30,
		"gender":         "male",
		"height_cm":      180,
		"weight_kg":      80,
		"activity_level": "moderately_active",
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/ping", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "running")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{"session_id": "m1"}, nil)

	w := s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fitness_coach_ingest_total")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodOptions, "/api/v1/chat/ingest", nil, http.Header{"Origin": {"http://localhost:3000"}})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCORSMiddleware_RestrictedOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://app.example.com"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStartAndGetSession(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/v1/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	started := decode[StartSessionResponse](t, w)
	require.NotEmpty(t, started.SessionID)
	assert.Empty(t, started.Token)
	assert.Equal(t, domain.StageBasic, started.State.Stage)

	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+started.SessionID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[domain.SessionRecord](t, w)
	assert.Equal(t, started.SessionID, rec.ID)

	w = s.do(t, http.MethodGet, "/api/v1/sessions/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngest_FullDialogue(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{"session_id": "d1"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[IngestResponse](t, w)
	assert.Equal(t, domain.StageBasic, res.NextStage)
	assert.NotEmpty(t, res.AssistantText)

	w = s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{
		"session_id": "d1", "stage": "BASIC", "selections": basicAnswers(),
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[IngestResponse](t, w)
	assert.Equal(t, domain.StageGoals, res.NextStage)

	w = s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{
		"session_id": "d1", "stage": "goals", "selections": map[string]any{"goals": []string{"Weight Loss"}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[IngestResponse](t, w)
	assert.Equal(t, domain.StageFinal, res.NextStage)

	w = s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{
		"session_id": "d1", "stage": "final", "selections": map[string]any{"equipment": []string{"dumbbells"}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[IngestResponse](t, w)
	assert.Equal(t, service.StatusSuccess, res.Controls["status"])
	assert.Equal(t, "🏋️ TEST WORKOUT", res.Controls["workout"])
	assert.True(t, res.State.Completed)

	require.NotNil(t, s.generator.last)
	assert.Equal(t, []string{"dumbbells"}, s.generator.last.Restrictions.Equipment)
}

func TestIngest_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{"unknown stage", map[string]any{"session_id": "e1", "stage": "cooldown"}, http.StatusBadRequest},
		{"selections without stage", map[string]any{"session_id": "e1", "selections": map[string]any{"age": 30}}, http.StatusBadRequest},
		{"malformed selection", map[string]any{"session_id": "e1", "stage": "basic", "selections": map[string]any{"age": "old"}}, http.StatusBadRequest},
		{"precondition", map[string]any{"session_id": "e1", "stage": "goals", "selections": map[string]any{"goals": []string{"strength"}}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/chat/ingest", tt.body, nil)
			assert.Equal(t, tt.code, w.Code)
			assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
		})
	}
}

func TestIngest_PreconditionMessage(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{
		"session_id": "p1", "stage": "final", "selections": map[string]any{"equipment": []string{"dumbbells"}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "basic information required first", decode[map[string]string](t, w)["error"])
}

func TestIngest_StageAlreadyCompleted(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{
		"session_id": "c1", "stage": "basic", "selections": basicAnswers(),
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{
		"session_id": "c1", "stage": "basic", "selections": map[string]any{"age": 31},
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSessionTokens(t *testing.T) {
	tokens := service.NewTokenService("test-secret", time.Hour)
	s := newTestServer(t, tokens)

	w := s.do(t, http.MethodPost, "/api/v1/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	started := decode[StartSessionResponse](t, w)
	require.NotEmpty(t, started.Token)
	auth := http.Header{"Authorization": {"Bearer " + started.Token}}

	w = s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{"stage": "basic"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{"stage": "basic"},
		http.Header{"Authorization": {"Bearer not-a-token"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{
		"stage": "basic", "selections": basicAnswers(),
	}, auth)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[IngestResponse](t, w)
	assert.Equal(t, started.SessionID, res.State.ID)
	assert.Equal(t, domain.StageGoals, res.NextStage)

	w = s.do(t, http.MethodPost, "/api/v1/chat/ingest", map[string]any{"session_id": "someone-else"}, auth)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+started.SessionID, nil, auth)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGenerateWorkout(t *testing.T) {
	s := newTestServer(t, nil)
	profile := map[string]any{
		"name":           "Koyel",
		"physical_stats": map[string]any{"height": 164, "weight": 80, "gender": "F", "age": 30},
		"goals":          []map[string]any{{"goal_type": "weight_loss"}},
		"activity_level": "Moderately Active",
	}

	w := s.do(t, http.MethodPost, "/api/v1/workouts/generate", profile, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[service.GenerationResult](t, w)
	assert.Equal(t, service.StatusSuccess, res.Status)
	assert.Equal(t, "Test Workout", res.RawWorkout.Title)

	require.NotNil(t, s.generator.last)
	assert.Equal(t, "female", s.generator.last.PhysicalStats.Gender)
	assert.Equal(t, "moderately_active", s.generator.last.ActivityLevel)

	s.generator.result = service.GenerationResult{Status: service.StatusError, Message: "model output was not valid"}
	w = s.do(t, http.MethodPost, "/api/v1/workouts/generate", profile, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, service.StatusError, decode[service.GenerationResult](t, w).Status)
}

func TestGenerateWorkout_InvalidProfile(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/v1/workouts/generate", map[string]any{"name": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/workouts/generate", map[string]any{
		"physical_stats": map[string]any{"height": 164, "weight": 80, "gender": "F", "age": 30},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartAudio(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "answer.webm")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestTranscribe(t *testing.T) {
	s := newTestServer(t, nil)
	age := 30
	s.speech.result = &service.TranscriptionResult{
		Transcript: "I am thirty",
		Stage:      domain.StageBasic,
		Selections: domain.BasicSelections{Age: &age},
		Missing:    []string{"gender"},
	}

	body, contentType := multipartAudio(t, "file", []byte("audio-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/speech/transcribe?stage=Basic&session_id=s1", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	out := decode[map[string]any](t, w)
	assert.Equal(t, "I am thirty", out["transcript"])
	assert.Equal(t, "basic", out["stage"])
	assert.Equal(t, float64(30), out["selections"].(map[string]any)["age"])
	assert.Equal(t, []any{"gender"}, out["missing"])
	assert.Equal(t, domain.StageBasic, s.speech.stage)
	assert.Equal(t, []byte("audio-bytes"), s.speech.audio)
}

func TestTranscribe_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	body, contentType := multipartAudio(t, "file", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/speech/transcribe?stage=lunch", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, contentType = multipartAudio(t, "audio", []byte("x"))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/speech/transcribe?stage=basic", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.speech.err = errors.Join(service.ErrTranscriptionFailed, errors.New("upstream down"))
	body, contentType = multipartAudio(t, "file", []byte("x"))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/speech/transcribe?stage=basic", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestTranscribe_NotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/t", NewSpeechHandler(nil, 0, nil).Transcribe)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/t?stage=basic", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
