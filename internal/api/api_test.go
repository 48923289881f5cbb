package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alcyxob/fitflow/internal/domain"
	"alcyxob/fitflow/internal/metrics"
	"alcyxob/fitflow/internal/realtime"
	"alcyxob/fitflow/internal/repository/memory"
	"alcyxob/fitflow/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type testServer struct {
	router  *gin.Engine
	hub     *realtime.Hub
	metrics *metrics.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	m, reg := metrics.NewTestManagerAndRegistry()
	workoutRepo := memory.NewWorkoutRepository()
	workouts := service.NewWorkoutService(workoutRepo, m)
	hub := realtime.NewHub(workoutRepo, m)
	t.Cleanup(func() {
		require.NoError(t, hub.Shutdown(context.Background()))
	})

	router := NewRouter(Dependencies{
		AuthService:      service.NewAuthService(memory.NewUserRepository(), "api-test-secret", time.Hour),
		WorkoutService:   workouts,
		MigrationService: service.NewMigrationService(workouts),
		ExportService:    service.NewExportService(workouts, nil, 0),
		Hub:              hub,
		Metrics:          m,
		Gatherer:         reg,
	})
	return &testServer{router: router, hub: hub, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	email := gofakeit.Email()
	rr := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": gofakeit.Name(), "email": email, "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestPingAndAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/workouts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/workouts", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": gofakeit.Email(), "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWorkoutFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	// reps may arrive as numbers or strings
	rr := s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03/exercises", token, gin.H{
		"name":        "Bench Press",
		"youtubeLink": "https://www.youtube.com/watch?v=SCVCLChgT5A",
		"sets": []gin.H{
			{"reps": 8, "measurement": "80kg"},
			{"reps": "AMRAP", "measurement": "60kg"},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	w := decode[domain.Workout](t, rr)
	assert.Equal(t, domain.DefaultRoutineName, w.Name)
	require.Len(t, w.Exercises, 1)
	assert.Equal(t, domain.Reps("8"), w.Exercises[0].Sets[0].Reps)
	ex := w.Exercises[0]

	rr = s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03/exercises/"+ex.ID+"/sets/"+ex.Sets[0].ID+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, decode[domain.Workout](t, rr).Exercises[0].Sets[0].Completed)

	rr = s.do(t, http.MethodPatch, "/api/v1/workouts/2024-06-03", token, gin.H{"name": "Push Day"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Push Day", decode[domain.Workout](t, rr).Name)

	rr = s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03/copy", token, gin.H{"targetDate": "2024-06-10"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	cp := decode[domain.Workout](t, rr)
	assert.NotEqual(t, w.ID, cp.ID)
	assert.False(t, cp.Exercises[0].Sets[0].Completed)

	rr = s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03/copy", token, gin.H{"targetDate": "2024-06-10"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-10/move", token, gin.H{"targetDate": "2024-06-12"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, cp.ID, decode[domain.Workout](t, rr).ID)

	rr = s.do(t, http.MethodGet, "/api/v1/workouts", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	calendar := decode[map[string]domain.Workout](t, rr)
	assert.Len(t, calendar, 2)
	assert.Contains(t, calendar, "2024-06-03")
	assert.Contains(t, calendar, "2024-06-12")

	rr = s.do(t, http.MethodGet, "/api/v1/templates", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	tmpl := decode[[]domain.ExerciseTemplate](t, rr)
	require.Len(t, tmpl, 1)
	assert.Equal(t, "Bench Press", tmpl[0].Name)

	rr = s.do(t, http.MethodDelete, "/api/v1/workouts/2024-06-03/exercises/"+ex.ID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[domain.Workout](t, rr).Exercises)

	rr = s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03/toggle", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[domain.Workout](t, rr).Completed)

	rr = s.do(t, http.MethodDelete, "/api/v1/workouts/2024-06-03", token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = s.do(t, http.MethodGet, "/api/v1/workouts/2024-06-03", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWorkoutErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	rr := s.do(t, http.MethodGet, "/api/v1/workouts/06-03-2024", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03/exercises", token, gin.H{
		"name": "B", "sets": []gin.H{{"reps": 8, "measurement": "80kg"}},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "at least 2 characters")

	rr = s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03", token, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, domain.DefaultRoutineName, decode[domain.Workout](t, rr).Name)

	rr = s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03", token, gin.H{"name": "Again"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(t, http.MethodPut, "/api/v1/workouts/2024-06-03/exercises/nope", token, gin.H{
		"name": "Bench", "sets": []gin.H{{"reps": 8, "measurement": "80kg"}},
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03/move", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/v1/exports", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestWorkoutsArePerUser(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t)
	bob := s.login(t)

	rr := s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03", alice, gin.H{"name": "Alice Day"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/workouts/2024-06-03", bob, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03", bob, gin.H{"name": "Bob Day"})
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestMigrateWorkouts(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	rr := s.do(t, http.MethodGet, "/api/v1/migrate-workouts", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	usage := decode[map[string]string](t, rr)
	assert.Equal(t, "/api/v1/migrate-workouts", usage["endpoint"])
	assert.Equal(t, http.MethodPost, usage["method"])

	rr = s.do(t, http.MethodPost, "/api/v1/migrate-workouts", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	result := decode[map[string]any](t, rr)
	assert.Equal(t, true, result["success"])
	assert.NotEmpty(t, result["message"])

	rr = s.do(t, http.MethodGet, "/api/v1/workouts", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[map[string]domain.Workout](t, rr), 3)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.CounterRequests.WithLabelValues(http.MethodGet, "200")))

	rr := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fitflow_test_server_request")
}

func TestPanicRecovery(t *testing.T) {
	m := metrics.NewTestManager()
	router := gin.New()
	router.Use(PanicRecovery(m))
	router.GET("/boom", func(*gin.Context) { panic("YOLO") })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterHandleRequestPanic))
}

func TestStreamSendsSnapshots(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	rr := s.do(t, http.MethodPost, "/api/v1/workouts/2024-06-03", token, gin.H{"name": "Push Day"})
	require.Equal(t, http.StatusCreated, rr.Code)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/workouts/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	first := readEvent(t, bufio.NewReader(resp.Body))
	assert.Equal(t, "snapshot", first.name)
	var snap map[string]domain.Workout
	require.NoError(t, json.Unmarshal([]byte(first.data), &snap))
	assert.Equal(t, "Push Day", snap["2024-06-03"].Name)

	cancel()
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.name != "" || ev.data != "" {
				return ev
			}
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}
