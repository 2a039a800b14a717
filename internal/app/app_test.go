package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-merit-api/internal/models"
	"github.com/noah-isme/sma-merit-api/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:       "test",
		APIPrefix: "/api/v1",
		Timezone:  "Asia/Ho_Chi_Minh",
		Storage:   config.StorageConfig{Backend: config.StorageMemory, Timeout: 5 * time.Second},
		Cache:     config.CacheConfig{Enabled: false, TTL: time.Minute},
		JWT:       config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "sma-merit-api"},
		Meals:     config.MealConfig{AbsenceKeyword: "Absent"},
		Plans:     config.PlanConfig{StatusPolicy: "always_on_time", Weeks: 20},
		Artifacts: config.ArtifactsConfig{
			StorageDir:       t.TempDir(),
			SignedURLSecret:  "artifact-secret",
			SignedURLTTL:     time.Minute,
			MaxFileSizeBytes: 1 << 20,
			AllowedExts:      []string{".pdf"},
		},
	}
}

type testServer struct {
	container *Container
	router    *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	container, cleanup, err := Build(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	written, err := container.Provision(context.Background(), "")
	require.NoError(t, err)
	require.Positive(t, written)

	return &testServer{container: container, router: NewRouter(container)}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{Username: username, Password: "123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AccessToken)
	return body.Data.AccessToken
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{Username: "gv01", Password: "124"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHomeroomRecordsOwnClassOnly(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "gv01")

	w := s.do(t, http.MethodPost, "/api/v1/events/students", token, map[string]string{"studentId": "HS001", "criterion": "Late Arrival"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data models.ConductEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, -2, created.Data.Points)
	assert.Equal(t, "10A1", created.Data.SubjectClass)
	assert.Equal(t, "gv01", created.Data.ReporterUsername)

	w = s.do(t, http.MethodPost, "/api/v1/events/students", token, map[string]string{"studentId": "HS004", "criterion": "Late Arrival"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/events/students", token, map[string]string{"studentId": "HS001", "criterion": "Sleeping"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "UNKNOWN_CRITERION", errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/v1/events/staff", token, map[string]string{"username": "gv02", "criterion": "Missed Duty"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRankingReflectsRecordedEvents(t *testing.T) {
	s := newTestServer(t)
	proctor := s.login(t, "gt01")
	w := s.do(t, http.MethodPost, "/api/v1/events/students", proctor, map[string]string{"studentId": "HS002", "criterion": "No Uniform"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	admin := s.login(t, "admin")
	w = s.do(t, http.MethodGet, "/api/v1/reports/class-ranking", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.ClassScore    `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 4)
	last := body.Data[len(body.Data)-1]
	assert.Equal(t, "10A1", last.Class)
	assert.Equal(t, -3, last.NetScore)
	assert.Equal(t, 4, last.Rank)
	assert.Equal(t, false, body.Meta["cached"])

	w = s.do(t, http.MethodGet, "/api/v1/events/net-score?class=10A1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"netScore":-3`)
}

func TestKitchenSeesMealCountOnly(t *testing.T) {
	s := newTestServer(t)
	kitchen := s.login(t, "bep01")

	w := s.do(t, http.MethodGet, "/api/v1/events", kitchen, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/reports/teacher-stats", kitchen, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/reports/meal-count?date=2024-10-07", kitchen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.MealReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2024-10-07", body.Data.Date)
	assert.Equal(t, 5, body.Data.Total.Meals)
}

func TestPlanSubmissionFlow(t *testing.T) {
	s := newTestServer(t)
	homeroom := s.login(t, "gv01")

	w := s.do(t, http.MethodPost, "/api/v1/plans", homeroom, map[string]string{"week": "week 2", "artifactReference": "https://drive.example.com/plan-w2"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data models.PlanSubmission `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Week 2", created.Data.Week)
	assert.Equal(t, models.PlanOnTime, created.Data.Status)

	admin := s.login(t, "admin")
	w = s.do(t, http.MethodPost, "/api/v1/plans", admin, map[string]string{"week": "Week 2", "artifactReference": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/plans", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ms. Nguyen Thi Lan")

	other := s.login(t, "gv02")
	w = s.do(t, http.MethodGet, "/api/v1/plans", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Ms. Nguyen Thi Lan")
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"ok"`)

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storage_call_duration_seconds")
}

func TestProvisionIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	written, err := s.container.Provision(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, written)
}
